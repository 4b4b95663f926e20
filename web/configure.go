package web

import (
	"github.com/gin-gonic/gin"
	"github.com/gocrud/beans/bean"
	"github.com/gocrud/beans/core"
	"github.com/gocrud/beans/logging"
)

// 注册到工厂的 bean 名称
const (
	EngineBeanName = "webEngine"
	HostBeanName   = "webHost"
)

// Configure 返回 Web 配置器。Gin 引擎与主机注册为单例 bean，
// 主机实现 HostedService 由应用层托管。
//
// 使用示例: builder.Configure(web.Configure(func(b *web.Builder) { ... }))
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := NewBuilder(ctx.GetLogger().WithCategory("Web"))
		if options != nil {
			options(builder)
		}
		host := builder.Build()

		ctx.RegisterBean(EngineBeanName, bean.DefinitionFor[*gin.Engine]().
			WithSupplier(func(bean.SupplierFactory) (any, error) {
				return builder.Engine(), nil
			}))
		ctx.RegisterBean(HostBeanName, bean.DefinitionFor[*Host]().
			WithSupplier(func(bean.SupplierFactory) (any, error) {
				return host, nil
			}))

		ctx.GetLogger().Info("Web 主机已配置",
			logging.Field{Key: "port", Value: host.port})
	}
}

package mongodb

import (
	"fmt"

	"github.com/gocrud/beans/bean"
	"github.com/gocrud/beans/core"
	"github.com/gocrud/beans/logging"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// RegistryBeanName 客户端注册表的 bean 名称
const RegistryBeanName = "mongoRegistry"

// Builder MongoDB 模块构建器
type Builder struct {
	configs []Options
	errs    []error
}

// Add 添加一个客户端配置
func (b *Builder) Add(name, uri string, configure func(*Options)) *Builder {
	opts := NewOptions(name, uri)
	if configure != nil {
		configure(opts)
	}
	if err := opts.Validate(); err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	b.configs = append(b.configs, *opts)
	return b
}

// Configure 返回 MongoDB 配置器。注册表与每个命名 *mongo.Client
// 注册为延迟 bean，断开由容器销毁链触发。
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := &Builder{}
		if options != nil {
			options(builder)
		}
		if len(builder.errs) > 0 {
			ctx.GetLogger().Fatal("MongoDB 配置非法",
				logging.Field{Key: "errors", Value: fmt.Sprintf("%v", builder.errs)})
			return
		}
		if len(builder.configs) == 0 {
			return
		}

		configs := builder.configs
		ctx.RegisterBean(RegistryBeanName, bean.DefinitionFor[*Registry]().
			WithLazyInit().
			WithSupplier(func(bean.SupplierFactory) (any, error) {
				registry := NewRegistry()
				for _, opts := range configs {
					if err := registry.Open(opts); err != nil {
						registry.Close()
						return nil, err
					}
				}
				return registry, nil
			}).
			WithDestroyMethod(bean.DestroyInfer()))

		for _, opts := range configs {
			name := opts.Name
			def := bean.DefinitionFor[*mongo.Client]().
				WithLazyInit().
				WithSupplier(func(sf bean.SupplierFactory) (any, error) {
					v, err := sf.GetBean(RegistryBeanName)
					if err != nil {
						return nil, err
					}
					client, ok := v.(*Registry).Get(name)
					if !ok {
						return nil, fmt.Errorf("mongodb: 客户端 '%s' 缺失", name)
					}
					return client, nil
				})
			if name == "default" {
				def.WithPrimary()
			}
			ctx.RegisterBean("mongo."+name, def)
			ctx.GetLogger().Info("Mongo 客户端已注册",
				logging.Field{Key: "name", Value: name})
		}
	}
}

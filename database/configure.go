package database

import (
	"fmt"

	"github.com/gocrud/beans/bean"
	"github.com/gocrud/beans/core"
	"github.com/gocrud/beans/logging"
	"gorm.io/gorm"
)

// RegistryBeanName 连接注册表的 bean 名称
const RegistryBeanName = "databaseRegistry"

// Builder 数据库模块构建器
type Builder struct {
	configs []Options
	errs    []error
}

// Add 添加一个数据库连接配置
func (b *Builder) Add(name string, dialector gorm.Dialector, configure func(*Options)) *Builder {
	opts := NewOptions(name, dialector)
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

// Configure 返回数据库配置器。注册表与每个命名 *gorm.DB 注册为
// bean；"default" 连接的 bean（database.default）标记为 primary。
// 连接关闭经注册表的 Close 由容器销毁链触发。
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := &Builder{}
		if options != nil {
			options(builder)
		}
		if len(builder.errs) > 0 {
			ctx.GetLogger().Fatal("数据库配置非法",
				logging.Field{Key: "errors", Value: fmt.Sprintf("%v", builder.errs)})
			return
		}
		if len(builder.configs) == 0 {
			return
		}

		configs := builder.configs
		ctx.RegisterBean(RegistryBeanName, bean.DefinitionFor[*Registry]().
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
			def := bean.DefinitionFor[*gorm.DB]().
				WithSupplier(func(sf bean.SupplierFactory) (any, error) {
					v, err := sf.GetBean(RegistryBeanName)
					if err != nil {
						return nil, err
					}
					db, ok := v.(*Registry).Get(name)
					if !ok {
						return nil, fmt.Errorf("database: 连接 '%s' 缺失", name)
					}
					return db, nil
				})
			if name == "default" {
				def.WithPrimary()
			}
			ctx.RegisterBean("database."+name, def)
			ctx.GetLogger().Info("数据库连接已注册",
				logging.Field{Key: "name", Value: name})
		}
	}
}

package redis

import (
	"fmt"

	"github.com/gocrud/beans/bean"
	"github.com/gocrud/beans/core"
	"github.com/gocrud/beans/logging"
	"github.com/redis/go-redis/v9"
)

// RegistryBeanName 客户端注册表的 bean 名称
const RegistryBeanName = "redisRegistry"

// Builder Redis 模块构建器
type Builder struct {
	configs []Options
	errs    []error
}

// AddClient 添加一个客户端配置
func (b *Builder) AddClient(name string, configure func(*Options)) *Builder {
	opts := NewOptions(name)
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

// Configure 返回 Redis 配置器。注册表与每个命名 *redis.Client
// 注册为 bean，客户端延迟到首次查找时建立。
//
// 使用示例: builder.Configure(redis.Configure(func(b *redis.Builder) { ... }))
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := &Builder{}
		if options != nil {
			options(builder)
		}
		if len(builder.errs) > 0 {
			ctx.GetLogger().Fatal("Redis 配置非法",
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
			def := bean.DefinitionFor[*redis.Client]().
				WithLazyInit().
				WithSupplier(func(sf bean.SupplierFactory) (any, error) {
					v, err := sf.GetBean(RegistryBeanName)
					if err != nil {
						return nil, err
					}
					client, ok := v.(*Registry).Get(name)
					if !ok {
						return nil, fmt.Errorf("redis: 客户端 '%s' 缺失", name)
					}
					return client, nil
				})
			if name == "default" {
				def.WithPrimary()
			}
			ctx.RegisterBean("redis."+name, def)
			ctx.GetLogger().Info("Redis 客户端已注册",
				logging.Field{Key: "name", Value: name},
				logging.Field{Key: "addr", Value: opts.Addr})
		}
	}
}

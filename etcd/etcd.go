package etcd

import (
	"fmt"
	"time"

	"github.com/gocrud/beans/bean"
	"github.com/gocrud/beans/core"
	"github.com/gocrud/beans/logging"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// ClientBeanName etcd 客户端的 bean 名称
const ClientBeanName = "etcdClient"

// Options etcd 客户端配置
type Options struct {
	Endpoints   []string
	Username    string
	Password    string
	DialTimeout time.Duration
}

// NewOptions 创建默认配置
func NewOptions(endpoints ...string) *Options {
	return &Options{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	}
}

// Validate 验证配置
func (o *Options) Validate() error {
	if len(o.Endpoints) == 0 {
		return fmt.Errorf("etcd: endpoints 不能为空")
	}
	return nil
}

// Configure 返回 etcd 配置器。客户端注册为延迟单例 bean，
// Close 由容器销毁链调用。
func Configure(options func(*Options)) core.Configurator {
	return func(ctx *core.BuildContext) {
		opts := NewOptions()
		if options != nil {
			options(opts)
		}
		if err := opts.Validate(); err != nil {
			ctx.GetLogger().Fatal("etcd 配置非法",
				logging.Field{Key: "error", Value: err.Error()})
			return
		}

		ctx.RegisterBean(ClientBeanName, bean.DefinitionFor[*clientv3.Client]().
			WithLazyInit().
			WithSupplier(func(bean.SupplierFactory) (any, error) {
				client, err := clientv3.New(clientv3.Config{
					Endpoints:   opts.Endpoints,
					Username:    opts.Username,
					Password:    opts.Password,
					DialTimeout: opts.DialTimeout,
				})
				if err != nil {
					return nil, fmt.Errorf("etcd: 创建客户端失败: %w", err)
				}
				return client, nil
			}).
			WithDestroyMethod(bean.DestroyInfer()))

		ctx.GetLogger().Info("etcd 客户端已注册",
			logging.Field{Key: "endpoints", Value: fmt.Sprintf("%v", opts.Endpoints)})
	}
}

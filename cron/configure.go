package cron

import (
	"github.com/gocrud/beans/bean"
	"github.com/gocrud/beans/core"
	"github.com/gocrud/beans/logging"
)

// SchedulerBeanName 调度器的 bean 名称
const SchedulerBeanName = "cronScheduler"

// Configure 返回 Cron 配置器。调度器注册为单例 bean，实现
// HostedService 由应用层托管启动与停止。
//
// 使用示例: builder.Configure(cron.Configure(func(b *cron.Builder) { ... }))
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := &Builder{}
		if options != nil {
			options(builder)
		}

		logger := ctx.GetLogger().WithCategory("Cron")
		scheduler, err := builder.build(ctx.Factory(), logger)
		if err != nil {
			ctx.GetLogger().Fatal("构建定时调度器失败",
				logging.Field{Key: "error", Value: err.Error()})
			return
		}

		ctx.RegisterBean(SchedulerBeanName, bean.DefinitionFor[*Scheduler]().
			WithSupplier(func(bean.SupplierFactory) (any, error) {
				return scheduler, nil
			}))

		ctx.GetLogger().Info("定时调度器已配置",
			logging.Field{Key: "jobs", Value: len(scheduler.JobNames())})
	}
}

package cron

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/gocrud/beans/bean"
	"github.com/gocrud/beans/logging"
	"github.com/robfig/cron/v3"
)

// Scheduler 定时任务托管服务（robfig/cron）
type Scheduler struct {
	cron   *cron.Cron
	logger logging.Logger
	mu     sync.RWMutex
	jobs   map[string]cron.EntryID
	doneCh chan struct{}
}

func newScheduler(logger logging.Logger, withSeconds bool, location *time.Location) *Scheduler {
	opts := []cron.Option{cron.WithLocation(location)}
	if withSeconds {
		opts = append(opts, cron.WithSeconds())
	}
	return &Scheduler{
		cron:   cron.New(opts...),
		logger: logger,
		jobs:   make(map[string]cron.EntryID),
		doneCh: make(chan struct{}),
	}
}

// addJob 登记任务
func (s *Scheduler) addJob(spec, name string, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("cron: 任务 '%s' 已存在", name)
	}
	id, err := s.cron.AddFunc(spec, fn)
	if err != nil {
		return fmt.Errorf("cron: 任务 '%s' 的表达式非法: %w", name, err)
	}
	s.jobs[name] = id
	return nil
}

// JobNames 已登记的任务名称
func (s *Scheduler) JobNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.jobs))
	for n := range s.jobs {
		names = append(names, n)
	}
	return names
}

// Start 启动调度器并阻塞到 ctx 取消
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("启动定时调度器",
		logging.Field{Key: "jobs", Value: len(s.jobs)})
	s.cron.Start()
	select {
	case <-ctx.Done():
	case <-s.doneCh:
	}
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	return nil
}

// Stop 停止调度器
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.doneCh:
	default:
		close(s.doneCh)
	}
	return nil
}

// Builder Cron 模块构建器
type Builder struct {
	withSeconds bool
	location    string
	jobs        []jobSpec
}

type jobSpec struct {
	spec    string
	name    string
	handler any
}

// WithSeconds 启用秒级精度
func (b *Builder) WithSeconds() *Builder {
	b.withSeconds = true
	return b
}

// WithLocation 设置时区
func (b *Builder) WithLocation(location string) *Builder {
	b.location = location
	return b
}

// AddJob 添加任务。handler 可以是 func()，或任意参数从工厂按类型
// 解析的函数。
func (b *Builder) AddJob(spec, name string, handler any) *Builder {
	b.jobs = append(b.jobs, jobSpec{spec: spec, name: name, handler: handler})
	return b
}

// build 构建调度器，任务处理器的依赖在每次触发时解析
func (b *Builder) build(factory *bean.Factory, logger logging.Logger) (*Scheduler, error) {
	location := time.UTC
	if b.location != "" {
		loc, err := time.LoadLocation(b.location)
		if err != nil {
			return nil, fmt.Errorf("cron: 时区 '%s' 非法: %w", b.location, err)
		}
		location = loc
	}

	scheduler := newScheduler(logger, b.withSeconds, location)
	for _, job := range b.jobs {
		var fn func()
		switch handler := job.handler.(type) {
		case func():
			fn = handler
		default:
			wrapped, err := wrapInjectedHandler(factory, logger, job.name, handler)
			if err != nil {
				return nil, err
			}
			fn = wrapped
		}
		if err := scheduler.addJob(job.spec, job.name, fn); err != nil {
			return nil, err
		}
	}
	return scheduler, nil
}

// wrapInjectedHandler 包装处理器：每次触发按类型从工厂解析参数
func wrapInjectedHandler(factory *bean.Factory, logger logging.Logger, name string, handler any) (func(), error) {
	handlerValue := reflect.ValueOf(handler)
	handlerType := handlerValue.Type()
	if handlerType.Kind() != reflect.Func {
		return nil, fmt.Errorf("cron: 任务 '%s' 的处理器必须是函数, 得到 %T", name, handler)
	}

	return func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("定时任务 panic",
					logging.Field{Key: "job", Value: name},
					logging.Field{Key: "panic", Value: r})
			}
		}()

		args := make([]reflect.Value, handlerType.NumIn())
		for i := 0; i < handlerType.NumIn(); i++ {
			paramType := handlerType.In(i)
			instance, err := factory.GetBeanOfType(paramType)
			if err != nil {
				logger.Error("定时任务参数解析失败",
					logging.Field{Key: "job", Value: name},
					logging.Field{Key: "param", Value: paramType.String()},
					logging.Field{Key: "error", Value: err.Error()})
				return
			}
			args[i] = reflect.ValueOf(instance)
		}
		handlerValue.Call(args)
	}, nil
}

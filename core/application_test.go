package core_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gocrud/beans/bean"
	"github.com/gocrud/beans/config"
	"github.com/gocrud/beans/core"
)

type greeter struct {
	Prefix string
}

func (g *greeter) Greet() string { return g.Prefix + " world" }

type greeterService struct {
	G       *greeter `inject:""`
	started atomic.Bool
	stopped atomic.Bool
}

func (s *greeterService) Start(ctx context.Context) error {
	s.started.Store(true)
	<-ctx.Done()
	return nil
}

func (s *greeterService) Stop(ctx context.Context) error {
	s.stopped.Store(true)
	return nil
}

func TestApplicationLifecycle(t *testing.T) {
	builder := core.NewApplicationBuilder().
		UseEnvironment("production").
		UseShutdownTimeout(2 * time.Second).
		ConfigureConfiguration(func(b *config.Builder) {
			b.AddInMemory(map[string]any{
				"greeter": map[string]any{"prefix": "hello"},
			})
		}).
		ConfigureBeans(func(f *bean.Factory) {
			f.RegisterDefinition("greeter", bean.DefinitionFor[*greeter]().
				WithProperty("Prefix", "hello"))
			f.RegisterDefinition("greeterService", bean.DefinitionFor[*greeterService]())
		})

	app, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !app.Environment().IsProduction() {
		t.Error("环境设置未生效")
	}

	var svc *greeterService
	app.GetBean(&svc)
	if svc == nil || svc.G == nil {
		t.Fatal("注入未完成")
	}
	if svc.G.Greet() != "hello world" {
		t.Errorf("Greet = %q", svc.G.Greet())
	}

	done := make(chan error, 1)
	go func() { done <- app.Run() }()

	// 等待托管服务启动
	deadline := time.After(3 * time.Second)
	for !svc.started.Load() {
		select {
		case <-deadline:
			t.Fatal("托管服务未启动")
		case <-time.After(10 * time.Millisecond):
		}
	}

	app.Stop(context.Background())
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run 返回错误: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("应用未能停止")
	}
	if !svc.stopped.Load() {
		t.Error("托管服务未被停止")
	}
}

type serverSettings struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

func TestAddOptionsBinding(t *testing.T) {
	builder := core.NewApplicationBuilder().
		ConfigureConfiguration(func(b *config.Builder) {
			b.AddInMemory(map[string]any{
				"server": map[string]any{"host": "0.0.0.0", "port": 9000},
			})
		})
	core.AddOptions[serverSettings](builder, "server")

	app, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	v, err := app.Factory().GetBean("serverOptions")
	if err != nil {
		t.Fatalf("GetBean(serverOptions) failed: %v", err)
	}
	settings := v.(*serverSettings)
	if settings.Host != "0.0.0.0" || settings.Port != 9000 {
		t.Errorf("settings = %+v", settings)
	}
}

func TestCoreBeansRegistered(t *testing.T) {
	app, err := core.NewApplicationBuilder().Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !app.Factory().ContainsBean(core.ConfigurationBeanName) {
		t.Error("configuration bean 未注册")
	}
	if !app.Factory().ContainsBean(core.LoggerBeanName) {
		t.Error("logger bean 未注册")
	}
	if !app.Factory().ContainsBean(core.FactoryBeanName) {
		t.Error("beanFactory bean 未注册")
	}
}

func TestCleanupRunsOnShutdown(t *testing.T) {
	cleaned := false
	builder := core.NewApplicationBuilder().
		Configure(func(ctx *core.BuildContext) {
			ctx.SetCleanup("probe", func() { cleaned = true })
		})
	app, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- app.Run() }()
	time.Sleep(50 * time.Millisecond)
	app.Stop(context.Background())
	<-done

	if !cleaned {
		t.Error("清理函数未执行")
	}
}

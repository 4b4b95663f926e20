package core

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"reflect"
	"sync"
	"syscall"
	"time"

	"github.com/gocrud/beans/bean"
	"github.com/gocrud/beans/config"
	"github.com/gocrud/beans/hosting"
	"github.com/gocrud/beans/logging"
)

// 核心 bean 的固定名称
const (
	ConfigurationBeanName = "configuration"
	LoggerBeanName        = "logger"
	FactoryBeanName       = "beanFactory"
)

// Application 应用程序接口
type Application interface {
	Run() error
	RunAsync(ctx context.Context) error
	Stop(ctx context.Context) error
	Factory() *bean.Factory
	Configuration() config.Configuration
	Logger() logging.Logger
	Environment() Environment
	GetBean(ptr any)
}

// ApplicationBuilder 应用程序构建器
type ApplicationBuilder struct {
	mu              sync.Mutex
	environment     string
	configBuilder   *config.Builder
	loggingBuilder  *logging.Builder
	beanRegistrars  []func(*bean.Factory)
	configurators   []Configurator
	shutdownTimeout time.Duration
}

// NewApplicationBuilder 创建应用程序构建器
func NewApplicationBuilder() *ApplicationBuilder {
	return &ApplicationBuilder{
		environment:     "development",
		configBuilder:   config.NewBuilder(),
		loggingBuilder:  logging.NewBuilder(),
		shutdownTimeout: 30 * time.Second,
	}
}

// UseEnvironment 设置环境
func (b *ApplicationBuilder) UseEnvironment(env string) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.environment = env
	return b
}

// UseShutdownTimeout 设置关闭超时
func (b *ApplicationBuilder) UseShutdownTimeout(timeout time.Duration) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shutdownTimeout = timeout
	return b
}

// ConfigureConfiguration 配置配置系统
func (b *ApplicationBuilder) ConfigureConfiguration(configure func(*config.Builder)) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if configure != nil {
		configure(b.configBuilder)
	}
	return b
}

// ConfigureLogging 配置日志系统
func (b *ApplicationBuilder) ConfigureLogging(configure func(*logging.Builder)) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if configure != nil {
		configure(b.loggingBuilder)
	}
	return b
}

// ConfigureBeans 注册 bean 定义
func (b *ApplicationBuilder) ConfigureBeans(configure func(*bean.Factory)) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if configure != nil {
		b.beanRegistrars = append(b.beanRegistrars, configure)
	}
	return b
}

// Configure 添加配置器
func (b *ApplicationBuilder) Configure(configurators ...Configurator) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.configurators = append(b.configurators, configurators...)
	return b
}

// AddOptions 绑定配置节为选项 bean（语法糖）
// 使用示例: core.AddOptions[ServerSettings](builder, "server")
func AddOptions[T any](b *ApplicationBuilder, section string) *ApplicationBuilder {
	return b.Configure(func(ctx *BuildContext) {
		ConfigureOptions[T](ctx, section)
	})
}

// AddTask 添加一个简单的后台任务
func (b *ApplicationBuilder) AddTask(task func(ctx context.Context) error) *ApplicationBuilder {
	return b.Configure(func(ctx *BuildContext) {
		ctx.AddHostedService(&hosting.FuncService{Run: task})
	})
}

// Build 构建应用程序：配置 → 日志 → bean 工厂 → 配置器 →
// 急切单例实例化 → 托管服务发现
func (b *ApplicationBuilder) Build() (Application, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cfg, err := b.configBuilder.Build()
	if err != nil {
		return nil, err
	}

	logger := b.loggingBuilder.Build().WithCategory("Application")
	logger.Info("构建应用程序", logging.Field{Key: "environment", Value: b.environment})

	factory := bean.NewFactory(bean.WithLogger(logger.WithCategory("BeanFactory")))

	// 核心 bean
	factory.RegisterSingleton(ConfigurationBeanName, cfg)
	factory.RegisterSingleton(LoggerBeanName, logger)
	factory.RegisterSingleton(FactoryBeanName, factory)

	buildContext := &BuildContext{
		factory:       factory,
		configuration: cfg,
		logger:        logger,
		environment:   NewEnvironment(b.environment),
		cleanups:      make(map[string]func()),
	}
	for _, configurator := range b.configurators {
		configurator(buildContext)
	}
	for _, registrar := range b.beanRegistrars {
		registrar(factory)
	}

	if err := factory.PreInstantiateSingletons(); err != nil {
		return nil, err
	}
	logger.Info("bean 工厂就绪",
		logging.Field{Key: "definitions", Value: len(factory.DefinitionNames())})

	// 托管服务：配置器直接添加的实例 + 实现 HostedService 的单例 bean
	services := append([]hosting.HostedService(nil), buildContext.hostedServices...)
	hostedType := reflect.TypeOf((*hosting.HostedService)(nil)).Elem()
	for _, name := range factory.GetBeanNamesForType(hostedType, false, true) {
		instance, err := factory.GetBean(name)
		if err != nil {
			return nil, err
		}
		services = append(services, instance.(hosting.HostedService))
	}

	return &application{
		factory:         factory,
		configuration:   cfg,
		logger:          logger,
		environment:     buildContext.environment,
		hostedServices:  services,
		cleanupKeys:     buildContext.cleanupKeys,
		cleanups:        buildContext.cleanups,
		shutdownTimeout: b.shutdownTimeout,
		stopCh:          make(chan struct{}),
	}, nil
}

// application 应用程序实现
type application struct {
	factory         *bean.Factory
	configuration   config.Configuration
	logger          logging.Logger
	environment     Environment
	hostedServices  []hosting.HostedService
	manager         *hosting.Manager
	cleanupKeys     []string
	cleanups        map[string]func()
	shutdownTimeout time.Duration
	stopCh          chan struct{}
	stopOnce        sync.Once
	mu              sync.Mutex
	running         bool
}

// Run 运行应用程序（阻塞到收到退出信号）
func (a *application) Run() error {
	return a.RunAsync(context.Background())
}

// RunAsync 运行应用程序，ctx 取消时触发关闭
func (a *application) RunAsync(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return errors.New("core: 应用程序已在运行")
	}
	a.running = true
	a.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.manager = hosting.NewManager(a.logger.WithCategory("Hosting"))
	for _, service := range a.hostedServices {
		a.manager.Add(service)
	}
	errCh := a.manager.StartAll(runCtx)

	a.logger.Info("应用程序已启动",
		logging.Field{Key: "services", Value: a.manager.Count()})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		a.logger.Info("收到退出信号", logging.Field{Key: "signal", Value: sig.String()})
	case <-a.stopCh:
		a.logger.Info("收到停止请求")
	case <-ctx.Done():
	case err := <-errCh:
		a.logger.Error("托管服务失败，触发关闭",
			logging.Field{Key: "error", Value: err.Error()})
		runErr = err
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer shutdownCancel()

	a.manager.StopAll(shutdownCtx)
	a.manager.Wait()

	// 清理函数逆序执行
	for i := len(a.cleanupKeys) - 1; i >= 0; i-- {
		key := a.cleanupKeys[i]
		a.logger.Debug("执行清理", logging.Field{Key: "key", Value: key})
		a.cleanups[key]()
	}

	// 单例销毁收尾（逆注册序，依赖者先行）
	a.factory.DestroySingletons()
	a.logger.Info("应用程序已停止")

	a.mu.Lock()
	a.running = false
	a.mu.Unlock()
	return runErr
}

// Stop 请求停止应用程序
func (a *application) Stop(ctx context.Context) error {
	a.stopOnce.Do(func() { close(a.stopCh) })
	return nil
}

// Factory bean 工厂
func (a *application) Factory() *bean.Factory { return a.factory }

// Configuration 配置
func (a *application) Configuration() config.Configuration { return a.configuration }

// Logger 日志记录器
func (a *application) Logger() logging.Logger { return a.logger }

// Environment 环境
func (a *application) Environment() Environment { return a.environment }

// GetBean 按指针参数获取 bean 实例
//
// 使用示例：
//
//	var svc *MyService
//	app.GetBean(&svc)
func (a *application) GetBean(ptr any) {
	ptrValue := reflect.ValueOf(ptr)
	if ptrValue.Kind() != reflect.Pointer || ptrValue.IsNil() {
		a.logger.Fatal("GetBean 参数必须是非 nil 指针")
		return
	}
	elem := ptrValue.Elem()
	instance, err := a.factory.GetBeanOfType(elem.Type())
	if err != nil {
		a.logger.Fatal("获取 bean 失败",
			logging.Field{Key: "type", Value: elem.Type().String()},
			logging.Field{Key: "error", Value: err.Error()})
		return
	}
	elem.Set(reflect.ValueOf(instance))
}

package core

import (
	"reflect"
	"sync"

	"github.com/gocrud/beans/bean"
	"github.com/gocrud/beans/config"
	"github.com/gocrud/beans/hosting"
	"github.com/gocrud/beans/logging"
)

// Configurator 配置器：扩展模块在构建阶段注册定义、托管服务与清理函数
type Configurator func(*BuildContext)

// BuildContext 构建上下文，提供给配置器的环境
type BuildContext struct {
	factory       *bean.Factory
	configuration config.Configuration
	logger        logging.Logger
	environment   Environment

	mu             sync.Mutex
	hostedServices []hosting.HostedService
	cleanupKeys    []string
	cleanups       map[string]func()
}

// Factory 底层 bean 工厂
func (c *BuildContext) Factory() *bean.Factory { return c.factory }

// GetConfiguration 配置对象
func (c *BuildContext) GetConfiguration() config.Configuration { return c.configuration }

// GetLogger 日志记录器
func (c *BuildContext) GetLogger() logging.Logger { return c.logger }

// GetEnvironment 环境信息
func (c *BuildContext) GetEnvironment() Environment { return c.environment }

// AddHostedService 直接添加托管服务实例
func (c *BuildContext) AddHostedService(service hosting.HostedService) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hostedServices = append(c.hostedServices, service)
}

// SetCleanup 登记资源清理函数，应用停止时按登记逆序执行
func (c *BuildContext) SetCleanup(key string, cleanup func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.cleanups[key]; !ok {
		c.cleanupKeys = append(c.cleanupKeys, key)
	}
	c.cleanups[key] = cleanup
}

// RegisterBean 注册 bean 定义（语法糖）
func (c *BuildContext) RegisterBean(name string, def *bean.Definition) {
	if err := c.factory.RegisterDefinition(name, def); err != nil {
		c.logger.Fatal("注册 bean 定义失败",
			logging.Field{Key: "bean", Value: name},
			logging.Field{Key: "error", Value: err.Error()})
	}
}

// RegisterInstance 注册既有实例为单例 bean（语法糖）
func (c *BuildContext) RegisterInstance(name string, instance any) {
	c.factory.RegisterSingleton(name, instance)
}

// ConfigureOptions 绑定配置节到选项结构体并注册为单例 bean。
// bean 名称为配置节名加 "Options" 后缀。
func ConfigureOptions[T any](ctx *BuildContext, section string) {
	def := bean.DefinitionFor[*T]().
		WithSupplier(func(bean.SupplierFactory) (any, error) {
			settings := new(T)
			if err := ctx.configuration.Bind(section, settings); err != nil {
				return nil, err
			}
			return settings, nil
		})
	ctx.RegisterBean(section+"Options", def)

	ctx.logger.Debug("配置选项已注册",
		logging.Field{Key: "type", Value: reflect.TypeOf((*T)(nil)).Elem().String()},
		logging.Field{Key: "section", Value: section})
}

// Environment 运行环境
type Environment interface {
	Name() string
	IsDevelopment() bool
	IsProduction() bool
	IsStaging() bool
}

type environment struct {
	name string
}

// NewEnvironment 创建环境
func NewEnvironment(name string) Environment {
	return &environment{name: name}
}

func (e *environment) Name() string        { return e.name }
func (e *environment) IsDevelopment() bool { return e.name == "development" }
func (e *environment) IsProduction() bool  { return e.name == "production" }
func (e *environment) IsStaging() bool     { return e.name == "staging" }

package beans

import (
	"reflect"

	"github.com/gocrud/beans/bean"
	"github.com/gocrud/beans/core"
)

// NewApplicationBuilder 创建应用程序构建器
// 这是构建完整应用的入口点
func NewApplicationBuilder() *core.ApplicationBuilder {
	return core.NewApplicationBuilder()
}

// NewFactory 创建独立的 bean 工厂
// 不需要应用外壳时直接使用容器
func NewFactory(opts ...bean.FactoryOption) *bean.Factory {
	return bean.NewFactory(opts...)
}

// Definition 为类型 T 创建 bean 定义（语法糖）
func Definition[T any]() *bean.Definition {
	return bean.DefinitionFor[T]()
}

// TypeOf 获取类型 T 的 reflect.Type（泛型辅助函数）
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

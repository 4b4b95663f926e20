package bean

import (
	"reflect"

	"github.com/gocrud/beans/logging"
)

// 推断销毁方法的约定名称。
var inferredDestroyMethodNames = []string{"Close", "Shutdown"}

// disposableAdapter 销毁适配器：DestructionAware 处理器、Disposable
// 能力接口与命名/推断的销毁方法按序执行。销毁期间的错误记录日志
// 并吞掉，销毁必须跨 bean 继续。
type disposableAdapter struct {
	name              string
	instance          any
	invokeDisposable  bool
	destroyMethodName string
	processors        []DestructionAware
	logger            logging.Logger
}

// newDisposableAdapter 判定实例是否需要销毁回调；不需要返回 nil。
func newDisposableAdapter(name string, instance any, md *mergedDefinition, pps []DestructionAware, logger logging.Logger) *disposableAdapter {
	_, isDisposable := instance.(Disposable)

	methodName := resolveDestroyMethodName(instance, md, isDisposable)

	var filtered []DestructionAware
	for _, pp := range pps {
		if pp.RequiresDestruction(instance) {
			filtered = append(filtered, pp)
		}
	}

	if !isDisposable && methodName == "" && len(filtered) == 0 {
		return nil
	}
	return &disposableAdapter{
		name:              name,
		instance:          instance,
		invokeDisposable:  isDisposable,
		destroyMethodName: methodName,
		processors:        filtered,
		logger:            logger,
	}
}

// resolveDestroyMethodName 解析命名/推断的销毁方法；与 Disposable
// 接口重合时不再单独调用。
func resolveDestroyMethodName(instance any, md *mergedDefinition, isDisposable bool) string {
	v := reflect.ValueOf(instance)
	switch md.Destroy.Kind {
	case DestroyNamed:
		if isDisposable && md.Destroy.Name == "Destroy" {
			return ""
		}
		// 已被注解驱动回调接管的方法不再单独调用
		if md.isExternallyManagedInit(md.Destroy.Name) {
			return ""
		}
		return md.Destroy.Name
	case DestroyInferred:
		if isDisposable {
			return ""
		}
		for _, candidate := range inferredDestroyMethodNames {
			if m := v.MethodByName(candidate); m.IsValid() && m.Type().NumIn() == 0 {
				return candidate
			}
		}
	}
	return ""
}

// destroy 执行销毁链。
func (a *disposableAdapter) destroy() {
	for _, pp := range a.processors {
		if err := pp.PostProcessBeforeDestruction(a.instance, a.name); err != nil {
			a.logger.Error("销毁前处理器失败",
				logging.Field{Key: "bean", Value: a.name},
				logging.Field{Key: "error", Value: err.Error()})
		}
	}

	if a.invokeDisposable {
		if err := a.instance.(Disposable).Destroy(); err != nil {
			a.logger.Error("Destroy 回调失败",
				logging.Field{Key: "bean", Value: a.name},
				logging.Field{Key: "error", Value: err.Error()})
		}
	}

	if a.destroyMethodName != "" {
		a.invokeDestroyMethod()
	}
}

func (a *disposableAdapter) invokeDestroyMethod() {
	m := reflect.ValueOf(a.instance).MethodByName(a.destroyMethodName)
	if !m.IsValid() {
		a.logger.Warn("销毁方法不存在",
			logging.Field{Key: "bean", Value: a.name},
			logging.Field{Key: "method", Value: a.destroyMethodName})
		return
	}
	if m.Type().NumIn() != 0 {
		a.logger.Warn("销毁方法必须无参",
			logging.Field{Key: "bean", Value: a.name},
			logging.Field{Key: "method", Value: a.destroyMethodName})
		return
	}
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("销毁方法 panic",
				logging.Field{Key: "bean", Value: a.name},
				logging.Field{Key: "panic", Value: r})
		}
	}()
	out := m.Call(nil)
	if len(out) > 0 && out[len(out)-1].Type().Implements(errorType) && !out[len(out)-1].IsNil() {
		a.logger.Error("销毁方法失败",
			logging.Field{Key: "bean", Value: a.name},
			logging.Field{Key: "method", Value: a.destroyMethodName},
			logging.Field{Key: "error", Value: out[len(out)-1].Interface().(error).Error()})
	}
}

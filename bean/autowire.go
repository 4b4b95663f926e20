package bean

import (
	"reflect"
)

// 自动装配能力的公开操作：在容器之外创建或改造既有实例。

// CreateBean 为类型创建一个全新的、不注册的实例：按类型自动装配、
// 完整初始化，prototype 语义。
func (f *Factory) CreateBean(typ reflect.Type) (any, error) {
	name := typ.String()
	md := f.transientDefinition(name, typ)
	state := newResolutionState()
	state.beforePrototypeCreation(name)
	defer state.afterPrototypeCreation(name)
	return f.createBean(state, name, md, nil)
}

// AutowireBean 对既有实例执行属性自动装配与注解驱动注入，
// 不运行初始化回调。
func (f *Factory) AutowireBean(instance any) error {
	typ := reflect.TypeOf(instance)
	name := typ.String()
	md := f.transientDefinition(name, typ)
	return f.populateBean(newResolutionState(), name, md, instance)
}

// ConfigureBean 按既有定义配置实例：属性填充加初始化链。
func (f *Factory) ConfigureBean(instance any, name string) (any, error) {
	beanName := f.canonical(name)
	md, err := f.getMergedDefinition(beanName)
	if err != nil {
		return nil, err
	}
	f.markBeanAsCreated(beanName)
	state := newResolutionState()
	if err := f.populateBean(state, beanName, md, instance); err != nil {
		return nil, err
	}
	return f.initializeBean(state, beanName, instance, md)
}

// ApplyBeanPropertyValues 只应用定义声明的属性值。
func (f *Factory) ApplyBeanPropertyValues(instance any, name string) error {
	beanName := f.canonical(name)
	md, err := f.getMergedDefinition(beanName)
	if err != nil {
		return err
	}
	pvs := md.PropertyValues.clone()
	if pvs == nil {
		return nil
	}
	return f.applyPropertyValues(newResolutionState(), beanName, instance, pvs)
}

// InitializeBean 对实例运行完整初始化链（感知、前后处理器、
// 声明回调），返回可能被替换的实例。
func (f *Factory) InitializeBean(instance any, name string) (any, error) {
	var md *mergedDefinition
	beanName := f.canonical(name)
	if f.ContainsDefinition(beanName) {
		if m, err := f.getMergedDefinition(beanName); err == nil {
			md = m
		}
	}
	return f.initializeBean(newResolutionState(), beanName, instance, md)
}

// DestroyBean 立即对实例执行销毁链（不触达单例注册表）。
func (f *Factory) DestroyBean(instance any) {
	typ := reflect.TypeOf(instance)
	md := f.transientDefinition(typ.String(), typ)
	md.Destroy = DestroyInfer()
	adapter := newDisposableAdapter(typ.String(), instance, md,
		f.pipeline.destructionAwareProcessors(), f.logger)
	if adapter != nil {
		adapter.destroy()
	}
}

// transientDefinition 为未注册类型构造一次性的合并定义。
func (f *Factory) transientDefinition(name string, typ reflect.Type) *mergedDefinition {
	def := NewDefinition(typ)
	def.Scope = ScopePrototype
	def.AutowireMode = AutowireByType
	return &mergedDefinition{Definition: def, name: name, resolvedTargetType: typ}
}

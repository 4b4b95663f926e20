package bean

import (
	"reflect"
	"sync"
)

// mergedDefinition 与祖先合并后的定义，附带创建期填充的解析槽位。
// 槽位在 ctorLock 下写入，读取同样持锁或经 resolved 标志发布。
type mergedDefinition struct {
	*Definition

	name string

	// stale 底层定义被解析层修改后置位，下次解析时重新合并。
	stale bool

	// resolvedTargetType 解析出的目标类型。
	resolvedTargetType reflect.Type

	// factoryMethodReturnType 工厂方法的返回类型（预测类型用）。
	factoryMethodReturnType reflect.Type

	// ctorLock 保护以下全部槽位。
	ctorLock sync.Mutex

	// resolvedConstructorOrFactoryMethod 缓存的获胜构造函数/工厂方法。
	resolvedConstructorOrFactoryMethod reflect.Value

	// constructorArgumentsResolved 槽位是否已填充。
	constructorArgumentsResolved bool

	// resolvedConstructorArguments 完全转换后的参数数组。
	resolvedConstructorArguments []reflect.Value

	// preparedConstructorArguments 部分解析的参数数组，自动装配槽位
	// 携带 autowiredMarker 占位。
	preparedConstructorArguments []any

	// postProcessed MergedDefinition 后置处理器是否已应用。
	postProcessed bool

	// beforeInstantiationResolved 实例化前短路检查是否已得出结论。
	beforeInstantiationResolved bool

	// externallyManaged 外部接管的配置成员（注入点与回调标识），
	// 用于抑制同一方法的重复调用。
	externallyManaged     map[string]struct{}
	externallyManagedInit map[string]struct{}
	externallyManagedMu   sync.Mutex
}

// registerExternallyManagedMember 记录一个外部接管的配置成员。
func (md *mergedDefinition) registerExternallyManagedMember(id string) {
	md.externallyManagedMu.Lock()
	defer md.externallyManagedMu.Unlock()
	if md.externallyManaged == nil {
		md.externallyManaged = make(map[string]struct{})
	}
	md.externallyManaged[id] = struct{}{}
}

func (md *mergedDefinition) isExternallyManagedMember(id string) bool {
	md.externallyManagedMu.Lock()
	defer md.externallyManagedMu.Unlock()
	_, ok := md.externallyManaged[id]
	return ok
}

// registerExternallyManagedInit 记录一个外部接管的初始化/销毁回调。
func (md *mergedDefinition) registerExternallyManagedInit(id string) {
	md.externallyManagedMu.Lock()
	defer md.externallyManagedMu.Unlock()
	if md.externallyManagedInit == nil {
		md.externallyManagedInit = make(map[string]struct{})
	}
	md.externallyManagedInit[id] = struct{}{}
}

func (md *mergedDefinition) isExternallyManagedInit(id string) bool {
	md.externallyManagedMu.Lock()
	defer md.externallyManagedMu.Unlock()
	_, ok := md.externallyManagedInit[id]
	return ok
}

// getMergedDefinition 取合并后的定义，必要时执行父链合并并缓存。
func (f *Factory) getMergedDefinition(name string) (*mergedDefinition, error) {
	if v, ok := f.mergedDefinitions.Load(name); ok {
		md := v.(*mergedDefinition)
		if !md.stale {
			return md, nil
		}
	}
	def, err := f.GetDefinition(name)
	if err != nil {
		return nil, err
	}
	return f.mergeDefinition(name, def)
}

// mergeDefinition 将定义沿父链展平。子定义的显式设置覆盖父定义。
func (f *Factory) mergeDefinition(name string, def *Definition) (*mergedDefinition, error) {
	var flat *Definition
	if def.Parent == "" {
		flat = def.clone()
	} else {
		parentMd, err := f.getMergedDefinition(def.Parent)
		if err != nil {
			return nil, newDefinitionError(name, "父定义 '%s' 缺失: %v", def.Parent, err)
		}
		flat = parentMd.Definition.clone()
		overlayDefinition(flat, def)
	}
	if flat.Scope == "" {
		flat.Scope = ScopeSingleton
	}
	md := &mergedDefinition{Definition: flat, name: name}
	// put-if-absent：并发合并共享同一实例，保证每个定义的
	// MergedDefinition 后置处理恰好一次
	if existing, loaded := f.mergedDefinitions.LoadOrStore(name, md); loaded {
		cached := existing.(*mergedDefinition)
		if !cached.stale {
			return cached, nil
		}
		f.mergedDefinitions.Store(name, md)
	}
	return md, nil
}

// overlayDefinition 将子定义的内容叠加到展平的父定义副本上。
func overlayDefinition(base, child *Definition) {
	if child.Type != nil {
		base.Type = child.Type
	}
	if child.Scope != "" {
		base.Scope = child.Scope
	}
	base.Abstract = child.Abstract
	if child.LazyInit {
		base.LazyInit = true
	}
	if child.Primary {
		base.Primary = true
	}
	if child.Priority != nil {
		p := *child.Priority
		base.Priority = &p
	}
	if child.AutowireMode != AutowireNo {
		base.AutowireMode = child.AutowireMode
	}
	if child.DependencyCheck != DependencyCheckNone {
		base.DependencyCheck = child.DependencyCheck
	}
	if child.Strict {
		base.Strict = true
	}
	if child.NonPublicAccess {
		base.NonPublicAccess = true
	}
	if len(child.DependsOn) > 0 {
		base.DependsOn = append([]string(nil), child.DependsOn...)
	}
	if len(child.Constructors) > 0 {
		base.Constructors = append([]any(nil), child.Constructors...)
	}
	if child.FactoryBeanName != "" {
		base.FactoryBeanName = child.FactoryBeanName
	}
	if child.FactoryMethodName != "" {
		base.FactoryMethodName = child.FactoryMethodName
	}
	if child.InstanceSupplier != nil {
		base.InstanceSupplier = child.InstanceSupplier
	}
	if child.InitMethodName != "" {
		base.InitMethodName = child.InitMethodName
	}
	if child.Destroy.Kind != DestroyNone {
		base.Destroy = child.Destroy
	}
	if len(child.LookupOverrides) > 0 {
		base.LookupOverrides = append(base.LookupOverrides, child.LookupOverrides...)
	}
	if child.ConstructorArgs != nil {
		if base.ConstructorArgs == nil {
			base.ConstructorArgs = NewConstructorArgs()
		}
		for i, vh := range child.ConstructorArgs.indexed {
			c := *vh
			base.ConstructorArgs.indexed[i] = &c
		}
		for _, vh := range child.ConstructorArgs.generic {
			c := *vh
			base.ConstructorArgs.generic = append(base.ConstructorArgs.generic, &c)
		}
	}
	if child.PropertyValues != nil {
		if base.PropertyValues == nil {
			base.PropertyValues = NewPropertyValues()
		}
		for _, pv := range child.PropertyValues.Values() {
			base.PropertyValues.add(pv)
		}
	}
	if child.Qualifiers != nil {
		if base.Qualifiers == nil {
			base.Qualifiers = make(map[string]string, len(child.Qualifiers))
		}
		for k, v := range child.Qualifiers {
			base.Qualifiers[k] = v
		}
	}
}

// invalidateMergedDefinition 解析层修改底层定义后使缓存失效。
// 同时标记派生定义（以该定义为父）的合并结果为过期。
func (f *Factory) invalidateMergedDefinition(name string) {
	if v, ok := f.mergedDefinitions.Load(name); ok {
		v.(*mergedDefinition).stale = true
	}
	f.mergedDefinitions.Range(func(_, v any) bool {
		md := v.(*mergedDefinition)
		if md.Parent == name {
			md.stale = true
		}
		return true
	})
}

// clearMergedDefinitionCache 清空全部合并缓存。
func (f *Factory) clearMergedDefinitionCache() {
	f.mergedDefinitions.Range(func(k, _ any) bool {
		f.mergedDefinitions.Delete(k)
		return true
	})
}

package bean

import (
	"fmt"
	"reflect"

	"github.com/gocrud/beans/logging"
)

// createBean 创建入口：解析目标类型、校验方法覆盖、给实例化前
// 短路机会，随后进入 doCreateBean。
func (f *Factory) createBean(state *resolutionState, name string, md *mergedDefinition, args []any) (any, error) {
	if md.resolvedTargetType == nil {
		md.resolvedTargetType = f.predictBeanType(name, md)
	}

	if err := f.validateLookupOverrides(name, md); err != nil {
		return nil, err
	}

	// 实例化前短路：InstantiationAware 返回替代实例时，
	// 只再走初始化后阶段
	if short, err := f.resolveBeforeInstantiation(name, md); err != nil {
		return nil, err
	} else if short != nil {
		return short, nil
	}

	return f.doCreateBean(state, name, md, args)
}

// resolveBeforeInstantiation 实例化前扩展点。确定无人短路后该定义不再探测；
// 被短路过的定义每次创建都重新探测。
func (f *Factory) resolveBeforeInstantiation(name string, md *mergedDefinition) (any, error) {
	md.ctorLock.Lock()
	resolved := md.beforeInstantiationResolved
	md.ctorLock.Unlock()
	if resolved || !f.pipeline.hasInstantiationAware() {
		return nil, nil
	}

	typ := md.resolvedTargetType
	var short any
	if typ != nil {
		for _, pp := range f.pipeline.instantiationAwareProcessors() {
			instance, err := pp.PostProcessBeforeInstantiation(typ, name)
			if err != nil {
				return nil, &PostProcessingError{Name: name, Phase: "before-instantiation", Err: err}
			}
			if instance != nil {
				short = instance
				break
			}
		}
	}
	if short != nil {
		out, err := f.ApplyBeanPostProcessorsAfterInitialization(short, name)
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	// 只有确定无人短路时才跳过后续探测；短路过的定义每次创建重新给机会
	md.ctorLock.Lock()
	md.beforeInstantiationResolved = true
	md.ctorLock.Unlock()
	return nil, nil
}

// validateLookupOverrides 冻结方法覆盖记录：目标字段必须存在且为 func。
func (f *Factory) validateLookupOverrides(name string, md *mergedDefinition) error {
	if len(md.LookupOverrides) == 0 {
		return nil
	}
	typ := md.resolvedTargetType
	if typ == nil {
		return newDefinitionError(name, "无法确定目标类型，lookup 覆盖无法校验")
	}
	st := typ
	if st.Kind() == reflect.Ptr {
		st = st.Elem()
	}
	if st.Kind() != reflect.Struct {
		return newDefinitionError(name, "lookup 覆盖要求结构体目标，得到 %v", typ)
	}
	for _, ov := range md.LookupOverrides {
		field, ok := st.FieldByName(ov.Field)
		if !ok {
			return newDefinitionError(name, "lookup 覆盖的字段 '%s' 不存在", ov.Field)
		}
		if field.Type.Kind() != reflect.Func {
			return newDefinitionError(name, "lookup 覆盖的字段 '%s' 不是 func 类型", ov.Field)
		}
	}
	return nil
}

// doCreateBean 实际创建：实例化 → 合并定义后置处理（一次）→
// 早期暴露 → 属性填充 → 初始化 → 包装校验 → 登记销毁。
func (f *Factory) doCreateBean(state *resolutionState, name string, md *mergedDefinition, args []any) (any, error) {
	raw, err := f.instantiate(state, name, md, args)
	if err != nil {
		return nil, err
	}

	// MergedDefinition 后置处理器，每个定义恰好一次
	md.ctorLock.Lock()
	if !md.postProcessed {
		view := &MergedView{md: md}
		for _, pp := range f.pipeline.mergedDefinitionProcessors() {
			pp.PostProcessMergedDefinition(view, reflect.TypeOf(raw), name)
		}
		md.postProcessed = true
	}
	md.ctorLock.Unlock()

	// 单例且允许循环引用时，原始实例化后、属性填充前发布三级生产者
	earlyExposure := md.IsSingleton() && f.allowCircularReferences &&
		f.registry.isCurrentlyInCreation(name)
	if earlyExposure {
		f.registry.addSingletonFactory(name, func() (any, error) {
			return f.getEarlyBeanReference(name, raw)
		})
	}

	if err := f.applyLookupOverrides(name, md, raw); err != nil {
		return nil, err
	}

	if err := f.populateBean(state, name, md, raw); err != nil {
		return nil, err
	}

	exposed, err := f.initializeBean(state, name, raw, md)
	if err != nil {
		return nil, err
	}

	if earlyExposure {
		earlyRef, _ := f.registry.getSingleton(name, false)
		if earlyRef != nil {
			if exposed == raw {
				// 初始化未替换实例：以早期暴露（可能被包装）的引用为准
				exposed = earlyRef
			} else if dependents := f.createdDependents(name); len(dependents) > 0 {
				// 初始化期间替换了实例，而原始引用已被他人注入
				if !f.allowRawInjectionDespiteWrapping {
					return nil, newCycleError(name,
						"bean 在初始化期间被包装，但原始引用已注入到 %v", dependents)
				}
				f.logger.Warn("bean 在初始化期间被包装，原始引用已被注入",
					logging.Field{Key: "bean", Value: name},
					logging.Field{Key: "dependents", Value: dependents})
			}
		}
	}

	f.registerDisposableBeanIfNecessary(name, exposed, md)
	return exposed, nil
}

// createdDependents 依赖该 bean 且已实际创建过的 bean 名称。
func (f *Factory) createdDependents(name string) []string {
	var out []string
	for _, dep := range f.registry.getDependentBeans(name) {
		if _, ok := f.alreadyCreated.Load(dep); ok {
			out = append(out, dep)
		}
	}
	return out
}

// getEarlyBeanReference 给 SmartInstantiationAware 处理器包装早期引用的机会。
func (f *Factory) getEarlyBeanReference(name string, instance any) (any, error) {
	exposed := instance
	for _, pp := range f.pipeline.smartInstantiationProcessors() {
		out, err := pp.GetEarlyBeanReference(exposed, name)
		if err != nil {
			return nil, &PostProcessingError{Name: name, Phase: "early-reference", Err: err}
		}
		if out != nil {
			exposed = out
		}
	}
	return exposed, nil
}

// instantiate 实例化策略选择：实例提供者 > 工厂方法 > 缓存的构造
// 解析结果 > 处理器提名/声明的构造候选 > 无参结构体实例化。
func (f *Factory) instantiate(state *resolutionState, name string, md *mergedDefinition, args []any) (any, error) {
	if md.InstanceSupplier != nil {
		return f.obtainFromSupplier(state, name, md)
	}

	if md.FactoryMethodName != "" {
		return f.instantiateUsingFactoryMethod(state, name, md, args)
	}

	// 已解析槽位重放（显式参数强制重新解析）
	if args == nil {
		md.ctorLock.Lock()
		resolved := md.constructorArgumentsResolved
		md.ctorLock.Unlock()
		if resolved {
			return f.instantiateUsingCachedConstructor(state, name, md)
		}
	}

	candidates := md.Constructors
	if len(candidates) == 0 {
		for _, pp := range f.pipeline.smartInstantiationProcessors() {
			nominated, err := pp.DetermineCandidateConstructors(md.resolvedTargetType, name)
			if err != nil {
				return nil, &PostProcessingError{Name: name, Phase: "determine-constructors", Err: err}
			}
			if len(nominated) > 0 {
				candidates = nominated
				break
			}
		}
	}

	if len(candidates) > 0 || args != nil {
		if len(candidates) == 0 {
			return nil, newDefinitionError(name, "携带显式参数但没有任何候选构造函数")
		}
		// 唯一无参候选且无声明参数：直接调用
		if len(candidates) == 1 && args == nil && md.ConstructorArgs.Empty() {
			fn := reflect.ValueOf(candidates[0])
			if fn.Kind() == reflect.Func && fn.Type().NumIn() == 0 {
				md.ctorLock.Lock()
				md.resolvedConstructorOrFactoryMethod = fn
				md.constructorArgumentsResolved = true
				md.resolvedConstructorArguments = []reflect.Value{}
				md.ctorLock.Unlock()
				return invokeBeanFunction(name, fn, nil)
			}
		}
		return f.autowireConstructor(state, name, md, candidates, args)
	}

	if md.ConstructorArgs.Count() > 0 {
		return nil, newDefinitionError(name, "声明了构造参数但没有候选构造函数")
	}

	return f.instantiateDefault(name, md)
}

// obtainFromSupplier 调用用户实例提供者；期间的查找登记依赖边。
func (f *Factory) obtainFromSupplier(state *resolutionState, name string, md *mergedDefinition) (any, error) {
	state.pushCreatingBean(name)
	defer state.popCreatingBean()

	instance, err := md.InstanceSupplier(&supplierFactory{f: f, state: state})
	if err != nil {
		return nil, newCreationError(name, "实例提供者失败", err)
	}
	if instance == nil {
		return nil, newCreationError(name, "实例提供者返回 nil", nil)
	}
	return instance, nil
}

// supplierFactory 实例提供者可见的受限工厂视图。
type supplierFactory struct {
	f     *Factory
	state *resolutionState
}

func (s *supplierFactory) GetBean(name string) (any, error) {
	if outer := s.state.currentCreatingBean(); outer != "" {
		s.f.registry.registerDependentBean(s.f.canonical(name), outer)
	}
	return s.f.doGetBean(s.state, name, nil, nil)
}

func (s *supplierFactory) GetBeanOfType(typ reflect.Type) (any, error) {
	beanName, err := s.f.resolveNamedBean(s.state, typ)
	if err != nil {
		return nil, err
	}
	return s.GetBean(beanName)
}

// instantiateDefault 无构造函数的结构体实例化（reflect.New）。
func (f *Factory) instantiateDefault(name string, md *mergedDefinition) (any, error) {
	typ := md.resolvedTargetType
	if typ == nil {
		return nil, newDefinitionError(name, "无法确定目标类型")
	}
	switch typ.Kind() {
	case reflect.Ptr:
		if typ.Elem().Kind() != reflect.Struct {
			return nil, newDefinitionError(name, "目标类型 %v 无法直接实例化", typ)
		}
		return reflect.New(typ.Elem()).Interface(), nil
	case reflect.Struct:
		return reflect.New(typ).Interface(), nil
	default:
		return nil, newDefinitionError(name,
			"目标类型 %v 需要构造函数、工厂方法或实例提供者", typ)
	}
}

// applyLookupOverrides 将 func 字段替换为委托 GetBean 的闭包。
func (f *Factory) applyLookupOverrides(name string, md *mergedDefinition, instance any) error {
	if len(md.LookupOverrides) == 0 {
		return nil
	}
	v := reflect.ValueOf(instance)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return newDefinitionError(name, "lookup 覆盖要求结构体指针实例")
	}
	elem := v.Elem()
	for _, ov := range md.LookupOverrides {
		field := elem.FieldByName(ov.Field)
		fieldType := field.Type()
		if fieldType.NumIn() != 0 || fieldType.NumOut() < 1 || fieldType.NumOut() > 2 {
			return newDefinitionError(name,
				"lookup 字段 '%s' 的签名必须是 func() T 或 func() (T, error)", ov.Field)
		}
		beanName := ov.BeanName
		wantErr := fieldType.NumOut() == 2
		outType := fieldType.Out(0)
		fn := reflect.MakeFunc(fieldType, func(_ []reflect.Value) []reflect.Value {
			result, err := f.GetBean(beanName)
			var outVal reflect.Value
			if err == nil {
				outVal = reflect.ValueOf(result)
				if !outVal.Type().AssignableTo(outType) {
					err = &WrongTypeError{Name: beanName, Required: outType, Actual: outVal.Type()}
				}
			}
			if err != nil {
				outVal = reflect.Zero(outType)
			}
			if !wantErr {
				if err != nil {
					panic(err)
				}
				return []reflect.Value{outVal}
			}
			errVal := reflect.Zero(errorType)
			if err != nil {
				errVal = reflect.ValueOf(err)
			}
			return []reflect.Value{outVal, errVal}
		})
		field.Set(fn)
	}
	return nil
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// initializeBean 初始化链：感知注入 → 初始化前处理器 → 声明的
// 初始化回调 → 初始化后处理器。
func (f *Factory) initializeBean(state *resolutionState, name string, instance any, md *mergedDefinition) (any, error) {
	f.invokeAware(name, instance)

	current, err := f.ApplyBeanPostProcessorsBeforeInitialization(instance, name)
	if err != nil {
		return nil, err
	}

	if err := f.invokeInitMethods(name, current, md); err != nil {
		return nil, err
	}

	current, err = f.ApplyBeanPostProcessorsAfterInitialization(current, name)
	if err != nil {
		return nil, err
	}
	return current, nil
}

func (f *Factory) invokeAware(name string, instance any) {
	if aware, ok := instance.(NameAware); ok {
		aware.SetBeanName(name)
	}
	if aware, ok := instance.(FactoryAware); ok {
		aware.SetBeanFactory(f)
	}
}

// invokeInitMethods 声明式初始化：Initializing 能力接口先行，
// 随后是与之不同名、且未被外部接管的显式初始化方法。
// 显式方法可无参或接受一个 bool（传入 true）。
func (f *Factory) invokeInitMethods(name string, instance any, md *mergedDefinition) error {
	isInitializing := false
	if ib, ok := instance.(Initializing); ok {
		isInitializing = true
		if md == nil || !md.isExternallyManagedInit("AfterPropertiesSet") {
			if err := ib.AfterPropertiesSet(); err != nil {
				return newCreationError(name, "AfterPropertiesSet 失败", err)
			}
		}
	}
	if md == nil || md.InitMethodName == "" {
		return nil
	}
	if isInitializing && md.InitMethodName == "AfterPropertiesSet" {
		return nil
	}
	if md.isExternallyManagedInit(md.InitMethodName) {
		return nil
	}
	return invokeNamedInitMethod(name, instance, md.InitMethodName)
}

func invokeNamedInitMethod(name string, instance any, methodName string) error {
	m := reflect.ValueOf(instance).MethodByName(methodName)
	if !m.IsValid() {
		return newDefinitionError(name, "初始化方法 '%s' 不存在", methodName)
	}
	mt := m.Type()
	var in []reflect.Value
	switch mt.NumIn() {
	case 0:
	case 1:
		if mt.In(0).Kind() != reflect.Bool {
			return newDefinitionError(name, "初始化方法 '%s' 的单参数必须是 bool", methodName)
		}
		in = []reflect.Value{reflect.ValueOf(true)}
	default:
		return newDefinitionError(name, "初始化方法 '%s' 的参数过多", methodName)
	}
	out := m.Call(in)
	if len(out) > 0 && out[len(out)-1].Type().Implements(errorType) && !out[len(out)-1].IsNil() {
		return newCreationError(name, fmt.Sprintf("初始化方法 '%s' 失败", methodName),
			out[len(out)-1].Interface().(error))
	}
	return nil
}

// ApplyBeanPostProcessorsBeforeInitialization 初始化前处理器链。
// 处理器返回 nil 时沿用当前实例。
func (f *Factory) ApplyBeanPostProcessorsBeforeInitialization(instance any, name string) (any, error) {
	current := instance
	for _, pp := range f.pipeline.beforeInitProcessors() {
		out, err := pp.PostProcessBeforeInitialization(current, name)
		if err != nil {
			return nil, &PostProcessingError{Name: name, Phase: "before-init", Err: err}
		}
		if out != nil {
			current = out
		}
	}
	return current, nil
}

// ApplyBeanPostProcessorsAfterInitialization 初始化后处理器链。
// 处理器返回 nil 则短路余下的链。
func (f *Factory) ApplyBeanPostProcessorsAfterInitialization(instance any, name string) (any, error) {
	current := instance
	for _, pp := range f.pipeline.afterInitProcessors() {
		out, err := pp.PostProcessAfterInitialization(current, name)
		if err != nil {
			return nil, &PostProcessingError{Name: name, Phase: "after-init", Err: err}
		}
		if out == nil {
			return current, nil
		}
		current = out
	}
	return current, nil
}

// registerDisposableBeanIfNecessary 单例登记销毁适配器；自定义作用域
// 注册销毁回调；prototype 不登记。
func (f *Factory) registerDisposableBeanIfNecessary(name string, instance any, md *mergedDefinition) {
	if md.IsPrototype() {
		return
	}
	adapter := newDisposableAdapter(name, instance, md, f.pipeline.destructionAwareProcessors(), f.logger)
	if adapter == nil {
		return
	}
	if md.IsSingleton() {
		f.registry.registerDisposableBean(name, adapter)
		return
	}
	if handler, ok := f.getScope(md.Scope); ok {
		handler.RegisterDestructionCallback(name, adapter.destroy)
	}
}

// invokeBeanFunction 调用构造/工厂函数：末尾 error 返回值被检查，
// 首个返回值作为实例。
func invokeBeanFunction(name string, fn reflect.Value, args []reflect.Value) (any, error) {
	out := fn.Call(args)
	if len(out) == 0 {
		return nil, newCreationError(name, "构造函数没有返回值", nil)
	}
	if len(out) > 1 {
		last := out[len(out)-1]
		if last.Type().Implements(errorType) {
			if !last.IsNil() {
				return nil, newCreationError(name, "构造函数返回错误", last.Interface().(error))
			}
		}
	}
	first := out[0]
	if (first.Kind() == reflect.Ptr || first.Kind() == reflect.Interface) && first.IsNil() {
		return nil, newCreationError(name, "构造函数返回 nil 实例", nil)
	}
	return first.Interface(), nil
}

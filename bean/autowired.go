package bean

import (
	"fmt"
	"reflect"
)

// statefulPropertiesProcessor 包内的状态感知属性钩子：注解驱动注入
// 需要沿用当前解析状态（prototype 重入检测、依赖边登记）。
// 外部处理器实现公开的 InstantiationAware 即可。
type statefulPropertiesProcessor interface {
	postProcessPropertiesStateful(state *resolutionState, pvs *PropertyValues, instance any, name string, md *mergedDefinition) (*PropertyValues, error)
}

// AutowiredProcessor 注解驱动注入处理器：扫描 inject/lookup 标签与
// Inject 前缀方法，在属性填充阶段重放注入点。
type AutowiredProcessor struct {
	factory *Factory
	scanner *metadataScanner
}

// RegisterConstructor 登记某类型的候选构造函数（required 候选优先）。
func (p *AutowiredProcessor) RegisterConstructor(fn any, required bool) error {
	return p.scanner.RegisterConstructor(fn, required)
}

// PostProcessMergedDefinition 登记注入点与 lookup 覆盖到合并定义。
func (p *AutowiredProcessor) PostProcessMergedDefinition(view *MergedView, typ reflect.Type, name string) {
	if typ == nil {
		return
	}
	meta := p.scanner.injectionMetadataFor(typ)
	for _, elem := range meta.elements {
		view.RegisterExternallyManagedMember(elem.identifier(typ))
	}
	def := view.Definition()
	for _, ov := range lookupOverridesFor(typ) {
		exists := false
		for _, have := range def.LookupOverrides {
			if have.Field == ov.Field {
				exists = true
				break
			}
		}
		if !exists {
			def.LookupOverrides = append(def.LookupOverrides, ov)
		}
	}
}

// PostProcessBeforeInstantiation 不短路。
func (p *AutowiredProcessor) PostProcessBeforeInstantiation(typ reflect.Type, name string) (any, error) {
	return nil, nil
}

// PostProcessAfterInstantiation 不否决填充。
func (p *AutowiredProcessor) PostProcessAfterInstantiation(instance any, name string) (bool, error) {
	return true, nil
}

// PostProcessProperties 公开入口：独立状态执行注入。
func (p *AutowiredProcessor) PostProcessProperties(pvs *PropertyValues, instance any, name string) (*PropertyValues, error) {
	return p.postProcessPropertiesStateful(newResolutionState(), pvs, instance, name, nil)
}

func (p *AutowiredProcessor) postProcessPropertiesStateful(state *resolutionState, pvs *PropertyValues, instance any, name string, md *mergedDefinition) (*PropertyValues, error) {
	typ := reflect.TypeOf(instance)
	meta := p.scanner.injectionMetadataFor(typ)
	for _, elem := range meta.elements {
		if err := p.injectElement(state, elem, instance, name); err != nil {
			return nil, err
		}
	}
	return pvs, nil
}

// injectElement 重放一个注入点。首次成功解析后缓存捷径描述符。
func (p *AutowiredProcessor) injectElement(state *resolutionState, elem *injectedElement, instance any, beanName string) error {
	switch elem.kind {
	case fieldElement:
		return p.injectField(state, elem, instance, beanName)
	case methodElement:
		return p.injectMethod(state, elem, instance, beanName)
	}
	return nil
}

func (p *AutowiredProcessor) injectField(state *resolutionState, elem *injectedElement, instance any, beanName string) error {
	v := reflect.ValueOf(instance)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return newCreationError(beanName, "字段注入要求结构体指针实例", nil)
	}
	field := v.Elem().FieldByIndex(elem.fieldIndex)

	var dep any
	var err error
	var autowiredNames []string

	if elem.beanName != "" {
		dep, err = p.factory.doGetBean(state, elem.beanName, elem.fieldType, nil)
		if err == nil {
			autowiredNames = []string{p.factory.canonical(elem.beanName)}
		}
	} else {
		elem.mu.Lock()
		desc := elem.shortcut
		if desc == nil {
			desc = &DependencyDescriptor{
				Type:     elem.fieldType,
				Name:     decapitalize(elem.fieldName),
				Required: elem.required,
				Eager:    true,
			}
			elem.shortcut = desc
		}
		elem.mu.Unlock()
		dep, err = p.factory.resolveDependency(state, desc, beanName, &autowiredNames)
	}
	if err != nil {
		if !elem.required {
			return nil
		}
		return &UnsatisfiedDependencyError{
			Name:           beanName,
			InjectionPoint: fmt.Sprintf("字段 %s (%v)", elem.fieldName, elem.fieldType),
			Err:            err,
		}
	}
	if dep == nil {
		if elem.required {
			return &UnsatisfiedDependencyError{
				Name:           beanName,
				InjectionPoint: fmt.Sprintf("字段 %s (%v)", elem.fieldName, elem.fieldType),
				Err:            &NotFoundError{Type: elem.fieldType},
			}
		}
		return nil
	}

	converted, err := p.factory.converter.Convert(dep, elem.fieldType)
	if err != nil {
		return newCreationError(beanName,
			fmt.Sprintf("字段 %s 注入值转换失败", elem.fieldName), err)
	}
	field.Set(converted)

	for _, dn := range autowiredNames {
		p.factory.registry.registerDependentBean(dn, beanName)
	}
	return nil
}

func (p *AutowiredProcessor) injectMethod(state *resolutionState, elem *injectedElement, instance any, beanName string) error {
	m := reflect.ValueOf(instance).MethodByName(elem.method.Name)
	if !m.IsValid() {
		return nil
	}
	mt := m.Type()
	args := make([]reflect.Value, mt.NumIn())
	var autowiredNames []string
	for i := 0; i < mt.NumIn(); i++ {
		paramType := mt.In(i)
		desc := &DependencyDescriptor{Type: paramType, Required: elem.required, Eager: true}
		dep, err := p.factory.resolveDependency(state, desc, beanName, &autowiredNames)
		if err != nil {
			return &UnsatisfiedDependencyError{
				Name:           beanName,
				InjectionPoint: fmt.Sprintf("方法 %s 参数 %d (%v)", elem.method.Name, i, paramType),
				Err:            err,
			}
		}
		if dep == nil {
			args[i] = reflect.Zero(paramType)
		} else {
			args[i] = reflect.ValueOf(dep)
		}
	}
	out := m.Call(args)
	if len(out) > 0 && out[len(out)-1].Type().Implements(errorType) && !out[len(out)-1].IsNil() {
		return newCreationError(beanName,
			fmt.Sprintf("注入方法 %s 失败", elem.method.Name),
			out[len(out)-1].Interface().(error))
	}
	for _, dn := range autowiredNames {
		p.factory.registry.registerDependentBean(dn, beanName)
	}
	return nil
}

// PostProcessProperties 之外的 SmartInstantiationAware 能力。

// DetermineCandidateConstructors 从登记表提名候选构造函数。
func (p *AutowiredProcessor) DetermineCandidateConstructors(typ reflect.Type, name string) ([]any, error) {
	if typ == nil {
		return nil, nil
	}
	return p.scanner.candidateConstructors(typ), nil
}

// GetEarlyBeanReference 原样暴露。
func (p *AutowiredProcessor) GetEarlyBeanReference(instance any, name string) (any, error) {
	return instance, nil
}

// PredictBeanType 不预测。
func (p *AutowiredProcessor) PredictBeanType(typ reflect.Type, name string) reflect.Type {
	return nil
}

// LifecycleProcessor 生命周期回调处理器：PostConstruct 在初始化前
// 阶段触发，PreDestroy 在销毁前阶段触发。
type LifecycleProcessor struct {
	scanner *metadataScanner
}

// PostProcessMergedDefinition 登记扫描出的回调为外部接管，
// 抑制与显式声明的 init/destroy 方法的重复调用。
func (p *LifecycleProcessor) PostProcessMergedDefinition(view *MergedView, typ reflect.Type, name string) {
	if typ == nil {
		return
	}
	meta := p.scanner.lifecycleMetadataFor(typ)
	for _, elem := range meta.initElements {
		view.RegisterExternallyManagedInit(elem.identifier)
	}
	for _, elem := range meta.destroyElements {
		view.RegisterExternallyManagedInit(elem.identifier)
	}
}

// PostProcessBeforeInitialization 触发初始化回调（父级优先）。
func (p *LifecycleProcessor) PostProcessBeforeInitialization(instance any, name string) (any, error) {
	meta := p.scanner.lifecycleMetadataFor(reflect.TypeOf(instance))
	for _, elem := range meta.initElements {
		if err := invokeLifecycleElement(instance, elem); err != nil {
			return nil, newCreationError(name,
				fmt.Sprintf("初始化回调 %s 失败", elem.identifier), err)
		}
	}
	return instance, nil
}

// PostProcessBeforeDestruction 触发销毁回调。
func (p *LifecycleProcessor) PostProcessBeforeDestruction(instance any, name string) error {
	meta := p.scanner.lifecycleMetadataFor(reflect.TypeOf(instance))
	for _, elem := range meta.destroyElements {
		if err := invokeLifecycleElement(instance, elem); err != nil {
			return err
		}
	}
	return nil
}

// RequiresDestruction 有销毁回调即需要销毁。
func (p *LifecycleProcessor) RequiresDestruction(instance any) bool {
	meta := p.scanner.lifecycleMetadataFor(reflect.TypeOf(instance))
	return len(meta.destroyElements) > 0
}

package bean

import (
	"fmt"
	"reflect"
)

// populateBean 属性填充：处理器否决 → by-name/by-type 自动装配 →
// postProcessProperties 钩子 → 依赖检查 → 应用属性值。
func (f *Factory) populateBean(state *resolutionState, name string, md *mergedDefinition, instance any) error {
	// 处理器要求跳过填充
	for _, pp := range f.pipeline.instantiationAwareProcessors() {
		cont, err := pp.PostProcessAfterInstantiation(instance, name)
		if err != nil {
			return &PostProcessingError{Name: name, Phase: "after-instantiation", Err: err}
		}
		if !cont {
			return nil
		}
	}

	pvs := md.PropertyValues.clone()
	if pvs == nil {
		pvs = NewPropertyValues()
	}

	switch md.AutowireMode {
	case AutowireByName:
		if err := f.autowireByName(state, name, md, instance, pvs); err != nil {
			return err
		}
	case AutowireByType:
		if err := f.autowireByType(state, name, md, instance, pvs); err != nil {
			return err
		}
	}

	// 注解驱动的字段/方法注入经由该钩子执行；包内处理器
	// 走状态感知路径以沿用本次解析的环境
	for _, pp := range f.pipeline.instantiationAwareProcessors() {
		if sp, ok := pp.(statefulPropertiesProcessor); ok {
			out, err := sp.postProcessPropertiesStateful(state, pvs, instance, name, md)
			if err != nil {
				return err
			}
			if out != nil {
				pvs = out
			}
			continue
		}
		out, err := pp.PostProcessProperties(pvs, instance, name)
		if err != nil {
			return &PostProcessingError{Name: name, Phase: "post-process-properties", Err: err}
		}
		if out != nil {
			pvs = out
		}
	}

	if md.DependencyCheck != DependencyCheckNone {
		if err := f.checkDependencies(name, md, instance, pvs); err != nil {
			return err
		}
	}

	return f.applyPropertyValues(state, name, instance, pvs)
}

// unsatisfiedNonSimpleProperties 尚未提供值的非简单类型可写属性。
func unsatisfiedNonSimpleProperties(instance any, pvs *PropertyValues) []reflect.StructField {
	elem := reflect.ValueOf(instance)
	if elem.Kind() != reflect.Ptr || elem.Elem().Kind() != reflect.Struct {
		return nil
	}
	st := elem.Elem().Type()
	var out []reflect.StructField
	for i := 0; i < st.NumField(); i++ {
		field := st.Field(i)
		if field.PkgPath != "" || field.Anonymous {
			continue
		}
		if pvs.Contains(field.Name) {
			continue
		}
		if isSimpleType(field.Type) {
			continue
		}
		out = append(out, field)
	}
	return out
}

// autowireByName 为每个未满足的非简单属性查找与属性同名的 bean。
// 属性名按首字母小写转为 bean 逻辑名。
func (f *Factory) autowireByName(state *resolutionState, name string, md *mergedDefinition, instance any, pvs *PropertyValues) error {
	for _, field := range unsatisfiedNonSimpleProperties(instance, pvs) {
		propName := decapitalize(field.Name)
		if !f.ContainsBean(propName) {
			continue
		}
		dep, err := f.doGetBean(state, propName, nil, nil)
		if err != nil {
			return &UnsatisfiedDependencyError{
				Name:           name,
				InjectionPoint: fmt.Sprintf("属性 %s", field.Name),
				Err:            err,
			}
		}
		pvs.Add(field.Name, dep)
		f.registry.registerDependentBean(f.canonical(propName), name)
	}
	return nil
}

// autowireByType 为每个未满足的非简单属性按类型解析依赖。
// 描述符标记为非急切，避免过早实例化 FactoryBean。
func (f *Factory) autowireByType(state *resolutionState, name string, md *mergedDefinition, instance any, pvs *PropertyValues) error {
	for _, field := range unsatisfiedNonSimpleProperties(instance, pvs) {
		desc := &DependencyDescriptor{
			Type:     field.Type,
			Name:     decapitalize(field.Name),
			Required: false,
			Eager:    false,
		}
		var autowiredNames []string
		dep, err := f.resolveDependency(state, desc, name, &autowiredNames)
		if err != nil {
			return &UnsatisfiedDependencyError{
				Name:           name,
				InjectionPoint: fmt.Sprintf("属性 %s", field.Name),
				Err:            err,
			}
		}
		if dep == nil {
			continue
		}
		pvs.Add(field.Name, dep)
		for _, dn := range autowiredNames {
			f.registry.registerDependentBean(dn, name)
		}
	}
	return nil
}

// checkDependencies 校验每个可写属性要么已提供值要么标记为可选。
func (f *Factory) checkDependencies(name string, md *mergedDefinition, instance any, pvs *PropertyValues) error {
	elem := reflect.ValueOf(instance)
	if elem.Kind() != reflect.Ptr || elem.Elem().Kind() != reflect.Struct {
		return nil
	}
	st := elem.Elem().Type()
	for i := 0; i < st.NumField(); i++ {
		field := st.Field(i)
		if field.PkgPath != "" || field.Anonymous {
			continue
		}
		simple := isSimpleType(field.Type)
		switch md.DependencyCheck {
		case DependencyCheckSimple:
			if !simple {
				continue
			}
		case DependencyCheckObjects:
			if simple {
				continue
			}
		}
		if !pvs.Contains(field.Name) {
			return &UnsatisfiedDependencyError{
				Name:           name,
				InjectionPoint: fmt.Sprintf("属性 %s", field.Name),
				Err:            fmt.Errorf("依赖检查: 属性未提供值"),
			}
		}
	}
	return nil
}

// applyPropertyValues 应用属性值：解析引用、转换类型、反射写入。
func (f *Factory) applyPropertyValues(state *resolutionState, name string, instance any, pvs *PropertyValues) error {
	if pvs.Len() == 0 {
		return nil
	}
	elem := reflect.ValueOf(instance)
	if elem.Kind() != reflect.Ptr || elem.Elem().Kind() != reflect.Struct {
		return newCreationError(name, "属性填充要求结构体指针实例", nil)
	}
	structVal := elem.Elem()
	structType := structVal.Type()

	for _, pv := range pvs.Values() {
		field, ok := structType.FieldByName(pv.Name)
		if !ok {
			if pv.Optional {
				continue
			}
			return newCreationError(name, fmt.Sprintf("属性 '%s' 在 %v 上不存在", pv.Name, structType), nil)
		}
		if field.PkgPath != "" {
			return newCreationError(name, fmt.Sprintf("属性 '%s' 不是导出字段", pv.Name), nil)
		}

		value := pv.Value
		if ref, ok := value.(Ref); ok {
			dep, err := f.doGetBean(state, ref.Name, nil, nil)
			if err != nil {
				return &UnsatisfiedDependencyError{
					Name:           name,
					InjectionPoint: fmt.Sprintf("属性 %s", pv.Name),
					Err:            err,
				}
			}
			f.registry.registerDependentBean(f.canonical(ref.Name), name)
			value = dep
		}
		if tv, ok := value.(TypedValue); ok {
			value = tv.Value
		}

		converted, err := f.converter.Convert(value, field.Type)
		if err != nil {
			return newCreationError(name,
				fmt.Sprintf("属性 '%s' 转换到 %v 失败", pv.Name, field.Type), err)
		}
		structVal.FieldByIndex(field.Index).Set(converted)
	}
	return nil
}

// decapitalize 首字母小写，字段名转 bean 逻辑名。
func decapitalize(s string) string {
	if s == "" {
		return s
	}
	b := []rune(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] = b[0] - 'A' + 'a'
	}
	return string(b)
}

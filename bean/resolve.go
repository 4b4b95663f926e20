package bean

import (
	"fmt"
	"math"
	"reflect"
)

// resolveDependency 按类型解析依赖（§依赖解析）：捷径 > 容器类型
// 收集 > 候选枚举 > 限定符过滤 > primary/优先级/参数名消歧。
// 选中的名称追加到 autowiredNames，供调用方登记依赖边。
func (f *Factory) resolveDependency(state *resolutionState, desc *DependencyDescriptor, requestingBean string, autowiredNames *[]string) (any, error) {
	prev := state.setInjectionPoint(desc)
	defer state.setInjectionPoint(prev)

	// 捷径：缓存的已解析名称直接查找
	if desc.shortcut != "" {
		instance, err := f.doGetBean(state, desc.shortcut, desc.Type, nil)
		if err == nil {
			if autowiredNames != nil {
				*autowiredNames = append(*autowiredNames, desc.shortcut)
			}
			return instance, nil
		}
		// 捷径失效则回落到完整解析
		desc.shortcut = ""
	}

	if multi, done, err := f.resolveMultipleBeans(state, desc, autowiredNames); done {
		return multi, err
	}

	candidates := f.findAutowireCandidates(desc)
	if len(candidates) == 0 {
		if desc.Required {
			return nil, &NotFoundError{Type: desc.Type}
		}
		return nil, nil
	}

	chosen := ""
	if len(candidates) == 1 {
		chosen = candidates[0]
	} else {
		chosen = f.determineAutowireCandidate(candidates, desc)
		if chosen == "" {
			if !desc.Required {
				return nil, nil
			}
			return nil, &NotUniqueError{Type: desc.Type, Candidates: candidates}
		}
	}

	instance, err := f.doGetBean(state, chosen, nil, nil)
	if err != nil {
		return nil, err
	}
	if autowiredNames != nil {
		*autowiredNames = append(*autowiredNames, chosen)
	}
	desc.shortcut = chosen
	return instance, nil
}

// resolveMultipleBeans 容器类型的收集语义：切片收集全部候选（数组类型不收集），
// map[string]T 以 bean 名称为键。done=false 表示非容器类型。
func (f *Factory) resolveMultipleBeans(state *resolutionState, desc *DependencyDescriptor, autowiredNames *[]string) (any, bool, error) {
	t := desc.Type
	switch t.Kind() {
	case reflect.Slice:
		elemType := t.Elem()
		if elemType.Kind() == reflect.Uint8 {
			return nil, false, nil // []byte 是值类型
		}
		elemDesc := &DependencyDescriptor{Type: elemType, Eager: desc.Eager}
		names := f.findAutowireCandidates(elemDesc)
		if len(names) == 0 {
			if desc.Required && !desc.Fallback {
				return nil, true, &NotFoundError{Type: t}
			}
			if desc.Fallback {
				return reflect.MakeSlice(t, 0, 0).Interface(), true, nil
			}
			return nil, true, nil
		}
		out := reflect.MakeSlice(t, 0, len(names))
		for _, n := range names {
			instance, err := f.doGetBean(state, n, nil, nil)
			if err != nil {
				return nil, true, err
			}
			out = reflect.Append(out, reflect.ValueOf(instance))
			if autowiredNames != nil {
				*autowiredNames = append(*autowiredNames, n)
			}
		}
		return out.Interface(), true, nil

	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return nil, false, nil
		}
		elemType := t.Elem()
		elemDesc := &DependencyDescriptor{Type: elemType, Eager: desc.Eager}
		names := f.findAutowireCandidates(elemDesc)
		if len(names) == 0 {
			if desc.Required && !desc.Fallback {
				return nil, true, &NotFoundError{Type: t}
			}
			if desc.Fallback {
				return reflect.MakeMapWithSize(t, 0).Interface(), true, nil
			}
			return nil, true, nil
		}
		out := reflect.MakeMapWithSize(t, len(names))
		for _, n := range names {
			instance, err := f.doGetBean(state, n, nil, nil)
			if err != nil {
				return nil, true, err
			}
			out.SetMapIndex(reflect.ValueOf(n), reflect.ValueOf(instance))
			if autowiredNames != nil {
				*autowiredNames = append(*autowiredNames, n)
			}
		}
		return out.Interface(), true, nil
	}
	return nil, false, nil
}

// findAutowireCandidates 可赋值到描述符类型的候选名称，
// 经限定符过滤。
func (f *Factory) findAutowireCandidates(desc *DependencyDescriptor) []string {
	names := f.GetBeanNamesForType(desc.Type, true, desc.Eager)
	if desc.Qualifier == "" {
		return names
	}
	var out []string
	for _, n := range names {
		if f.matchesQualifier(n, desc.Qualifier) {
			out = append(out, n)
		}
	}
	return out
}

// matchesQualifier 候选带同值限定符，或 bean 名称/别名与限定符相等。
func (f *Factory) matchesQualifier(name, qualifier string) bool {
	beanName := f.canonical(name)
	if beanName == qualifier || transformedBeanName(name) == qualifier {
		return true
	}
	for _, alias := range f.GetAliases(beanName) {
		if alias == qualifier {
			return true
		}
	}
	if md, err := f.getMergedDefinition(beanName); err == nil {
		if v, ok := md.Qualifiers["qualifier"]; ok && v == qualifier {
			return true
		}
	}
	return false
}

// determineAutowireCandidate 多候选消歧：primary > 最高优先级 >
// 参数/字段名匹配。无法唯一确定返回空串。
func (f *Factory) determineAutowireCandidate(candidates []string, desc *DependencyDescriptor) string {
	// primary 标记
	primary := ""
	for _, n := range candidates {
		md, err := f.getMergedDefinition(f.canonical(n))
		if err != nil {
			continue
		}
		if md.Primary {
			if primary != "" {
				return "" // 多个 primary 一样无法唯一
			}
			primary = n
		}
	}
	if primary != "" {
		return primary
	}

	// 最高优先级（数值最小）
	best := ""
	bestPriority := math.MaxInt
	conflict := false
	for _, n := range candidates {
		md, err := f.getMergedDefinition(f.canonical(n))
		if err != nil || md.Priority == nil {
			continue
		}
		switch {
		case *md.Priority < bestPriority:
			best = n
			bestPriority = *md.Priority
			conflict = false
		case *md.Priority == bestPriority:
			conflict = true
		}
	}
	if best != "" && !conflict {
		return best
	}

	// 参数/字段名匹配
	if desc.Name != "" {
		for _, n := range candidates {
			if f.canonical(n) == desc.Name || transformedBeanName(n) == desc.Name {
				return n
			}
			for _, alias := range f.GetAliases(f.canonical(n)) {
				if alias == desc.Name {
					return n
				}
			}
		}
	}
	return ""
}

// resolveNamedBean 按类型确定唯一 bean 名称（GetBeanOfType 驱动）。
func (f *Factory) resolveNamedBean(state *resolutionState, typ reflect.Type) (string, error) {
	candidates := f.GetBeanNamesForType(typ, true, true)
	if len(candidates) == 0 {
		if f.parent != nil {
			return f.parent.resolveNamedBean(state, typ)
		}
		return "", &NotFoundError{Type: typ}
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}
	chosen := f.determineAutowireCandidate(candidates, &DependencyDescriptor{Type: typ})
	if chosen == "" {
		return "", &NotUniqueError{Type: typ, Candidates: candidates}
	}
	return chosen, nil
}

// describeInjectionPoint 解析期间的当前注入点描述（调试/特定查找用）。
func (f *Factory) describeInjectionPoint(state *resolutionState) string {
	if state.injectionPoint == nil {
		return ""
	}
	return fmt.Sprintf("%v", state.injectionPoint)
}

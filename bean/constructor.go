package bean

import (
	"fmt"
	"math"
	"reflect"
	"runtime"
	"sort"
	"strings"
	"unicode"
)

// 原始参数权重的偏移：原始匹配在并列时优先。
const rawWeightBias = 1024

// ctorCandidate 一个候选构造函数/工厂方法。
type ctorCandidate struct {
	fn         reflect.Value
	typ        reflect.Type
	exported   bool
	paramNames []string
}

// argumentsHolder 为某个候选构建出的参数组。
type argumentsHolder struct {
	args     []reflect.Value // 完全转换后的参数
	rawArgs  []reflect.Value // 转换前的参数
	prepared []any           // 重放数组：原始值或 autowiredMarker
	// autowiredNames 本候选解析到的依赖 bean 名称
	autowiredNames []string
	// resolveNecessary 预备数组是否包含需要重放解析的条目
	resolveNecessary bool
}

// autowireConstructor 构造函数解析（§候选排序、参数装配、类型差异
// 权重、宽松/严格消歧），获胜者与参数在定义锁下缓存。
func (f *Factory) autowireConstructor(state *resolutionState, name string, md *mergedDefinition, rawCandidates []any, explicitArgs []any) (any, error) {
	candidates, err := f.buildCandidates(name, md, rawCandidates)
	if err != nil {
		return nil, err
	}
	sortCandidates(candidates)

	declaredArgs := md.ConstructorArgs
	minArgs := declaredArgs.Count()
	if explicitArgs != nil {
		minArgs = len(explicitArgs)
	}

	var (
		winner        *ctorCandidate
		winnerArgs    *argumentsHolder
		minWeight     = math.MaxInt
		ambiguous     []*ctorCandidate
		firstArgError error
	)

	for i := range candidates {
		cand := &candidates[i]
		numIn := cand.fn.Type().NumIn()
		if numIn < minArgs {
			continue
		}
		if winner != nil && len(winnerArgs.args) > numIn {
			// 候选按参数个数降序；已有获胜者且参数更多时不会更优
			break
		}

		holder, err := f.buildArguments(state, name, md, cand, declaredArgs, explicitArgs)
		if err != nil {
			if firstArgError == nil {
				firstArgError = err
			}
			continue
		}

		weight := candidateWeight(!md.Strict, cand, holder)
		if weight < minWeight {
			winner = cand
			winnerArgs = holder
			minWeight = weight
			ambiguous = nil
		} else if winner != nil && weight == minWeight {
			ambiguous = append(ambiguous, cand)
		}
	}

	if winner == nil {
		if firstArgError != nil {
			return nil, firstArgError
		}
		return nil, newDefinitionError(name, "没有匹配的构造函数 (最少 %d 个参数)", minArgs)
	}
	if md.Strict && len(ambiguous) > 0 {
		return nil, newDefinitionError(name,
			"严格模式下构造函数歧义: %d 个候选在最低权重并列", len(ambiguous)+1)
	}

	// 获胜者的依赖边登记
	for _, dep := range winnerArgs.autowiredNames {
		f.registry.registerDependentBean(dep, name)
	}

	// 显式参数不缓存
	if explicitArgs == nil {
		md.ctorLock.Lock()
		md.resolvedConstructorOrFactoryMethod = winner.fn
		md.constructorArgumentsResolved = true
		if winnerArgs.resolveNecessary {
			md.preparedConstructorArguments = winnerArgs.prepared
			md.resolvedConstructorArguments = nil
		} else {
			md.resolvedConstructorArguments = winnerArgs.args
			md.preparedConstructorArguments = nil
		}
		md.ctorLock.Unlock()
	}

	return invokeBeanFunction(name, winner.fn, winnerArgs.args)
}

// buildCandidates 将候选函数规范化并按非公开访问标志过滤。
func (f *Factory) buildCandidates(name string, md *mergedDefinition, raw []any) ([]ctorCandidate, error) {
	out := make([]ctorCandidate, 0, len(raw))
	for _, c := range raw {
		fn := reflect.ValueOf(c)
		if fn.Kind() != reflect.Func {
			return nil, newDefinitionError(name, "构造候选 %T 不是函数", c)
		}
		ft := fn.Type()
		if ft.NumOut() == 0 {
			return nil, newDefinitionError(name, "构造候选必须至少有一个返回值")
		}
		exported := isExportedFunc(fn)
		if !exported && !md.NonPublicAccess {
			continue
		}
		var names []string
		if f.discoverer != nil {
			names = f.discoverer.ParameterNames(fn)
		}
		out = append(out, ctorCandidate{fn: fn, typ: ft, exported: exported, paramNames: names})
	}
	if len(out) == 0 {
		return nil, newDefinitionError(name, "没有可访问的构造候选")
	}
	return out, nil
}

// isExportedFunc 按函数符号名最后一段判断导出性；匿名函数视为导出。
func isExportedFunc(fn reflect.Value) bool {
	pc := fn.Pointer()
	rf := runtime.FuncForPC(pc)
	if rf == nil {
		return true
	}
	full := rf.Name()
	// 反射方法值（reflect.Value.Method）只能取得导出方法
	if full == "reflect.methodValueCall" {
		return true
	}
	if idx := strings.LastIndex(full, "."); idx >= 0 {
		full = full[idx+1:]
	}
	if full == "" {
		return true
	}
	// funcN 形式的匿名函数视为导出
	if strings.HasPrefix(full, "func") {
		rest := strings.TrimPrefix(full, "func")
		allDigits := rest != ""
		for _, r := range rest {
			if !unicode.IsDigit(r) {
				allDigits = false
				break
			}
		}
		if allDigits {
			return true
		}
	}
	r := []rune(full)[0]
	if unicode.IsDigit(r) {
		return true
	}
	return unicode.IsUpper(r)
}

// sortCandidates 导出的在前；同组内参数多的在前。
func sortCandidates(candidates []ctorCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].exported != candidates[j].exported {
			return candidates[i].exported
		}
		return candidates[i].typ.NumIn() > candidates[j].typ.NumIn()
	})
}

// buildArguments 为候选构建参数组：索引值 > 类型/名称匹配的泛型值 >
// 类型自动装配。声明值经转换器转换到参数类型。
func (f *Factory) buildArguments(state *resolutionState, name string, md *mergedDefinition, cand *ctorCandidate, declared *ConstructorArgs, explicitArgs []any) (*argumentsHolder, error) {
	ft := cand.typ
	numIn := ft.NumIn()

	holder := &argumentsHolder{
		args:     make([]reflect.Value, numIn),
		rawArgs:  make([]reflect.Value, numIn),
		prepared: make([]any, numIn),
	}

	if explicitArgs != nil {
		if len(explicitArgs) != numIn {
			return nil, newDefinitionError(name, "显式参数个数 %d 与候选参数个数 %d 不符",
				len(explicitArgs), numIn)
		}
		for i := 0; i < numIn; i++ {
			converted, err := f.converter.Convert(explicitArgs[i], ft.In(i))
			if err != nil {
				return nil, newCreationError(name,
					fmt.Sprintf("显式参数 %d 转换失败", i), err)
			}
			holder.args[i] = converted
			holder.rawArgs[i] = reflect.ValueOf(explicitArgs[i])
			holder.prepared[i] = explicitArgs[i]
		}
		return holder, nil
	}

	used := make(map[*ValueHolder]bool)
	for i := 0; i < numIn; i++ {
		paramType := ft.In(i)
		paramName := ""
		if i < len(cand.paramNames) {
			paramName = cand.paramNames[i]
		}

		vh := declared.getIndexed(i)
		if vh == nil {
			vh = declared.getGeneric(paramType, paramName, used)
		}
		if vh != nil {
			used[vh] = true
			rawValue := vh.Value
			if ref, ok := rawValue.(Ref); ok {
				dep, err := f.doGetBean(state, ref.Name, nil, nil)
				if err != nil {
					return nil, &UnsatisfiedDependencyError{
						Name:           name,
						InjectionPoint: fmt.Sprintf("构造参数 %d (%v)", i, paramType),
						Err:            err,
					}
				}
				holder.autowiredNames = append(holder.autowiredNames, f.canonical(ref.Name))
				rawValue = dep
				holder.resolveNecessary = true
			}
			if tv, ok := rawValue.(TypedValue); ok {
				rawValue = tv.Value
			}
			converted, err := f.converter.Convert(rawValue, paramType)
			if err != nil {
				return nil, newCreationError(name,
					fmt.Sprintf("构造参数 %d 转换到 %v 失败", i, paramType), err)
			}
			holder.args[i] = converted
			if rawValue != nil {
				holder.rawArgs[i] = reflect.ValueOf(rawValue)
			} else {
				holder.rawArgs[i] = reflect.Zero(paramType)
			}
			holder.prepared[i] = vh.Value
			continue
		}

		// 无声明值：按类型自动装配
		desc := &DependencyDescriptor{
			Type:     paramType,
			Name:     paramName,
			Required: true,
			Eager:    true,
		}
		var autowiredNames []string
		dep, err := f.resolveDependency(state, desc, name, &autowiredNames)
		if err != nil {
			return nil, &UnsatisfiedDependencyError{
				Name:           name,
				InjectionPoint: fmt.Sprintf("构造参数 %d (%v)", i, paramType),
				Err:            err,
			}
		}
		holder.autowiredNames = append(holder.autowiredNames, autowiredNames...)
		if dep == nil {
			holder.args[i] = reflect.Zero(paramType)
			holder.rawArgs[i] = reflect.Zero(paramType)
		} else {
			converted, err := f.converter.Convert(dep, paramType)
			if err != nil {
				return nil, newCreationError(name,
					fmt.Sprintf("自动装配参数 %d 转换失败", i), err)
			}
			holder.args[i] = converted
			holder.rawArgs[i] = converted
		}
		holder.prepared[i] = autowiredMarker{required: true}
		holder.resolveNecessary = true
	}
	return holder, nil
}

// candidateWeight 类型差异权重。宽松模式同时对转换后与原始参数计权，
// 原始权重偏移 -1024 以在并列时胜出；严格模式仅做可赋值判定。
func candidateWeight(lenient bool, cand *ctorCandidate, holder *argumentsHolder) int {
	paramTypes := make([]reflect.Type, cand.typ.NumIn())
	for i := range paramTypes {
		paramTypes[i] = cand.typ.In(i)
	}
	if lenient {
		converted := typeDifferenceWeight(paramTypes, holder.args)
		raw := typeDifferenceWeight(paramTypes, holder.rawArgs)
		if raw != math.MaxInt {
			raw -= rawWeightBias
		}
		if raw < converted {
			return raw
		}
		return converted
	}
	// 严格：参数必须可赋值
	for i, pt := range paramTypes {
		a := holder.args[i]
		if !a.IsValid() {
			continue
		}
		if !a.Type().AssignableTo(pt) {
			return math.MaxInt
		}
	}
	return 0
}

// typeDifferenceWeight 精确匹配 0；可赋值 +2；可转换 +8；不可赋值为最大。
func typeDifferenceWeight(paramTypes []reflect.Type, args []reflect.Value) int {
	weight := 0
	for i, pt := range paramTypes {
		a := args[i]
		if !a.IsValid() {
			continue
		}
		at := a.Type()
		switch {
		case at == pt:
		case at.AssignableTo(pt):
			weight += 2
		case at.ConvertibleTo(pt):
			weight += 8
		default:
			return math.MaxInt
		}
	}
	return weight
}

// instantiateUsingCachedConstructor 重放缓存的解析结果：完全解析的
// 参数直接调用；预备参数数组先重放解析（自动装配槽位按类型重解析）。
func (f *Factory) instantiateUsingCachedConstructor(state *resolutionState, name string, md *mergedDefinition) (any, error) {
	md.ctorLock.Lock()
	fn := md.resolvedConstructorOrFactoryMethod
	md.ctorLock.Unlock()
	if !fn.IsValid() {
		return nil, newCreationError(name, "缓存的构造解析结果缺失", nil)
	}
	return f.replayCachedArguments(state, name, md, fn)
}

// replayCachedArguments 用给定函数重放缓存参数（工厂方法每次重新绑定实例）。
func (f *Factory) replayCachedArguments(state *resolutionState, name string, md *mergedDefinition, fn reflect.Value) (any, error) {
	md.ctorLock.Lock()
	resolvedArgs := md.resolvedConstructorArguments
	preparedArgs := md.preparedConstructorArguments
	md.ctorLock.Unlock()
	if resolvedArgs != nil {
		return invokeBeanFunction(name, fn, resolvedArgs)
	}

	ft := fn.Type()
	args := make([]reflect.Value, len(preparedArgs))
	for i, prepared := range preparedArgs {
		paramType := ft.In(i)
		switch pv := prepared.(type) {
		case autowiredMarker:
			desc := &DependencyDescriptor{Type: paramType, Required: pv.required, Eager: true}
			var autowiredNames []string
			dep, err := f.resolveDependency(state, desc, name, &autowiredNames)
			if err != nil {
				return nil, &UnsatisfiedDependencyError{
					Name:           name,
					InjectionPoint: fmt.Sprintf("构造参数 %d (%v)", i, paramType),
					Err:            err,
				}
			}
			for _, dn := range autowiredNames {
				f.registry.registerDependentBean(dn, name)
			}
			if dep == nil {
				args[i] = reflect.Zero(paramType)
			} else {
				args[i] = reflect.ValueOf(dep)
			}
		default:
			rawValue := prepared
			if ref, ok := rawValue.(Ref); ok {
				dep, err := f.doGetBean(state, ref.Name, nil, nil)
				if err != nil {
					return nil, err
				}
				rawValue = dep
			}
			if tv, ok := rawValue.(TypedValue); ok {
				rawValue = tv.Value
			}
			converted, err := f.converter.Convert(rawValue, paramType)
			if err != nil {
				return nil, newCreationError(name,
					fmt.Sprintf("构造参数 %d 重放转换失败", i), err)
			}
			args[i] = converted
		}
	}
	return invokeBeanFunction(name, fn, args)
}

// instantiateUsingFactoryMethod 工厂方法解析：命名的工厂 bean 先行
// 查找，其上的方法作为唯一候选走同一套参数装配与缓存。
// Go 没有静态方法；独立的包级工厂函数通过 Constructors 注册。
func (f *Factory) instantiateUsingFactoryMethod(state *resolutionState, name string, md *mergedDefinition, explicitArgs []any) (any, error) {
	if md.FactoryBeanName == "" {
		return nil, newDefinitionError(name,
			"工厂方法 '%s' 需要 FactoryBeanName；包级工厂函数请用 Constructors 注册",
			md.FactoryMethodName)
	}
	if md.FactoryBeanName == md.name {
		return nil, newDefinitionError(name, "工厂 bean 不能指向自身")
	}

	factoryInstance, err := f.doGetBean(state, md.FactoryBeanName, nil, nil)
	if err != nil {
		return nil, newCreationError(name,
			fmt.Sprintf("工厂 bean '%s' 查找失败", md.FactoryBeanName), err)
	}
	f.registry.registerDependentBean(f.canonical(md.FactoryBeanName), name)

	method := reflect.ValueOf(factoryInstance).MethodByName(md.FactoryMethodName)
	if !method.IsValid() {
		return nil, newDefinitionError(name, "工厂方法 '%s' 在 %T 上不存在",
			md.FactoryMethodName, factoryInstance)
	}
	if method.Type().NumOut() == 0 {
		return nil, newDefinitionError(name, "工厂方法 '%s' 必须有返回值", md.FactoryMethodName)
	}

	md.ctorLock.Lock()
	md.factoryMethodReturnType = method.Type().Out(0)
	resolved := md.constructorArgumentsResolved && explicitArgs == nil
	md.ctorLock.Unlock()
	if resolved {
		return f.replayCachedArguments(state, name, md, method)
	}

	return f.autowireConstructor(state, name, md, []any{method.Interface()}, explicitArgs)
}

// resolveFactoryMethodReturnType 预测工厂方法返回类型（不实例化工厂）。
func (f *Factory) resolveFactoryMethodReturnType(md *mergedDefinition) reflect.Type {
	md.ctorLock.Lock()
	cached := md.factoryMethodReturnType
	md.ctorLock.Unlock()
	if cached != nil {
		return cached
	}
	if md.FactoryBeanName == "" {
		return nil
	}
	factoryMd, err := f.getMergedDefinition(md.FactoryBeanName)
	if err != nil {
		return nil
	}
	factoryType := f.predictBeanType(md.FactoryBeanName, factoryMd)
	if factoryType == nil {
		return nil
	}
	m, ok := factoryType.MethodByName(md.FactoryMethodName)
	if !ok || m.Type.NumOut() == 0 {
		return nil
	}
	rt := m.Type.Out(0)
	md.ctorLock.Lock()
	md.factoryMethodReturnType = rt
	md.ctorLock.Unlock()
	return rt
}

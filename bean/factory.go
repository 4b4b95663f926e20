package bean

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/gocrud/beans/logging"
)

// Factory bean 工厂：公共查找 API 的实现者，也是解析层的定义注册表。
// 并行 goroutine 可以并发调用查找与注册 API；单个 bean 的创建在
// 调用方 goroutine 上顺序执行。
type Factory struct {
	registry *singletonRegistry

	defMu           sync.RWMutex
	definitions     map[string]*Definition
	definitionOrder []string

	// mergedDefinitions 合并定义缓存（put-if-absent 语义的并发 map）。
	mergedDefinitions sync.Map // string -> *mergedDefinition

	// alreadyCreated 至少创建过一次的 bean 名称。
	alreadyCreated sync.Map // string -> struct{}

	// factoryBeanObjectCache 单例 FactoryBean 产品缓存。
	factoryBeanObjectCache sync.Map // string -> any

	aliases *aliasRegistry

	scopeMu sync.RWMutex
	scopes  map[string]ScopeHandler

	pipeline  *postProcessorPipeline
	converter *TypeConverter
	scanner   *metadataScanner

	parent *Factory
	logger logging.Logger

	// allowCircularReferences 允许单例间经早期引用解环（默认允许）。
	allowCircularReferences bool

	// allowRawInjectionDespiteWrapping 初始化期间替换了已暴露的原始
	// 引用时，允许继续而不是报错（记录警告，不构成保证）。
	allowRawInjectionDespiteWrapping bool

	discoverer ParameterNameDiscoverer
}

// FactoryOption 工厂配置选项。
type FactoryOption func(*Factory)

// WithLogger 设置工厂日志记录器。
func WithLogger(logger logging.Logger) FactoryOption {
	return func(f *Factory) { f.logger = logger }
}

// WithParent 设置父工厂，本地未知的名称委托给父工厂。
func WithParent(parent *Factory) FactoryOption {
	return func(f *Factory) { f.parent = parent }
}

// WithoutCircularReferences 禁止单例循环引用。
func WithoutCircularReferences() FactoryOption {
	return func(f *Factory) { f.allowCircularReferences = false }
}

// WithRawInjectionDespiteWrapping 开启"已观察原始引用仍继续"的兼容模式。
func WithRawInjectionDespiteWrapping() FactoryOption {
	return func(f *Factory) { f.allowRawInjectionDespiteWrapping = true }
}

// WithParameterNameDiscoverer 安装构造参数名发现器。
func WithParameterNameDiscoverer(d ParameterNameDiscoverer) FactoryOption {
	return func(f *Factory) { f.discoverer = d }
}

// WithoutDefaultProcessors 不安装默认的注解驱动注入与生命周期处理器。
func WithoutDefaultProcessors() FactoryOption {
	return func(f *Factory) { f.scanner = nil }
}

// NewFactory 创建工厂。默认安装注解驱动注入处理器（inject/lookup
// 标签、Inject 方法前缀）与生命周期回调处理器（PostConstruct/PreDestroy）。
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{
		definitions:             make(map[string]*Definition),
		aliases:                 newAliasRegistry(),
		scopes:                  make(map[string]ScopeHandler),
		pipeline:                newPostProcessorPipeline(),
		converter:               NewTypeConverter(),
		logger:                  logging.NewNopLogger(),
		allowCircularReferences: true,
		scanner:                 newMetadataScanner(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.registry = newSingletonRegistry(f.logger)
	if f.scanner != nil {
		f.scanner.logger = f.logger
		f.AddPostProcessor(&AutowiredProcessor{factory: f, scanner: f.scanner})
		f.AddPostProcessor(&LifecycleProcessor{scanner: f.scanner})
	}
	return f
}

// Logger 工厂日志记录器。
func (f *Factory) Logger() logging.Logger { return f.logger }

// Parent 父工厂（可能为 nil）。
func (f *Factory) Parent() *Factory { return f.parent }

// AddPostProcessor 注册后置处理器。重复注册以最后一次顺序为准。
func (f *Factory) AddPostProcessor(pp any) {
	f.pipeline.add(pp)
}

// Converter 工厂的类型转换器。
func (f *Factory) Converter() *TypeConverter { return f.converter }

// ---------------------------------------------------------------------------
// DefinitionRegistry

// RegisterDefinition 注册定义。同名定义被覆盖并使合并缓存失效。
func (f *Factory) RegisterDefinition(name string, def *Definition) error {
	if name == "" {
		return newDefinitionError(name, "bean 名称不能为空")
	}
	if def == nil {
		return newDefinitionError(name, "定义不能为 nil")
	}
	for _, ov := range def.LookupOverrides {
		if ov.Field == "" || ov.BeanName == "" {
			return newDefinitionError(name, "lookup 覆盖必须同时指定字段与 bean 名称")
		}
	}
	f.defMu.Lock()
	if _, exists := f.definitions[name]; !exists {
		f.definitionOrder = append(f.definitionOrder, name)
	}
	f.definitions[name] = def
	f.defMu.Unlock()
	f.invalidateMergedDefinition(name)
	return nil
}

// GetDefinition 取原始定义。
func (f *Factory) GetDefinition(name string) (*Definition, error) {
	f.defMu.RLock()
	def, ok := f.definitions[name]
	f.defMu.RUnlock()
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return def, nil
}

// ContainsDefinition 是否存在该名称的定义。
func (f *Factory) ContainsDefinition(name string) bool {
	f.defMu.RLock()
	defer f.defMu.RUnlock()
	_, ok := f.definitions[name]
	return ok
}

// RemoveDefinition 移除定义并使合并缓存失效。
func (f *Factory) RemoveDefinition(name string) error {
	f.defMu.Lock()
	if _, ok := f.definitions[name]; !ok {
		f.defMu.Unlock()
		return &NotFoundError{Name: name}
	}
	delete(f.definitions, name)
	for i, n := range f.definitionOrder {
		if n == name {
			f.definitionOrder = append(f.definitionOrder[:i], f.definitionOrder[i+1:]...)
			break
		}
	}
	f.defMu.Unlock()
	f.invalidateMergedDefinition(name)
	return nil
}

// DefinitionNames 定义名称（注册顺序）。
func (f *Factory) DefinitionNames() []string {
	f.defMu.RLock()
	defer f.defMu.RUnlock()
	return append([]string(nil), f.definitionOrder...)
}

// RegisterAlias 登记别名。
func (f *Factory) RegisterAlias(name, alias string) error {
	return f.aliases.registerAlias(name, alias)
}

// GetAliases 指向该名称的全部别名。
func (f *Factory) GetAliases(name string) []string {
	return f.aliases.getAliases(f.aliases.canonicalName(transformedBeanName(name)))
}

// RegisterSingleton 直接登记既有单例实例。
func (f *Factory) RegisterSingleton(name string, instance any) {
	f.registry.registerSingleton(name, instance)
}

// ContainsSingleton 一级缓存是否含有该名称。
func (f *Factory) ContainsSingleton(name string) bool {
	return f.registry.containsSingleton(f.canonical(name))
}

// RegisterScope 注册自定义作用域。singleton/prototype 不可覆盖。
func (f *Factory) RegisterScope(name string, handler ScopeHandler) error {
	if name == ScopeSingleton || name == ScopePrototype {
		return fmt.Errorf("bean: 不能替换内置作用域 '%s'", name)
	}
	f.scopeMu.Lock()
	defer f.scopeMu.Unlock()
	f.scopes[name] = handler
	return nil
}

// RegisteredScopeNames 已注册的自定义作用域名称。
func (f *Factory) RegisteredScopeNames() []string {
	f.scopeMu.RLock()
	defer f.scopeMu.RUnlock()
	names := make([]string, 0, len(f.scopes))
	for n := range f.scopes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (f *Factory) getScope(name string) (ScopeHandler, bool) {
	f.scopeMu.RLock()
	defer f.scopeMu.RUnlock()
	h, ok := f.scopes[name]
	return h, ok
}

// ---------------------------------------------------------------------------
// 公共查找 API

// GetBean 按名称查找 bean。
func (f *Factory) GetBean(name string) (any, error) {
	return f.doGetBean(newResolutionState(), name, nil, nil)
}

// GetBeanWithType 按名称查找并强制为所需类型。
func (f *Factory) GetBeanWithType(name string, requiredType reflect.Type) (any, error) {
	return f.doGetBean(newResolutionState(), name, requiredType, nil)
}

// GetBeanWithArgs 按名称查找，携带显式构造参数。参数只用于创建新实例：
// prototype 每次都用；已存在的单例原样返回，参数被忽略。
func (f *Factory) GetBeanWithArgs(name string, args ...any) (any, error) {
	return f.doGetBean(newResolutionState(), name, nil, args)
}

// GetBeanOfType 按类型查找唯一 bean。
func (f *Factory) GetBeanOfType(typ reflect.Type) (any, error) {
	state := newResolutionState()
	name, err := f.resolveNamedBean(state, typ)
	if err != nil {
		return nil, err
	}
	return f.doGetBean(state, name, typ, nil)
}

// Resolve 泛型辅助：按类型查找唯一 bean。
func Resolve[T any](f *Factory) (T, error) {
	var zero T
	typ := reflect.TypeOf((*T)(nil)).Elem()
	v, err := f.GetBeanOfType(typ)
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, &WrongTypeError{Required: typ, Actual: reflect.TypeOf(v)}
	}
	return out, nil
}

// ResolveNamed 泛型辅助：按名称查找并断言类型。
func ResolveNamed[T any](f *Factory, name string) (T, error) {
	var zero T
	typ := reflect.TypeOf((*T)(nil)).Elem()
	v, err := f.GetBeanWithType(name, typ)
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, &WrongTypeError{Name: name, Required: typ, Actual: reflect.TypeOf(v)}
	}
	return out, nil
}

// ContainsBean 名称（或其别名）是否可解析：本地单例/定义或父工厂。
func (f *Factory) ContainsBean(name string) bool {
	beanName := f.canonical(name)
	if f.registry.containsSingleton(beanName) || f.ContainsDefinition(beanName) {
		return true
	}
	if f.parent != nil {
		return f.parent.ContainsBean(name)
	}
	return false
}

// IsSingleton 名称是否解析为单例。FactoryBean 的非 & 名称取决于产品。
func (f *Factory) IsSingleton(name string) (bool, error) {
	beanName := f.canonical(name)
	if instance, _ := f.registry.getSingleton(beanName, false); instance != nil {
		if fb, ok := instance.(FactoryBean); ok && !isFactoryDereference(name) {
			return fb.IsSingleton(), nil
		}
		return true, nil
	}
	if !f.ContainsDefinition(beanName) {
		if f.parent != nil {
			return f.parent.IsSingleton(name)
		}
		return false, &NotFoundError{Name: beanName}
	}
	md, err := f.getMergedDefinition(beanName)
	if err != nil {
		return false, err
	}
	if !md.IsSingleton() {
		return false, nil
	}
	if f.isFactoryBeanDefinition(md) && !isFactoryDereference(name) {
		instance, err := f.GetBean(FactoryBeanPrefix + beanName)
		if err != nil {
			return false, err
		}
		if fb, ok := instance.(FactoryBean); ok {
			return fb.IsSingleton(), nil
		}
	}
	return true, nil
}

// IsPrototype 名称是否解析为 prototype。
func (f *Factory) IsPrototype(name string) (bool, error) {
	beanName := f.canonical(name)
	if !f.ContainsDefinition(beanName) {
		if f.parent != nil {
			return f.parent.IsPrototype(name)
		}
		return false, &NotFoundError{Name: beanName}
	}
	md, err := f.getMergedDefinition(beanName)
	if err != nil {
		return false, err
	}
	return md.IsPrototype() && !isFactoryDereference(name), nil
}

// GetType 名称解析出的类型；FactoryBean 非 & 名称返回产品类型。
func (f *Factory) GetType(name string) (reflect.Type, error) {
	beanName := f.canonical(name)
	if instance, _ := f.registry.getSingleton(beanName, false); instance != nil {
		if fb, ok := instance.(FactoryBean); ok && !isFactoryDereference(name) {
			return fb.ObjectType(), nil
		}
		return reflect.TypeOf(instance), nil
	}
	if !f.ContainsDefinition(beanName) {
		if f.parent != nil {
			return f.parent.GetType(name)
		}
		return nil, &NotFoundError{Name: beanName}
	}
	md, err := f.getMergedDefinition(beanName)
	if err != nil {
		return nil, err
	}
	predicted := f.predictBeanType(beanName, md)
	if predicted != nil && implementsFactoryBean(predicted) && !isFactoryDereference(name) {
		return f.factoryBeanObjectType(beanName, md, false), nil
	}
	return predicted, nil
}

// IsTypeMatch 名称解析出的实例是否与类型匹配。
func (f *Factory) IsTypeMatch(name string, typ reflect.Type) (bool, error) {
	t, err := f.GetType(name)
	if err != nil {
		return false, err
	}
	if t == nil {
		return false, nil
	}
	return typeMatches(t, typ), nil
}

// GetBeanNamesForType 可赋值到给定类型的 bean 名称（定义顺序，
// 手工注册的单例在后）。
func (f *Factory) GetBeanNamesForType(typ reflect.Type, includeNonSingletons, allowEagerInit bool) []string {
	var out []string
	for _, name := range f.DefinitionNames() {
		md, err := f.getMergedDefinition(name)
		if err != nil || md.Abstract {
			continue
		}
		if !includeNonSingletons && !md.IsSingleton() {
			continue
		}
		matched := false
		predicted := f.predictBeanType(name, md)
		if predicted != nil && implementsFactoryBean(predicted) {
			// FactoryBean：先按产品类型匹配，其次按工厂类型匹配（带 & 前缀）
			product := f.factoryBeanObjectType(name, md, allowEagerInit)
			if product != nil && typeMatches(product, typ) {
				matched = true
			} else if typeMatches(predicted, typ) {
				out = append(out, FactoryBeanPrefix+name)
				continue
			}
		} else if predicted != nil && typeMatches(predicted, typ) {
			matched = true
		}
		if matched {
			out = append(out, name)
		}
	}
	for _, name := range f.registry.singletonNames() {
		if f.ContainsDefinition(name) || containsString(out, name) {
			continue
		}
		instance, _ := f.registry.getSingleton(name, false)
		if instance == nil {
			continue
		}
		if fb, ok := instance.(FactoryBean); ok {
			if pt := fb.ObjectType(); pt != nil && typeMatches(pt, typ) {
				out = append(out, name)
				continue
			}
			if typeMatches(reflect.TypeOf(instance), typ) {
				out = append(out, FactoryBeanPrefix+name)
			}
			continue
		}
		if typeMatches(reflect.TypeOf(instance), typ) {
			out = append(out, name)
		}
	}
	return out
}

// PreInstantiateSingletons 急切实例化所有非延迟的单例定义。
// FactoryBean 本身被实例化；其产品不在此处创建，首次按名称查找时才生成。
func (f *Factory) PreInstantiateSingletons() error {
	for _, name := range f.DefinitionNames() {
		md, err := f.getMergedDefinition(name)
		if err != nil {
			return err
		}
		if md.Abstract || !md.IsSingleton() || md.LazyInit {
			continue
		}
		if f.isFactoryBeanDefinition(md) {
			if _, err := f.GetBean(FactoryBeanPrefix + name); err != nil {
				return err
			}
			continue
		}
		if _, err := f.GetBean(name); err != nil {
			return err
		}
	}
	return nil
}

// DestroySingletons 按注册逆序销毁全部单例并清空缓存。
func (f *Factory) DestroySingletons() {
	f.registry.destroySingletons()
	f.factoryBeanObjectCache.Range(func(k, _ any) bool {
		f.factoryBeanObjectCache.Delete(k)
		return true
	})
	f.alreadyCreated.Range(func(k, _ any) bool {
		f.alreadyCreated.Delete(k)
		return true
	})
}

// DestroySingleton 销毁单个单例（连同依赖它的 bean）。
func (f *Factory) DestroySingleton(name string) {
	beanName := f.canonical(name)
	f.registry.destroySingleton(beanName)
	f.factoryBeanObjectCache.Delete(beanName)
}

// ---------------------------------------------------------------------------
// 查找驱动

func (f *Factory) canonical(name string) string {
	return f.aliases.canonicalName(transformedBeanName(name))
}

// doGetBean 查找驱动：规范化名称 → 单例缓存 → 合并定义 →
// 按作用域分派创建 → FactoryBean 解引用 → 类型强制。
func (f *Factory) doGetBean(state *resolutionState, name string, requiredType reflect.Type, args []any) (any, error) {
	beanName := f.canonical(name)

	var instance any

	// 有显式参数时跳过此处的缓存（含早期引用）查找；已存在的单例仍由下方作用域分派返回
	if args == nil {
		shared, err := f.registry.getSingleton(beanName, true)
		if err != nil {
			return nil, newCreationError(beanName, "早期引用生产失败", err)
		}
		if shared != nil {
			obj, err := f.getObjectForBeanInstance(shared, name, beanName, nil)
			if err != nil {
				return nil, err
			}
			return f.adaptBeanInstance(beanName, obj, requiredType)
		}
	}

	// prototype 重入即循环
	if state.isPrototypeInCreation(beanName) {
		return nil, newCycleError(beanName, "prototype 正在创建中被再次请求")
	}

	// 本地未知时委托父工厂
	if !f.ContainsDefinition(beanName) && f.parent != nil {
		originalName := name
		if isFactoryDereference(name) {
			originalName = FactoryBeanPrefix + beanName
		}
		if args != nil {
			return f.parent.GetBeanWithArgs(originalName, args...)
		}
		if requiredType != nil {
			return f.parent.GetBeanWithType(originalName, requiredType)
		}
		return f.parent.GetBean(originalName)
	}

	f.markBeanAsCreated(beanName)

	md, err := f.getMergedDefinition(beanName)
	if err != nil {
		return nil, err
	}
	if md.Abstract {
		return nil, newDefinitionError(beanName, "抽象定义不能被实例化")
	}

	// depends-on 先行创建，并检测声明依赖成环
	for _, dep := range md.DependsOn {
		if f.registry.isDependent(beanName, dep) {
			return nil, newCycleError(beanName, "depends-on 链路与 '%s' 互相依赖", dep)
		}
		f.registry.registerDependentBean(dep, beanName)
		if _, err := f.doGetBean(state, dep, nil, nil); err != nil {
			return nil, newCreationError(beanName, fmt.Sprintf("depends-on bean '%s' 创建失败", dep), err)
		}
	}

	switch {
	case md.IsSingleton():
		instance, err = f.registry.getSingletonOrCreate(state, beanName, func() (any, error) {
			return f.createBean(state, beanName, md, args)
		})
		if err != nil {
			return nil, err
		}

	case md.IsPrototype():
		state.beforePrototypeCreation(beanName)
		instance, err = f.createBean(state, beanName, md, args)
		state.afterPrototypeCreation(beanName)
		if err != nil {
			return nil, err
		}

	default:
		handler, ok := f.getScope(md.Scope)
		if !ok {
			return nil, newDefinitionError(beanName, "未注册的作用域 '%s'", md.Scope)
		}
		instance, err = handler.Get(beanName, func() (any, error) {
			state.beforePrototypeCreation(beanName)
			defer state.afterPrototypeCreation(beanName)
			return f.createBean(state, beanName, md, args)
		})
		if err != nil {
			return nil, newCreationError(beanName, fmt.Sprintf("作用域 '%s' 创建失败", md.Scope), err)
		}
	}

	obj, err := f.getObjectForBeanInstance(instance, name, beanName, md)
	if err != nil {
		return nil, err
	}
	return f.adaptBeanInstance(beanName, obj, requiredType)
}

// adaptBeanInstance 将实例强制为所需类型，必要时经转换器。
func (f *Factory) adaptBeanInstance(name string, instance any, requiredType reflect.Type) (any, error) {
	if requiredType == nil || instance == nil {
		return instance, nil
	}
	actual := reflect.TypeOf(instance)
	if typeMatches(actual, requiredType) {
		return instance, nil
	}
	converted, err := f.converter.Convert(instance, requiredType)
	if err != nil {
		return nil, &WrongTypeError{Name: name, Required: requiredType, Actual: actual}
	}
	return converted.Interface(), nil
}

// markBeanAsCreated 标记名称已进入创建；过期的合并定义此时重新合并。
func (f *Factory) markBeanAsCreated(name string) {
	if _, loaded := f.alreadyCreated.LoadOrStore(name, struct{}{}); !loaded {
		if v, ok := f.mergedDefinitions.Load(name); ok && v.(*mergedDefinition).stale {
			f.mergedDefinitions.Delete(name)
		}
	}
}

// getObjectForBeanInstance 处理 FactoryBean 解引用：
// & 请求返回工厂自身；普通请求返回产品（单例产品缓存）。
func (f *Factory) getObjectForBeanInstance(instance any, requestedName, beanName string, md *mergedDefinition) (any, error) {
	if isFactoryDereference(requestedName) {
		if _, ok := instance.(FactoryBean); !ok {
			return nil, &WrongTypeError{
				Name:     beanName,
				Required: factoryBeanType,
				Actual:   reflect.TypeOf(instance),
			}
		}
		return instance, nil
	}
	fb, ok := instance.(FactoryBean)
	if !ok {
		return instance, nil
	}
	return f.getObjectFromFactoryBean(fb, beanName)
}

var factoryBeanType = reflect.TypeOf((*FactoryBean)(nil)).Elem()

// getObjectFromFactoryBean 获取产品。单例工厂的单例产品缓存一次；
// 产品经 AfterInitialization 链后置处理。
func (f *Factory) getObjectFromFactoryBean(fb FactoryBean, beanName string) (any, error) {
	cacheable := fb.IsSingleton() && f.registry.containsSingleton(beanName)
	if cacheable {
		if v, ok := f.factoryBeanObjectCache.Load(beanName); ok {
			return v, nil
		}
	}
	product, err := fb.Object()
	if err != nil {
		return nil, newCreationError(beanName, "FactoryBean 生产失败", err)
	}
	if product == nil {
		return nil, newCreationError(beanName, "FactoryBean 返回 nil 产品", nil)
	}
	product, err = f.ApplyBeanPostProcessorsAfterInitialization(product, beanName)
	if err != nil {
		return nil, err
	}
	if cacheable {
		if existing, loaded := f.factoryBeanObjectCache.LoadOrStore(beanName, product); loaded {
			return existing, nil
		}
	}
	return product, nil
}

// isFactoryBeanDefinition 定义的预测类型是否实现 FactoryBean。
func (f *Factory) isFactoryBeanDefinition(md *mergedDefinition) bool {
	t := f.predictBeanType(md.name, md)
	return t != nil && implementsFactoryBean(t)
}

func implementsFactoryBean(t reflect.Type) bool {
	return t.Implements(factoryBeanType)
}

// factoryBeanObjectType 确定 FactoryBean 的产品类型。
// allowInit 时允许实例化工厂（& 查找）询问 ObjectType。
func (f *Factory) factoryBeanObjectType(beanName string, md *mergedDefinition, allowInit bool) reflect.Type {
	if instance, _ := f.registry.getSingleton(beanName, false); instance != nil {
		if fb, ok := instance.(FactoryBean); ok {
			return fb.ObjectType()
		}
	}
	if allowInit && md.IsSingleton() {
		if instance, err := f.GetBean(FactoryBeanPrefix + beanName); err == nil {
			if fb, ok := instance.(FactoryBean); ok {
				return fb.ObjectType()
			}
		}
	}
	return nil
}

// predictBeanType 预测定义最终产出的类型：处理器预测 > 工厂方法
// 返回类型 > 定义目标类型。
func (f *Factory) predictBeanType(beanName string, md *mergedDefinition) reflect.Type {
	if md.resolvedTargetType != nil {
		return md.resolvedTargetType
	}
	for _, pp := range f.pipeline.smartInstantiationProcessors() {
		if t := pp.PredictBeanType(md.Type, beanName); t != nil {
			return t
		}
	}
	if md.FactoryMethodName != "" {
		if t := f.resolveFactoryMethodReturnType(md); t != nil {
			return t
		}
	}
	if md.Type != nil {
		return md.Type
	}
	if len(md.Constructors) > 0 {
		ft := reflect.TypeOf(md.Constructors[0])
		if ft.Kind() == reflect.Func && ft.NumOut() > 0 {
			return ft.Out(0)
		}
	}
	return nil
}

// typeMatches 实际类型是否满足请求类型（等同、可赋值或指针解包）。
func typeMatches(actual, required reflect.Type) bool {
	if actual == nil || required == nil {
		return false
	}
	if actual == required || actual.AssignableTo(required) {
		return true
	}
	if actual.Kind() == reflect.Ptr && actual.Elem() == required {
		return true
	}
	return false
}

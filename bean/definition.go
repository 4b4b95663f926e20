package bean

import (
	"reflect"
)

// 内置作用域名称。其余名称通过 Factory.RegisterScope 注册的自定义作用域解析。
const (
	ScopeSingleton = "singleton"
	ScopePrototype = "prototype"
)

// AutowireMode 属性自动装配模式。
type AutowireMode int

const (
	// AutowireNo 不自动装配（默认）。
	AutowireNo AutowireMode = iota
	// AutowireByName 按属性名查找同名 bean。
	AutowireByName
	// AutowireByType 按属性类型解析依赖。
	AutowireByType
	// AutowireConstructor 构造函数参数自动装配。
	AutowireConstructor
)

// DependencyCheck 属性填充后的依赖完整性检查模式。
type DependencyCheck int

const (
	// DependencyCheckNone 不检查（默认）。
	DependencyCheckNone DependencyCheck = iota
	// DependencyCheckSimple 只检查简单类型属性。
	DependencyCheckSimple
	// DependencyCheckObjects 只检查对象引用属性。
	DependencyCheckObjects
	// DependencyCheckAll 检查所有可写属性。
	DependencyCheckAll
)

// DestroyMethodKind 销毁方法的判别式，替代魔法字符串。
type DestroyMethodKind int

const (
	// DestroyNone 无销毁方法。
	DestroyNone DestroyMethodKind = iota
	// DestroyInferred 推断销毁方法：Close() error 或 Shutdown()。
	DestroyInferred
	// DestroyNamed 显式命名的销毁方法。
	DestroyNamed
)

// DestroyMethod 销毁方法说明。
type DestroyMethod struct {
	Kind DestroyMethodKind
	Name string
}

// DestroyByName 显式命名的销毁方法。
func DestroyByName(name string) DestroyMethod {
	return DestroyMethod{Kind: DestroyNamed, Name: name}
}

// DestroyInfer 推断销毁方法。
func DestroyInfer() DestroyMethod {
	return DestroyMethod{Kind: DestroyInferred}
}

// LookupOverride 方法覆盖记录：func 类型字段在实例化时被替换为
// 按名称委托 GetBean 的闭包。
type LookupOverride struct {
	// Field 目标结构体上 func 类型的导出字段名。
	Field string
	// BeanName 委托查找的 bean 名称。
	BeanName string
}

// SupplierFactory 实例提供者回调可见的受限工厂视图。
// 通过它发起的查找会将被查找的 bean 注册为当前 bean 的依赖。
type SupplierFactory interface {
	GetBean(name string) (any, error)
	GetBeanOfType(typ reflect.Type) (any, error)
}

// Definition 一个受管组件的声明式描述。
// 由外部解析层创建，首次解析时与祖先合并并缓存。
type Definition struct {
	// Type 目标类型。结构体指针类型（*T）直接实例化；
	// 接口类型必须配合构造函数、工厂方法或实例提供者。
	Type reflect.Type

	// Parent 父定义名称，合并时继承父定义的属性。
	Parent string

	// Scope 作用域名称，空串在合并后视为 singleton。
	Scope string

	// Abstract 抽象定义只能作为父定义，不能被实例化。
	Abstract bool

	// LazyInit 延迟初始化：不在预实例化阶段急切创建。
	LazyInit bool

	// Primary 按类型装配出现多个候选时优先选择。
	Primary bool

	// Priority 候选优先级，数值越小优先级越高；nil 表示未声明。
	Priority *int

	// AutowireMode 属性自动装配模式。
	AutowireMode AutowireMode

	// DependencyCheck 属性依赖检查模式。
	DependencyCheck DependencyCheck

	// Strict 构造函数歧义消解是否严格。默认宽松（零值）；
	// 严格模式下最低权重出现并列视为错误。
	Strict bool

	// NonPublicAccess 是否允许使用非导出构造函数候选；生命周期方法不受此标志影响。
	NonPublicAccess bool

	// DependsOn 显式声明的前置 bean，创建本 bean 前先行创建。
	DependsOn []string

	// Constructors 候选构造函数列表（func，返回目标类型，可带 error）。
	Constructors []any

	// ConstructorArgs 声明的构造参数。
	ConstructorArgs *ConstructorArgs

	// FactoryBeanName 工厂 bean 名称，FactoryMethodName 指该 bean 上的方法。
	// 设置 FactoryMethodName 而本字段为空时创建报定义错误；Type 上的方法不作为工厂方法。
	FactoryBeanName string

	// FactoryMethodName 工厂方法名称，非 void 返回。
	FactoryMethodName string

	// InstanceSupplier 用户提供的实例回调，优先级最高。
	InstanceSupplier func(f SupplierFactory) (any, error)

	// PropertyValues 声明的属性值。
	PropertyValues *PropertyValues

	// InitMethodName 显式初始化方法名。方法可以无参，或接受一个
	// bool 参数（传入 true）；更多参数是定义错误。
	InitMethodName string

	// Destroy 销毁方法说明。
	Destroy DestroyMethod

	// LookupOverrides 方法覆盖记录。
	LookupOverrides []LookupOverride

	// Qualifiers 限定符属性，按类型装配时与描述符的限定符比对。
	Qualifiers map[string]string
}

// NewDefinition 创建指向给定类型的定义，默认 singleton、宽松构造解析。
func NewDefinition(typ reflect.Type) *Definition {
	return &Definition{
		Type:  typ,
		Scope: ScopeSingleton,
	}
}

// DefinitionFor 泛型辅助：为类型 T 创建定义。
func DefinitionFor[T any]() *Definition {
	return NewDefinition(reflect.TypeOf((*T)(nil)).Elem())
}

// IsSingleton 作用域是否为单例。
func (d *Definition) IsSingleton() bool {
	return d.Scope == "" || d.Scope == ScopeSingleton
}

// IsPrototype 作用域是否为 prototype。
func (d *Definition) IsPrototype() bool {
	return d.Scope == ScopePrototype
}

// WithScope 设置作用域。
func (d *Definition) WithScope(scope string) *Definition {
	d.Scope = scope
	return d
}

// WithConstructor 追加候选构造函数。
func (d *Definition) WithConstructor(fns ...any) *Definition {
	d.Constructors = append(d.Constructors, fns...)
	return d
}

// WithProperty 声明属性值。
func (d *Definition) WithProperty(name string, value any) *Definition {
	if d.PropertyValues == nil {
		d.PropertyValues = NewPropertyValues()
	}
	d.PropertyValues.Add(name, value)
	return d
}

// WithConstructorArg 追加一个泛型构造参数。
func (d *Definition) WithConstructorArg(value any) *Definition {
	if d.ConstructorArgs == nil {
		d.ConstructorArgs = NewConstructorArgs()
	}
	d.ConstructorArgs.Add(value)
	return d
}

// WithIndexedConstructorArg 按索引声明构造参数。
func (d *Definition) WithIndexedConstructorArg(index int, value any) *Definition {
	if d.ConstructorArgs == nil {
		d.ConstructorArgs = NewConstructorArgs()
	}
	d.ConstructorArgs.AddIndexed(index, value)
	return d
}

// WithInitMethod 设置显式初始化方法名。
func (d *Definition) WithInitMethod(name string) *Definition {
	d.InitMethodName = name
	return d
}

// WithDestroyMethod 设置销毁方法说明。
func (d *Definition) WithDestroyMethod(dm DestroyMethod) *Definition {
	d.Destroy = dm
	return d
}

// WithSupplier 设置实例提供者。
func (d *Definition) WithSupplier(fn func(f SupplierFactory) (any, error)) *Definition {
	d.InstanceSupplier = fn
	return d
}

// WithPrimary 标记为 primary。
func (d *Definition) WithPrimary() *Definition {
	d.Primary = true
	return d
}

// WithLazyInit 标记为延迟初始化。
func (d *Definition) WithLazyInit() *Definition {
	d.LazyInit = true
	return d
}

// WithDependsOn 声明前置依赖。
func (d *Definition) WithDependsOn(names ...string) *Definition {
	d.DependsOn = append(d.DependsOn, names...)
	return d
}

// WithAutowire 设置自动装配模式。
func (d *Definition) WithAutowire(mode AutowireMode) *Definition {
	d.AutowireMode = mode
	return d
}

// clone 深拷贝可变成员，合并时使用。
func (d *Definition) clone() *Definition {
	out := *d
	out.DependsOn = append([]string(nil), d.DependsOn...)
	out.Constructors = append([]any(nil), d.Constructors...)
	out.LookupOverrides = append([]LookupOverride(nil), d.LookupOverrides...)
	out.ConstructorArgs = d.ConstructorArgs.clone()
	out.PropertyValues = d.PropertyValues.clone()
	if d.Qualifiers != nil {
		out.Qualifiers = make(map[string]string, len(d.Qualifiers))
		for k, v := range d.Qualifiers {
			out.Qualifiers[k] = v
		}
	}
	if d.Priority != nil {
		p := *d.Priority
		out.Priority = &p
	}
	return &out
}

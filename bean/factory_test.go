package bean_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/gocrud/beans/bean"
)

// ---------------- 测试用类型 ----------------

type Counter struct {
	Value int
}

func (c *Counter) Bump() { c.Value++ }

type X struct {
	B *Y
}

type Y struct {
	A *X
}

func NewX(b *Y) *X { return &X{B: b} }
func NewY(a *X) *Y { return &Y{A: a} }

type Impl struct {
	Tag string
}

type Holder struct {
	Impl *Impl
}

// countingFactoryBean 产品生产计数
type countingFactoryBean struct {
	calls     int
	singleton bool
}

type product struct {
	Serial int
}

func (f *countingFactoryBean) Object() (any, error) {
	f.calls++
	return &product{Serial: f.calls}, nil
}

func (f *countingFactoryBean) ObjectType() reflect.Type {
	return reflect.TypeOf(&product{})
}

func (f *countingFactoryBean) IsSingleton() bool { return f.singleton }

// ---------------- 场景测试 ----------------

func TestSimpleSingletonWithInitMethod(t *testing.T) {
	f := bean.NewFactory()
	def := bean.DefinitionFor[*Counter]().WithInitMethod("Bump")
	if err := f.RegisterDefinition("A", def); err != nil {
		t.Fatalf("RegisterDefinition failed: %v", err)
	}

	v1, err := f.GetBean("A")
	if err != nil {
		t.Fatalf("GetBean failed: %v", err)
	}
	c := v1.(*Counter)
	if c.Value != 1 {
		t.Errorf("init 方法应恰好执行一次, Value = %d", c.Value)
	}

	v2, err := f.GetBean("A")
	if err != nil {
		t.Fatalf("GetBean second call failed: %v", err)
	}
	if v1 != v2 {
		t.Error("单例身份被破坏")
	}
	if c.Value != 1 {
		t.Errorf("第二次查找不应重复初始化, Value = %d", c.Value)
	}
}

func TestSetterCycleResolves(t *testing.T) {
	f := bean.NewFactory()
	defA := bean.DefinitionFor[*X]().WithProperty("B", bean.RefTo("B"))
	defB := bean.DefinitionFor[*Y]().WithProperty("A", bean.RefTo("A"))
	f.RegisterDefinition("A", defA)
	f.RegisterDefinition("B", defB)

	v, err := f.GetBean("A")
	if err != nil {
		t.Fatalf("GetBean failed: %v", err)
	}
	a := v.(*X)
	if a.B == nil {
		t.Fatal("属性 B 未注入")
	}
	if a.B.A != a {
		t.Error("循环双方应互相观察到对方的规范实例")
	}

	vb, err := f.GetBean("B")
	if err != nil {
		t.Fatalf("GetBean B failed: %v", err)
	}
	if vb.(*Y) != a.B {
		t.Error("B 的规范实例与注入到 A 的不一致")
	}
}

func TestConstructorCycleFailsFast(t *testing.T) {
	f := bean.NewFactory()
	f.RegisterDefinition("A", bean.DefinitionFor[*X]().WithConstructor(NewX))
	f.RegisterDefinition("B", bean.DefinitionFor[*Y]().WithConstructor(NewY))

	_, err := f.GetBean("A")
	if err == nil {
		t.Fatal("构造参数循环必须失败")
	}
	var cycleErr *bean.CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("期望 CycleError, 得到 %T: %v", err, err)
	}
	if f.ContainsSingleton("A") || f.ContainsSingleton("B") {
		t.Error("失败后不得发布任何一方")
	}
}

func TestByTypeAutowiringWithPrimary(t *testing.T) {
	f := bean.NewFactory()
	f.RegisterDefinition("P", bean.DefinitionFor[*Impl]().
		WithSupplier(func(bean.SupplierFactory) (any, error) { return &Impl{Tag: "P"}, nil }).
		WithPrimary())
	f.RegisterDefinition("Q", bean.DefinitionFor[*Impl]().
		WithSupplier(func(bean.SupplierFactory) (any, error) { return &Impl{Tag: "Q"}, nil }))
	defR := bean.DefinitionFor[*Holder]().WithAutowire(bean.AutowireByType)
	f.RegisterDefinition("R", defR)

	v, err := f.GetBean("R")
	if err != nil {
		t.Fatalf("GetBean failed: %v", err)
	}
	r := v.(*Holder)
	if r.Impl == nil || r.Impl.Tag != "P" {
		t.Errorf("primary 候选应胜出, got %+v", r.Impl)
	}

	p, _ := f.GetBean("P")
	if r.Impl != p.(*Impl) {
		t.Error("注入的应是 P 的规范实例")
	}
}

func TestFactoryBeanProductCaching(t *testing.T) {
	f := bean.NewFactory()
	fb := &countingFactoryBean{singleton: true}
	f.RegisterDefinition("F", bean.DefinitionFor[*countingFactoryBean]().
		WithSupplier(func(bean.SupplierFactory) (any, error) { return fb, nil }))

	v1, err := f.GetBean("F")
	if err != nil {
		t.Fatalf("GetBean failed: %v", err)
	}
	if _, ok := v1.(*product); !ok {
		t.Fatalf("普通名称应返回产品, 得到 %T", v1)
	}

	raw, err := f.GetBean("&F")
	if err != nil {
		t.Fatalf("GetBean(&F) failed: %v", err)
	}
	if raw != fb {
		t.Error("& 前缀应返回工厂自身")
	}

	v2, _ := f.GetBean("F")
	if v1 != v2 {
		t.Error("单例产品应被缓存")
	}
	if fb.calls != 1 {
		t.Errorf("产品应只生产一次, calls = %d", fb.calls)
	}
}

func TestFactoryBeanPrototypeProduct(t *testing.T) {
	f := bean.NewFactory()
	fb := &countingFactoryBean{singleton: false}
	f.RegisterDefinition("F", bean.DefinitionFor[*countingFactoryBean]().
		WithSupplier(func(bean.SupplierFactory) (any, error) { return fb, nil }))

	v1, _ := f.GetBean("F")
	v2, _ := f.GetBean("F")
	if v1 == v2 {
		t.Error("非单例产品应每次重新生产")
	}
	if fb.calls != 2 {
		t.Errorf("calls = %d", fb.calls)
	}
}

func TestPrototypeDistinctness(t *testing.T) {
	f := bean.NewFactory()
	def := bean.DefinitionFor[*Counter]().WithScope(bean.ScopePrototype)
	f.RegisterDefinition("proto", def)

	v1, err := f.GetBean("proto")
	if err != nil {
		t.Fatalf("GetBean failed: %v", err)
	}
	v2, _ := f.GetBean("proto")
	if v1 == v2 {
		t.Error("prototype 每次查找应得到新实例")
	}
}

func TestAliasResolution(t *testing.T) {
	f := bean.NewFactory()
	f.RegisterDefinition("canonical", bean.DefinitionFor[*Counter]())
	if err := f.RegisterAlias("canonical", "nick"); err != nil {
		t.Fatalf("RegisterAlias failed: %v", err)
	}
	if err := f.RegisterAlias("nick", "nick2"); err != nil {
		t.Fatalf("传递别名注册失败: %v", err)
	}

	v1, err := f.GetBean("nick2")
	if err != nil {
		t.Fatalf("按别名查找失败: %v", err)
	}
	v2, _ := f.GetBean("canonical")
	if v1 != v2 {
		t.Error("别名应解析到同一实例")
	}

	aliases := f.GetAliases("canonical")
	if len(aliases) != 2 {
		t.Errorf("期望 2 个别名, 得到 %v", aliases)
	}
}

func TestAliasCycleDetected(t *testing.T) {
	f := bean.NewFactory()
	f.RegisterAlias("a", "b")
	if err := f.RegisterAlias("b", "a"); err == nil {
		t.Error("循环别名必须报错")
	}
}

func TestGetBeanWithTypeCoercion(t *testing.T) {
	f := bean.NewFactory()
	f.RegisterDefinition("c", bean.DefinitionFor[*Counter]())

	if _, err := f.GetBeanWithType("c", reflect.TypeOf(&Counter{})); err != nil {
		t.Fatalf("同类型请求失败: %v", err)
	}

	_, err := f.GetBeanWithType("c", reflect.TypeOf(&Impl{}))
	var wrongType *bean.WrongTypeError
	if !errors.As(err, &wrongType) {
		t.Fatalf("期望 WrongTypeError, 得到 %v", err)
	}
}

func TestNotFound(t *testing.T) {
	f := bean.NewFactory()
	_, err := f.GetBean("missing")
	var notFound *bean.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("期望 NotFoundError, 得到 %v", err)
	}
}

func TestAbstractDefinitionRejected(t *testing.T) {
	f := bean.NewFactory()
	def := bean.DefinitionFor[*Counter]()
	def.Abstract = true
	f.RegisterDefinition("abs", def)

	_, err := f.GetBean("abs")
	var defErr *bean.DefinitionError
	if !errors.As(err, &defErr) {
		t.Fatalf("期望 DefinitionError, 得到 %v", err)
	}
}

func TestParentDefinitionMerge(t *testing.T) {
	f := bean.NewFactory()
	parent := bean.DefinitionFor[*Counter]().WithInitMethod("Bump")
	parent.Abstract = true
	f.RegisterDefinition("base", parent)

	child := &bean.Definition{Parent: "base"}
	f.RegisterDefinition("child", child)

	v, err := f.GetBean("child")
	if err != nil {
		t.Fatalf("合并定义查找失败: %v", err)
	}
	if v.(*Counter).Value != 1 {
		t.Error("子定义应继承父定义的初始化方法")
	}
}

func TestDependsOnOrderingAndCycle(t *testing.T) {
	f := bean.NewFactory()
	var order []string
	f.RegisterDefinition("first", bean.DefinitionFor[*Impl]().
		WithSupplier(func(bean.SupplierFactory) (any, error) {
			order = append(order, "first")
			return &Impl{}, nil
		}))
	f.RegisterDefinition("second", bean.DefinitionFor[*Counter]().
		WithSupplier(func(bean.SupplierFactory) (any, error) {
			order = append(order, "second")
			return &Counter{}, nil
		}).WithDependsOn("first"))

	if _, err := f.GetBean("second"); err != nil {
		t.Fatalf("GetBean failed: %v", err)
	}
	if len(order) != 2 || order[0] != "first" {
		t.Errorf("depends-on 应先行创建, order = %v", order)
	}

	// 声明依赖成环
	f2 := bean.NewFactory()
	f2.RegisterDefinition("a", bean.DefinitionFor[*Impl]().WithDependsOn("b").
		WithSupplier(func(bean.SupplierFactory) (any, error) { return &Impl{}, nil }))
	f2.RegisterDefinition("b", bean.DefinitionFor[*Counter]().WithDependsOn("a").
		WithSupplier(func(bean.SupplierFactory) (any, error) { return &Counter{}, nil }))
	_, err := f2.GetBean("a")
	var cycleErr *bean.CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("期望 CycleError, 得到 %v", err)
	}
}

func TestParentFactoryDelegation(t *testing.T) {
	parent := bean.NewFactory()
	parent.RegisterDefinition("shared", bean.DefinitionFor[*Counter]())

	child := bean.NewFactory(bean.WithParent(parent))
	v, err := child.GetBean("shared")
	if err != nil {
		t.Fatalf("父工厂委托失败: %v", err)
	}
	pv, _ := parent.GetBean("shared")
	if v != pv {
		t.Error("委托查找应返回父工厂的单例")
	}
}

func TestResolveGenericHelpers(t *testing.T) {
	f := bean.NewFactory()
	f.RegisterDefinition("c", bean.DefinitionFor[*Counter]())

	c, err := bean.Resolve[*Counter](f)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	named, err := bean.ResolveNamed[*Counter](f, "c")
	if err != nil {
		t.Fatalf("ResolveNamed failed: %v", err)
	}
	if c != named {
		t.Error("两种解析方式应得到同一单例")
	}
}

func TestGetBeanWithArgs(t *testing.T) {
	type Sized struct {
		N int
	}
	f := bean.NewFactory()
	def := bean.DefinitionFor[*Sized]().
		WithScope(bean.ScopePrototype).
		WithConstructor(func(n int) *Sized { return &Sized{N: n} })
	f.RegisterDefinition("sized", def)

	v, err := f.GetBeanWithArgs("sized", 7)
	if err != nil {
		t.Fatalf("GetBeanWithArgs failed: %v", err)
	}
	if v.(*Sized).N != 7 {
		t.Errorf("N = %d", v.(*Sized).N)
	}

	v2, _ := f.GetBeanWithArgs("sized", 9)
	if v2.(*Sized).N != 9 {
		t.Error("显式参数不应命中缓存的解析结果")
	}
}

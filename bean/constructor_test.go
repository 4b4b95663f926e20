package bean_test

import (
	"errors"
	"testing"

	"github.com/gocrud/beans/bean"
)

type pair struct {
	S string
	N int
}

func NewPairIntString(n int, s string) *pair  { return &pair{N: n, S: s} }
func NewPairStringInt(s string, n int) *pair  { return &pair{S: s, N: n} }
func NewPairDefault() *pair                   { return &pair{S: "default"} }

func TestLenientAmbiguityPicksLowestWeight(t *testing.T) {
	f := bean.NewFactory()
	def := bean.DefinitionFor[*pair]().
		WithConstructor(NewPairIntString, NewPairStringInt).
		WithConstructorArg("1").
		WithConstructorArg(2)
	f.RegisterDefinition("p", def)

	v, err := f.GetBean("p")
	if err != nil {
		t.Fatalf("GetBean failed: %v", err)
	}
	p := v.(*pair)
	// (string, int) 对原始参数零转换, 权重最低
	if p.S != "1" || p.N != 2 {
		t.Errorf("宽松模式应选 (string,int) 候选, got %+v", p)
	}
}

func TestStrictAmbiguityFails(t *testing.T) {
	f := bean.NewFactory()
	def := bean.DefinitionFor[*pair]().
		WithConstructor(NewPairIntString, NewPairStringInt).
		WithConstructorArg("1").
		WithConstructorArg(2)
	def.Strict = true
	f.RegisterDefinition("p", def)

	_, err := f.GetBean("p")
	var defErr *bean.DefinitionError
	if !errors.As(err, &defErr) {
		t.Fatalf("严格模式应以歧义失败, 得到 %v", err)
	}
}

func TestIndexedConstructorArgs(t *testing.T) {
	f := bean.NewFactory()
	def := bean.DefinitionFor[*pair]().
		WithConstructor(NewPairStringInt).
		WithIndexedConstructorArg(0, "hello").
		WithIndexedConstructorArg(1, "42") // 字符串转换为 int
	f.RegisterDefinition("p", def)

	v, err := f.GetBean("p")
	if err != nil {
		t.Fatalf("GetBean failed: %v", err)
	}
	p := v.(*pair)
	if p.S != "hello" || p.N != 42 {
		t.Errorf("got %+v", p)
	}
}

func TestZeroArgConstructorShortcut(t *testing.T) {
	f := bean.NewFactory()
	f.RegisterDefinition("p", bean.DefinitionFor[*pair]().WithConstructor(NewPairDefault))

	v, err := f.GetBean("p")
	if err != nil {
		t.Fatalf("GetBean failed: %v", err)
	}
	if v.(*pair).S != "default" {
		t.Errorf("got %+v", v)
	}
}

func TestConstructorAutowiring(t *testing.T) {
	type svc struct{ P *pair }
	f := bean.NewFactory()
	f.RegisterDefinition("p", bean.DefinitionFor[*pair]().WithConstructor(NewPairDefault))
	f.RegisterDefinition("svc", bean.DefinitionFor[*svc]().
		WithConstructor(func(p *pair) *svc { return &svc{P: p} }))

	v, err := f.GetBean("svc")
	if err != nil {
		t.Fatalf("GetBean failed: %v", err)
	}
	pv, _ := f.GetBean("p")
	if v.(*svc).P != pv.(*pair) {
		t.Error("构造参数应装配规范单例")
	}
}

func TestCachedConstructorReplayForPrototype(t *testing.T) {
	calls := 0
	f := bean.NewFactory()
	f.RegisterDefinition("p", bean.DefinitionFor[*pair]().
		WithConstructor(NewPairDefault).WithPrimary())
	def := bean.DefinitionFor[*pair]().
		WithScope(bean.ScopePrototype).
		WithConstructor(func(p *pair) *pair {
			calls++
			return &pair{S: p.S, N: calls}
		})
	f.RegisterDefinition("proto", def)

	v1, err := f.GetBean("proto")
	if err != nil {
		t.Fatalf("GetBean failed: %v", err)
	}
	v2, err := f.GetBean("proto")
	if err != nil {
		t.Fatalf("第二次 GetBean failed: %v", err)
	}
	if v1 == v2 {
		t.Error("prototype 应得到新实例")
	}
	if v2.(*pair).N != 2 {
		t.Errorf("缓存重放应重新调用构造函数, N = %d", v2.(*pair).N)
	}
}

func TestConstructorErrorPropagation(t *testing.T) {
	f := bean.NewFactory()
	boom := errors.New("boom")
	f.RegisterDefinition("bad", bean.DefinitionFor[*pair]().
		WithConstructor(func() (*pair, error) { return nil, boom }))

	_, err := f.GetBean("bad")
	if err == nil || !errors.Is(err, boom) {
		t.Fatalf("底层错误应被包装传播, 得到 %v", err)
	}
	var creationErr *bean.CreationError
	if !errors.As(err, &creationErr) {
		t.Fatalf("期望 CreationError, 得到 %T", err)
	}

	// 失败后重试从干净状态开始
	if f.ContainsSingleton("bad") {
		t.Error("失败的单例不得被发布")
	}
	_, err2 := f.GetBean("bad")
	if err2 == nil || !errors.Is(err2, boom) {
		t.Fatalf("重试应重新执行创建, 得到 %v", err2)
	}
}

func TestFactoryMethodResolution(t *testing.T) {
	f := bean.NewFactory()
	f.RegisterDefinition("fac", bean.DefinitionFor[*pairFactory]().
		WithSupplier(func(bean.SupplierFactory) (any, error) {
			return &pairFactory{prefix: "fm"}, nil
		}))

	def := bean.DefinitionFor[*pair]()
	def.FactoryBeanName = "fac"
	def.FactoryMethodName = "MakePair"
	def.ConstructorArgs = bean.NewConstructorArgs().AddIndexed(0, 5)
	f.RegisterDefinition("p", def)

	v, err := f.GetBean("p")
	if err != nil {
		t.Fatalf("工厂方法解析失败: %v", err)
	}
	p := v.(*pair)
	if p.S != "fm" || p.N != 5 {
		t.Errorf("got %+v", p)
	}
}

type pairFactory struct {
	prefix string
}

func (pf *pairFactory) MakePair(n int) *pair {
	return &pair{S: pf.prefix, N: n}
}

func TestFactoryMethodMissing(t *testing.T) {
	f := bean.NewFactory()
	f.RegisterDefinition("fac", bean.DefinitionFor[*pairFactory]().
		WithSupplier(func(bean.SupplierFactory) (any, error) {
			return &pairFactory{}, nil
		}))
	def := bean.DefinitionFor[*pair]()
	def.FactoryBeanName = "fac"
	def.FactoryMethodName = "NoSuchMethod"
	f.RegisterDefinition("p", def)

	_, err := f.GetBean("p")
	var defErr *bean.DefinitionError
	if !errors.As(err, &defErr) {
		t.Fatalf("缺失的工厂方法应报 DefinitionError, 得到 %v", err)
	}
}

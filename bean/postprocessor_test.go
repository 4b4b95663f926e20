package bean_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/gocrud/beans/bean"
	"github.com/gocrud/beans/logging"
)

// orderedProbe 记录执行顺序的初始化前处理器
type orderedProbe struct {
	label    string
	order    int
	priority bool
	seen     *[]string
}

func (p *orderedProbe) Order() int { return p.order }

func (p *orderedProbe) PostProcessBeforeInitialization(instance any, name string) (any, error) {
	*p.seen = append(*p.seen, p.label)
	return instance, nil
}

type priorityProbe struct {
	orderedProbe
}

func (p *priorityProbe) PriorityOrdered() {}

func TestPostProcessorOrdering(t *testing.T) {
	var seen []string
	f := bean.NewFactory(bean.WithoutDefaultProcessors())

	// 注册顺序故意打乱
	f.AddPostProcessor(&orderedProbe{label: "ordered-20", order: 20, seen: &seen})
	f.AddPostProcessor(&unorderedProbe{label: "plain", seen: &seen})
	pp := &priorityProbe{}
	pp.label, pp.order, pp.seen = "priority-5", 5, &seen
	f.AddPostProcessor(pp)
	f.AddPostProcessor(&orderedProbe{label: "ordered-10", order: 10, seen: &seen})

	f.RegisterDefinition("c", bean.DefinitionFor[*Counter]())
	if _, err := f.GetBean("c"); err != nil {
		t.Fatalf("GetBean failed: %v", err)
	}

	want := []string{"priority-5", "ordered-10", "ordered-20", "plain"}
	if len(seen) != len(want) {
		t.Fatalf("seen = %v", seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("顺序错误: %v, 期望 %v", seen, want)
		}
	}
}

type unorderedProbe struct {
	label string
	seen  *[]string
}

func (p *unorderedProbe) PostProcessBeforeInitialization(instance any, name string) (any, error) {
	*p.seen = append(*p.seen, p.label)
	return instance, nil
}

// shortCircuitProcessor 实例化前短路
type shortCircuitProcessor struct {
	substitute any
	afterInit  int
}

func (p *shortCircuitProcessor) PostProcessBeforeInstantiation(typ reflect.Type, name string) (any, error) {
	if name == "shorted" {
		return p.substitute, nil
	}
	return nil, nil
}

func (p *shortCircuitProcessor) PostProcessAfterInstantiation(instance any, name string) (bool, error) {
	return true, nil
}

func (p *shortCircuitProcessor) PostProcessProperties(pvs *bean.PropertyValues, instance any, name string) (*bean.PropertyValues, error) {
	return nil, nil
}

func (p *shortCircuitProcessor) PostProcessAfterInitialization(instance any, name string) (any, error) {
	p.afterInit++
	return instance, nil
}

func TestBeforeInstantiationShortCircuit(t *testing.T) {
	f := bean.NewFactory()
	substitute := &Counter{Value: 99}
	pp := &shortCircuitProcessor{substitute: substitute}
	f.AddPostProcessor(pp)

	f.RegisterDefinition("shorted", bean.DefinitionFor[*Counter]().WithInitMethod("Bump"))

	v, err := f.GetBean("shorted")
	if err != nil {
		t.Fatalf("GetBean failed: %v", err)
	}
	if v != substitute {
		t.Error("短路应返回替代实例")
	}
	if substitute.Value != 99 {
		t.Error("短路路径不得执行常规初始化")
	}
	if pp.afterInit == 0 {
		t.Error("短路后仍须运行初始化后阶段")
	}
}

// vetoProcessor 否决属性填充
type vetoProcessor struct{}

func (vetoProcessor) PostProcessBeforeInstantiation(typ reflect.Type, name string) (any, error) {
	return nil, nil
}

func (vetoProcessor) PostProcessAfterInstantiation(instance any, name string) (bool, error) {
	return false, nil
}

func (vetoProcessor) PostProcessProperties(pvs *bean.PropertyValues, instance any, name string) (*bean.PropertyValues, error) {
	return nil, nil
}

func TestAfterInstantiationVetoSkipsPopulation(t *testing.T) {
	f := bean.NewFactory()
	f.AddPostProcessor(vetoProcessor{})
	f.RegisterDefinition("x", bean.DefinitionFor[*X]().WithProperty("B", bean.RefTo("B")))
	f.RegisterDefinition("B", bean.DefinitionFor[*Y]())

	v, err := f.GetBean("x")
	if err != nil {
		t.Fatalf("GetBean failed: %v", err)
	}
	if v.(*X).B != nil {
		t.Error("否决后不得填充属性")
	}
}

// mergedDefCounter MergedDefinition 处理器每个定义恰好一次
type mergedDefCounter struct {
	counts map[string]int
}

func (p *mergedDefCounter) PostProcessMergedDefinition(view *bean.MergedView, typ reflect.Type, name string) {
	p.counts[name]++
}

func TestMergedDefinitionProcessorRunsOnce(t *testing.T) {
	f := bean.NewFactory()
	pp := &mergedDefCounter{counts: make(map[string]int)}
	f.AddPostProcessor(pp)

	f.RegisterDefinition("proto", bean.DefinitionFor[*Counter]().
		WithScope(bean.ScopePrototype))

	f.GetBean("proto")
	f.GetBean("proto")
	f.GetBean("proto")

	if pp.counts["proto"] != 1 {
		t.Errorf("MergedDefinition 处理器应恰好一次, got %d", pp.counts["proto"])
	}
}

// wrappingProcessor 早期引用包装（代理场景）
type wrapped struct {
	inner any
}

type wrappingProcessor struct {
	target string
	during bool // true 时在初始化后而不是早期暴露时包装
}

func (p *wrappingProcessor) PostProcessBeforeInstantiation(typ reflect.Type, name string) (any, error) {
	return nil, nil
}

func (p *wrappingProcessor) PostProcessAfterInstantiation(instance any, name string) (bool, error) {
	return true, nil
}

func (p *wrappingProcessor) PostProcessProperties(pvs *bean.PropertyValues, instance any, name string) (*bean.PropertyValues, error) {
	return nil, nil
}

func (p *wrappingProcessor) DetermineCandidateConstructors(typ reflect.Type, name string) ([]any, error) {
	return nil, nil
}

func (p *wrappingProcessor) GetEarlyBeanReference(instance any, name string) (any, error) {
	if name == p.target && !p.during {
		return &wrapped{inner: instance}, nil
	}
	return instance, nil
}

func (p *wrappingProcessor) PredictBeanType(typ reflect.Type, name string) reflect.Type {
	return nil
}

func (p *wrappingProcessor) PostProcessAfterInitialization(instance any, name string) (any, error) {
	if name == p.target && p.during {
		return &wrapped{inner: instance}, nil
	}
	return instance, nil
}

// cycleA/cycleB 泛化引用循环, 字段为 any 以容纳包装类型
type cycleA struct {
	B *cycleB
}

type cycleB struct {
	A any
}

func TestEarlyWrappingPreservesIdentity(t *testing.T) {
	f := bean.NewFactory()
	f.AddPostProcessor(&wrappingProcessor{target: "A"})
	f.RegisterDefinition("A", bean.DefinitionFor[*cycleA]().WithProperty("B", bean.RefTo("B")))
	f.RegisterDefinition("B", bean.DefinitionFor[*cycleB]().WithProperty("A", bean.RefTo("A")))

	v, err := f.GetBean("A")
	if err != nil {
		t.Fatalf("GetBean failed: %v", err)
	}
	w, ok := v.(*wrapped)
	if !ok {
		t.Fatalf("早期包装后应发布包装实例, 得到 %T", v)
	}
	b := w.inner.(*cycleA).B
	if b.A != v {
		t.Error("循环伙伴观察到的必须与发布实例一致")
	}
}

func TestLateWrappingWithRawInjectionFails(t *testing.T) {
	f := bean.NewFactory()
	f.AddPostProcessor(&wrappingProcessor{target: "A", during: true})
	f.RegisterDefinition("A", bean.DefinitionFor[*cycleA]().WithProperty("B", bean.RefTo("B")))
	f.RegisterDefinition("B", bean.DefinitionFor[*cycleB]().WithProperty("A", bean.RefTo("A")))

	_, err := f.GetBean("A")
	var cycleErr *bean.CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("初始化期间包装且原始引用已注入时应报错, 得到 %v", err)
	}
}

func TestLateWrappingAllowedWhenConfigured(t *testing.T) {
	logger := logging.NewCaptureLogger()
	f := bean.NewFactory(bean.WithRawInjectionDespiteWrapping(), bean.WithLogger(logger))
	f.AddPostProcessor(&wrappingProcessor{target: "A", during: true})
	f.RegisterDefinition("A", bean.DefinitionFor[*cycleA]().WithProperty("B", bean.RefTo("B")))
	f.RegisterDefinition("B", bean.DefinitionFor[*cycleB]().WithProperty("A", bean.RefTo("A")))

	v, err := f.GetBean("A")
	if err != nil {
		t.Fatalf("兼容模式应继续, 得到 %v", err)
	}
	if _, ok := v.(*wrapped); !ok {
		t.Errorf("发布的应是包装实例, 得到 %T", v)
	}
	if len(logger.Entries) == 0 {
		t.Error("兼容模式应记录警告")
	}
}

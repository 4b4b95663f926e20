package bean_test

import (
	"reflect"
	"testing"

	"github.com/gocrud/beans/bean"
)

type externalTarget struct {
	C     *Counter `inject:""`
	ready bool
}

func (e *externalTarget) PostConstruct() { e.ready = true }

func TestCreateBeanOutsideRegistry(t *testing.T) {
	f := bean.NewFactory()
	f.RegisterDefinition("counter", bean.DefinitionFor[*Counter]())

	v, err := f.CreateBean(reflect.TypeOf(&externalTarget{}))
	if err != nil {
		t.Fatalf("CreateBean failed: %v", err)
	}
	target := v.(*externalTarget)
	if target.C == nil {
		t.Error("CreateBean 应完成注入")
	}
	if !target.ready {
		t.Error("CreateBean 应运行初始化链")
	}
	if f.ContainsSingleton(reflect.TypeOf(&externalTarget{}).String()) {
		t.Error("CreateBean 不得注册单例")
	}

	v2, _ := f.CreateBean(reflect.TypeOf(&externalTarget{}))
	if v == v2 {
		t.Error("CreateBean 是 prototype 语义")
	}
}

func TestAutowireExistingInstance(t *testing.T) {
	f := bean.NewFactory()
	f.RegisterDefinition("counter", bean.DefinitionFor[*Counter]())

	target := &externalTarget{}
	if err := f.AutowireBean(target); err != nil {
		t.Fatalf("AutowireBean failed: %v", err)
	}
	if target.C == nil {
		t.Error("既有实例应被注入")
	}
	if target.ready {
		t.Error("AutowireBean 不运行初始化回调")
	}
}

func TestConfigureBean(t *testing.T) {
	f := bean.NewFactory()
	f.RegisterDefinition("counter", bean.DefinitionFor[*Counter]())
	f.RegisterDefinition("target", bean.DefinitionFor[*externalTarget]())

	target := &externalTarget{}
	v, err := f.ConfigureBean(target, "target")
	if err != nil {
		t.Fatalf("ConfigureBean failed: %v", err)
	}
	got := v.(*externalTarget)
	if got.C == nil || !got.ready {
		t.Error("ConfigureBean 应填充并初始化")
	}
}

func TestApplyBeanPropertyValues(t *testing.T) {
	f := bean.NewFactory()
	f.RegisterDefinition("x", bean.DefinitionFor[*X]().WithProperty("B", bean.RefTo("y")))
	f.RegisterDefinition("y", bean.DefinitionFor[*Y]())

	x := &X{}
	if err := f.ApplyBeanPropertyValues(x, "x"); err != nil {
		t.Fatalf("ApplyBeanPropertyValues failed: %v", err)
	}
	if x.B == nil {
		t.Error("声明的属性值应被应用")
	}
}

func TestInitializeBeanStandalone(t *testing.T) {
	f := bean.NewFactory()
	probe := &lifecycleProbe{}
	v, err := f.InitializeBean(probe, "standalone")
	if err != nil {
		t.Fatalf("InitializeBean failed: %v", err)
	}
	if v.(*lifecycleProbe).initCount != 1 {
		t.Error("初始化链应运行 PostConstruct")
	}
}

func TestDestroyBeanStandalone(t *testing.T) {
	f := bean.NewFactory()
	probe := &lifecycleProbe{}
	f.DestroyBean(probe)
	if probe.destroyCount != 1 {
		t.Error("DestroyBean 应立即执行销毁链")
	}
}

func TestApplyPostProcessorsPublicWrappers(t *testing.T) {
	var seen []string
	f := bean.NewFactory(bean.WithoutDefaultProcessors())
	f.AddPostProcessor(&unorderedProbe{label: "before", seen: &seen})

	v, err := f.ApplyBeanPostProcessorsBeforeInitialization(&Counter{}, "c")
	if err != nil || v == nil {
		t.Fatalf("wrapper failed: %v", err)
	}
	if len(seen) != 1 {
		t.Error("公开包装应调用处理器链")
	}
}

package bean

import (
	"errors"
	"testing"

	"github.com/gocrud/beans/logging"
)

func TestThreeLevelCachePromotion(t *testing.T) {
	r := newSingletonRegistry(logging.NewNopLogger())

	produced := 0
	r.inCreation.Store("a", &inflightCreation{done: make(chan struct{})})
	r.addSingletonFactory("a", func() (any, error) {
		produced++
		return &struct{ V int }{V: 1}, nil
	})

	// 首次访问运行生产者并晋升到二级
	v1, err := r.getSingleton("a", true)
	if err != nil || v1 == nil {
		t.Fatalf("早期引用获取失败: %v", err)
	}
	v2, _ := r.getSingleton("a", true)
	if v1 != v2 {
		t.Error("生产者应至多运行一次")
	}
	if produced != 1 {
		t.Errorf("produced = %d", produced)
	}

	// 发布到一级后清除下两级
	r.addSingleton("a", v1)
	r.mu.Lock()
	_, hasFactory := r.singletonFactories["a"]
	_, hasEarly := r.earlySingletonObjects["a"]
	r.mu.Unlock()
	if hasFactory || hasEarly {
		t.Error("名称只能出现在一级缓存")
	}
}

func TestEarlyReferenceRequiresInCreation(t *testing.T) {
	r := newSingletonRegistry(logging.NewNopLogger())

	// 不在创建中时不得安装三级生产者
	r.addSingletonFactory("x", func() (any, error) { return 1, nil })
	r.mu.Lock()
	_, installed := r.singletonFactories["x"]
	r.mu.Unlock()
	if installed {
		t.Error("创建中之外安装三级生产者应被忽略")
	}

	if v, _ := r.getSingleton("x", true); v != nil {
		t.Error("未创建中的名称不应返回早期引用")
	}
}

func TestDirectRecursionFails(t *testing.T) {
	r := newSingletonRegistry(logging.NewNopLogger())
	state := newResolutionState()
	_, err := r.getSingletonOrCreate(state, "a", func() (any, error) {
		return r.getSingletonOrCreate(state, "a", func() (any, error) { return 1, nil })
	})
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("无早期暴露的直接递归应报 CycleError, 得到 %v", err)
	}
	// 失败后标记清除，可重试
	if _, err := r.getSingletonOrCreate(newResolutionState(), "a", func() (any, error) { return 1, nil }); err != nil {
		t.Fatalf("重试应成功: %v", err)
	}
}

func TestConcurrentCreationWaits(t *testing.T) {
	r := newSingletonRegistry(logging.NewNopLogger())
	started := make(chan struct{})
	release := make(chan struct{})

	instance := &struct{ V int }{V: 1}
	go func() {
		r.getSingletonOrCreate(newResolutionState(), "a", func() (any, error) {
			close(started)
			<-release
			return instance, nil
		})
	}()

	<-started
	done := make(chan any, 1)
	go func() {
		v, _ := r.getSingletonOrCreate(newResolutionState(), "a", func() (any, error) {
			t.Error("等待方不应重复创建")
			return nil, nil
		})
		done <- v
	}()

	close(release)
	if v := <-done; v != instance {
		t.Error("并发请求方应得到创建方的实例")
	}
}

func TestCreationFailureCleansState(t *testing.T) {
	r := newSingletonRegistry(logging.NewNopLogger())
	boom := errors.New("boom")
	_, err := r.getSingletonOrCreate(newResolutionState(), "a", func() (any, error) {
		r.addSingletonFactory("a", func() (any, error) { return 1, nil })
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	r.mu.Lock()
	_, hasFactory := r.singletonFactories["a"]
	r.mu.Unlock()
	if hasFactory || r.isCurrentlyInCreation("a") {
		t.Error("失败后必须清除部分发布的条目与创建标记")
	}
}

type destroyRecorder struct {
	name  string
	order *[]string
}

func (d *destroyRecorder) Destroy() error {
	*d.order = append(*d.order, d.name)
	return nil
}

func TestDestructionReverseOrder(t *testing.T) {
	f := NewFactory()
	var order []string
	for _, name := range []string{"one", "two", "three"} {
		n := name
		def := DefinitionFor[*destroyRecorder]().
			WithSupplier(func(SupplierFactory) (any, error) {
				return &destroyRecorder{name: n, order: &order}, nil
			})
		f.RegisterDefinition(n, def)
		if _, err := f.GetBean(n); err != nil {
			t.Fatalf("GetBean %s failed: %v", n, err)
		}
	}

	f.DestroySingletons()
	if len(order) != 3 || order[0] != "three" || order[2] != "one" {
		t.Errorf("销毁应为注册逆序, order = %v", order)
	}
}

func TestDependentDestroyedFirst(t *testing.T) {
	f := NewFactory()
	var order []string
	f.RegisterDefinition("dep", DefinitionFor[*destroyRecorder]().
		WithSupplier(func(SupplierFactory) (any, error) {
			return &destroyRecorder{name: "dep", order: &order}, nil
		}))
	f.RegisterDefinition("user", DefinitionFor[*destroyRecorder]().
		WithSupplier(func(sf SupplierFactory) (any, error) {
			if _, err := sf.GetBean("dep"); err != nil {
				return nil, err
			}
			return &destroyRecorder{name: "user", order: &order}, nil
		}))

	// dep 先注册为单例, user 依赖 dep
	if _, err := f.GetBean("user"); err != nil {
		t.Fatalf("GetBean failed: %v", err)
	}

	f.DestroySingletons()
	if len(order) != 2 || order[0] != "user" || order[1] != "dep" {
		t.Errorf("依赖者应先销毁, order = %v", order)
	}
}

func TestDestructionErrorSwallowed(t *testing.T) {
	logger := logging.NewCaptureLogger()
	f := NewFactory(WithLogger(logger))
	var order []string
	f.RegisterDefinition("bad", DefinitionFor[*failingDisposable]().
		WithSupplier(func(SupplierFactory) (any, error) { return &failingDisposable{}, nil }))
	f.RegisterDefinition("good", DefinitionFor[*destroyRecorder]().
		WithSupplier(func(SupplierFactory) (any, error) {
			return &destroyRecorder{name: "good", order: &order}, nil
		}))
	f.GetBean("bad")
	f.GetBean("good")

	f.DestroySingletons()
	if len(order) != 1 {
		t.Error("一个 bean 的销毁失败不得阻断其余销毁")
	}
	if len(logger.Entries) == 0 {
		t.Error("销毁错误应被记录")
	}
}

type failingDisposable struct{}

func (d *failingDisposable) Destroy() error { return errors.New("destroy boom") }

func TestInferredDestroyMethod(t *testing.T) {
	f := NewFactory()
	closed := false
	f.RegisterDefinition("c", DefinitionFor[*closable]().
		WithSupplier(func(SupplierFactory) (any, error) {
			return &closable{closed: &closed}, nil
		}).WithDestroyMethod(DestroyInfer()))
	f.GetBean("c")
	f.DestroySingletons()
	if !closed {
		t.Error("推断销毁应调用 Close")
	}
}

type closable struct {
	closed *bool
}

func (c *closable) Close() error {
	*c.closed = true
	return nil
}

func TestDestroySingleBeanWithDependents(t *testing.T) {
	f := NewFactory()
	var order []string
	f.RegisterDefinition("dep", DefinitionFor[*destroyRecorder]().
		WithSupplier(func(SupplierFactory) (any, error) {
			return &destroyRecorder{name: "dep", order: &order}, nil
		}))
	f.RegisterDefinition("user", DefinitionFor[*destroyRecorder]().
		WithSupplier(func(sf SupplierFactory) (any, error) {
			if _, err := sf.GetBean("dep"); err != nil {
				return nil, err
			}
			return &destroyRecorder{name: "user", order: &order}, nil
		}))
	f.GetBean("user")

	f.DestroySingleton("dep")
	if len(order) != 2 || order[0] != "user" {
		t.Errorf("销毁被依赖者应先销毁依赖者, order = %v", order)
	}
	if f.ContainsSingleton("user") || f.ContainsSingleton("dep") {
		t.Error("两者都应从注册表移除")
	}
}

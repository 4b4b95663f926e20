package bean

import (
	"sync"

	"github.com/gocrud/beans/logging"
)

// ObjectFactory 零参实例生产者。
type ObjectFactory func() (any, error)

// singletonRegistry 单例注册表：身份缓存、三级早期引用缓存、
// 创建中集合、可销毁 bean 列表与 bean 间依赖图。
//
// 三级缓存不变量：同一名称任一时刻至多出现在三级缓存的其中一级；
// singletonFactories → earlySingletonObjects → singletonObjects
// 的晋升在一次创建内单调。
type singletonRegistry struct {
	// singletonObjects 一级缓存：完全构造的实例。并发 map 支持无锁读。
	singletonObjects sync.Map // string -> any

	// mu 单例互斥锁，保护以下所有缓存的变更。
	mu sync.Mutex

	// earlySingletonObjects 二级缓存：为打破循环暴露的部分构造实例。
	earlySingletonObjects map[string]any

	// singletonFactories 三级缓存：按需合成早期引用的生产者。
	singletonFactories map[string]ObjectFactory

	// registeredSingletons 已注册单例名称，保持注册顺序；销毁顺序由 disposableNames 决定。
	registeredSingletons []string

	// inCreation 创建中集合：值记录创建归属的解析链，用于区分
	// 同链重入（循环，报错）与跨 goroutine 竞争（等待）。无锁读。
	inCreation sync.Map // string -> *inflightCreation

	// disposableNames/disposableBeans 插入有序的待销毁 bean。
	disposableNames []string
	disposableBeans map[string]*disposableAdapter

	// dependentBeanMap 正向边：name -> 依赖它的 bean。
	dependentBeanMap map[string][]string

	// dependenciesForBeanMap 反向边：name -> 它依赖的 bean。
	dependenciesForBeanMap map[string][]string

	logger logging.Logger
}

func newSingletonRegistry(logger logging.Logger) *singletonRegistry {
	return &singletonRegistry{
		earlySingletonObjects:  make(map[string]any),
		singletonFactories:     make(map[string]ObjectFactory),
		disposableBeans:        make(map[string]*disposableAdapter),
		dependentBeanMap:       make(map[string][]string),
		dependenciesForBeanMap: make(map[string][]string),
		logger:                 logger,
	}
}

// addSingleton 发布完全构造的实例到一级缓存并清除下两级。
func (r *singletonRegistry) addSingleton(name string, instance any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.singletonObjects.Store(name, instance)
	delete(r.singletonFactories, name)
	delete(r.earlySingletonObjects, name)
	r.recordRegistrationLocked(name)
}

// registerSingleton 外部直接注册既有实例。
func (r *singletonRegistry) registerSingleton(name string, instance any) {
	r.addSingleton(name, instance)
}

func (r *singletonRegistry) recordRegistrationLocked(name string) {
	for _, n := range r.registeredSingletons {
		if n == name {
			return
		}
	}
	r.registeredSingletons = append(r.registeredSingletons, name)
}

// addSingletonFactory 仅当名称处于创建中时安装三级生产者，
// 并清除已有的二级条目。
func (r *singletonRegistry) addSingletonFactory(name string, producer ObjectFactory) {
	if !r.isCurrentlyInCreation(name) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.singletonObjects.Load(name); ok {
		return
	}
	r.singletonFactories[name] = producer
	delete(r.earlySingletonObjects, name)
	r.recordRegistrationLocked(name)
}

// getSingleton 返回完全构造的实例；allowEarly 且名称创建中时返回
// 早期引用（首次访问时三级生产者运行一次并晋升到二级）。
func (r *singletonRegistry) getSingleton(name string, allowEarly bool) (any, error) {
	// 一级缓存无锁快速命中
	if v, ok := r.singletonObjects.Load(name); ok {
		return v, nil
	}
	if !r.isCurrentlyInCreation(name) {
		return nil, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.singletonObjects.Load(name); ok {
		return v, nil
	}
	if v, ok := r.earlySingletonObjects[name]; ok {
		return v, nil
	}
	if !allowEarly {
		return nil, nil
	}
	producer, ok := r.singletonFactories[name]
	if !ok {
		return nil, nil
	}
	early, err := producer()
	if err != nil {
		return nil, err
	}
	r.earlySingletonObjects[name] = early
	delete(r.singletonFactories, name)
	return early, nil
}

// inflightCreation 一次进行中的单例创建。owner 标识发起创建的
// 解析链；done 在创建结束（无论成败）时关闭。
type inflightCreation struct {
	owner    *resolutionState
	done     chan struct{}
	instance any
	err      error
}

// getSingletonOrCreate 双重检查：已存在直接返回；否则标记创建中并
// 调用 producer，成功后发布到一级缓存，失败则传播并清除部分发布的
// 条目。同一解析链的重入（无早期暴露的直接递归）报循环错误；
// 其他 goroutine 的并发请求等待创建结束。
func (r *singletonRegistry) getSingletonOrCreate(state *resolutionState, name string, producer ObjectFactory) (any, error) {
	for {
		if v, ok := r.singletonObjects.Load(name); ok {
			return v, nil
		}
		r.mu.Lock()
		if v, ok := r.singletonObjects.Load(name); ok {
			r.mu.Unlock()
			return v, nil
		}
		if existing, ok := r.inCreation.Load(name); ok {
			fl := existing.(*inflightCreation)
			if fl.owner == state {
				r.mu.Unlock()
				return nil, newCycleError(name, "单例正在创建中，禁止无早期暴露的直接递归")
			}
			r.mu.Unlock()
			<-fl.done
			if fl.err != nil {
				// 创建方失败后重试从干净状态开始
				continue
			}
			return fl.instance, nil
		}
		fl := &inflightCreation{owner: state, done: make(chan struct{})}
		r.inCreation.Store(name, fl)
		r.mu.Unlock()

		instance, err := producer()

		r.mu.Lock()
		r.inCreation.Delete(name)
		if err != nil {
			delete(r.singletonFactories, name)
			delete(r.earlySingletonObjects, name)
		} else {
			r.singletonObjects.Store(name, instance)
			delete(r.singletonFactories, name)
			delete(r.earlySingletonObjects, name)
			r.recordRegistrationLocked(name)
		}
		fl.instance, fl.err = instance, err
		close(fl.done)
		r.mu.Unlock()
		return instance, err
	}
}

// isCurrentlyInCreation 名称是否处于创建中。
func (r *singletonRegistry) isCurrentlyInCreation(name string) bool {
	_, ok := r.inCreation.Load(name)
	return ok
}

// containsSingleton 一级缓存是否含有该名称。
func (r *singletonRegistry) containsSingleton(name string) bool {
	_, ok := r.singletonObjects.Load(name)
	return ok
}

// singletonNames 已注册单例名称（注册顺序）。
func (r *singletonRegistry) singletonNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.registeredSingletons...)
}

// removeSingleton 从所有缓存中移除名称。
func (r *singletonRegistry) removeSingleton(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.singletonObjects.Delete(name)
	delete(r.singletonFactories, name)
	delete(r.earlySingletonObjects, name)
	for i, n := range r.registeredSingletons {
		if n == name {
			r.registeredSingletons = append(r.registeredSingletons[:i], r.registeredSingletons[i+1:]...)
			break
		}
	}
}

// registerDisposableBean 登记需要销毁回调的 bean（插入有序）。
func (r *singletonRegistry) registerDisposableBean(name string, adapter *disposableAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.disposableBeans[name]; !ok {
		r.disposableNames = append(r.disposableNames, name)
	}
	r.disposableBeans[name] = adapter
}

// registerDependentBean 记录依赖边：dependent 依赖 dep。
func (r *singletonRegistry) registerDependentBean(dep, dependent string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !containsString(r.dependentBeanMap[dep], dependent) {
		r.dependentBeanMap[dep] = append(r.dependentBeanMap[dep], dependent)
	}
	if !containsString(r.dependenciesForBeanMap[dependent], dep) {
		r.dependenciesForBeanMap[dependent] = append(r.dependenciesForBeanMap[dependent], dep)
	}
}

// getDependentBeans 依赖给定 bean 的 bean 名称。
func (r *singletonRegistry) getDependentBeans(name string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.dependentBeanMap[name]...)
}

// getDependenciesForBean 给定 bean 依赖的 bean 名称。
func (r *singletonRegistry) getDependenciesForBean(name string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.dependenciesForBeanMap[name]...)
}

// isDependent dependent 是否（传递地）依赖 dep。depends-on 成环检测用。
func (r *singletonRegistry) isDependent(dep, dependent string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isDependentLocked(dep, dependent, make(map[string]bool))
}

func (r *singletonRegistry) isDependentLocked(dep, dependent string, seen map[string]bool) bool {
	if seen[dep] {
		return false
	}
	seen[dep] = true
	for _, d := range r.dependentBeanMap[dep] {
		if d == dependent {
			return true
		}
		if r.isDependentLocked(d, dependent, seen) {
			return true
		}
	}
	return false
}

// destroySingleton 销毁单个单例：先销毁其依赖者，再执行自身回调。
func (r *singletonRegistry) destroySingleton(name string) {
	r.removeSingleton(name)

	r.mu.Lock()
	adapter := r.disposableBeans[name]
	delete(r.disposableBeans, name)
	for i, n := range r.disposableNames {
		if n == name {
			r.disposableNames = append(r.disposableNames[:i], r.disposableNames[i+1:]...)
			break
		}
	}
	dependents := append([]string(nil), r.dependentBeanMap[name]...)
	delete(r.dependentBeanMap, name)
	r.mu.Unlock()

	// 依赖者先于被依赖者销毁
	for _, dependent := range dependents {
		r.destroySingleton(dependent)
	}

	if adapter != nil {
		adapter.destroy()
	}

	r.mu.Lock()
	// 清理以该 bean 为端点的剩余边
	for key, deps := range r.dependentBeanMap {
		filtered := deps[:0]
		for _, d := range deps {
			if d != name {
				filtered = append(filtered, d)
			}
		}
		if len(filtered) == 0 {
			delete(r.dependentBeanMap, key)
		} else {
			r.dependentBeanMap[key] = filtered
		}
	}
	delete(r.dependenciesForBeanMap, name)
	r.mu.Unlock()
}

// destroySingletons 按注册逆序销毁全部单例。
func (r *singletonRegistry) destroySingletons() {
	r.mu.Lock()
	names := append([]string(nil), r.disposableNames...)
	r.mu.Unlock()

	for i := len(names) - 1; i >= 0; i-- {
		r.destroySingleton(names[i])
	}

	r.mu.Lock()
	r.singletonObjects.Range(func(k, _ any) bool {
		r.singletonObjects.Delete(k)
		return true
	})
	r.singletonFactories = make(map[string]ObjectFactory)
	r.earlySingletonObjects = make(map[string]any)
	r.registeredSingletons = nil
	r.dependentBeanMap = make(map[string][]string)
	r.dependenciesForBeanMap = make(map[string][]string)
	r.mu.Unlock()
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

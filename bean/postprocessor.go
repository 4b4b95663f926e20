package bean

import (
	"reflect"
	"sort"
	"sync"
)

// 后置处理器按能力拆分为若干小接口，实现者自行选择子集。
// 注册统一通过 Factory.AddPostProcessor，工厂按阶段做类型断言分发。

// BeforeInitialization 初始化前回调。返回非 nil 实例替换当前实例。
type BeforeInitialization interface {
	PostProcessBeforeInitialization(instance any, name string) (any, error)
}

// AfterInitialization 初始化后回调。返回 nil 实例短路余下的链。
type AfterInitialization interface {
	PostProcessAfterInitialization(instance any, name string) (any, error)
}

// MergedDefinitionPostProcessor 改写合并后的定义，每个定义恰好调用一次。
type MergedDefinitionPostProcessor interface {
	PostProcessMergedDefinition(md *MergedView, typ reflect.Type, name string)
}

// InstantiationAware 实例化阶段的扩展点。
type InstantiationAware interface {
	// PostProcessBeforeInstantiation 返回非 nil 实例则短路常规创建。
	PostProcessBeforeInstantiation(typ reflect.Type, name string) (any, error)

	// PostProcessAfterInstantiation 返回 false 跳过属性填充。
	PostProcessAfterInstantiation(instance any, name string) (bool, error)

	// PostProcessProperties 追加/改写属性值；注解驱动注入经此执行。
	// 返回 nil 表示沿用传入的属性值。
	PostProcessProperties(pvs *PropertyValues, instance any, name string) (*PropertyValues, error)
}

// SmartInstantiationAware 进一步的实例化感知能力。
type SmartInstantiationAware interface {
	InstantiationAware

	// DetermineCandidateConstructors 提名候选构造函数；nil 表示不提名。
	DetermineCandidateConstructors(typ reflect.Type, name string) ([]any, error)

	// GetEarlyBeanReference 早期引用暴露时包装原始实例（如代理）。
	GetEarlyBeanReference(instance any, name string) (any, error)

	// PredictBeanType 预测最终 bean 类型；nil 表示无法预测。
	PredictBeanType(typ reflect.Type, name string) reflect.Type
}

// DestructionAware 销毁阶段的扩展点。
type DestructionAware interface {
	PostProcessBeforeDestruction(instance any, name string) error
	RequiresDestruction(instance any) bool
}

// Ordered 显式排序值，越小越靠前。
type Ordered interface {
	Order() int
}

// PriorityOrdered 标记接口：优先于普通 Ordered 实现执行。
type PriorityOrdered interface {
	Ordered
	PriorityOrdered()
}

// postProcessorPipeline 已注册处理器的有序集合。
// 排序键：PriorityOrdered > Ordered > 未排序；同组内按 Order 值；
// 再按注册顺序保持稳定。按能力预筛的切片在注册时重建。
type postProcessorPipeline struct {
	mu  sync.RWMutex
	all []registeredProcessor

	// 能力缓存，避免每个阶段重复断言
	mergedDefinition    []MergedDefinitionPostProcessor
	instantiationAware  []InstantiationAware
	smartInstantiation  []SmartInstantiationAware
	beforeInit          []BeforeInitialization
	afterInit           []AfterInitialization
	destructionAware    []DestructionAware
	hasInstantiationPPs bool
}

type registeredProcessor struct {
	pp  any
	seq int // 注册顺序
}

func newPostProcessorPipeline() *postProcessorPipeline {
	return &postProcessorPipeline{}
}

// add 注册处理器并重建能力缓存。
func (p *postProcessorPipeline) add(pp any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// 重复注册时移到末尾（以最后一次注册顺序为准）
	for i := range p.all {
		if p.all[i].pp == pp {
			p.all = append(p.all[:i], p.all[i+1:]...)
			break
		}
	}
	p.all = append(p.all, registeredProcessor{pp: pp, seq: len(p.all)})

	sort.SliceStable(p.all, func(i, j int) bool {
		return processorSortKey(p.all[i].pp).less(processorSortKey(p.all[j].pp))
	})
	p.rebuildLocked()
}

type sortKey struct {
	group int // 0=PriorityOrdered 1=Ordered 2=未排序
	order int
}

func (a sortKey) less(b sortKey) bool {
	if a.group != b.group {
		return a.group < b.group
	}
	return a.order < b.order
}

func processorSortKey(pp any) sortKey {
	if po, ok := pp.(PriorityOrdered); ok {
		return sortKey{group: 0, order: po.Order()}
	}
	if o, ok := pp.(Ordered); ok {
		return sortKey{group: 1, order: o.Order()}
	}
	return sortKey{group: 2}
}

func (p *postProcessorPipeline) rebuildLocked() {
	p.mergedDefinition = p.mergedDefinition[:0]
	p.instantiationAware = p.instantiationAware[:0]
	p.smartInstantiation = p.smartInstantiation[:0]
	p.beforeInit = p.beforeInit[:0]
	p.afterInit = p.afterInit[:0]
	p.destructionAware = p.destructionAware[:0]

	for _, r := range p.all {
		if v, ok := r.pp.(MergedDefinitionPostProcessor); ok {
			p.mergedDefinition = append(p.mergedDefinition, v)
		}
		if v, ok := r.pp.(InstantiationAware); ok {
			p.instantiationAware = append(p.instantiationAware, v)
		}
		if v, ok := r.pp.(SmartInstantiationAware); ok {
			p.smartInstantiation = append(p.smartInstantiation, v)
		}
		if v, ok := r.pp.(BeforeInitialization); ok {
			p.beforeInit = append(p.beforeInit, v)
		}
		if v, ok := r.pp.(AfterInitialization); ok {
			p.afterInit = append(p.afterInit, v)
		}
		if v, ok := r.pp.(DestructionAware); ok {
			p.destructionAware = append(p.destructionAware, v)
		}
	}
	p.hasInstantiationPPs = len(p.instantiationAware) > 0
}

func (p *postProcessorPipeline) mergedDefinitionProcessors() []MergedDefinitionPostProcessor {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.mergedDefinition
}

func (p *postProcessorPipeline) instantiationAwareProcessors() []InstantiationAware {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.instantiationAware
}

func (p *postProcessorPipeline) smartInstantiationProcessors() []SmartInstantiationAware {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.smartInstantiation
}

func (p *postProcessorPipeline) beforeInitProcessors() []BeforeInitialization {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.beforeInit
}

func (p *postProcessorPipeline) afterInitProcessors() []AfterInitialization {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.afterInit
}

func (p *postProcessorPipeline) destructionAwareProcessors() []DestructionAware {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.destructionAware
}

func (p *postProcessorPipeline) hasInstantiationAware() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.hasInstantiationPPs
}

// MergedView MergedDefinition 后置处理器可见的合并定义视图。
// 处理器通过它读取定义属性并登记外部接管的配置成员。
type MergedView struct {
	md *mergedDefinition
}

// Definition 合并后的定义（可改写）。
func (v *MergedView) Definition() *Definition { return v.md.Definition }

// Name bean 名称。
func (v *MergedView) Name() string { return v.md.name }

// RegisterExternallyManagedMember 登记外部接管的注入点。
func (v *MergedView) RegisterExternallyManagedMember(id string) {
	v.md.registerExternallyManagedMember(id)
}

// IsExternallyManagedMember 注入点是否已被接管。
func (v *MergedView) IsExternallyManagedMember(id string) bool {
	return v.md.isExternallyManagedMember(id)
}

// RegisterExternallyManagedInit 登记外部接管的初始化/销毁回调。
func (v *MergedView) RegisterExternallyManagedInit(id string) {
	v.md.registerExternallyManagedInit(id)
}

// IsExternallyManagedInit 回调是否已被接管。
func (v *MergedView) IsExternallyManagedInit(id string) bool {
	return v.md.isExternallyManagedInit(id)
}

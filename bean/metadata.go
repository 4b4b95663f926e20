package bean

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gocrud/beans/logging"
)

// 注解驱动注入在 Go 中的对应物：结构体标签与方法命名约定。
//
//	字段注入   `inject:""` / `inject:"beanName"` / `inject:",optional"`
//	lookup     `lookup:"beanName"`（func 字段，替换为 GetBean 委托）
//	方法注入   以 Inject 为前缀、至少一个参数的导出方法
//	初始化     零参方法 PostConstruct
//	销毁       零参方法 PreDestroy
const (
	injectTag           = "inject"
	lookupTag           = "lookup"
	injectMethodPrefix  = "Inject"
	initCallbackName    = "PostConstruct"
	destroyCallbackName = "PreDestroy"
)

type elementKind int

const (
	fieldElement elementKind = iota
	methodElement
)

// injectedElement 单个注入点：字段或方法。
type injectedElement struct {
	kind elementKind

	// 字段注入
	fieldIndex []int
	fieldName  string
	fieldType  reflect.Type

	// 方法注入
	method reflect.Method

	required bool
	beanName string // 标签中的命名注入

	// shortcut 首次成功解析后缓存的目标描述符，单例解析一次，
	// prototype 重解析但走捷径。
	mu       sync.Mutex
	shortcut *DependencyDescriptor
}

func (e *injectedElement) identifier(owner reflect.Type) string {
	if e.kind == fieldElement {
		return owner.String() + "." + e.fieldName
	}
	return owner.String() + "." + e.method.Name
}

// injectionMetadata 某个类型的注入点清单。
type injectionMetadata struct {
	targetType reflect.Type
	elements   []*injectedElement
}

// lifecycleElement 初始化/销毁回调：限定标识符在非导出方法时带上
// 声明类型，父级回调与子级同名方法得以共存。
type lifecycleElement struct {
	methodName string
	identifier string
	fieldPath  []int // 声明层级的字段路径（空为最外层）
}

// lifecycleMetadata 某个类型的初始化与销毁回调清单。
type lifecycleMetadata struct {
	initElements    []lifecycleElement
	destroyElements []lifecycleElement
}

// metadataScanner 按类型反射提取注入点与生命周期回调并缓存。
// 缓存按类型身份失效（不同类型自然不同键）。
type metadataScanner struct {
	injectionCache sync.Map // reflect.Type -> *injectionMetadata
	lifecycleCache sync.Map // reflect.Type -> *lifecycleMetadata

	ctorMu         sync.RWMutex
	requiredCtors  map[reflect.Type][]any
	optionalCtors  map[reflect.Type][]any
	defaultCtors   map[reflect.Type]any
	singleCtors    map[reflect.Type]any
	logger         logging.Logger
}

func newMetadataScanner() *metadataScanner {
	return &metadataScanner{
		requiredCtors: make(map[reflect.Type][]any),
		optionalCtors: make(map[reflect.Type][]any),
		defaultCtors:  make(map[reflect.Type]any),
		singleCtors:   make(map[reflect.Type]any),
		logger:        logging.NewNopLogger(),
	}
}

// RegisterConstructor 登记类型的候选构造函数。required 标记的候选
// 在确定时优先；零参候选自动成为默认回退。
func (s *metadataScanner) RegisterConstructor(fn any, required bool) error {
	ft := reflect.TypeOf(fn)
	if ft == nil || ft.Kind() != reflect.Func || ft.NumOut() == 0 {
		return fmt.Errorf("bean: 构造候选必须是带返回值的函数")
	}
	target := ft.Out(0)
	s.ctorMu.Lock()
	defer s.ctorMu.Unlock()
	if required {
		s.requiredCtors[target] = append(s.requiredCtors[target], fn)
	} else {
		s.optionalCtors[target] = append(s.optionalCtors[target], fn)
		if ft.NumIn() == 0 {
			s.defaultCtors[target] = fn
		}
	}
	if _, ok := s.singleCtors[target]; ok {
		s.singleCtors[target] = nil
	} else {
		s.singleCtors[target] = fn
	}
	return nil
}

// candidateConstructors 按确定规则给出类型的候选集合：
// required 标记的候选；否则非 required 候选（含默认回退）；
// 否则唯一登记的候选。
func (s *metadataScanner) candidateConstructors(typ reflect.Type) []any {
	s.ctorMu.RLock()
	defer s.ctorMu.RUnlock()
	if req := s.requiredCtors[typ]; len(req) > 0 {
		return append([]any(nil), req...)
	}
	if opt := s.optionalCtors[typ]; len(opt) > 0 {
		out := append([]any(nil), opt...)
		if def, ok := s.defaultCtors[typ]; ok && !containsFunc(out, def) {
			out = append(out, def)
		}
		return out
	}
	if single := s.singleCtors[typ]; single != nil {
		return []any{single}
	}
	return nil
}

func containsFunc(list []any, fn any) bool {
	fv := reflect.ValueOf(fn).Pointer()
	for _, c := range list {
		if reflect.ValueOf(c).Pointer() == fv {
			return true
		}
	}
	return false
}

// injectionMetadataFor 取类型的注入元数据，懒构建并缓存。
func (s *metadataScanner) injectionMetadataFor(typ reflect.Type) *injectionMetadata {
	if v, ok := s.injectionCache.Load(typ); ok {
		return v.(*injectionMetadata)
	}
	meta := s.buildInjectionMetadata(typ)
	if actual, loaded := s.injectionCache.LoadOrStore(typ, meta); loaded {
		return actual.(*injectionMetadata)
	}
	return meta
}

// buildInjectionMetadata 沿内嵌链父级优先遍历：内嵌（父）声明的注入
// 点先于自身字段执行。
func (s *metadataScanner) buildInjectionMetadata(typ reflect.Type) *injectionMetadata {
	meta := &injectionMetadata{targetType: typ}
	st := typ
	if st.Kind() == reflect.Ptr {
		st = st.Elem()
	}
	if st.Kind() == reflect.Struct {
		s.collectFieldElements(st, nil, meta)
	}
	s.collectMethodElements(typ, meta)
	return meta
}

func (s *metadataScanner) collectFieldElements(st reflect.Type, path []int, meta *injectionMetadata) {
	// 内嵌结构体（父级）优先
	for i := 0; i < st.NumField(); i++ {
		field := st.Field(i)
		if !field.Anonymous {
			continue
		}
		ft := field.Type
		if ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct && field.Type.Kind() != reflect.Ptr {
			s.collectFieldElements(ft, append(append([]int(nil), path...), i), meta)
		}
	}
	for i := 0; i < st.NumField(); i++ {
		field := st.Field(i)
		if field.Anonymous {
			continue
		}
		tagValue, ok := field.Tag.Lookup(injectTag)
		if !ok {
			continue
		}
		if field.PkgPath != "" {
			s.logger.Warn("忽略非导出字段上的注入标签",
				logging.Field{Key: "type", Value: st.String()},
				logging.Field{Key: "field", Value: field.Name})
			continue
		}
		beanName, required := parseInjectTag(tagValue)
		meta.elements = append(meta.elements, &injectedElement{
			kind:       fieldElement,
			fieldIndex: append(append([]int(nil), path...), i),
			fieldName:  field.Name,
			fieldType:  field.Type,
			required:   required,
			beanName:   beanName,
		})
	}
}

// collectMethodElements 收集注入方法：Inject 前缀、≥1 个参数。
// 零参的前缀方法告警并跳过；子级遮蔽的方法由方法集自然去重。
func (s *metadataScanner) collectMethodElements(typ reflect.Type, meta *injectionMetadata) {
	mt := typ
	if mt.Kind() != reflect.Ptr {
		mt = reflect.PtrTo(mt)
	}
	for i := 0; i < mt.NumMethod(); i++ {
		m := mt.Method(i)
		if !strings.HasPrefix(m.Name, injectMethodPrefix) || m.Name == injectMethodPrefix {
			continue
		}
		if m.Type.NumIn() <= 1 { // 接收者之外无参数
			s.logger.Warn("注入方法没有参数，已跳过",
				logging.Field{Key: "type", Value: typ.String()},
				logging.Field{Key: "method", Value: m.Name})
			continue
		}
		meta.elements = append(meta.elements, &injectedElement{
			kind:     methodElement,
			method:   m,
			required: true,
		})
	}
}

// parseInjectTag 解析 `inject:"name,optional"`。
func parseInjectTag(tag string) (beanName string, required bool) {
	required = true
	parts := strings.Split(tag, ",")
	beanName = strings.TrimSpace(parts[0])
	if beanName == "?" || beanName == "optional" {
		beanName = ""
		required = false
	}
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		if p == "optional" || p == "?" {
			required = false
		}
	}
	return beanName, required
}

// lookupOverridesFor 收集 lookup 标签字段为方法覆盖记录。
func lookupOverridesFor(typ reflect.Type) []LookupOverride {
	st := typ
	if st.Kind() == reflect.Ptr {
		st = st.Elem()
	}
	if st.Kind() != reflect.Struct {
		return nil
	}
	var out []LookupOverride
	for i := 0; i < st.NumField(); i++ {
		field := st.Field(i)
		beanName, ok := field.Tag.Lookup(lookupTag)
		if !ok || field.PkgPath != "" || field.Type.Kind() != reflect.Func {
			continue
		}
		out = append(out, LookupOverride{Field: field.Name, BeanName: beanName})
	}
	return out
}

// lifecycleMetadataFor 取类型的生命周期元数据，懒构建并缓存。
func (s *metadataScanner) lifecycleMetadataFor(typ reflect.Type) *lifecycleMetadata {
	if v, ok := s.lifecycleCache.Load(typ); ok {
		return v.(*lifecycleMetadata)
	}
	meta := s.buildLifecycleMetadata(typ)
	if actual, loaded := s.lifecycleCache.LoadOrStore(typ, meta); loaded {
		return actual.(*lifecycleMetadata)
	}
	return meta
}

// buildLifecycleMetadata 父级（内嵌层）优先收集零参回调方法。
// 每个声明层级按字段路径记录；外层同名回调替换父级条目，被遮蔽的父级回调不再调用。
func (s *metadataScanner) buildLifecycleMetadata(typ reflect.Type) *lifecycleMetadata {
	meta := &lifecycleMetadata{}
	st := typ
	if st.Kind() == reflect.Ptr {
		st = st.Elem()
	}
	if st.Kind() == reflect.Struct {
		s.collectEmbeddedLifecycle(st, nil, meta)
	}
	appendLifecycleElement(typ, nil, meta)
	return meta
}

func (s *metadataScanner) collectEmbeddedLifecycle(st reflect.Type, path []int, meta *lifecycleMetadata) {
	for i := 0; i < st.NumField(); i++ {
		field := st.Field(i)
		if !field.Anonymous {
			continue
		}
		ft := field.Type
		if ft.Kind() == reflect.Ptr {
			continue
		}
		if ft.Kind() != reflect.Struct {
			continue
		}
		childPath := append(append([]int(nil), path...), i)
		s.collectEmbeddedLifecycle(ft, childPath, meta)
		appendLifecycleElement(ft, childPath, meta)
	}
}

func appendLifecycleElement(typ reflect.Type, path []int, meta *lifecycleMetadata) {
	mt := typ
	if mt.Kind() != reflect.Ptr {
		mt = reflect.PtrTo(mt)
	}
	base := typ
	if base.Kind() == reflect.Ptr {
		base = base.Elem()
	}
	if m, ok := mt.MethodByName(initCallbackName); ok && m.Type.NumIn() == 1 {
		meta.initElements = upsertLifecycleElement(meta.initElements, lifecycleElement{
			methodName: m.Name,
			identifier: qualifiedCallbackName(base, m.Name),
			fieldPath:  path,
		})
	}
	if m, ok := mt.MethodByName(destroyCallbackName); ok && m.Type.NumIn() == 1 {
		meta.destroyElements = upsertLifecycleElement(meta.destroyElements, lifecycleElement{
			methodName: m.Name,
			identifier: qualifiedCallbackName(base, m.Name),
			fieldPath:  path,
		})
	}
}

// upsertLifecycleElement 同名回调被更外层（子级）的遮蔽实现替换：
// 保持父级的执行位次，调用最派生的实现，且只调用一次。
func upsertLifecycleElement(list []lifecycleElement, elem lifecycleElement) []lifecycleElement {
	for i := range list {
		if list[i].identifier == elem.identifier {
			list[i] = elem
			return list
		}
	}
	return append(list, elem)
}

func qualifiedCallbackName(owner reflect.Type, method string) string {
	r := []rune(method)[0]
	if r >= 'a' && r <= 'z' {
		// 非导出回调带类型限定，父子同名共存
		return owner.String() + "." + method
	}
	return method
}

// invokeLifecycleElement 沿字段路径定位声明层级并调用回调。
func invokeLifecycleElement(instance any, elem lifecycleElement) error {
	v := reflect.ValueOf(instance)
	if len(elem.fieldPath) > 0 {
		if v.Kind() == reflect.Ptr {
			v = v.Elem()
		}
		for _, idx := range elem.fieldPath {
			v = v.Field(idx)
		}
		if v.CanAddr() {
			v = v.Addr()
		}
	}
	m := v.MethodByName(elem.methodName)
	if !m.IsValid() {
		return fmt.Errorf("回调方法 '%s' 不可达", elem.methodName)
	}
	out := m.Call(nil)
	if len(out) > 0 && out[len(out)-1].Type().Implements(errorType) && !out[len(out)-1].IsNil() {
		return out[len(out)-1].Interface().(error)
	}
	return nil
}

package bean

import "reflect"

// Ref 对另一个 bean 的运行时引用，在属性填充/参数解析时按名称查找。
type Ref struct {
	Name string
}

// RefTo 创建 bean 引用。
func RefTo(name string) Ref { return Ref{Name: name} }

// TypedValue 携带声明类型的原始值。转换时只取 Value，按目标参数/字段的类型转换；
// Type 不参与转换。
type TypedValue struct {
	Value any
	Type  reflect.Type
}

// autowiredMarker 预备参数数组中的自动装配占位符。
// 它是一个独立的标记类型而不是哨兵指针，重放时按参数类型重新解析。
type autowiredMarker struct {
	required bool
}

// PropertyValue 单个属性值。Name 对应目标结构体的导出字段名。
type PropertyValue struct {
	Name     string
	Value    any
	Optional bool

	converted      bool
	convertedValue reflect.Value
}

// PropertyValues 属性值列表，保持添加顺序，按名称去重（后写覆盖）。
type PropertyValues struct {
	values []PropertyValue
}

// NewPropertyValues 创建空属性值列表。
func NewPropertyValues() *PropertyValues {
	return &PropertyValues{}
}

// Add 添加或覆盖一个属性值。
func (pvs *PropertyValues) Add(name string, value any) *PropertyValues {
	return pvs.add(PropertyValue{Name: name, Value: value})
}

// AddOptional 添加一个可选属性值，依赖检查时不强制要求。
func (pvs *PropertyValues) AddOptional(name string, value any) *PropertyValues {
	return pvs.add(PropertyValue{Name: name, Value: value, Optional: true})
}

func (pvs *PropertyValues) add(pv PropertyValue) *PropertyValues {
	for i := range pvs.values {
		if pvs.values[i].Name == pv.Name {
			pvs.values[i] = pv
			return pvs
		}
	}
	pvs.values = append(pvs.values, pv)
	return pvs
}

// Contains 是否包含指定名称的属性。
func (pvs *PropertyValues) Contains(name string) bool {
	if pvs == nil {
		return false
	}
	for i := range pvs.values {
		if pvs.values[i].Name == name {
			return true
		}
	}
	return false
}

// Values 返回属性值切片（添加顺序）。
func (pvs *PropertyValues) Values() []PropertyValue {
	if pvs == nil {
		return nil
	}
	return pvs.values
}

// Len 属性个数。
func (pvs *PropertyValues) Len() int {
	if pvs == nil {
		return 0
	}
	return len(pvs.values)
}

func (pvs *PropertyValues) clone() *PropertyValues {
	if pvs == nil {
		return nil
	}
	out := &PropertyValues{values: make([]PropertyValue, len(pvs.values))}
	copy(out.values, pvs.values)
	return out
}

// ValueHolder 一个构造参数：原始值、可选的声明类型与参数名。
type ValueHolder struct {
	Value any
	Type  reflect.Type
	Name  string

	converted      bool
	convertedValue reflect.Value
}

// ConstructorArgs 构造参数集合，支持按索引与泛型（无索引）两种声明。
type ConstructorArgs struct {
	indexed map[int]*ValueHolder
	generic []*ValueHolder
}

// NewConstructorArgs 创建空构造参数集合。
func NewConstructorArgs() *ConstructorArgs {
	return &ConstructorArgs{indexed: make(map[int]*ValueHolder)}
}

// AddIndexed 按索引声明参数值。
func (ca *ConstructorArgs) AddIndexed(index int, value any) *ConstructorArgs {
	ca.indexed[index] = &ValueHolder{Value: value}
	return ca
}

// AddIndexedTyped 按索引声明带类型的参数值。
func (ca *ConstructorArgs) AddIndexedTyped(index int, value any, typ reflect.Type) *ConstructorArgs {
	ca.indexed[index] = &ValueHolder{Value: value, Type: typ}
	return ca
}

// Add 声明一个泛型参数值（按类型/名称匹配）。
func (ca *ConstructorArgs) Add(value any) *ConstructorArgs {
	ca.generic = append(ca.generic, &ValueHolder{Value: value})
	return ca
}

// AddTyped 声明一个带类型的泛型参数值。
func (ca *ConstructorArgs) AddTyped(value any, typ reflect.Type) *ConstructorArgs {
	ca.generic = append(ca.generic, &ValueHolder{Value: value, Type: typ})
	return ca
}

// AddNamed 声明一个按参数名匹配的泛型参数值。
// 名称匹配需要工厂安装了 ParameterNameDiscoverer。
func (ca *ConstructorArgs) AddNamed(name string, value any) *ConstructorArgs {
	ca.generic = append(ca.generic, &ValueHolder{Value: value, Name: name})
	return ca
}

// Count 声明的参数总数。
func (ca *ConstructorArgs) Count() int {
	if ca == nil {
		return 0
	}
	return len(ca.indexed) + len(ca.generic)
}

// Empty 是否没有声明任何参数。
func (ca *ConstructorArgs) Empty() bool { return ca.Count() == 0 }

// getIndexed 取索引参数；不存在返回 nil。
func (ca *ConstructorArgs) getIndexed(index int) *ValueHolder {
	if ca == nil {
		return nil
	}
	return ca.indexed[index]
}

// getGeneric 按声明类型与参数名匹配一个尚未使用的泛型参数。
// 匹配顺序：声明类型可赋值 > 参数名相等 > 无类型无名称的裸值。
func (ca *ConstructorArgs) getGeneric(paramType reflect.Type, paramName string, used map[*ValueHolder]bool) *ValueHolder {
	if ca == nil {
		return nil
	}
	for _, vh := range ca.generic {
		if used[vh] {
			continue
		}
		if vh.Type != nil && vh.Type.AssignableTo(paramType) {
			return vh
		}
	}
	if paramName != "" {
		for _, vh := range ca.generic {
			if used[vh] {
				continue
			}
			if vh.Name == paramName {
				return vh
			}
		}
	}
	for _, vh := range ca.generic {
		if used[vh] {
			continue
		}
		if vh.Type == nil && vh.Name == "" {
			return vh
		}
	}
	return nil
}

func (ca *ConstructorArgs) clone() *ConstructorArgs {
	if ca == nil {
		return nil
	}
	out := NewConstructorArgs()
	for i, vh := range ca.indexed {
		c := *vh
		c.converted = false
		out.indexed[i] = &c
	}
	for _, vh := range ca.generic {
		c := *vh
		c.converted = false
		out.generic = append(out.generic, &c)
	}
	return out
}

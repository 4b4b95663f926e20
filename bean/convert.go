package bean

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// TypeConverter 将原始值转换为声明的参数/字段类型。
// 支持直接赋值、接口实现、数值互转、字符串解析
// （int/uint/float/bool/time.Duration）以及逐元素的切片与 map 转换。
type TypeConverter struct{}

// NewTypeConverter 创建类型转换器。
func NewTypeConverter() *TypeConverter {
	return &TypeConverter{}
}

var durationType = reflect.TypeOf(time.Duration(0))

// Convert 将 value 转换为 targetType，返回可直接 Set 的 reflect.Value。
func (c *TypeConverter) Convert(value any, targetType reflect.Type) (reflect.Value, error) {
	if value == nil {
		switch targetType.Kind() {
		case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
			return reflect.Zero(targetType), nil
		}
		return reflect.Value{}, fmt.Errorf("nil 无法转换为 %v", targetType)
	}

	v := reflect.ValueOf(value)
	vt := v.Type()

	if vt == targetType {
		return v, nil
	}
	if vt.AssignableTo(targetType) {
		return v, nil
	}

	// 字符串解析
	if vt.Kind() == reflect.String && targetType.Kind() != reflect.String {
		return c.convertString(v.String(), targetType)
	}

	// 数值互转
	if vt.ConvertibleTo(targetType) {
		if isNumericKind(vt.Kind()) && isNumericKind(targetType.Kind()) {
			return v.Convert(targetType), nil
		}
		if targetType.Kind() == reflect.String && vt.Kind() == reflect.String {
			return v.Convert(targetType), nil
		}
	}

	// 数值格式化为字符串
	if targetType.Kind() == reflect.String && isNumericKind(vt.Kind()) {
		out := reflect.New(targetType).Elem()
		out.SetString(fmt.Sprintf("%v", value))
		return out, nil
	}

	// 逐元素切片转换
	if vt.Kind() == reflect.Slice && targetType.Kind() == reflect.Slice {
		out := reflect.MakeSlice(targetType, v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			ev, err := c.Convert(v.Index(i).Interface(), targetType.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("切片元素 %d: %w", i, err)
			}
			out.Index(i).Set(ev)
		}
		return out, nil
	}

	// 逐元素 map 转换
	if vt.Kind() == reflect.Map && targetType.Kind() == reflect.Map {
		out := reflect.MakeMapWithSize(targetType, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			kv, err := c.Convert(iter.Key().Interface(), targetType.Key())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("map 键 %v: %w", iter.Key(), err)
			}
			vv, err := c.Convert(iter.Value().Interface(), targetType.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("map 值 %v: %w", iter.Key(), err)
			}
			out.SetMapIndex(kv, vv)
		}
		return out, nil
	}

	return reflect.Value{}, fmt.Errorf("%v 无法转换为 %v", vt, targetType)
}

// CanConvert 判断转换是否可行（不报告细节）。
func (c *TypeConverter) CanConvert(value any, targetType reflect.Type) bool {
	_, err := c.Convert(value, targetType)
	return err == nil
}

func (c *TypeConverter) convertString(s string, targetType reflect.Type) (reflect.Value, error) {
	if targetType == durationType {
		d, err := time.ParseDuration(strings.TrimSpace(s))
		if err != nil {
			return reflect.Value{}, fmt.Errorf("无法解析 duration %q: %w", s, err)
		}
		return reflect.ValueOf(d), nil
	}

	switch targetType.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, targetType.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("无法解析整数 %q: %w", s, err)
		}
		out := reflect.New(targetType).Elem()
		out.SetInt(n)
		return out, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(strings.TrimSpace(s), 10, targetType.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("无法解析无符号整数 %q: %w", s, err)
		}
		out := reflect.New(targetType).Elem()
		out.SetUint(n)
		return out, nil
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(strings.TrimSpace(s), targetType.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("无法解析浮点数 %q: %w", s, err)
		}
		out := reflect.New(targetType).Elem()
		out.SetFloat(n)
		return out, nil
	case reflect.Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return reflect.Value{}, fmt.Errorf("无法解析布尔值 %q: %w", s, err)
		}
		out := reflect.New(targetType).Elem()
		out.SetBool(b)
		return out, nil
	case reflect.Slice:
		if targetType.Elem().Kind() == reflect.Uint8 {
			return reflect.ValueOf([]byte(s)).Convert(targetType), nil
		}
	}
	return reflect.Value{}, fmt.Errorf("字符串 %q 无法转换为 %v", s, targetType)
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// isSimpleType 简单值类型：数值、字符串、布尔、时间类。
// 按名自动装配时跳过简单属性。
func isSimpleType(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	}
	if t == reflect.TypeOf(time.Time{}) || t == durationType {
		return true
	}
	return false
}

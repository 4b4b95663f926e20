package bean

import (
	"reflect"
	"testing"
	"time"
)

func TestConvertStringParsing(t *testing.T) {
	c := NewTypeConverter()

	v, err := c.Convert("42", reflect.TypeOf(0))
	if err != nil || v.Int() != 42 {
		t.Errorf("字符串转 int: %v, %v", v, err)
	}

	v, err = c.Convert("true", reflect.TypeOf(false))
	if err != nil || !v.Bool() {
		t.Errorf("字符串转 bool: %v, %v", v, err)
	}

	v, err = c.Convert("1.5s", reflect.TypeOf(time.Duration(0)))
	if err != nil || v.Interface().(time.Duration) != 1500*time.Millisecond {
		t.Errorf("字符串转 duration: %v, %v", v, err)
	}

	if _, err := c.Convert("not-a-number", reflect.TypeOf(0)); err == nil {
		t.Error("非法整数应报错")
	}
}

func TestConvertNumericWidening(t *testing.T) {
	c := NewTypeConverter()
	v, err := c.Convert(int32(7), reflect.TypeOf(int64(0)))
	if err != nil || v.Int() != 7 {
		t.Errorf("数值拓宽: %v, %v", v, err)
	}

	v, err = c.Convert(3, reflect.TypeOf(""))
	if err != nil || v.String() != "3" {
		t.Errorf("数值转字符串: %v, %v", v, err)
	}
}

func TestConvertNilToNilable(t *testing.T) {
	c := NewTypeConverter()
	v, err := c.Convert(nil, reflect.TypeOf((*Counterpart)(nil)))
	if err != nil || !v.IsNil() {
		t.Errorf("nil 转指针: %v, %v", v, err)
	}
	if _, err := c.Convert(nil, reflect.TypeOf(0)); err == nil {
		t.Error("nil 不能转换为值类型")
	}
}

type Counterpart struct{}

func TestConvertSliceElements(t *testing.T) {
	c := NewTypeConverter()
	v, err := c.Convert([]string{"1", "2", "3"}, reflect.TypeOf([]int{}))
	if err != nil {
		t.Fatalf("切片逐元素转换失败: %v", err)
	}
	got := v.Interface().([]int)
	if len(got) != 3 || got[2] != 3 {
		t.Errorf("got %v", got)
	}
}

func TestConvertMapElements(t *testing.T) {
	c := NewTypeConverter()
	v, err := c.Convert(map[string]string{"a": "1"}, reflect.TypeOf(map[string]int{}))
	if err != nil {
		t.Fatalf("map 逐元素转换失败: %v", err)
	}
	got := v.Interface().(map[string]int)
	if got["a"] != 1 {
		t.Errorf("got %v", got)
	}
}

func TestIsSimpleType(t *testing.T) {
	if !isSimpleType(reflect.TypeOf(time.Second)) {
		t.Error("duration 是简单类型")
	}
	if isSimpleType(reflect.TypeOf(&Counterpart{})) {
		t.Error("结构体指针不是简单类型")
	}
}

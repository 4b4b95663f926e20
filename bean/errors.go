package bean

import (
	"fmt"
	"reflect"
	"strings"
)

// DefinitionError 定义非法：抽象定义、父定义缺失、方法覆盖目标不存在等。
type DefinitionError struct {
	Name string
	Msg  string
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("bean: 定义 '%s' 非法: %s", e.Name, e.Msg)
}

func newDefinitionError(name, format string, args ...any) *DefinitionError {
	return &DefinitionError{Name: name, Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError 按名称或类型未找到任何 bean。
type NotFoundError struct {
	Name string
	Type reflect.Type
}

func (e *NotFoundError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("bean: 未找到名为 '%s' 的 bean", e.Name)
	}
	return fmt.Sprintf("bean: 未找到类型为 %v 的 bean", e.Type)
}

// NotUniqueError 同类型存在多个候选且没有唯一的 primary。
type NotUniqueError struct {
	Type       reflect.Type
	Candidates []string
}

func (e *NotUniqueError) Error() string {
	return fmt.Sprintf("bean: 类型 %v 存在 %d 个候选且无法唯一确定: %s",
		e.Type, len(e.Candidates), strings.Join(e.Candidates, ", "))
}

// WrongTypeError 找到的 bean 无法转换为请求的类型。
type WrongTypeError struct {
	Name     string
	Required reflect.Type
	Actual   reflect.Type
}

func (e *WrongTypeError) Error() string {
	return fmt.Sprintf("bean: '%s' 的实际类型 %v 无法满足请求的类型 %v",
		e.Name, e.Actual, e.Required)
}

// CreationError 实例化、属性填充或初始化过程中发生底层错误。
type CreationError struct {
	Name string
	Msg  string
	Err  error
}

func (e *CreationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bean: 创建 '%s' 失败: %s: %v", e.Name, e.Msg, e.Err)
	}
	return fmt.Sprintf("bean: 创建 '%s' 失败: %s", e.Name, e.Msg)
}

func (e *CreationError) Unwrap() error { return e.Err }

func newCreationError(name, msg string, cause error) *CreationError {
	return &CreationError{Name: name, Msg: msg, Err: cause}
}

// CycleError 构造参数循环依赖、单例直接递归或 prototype 重入。
type CycleError struct {
	Name string
	Msg  string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("bean: '%s' 循环依赖: %s", e.Name, e.Msg)
}

func newCycleError(name, format string, args ...any) *CycleError {
	return &CycleError{Name: name, Msg: fmt.Sprintf(format, args...)}
}

// UnsatisfiedDependencyError 注入点上的必需依赖无法解析。
type UnsatisfiedDependencyError struct {
	Name           string // 正在创建的 bean
	InjectionPoint string // 注入点描述（参数/字段）
	Err            error
}

func (e *UnsatisfiedDependencyError) Error() string {
	return fmt.Sprintf("bean: '%s' 的依赖无法满足 (%s): %v", e.Name, e.InjectionPoint, e.Err)
}

func (e *UnsatisfiedDependencyError) Unwrap() error { return e.Err }

// PostProcessingError 后置处理器在其某个阶段抛出错误。
type PostProcessingError struct {
	Name  string
	Phase string
	Err   error
}

func (e *PostProcessingError) Error() string {
	return fmt.Sprintf("bean: '%s' 后置处理失败 (阶段 %s): %v", e.Name, e.Phase, e.Err)
}

func (e *PostProcessingError) Unwrap() error { return e.Err }

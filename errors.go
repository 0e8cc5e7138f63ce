// Error types for RxGo
// 错误类型定义：命名错误、退订聚合错误、panic包装
package rxgo

import (
	"errors"
	"fmt"
	"strings"
)

// ============================================================================
// 命名错误
// ============================================================================

var (
	// ErrObjectUnsubscribed 与已通过Unsubscribe关闭的Subject交互
	ErrObjectUnsubscribed = errors.New("rxgo: object unsubscribed")
	// ErrEmpty 序列没有任何元素且没有默认值
	ErrEmpty = errors.New("rxgo: no elements in sequence")
	// ErrArgumentOutOfRange 参数越界
	ErrArgumentOutOfRange = errors.New("rxgo: argument out of range")
	// ErrTimeout 超时
	ErrTimeout = errors.New("rxgo: timeout has occurred")
	// ErrNotSubscribable 提供的值不满足可订阅契约
	ErrNotSubscribable = errors.New("rxgo: value is not subscribable")
)

// ============================================================================
// UnsubscriptionError 退订聚合错误
// ============================================================================

// UnsubscriptionError 多个清理动作失败时返回的聚合错误
type UnsubscriptionError struct {
	errors []error
}

// NewUnsubscriptionError 创建退订聚合错误
func NewUnsubscriptionError(errs []error) *UnsubscriptionError {
	return &UnsubscriptionError{errors: errs}
}

func (e *UnsubscriptionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d errors occurred during unsubscription:", len(e.errors))
	for i, err := range e.errors {
		fmt.Fprintf(&b, "\n%d) %v", i+1, err)
	}
	return b.String()
}

// Errors 获取所有错误
func (e *UnsubscriptionError) Errors() []error {
	return e.errors
}

// Unwrap 支持errors.Is/errors.As遍历所有错误
func (e *UnsubscriptionError) Unwrap() []error {
	return e.errors
}

// ============================================================================
// PanicError panic包装
// ============================================================================

// PanicError 用户代码中非error类型的panic值
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("rxgo: recovered panic: %v", e.Value)
}

// toError 将recover得到的值转换为error，error类型的panic值原样返回
func toError(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}
	return &PanicError{Value: r}
}

// combineErrors 展开嵌套的UnsubscriptionError，一个错误原样返回
func combineErrors(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return NewUnsubscriptionError(errs)
	}
}

func appendError(errs []error, err error) []error {
	if err == nil {
		return errs
	}
	if agg, ok := err.(*UnsubscriptionError); ok {
		return append(errs, agg.errors...)
	}
	return append(errs, err)
}

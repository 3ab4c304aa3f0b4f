// Error types for RxGo
// 错误类型定义
package rxgo

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// ============================================================================
// 错误类型
// ============================================================================

// ErrEmptySequence 序列没有发射任何值（First/Last/Sum/Average）
var ErrEmptySequence = errors.New("rxgo: sequence contains no elements")

// PanicError 用户回调或订阅过程中的 panic，被转换为终止错误
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("rxgo: recovered panic: %v", e.Value)
}

// Unwrap 当 panic 值本身是 error 时返回它
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// NewPanicError 创建 PanicError 并记录当前调用栈
func NewPanicError(value any) *PanicError {
	return &PanicError{Value: value, Stack: debug.Stack()}
}

// catchPanic 执行 f，并把 panic 转换为 *PanicError
func catchPanic(f func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewPanicError(r)
		}
	}()
	f()
	return nil
}

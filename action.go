// Action for RxGo schedulers
// 动作：可重复执行的工作单元，返回 exit / tail / repeat_when
package rxgo

import (
	"time"
)

// ActionVerb 动作执行后的指示
type ActionVerb int

const (
	// ActionExit 动作完成
	ActionExit ActionVerb = iota
	// ActionTail 立即再次执行
	ActionTail
	// ActionRepeatWhen 不早于 When 再次执行
	ActionRepeatWhen
)

func (v ActionVerb) String() string {
	switch v {
	case ActionExit:
		return "exit"
	case ActionTail:
		return "tail"
	case ActionRepeatWhen:
		return "repeat_when"
	}
	return "unknown"
}

// ActionResult 动作的返回值。零值表示 exit。
type ActionResult struct {
	Verb ActionVerb
	When time.Time
}

// Action 接收执行它的 Worker
type Action func(w *Worker) ActionResult

// Exit 动作完成
func Exit() ActionResult {
	return ActionResult{Verb: ActionExit}
}

// Tail 立即再次执行当前动作
func Tail() ActionResult {
	return ActionResult{Verb: ActionTail}
}

// RepeatWhen 在 when 之后再次执行当前动作
func RepeatWhen(when time.Time) ActionResult {
	return ActionResult{Verb: ActionRepeatWhen, When: when}
}

// OneShot 把普通函数包装为只执行一次的动作
func OneShot(f func()) Action {
	return func(*Worker) ActionResult {
		f()
		return Exit()
	}
}

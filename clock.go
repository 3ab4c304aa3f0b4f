// Clock abstraction for RxGo schedulers
// 时钟抽象：调度器通过注入的时钟读取时间和睡眠，便于用虚拟时间测试
package rxgo

import (
	"time"
)

// Clock 单调时钟
type Clock interface {
	Now() time.Time
	// NewTimerAt 创建在 when 触发的定时器；when 不晚于 Now() 时立即触发
	NewTimerAt(when time.Time) Timer
}

// Timer 一次性定时器
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

type realClock struct{}

type realTimer struct {
	t *time.Timer
}

func (t realTimer) C() <-chan time.Time { return t.t.C }
func (t realTimer) Stop() bool          { return t.t.Stop() }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTimerAt(when time.Time) Timer {
	return realTimer{t: time.NewTimer(time.Until(when))}
}

// RealClock 返回基于系统时间的时钟
func RealClock() Clock {
	return realClock{}
}

// sleepUntil 让当前 goroutine 睡眠到 when
func sleepUntil(c Clock, when time.Time) {
	if !when.After(c.Now()) {
		return
	}
	<-c.NewTimerAt(when).C()
}

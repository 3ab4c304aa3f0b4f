// Immediate scheduler
// 立即调度器：在调用者的 goroutine 中同步执行动作
package rxgo

import (
	"time"
)

// immediateScheduler 单 goroutine、同步执行。repeat_when 使调用者睡眠。
type immediateScheduler struct {
	config *Config
}

// NewImmediateScheduler 创建立即调度器
func NewImmediateScheduler(options ...Option) Scheduler {
	return &immediateScheduler{config: newConfig(options)}
}

func (s *immediateScheduler) Now() time.Time {
	return s.config.Clock.Now()
}

func (s *immediateScheduler) CreateWorker(lifetime *Subscription) *Worker {
	return newWorker(lifetime, immediateWorker{config: s.config})
}

type immediateWorker struct {
	config *Config
}

func (iw immediateWorker) clock() Clock {
	return iw.config.Clock
}

// scheduleAt 睡眠到 when，然后循环执行动作直到 exit
func (iw immediateWorker) scheduleAt(w *Worker, when time.Time, a Action) {
	sleepUntil(iw.config.Clock, when)
	for {
		r := w.run(a)
		if r.Verb != ActionRepeatWhen || !w.IsSubscribed() {
			return
		}
		sleepUntil(iw.config.Clock, r.When)
	}
}

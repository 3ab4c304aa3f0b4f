// Worker for RxGo schedulers
// Worker：绑定到一个 Subscription 的串行执行上下文
package rxgo

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// workerCore 各调度器的具体实现
type workerCore interface {
	clock() Clock
	scheduleAt(w *Worker, when time.Time, a Action)
}

// Worker 保证同一实例上调度的动作按顺序、互不重叠地执行；
// 其 Subscription 释放后不再执行任何动作。
type Worker struct {
	lifetime *Subscription
	core     workerCore

	idOnce sync.Once
	id     string

	panicHandler atomic.Pointer[func(error)]
}

func newWorker(lifetime *Subscription, core workerCore) *Worker {
	if lifetime == nil {
		lifetime = NewSubscription()
	}
	return &Worker{lifetime: lifetime, core: core}
}

// ID 返回用于日志关联的唯一标识
func (w *Worker) ID() string {
	w.idOnce.Do(func() {
		w.id = uuid.NewString()
	})
	return w.id
}

// OnPanic 设置动作 panic 时的处理函数，参数为 *PanicError。
// 新线程 Worker 先调用 handler 再释放自身；立即调度器和当前线程调度器
// 让 panic 传播给调用 Schedule 的 goroutine。
func (w *Worker) OnPanic(handler func(err error)) {
	if handler == nil {
		w.panicHandler.Store(nil)
		return
	}
	w.panicHandler.Store(&handler)
}

// reportPanic 把 panic 交给处理函数；处理函数自身的 panic 只记录日志
func (w *Worker) reportPanic(err *PanicError) {
	h := w.panicHandler.Load()
	if h == nil {
		return
	}
	if perr := catchPanic(func() { (*h)(err) }); perr != nil {
		log := Logger()
		log.Error().Err(perr).Str("worker_id", w.ID()).Msg("panic handler panicked")
	}
}

// Now 返回调度器时钟的当前时间
func (w *Worker) Now() time.Time {
	return w.core.clock().Now()
}

// Subscription 返回 Worker 的生命周期
func (w *Worker) Subscription() *Subscription {
	return w.lifetime
}

// IsSubscribed 检查 Worker 是否仍然活动
func (w *Worker) IsSubscribed() bool {
	return w.lifetime.IsSubscribed()
}

// Unsubscribe 释放 Worker，尚未执行的动作被丢弃
func (w *Worker) Unsubscribe() {
	w.lifetime.Unsubscribe()
}

// Schedule 尽快执行动作
func (w *Worker) Schedule(a Action) {
	w.ScheduleAt(w.Now(), a)
}

// ScheduleAfter 在 delay 之后执行动作
func (w *Worker) ScheduleAfter(delay time.Duration, a Action) {
	w.ScheduleAt(w.Now().Add(delay), a)
}

// ScheduleAt 不早于 when 执行动作。对已释放的 Worker 或 nil 动作无操作。
func (w *Worker) ScheduleAt(when time.Time, a Action) {
	if a == nil || !w.IsSubscribed() {
		return
	}
	w.core.scheduleAt(w, when, a)
}

// SchedulePeriodically 在 initial、initial+period、initial+2*period ... 执行动作，
// 直到 Worker 被释放。每次执行后目标时间按 period 前进，
// 执行超时会在下一次得到补偿而不是累积漂移。
func (w *Worker) SchedulePeriodically(initial time.Time, period time.Duration, a Action) {
	if a == nil {
		return
	}
	target := initial
	w.ScheduleAt(target, func(self *Worker) ActionResult {
		for r := a(self); r.Verb != ActionExit; r = a(self) {
			if !self.IsSubscribed() {
				return Exit()
			}
			if r.Verb == ActionRepeatWhen {
				sleepUntil(self.core.clock(), r.When)
			}
		}
		// 若动作耗时超过 period，target 已在过去，会立即再次执行
		target = target.Add(period)
		return RepeatWhen(target)
	})
}

// SchedulePeriodicallyAfter 在 Now()+delay 开始周期执行
func (w *Worker) SchedulePeriodicallyAfter(delay, period time.Duration, a Action) {
	w.SchedulePeriodically(w.Now().Add(delay), period, a)
}

// run 执行动作直到它不再请求 tail；Worker 释放时返回 exit
func (w *Worker) run(a Action) ActionResult {
	for w.IsSubscribed() {
		r := a(w)
		if r.Verb != ActionTail {
			return r
		}
	}
	return Exit()
}

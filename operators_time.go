// Time-based operators for RxGo
// 时间相关操作符实现，包含Delay, After
package rxgo

import (
	"time"
)

// ============================================================================
// 时间操作符实现
// ============================================================================

// Delay 把每个值和完成信号推迟 delay 后在 scheduler 的 Worker 上传递；错误不推迟。
// 立即调度器会在发射方的 goroutine 上睡眠。
func (o Observable[T]) Delay(delay time.Duration, scheduler Scheduler) Observable[T] {
	return Lift(o, func(dest *Subscriber[T]) *Subscriber[T] {
		w := scheduler.CreateWorker(nil)
		w.OnPanic(dest.OnError)
		dest.Subscription().AddSubscription(w.Subscription())

		upstream := NewSubscription()
		dest.Subscription().AddSubscription(upstream)

		return MakeSubscriber(upstream,
			func(value T) {
				w.ScheduleAfter(delay, OneShot(func() { dest.OnNext(value) }))
			},
			func(err error) {
				w.Schedule(OneShot(func() { dest.OnError(err) }))
			},
			func() {
				w.ScheduleAfter(delay, OneShot(dest.OnCompleted))
			},
		)
	})
}

// After 在 delay 之后发射 0 然后完成
func After(delay time.Duration, scheduler Scheduler) Observable[int] {
	return Create(func(s *Subscriber[int]) {
		w := workerFor(scheduler, s)
		w.ScheduleAfter(delay, OneShot(func() {
			s.OnNext(0)
			s.OnCompleted()
		}))
	})
}

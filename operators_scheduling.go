// Scheduling operators for RxGo
// 调度操作符：SubscribeOn, ObserveOn
package rxgo

// SubscribeOn 在 scheduler 的 Worker 上执行订阅
func (o Observable[T]) SubscribeOn(scheduler Scheduler) Observable[T] {
	return Create(func(s *Subscriber[T]) {
		w := workerFor(scheduler, s)
		w.Schedule(OneShot(func() {
			o.SubscribeWith(s)
		}))
	})
}

// ObserveOn 把所有通知转移到 scheduler 的同一个 Worker 上按顺序传递
func (o Observable[T]) ObserveOn(scheduler Scheduler) Observable[T] {
	return Lift(o, func(dest *Subscriber[T]) *Subscriber[T] {
		w := scheduler.CreateWorker(nil)
		w.OnPanic(dest.OnError)
		dest.Subscription().AddSubscription(w.Subscription())

		upstream := NewSubscription()
		dest.Subscription().AddSubscription(upstream)

		return MakeSubscriber(upstream,
			func(value T) {
				w.Schedule(OneShot(func() { dest.OnNext(value) }))
			},
			func(err error) {
				w.Schedule(OneShot(func() { dest.OnError(err) }))
			},
			func() {
				w.Schedule(OneShot(func() { dest.OnCompleted() }))
			},
		)
	})
}

// Factory functions for RxGo
// 工厂函数：创建源 Observable
package rxgo

import (
	"time"
)

// ============================================================================
// 基础工厂函数
// ============================================================================

// workerFor 创建生命周期与 s 相同的 Worker，动作中的 panic 成为 s 的终止错误
func workerFor[T any](scheduler Scheduler, s *Subscriber[T]) *Worker {
	w := scheduler.CreateWorker(s.Subscription())
	w.OnPanic(s.OnError)
	return w
}

// Just 从给定的值创建 Observable，在立即调度器上同步发射
func Just[T any](values ...T) Observable[T] {
	return FromSlice(values)
}

// FromSlice 从切片创建 Observable
func FromSlice[T any](values []T) Observable[T] {
	return FromSliceOn(values, ImmediateScheduler)
}

// FromSliceOn 在 scheduler 的 Worker 上逐个发射切片元素
func FromSliceOn[T any](values []T, scheduler Scheduler) Observable[T] {
	return NewObservable[T](sliceSource[T]{values: values, scheduler: scheduler})
}

type sliceSource[T any] struct {
	values    []T
	scheduler Scheduler
}

func (src sliceSource[T]) OnSubscribe(s *Subscriber[T]) {
	w := workerFor(src.scheduler, s)
	i := 0
	w.Schedule(func(*Worker) ActionResult {
		if !s.IsSubscribed() {
			return Exit()
		}
		if i >= len(src.values) {
			s.OnCompleted()
			return Exit()
		}
		s.OnNext(src.values[i])
		i++
		return Tail()
	})
}

// Range 发射 [first, last] 闭区间内的整数
func Range(first, last int) Observable[int] {
	return RangeOn(first, last, 1, ImmediateScheduler)
}

// RangeOn 在 scheduler 的 Worker 上以 step 为步长发射 [first, last] 内的整数。
// step 为 0 时按 first 与 last 的方向取 1 或 -1。
func RangeOn(first, last, step int, scheduler Scheduler) Observable[int] {
	if step == 0 {
		step = 1
		if first > last {
			step = -1
		}
	}
	return NewObservable[int](rangeSource{first: first, last: last, step: step, scheduler: scheduler})
}

type rangeSource struct {
	first, last, step int
	scheduler         Scheduler
}

func (r rangeSource) OnSubscribe(s *Subscriber[int]) {
	// Worker 的生命周期与本次订阅相同
	w := workerFor(r.scheduler, s)

	next := r.first
	w.Schedule(func(*Worker) ActionResult {
		if !s.IsSubscribed() {
			return Exit()
		}
		if (r.step > 0 && next > r.last) || (r.step < 0 && next < r.last) {
			s.OnCompleted()
			return Exit()
		}
		s.OnNext(next)
		if (r.step > 0 && r.last-next < r.step) || (r.step < 0 && r.last-next > r.step) {
			s.OnCompleted()
			return Exit()
		}
		next += r.step
		// 尾递归同一个动作以继续循环
		return Tail()
	})
}

// Empty 创建立即完成的 Observable
func Empty[T any]() Observable[T] {
	return Create(func(s *Subscriber[T]) {
		s.OnCompleted()
	})
}

// Never 创建永不发射任何信号的 Observable
func Never[T any]() Observable[T] {
	return Create(func(*Subscriber[T]) {})
}

// Throw 创建立即发射错误的 Observable
func Throw[T any](err error) Observable[T] {
	return Create(func(s *Subscriber[T]) {
		s.OnError(err)
	})
}

// Defer 每次订阅时调用 factory 创建新的 Observable
func Defer[T any](factory func() Observable[T]) Observable[T] {
	return Create(func(s *Subscriber[T]) {
		factory().SubscribeWith(s)
	})
}

// ============================================================================
// 从数据源创建
// ============================================================================

// FromChannel 从 channel 创建 Observable，channel 关闭时完成。
// 每次订阅启动一个读取 goroutine，订阅释放后停止读取。
func FromChannel[T any](ch <-chan T) Observable[T] {
	return Create(func(s *Subscriber[T]) {
		done := make(chan struct{})
		s.Add(func() { close(done) })

		go func() {
			for {
				// 取消优先于读取
				select {
				case <-done:
					return
				default:
				}
				select {
				case <-done:
					return
				case value, ok := <-ch:
					if !ok {
						s.OnCompleted()
						return
					}
					s.OnNext(value)
				}
			}
		}()
	})
}

// ============================================================================
// 时间相关工厂函数
// ============================================================================

// Interval 在 scheduler 上每隔 period 发射递增整数（从 1 开始），直到取消
func Interval(period time.Duration, scheduler Scheduler) Observable[int] {
	return Create(func(s *Subscriber[int]) {
		w := workerFor(scheduler, s)
		counter := 0
		w.SchedulePeriodicallyAfter(period, period, func(*Worker) ActionResult {
			counter++
			s.OnNext(counter)
			return Exit()
		})
	})
}

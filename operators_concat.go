// Concat operators for RxGo
// 连接操作符：按顺序逐个订阅内层 Observable
package rxgo

import (
	"sync"
	"sync/atomic"
)

// ============================================================================
// 公共入口
// ============================================================================

// Concat 依次订阅外层发射的每个内层 Observable，前一个完成后才订阅下一个。
// 所有通知在新线程调度器的同一个 Worker 上串行处理。
func Concat[T any](source Observable[Observable[T]]) Observable[T] {
	return ConcatOn(source, NewThreadScheduler)
}

// ConcatOn 与 Concat 相同，但通知在 scheduler 创建的 Worker 上处理。
// 立即调度器和当前线程调度器在发射方的 goroutine 上内联处理通知，
// 输出仍保持顺序，因为同一时刻只有一个内层处于活动状态。
func ConcatOn[T any](source Observable[Observable[T]], scheduler Scheduler) Observable[T] {
	return NewObservable[T](concatSource[T]{source: source, scheduler: scheduler})
}

// ConcatMap 把每个值映射为 Observable 后按顺序连接
func ConcatMap[T, R any](source Observable[T], selector func(T) Observable[R]) Observable[R] {
	return Concat(Map(source, selector))
}

// ConcatWith 按参数顺序连接多个 Observable
func ConcatWith[T any](observables ...Observable[T]) Observable[T] {
	return Concat(FromSlice(observables))
}

// ============================================================================
// 连接状态
// ============================================================================

type concatSource[T any] struct {
	source    Observable[Observable[T]]
	scheduler Scheduler
}

// concatState 的队列和标记由 mu 保护，回调可能在外层和内层的 goroutine 上内联执行。
// 订阅内层或向下游发射时不持有 mu：内联执行的内层可能同步完成并重入。
type concatState[T any] struct {
	out    *Subscriber[T]
	worker *Worker

	mu        sync.Mutex
	queue     []Observable[T]
	draining  bool // 有活动的内层；队列非空时恒为 true
	outerDone bool

	// pending 尚未清理的内外层订阅数，归零时释放输出与 worker
	pending atomic.Int32
}

func (c concatSource[T]) OnSubscribe(out *Subscriber[T]) {
	st := &concatState[T]{
		out:    out,
		worker: c.scheduler.CreateWorker(nil),
	}
	st.worker.OnPanic(out.OnError)

	// 外层使用独立的生命周期，取消输出时由清理动作释放它
	sourceLifetime := NewSubscription()
	st.pending.Add(1)
	c.source.SubscribeWith(makeScheduledSubscriber(st.worker, sourceLifetime, out.Subscription(),
		st.onInner,
		st.fail,
		st.onOuterCompleted,
		st.release,
	))
}

func (st *concatState[T]) onInner(inner Observable[T]) {
	if !st.out.IsSubscribed() {
		return
	}
	st.mu.Lock()
	if st.draining {
		st.queue = append(st.queue, inner)
		st.mu.Unlock()
		return
	}
	st.draining = true
	st.mu.Unlock()

	st.subscribeTo(inner)
}

func (st *concatState[T]) onOuterCompleted() {
	st.mu.Lock()
	st.outerDone = true
	idle := !st.draining
	st.mu.Unlock()

	if idle {
		st.out.OnCompleted()
	}
}

func (st *concatState[T]) onInnerCompleted() {
	st.mu.Lock()
	if !st.out.IsSubscribed() {
		st.queue = nil
		st.draining = false
		st.mu.Unlock()
		return
	}
	if len(st.queue) > 0 {
		next := st.queue[0]
		st.queue[0] = Observable[T]{}
		st.queue = st.queue[1:]
		st.mu.Unlock()
		st.subscribeTo(next)
		return
	}
	st.draining = false
	complete := st.outerDone
	st.mu.Unlock()

	if complete {
		st.out.OnCompleted()
	}
}

func (st *concatState[T]) fail(err error) {
	st.mu.Lock()
	st.queue = nil
	st.mu.Unlock()

	st.out.OnError(err)
}

func (st *concatState[T]) subscribeTo(inner Observable[T]) {
	st.pending.Add(1)
	inner.SubscribeWith(makeScheduledSubscriber(st.worker, NewSubscription(), st.out.Subscription(),
		st.out.OnNext,
		st.fail,
		st.onInnerCompleted,
		st.release,
	))
}

func (st *concatState[T]) release() bool {
	return st.pending.Add(-1) == 0
}

// ============================================================================
// 调度订阅者
// ============================================================================

// makeScheduledSubscriber 创建生命周期为 from 的订阅者，其通知都作为动作投递到 w 上。
// from 或 to 任一释放时，在 w 上执行一次清理：释放 from 并解除与 to 的关联；
// 若 last 返回 true，同时释放 to 和 w。
func makeScheduledSubscriber[V any](w *Worker, from, to *Subscription,
	onNext func(V), onError func(error), onCompleted func(), last func() bool) *Subscriber[V] {

	var (
		mu        sync.Mutex
		fromToken Token
		toToken   Token
		once      sync.Once
	)

	dispose := func(*Worker) ActionResult {
		mu.Lock()
		ft, tt := fromToken, toToken
		mu.Unlock()

		to.Remove(tt)
		from.Remove(ft)
		from.Unsubscribe()
		if last() {
			to.Unsubscribe()
			w.Unsubscribe()
		}
		return Exit()
	}
	hook := func() {
		once.Do(func() { w.Schedule(dispose) })
	}

	// 已释放的 to 或 from 会在 Add 内同步调用 hook，不能持锁
	tt := to.Add(hook)
	ft := from.Add(hook)
	mu.Lock()
	toToken, fromToken = tt, ft
	mu.Unlock()

	return MakeSubscriber(from,
		func(value V) {
			w.Schedule(OneShot(func() { onNext(value) }))
		},
		func(err error) {
			w.Schedule(OneShot(func() { onError(err) }))
		},
		func() {
			w.Schedule(OneShot(onCompleted))
		},
	)
}

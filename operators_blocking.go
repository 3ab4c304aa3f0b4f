// Blocking operators for RxGo
// 阻塞桥接：在调用者 goroutine 上等待序列结束并取回结果
package rxgo

import (
	"context"
)

// ============================================================================
// BlockingObservable
// ============================================================================

// BlockingObservable 包装 Observable，所有方法阻塞直到序列终止。
// 不要在调度器动作内部调用：如果源需要同一个 Worker 继续执行，会死锁。
type BlockingObservable[T any] struct {
	source Observable[T]
	ctx    context.Context
}

// AsBlocking 返回阻塞视图
func (o Observable[T]) AsBlocking() BlockingObservable[T] {
	return BlockingObservable[T]{source: o, ctx: context.Background()}
}

// WithContext 返回在 ctx 取消时放弃等待并取消订阅的副本
func (b BlockingObservable[T]) WithContext(ctx context.Context) BlockingObservable[T] {
	b.ctx = ctx
	return b
}

// Subscribe 阻塞订阅，直到序列终止或 ctx 取消。
// 错误交给 onError，onError 为 nil 时记录日志。
func (b BlockingObservable[T]) Subscribe(onNext func(T), onError func(error), onCompleted func()) {
	_ = b.subscribe(MakeSubscriber(nil, onNext, onError, onCompleted))
}

// SubscribeWithRethrow 阻塞订阅，把序列的错误作为返回值交还调用者。
// onNext 中的 panic 同样结束序列，并以 *PanicError 返回。
func (b BlockingObservable[T]) SubscribeWithRethrow(onNext func(T)) error {
	var failure error
	dest := MakeSubscriber(nil, onNext, func(err error) { failure = err }, nil)
	if err := b.subscribe(dest); err != nil {
		return err
	}
	return failure
}

// SubscribeWithRethrowContext 与 SubscribeWithRethrow 相同，ctx 取消时取消订阅并返回 ctx.Err()
func (b BlockingObservable[T]) SubscribeWithRethrowContext(ctx context.Context, onNext func(T)) error {
	return b.WithContext(ctx).SubscribeWithRethrow(onNext)
}

// subscribe 等待 dest 终止；只有 ctx 取消时返回错误
func (b BlockingObservable[T]) subscribe(dest *Subscriber[T]) error {
	done := make(chan struct{})

	// dest 的回调先于 done 关闭执行完毕：
	// 终止事件和 dest.OnNext 中的 panic 都会先通知 dest 再释放其生命周期
	scbr := MakeSubscriber(nil, dest.OnNext, dest.OnError, dest.OnCompleted)
	dest.Subscription().AddSubscription(scbr.Subscription())
	scbr.Add(func() { close(done) })

	b.source.SubscribeWith(scbr)

	select {
	case <-done:
		return nil
	case <-b.ctx.Done():
		scbr.Unsubscribe()
		return b.ctx.Err()
	}
}

// ============================================================================
// 阻塞取值
// ============================================================================

// First 返回第一个值，取到后立即取消订阅
func (b BlockingObservable[T]) First() (T, error) {
	return lastValue(b.derive(b.source.First()))
}

// Last 返回最后一个值
func (b BlockingObservable[T]) Last() (T, error) {
	return lastValue(b.derive(b.source.Last()))
}

// Count 返回值的数量
func (b BlockingObservable[T]) Count() (int, error) {
	return lastValue(BlockingObservable[int]{source: b.source.Count(), ctx: b.ctx})
}

// ToSlice 收集所有值
func (b BlockingObservable[T]) ToSlice() ([]T, error) {
	var values []T
	if err := b.SubscribeWithRethrow(func(v T) { values = append(values, v) }); err != nil {
		return nil, err
	}
	return values, nil
}

// BlockingSum 阻塞求和；空序列返回 ErrEmptySequence
func BlockingSum[T Number](b BlockingObservable[T]) (T, error) {
	return lastValue(b.derive(Sum(b.source)))
}

// BlockingAverage 阻塞求平均值；空序列返回 ErrEmptySequence
func BlockingAverage[T Number](b BlockingObservable[T]) (float64, error) {
	return lastValue(BlockingObservable[float64]{source: Average(b.source), ctx: b.ctx})
}

func (b BlockingObservable[T]) derive(source Observable[T]) BlockingObservable[T] {
	b.source = source
	return b
}

func lastValue[T any](b BlockingObservable[T]) (T, error) {
	var (
		result T
		seen   bool
	)
	err := b.SubscribeWithRethrow(func(v T) {
		result = v
		seen = true
	})
	if err != nil {
		var zero T
		return zero, err
	}
	if !seen {
		return result, ErrEmptySequence
	}
	return result, nil
}

// Aggregation operators for RxGo
// 聚合操作符：Reduce, Count, Sum, Average, First, Last
package rxgo

// Number 可求和、求平均的数值类型
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr |
		~float32 | ~float64
}

// ============================================================================
// 聚合操作符实现
// ============================================================================

// Reduce 用 accumulator 从 seed 开始累积所有值，完成时发射结果
func Reduce[T, A any](source Observable[T], seed A, accumulator func(A, T) A) Observable[A] {
	return Lift(source, func(dest *Subscriber[A]) *Subscriber[T] {
		acc := seed
		return MakeSubscriber(dest.Subscription(),
			func(value T) {
				acc = accumulator(acc, value)
			},
			dest.OnError,
			func() {
				dest.OnNext(acc)
				dest.OnCompleted()
			},
		)
	})
}

// Count 计算发射的值的数量
func (o Observable[T]) Count() Observable[int] {
	return Reduce(o, 0, func(n int, _ T) int { return n + 1 })
}

// Sum 求和；空序列以 ErrEmptySequence 结束
func Sum[T Number](source Observable[T]) Observable[T] {
	return Lift(source, func(dest *Subscriber[T]) *Subscriber[T] {
		var sum T
		seen := false
		return MakeSubscriber(dest.Subscription(),
			func(value T) {
				sum += value
				seen = true
			},
			dest.OnError,
			func() {
				if !seen {
					dest.OnError(ErrEmptySequence)
					return
				}
				dest.OnNext(sum)
				dest.OnCompleted()
			},
		)
	})
}

// Average 求平均值；空序列以 ErrEmptySequence 结束
func Average[T Number](source Observable[T]) Observable[float64] {
	return Lift(source, func(dest *Subscriber[float64]) *Subscriber[T] {
		var sum float64
		count := 0
		return MakeSubscriber(dest.Subscription(),
			func(value T) {
				sum += float64(value)
				count++
			},
			dest.OnError,
			func() {
				if count == 0 {
					dest.OnError(ErrEmptySequence)
					return
				}
				dest.OnNext(sum / float64(count))
				dest.OnCompleted()
			},
		)
	})
}

// First 只发射第一个值然后完成；空序列以 ErrEmptySequence 结束
func (o Observable[T]) First() Observable[T] {
	return Lift(o, func(dest *Subscriber[T]) *Subscriber[T] {
		return MakeSubscriber(dest.Subscription(),
			func(value T) {
				dest.OnNext(value)
				dest.OnCompleted()
			},
			dest.OnError,
			func() {
				dest.OnError(ErrEmptySequence)
			},
		)
	})
}

// Last 只发射最后一个值；空序列以 ErrEmptySequence 结束
func (o Observable[T]) Last() Observable[T] {
	return Lift(o, func(dest *Subscriber[T]) *Subscriber[T] {
		var last T
		seen := false
		return MakeSubscriber(dest.Subscription(),
			func(value T) {
				last = value
				seen = true
			},
			dest.OnError,
			func() {
				if !seen {
					dest.OnError(ErrEmptySequence)
					return
				}
				dest.OnNext(last)
				dest.OnCompleted()
			},
		)
	})
}

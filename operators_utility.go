// Utility operators for RxGo
// 工具操作符实现，包含DefaultIfEmpty, SwitchIfEmpty, IgnoreElements, StartWith
package rxgo

// ============================================================================
// 工具操作符实现
// ============================================================================

// DefaultIfEmpty 源没有发射任何值就完成时发射 defaultValue
func (o Observable[T]) DefaultIfEmpty(defaultValue T) Observable[T] {
	return Lift(o, func(dest *Subscriber[T]) *Subscriber[T] {
		seen := false
		return MakeSubscriber(dest.Subscription(),
			func(value T) {
				seen = true
				dest.OnNext(value)
			},
			dest.OnError,
			func() {
				if !seen {
					dest.OnNext(defaultValue)
				}
				dest.OnCompleted()
			},
		)
	})
}

// SwitchIfEmpty 源没有发射任何值就完成时切换到 other
func (o Observable[T]) SwitchIfEmpty(other Observable[T]) Observable[T] {
	return Create(func(s *Subscriber[T]) {
		primary := NewSubscription()
		s.Subscription().AddSubscription(primary)

		seen := false
		o.SubscribeWith(MakeSubscriber(primary,
			func(value T) {
				seen = true
				s.OnNext(value)
			},
			s.OnError,
			func() {
				if seen {
					s.OnCompleted()
					return
				}
				other.SubscribeWith(s)
			},
		))
	})
}

// IgnoreElements 丢弃所有值，只传递终止信号
func (o Observable[T]) IgnoreElements() Observable[T] {
	return o.Filter(func(T) bool { return false })
}

// StartWith 在 source 之前先发射 values
func StartWith[T any](source Observable[T], values ...T) Observable[T] {
	return ConcatWith(FromSlice(values), source)
}

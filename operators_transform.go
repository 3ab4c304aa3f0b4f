// Transform operators for RxGo
// 转换操作符：Map, TryMap, Filter, Take
package rxgo

// Map 对每个值应用 selector。selector 中的 panic 成为终止错误。
func Map[T, R any](source Observable[T], selector func(T) R) Observable[R] {
	return Lift(source, func(dest *Subscriber[R]) *Subscriber[T] {
		return MakeSubscriber(dest.Subscription(),
			func(value T) {
				dest.OnNext(selector(value))
			},
			dest.OnError,
			dest.OnCompleted,
		)
	})
}

// TryMap 对每个值应用可能失败的 selector，返回的错误成为终止错误
func TryMap[T, R any](source Observable[T], selector func(T) (R, error)) Observable[R] {
	return Lift(source, func(dest *Subscriber[R]) *Subscriber[T] {
		return MakeSubscriber(dest.Subscription(),
			func(value T) {
				result, err := selector(value)
				if err != nil {
					dest.OnError(err)
					return
				}
				dest.OnNext(result)
			},
			dest.OnError,
			dest.OnCompleted,
		)
	})
}

// Filter 只传递满足 predicate 的值
func (o Observable[T]) Filter(predicate func(T) bool) Observable[T] {
	return Lift(o, func(dest *Subscriber[T]) *Subscriber[T] {
		return MakeSubscriber(dest.Subscription(),
			func(value T) {
				if predicate(value) {
					dest.OnNext(value)
				}
			},
			dest.OnError,
			dest.OnCompleted,
		)
	})
}

// Take 只传递前 n 个值，然后完成并取消上游
func (o Observable[T]) Take(n int) Observable[T] {
	if n <= 0 {
		return Empty[T]()
	}
	return Lift(o, func(dest *Subscriber[T]) *Subscriber[T] {
		remaining := n
		return MakeSubscriber(dest.Subscription(),
			func(value T) {
				remaining--
				dest.OnNext(value)
				if remaining == 0 {
					dest.OnCompleted()
				}
			},
			dest.OnError,
			dest.OnCompleted,
		)
	})
}

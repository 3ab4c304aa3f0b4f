// Error handling operators for RxGo
// 错误处理操作符实现，包含Catch, Retry, OnErrorReturn等
package rxgo

// ============================================================================
// 错误处理操作符实现
// ============================================================================

// Catch 错误捕获操作符，当发生错误时切换到 handler 返回的 Observable。
// handler 中的 panic 成为终止错误。
func (o Observable[T]) Catch(handler func(error) Observable[T]) Observable[T] {
	return Create(func(s *Subscriber[T]) {
		primary := NewSubscription()
		s.Subscription().AddSubscription(primary)

		o.SubscribeWith(MakeSubscriber(primary,
			s.OnNext,
			func(err error) {
				var fallback Observable[T]
				if perr := catchPanic(func() { fallback = handler(err) }); perr != nil {
					s.OnError(perr)
					return
				}
				fallback.SubscribeWith(s)
			},
			s.OnCompleted,
		))
	})
}

// OnErrorReturn 发生错误时发射 value 然后完成
func (o Observable[T]) OnErrorReturn(value T) Observable[T] {
	return o.Catch(func(error) Observable[T] {
		return Just(value)
	})
}

// OnErrorResumeNext 发生错误时切换到 next
func (o Observable[T]) OnErrorResumeNext(next Observable[T]) Observable[T] {
	return o.Catch(func(error) Observable[T] {
		return next
	})
}

// Retry 发生错误时重新订阅源，最多 count 次；之后的错误传递给下游
func (o Observable[T]) Retry(count int) Observable[T] {
	return Create(func(s *Subscriber[T]) {
		var attempt func(remaining int)
		attempt = func(remaining int) {
			lifetime := NewSubscription()
			s.Subscription().AddSubscription(lifetime)

			o.SubscribeWith(MakeSubscriber(lifetime,
				s.OnNext,
				func(err error) {
					if remaining <= 0 || !s.IsSubscribed() {
						s.OnError(err)
						return
					}
					log := Logger()
					log.Debug().Err(err).Int("remaining", remaining).Msg("retrying after error")
					attempt(remaining - 1)
				},
				s.OnCompleted,
			))
		}
		attempt(count)
	})
}

// Side effect operators for RxGo
// 副作用操作符实现，包含DoOnNext, DoOnError, DoOnCompleted等
package rxgo

// ============================================================================
// 副作用操作符实现
// ============================================================================

// DoOnNext 在每个值发射前执行副作用操作
func (o Observable[T]) DoOnNext(action func(T)) Observable[T] {
	return o.Tap(action, nil, nil)
}

// DoOnError 在发生错误时执行副作用操作
func (o Observable[T]) DoOnError(action func(error)) Observable[T] {
	return o.Tap(nil, action, nil)
}

// DoOnCompleted 在完成时执行副作用操作
func (o Observable[T]) DoOnCompleted(action func()) Observable[T] {
	return o.Tap(nil, nil, action)
}

// Tap 在各个信号传递给下游之前执行对应的副作用操作，任一参数可为 nil
func (o Observable[T]) Tap(onNext func(T), onError func(error), onCompleted func()) Observable[T] {
	return Lift(o, func(dest *Subscriber[T]) *Subscriber[T] {
		return MakeSubscriber(dest.Subscription(),
			func(value T) {
				if onNext != nil {
					onNext(value)
				}
				dest.OnNext(value)
			},
			func(err error) {
				if onError != nil {
					onError(err)
				}
				dest.OnError(err)
			},
			func() {
				if onCompleted != nil {
					onCompleted()
				}
				dest.OnCompleted()
			},
		)
	})
}

// DoOnSubscribe 在每次订阅源之前执行副作用操作
func (o Observable[T]) DoOnSubscribe(action func()) Observable[T] {
	return Create(func(s *Subscriber[T]) {
		action()
		o.SubscribeWith(s)
	})
}

// DoFinally 在订阅释放时执行一次，无论是终止还是取消
func (o Observable[T]) DoFinally(action func()) Observable[T] {
	return Create(func(s *Subscriber[T]) {
		s.Add(action)
		o.SubscribeWith(s)
	})
}

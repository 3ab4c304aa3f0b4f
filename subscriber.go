// Subscriber for RxGo
// 观察者与订阅者：订阅者 = 观察者 + 生命周期
package rxgo

import (
	"sync/atomic"
)

// ============================================================================
// 观察者
// ============================================================================

// Observer 观察者接口。OnError 和 OnCompleted 是终止事件。
type Observer[T any] interface {
	OnNext(value T)
	OnError(err error)
	OnCompleted()
}

// ObserverFuncs 由可选回调组成的观察者。
// 未提供 Error 回调时错误会被记录到日志，而不是静默丢弃。
type ObserverFuncs[T any] struct {
	Next      func(T)
	Error     func(error)
	Completed func()
}

func (o ObserverFuncs[T]) OnNext(value T) {
	if o.Next != nil {
		o.Next(value)
	}
}

func (o ObserverFuncs[T]) OnError(err error) {
	if o.Error != nil {
		o.Error(err)
		return
	}
	log := Logger()
	log.Error().Err(err).Msg("unhandled stream error")
}

func (o ObserverFuncs[T]) OnCompleted() {
	if o.Completed != nil {
		o.Completed()
	}
}

// ============================================================================
// 订阅者
// ============================================================================

// Subscriber 绑定到 Subscription 的观察者。
// 终止事件只会传递一次，之后生命周期被释放。
type Subscriber[T any] struct {
	lifetime *Subscription
	observer Observer[T]
	stopped  atomic.Bool
}

// NewSubscriber 创建订阅者；lifetime 为 nil 时新建
func NewSubscriber[T any](lifetime *Subscription, observer Observer[T]) *Subscriber[T] {
	if lifetime == nil {
		lifetime = NewSubscription()
	}
	return &Subscriber[T]{lifetime: lifetime, observer: observer}
}

// MakeSubscriber 用回调函数创建订阅者
func MakeSubscriber[T any](lifetime *Subscription, onNext func(T), onError func(error), onCompleted func()) *Subscriber[T] {
	return NewSubscriber[T](lifetime, ObserverFuncs[T]{Next: onNext, Error: onError, Completed: onCompleted})
}

// Subscription 返回订阅者的生命周期
func (s *Subscriber[T]) Subscription() *Subscription {
	return s.lifetime
}

// IsSubscribed 未终止且生命周期仍活动
func (s *Subscriber[T]) IsSubscribed() bool {
	return !s.stopped.Load() && s.lifetime.IsSubscribed()
}

// Add 在订阅者的生命周期上注册清理函数
func (s *Subscriber[T]) Add(teardown func()) Token {
	return s.lifetime.Add(teardown)
}

// Unsubscribe 释放订阅者的生命周期
func (s *Subscriber[T]) Unsubscribe() {
	s.lifetime.Unsubscribe()
}

// OnNext 传递下一个值。观察者中的 panic 被转换为终止错误。
func (s *Subscriber[T]) OnNext(value T) {
	if !s.IsSubscribed() {
		return
	}
	if err := catchPanic(func() { s.observer.OnNext(value) }); err != nil {
		s.OnError(err)
	}
}

// OnError 传递终止错误并释放生命周期
func (s *Subscriber[T]) OnError(err error) {
	if !s.lifetime.IsSubscribed() || !s.stopped.CompareAndSwap(false, true) {
		return
	}
	defer s.lifetime.Unsubscribe()
	s.observer.OnError(err)
}

// OnCompleted 传递完成信号并释放生命周期
func (s *Subscriber[T]) OnCompleted() {
	if !s.lifetime.IsSubscribed() || !s.stopped.CompareAndSwap(false, true) {
		return
	}
	defer s.lifetime.Unsubscribe()
	s.observer.OnCompleted()
}

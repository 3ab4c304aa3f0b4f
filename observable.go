// Observable implementation for RxGo
// Observable 核心：订阅、lift 与类型擦除存储
package rxgo

// ============================================================================
// Observable 核心实现
// ============================================================================

// OnSubscriber 源操作符：描述订阅时如何产生序列
type OnSubscriber[T any] interface {
	OnSubscribe(s *Subscriber[T])
}

// Observable 不可变的序列描述。静止时不持有任何可变状态，
// 只有订阅才会创建运行时状态，因此可以在 goroutine 之间自由复制。
type Observable[T any] struct {
	source OnSubscriber[T]
}

// NewObservable 用源操作符创建 Observable
func NewObservable[T any](source OnSubscriber[T]) Observable[T] {
	return Observable[T]{source: source}
}

// Source 返回源操作符
func (o Observable[T]) Source() OnSubscriber[T] {
	return o.source
}

// Subscribe 使用回调函数订阅，任一回调均可为 nil
func (o Observable[T]) Subscribe(onNext func(T), onError func(error), onCompleted func()) *Subscription {
	return o.SubscribeWith(MakeSubscriber(nil, onNext, onError, onCompleted))
}

// SubscribeObserver 订阅观察者
func (o Observable[T]) SubscribeObserver(observer Observer[T]) *Subscription {
	return o.SubscribeWith(NewSubscriber(nil, observer))
}

// SubscribeWith 订阅给定的订阅者并返回其生命周期，用于提前取消。
//
// OnSubscribe 中同步发生的 panic：订阅者仍活动时转换为 OnError 并释放订阅；
// 订阅者已释放时没有人能观察到它，因此重新抛给调用者。
func (o Observable[T]) SubscribeWith(s *Subscriber[T]) *Subscription {
	if !s.IsSubscribed() {
		return s.Subscription()
	}
	subscribeSafely(o.source, s)
	return s.Subscription()
}

func subscribeSafely[T any](source OnSubscriber[T], s *Subscriber[T]) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if !s.IsSubscribed() {
			panic(r)
		}
		s.OnError(NewPanicError(r))
		s.Unsubscribe()
	}()
	source.OnSubscribe(s)
}

// ============================================================================
// Lift
// ============================================================================

// Operator 把下游订阅者转换为面向上游的订阅者
type Operator[T, R any] func(dest *Subscriber[R]) *Subscriber[T]

type liftSource[T, R any] struct {
	source   Observable[T]
	operator Operator[T, R]
}

func (l liftSource[T, R]) OnSubscribe(dest *Subscriber[R]) {
	l.source.SubscribeWith(l.operator(dest))
}

// Lift 创建新的 Observable：订阅时先用 operator 转换下游订阅者，
// 再把原始 source 订阅到转换结果上。source 本身不会被修改。
func Lift[T, R any](source Observable[T], operator Operator[T, R]) Observable[R] {
	return NewObservable[R](liftSource[T, R]{source: source, operator: operator})
}

// ============================================================================
// 类型擦除存储
// ============================================================================

// dynamicSource 把 OnSubscribe 装箱为单个函数，
// 让任意组合链都能以同一个具体类型存储
type dynamicSource[T any] struct {
	onSubscribe func(s *Subscriber[T])
}

func (d dynamicSource[T]) OnSubscribe(s *Subscriber[T]) {
	d.onSubscribe(s)
}

// Create 从订阅函数创建 Observable
func Create[T any](onSubscribe func(s *Subscriber[T])) Observable[T] {
	return NewObservable[T](dynamicSource[T]{onSubscribe: onSubscribe})
}

// AsDynamic 返回源操作符被装箱后的等价 Observable
func (o Observable[T]) AsDynamic() Observable[T] {
	if _, ok := o.source.(dynamicSource[T]); ok {
		return o
	}
	return Create(o.source.OnSubscribe)
}

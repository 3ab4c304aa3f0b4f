package rxgo

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testTimeout = 5 * time.Second

// recorder 记录一次订阅收到的全部信号
type recorder[T any] struct {
	mu        sync.Mutex
	values    []T
	err       error
	completed bool
	done      chan struct{}
	once      sync.Once
}

func newRecorder[T any]() *recorder[T] {
	return &recorder[T]{done: make(chan struct{})}
}

func (r *recorder[T]) subscriber() *Subscriber[T] {
	return MakeSubscriber(nil, r.onNext, r.onError, r.onCompleted)
}

func (r *recorder[T]) onNext(v T) {
	r.mu.Lock()
	r.values = append(r.values, v)
	r.mu.Unlock()
}

func (r *recorder[T]) onError(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
	r.once.Do(func() { close(r.done) })
}

func (r *recorder[T]) onCompleted() {
	r.mu.Lock()
	r.completed = true
	r.mu.Unlock()
	r.once.Do(func() { close(r.done) })
}

func (r *recorder[T]) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for terminal signal")
	}
}

func (r *recorder[T]) Values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.values...)
}

func (r *recorder[T]) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *recorder[T]) Completed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completed
}

// waitClosed 等待 ch 关闭
func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(testTimeout):
		require.FailNow(t, "timed out waiting for channel")
	}
}

// disposedSignal 返回在 s 释放时关闭的 channel
func disposedSignal(s *Subscription) <-chan struct{} {
	ch := make(chan struct{})
	s.Add(func() { close(ch) })
	return ch
}

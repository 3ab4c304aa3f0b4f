package rxgo

import (
	"bytes"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xinjiayu/rxgo/internal/goid"
)

// ============================================================================
// 调度器通用测试
// ============================================================================

func TestSchedulerByName(t *testing.T) {
	for _, name := range []string{SchedulerImmediate, SchedulerCurrentThread, SchedulerNewThread} {
		s, err := SchedulerByName(name)
		require.NoError(t, err, name)
		require.NotNil(t, s)
	}

	_, err := SchedulerByName("pool")
	assert.ErrorContains(t, err, "unknown scheduler")
}

func TestWorkerScheduleOnDisposedIsNoop(t *testing.T) {
	for _, sched := range []Scheduler{ImmediateScheduler, CurrentThreadScheduler, NewThreadScheduler} {
		w := sched.CreateWorker(nil)
		w.Unsubscribe()

		ran := false
		w.Schedule(OneShot(func() { ran = true }))
		w.Schedule(nil)
		assert.False(t, ran)
		assert.False(t, w.IsSubscribed())
	}
}

func TestWorkerID(t *testing.T) {
	a := ImmediateScheduler.CreateWorker(nil)
	b := ImmediateScheduler.CreateWorker(nil)
	assert.NotEmpty(t, a.ID())
	assert.Equal(t, a.ID(), a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestWorkerSharesLifetime(t *testing.T) {
	lifetime := NewSubscription()
	w := CurrentThreadScheduler.CreateWorker(lifetime)
	assert.Same(t, lifetime, w.Subscription())

	lifetime.Unsubscribe()
	assert.False(t, w.IsSubscribed())
}

// ============================================================================
// 立即调度器
// ============================================================================

func TestImmediateScheduler(t *testing.T) {
	t.Run("同步执行", func(t *testing.T) {
		w := ImmediateScheduler.CreateWorker(nil)
		ran := false
		w.Schedule(OneShot(func() { ran = true }))
		assert.True(t, ran)
	})

	t.Run("tail 循环直到 exit", func(t *testing.T) {
		w := ImmediateScheduler.CreateWorker(nil)
		n := 0
		w.Schedule(func(*Worker) ActionResult {
			n++
			if n < 100 {
				return Tail()
			}
			return Exit()
		})
		assert.Equal(t, 100, n)
	})

	t.Run("repeat_when 在调用者上睡眠", func(t *testing.T) {
		w := ImmediateScheduler.CreateWorker(nil)
		start := time.Now()
		n := 0
		w.Schedule(func(self *Worker) ActionResult {
			n++
			if n < 3 {
				return RepeatWhen(self.Now().Add(2 * time.Millisecond))
			}
			return Exit()
		})
		assert.Equal(t, 3, n)
		assert.GreaterOrEqual(t, time.Since(start), 4*time.Millisecond)
	})

	t.Run("释放停止循环", func(t *testing.T) {
		w := ImmediateScheduler.CreateWorker(nil)
		n := 0
		w.Schedule(func(self *Worker) ActionResult {
			n++
			if n == 5 {
				self.Unsubscribe()
			}
			return Tail()
		})
		assert.Equal(t, 5, n)
	})

	t.Run("嵌套调度递归执行", func(t *testing.T) {
		w := ImmediateScheduler.CreateWorker(nil)
		var order []string
		w.Schedule(OneShot(func() {
			order = append(order, "outer-start")
			w.Schedule(OneShot(func() { order = append(order, "inner") }))
			order = append(order, "outer-end")
		}))
		assert.Equal(t, []string{"outer-start", "inner", "outer-end"}, order)
	})
}

// ============================================================================
// 当前线程调度器
// ============================================================================

func TestCurrentThreadScheduler(t *testing.T) {
	t.Run("嵌套调度排队而不递归", func(t *testing.T) {
		w := CurrentThreadScheduler.CreateWorker(nil)
		var order []string
		w.Schedule(OneShot(func() {
			order = append(order, "outer-start")
			w.Schedule(OneShot(func() { order = append(order, "inner") }))
			order = append(order, "outer-end")
		}))
		assert.Equal(t, []string{"outer-start", "outer-end", "inner"}, order)
		assert.False(t, trampolineActive())
	})

	t.Run("相同时间按提交顺序", func(t *testing.T) {
		vc := NewVirtualClock(time.Unix(0, 0))
		w := NewCurrentThreadScheduler(WithClock(vc)).CreateWorker(nil)
		var order []int
		w.Schedule(OneShot(func() {
			for i := 0; i < 10; i++ {
				w.ScheduleAt(vc.Now(), OneShot(func() { order = append(order, i) }))
			}
		}))
		assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
	})

	t.Run("按到期时间排序", func(t *testing.T) {
		w := CurrentThreadScheduler.CreateWorker(nil)
		var order []string
		w.Schedule(OneShot(func() {
			now := w.Now()
			w.ScheduleAt(now.Add(20*time.Millisecond), OneShot(func() { order = append(order, "late") }))
			w.ScheduleAt(now.Add(10*time.Millisecond), OneShot(func() { order = append(order, "early") }))
			w.Schedule(OneShot(func() { order = append(order, "now") }))
		}))
		assert.Equal(t, []string{"now", "early", "late"}, order)
	})

	t.Run("多个 Worker 共享同一个蹦床", func(t *testing.T) {
		a := CurrentThreadScheduler.CreateWorker(nil)
		b := CurrentThreadScheduler.CreateWorker(nil)
		var order []string
		a.Schedule(OneShot(func() {
			b.Schedule(OneShot(func() { order = append(order, "b") }))
			a.Schedule(OneShot(func() { order = append(order, "a") }))
			order = append(order, "outer")
		}))
		assert.Equal(t, []string{"outer", "b", "a"}, order)
	})

	t.Run("释放的 Worker 的排队动作被跳过", func(t *testing.T) {
		a := CurrentThreadScheduler.CreateWorker(nil)
		b := CurrentThreadScheduler.CreateWorker(nil)
		ran := false
		a.Schedule(OneShot(func() {
			b.Schedule(OneShot(func() { ran = true }))
			b.Unsubscribe()
		}))
		assert.False(t, ran)
	})

	t.Run("大量自调度不增长栈", func(t *testing.T) {
		if testing.Short() {
			t.Skip("long running")
		}
		const total = 1_000_000
		w := CurrentThreadScheduler.CreateWorker(nil)
		n := 0
		var step func()
		step = func() {
			n++
			if n < total {
				w.Schedule(OneShot(step))
			}
		}
		w.Schedule(OneShot(step))
		assert.Equal(t, total, n)
	})

	t.Run("panic 之后释放蹦床", func(t *testing.T) {
		w := CurrentThreadScheduler.CreateWorker(nil)
		assert.PanicsWithValue(t, "boom", func() {
			w.Schedule(OneShot(func() { panic("boom") }))
		})
		assert.False(t, trampolineActive())

		ran := false
		w.Schedule(OneShot(func() { ran = true }))
		assert.True(t, ran)
	})

	t.Run("repeat_when 重新入队", func(t *testing.T) {
		w := CurrentThreadScheduler.CreateWorker(nil)
		n := 0
		w.Schedule(func(self *Worker) ActionResult {
			n++
			if n < 3 {
				return RepeatWhen(self.Now().Add(time.Millisecond))
			}
			return Exit()
		})
		assert.Equal(t, 3, n)
	})
}

// ============================================================================
// 新线程调度器
// ============================================================================

func TestNewThreadScheduler(t *testing.T) {
	t.Run("在专用 goroutine 上按顺序执行", func(t *testing.T) {
		w := NewThreadScheduler.CreateWorker(nil)
		defer w.Unsubscribe()

		caller := goid.Get()
		var (
			mu    sync.Mutex
			order []int
			gids  = map[int64]bool{}
		)
		done := make(chan struct{})
		for i := 0; i < 100; i++ {
			w.Schedule(OneShot(func() {
				mu.Lock()
				order = append(order, i)
				gids[goid.Get()] = true
				mu.Unlock()
				if i == 99 {
					close(done)
				}
			}))
		}
		waitClosed(t, done)

		mu.Lock()
		defer mu.Unlock()
		require.Len(t, order, 100)
		for i, v := range order {
			assert.Equal(t, i, v)
		}
		assert.Len(t, gids, 1)
		assert.False(t, gids[caller])
	})

	t.Run("在自身 goroutine 上释放不会死锁", func(t *testing.T) {
		w := NewThreadScheduler.CreateWorker(nil)
		disposed := disposedSignal(w.Subscription())
		w.Schedule(OneShot(w.Unsubscribe))
		waitClosed(t, disposed)
	})

	t.Run("外部释放等待正在执行的动作", func(t *testing.T) {
		w := NewThreadScheduler.CreateWorker(nil)
		started := make(chan struct{})
		release := make(chan struct{})
		var finished atomic.Bool
		var secondRan atomic.Bool

		w.Schedule(OneShot(func() {
			close(started)
			<-release
			time.Sleep(5 * time.Millisecond)
			finished.Store(true)
		}))
		w.Schedule(OneShot(func() { secondRan.Store(true) }))
		waitClosed(t, started)

		unsubscribed := make(chan struct{})
		go func() {
			w.Unsubscribe()
			close(unsubscribed)
		}()
		require.Eventually(t, func() bool { return !w.IsSubscribed() }, testTimeout, time.Millisecond)
		close(release)
		waitClosed(t, unsubscribed)

		assert.True(t, finished.Load(), "unsubscribe joins the running action")
		assert.False(t, secondRan.Load(), "queued actions are dropped")
	})

	t.Run("ThreadFactory 注入", func(t *testing.T) {
		var started atomic.Int32
		sched := NewNewThreadScheduler(WithThreadFactory(func(start func()) {
			started.Add(1)
			go start()
		}))
		w1 := sched.CreateWorker(nil)
		w2 := sched.CreateWorker(nil)
		w1.Unsubscribe()
		w2.Unsubscribe()
		assert.Equal(t, int32(2), started.Load())
	})

	t.Run("ThreadFactory 不启动 goroutine 时释放不阻塞", func(t *testing.T) {
		var starts []func()
		sched := NewNewThreadScheduler(WithThreadFactory(func(start func()) {
			starts = append(starts, start)
		}))

		var ran atomic.Bool
		w := sched.CreateWorker(nil)
		w.Schedule(OneShot(func() { ran.Store(true) }))

		released := make(chan struct{})
		go func() {
			w.Unsubscribe()
			close(released)
		}()
		waitClosed(t, released)

		require.Len(t, starts, 1)
		// 释放之后才运行的 start 立即返回，不执行排队的动作
		starts[0]()
		assert.False(t, ran.Load())
	})

	t.Run("ThreadFactory 延后启动时执行排队的动作", func(t *testing.T) {
		var starts []func()
		sched := NewNewThreadScheduler(WithThreadFactory(func(start func()) {
			starts = append(starts, start)
		}))

		w := sched.CreateWorker(nil)
		done := make(chan struct{})
		w.Schedule(OneShot(func() { close(done) }))

		require.Len(t, starts, 1)
		go starts[0]()
		waitClosed(t, done)
		w.Unsubscribe()
		assert.False(t, w.IsSubscribed())
	})

	t.Run("动作 panic 时记录日志并释放 Worker", func(t *testing.T) {
		var buf bytes.Buffer
		// 只记录错误，避免 Worker 退出时的调试日志与读取竞争
		log := zerolog.New(&buf).Level(zerolog.ErrorLevel)
		w := NewNewThreadScheduler(WithLogger(log)).CreateWorker(nil)
		disposed := disposedSignal(w.Subscription())

		w.Schedule(OneShot(func() { panic("boom") }))
		waitClosed(t, disposed)

		assert.Contains(t, buf.String(), "action panicked")
		assert.Contains(t, buf.String(), w.ID())
	})

	t.Run("动作 panic 交给 OnPanic 处理函数", func(t *testing.T) {
		log := zerolog.Nop()
		w := NewNewThreadScheduler(WithLogger(log)).CreateWorker(nil)
		disposed := disposedSignal(w.Subscription())

		got := make(chan error, 1)
		w.OnPanic(func(err error) { got <- err })
		w.Schedule(OneShot(func() { panic("tick failed") }))

		var err error
		select {
		case err = <-got:
		case <-time.After(testTimeout):
			t.Fatal("panic handler not called")
		}
		var perr *PanicError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "tick failed", perr.Value)
		waitClosed(t, disposed)
	})

	t.Run("延迟动作", func(t *testing.T) {
		w := NewThreadScheduler.CreateWorker(nil)
		defer w.Unsubscribe()

		start := time.Now()
		done := make(chan time.Time, 1)
		w.ScheduleAfter(10*time.Millisecond, OneShot(func() { done <- time.Now() }))
		select {
		case at := <-done:
			assert.GreaterOrEqual(t, at.Sub(start), 10*time.Millisecond)
		case <-time.After(testTimeout):
			t.Fatal("delayed action never ran")
		}
	})

	t.Run("当前线程调度委托给 Worker 队列", func(t *testing.T) {
		w := NewThreadScheduler.CreateWorker(nil)
		defer w.Unsubscribe()

		var order []string
		done := make(chan struct{})
		w.Schedule(OneShot(func() {
			inner := CurrentThreadScheduler.CreateWorker(nil)
			inner.Schedule(OneShot(func() {
				order = append(order, "current-thread")
				close(done)
			}))
			order = append(order, "outer")
		}))
		waitClosed(t, done)
		assert.Equal(t, []string{"outer", "current-thread"}, order)
	})

	t.Run("释放后仍执行委托进来的其他 Worker 的动作", func(t *testing.T) {
		w := NewThreadScheduler.CreateWorker(nil)
		done := make(chan struct{})
		var ownRan atomic.Bool

		w.Schedule(OneShot(func() {
			inner := CurrentThreadScheduler.CreateWorker(nil)
			inner.Schedule(OneShot(func() { close(done) }))
			w.Schedule(OneShot(func() { ownRan.Store(true) }))
			w.Unsubscribe()
		}))

		waitClosed(t, done)
		assert.False(t, ownRan.Load(), "the disposed worker's own actions are dropped")
	})
}

// ============================================================================
// 周期调度
// ============================================================================

func TestSchedulePeriodicallyVirtualClock(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	const period = 100 * time.Millisecond

	vc := NewVirtualClock(start)
	w := NewNewThreadScheduler(WithClock(vc)).CreateWorker(nil)
	defer w.Unsubscribe()

	ticks := make(chan time.Time, 16)
	n := 0
	w.SchedulePeriodically(start.Add(period), period, func(self *Worker) ActionResult {
		n++
		ticks <- self.Now()
		if n == 10 {
			self.Unsubscribe()
		}
		return Exit()
	})

	for i := 1; i <= 10; i++ {
		require.Eventually(t, func() bool { return vc.Waiters() == 1 }, testTimeout, time.Millisecond)
		vc.Advance(period)
		select {
		case at := <-ticks:
			// 没有漂移：第 i 次恰好在 start + i*period
			assert.Equal(t, start.Add(time.Duration(i)*period), at)
		case <-time.After(testTimeout):
			t.Fatalf("tick %d never ran", i)
		}
	}

	vc.Advance(period)
	select {
	case at := <-ticks:
		t.Fatalf("unexpected 11th tick at %s", at)
	case <-time.After(20 * time.Millisecond):
	}
	assert.Equal(t, 0, vc.Waiters())
}

func TestSchedulePeriodicallyCompensatesLateness(t *testing.T) {
	w := CurrentThreadScheduler.CreateWorker(nil)
	start := w.Now()
	const period = 5 * time.Millisecond

	var at []time.Time
	w.SchedulePeriodically(start, period, func(self *Worker) ActionResult {
		at = append(at, self.Now())
		if len(at) == 1 {
			// 第一次超时运行，第二次应立即补上
			time.Sleep(2 * period)
		}
		if len(at) == 4 {
			self.Unsubscribe()
		}
		return Exit()
	})

	require.Len(t, at, 4)
	// 第 4 次的目标时间是 start+3*period，早已过去，不会再额外等待一个周期
	assert.Less(t, at[3].Sub(start), 3*period+2*period+50*time.Millisecond)
	for i := 1; i < len(at); i++ {
		assert.False(t, at[i].Before(start.Add(time.Duration(i)*period)), "tick %d ran before its target", i)
	}
}

func TestSchedulePeriodicallyImmediate(t *testing.T) {
	w := ImmediateScheduler.CreateWorker(nil)
	n := 0
	w.SchedulePeriodicallyAfter(0, time.Millisecond, func(self *Worker) ActionResult {
		n++
		if n == 3 {
			self.Unsubscribe()
		}
		return Exit()
	})
	assert.Equal(t, 3, n)
}

func TestSchedulePeriodicallyInnerRepeat(t *testing.T) {
	w := CurrentThreadScheduler.CreateWorker(nil)
	var calls []string
	ticks := 0
	w.SchedulePeriodicallyAfter(0, time.Millisecond, func(self *Worker) ActionResult {
		calls = append(calls, "run")
		if len(calls)%2 == 1 {
			// 同一次 tick 内的 tail 立即再次执行
			return Tail()
		}
		ticks++
		if ticks == 2 {
			self.Unsubscribe()
		}
		return Exit()
	})
	assert.Len(t, calls, 4)
}

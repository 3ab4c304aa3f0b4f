// New thread scheduler
// 新线程调度器：每个 Worker 一个专用 goroutine 和一个按时间排序的队列
package rxgo

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/xinjiayu/rxgo/internal/goid"
)

type newThreadScheduler struct {
	config *Config
}

// NewNewThreadScheduler 创建新线程调度器
func NewNewThreadScheduler(options ...Option) Scheduler {
	return &newThreadScheduler{config: newConfig(options)}
}

func (s *newThreadScheduler) Now() time.Time {
	return s.config.Clock.Now()
}

// CreateWorker 通过 ThreadFactory 启动 Worker 的 goroutine。
// Worker 释放时唤醒该 goroutine，丢弃剩余动作并等待其退出；
// 若释放发生在该 goroutine 自身上，或 ThreadFactory 尚未运行 start，则不等待。
func (s *newThreadScheduler) CreateWorker(lifetime *Subscription) *Worker {
	nw := &newThreadWorker{
		config: s.config,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	w := newWorker(lifetime, nw)
	nw.lifetime = w.lifetime

	s.config.ThreadFactory(func() {
		nw.loop(w)
	})
	w.lifetime.Add(nw.shutdown)
	return w
}

// newThreadWorker 的 goroutine 状态
const (
	threadPending int32 = iota
	threadRunning
	threadAbandoned
)

type newThreadWorker struct {
	config   *Config
	lifetime *Subscription

	mu    sync.Mutex
	queue actionQueue
	wake  chan struct{}
	done  chan struct{}
	gid   atomic.Int64
	state atomic.Int32
}

func (nw *newThreadWorker) clock() Clock {
	return nw.config.Clock
}

func (nw *newThreadWorker) scheduleAt(w *Worker, when time.Time, a Action) {
	nw.enqueue(w, when, a)
}

func (nw *newThreadWorker) enqueue(w *Worker, when time.Time, a Action) {
	nw.mu.Lock()
	nw.queue.push(when, a, w)
	nw.mu.Unlock()
	nw.signal()
}

func (nw *newThreadWorker) signal() {
	select {
	case nw.wake <- struct{}{}:
	default:
	}
}

func (nw *newThreadWorker) shutdown() {
	nw.signal()
	// start 从未运行：之后运行时会直接返回
	if nw.state.CompareAndSwap(threadPending, threadAbandoned) {
		return
	}
	if nw.gid.Load() == goid.Get() {
		return
	}
	<-nw.done
}

func (nw *newThreadWorker) loop(w *Worker) {
	gid := goid.Get()
	nw.gid.Store(gid)
	defer close(nw.done)

	if !nw.state.CompareAndSwap(threadPending, threadRunning) {
		return
	}

	// 本 goroutine 上的当前线程调度委托给本 Worker 的队列
	acquireTrampoline(nw.config, gid, &trampoline{delegate: nw.enqueue})
	defer releaseTrampoline(nw.config, gid)

	log := nw.config.log().With().Str("worker_id", w.ID()).Str("scheduler", SchedulerNewThread).Logger()
	log.Debug().Msg("worker started")
	defer func() {
		log.Debug().Msg("worker stopped")
	}()

	for {
		item, ok := nw.next()
		if !ok {
			return
		}
		nw.execute(item)
	}
}

// next 等待最早的到期动作。Worker 释放后丢弃自己的动作，
// 但继续执行经蹦床委托进来的、仍活动的其他 Worker 的动作，全部完成后返回 false。
func (nw *newThreadWorker) next() (queueItem, bool) {
	for {
		nw.mu.Lock()
		if !nw.lifetime.IsSubscribed() {
			nw.queue.retain(func(item queueItem) bool {
				return item.worker.lifetime != nw.lifetime && item.worker.IsSubscribed()
			})
			if nw.queue.empty() {
				nw.mu.Unlock()
				return queueItem{}, false
			}
		}
		if nw.queue.empty() {
			nw.mu.Unlock()
			<-nw.wake
			continue
		}
		top := nw.queue.peek()
		if !top.worker.IsSubscribed() {
			nw.queue.pop()
			nw.mu.Unlock()
			continue
		}
		if top.when.After(nw.config.Clock.Now()) {
			nw.mu.Unlock()
			timer := nw.config.Clock.NewTimerAt(top.when)
			select {
			case <-nw.wake:
				timer.Stop()
			case <-timer.C():
			}
			continue
		}
		item := nw.queue.pop()
		nw.mu.Unlock()
		return item, true
	}
}

// execute 在锁外执行动作。动作中的 panic 被记录并交给 Worker 的 OnPanic 处理函数，
// 然后释放对应的 Worker。
func (nw *newThreadWorker) execute(item queueItem) {
	defer func() {
		if r := recover(); r != nil {
			log := nw.config.log()
			log.Error().
				Str("worker_id", item.worker.ID()).
				Interface("panic", r).
				Msg("action panicked, disposing worker")
			item.worker.reportPanic(NewPanicError(r))
			item.worker.Unsubscribe()
		}
	}()

	r := item.worker.run(item.action)
	if r.Verb == ActionRepeatWhen && item.worker.IsSubscribed() {
		nw.enqueue(item.worker, r.When, item.action)
	}
}

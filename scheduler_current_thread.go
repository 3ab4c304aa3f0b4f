// Current thread scheduler
// 当前线程调度器：每个 goroutine 一个蹦床队列，限制递归调度的栈深度
package rxgo

import (
	"sync"
	"time"

	"github.com/xinjiayu/rxgo/internal/goid"
)

// ============================================================================
// 蹦床 - Trampoline
// ============================================================================

// trampoline 某个 goroutine 的待执行队列。owner 持有期间，
// 该 goroutine 上的嵌套调度通过 delegate 入队而不是递归执行。
type trampoline struct {
	queue    actionQueue
	delegate func(w *Worker, when time.Time, a Action)
}

// trampolines 按 goroutine id 索引的蹦床
var trampolines sync.Map

func lookupTrampoline(gid int64) *trampoline {
	if t, ok := trampolines.Load(gid); ok {
		return t.(*trampoline)
	}
	return nil
}

// acquireTrampoline 为 gid 发布蹦床，调用方必须 defer releaseTrampoline
func acquireTrampoline(config *Config, gid int64, t *trampoline) {
	if _, loaded := trampolines.LoadOrStore(gid, t); loaded {
		log := config.log()
		log.Fatal().Int64("goroutine", gid).Msg("trampoline already owned by this goroutine")
	}
}

func releaseTrampoline(config *Config, gid int64) {
	if _, loaded := trampolines.LoadAndDelete(gid); !loaded {
		log := config.log()
		log.Fatal().Int64("goroutine", gid).Msg("trampoline missing on release")
	}
}

func trampolineActive() bool {
	return lookupTrampoline(goid.Get()) != nil
}

// ============================================================================
// 当前线程调度器 - Current Thread Scheduler
// ============================================================================

type currentThreadScheduler struct {
	config *Config
}

// NewCurrentThreadScheduler 创建当前线程调度器。
// 第一次 Schedule 的调用者成为队列的 owner 并负责排空队列；
// 之后在其动作中发起的 Schedule 只入队。
func NewCurrentThreadScheduler(options ...Option) Scheduler {
	return &currentThreadScheduler{config: newConfig(options)}
}

func (s *currentThreadScheduler) Now() time.Time {
	return s.config.Clock.Now()
}

func (s *currentThreadScheduler) CreateWorker(lifetime *Subscription) *Worker {
	return newWorker(lifetime, currentThreadWorker{config: s.config})
}

type currentThreadWorker struct {
	config *Config
}

func (cw currentThreadWorker) clock() Clock {
	return cw.config.Clock
}

func (cw currentThreadWorker) scheduleAt(w *Worker, when time.Time, a Action) {
	gid := goid.Get()
	if t := lookupTrampoline(gid); t != nil {
		t.delegate(w, when, a)
		return
	}

	// 成为 owner
	t := &trampoline{}
	t.delegate = func(w *Worker, when time.Time, a Action) {
		t.queue.push(when, a, w)
	}
	acquireTrampoline(cw.config, gid, t)
	defer releaseTrampoline(cw.config, gid)

	t.queue.push(when, a, w)
	for !t.queue.empty() {
		next := t.queue.peek()
		sleepUntil(next.worker.core.clock(), next.when)
		item := t.queue.pop()
		if !item.worker.IsSubscribed() {
			continue
		}
		r := item.worker.run(item.action)
		if r.Verb == ActionRepeatWhen && item.worker.IsSubscribed() {
			t.queue.push(r.When, item.action, item.worker)
		}
	}
}

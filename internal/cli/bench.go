package cli

import (
	"context"
	"time"

	"github.com/xinjiayu/rxgo"
)

// RunRange 把 range(1, sections) 的每个元素连接到 range(1, count) 的偶数上并阻塞计数
func RunRange(ctx context.Context, sched rxgo.Scheduler, sections, count int) (RangeResult, error) {
	start := time.Now()

	values := rxgo.ConcatMap(rxgo.RangeOn(1, sections, 1, sched), func(section int) rxgo.Observable[int] {
		evens := rxgo.RangeOn(1, count, 1, sched).Filter(func(v int) bool { return v%2 == 0 })
		return rxgo.Map(evens, func(v int) int { return v * section })
	})

	n, err := values.AsBlocking().WithContext(ctx).Count()
	if err != nil {
		return RangeResult{}, err
	}
	return RangeResult{Emitted: n, Elapsed: time.Since(start)}, nil
}

// Tick 一次周期执行的观测值
type Tick struct {
	Index int
	At    time.Time
	Drift time.Duration
}

// RunPeriodic 在 sched 的 Worker 上周期执行 ticks 次，记录每次相对理想时间的偏差
func RunPeriodic(ctx context.Context, sched rxgo.Scheduler, period time.Duration, ticks int) ([]Tick, error) {
	w := sched.CreateWorker(nil)
	done := make(chan struct{})
	w.Subscription().Add(func() { close(done) })

	stop := context.AfterFunc(ctx, w.Unsubscribe)
	defer stop()

	results := make([]Tick, 0, ticks)
	initial := w.Now().Add(period)
	w.SchedulePeriodically(initial, period, func(self *rxgo.Worker) rxgo.ActionResult {
		now := self.Now()
		i := len(results)
		ideal := initial.Add(time.Duration(i) * period)
		results = append(results, Tick{Index: i + 1, At: now, Drift: now.Sub(ideal)})
		if len(results) == ticks {
			self.Unsubscribe()
		}
		return rxgo.Exit()
	})

	<-done
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

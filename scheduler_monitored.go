// Monitored scheduler
// 带监控的调度器包装器，使用 OpenTelemetry 记录动作指标
package rxgo

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ============================================================================
// 调度器性能监控
// ============================================================================

// 指标名称
const (
	MetricActionsScheduled = "rxgo.actions.scheduled"
	MetricActionsExecuted  = "rxgo.actions.executed"
	MetricActionsFailed    = "rxgo.actions.failed"
	MetricActionLateness   = "rxgo.action.lateness"
	MetricWorkersActive    = "rxgo.workers.active"
)

type schedulerMetrics struct {
	scheduled metric.Int64Counter
	executed  metric.Int64Counter
	failed    metric.Int64Counter
	lateness  metric.Float64Histogram
	active    metric.Int64UpDownCounter
	attrs     metric.MeasurementOption
}

func newSchedulerMetrics(meter metric.Meter, attrs []attribute.KeyValue) (*schedulerMetrics, error) {
	m := &schedulerMetrics{attrs: metric.WithAttributes(attrs...)}
	var err error

	if m.scheduled, err = meter.Int64Counter(MetricActionsScheduled,
		metric.WithDescription("Number of actions submitted to workers"),
	); err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricActionsScheduled, err)
	}
	if m.executed, err = meter.Int64Counter(MetricActionsExecuted,
		metric.WithDescription("Number of action invocations that returned"),
	); err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricActionsExecuted, err)
	}
	if m.failed, err = meter.Int64Counter(MetricActionsFailed,
		metric.WithDescription("Number of action invocations that panicked"),
	); err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricActionsFailed, err)
	}
	if m.lateness, err = meter.Float64Histogram(MetricActionLateness,
		metric.WithDescription("Delay between an action's due time and its start"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricActionLateness, err)
	}
	if m.active, err = meter.Int64UpDownCounter(MetricWorkersActive,
		metric.WithDescription("Number of workers not yet disposed"),
	); err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricWorkersActive, err)
	}
	return m, nil
}

// monitoredScheduler 带监控的调度器包装器
type monitoredScheduler struct {
	scheduler Scheduler
	metrics   *schedulerMetrics
}

// NewMonitoredScheduler 创建带监控的调度器。attrs 附加到所有测量值上。
func NewMonitoredScheduler(scheduler Scheduler, meter metric.Meter, attrs ...attribute.KeyValue) (Scheduler, error) {
	metrics, err := newSchedulerMetrics(meter, attrs)
	if err != nil {
		return nil, err
	}
	return &monitoredScheduler{scheduler: scheduler, metrics: metrics}, nil
}

func (s *monitoredScheduler) Now() time.Time {
	return s.scheduler.Now()
}

// CreateWorker 包装内部 Worker，使其调度的每个动作都被计量
func (s *monitoredScheduler) CreateWorker(lifetime *Subscription) *Worker {
	inner := s.scheduler.CreateWorker(lifetime)

	ctx := context.Background()
	s.metrics.active.Add(ctx, 1, s.metrics.attrs)
	inner.lifetime.Add(func() {
		s.metrics.active.Add(ctx, -1, s.metrics.attrs)
	})

	return newWorker(inner.lifetime, monitoredWorker{inner: inner.core, metrics: s.metrics})
}

type monitoredWorker struct {
	inner   workerCore
	metrics *schedulerMetrics
}

func (mw monitoredWorker) clock() Clock {
	return mw.inner.clock()
}

func (mw monitoredWorker) scheduleAt(w *Worker, when time.Time, a Action) {
	m := mw.metrics
	ctx := context.Background()
	m.scheduled.Add(ctx, 1, m.attrs)

	due := when
	wrapped := func(self *Worker) ActionResult {
		start := self.Now()
		m.lateness.Record(ctx, max(start.Sub(due), 0).Seconds(), m.attrs)

		defer func() {
			if r := recover(); r != nil {
				m.failed.Add(ctx, 1, m.attrs)
				panic(r)
			}
		}()

		r := a(self)
		m.executed.Add(ctx, 1, m.attrs)
		switch r.Verb {
		case ActionRepeatWhen:
			due = r.When
		case ActionTail:
			due = self.Now()
		}
		return r
	}
	mw.inner.scheduleAt(w, when, wrapped)
}

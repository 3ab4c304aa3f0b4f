// Scheduler implementations for RxGo
// 调度器：Worker 工厂 + 时钟
package rxgo

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ============================================================================
// 调度器接口
// ============================================================================

// Scheduler 调度器接口。除时钟和线程创建策略外无状态。
type Scheduler interface {
	// Now 返回调度器时钟的当前时间
	Now() time.Time
	// CreateWorker 创建生命周期绑定到 lifetime 的 Worker；lifetime 为 nil 时新建
	CreateWorker(lifetime *Subscription) *Worker
}

// ThreadFactory 启动执行 start 的新 goroutine
type ThreadFactory func(start func())

func goThreadFactory(start func()) {
	go start()
}

// ============================================================================
// 配置选项
// ============================================================================

// Option 调度器配置选项接口
type Option interface {
	Apply(config *Config)
}

// Config 调度器配置
type Config struct {
	Clock         Clock
	ThreadFactory ThreadFactory
	Logger        *zerolog.Logger
}

// DefaultConfig 默认配置：系统时钟、每个 Worker 一个 goroutine、包级日志
func DefaultConfig() *Config {
	return &Config{
		Clock:         RealClock(),
		ThreadFactory: goThreadFactory,
	}
}

func newConfig(options []Option) *Config {
	config := DefaultConfig()
	for _, opt := range options {
		opt.Apply(config)
	}
	return config
}

func (c *Config) log() zerolog.Logger {
	if c.Logger != nil {
		return *c.Logger
	}
	return Logger()
}

type optionFunc func(config *Config)

func (f optionFunc) Apply(config *Config) { f(config) }

// WithClock 使用指定时钟（例如 VirtualClock）
func WithClock(clock Clock) Option {
	return optionFunc(func(config *Config) {
		if clock != nil {
			config.Clock = clock
		}
	})
}

// WithThreadFactory 使用指定的 goroutine 创建策略
func WithThreadFactory(factory ThreadFactory) Option {
	return optionFunc(func(config *Config) {
		if factory != nil {
			config.ThreadFactory = factory
		}
	})
}

// WithLogger 使用指定日志
func WithLogger(logger zerolog.Logger) Option {
	return optionFunc(func(config *Config) {
		config.Logger = &logger
	})
}

// ============================================================================
// 默认调度器
// ============================================================================

var (
	// ImmediateScheduler 立即调度器实例
	ImmediateScheduler Scheduler = NewImmediateScheduler()

	// CurrentThreadScheduler 当前线程调度器实例
	CurrentThreadScheduler Scheduler = NewCurrentThreadScheduler()

	// NewThreadScheduler 新线程调度器实例
	NewThreadScheduler Scheduler = NewNewThreadScheduler()
)

// 调度器名称，用于配置和命令行
const (
	SchedulerImmediate     = "immediate"
	SchedulerCurrentThread = "current_thread"
	SchedulerNewThread     = "new_thread"
)

// SchedulerByName 按名称创建调度器
func SchedulerByName(name string, options ...Option) (Scheduler, error) {
	switch name {
	case SchedulerImmediate:
		return NewImmediateScheduler(options...), nil
	case SchedulerCurrentThread:
		return NewCurrentThreadScheduler(options...), nil
	case SchedulerNewThread:
		return NewNewThreadScheduler(options...), nil
	}
	return nil, fmt.Errorf("rxgo: unknown scheduler %q", name)
}

// Virtual clock for RxGo
// 虚拟时钟：时间只在 Advance 时前进，用于无等待地测试调度器
package rxgo

import (
	"slices"
	"sync"
	"time"
)

// VirtualClock 手动推进的时钟。截止时间不晚于当前时间的定时器会立即触发。
type VirtualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*virtualTimer
}

type virtualTimer struct {
	clock    *VirtualClock
	deadline time.Time
	ch       chan time.Time
}

// NewVirtualClock 创建从 start 开始的虚拟时钟
func NewVirtualClock(start time.Time) *VirtualClock {
	return &VirtualClock{now: start}
}

// Now 返回虚拟的当前时间
func (c *VirtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NewTimerAt 创建在 when 触发的定时器
func (c *VirtualClock) NewTimerAt(when time.Time) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &virtualTimer{clock: c, deadline: when, ch: make(chan time.Time, 1)}
	if !when.After(c.now) {
		t.ch <- c.now
		return t
	}
	c.timers = append(c.timers, t)
	return t
}

// Advance 推进时间 d 并触发所有到期的定时器
func (c *VirtualClock) Advance(d time.Duration) {
	c.AdvanceTo(c.Now().Add(d))
}

// AdvanceTo 推进到 t（时间不会后退）并按截止时间顺序触发到期的定时器
func (c *VirtualClock) AdvanceTo(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t.After(c.now) {
		c.now = t
	}
	slices.SortStableFunc(c.timers, func(a, b *virtualTimer) int {
		return a.deadline.Compare(b.deadline)
	})
	n := 0
	for _, timer := range c.timers {
		if timer.deadline.After(c.now) {
			break
		}
		timer.ch <- c.now
		n++
	}
	c.timers = slices.Delete(c.timers, 0, n)
}

// Waiters 返回尚未触发的定时器数量
func (c *VirtualClock) Waiters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func (t *virtualTimer) C() <-chan time.Time {
	return t.ch
}

func (t *virtualTimer) Stop() bool {
	c := t.clock
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := slices.Index(c.timers, t); i >= 0 {
		c.timers = slices.Delete(c.timers, i, i+1)
		return true
	}
	return false
}

package rxgo

import (
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// 工厂函数测试
// ============================================================================

func TestRange(t *testing.T) {
	tests := []struct {
		name              string
		first, last, step int
		want              []int
	}{
		{"递增", 1, 5, 1, []int{1, 2, 3, 4, 5}},
		{"单个值", 3, 3, 1, []int{3}},
		{"步长", 0, 10, 3, []int{0, 3, 6, 9}},
		{"步长恰好落在终点", 0, 9, 3, []int{0, 3, 6, 9}},
		{"递减", 5, 1, -2, []int{5, 3, 1}},
		{"步长为零时按方向推断", 3, 1, 0, []int{3, 2, 1}},
		{"方向相反时为空", 1, 5, -1, nil},
		{"不溢出", math.MaxInt - 2, math.MaxInt, 1, []int{math.MaxInt - 2, math.MaxInt - 1, math.MaxInt}},
		{"大步长不溢出", math.MaxInt - 5, math.MaxInt, math.MaxInt, []int{math.MaxInt - 5}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := RangeOn(tc.first, tc.last, tc.step, ImmediateScheduler).AsBlocking().ToSlice()
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	got, err := Range(1, 4).AsBlocking().ToSlice()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, got)
}

func TestRangeOnSchedulers(t *testing.T) {
	for name, sched := range map[string]Scheduler{
		SchedulerImmediate:     ImmediateScheduler,
		SchedulerCurrentThread: CurrentThreadScheduler,
		SchedulerNewThread:     NewThreadScheduler,
	} {
		t.Run(name, func(t *testing.T) {
			rec := newRecorder[int]()
			RangeOn(1, 1000, 1, sched).SubscribeWith(rec.subscriber())
			rec.wait(t)
			values := rec.Values()
			require.Len(t, values, 1000)
			assert.Equal(t, 1, values[0])
			assert.Equal(t, 1000, values[999])
			assert.True(t, rec.Completed())
		})
	}
}

func TestRangeCancellation(t *testing.T) {
	rec := newRecorder[int]()
	sub := RangeOn(1, math.MaxInt, 1, NewThreadScheduler).Take(3).SubscribeWith(rec.subscriber())
	rec.wait(t)

	assert.Equal(t, []int{1, 2, 3}, rec.Values())
	assert.Eventually(t, func() bool { return !sub.IsSubscribed() }, testTimeout, time.Millisecond)
}

func TestFromSlice(t *testing.T) {
	got, err := FromSlice([]string{"a", "b", "c"}).AsBlocking().ToSlice()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got)

	rec := newRecorder[string]()
	FromSliceOn([]string{"x", "y"}, NewThreadScheduler).SubscribeWith(rec.subscriber())
	rec.wait(t)
	assert.Equal(t, []string{"x", "y"}, rec.Values())
}

func TestEmptyNeverThrow(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		rec := newRecorder[int]()
		Empty[int]().SubscribeWith(rec.subscriber())
		assert.True(t, rec.Completed())
		assert.Empty(t, rec.Values())
	})

	t.Run("Never", func(t *testing.T) {
		rec := newRecorder[int]()
		sub := Never[int]().SubscribeWith(rec.subscriber())
		assert.True(t, sub.IsSubscribed())
		assert.False(t, rec.Completed())
		sub.Unsubscribe()
		assert.False(t, sub.IsSubscribed())
	})

	t.Run("Throw", func(t *testing.T) {
		cause := errors.New("thrown")
		rec := newRecorder[int]()
		Throw[int](cause).SubscribeWith(rec.subscriber())
		assert.ErrorIs(t, rec.Err(), cause)
	})
}

func TestDefer(t *testing.T) {
	var calls atomic.Int32
	src := Defer(func() Observable[int] {
		n := int(calls.Add(1))
		return Just(n)
	})

	first, err := src.AsBlocking().First()
	require.NoError(t, err)
	second, err := src.AsBlocking().First()
	require.NoError(t, err)

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestFromChannel(t *testing.T) {
	ch := make(chan int)
	go func() {
		for i := 1; i <= 3; i++ {
			ch <- i
		}
		close(ch)
	}()

	got, err := FromChannel(ch).AsBlocking().ToSlice()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got)

	t.Run("取消后停止读取", func(t *testing.T) {
		ch := make(chan int, 1)
		rec := newRecorder[int]()
		sub := FromChannel(ch).SubscribeWith(rec.subscriber())
		sub.Unsubscribe()

		ch <- 42
		time.Sleep(10 * time.Millisecond)
		assert.Empty(t, rec.Values())
		assert.Len(t, ch, 1, "value stays in the channel")
	})
}

func TestInterval(t *testing.T) {
	rec := newRecorder[int]()
	Interval(time.Millisecond, NewThreadScheduler).Take(3).SubscribeWith(rec.subscriber())
	rec.wait(t)
	assert.Equal(t, []int{1, 2, 3}, rec.Values())
}

func TestIntervalVirtualClock(t *testing.T) {
	start := time.Unix(0, 0)
	vc := NewVirtualClock(start)
	sched := NewNewThreadScheduler(WithClock(vc))

	rec := newRecorder[int]()
	sub := Interval(time.Second, sched).SubscribeWith(rec.subscriber())
	defer sub.Unsubscribe()

	for i := 1; i <= 3; i++ {
		require.Eventually(t, func() bool { return vc.Waiters() == 1 }, testTimeout, time.Millisecond)
		vc.Advance(time.Second)
		require.Eventually(t, func() bool { return len(rec.Values()) == i }, testTimeout, time.Millisecond)
	}
	assert.Equal(t, []int{1, 2, 3}, rec.Values())
}

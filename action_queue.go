// Time-ordered action queue
// 按到期时间排序的动作队列，相同时间按提交顺序
package rxgo

import (
	"container/heap"
	"time"
)

type queueItem struct {
	when   time.Time
	seq    uint64
	action Action
	worker *Worker
}

type queueHeap []queueItem

func (h queueHeap) Len() int { return len(h) }

func (h queueHeap) Less(i, j int) bool {
	if c := h[i].when.Compare(h[j].when); c != 0 {
		return c < 0
	}
	return h[i].seq < h[j].seq
}

func (h queueHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *queueHeap) Push(x any) { *h = append(*h, x.(queueItem)) }

func (h *queueHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = queueItem{}
	*h = old[:n-1]
	return item
}

// actionQueue 非并发安全，由持有者加锁或限定在单个 goroutine 内使用
type actionQueue struct {
	items queueHeap
	seq   uint64
}

func (q *actionQueue) push(when time.Time, a Action, w *Worker) {
	q.seq++
	heap.Push(&q.items, queueItem{when: when, seq: q.seq, action: a, worker: w})
}

func (q *actionQueue) empty() bool {
	return len(q.items) == 0
}

func (q *actionQueue) peek() queueItem {
	return q.items[0]
}

func (q *actionQueue) pop() queueItem {
	return heap.Pop(&q.items).(queueItem)
}

func (q *actionQueue) len() int {
	return len(q.items)
}

func (q *actionQueue) clear() {
	q.items = nil
}

// retain 只保留 keep 返回 true 的动作
func (q *actionQueue) retain(keep func(queueItem) bool) {
	n := 0
	for _, item := range q.items {
		if keep(item) {
			q.items[n] = item
			n++
		}
	}
	clear(q.items[n:])
	q.items = q.items[:n]
	heap.Init(&q.items)
}

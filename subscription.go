// Subscription for RxGo
// 订阅生命周期：取消标记 + 只执行一次的清理注册表
package rxgo

import (
	"sync"
	"sync/atomic"
	"weak"
)

// ============================================================================
// Subscription 生命周期管理
// ============================================================================

// Subscription 由所有关心同一工作单元生命周期的参与者共享。
// 一旦释放即保持释放状态；每个清理项恰好执行一次：
// 要么在注册时（若已释放），要么在释放时。
type Subscription struct {
	mu       sync.Mutex
	disposed atomic.Bool
	nextID   uint64
	entries  []teardownEntry
}

// teardownEntry 清理项，函数或子订阅二选一
type teardownEntry struct {
	id    uint64
	fn    func()
	child *Subscription
}

func (e teardownEntry) run() {
	if e.child != nil {
		e.child.Unsubscribe()
		return
	}
	e.fn()
}

// Token 清理项的弱引用句柄，被消费后失效
type Token struct {
	owner weak.Pointer[Subscription]
	id    uint64
}

// Valid 检查句柄对应的清理项是否仍在注册表中
func (t Token) Valid() bool {
	s := t.owner.Value()
	if s == nil || t.id == 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexOf(t.id) >= 0
}

func (t Token) remove() {
	if s := t.owner.Value(); s != nil {
		s.Remove(t)
	}
}

// NewSubscription 创建处于活动状态的订阅
func NewSubscription() *Subscription {
	return &Subscription{}
}

var disposedSubscription = func() *Subscription {
	s := NewSubscription()
	s.Unsubscribe()
	return s
}()

// Disposed 返回一个共享的、已释放的订阅
func Disposed() *Subscription {
	return disposedSubscription
}

// IsSubscribed 检查订阅是否仍处于活动状态
func (s *Subscription) IsSubscribed() bool {
	return !s.disposed.Load()
}

// Add 注册清理函数。若订阅已释放，teardown 会被同步调用，
// 返回的 Token 无效。
func (s *Subscription) Add(teardown func()) Token {
	if teardown == nil {
		return Token{}
	}
	return s.add(teardownEntry{fn: teardown})
}

// AddSubscription 注册子订阅，父订阅释放时子订阅随之释放；
// 子订阅先释放时会把自己从父订阅中移除。
func (s *Subscription) AddSubscription(child *Subscription) Token {
	if child == nil || child == s {
		return Token{}
	}
	if !child.IsSubscribed() {
		return Token{}
	}
	token := s.add(teardownEntry{child: child})
	if token.id != 0 {
		child.Add(token.remove)
	}
	return token
}

func (s *Subscription) add(e teardownEntry) Token {
	s.mu.Lock()
	if s.disposed.Load() {
		s.mu.Unlock()
		e.run()
		return Token{}
	}
	s.nextID++
	e.id = s.nextID
	s.entries = append(s.entries, e)
	s.mu.Unlock()

	return Token{owner: weak.Make(s), id: e.id}
}

// Remove 移除清理项而不执行它。对无效或属于其他订阅的 Token 无操作。
func (s *Subscription) Remove(t Token) {
	if t.id == 0 || t.owner.Value() != s {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(t.id); i >= 0 {
		s.entries = append(s.entries[:i], s.entries[i+1:]...)
	}
}

func (s *Subscription) indexOf(id uint64) int {
	for i := range s.entries {
		if s.entries[i].id == id {
			return i
		}
	}
	return -1
}

// Clear 按注册顺序执行并移除当前所有清理项，订阅本身保持活动
func (s *Subscription) Clear() {
	s.mu.Lock()
	entries := s.entries
	s.entries = nil
	s.mu.Unlock()

	runTeardowns(entries)
}

// Unsubscribe 释放订阅。第一次调用翻转释放标记并按注册顺序执行所有清理项，
// 之后的调用（包括清理项内部的重入调用）均为空操作。
func (s *Subscription) Unsubscribe() {
	s.mu.Lock()
	if s.disposed.Load() {
		s.mu.Unlock()
		return
	}
	s.disposed.Store(true)
	entries := s.entries
	s.entries = nil
	s.mu.Unlock()

	runTeardowns(entries)
}

// runTeardowns 执行全部清理项；某一项 panic 不会阻止其余项执行，
// 第一个 panic 在全部执行完后重新抛出。
func runTeardowns(entries []teardownEntry) {
	var first any
	for _, e := range entries {
		if r := runRecovered(e.run); r != nil && first == nil {
			first = r
		}
	}
	if first != nil {
		panic(first)
	}
}

func runRecovered(f func()) (recovered any) {
	defer func() {
		recovered = recover()
	}()
	f()
	return nil
}

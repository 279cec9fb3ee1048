package lock

import (
	"context"
	"sync"
	"time"
)

// memorySlot 单个订单的锁槽，refs 为持有者与等待者的总数，归零时回收
type memorySlot struct {
	ch   chan struct{}
	refs int
}

// MemoryManager 进程内订单锁，适用于单实例 sqlite 部署与测试
type MemoryManager struct {
	mu    sync.Mutex
	slots map[uint]*memorySlot
}

// NewMemoryManager 创建进程内锁
func NewMemoryManager() *MemoryManager {
	return &MemoryManager{slots: make(map[uint]*memorySlot)}
}

func (m *MemoryManager) ref(orderID uint) *memorySlot {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.slots[orderID]
	if !ok {
		slot = &memorySlot{ch: make(chan struct{}, 1)}
		m.slots[orderID] = slot
	}
	slot.refs++
	return slot
}

// unrefLocked 调用方需持有 m.mu
func (m *MemoryManager) unrefLocked(orderID uint, slot *memorySlot) {
	slot.refs--
	if slot.refs <= 0 && m.slots[orderID] == slot {
		delete(m.slots, orderID)
	}
}

// Acquire 在超时时间内等待锁
func (m *MemoryManager) Acquire(ctx context.Context, orderID uint, timeout time.Duration) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	slot := m.ref(orderID)
	timer := time.NewTimer(normalizeTimeout(timeout))
	defer timer.Stop()
	select {
	case slot.ch <- struct{}{}:
		return true, nil
	case <-timer.C:
		m.mu.Lock()
		m.unrefLocked(orderID, slot)
		m.mu.Unlock()
		return false, nil
	case <-ctx.Done():
		m.mu.Lock()
		m.unrefLocked(orderID, slot)
		m.mu.Unlock()
		return false, ctx.Err()
	}
}

// Release 释放锁，未持有时返回 false
func (m *MemoryManager) Release(_ context.Context, orderID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.slots[orderID]
	if !ok {
		return false, nil
	}
	select {
	case <-slot.ch:
		m.unrefLocked(orderID, slot)
		return true, nil
	default:
		return false, nil
	}
}

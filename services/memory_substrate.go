package services

import (
	"context"
	"sync"
)

type memoryEntry struct {
	value   string
	version int64
}

// MemorySubstrate keeps every key in process memory.
type MemorySubstrate struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

func NewMemorySubstrate() *MemorySubstrate {
	return &MemorySubstrate{
		entries: make(map[string]memoryEntry),
	}
}

func (m *MemorySubstrate) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	return e.value, ok, nil
}

func (m *MemorySubstrate) Set(_ context.Context, key, value string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old := m.entries[key]
	m.entries[key] = memoryEntry{value: value, version: old.version + 1}
	return old.value, nil
}

func (m *MemorySubstrate) Remove(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old := m.entries[key]
	delete(m.entries, key)
	return old.value, nil
}

func (m *MemorySubstrate) GetVersioned(_ context.Context, key string) (string, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e := m.entries[key]
	return e.value, e.version, nil
}

func (m *MemorySubstrate) CompareAndSet(_ context.Context, key string, version int64, value string) (int64, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.entries[key]
	if cur.version != version {
		return cur.version, "", ErrVersionConflict
	}
	m.entries[key] = memoryEntry{value: value, version: version + 1}
	return version + 1, cur.value, nil
}

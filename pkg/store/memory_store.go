package store

import (
	"context"
	"sync"
)

// MemoryStore keeps entries in-process; state is lost on exit.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]string)}
}

// Get returns the value stored under key.
func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	return v, ok, nil
}

// SetPair writes both entries under one lock.
func (m *MemoryStore) SetPair(_ context.Context, k1, v1, k2, v2 string) error {
	if err := checkKeys(k1, k2); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[k1] = v1
	m.entries[k2] = v2
	return nil
}

// DeletePair removes both entries.
func (m *MemoryStore) DeletePair(_ context.Context, k1, k2 string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, k1)
	delete(m.entries, k2)
	return nil
}

// Len returns the number of stored entries.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

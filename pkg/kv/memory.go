package kv

import (
	"context"
	"sync"
)

// MemoryBackend keeps entries in a map guarded by a mutex.
type MemoryBackend struct {
	mu    sync.RWMutex
	data  map[string]string
	used  int64
	quota int64
}

// NewMemoryBackend creates an empty in-process store. A quota of zero or less
// disables the capacity check.
func NewMemoryBackend(quota int64) *MemoryBackend {
	return &MemoryBackend{
		data:  make(map[string]string),
		quota: quota,
	}
}

var _ Backend = (*MemoryBackend)(nil)

// Get returns the value stored under key.
func (m *MemoryBackend) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

// Set stores value under key unless that would exceed the quota.
func (m *MemoryBackend) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.used + entrySize(key, value)
	if old, ok := m.data[key]; ok {
		next -= entrySize(key, old)
	}
	if m.quota > 0 && next > m.quota {
		return ErrQuotaExceeded
	}

	m.data[key] = value
	m.used = next
	return nil
}

// Remove deletes key if present.
func (m *MemoryBackend) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.data[key]; ok {
		m.used -= entrySize(key, old)
		delete(m.data, key)
	}
	return nil
}

// Keys lists every stored key.
func (m *MemoryBackend) Keys(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys, nil
}

// Used reports the number of bytes currently stored.
func (m *MemoryBackend) Used() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.used
}

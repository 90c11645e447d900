package kvstore

import (
	"sync"
)

// Memory is a map-backed KV. It backs tests, the session-scoped emergency
// backup channel, and the fallback path when the durable file cannot be
// opened.
type Memory struct {
	mu       sync.RWMutex
	data     map[string]string
	capacity int
}

// NewMemory returns an empty in-memory store with no capacity limit.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

// NewMemoryWithCapacity returns an in-memory store that rejects writes once
// the summed key and value lengths would exceed capacity bytes.
func NewMemoryWithCapacity(capacity int) *Memory {
	return &Memory{data: make(map[string]string), capacity: capacity}
}

func (m *Memory) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.capacity > 0 {
		size := len(key) + len(value)
		for k, v := range m.data {
			if k == key {
				continue
			}
			size += len(k) + len(v)
		}
		if size > m.capacity {
			return ErrQuotaExceeded
		}
	}
	m.data[key] = value
	return nil
}

func (m *Memory) Remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
}

func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys
}

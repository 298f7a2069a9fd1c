package cache

import (
	"errors"
	"sync"
)

// ErrStoreFull is returned by a raw store when its capacity is exceeded.
var ErrStoreFull = errors.New("cache store capacity exceeded")

// Store is the raw string-keyed persistence behind the expiring cache.
// Implementations only move opaque serialized strings; all expiry logic
// lives in Cache.
type Store interface {
	// RawSet stores a serialized value. Returns ErrStoreFull (or a backend
	// error) on failure; callers treat failures as non-fatal.
	RawSet(key, value string) error

	// RawGet returns the serialized value, or ok=false if absent.
	RawGet(key string) (string, bool)

	// RawRemove deletes a key. Removing an absent key is a no-op.
	RawRemove(key string)

	// Keys returns all stored keys with the given prefix, for sweeping.
	Keys(prefix string) []string

	// Close releases underlying resources.
	Close() error
}

// MemoryStore is an in-process Store with an entry cap standing in for a
// browser storage quota. Zero maxEntries means unlimited.
type MemoryStore struct {
	mu         sync.RWMutex
	data       map[string]string
	maxEntries int
}

// NewMemoryStore creates a MemoryStore capped at maxEntries (0 = unlimited).
func NewMemoryStore(maxEntries int) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]string, 64),
		maxEntries: maxEntries,
	}
}

func (m *MemoryStore) RawSet(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.maxEntries > 0 && len(m.data) >= m.maxEntries {
		if _, exists := m.data[key]; !exists {
			return ErrStoreFull
		}
	}
	m.data[key] = value
	return nil
}

func (m *MemoryStore) RawGet(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *MemoryStore) RawRemove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
}

func (m *MemoryStore) Keys(prefix string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if hasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys
}

func (m *MemoryStore) Close() error { return nil }

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

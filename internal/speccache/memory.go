package speccache

import (
	"context"
	"sync"

	"github.com/rlupton/weaver/spec"
)

// MemStore is an in-memory Store: thread-safe, lost on process exit,
// suitable for tests and single-process development per the teacher's
// MemStore[S] in graph/store/memory.go.
type MemStore struct {
	mu      sync.RWMutex
	entries map[string]spec.WeaverSpec
}

// NewMemStore creates an empty in-memory cache.
func NewMemStore() *MemStore {
	return &MemStore{entries: make(map[string]spec.WeaverSpec)}
}

// Get implements Store.
func (m *MemStore) Get(_ context.Context, key string) (spec.WeaverSpec, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.entries[key]
	if !ok {
		return spec.WeaverSpec{}, ErrNotFound
	}
	return s, nil
}

// Put implements Store.
func (m *MemStore) Put(_ context.Context, key string, s spec.WeaverSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = s
	return nil
}

// Close implements Store; a no-op for MemStore.
func (m *MemStore) Close() error { return nil }

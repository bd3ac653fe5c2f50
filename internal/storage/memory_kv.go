// Path: internal/storage/memory_kv.go
package storage

import (
	"context"
	"sync"

	"recipe-finder/internal/domain"
)

// Compile-time interface check.
var _ domain.KeyValueStore = (*MemoryKV)(nil)

// MemoryKV keeps preferences for the life of the process only.
type MemoryKV struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryKV creates an empty in-memory store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

// Get implements the KeyValueStore interface.
func (s *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

// Set implements the KeyValueStore interface.
func (s *MemoryKV) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

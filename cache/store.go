// Package cache provides key/value persistence for project data with TTL and
// config-fingerprint invalidation. The backing store is an injected
// dependency so tests can substitute an in-memory implementation.
package cache

import (
	"fmt"
	"strings"
	"sync"
)

// ErrQuotaExceeded is returned by a Store when a write would exceed its
// storage quota.
var ErrQuotaExceeded = fmt.Errorf("storage quota exceeded")

// Store is the minimal key/value surface the cache needs.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Remove(key string)
	Keys(prefix string) []string
}

// MemoryStore is a Store backed by a map. A MaxBytes limit can be set to
// emulate a bounded storage quota.
type MemoryStore struct {
	mu       sync.RWMutex
	entries  map[string]string
	maxBytes int
}

// NewMemoryStore creates an in-memory store. maxBytes <= 0 means unbounded.
func NewMemoryStore(maxBytes int) *MemoryStore {
	return &MemoryStore{
		entries:  make(map[string]string),
		maxBytes: maxBytes,
	}
}

func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.entries[key]
	return value, ok
}

func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxBytes > 0 {
		total := len(key) + len(value)
		for k, v := range s.entries {
			if k == key {
				continue
			}
			total += len(k) + len(v)
		}
		if total > s.maxBytes {
			return fmt.Errorf("%w: %d bytes", ErrQuotaExceeded, total)
		}
	}

	s.entries[key] = value
	return nil
}

func (s *MemoryStore) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

func (s *MemoryStore) Keys(prefix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys
}

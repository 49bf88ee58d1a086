package kvstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tripdesk/backend/internal/domain"
)

// memoryStore is a process-local Store for development setups without Redis.
// Entries expire lazily: an expired key is removed the next time it is read.
type memoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value    string
	deadline time.Time
}

// NewMemory constructs an in-memory Store.
func NewMemory() Store {
	return &memoryStore{entries: make(map[string]memoryEntry)}
}

// Put stores value under key with the given ttl.
func (s *memoryStore) Put(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("kvstore.Store.Put: %w: ttl must be positive", domain.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{value: value, deadline: time.Now().Add(ttl)}
	return nil
}

// Get returns the value stored under key, treating expired entries as absent.
func (s *memoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok || time.Now().After(entry.deadline) {
		delete(s.entries, key)
		return "", fmt.Errorf("kvstore.Store.Get: %w", domain.ErrNotFound)
	}
	return entry.value, nil
}

// Delete removes key. Absent keys are ignored.
func (s *memoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

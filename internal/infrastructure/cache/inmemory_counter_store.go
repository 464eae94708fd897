package cache

import (
	"context"
	"sync"
	"time"

	"github.com/crmsync/backend/internal/domain/guard"
)

// counterEntry is a stored count with the end of its window
type counterEntry struct {
	count     int64
	expiresAt time.Time
}

// InMemoryCounterStore implements guard.CounterStore using an in-memory
// map. Reads self-check expiry: an expired window reads as zero whether
// or not cleanup has run.
type InMemoryCounterStore struct {
	mu        sync.RWMutex
	entries   map[string]counterEntry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryCounterStore creates an in-memory counter store and starts
// its background cleanup goroutine
func NewInMemoryCounterStore() *InMemoryCounterStore {
	store := &InMemoryCounterStore{
		entries:  make(map[string]counterEntry),
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

// Increment bumps the counter, starting a fresh window when the
// previous one has expired
func (s *InMemoryCounterStore) Increment(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	e, exists := s.entries[key]
	if !exists || now.After(e.expiresAt) {
		e = counterEntry{count: 0, expiresAt: now.Add(window)}
	}
	e.count++
	s.entries[key] = e
	return e.count, nil
}

// Get returns the current count, zero when absent or expired
func (s *InMemoryCounterStore) Get(_ context.Context, key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.entries[key]
	if !exists || time.Now().After(e.expiresAt) {
		return 0, nil
	}
	return e.count, nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *InMemoryCounterStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes expired entries
func (s *InMemoryCounterStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemoryCounterStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, key)
		}
	}
}

// Size returns the number of entries in the store (for testing/monitoring)
func (s *InMemoryCounterStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Ensure InMemoryCounterStore implements guard.CounterStore
var _ guard.CounterStore = (*InMemoryCounterStore)(nil)

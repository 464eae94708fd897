package cache

import (
	"context"
	"sync"
	"time"

	"github.com/crmsync/backend/internal/domain/guard"
)

// lockEntry is a stored lock with its expiration
type lockEntry struct {
	source    guard.Source
	acquired  time.Time
	expiresAt time.Time
	ttl       time.Duration
}

// InMemoryLockStore implements guard.LockStore using an in-memory map.
// Suitable for single-instance deployments and testing. Reads self-check
// expiry; the cleanup goroutine is an optimization, not a correctness
// requirement.
type InMemoryLockStore struct {
	mu        sync.RWMutex
	entries   map[string]lockEntry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryLockStore creates an in-memory lock store and starts its
// background cleanup goroutine
func NewInMemoryLockStore() *InMemoryLockStore {
	store := &InMemoryLockStore{
		entries:  make(map[string]lockEntry),
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

func lockKey(entityType, entityID string) string {
	return entityType + ":" + entityID
}

// Get returns the live lock, nil when absent or expired
func (s *InMemoryLockStore) Get(_ context.Context, entityType, entityID string) (*guard.Lock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.entries[lockKey(entityType, entityID)]
	if !exists || time.Now().After(e.expiresAt) {
		return nil, nil
	}

	return &guard.Lock{
		EntityType: entityType,
		EntityID:   entityID,
		Source:     e.source,
		AcquiredAt: e.acquired,
		TTL:        e.ttl,
	}, nil
}

// Acquire takes or refreshes the lock. The check and the write happen
// under one mutex hold, so acquisition is atomic.
func (s *InMemoryLockStore) Acquire(_ context.Context, entityType, entityID string, source guard.Source, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := lockKey(entityType, entityID)
	now := time.Now()

	if e, exists := s.entries[key]; exists && now.Before(e.expiresAt) && e.source != source {
		return false, nil
	}

	s.entries[key] = lockEntry{
		source:    source,
		acquired:  now,
		expiresAt: now.Add(ttl),
		ttl:       ttl,
	}
	return true, nil
}

// Release drops the lock regardless of holder
func (s *InMemoryLockStore) Release(_ context.Context, entityType, entityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, lockKey(entityType, entityID))
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *InMemoryLockStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes expired entries
func (s *InMemoryLockStore) cleanupLoop() {
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

func (s *InMemoryLockStore) cleanup() {
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
func (s *InMemoryLockStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Ensure InMemoryLockStore implements guard.LockStore
var _ guard.LockStore = (*InMemoryLockStore)(nil)

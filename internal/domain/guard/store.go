package guard

import (
	"context"
	"time"
)

// Source identifies which system originated a write
type Source string

const (
	// SourceLocal is the store side
	SourceLocal Source = "local"
	// SourceRemote is the CRM side
	SourceRemote Source = "remote"
)

// IsValid returns true if the source is valid
func (s Source) IsValid() bool {
	return s == SourceLocal || s == SourceRemote
}

// String returns the string representation of Source
func (s Source) String() string {
	return string(s)
}

// Lock is the ephemeral per-entity write marker
type Lock struct {
	EntityType string
	EntityID   string
	Source     Source
	AcquiredAt time.Time
	TTL        time.Duration
}

// Expired reports whether the lock is past its TTL. Readers must treat
// expired locks as absent regardless of physical cleanup.
func (l *Lock) Expired(now time.Time) bool {
	return now.After(l.AcquiredAt.Add(l.TTL))
}

// LockStore holds the update locks. Implementations must self-check
// expiry on read: an expired lock behaves exactly like a missing one.
type LockStore interface {
	// Get returns the live lock for the entity, or nil when none is held
	Get(ctx context.Context, entityType, entityID string) (*Lock, error)
	// Acquire takes or refreshes the lock. A live lock held by the same
	// source is refreshed; a live lock held by a different source makes
	// Acquire return false. The check and the write must be atomic.
	Acquire(ctx context.Context, entityType, entityID string, source Source, ttl time.Duration) (bool, error)
	// Release drops the lock regardless of holder
	Release(ctx context.Context, entityType, entityID string) error
}

// CounterStore holds the frequency counters. Keys expire with their
// window; expiry resets the count to zero.
type CounterStore interface {
	// Increment bumps the counter for the key, setting the window TTL on
	// first increment, and returns the new value
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
	// Get returns the current value, zero when the key is absent or expired
	Get(ctx context.Context, key string) (int64, error)
}

// SyncStateRecorder durably records the outcome of a successful sync.
// The guard calls it from AfterSync.
type SyncStateRecorder interface {
	RecordSync(ctx context.Context, entityType, entityID string, source Source) error
}

package sync

import (
	"context"
	"time"
)

// ---------------------------------------------------------------------------
// Repository Interfaces
// ---------------------------------------------------------------------------

// EntityReferenceRepository persists the store<->CRM identity links
type EntityReferenceRepository interface {
	// Save creates or updates an entity reference
	Save(ctx context.Context, ref *EntityReference) error
	// FindByLocal looks up the reference for a store-side entity
	FindByLocal(ctx context.Context, kind LocalEntityKind, localID string) (*EntityReference, error)
	// FindByRemote looks up the reference for a CRM-side entity
	FindByRemote(ctx context.Context, kind RemoteEntityKind, remoteID string) (*EntityReference, error)
	// Delete removes the reference for a store-side entity
	Delete(ctx context.Context, kind LocalEntityKind, localID string) error
}

// SyncRecordFilter narrows sync record queries
type SyncRecordFilter struct {
	EntityKind LocalEntityKind
	Direction  SyncDirection
	Status     SyncStatus
	Since      *time.Time
	Limit      int
	Offset     int
	SortBy     string
	SortDir    string
}

// SyncStats is an aggregate view over the sync audit trail
type SyncStats struct {
	Total      int64 `json:"total"`
	Succeeded  int64 `json:"succeeded"`
	Failed     int64 `json:"failed"`
	Skipped    int64 `json:"skipped"`
	Last24Hour int64 `json:"last_24h"`
}

// SyncRecordRepository persists the sync audit trail
type SyncRecordRepository interface {
	// Save appends a sync record
	Save(ctx context.Context, record *SyncRecord) error
	// List returns records matching the filter, newest first
	List(ctx context.Context, filter SyncRecordFilter) ([]*SyncRecord, error)
	// LatestFor returns the most recent record for an entity, or
	// shared.ErrNotFound when the entity was never synced
	LatestFor(ctx context.Context, kind LocalEntityKind, localID string) (*SyncRecord, error)
	// Stats aggregates record counts for the status endpoint
	Stats(ctx context.Context) (*SyncStats, error)
	// PurgeOlderThan removes records older than the cutoff and returns
	// the number removed
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

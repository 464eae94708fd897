package sync

import (
	"context"

	"github.com/crmsync/backend/internal/domain/guard"
	"github.com/crmsync/backend/internal/domain/sync"
)

// trailRecorder persists one prepared sync record when the guard
// confirms the sync completed. Routing the audit write through the
// guard keeps "record only on success" in a single place.
type trailRecorder struct {
	records sync.SyncRecordRepository
	record  *sync.SyncRecord
}

// RecordSync durably appends the prepared record to the sync trail
func (r *trailRecorder) RecordSync(ctx context.Context, entityType, entityID string, source guard.Source) error {
	return r.records.Save(ctx, r.record)
}

// Ensure trailRecorder implements the guard callback interface
var _ guard.SyncStateRecorder = (*trailRecorder)(nil)

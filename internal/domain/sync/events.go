package sync

import (
	"github.com/crmsync/backend/internal/domain/shared"
)

// Event types emitted by the synchronization domain
const (
	EventTypeEntityPushed        = "sync.entity.pushed"
	EventTypeRemoteChangeApplied = "sync.remote_change.applied"
	EventTypeSyncFailed          = "sync.failed"
	EventTypeLoopPrevented       = "sync.loop.prevented"
)

// AggregateTypeSyncRecord identifies the sync record aggregate
const AggregateTypeSyncRecord = "SyncRecord"

// EntityPushedEvent is emitted after a store entity was pushed to the CRM
type EntityPushedEvent struct {
	shared.BaseDomainEvent
	EntityKind LocalEntityKind `json:"entity_kind"`
	LocalID    string          `json:"local_id"`
	RemoteID   string          `json:"remote_id"`
	Created    bool            `json:"created"`
}

// NewEntityPushedEvent creates an EntityPushedEvent from a sync record
func NewEntityPushedEvent(record *SyncRecord, created bool) *EntityPushedEvent {
	return &EntityPushedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeEntityPushed, AggregateTypeSyncRecord, record.ID),
		EntityKind:      record.EntityKind,
		LocalID:         record.LocalID,
		RemoteID:        record.RemoteID,
		Created:         created,
	}
}

// RemoteChangeAppliedEvent is emitted after a CRM-originated change was
// applied to a store entity
type RemoteChangeAppliedEvent struct {
	shared.BaseDomainEvent
	EntityKind LocalEntityKind `json:"entity_kind"`
	LocalID    string          `json:"local_id"`
	RemoteID   string          `json:"remote_id"`
	Fields     []string        `json:"fields"`
}

// NewRemoteChangeAppliedEvent creates a RemoteChangeAppliedEvent
func NewRemoteChangeAppliedEvent(record *SyncRecord, fields []string) *RemoteChangeAppliedEvent {
	return &RemoteChangeAppliedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRemoteChangeApplied, AggregateTypeSyncRecord, record.ID),
		EntityKind:      record.EntityKind,
		LocalID:         record.LocalID,
		RemoteID:        record.RemoteID,
		Fields:          fields,
	}
}

// SyncFailedEvent is emitted when a sync operation exhausts its attempts
type SyncFailedEvent struct {
	shared.BaseDomainEvent
	EntityKind LocalEntityKind `json:"entity_kind"`
	LocalID    string          `json:"local_id"`
	Direction  SyncDirection   `json:"direction"`
	Reason     string          `json:"reason"`
}

// NewSyncFailedEvent creates a SyncFailedEvent
func NewSyncFailedEvent(record *SyncRecord, reason string) *SyncFailedEvent {
	return &SyncFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSyncFailed, AggregateTypeSyncRecord, record.ID),
		EntityKind:      record.EntityKind,
		LocalID:         record.LocalID,
		Direction:       record.Direction,
		Reason:          reason,
	}
}

// LoopPreventedEvent is emitted when the anti-loop guard suppresses a change
type LoopPreventedEvent struct {
	shared.BaseDomainEvent
	EntityKind LocalEntityKind `json:"entity_kind"`
	LocalID    string          `json:"local_id"`
	Direction  SyncDirection   `json:"direction"`
	Reason     string          `json:"reason"`
}

// NewLoopPreventedEvent creates a LoopPreventedEvent
func NewLoopPreventedEvent(record *SyncRecord, reason string) *LoopPreventedEvent {
	return &LoopPreventedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLoopPrevented, AggregateTypeSyncRecord, record.ID),
		EntityKind:      record.EntityKind,
		LocalID:         record.LocalID,
		Direction:       record.Direction,
		Reason:          reason,
	}
}

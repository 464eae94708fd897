package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/crmsync/backend/internal/domain/sync"
)

// EntityReferenceModel is the persistence model for the EntityReference
// domain entity.
type EntityReferenceModel struct {
	ID         uuid.UUID             `gorm:"type:uuid;primary_key"`
	LocalKind  sync.LocalEntityKind  `gorm:"type:varchar(20);not null;uniqueIndex:idx_entity_reference_local,priority:1"`
	LocalID    string                `gorm:"type:varchar(64);not null;uniqueIndex:idx_entity_reference_local,priority:2"`
	RemoteKind sync.RemoteEntityKind `gorm:"type:varchar(20);not null;index:idx_entity_reference_remote,priority:1"`
	RemoteID   string                `gorm:"type:varchar(64);not null;index:idx_entity_reference_remote,priority:2"`
	CreatedAt  time.Time             `gorm:"not null"`
	UpdatedAt  time.Time             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (EntityReferenceModel) TableName() string {
	return "entity_references"
}

// ToDomain converts the persistence model to a domain EntityReference
func (m *EntityReferenceModel) ToDomain() *sync.EntityReference {
	return &sync.EntityReference{
		ID:         m.ID,
		LocalKind:  m.LocalKind,
		LocalID:    m.LocalID,
		RemoteKind: m.RemoteKind,
		RemoteID:   m.RemoteID,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain EntityReference
func (m *EntityReferenceModel) FromDomain(ref *sync.EntityReference) {
	m.ID = ref.ID
	m.LocalKind = ref.LocalKind
	m.LocalID = ref.LocalID
	m.RemoteKind = ref.RemoteKind
	m.RemoteID = ref.RemoteID
	m.CreatedAt = ref.CreatedAt
	m.UpdatedAt = ref.UpdatedAt
}

// SyncRecordModel is the persistence model for the SyncRecord audit entry.
type SyncRecordModel struct {
	ID         uuid.UUID            `gorm:"type:uuid;primary_key"`
	EntityKind sync.LocalEntityKind `gorm:"type:varchar(20);not null;index:idx_sync_record_entity,priority:1"`
	LocalID    string               `gorm:"type:varchar(64);not null;index:idx_sync_record_entity,priority:2"`
	RemoteID   string               `gorm:"type:varchar(64)"`
	Direction  sync.SyncDirection   `gorm:"type:varchar(10);not null"`
	Status     sync.SyncStatus      `gorm:"type:varchar(10);not null;index"`
	Detail     string               `gorm:"type:text"`
	SyncedAt   time.Time            `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (SyncRecordModel) TableName() string {
	return "sync_records"
}

// ToDomain converts the persistence model to a domain SyncRecord
func (m *SyncRecordModel) ToDomain() *sync.SyncRecord {
	return &sync.SyncRecord{
		ID:         m.ID,
		EntityKind: m.EntityKind,
		LocalID:    m.LocalID,
		RemoteID:   m.RemoteID,
		Direction:  m.Direction,
		Status:     m.Status,
		Detail:     m.Detail,
		SyncedAt:   m.SyncedAt,
	}
}

// FromDomain populates the persistence model from a domain SyncRecord
func (m *SyncRecordModel) FromDomain(record *sync.SyncRecord) {
	m.ID = record.ID
	m.EntityKind = record.EntityKind
	m.LocalID = record.LocalID
	m.RemoteID = record.RemoteID
	m.Direction = record.Direction
	m.Status = record.Status
	m.Detail = record.Detail
	m.SyncedAt = record.SyncedAt
}

// CRMCredentialModel holds the OAuth token pair. One row per
// integration, keyed by a fixed name.
type CRMCredentialModel struct {
	Name         string     `gorm:"type:varchar(32);primary_key"`
	AccessToken  string     `gorm:"type:text;not null"`
	RefreshToken string     `gorm:"type:text;not null"`
	ExpiresAt    *time.Time `gorm:""`
	UpdatedAt    time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CRMCredentialModel) TableName() string {
	return "crm_credentials"
}

package sync

import (
	"time"

	"github.com/google/uuid"

	"github.com/crmsync/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Entity Kinds
// ---------------------------------------------------------------------------

// LocalEntityKind identifies the kind of a store-side entity
type LocalEntityKind string

const (
	// LocalEntityOrder is a store order
	LocalEntityOrder LocalEntityKind = "order"
	// LocalEntityCustomer is a registered store customer
	LocalEntityCustomer LocalEntityKind = "customer"
	// LocalEntityGuestContact is a guest checkout resolved to a CRM contact
	LocalEntityGuestContact LocalEntityKind = "guest_contact"
	// LocalEntityGuest is a guest checkout without a CRM contact
	LocalEntityGuest LocalEntityKind = "guest"
	// LocalEntityForm is a website form submission
	LocalEntityForm LocalEntityKind = "form"
)

// IsValid returns true if the kind is valid
func (k LocalEntityKind) IsValid() bool {
	switch k {
	case LocalEntityOrder, LocalEntityCustomer, LocalEntityGuestContact,
		LocalEntityGuest, LocalEntityForm:
		return true
	default:
		return false
	}
}

// String returns the string representation of LocalEntityKind
func (k LocalEntityKind) String() string {
	return string(k)
}

// RemoteEntityKind identifies the kind of a CRM-side entity
type RemoteEntityKind string

const (
	// RemoteEntityDeal is a CRM deal
	RemoteEntityDeal RemoteEntityKind = "deal"
	// RemoteEntityContact is a CRM contact
	RemoteEntityContact RemoteEntityKind = "contact"
	// RemoteEntityLead is a CRM lead
	RemoteEntityLead RemoteEntityKind = "lead"
)

// IsValid returns true if the kind is valid
func (k RemoteEntityKind) IsValid() bool {
	switch k {
	case RemoteEntityDeal, RemoteEntityContact, RemoteEntityLead:
		return true
	default:
		return false
	}
}

// String returns the string representation of RemoteEntityKind
func (k RemoteEntityKind) String() string {
	return string(k)
}

// ---------------------------------------------------------------------------
// Entity Reference
// ---------------------------------------------------------------------------

// EntityReference links a store-side entity to its CRM counterpart.
// It is the durable identity mapping consulted before every push and
// every inbound change application.
type EntityReference struct {
	// ID is the unique identifier of the reference
	ID uuid.UUID
	// LocalKind is the kind of the store-side entity
	LocalKind LocalEntityKind
	// LocalID is the store-side identifier
	LocalID string
	// RemoteKind is the kind of the CRM-side entity
	RemoteKind RemoteEntityKind
	// RemoteID is the CRM-side identifier
	RemoteID string
	// CreatedAt is when the link was established
	CreatedAt time.Time
	// UpdatedAt is when the link was last touched
	UpdatedAt time.Time
}

// NewEntityReference creates a validated entity reference
func NewEntityReference(localKind LocalEntityKind, localID string, remoteKind RemoteEntityKind, remoteID string) (*EntityReference, error) {
	if !localKind.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "invalid local entity kind: "+string(localKind))
	}
	if localID == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "local entity ID is required")
	}
	if !remoteKind.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "invalid remote entity kind: "+string(remoteKind))
	}
	if remoteID == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "remote entity ID is required")
	}

	now := time.Now()
	return &EntityReference{
		ID:         uuid.New(),
		LocalKind:  localKind,
		LocalID:    localID,
		RemoteKind: remoteKind,
		RemoteID:   remoteID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Rebind points the reference at a different remote entity.
// Used when a CRM record is recreated after deletion.
func (r *EntityReference) Rebind(remoteID string) error {
	if remoteID == "" {
		return shared.NewDomainError("INVALID_INPUT", "remote entity ID is required")
	}
	r.RemoteID = remoteID
	r.UpdatedAt = time.Now()
	return nil
}

// ---------------------------------------------------------------------------
// Sync Record
// ---------------------------------------------------------------------------

// SyncDirection indicates which side originated a sync operation
type SyncDirection string

const (
	// SyncDirectionOutbound is store -> CRM
	SyncDirectionOutbound SyncDirection = "outbound"
	// SyncDirectionInbound is CRM -> store
	SyncDirectionInbound SyncDirection = "inbound"
)

// IsValid returns true if the direction is valid
func (d SyncDirection) IsValid() bool {
	switch d {
	case SyncDirectionOutbound, SyncDirectionInbound:
		return true
	default:
		return false
	}
}

// String returns the string representation of SyncDirection
func (d SyncDirection) String() string {
	return string(d)
}

// SyncStatus is the terminal status of a sync operation
type SyncStatus string

const (
	// SyncStatusSuccess means the operation completed
	SyncStatusSuccess SyncStatus = "success"
	// SyncStatusFailed means the operation failed after any retries
	SyncStatusFailed SyncStatus = "failed"
	// SyncStatusSkipped means the operation was suppressed (loop guard,
	// frequency ceiling, or no-op change)
	SyncStatusSkipped SyncStatus = "skipped"
)

// IsValid returns true if the status is valid
func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncStatusSuccess, SyncStatusFailed, SyncStatusSkipped:
		return true
	default:
		return false
	}
}

// String returns the string representation of SyncStatus
func (s SyncStatus) String() string {
	return string(s)
}

// SyncRecord is the audit trail entry for a single sync operation
type SyncRecord struct {
	// ID is the unique identifier of the record
	ID uuid.UUID
	// EntityKind is the kind of the store-side entity involved
	EntityKind LocalEntityKind
	// LocalID is the store-side identifier
	LocalID string
	// RemoteID is the CRM-side identifier, empty when the operation
	// failed before a remote entity existed
	RemoteID string
	// Direction is which side originated the operation
	Direction SyncDirection
	// Status is the terminal status
	Status SyncStatus
	// Detail carries the error message or skip reason
	Detail string
	// SyncedAt is when the operation finished
	SyncedAt time.Time
}

// NewSyncRecord creates a validated sync record
func NewSyncRecord(kind LocalEntityKind, localID, remoteID string, direction SyncDirection, status SyncStatus, detail string) (*SyncRecord, error) {
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "invalid entity kind: "+string(kind))
	}
	if localID == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "local entity ID is required")
	}
	if !direction.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "invalid sync direction: "+string(direction))
	}
	if !status.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "invalid sync status: "+string(status))
	}

	return &SyncRecord{
		ID:         uuid.New(),
		EntityKind: kind,
		LocalID:    localID,
		RemoteID:   remoteID,
		Direction:  direction,
		Status:     status,
		Detail:     detail,
		SyncedAt:   time.Now(),
	}, nil
}

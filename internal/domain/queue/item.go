package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/crmsync/backend/internal/domain/shared"
)

// MaxAttempts is the retry ceiling after which an item becomes
// terminally failed
const MaxAttempts = 3

// ---------------------------------------------------------------------------
// Queue Item
// ---------------------------------------------------------------------------

// Status is the processing state of a queue item
type Status string

const (
	// StatusPending means the item is waiting for processing or a retry
	StatusPending Status = "pending"
	// StatusProcessing means a processor claimed the item and the
	// remote submission is in flight
	StatusProcessing Status = "processing"
	// StatusProcessed means the item produced a remote record
	StatusProcessed Status = "processed"
	// StatusFailed is terminal: attempts were exhausted or a
	// precondition failed
	StatusFailed Status = "failed"
)

// IsValid returns true if the status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusProcessed, StatusFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// Item is a durable unit of deferred work: "create this remote record
// from this payload". Items are never deleted automatically.
type Item struct {
	// ID is the unique identifier of the item
	ID uuid.UUID
	// FormType classifies the submission
	FormType FormType
	// Payload is the submitted field->value mapping
	Payload map[string]any
	// Status is the processing state
	Status Status
	// Attempts counts processing failures so far
	Attempts int
	// ErrorMessage holds the latest processing error
	ErrorMessage string
	// RemoteID is the CRM record created from this item
	RemoteID string
	// CreatedAt is when the item was enqueued
	CreatedAt time.Time
	// ProcessedAt is when the item reached a terminal success
	ProcessedAt *time.Time
}

// NewItem creates a pending queue item
func NewItem(formType FormType, payload map[string]any) (*Item, error) {
	if !formType.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "invalid form type: "+string(formType))
	}
	if len(payload) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "payload cannot be empty")
	}
	return &Item{
		ID:        uuid.New(),
		FormType:  formType,
		Payload:   payload,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}, nil
}

// MarkProcessing claims the item for a single processor. Only a
// pending item can be claimed; the claim must reach the store, guarded
// on the pending status, before any remote call is made.
func (i *Item) MarkProcessing() error {
	if i.Status != StatusPending {
		return shared.ErrInvalidState
	}
	i.Status = StatusProcessing
	return nil
}

// MarkProcessed completes a claimed item. Processing is strictly
// forward-moving, so this only succeeds from processing.
func (i *Item) MarkProcessed(remoteID string) error {
	if i.Status != StatusProcessing {
		return shared.ErrInvalidState
	}
	now := time.Now()
	i.Status = StatusProcessed
	i.RemoteID = remoteID
	i.ProcessedAt = &now
	i.ErrorMessage = ""
	return nil
}

// RecordFailure books one failed attempt against a claimed item. The
// item reverts to pending for a later retry pass, or flips to failed
// once attempts saturate MaxAttempts.
func (i *Item) RecordFailure(message string) error {
	if i.Status != StatusProcessing {
		return shared.ErrInvalidState
	}
	i.Attempts++
	i.ErrorMessage = message
	if i.Attempts >= MaxAttempts {
		i.Status = StatusFailed
	} else {
		i.Status = StatusPending
	}
	return nil
}

// MarkFailed transitions a claimed item to failed immediately, used
// for precondition failures that no retry can fix
func (i *Item) MarkFailed(message string) error {
	if i.Status != StatusProcessing {
		return shared.ErrInvalidState
	}
	i.Status = StatusFailed
	i.ErrorMessage = message
	return nil
}

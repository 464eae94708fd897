package mapping

import (
	"github.com/google/uuid"

	"github.com/crmsync/backend/internal/domain/shared"
)

// EventTypeRecordTransformed is emitted after every transform pass
const EventTypeRecordTransformed = "mapping.record.transformed"

// AggregateTypeMapping identifies the mapping aggregate
const AggregateTypeMapping = "Mapping"

// RecordTransformedEvent carries the before/after of one transformation
// for observability. Consumers must not use it for control flow.
type RecordTransformedEvent struct {
	shared.BaseDomainEvent
	EntityKind    EntityKind `json:"entity_kind"`
	Direction     Direction  `json:"direction"`
	Original      Record     `json:"original"`
	Transformed   Record     `json:"transformed"`
	ChangedFields []string   `json:"changed_fields"`
}

// NewRecordTransformedEvent creates a RecordTransformedEvent
func NewRecordTransformedEvent(kind EntityKind, direction Direction, original, transformed Record, changed []string) *RecordTransformedEvent {
	return &RecordTransformedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRecordTransformed, AggregateTypeMapping, uuid.New()),
		EntityKind:      kind,
		Direction:       direction,
		Original:        original,
		Transformed:     transformed,
		ChangedFields:   changed,
	}
}

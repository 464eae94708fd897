package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/crmsync/backend/internal/domain/queue"
)

// QueueItemModel is the persistence model for the retry-queue Item.
type QueueItemModel struct {
	ID           uuid.UUID      `gorm:"type:uuid;primary_key"`
	FormType     queue.FormType `gorm:"type:varchar(20);not null;index"`
	PayloadJSON  string         `gorm:"type:jsonb;column:payload"`
	Status       queue.Status   `gorm:"type:varchar(10);not null;index"`
	Attempts     int            `gorm:"not null;default:0"`
	ErrorMessage string         `gorm:"type:text"`
	RemoteID     string         `gorm:"type:varchar(64)"`
	CreatedAt    time.Time      `gorm:"not null;index"`
	ProcessedAt  *time.Time     `gorm:""`
}

// TableName returns the table name for GORM
func (QueueItemModel) TableName() string {
	return "queue_items"
}

// ToDomain converts the persistence model to a domain Item
func (m *QueueItemModel) ToDomain() *queue.Item {
	item := &queue.Item{
		ID:           m.ID,
		FormType:     m.FormType,
		Payload:      map[string]any{},
		Status:       m.Status,
		Attempts:     m.Attempts,
		ErrorMessage: m.ErrorMessage,
		RemoteID:     m.RemoteID,
		CreatedAt:    m.CreatedAt,
		ProcessedAt:  m.ProcessedAt,
	}

	if m.PayloadJSON != "" {
		var payload map[string]any
		if err := json.Unmarshal([]byte(m.PayloadJSON), &payload); err == nil {
			item.Payload = payload
		}
	}

	return item
}

// FromDomain populates the persistence model from a domain Item
func (m *QueueItemModel) FromDomain(item *queue.Item) {
	m.ID = item.ID
	m.FormType = item.FormType
	m.Status = item.Status
	m.Attempts = item.Attempts
	m.ErrorMessage = item.ErrorMessage
	m.RemoteID = item.RemoteID
	m.CreatedAt = item.CreatedAt
	m.ProcessedAt = item.ProcessedAt

	if len(item.Payload) > 0 {
		if jsonBytes, err := json.Marshal(item.Payload); err == nil {
			m.PayloadJSON = string(jsonBytes)
		}
	} else {
		m.PayloadJSON = "{}"
	}
}

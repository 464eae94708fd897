package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Filter narrows queue item queries
type Filter struct {
	Status   Status
	FormType FormType
	Limit    int
	Offset   int
	SortBy   string
	SortDir  string
}

// Stats is an aggregate view over the queue
type Stats struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Processed  int64 `json:"processed"`
	Failed     int64 `json:"failed"`
}

// Repository persists queue items. The store self-heals on first use:
// a missing backing table is created and the write retried once.
type Repository interface {
	// Save inserts a new item. It must be durable before returning.
	Save(ctx context.Context, item *Item) error
	// Update persists item mutations. When expectStatus is non-empty the
	// update only applies while the stored status still matches it, and
	// shared.ErrConcurrencyConflict is returned otherwise. This is the
	// check-and-flip that keeps two processors from double-submitting.
	Update(ctx context.Context, item *Item, expectStatus Status) error
	// FindByID returns the item, or shared.ErrNotFound
	FindByID(ctx context.Context, id uuid.UUID) (*Item, error)
	// List returns items matching the filter, oldest first
	List(ctx context.Context, filter Filter) ([]*Item, error)
	// Stats aggregates item counts
	Stats(ctx context.Context) (*Stats, error)
	// Purge removes items in a terminal state older than the cutoff.
	// Operator-triggered only, never automatic.
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}

package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/crmsync/backend/internal/domain/queue"
	"github.com/crmsync/backend/internal/domain/shared"
	"github.com/crmsync/backend/internal/infrastructure/persistence/models"
)

// GormQueueItemRepository implements queue.Repository using GORM.
// The repository self-heals: when the backing table is missing (a fresh
// install, or an operator dropped it), the first write creates it and
// retries once instead of failing the submission.
type GormQueueItemRepository struct {
	db *gorm.DB
}

// NewGormQueueItemRepository creates a new GormQueueItemRepository
func NewGormQueueItemRepository(db *gorm.DB) *GormQueueItemRepository {
	return &GormQueueItemRepository{db: db}
}

// Save inserts a new item
func (r *GormQueueItemRepository) Save(ctx context.Context, item *queue.Item) error {
	var model models.QueueItemModel
	model.FromDomain(item)

	err := r.db.WithContext(ctx).Create(&model).Error
	if err != nil && isMissingTable(err) {
		if mErr := r.db.WithContext(ctx).AutoMigrate(&models.QueueItemModel{}); mErr != nil {
			return mErr
		}
		err = r.db.WithContext(ctx).Create(&model).Error
	}
	return err
}

// Update persists item mutations, optionally guarded by the expected
// prior status. A zero-row update under a status guard means another
// processor already flipped the item.
func (r *GormQueueItemRepository) Update(ctx context.Context, item *queue.Item, expectStatus queue.Status) error {
	var model models.QueueItemModel
	model.FromDomain(item)

	query := r.db.WithContext(ctx).
		Model(&models.QueueItemModel{}).
		Where("id = ?", model.ID)
	if expectStatus != "" {
		query = query.Where("status = ?", expectStatus)
	}

	result := query.Updates(map[string]any{
		"form_type":     model.FormType,
		"payload":       model.PayloadJSON,
		"status":        model.Status,
		"attempts":      model.Attempts,
		"error_message": model.ErrorMessage,
		"remote_id":     model.RemoteID,
		"processed_at":  model.ProcessedAt,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if expectStatus != "" {
			return shared.ErrConcurrencyConflict
		}
		return shared.ErrNotFound
	}
	return nil
}

// FindByID returns the item, or shared.ErrNotFound
func (r *GormQueueItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*queue.Item, error) {
	var model models.QueueItemModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || isMissingTable(err) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns items matching the filter, oldest first
func (r *GormQueueItemRepository) List(ctx context.Context, filter queue.Filter) ([]*queue.Item, error) {
	query := r.db.WithContext(ctx).Model(&models.QueueItemModel{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.FormType != "" {
		query = query.Where("form_type = ?", filter.FormType)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	sortField := ValidateSortField(filter.SortBy, QueueItemSortFields, "created_at")
	// Oldest first by default so retries drain in submission order.
	sortDir := "ASC"
	if filter.SortDir != "" {
		sortDir = ValidateSortOrder(filter.SortDir)
	}

	var modelList []models.QueueItemModel
	if err := query.Order(sortField + " " + sortDir).Find(&modelList).Error; err != nil {
		if isMissingTable(err) {
			return []*queue.Item{}, nil
		}
		return nil, err
	}

	items := make([]*queue.Item, len(modelList))
	for i := range modelList {
		items[i] = modelList[i].ToDomain()
	}
	return items, nil
}

// Stats aggregates item counts
func (r *GormQueueItemRepository) Stats(ctx context.Context) (*queue.Stats, error) {
	stats := &queue.Stats{}

	type statusCount struct {
		Status string
		Count  int64
	}
	var counts []statusCount
	err := r.db.WithContext(ctx).
		Model(&models.QueueItemModel{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&counts).Error
	if err != nil {
		if isMissingTable(err) {
			return stats, nil
		}
		return nil, err
	}

	for _, c := range counts {
		stats.Total += c.Count
		switch queue.Status(c.Status) {
		case queue.StatusPending:
			stats.Pending = c.Count
		case queue.StatusProcessing:
			stats.Processing = c.Count
		case queue.StatusProcessed:
			stats.Processed = c.Count
		case queue.StatusFailed:
			stats.Failed = c.Count
		}
	}
	return stats, nil
}

// Purge removes items in a terminal state older than the cutoff
func (r *GormQueueItemRepository) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status IN ? AND created_at < ?",
			[]queue.Status{queue.StatusProcessed, queue.StatusFailed}, cutoff).
		Delete(&models.QueueItemModel{})
	if result.Error != nil {
		if isMissingTable(result.Error) {
			return 0, nil
		}
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// isMissingTable detects the undefined-table error across the drivers
// we run against (postgres 42P01, sqlite "no such table").
func isMissingTable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "42p01") ||
		strings.Contains(msg, "does not exist") ||
		strings.Contains(msg, "no such table")
}

// Ensure GormQueueItemRepository implements the repository interface
var _ queue.Repository = (*GormQueueItemRepository)(nil)

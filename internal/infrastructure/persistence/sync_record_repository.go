package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/crmsync/backend/internal/domain/shared"
	"github.com/crmsync/backend/internal/domain/sync"
	"github.com/crmsync/backend/internal/infrastructure/persistence/models"
)

// GormSyncRecordRepository implements SyncRecordRepository using GORM
type GormSyncRecordRepository struct {
	db *gorm.DB
}

// NewGormSyncRecordRepository creates a new GormSyncRecordRepository
func NewGormSyncRecordRepository(db *gorm.DB) *GormSyncRecordRepository {
	return &GormSyncRecordRepository{db: db}
}

// Save appends a sync record
func (r *GormSyncRecordRepository) Save(ctx context.Context, record *sync.SyncRecord) error {
	var model models.SyncRecordModel
	model.FromDomain(record)
	return r.db.WithContext(ctx).Create(&model).Error
}

// List returns records matching the filter, newest first
func (r *GormSyncRecordRepository) List(ctx context.Context, filter sync.SyncRecordFilter) ([]*sync.SyncRecord, error) {
	query := r.db.WithContext(ctx).Model(&models.SyncRecordModel{})

	if filter.EntityKind != "" {
		query = query.Where("entity_kind = ?", filter.EntityKind)
	}
	if filter.Direction != "" {
		query = query.Where("direction = ?", filter.Direction)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Since != nil {
		query = query.Where("synced_at >= ?", *filter.Since)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	sortField := ValidateSortField(filter.SortBy, SyncRecordSortFields, "synced_at")
	sortDir := ValidateSortOrder(filter.SortDir)

	var modelList []models.SyncRecordModel
	if err := query.Order(sortField + " " + sortDir).Find(&modelList).Error; err != nil {
		return nil, err
	}

	records := make([]*sync.SyncRecord, len(modelList))
	for i := range modelList {
		records[i] = modelList[i].ToDomain()
	}
	return records, nil
}

// LatestFor returns the most recent record for an entity
func (r *GormSyncRecordRepository) LatestFor(ctx context.Context, kind sync.LocalEntityKind, localID string) (*sync.SyncRecord, error) {
	var model models.SyncRecordModel
	err := r.db.WithContext(ctx).
		Where("entity_kind = ? AND local_id = ?", kind, localID).
		Order("synced_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Stats aggregates record counts for the status endpoint
func (r *GormSyncRecordRepository) Stats(ctx context.Context) (*sync.SyncStats, error) {
	stats := &sync.SyncStats{}
	base := r.db.WithContext(ctx).Model(&models.SyncRecordModel{})

	if err := base.Session(&gorm.Session{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	type statusCount struct {
		Status string
		Count  int64
	}
	var counts []statusCount
	err := base.Session(&gorm.Session{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	for _, c := range counts {
		switch sync.SyncStatus(c.Status) {
		case sync.SyncStatusSuccess:
			stats.Succeeded = c.Count
		case sync.SyncStatusFailed:
			stats.Failed = c.Count
		case sync.SyncStatusSkipped:
			stats.Skipped = c.Count
		}
	}

	cutoff := time.Now().Add(-24 * time.Hour)
	err = base.Session(&gorm.Session{}).
		Where("synced_at >= ?", cutoff).
		Count(&stats.Last24Hour).Error
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// PurgeOlderThan removes records older than the cutoff
func (r *GormSyncRecordRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("synced_at < ?", cutoff).
		Delete(&models.SyncRecordModel{})
	return result.RowsAffected, result.Error
}

// Ensure GormSyncRecordRepository implements the repository interface
var _ sync.SyncRecordRepository = (*GormSyncRecordRepository)(nil)

package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/crmsync/backend/internal/domain/shared"
	"github.com/crmsync/backend/internal/domain/sync"
	"github.com/crmsync/backend/internal/infrastructure/persistence/models"
)

// GormEntityReferenceRepository implements EntityReferenceRepository using GORM
type GormEntityReferenceRepository struct {
	db *gorm.DB
}

// NewGormEntityReferenceRepository creates a new GormEntityReferenceRepository
func NewGormEntityReferenceRepository(db *gorm.DB) *GormEntityReferenceRepository {
	return &GormEntityReferenceRepository{db: db}
}

// Save creates or updates an entity reference. At most one row exists
// per (local kind, local ID); a conflicting save updates the remote side.
func (r *GormEntityReferenceRepository) Save(ctx context.Context, ref *sync.EntityReference) error {
	var model models.EntityReferenceModel
	model.FromDomain(ref)

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "local_kind"}, {Name: "local_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"remote_kind", "remote_id", "updated_at"}),
		}).
		Create(&model).Error
}

// FindByLocal looks up the reference for a store-side entity
func (r *GormEntityReferenceRepository) FindByLocal(ctx context.Context, kind sync.LocalEntityKind, localID string) (*sync.EntityReference, error) {
	var model models.EntityReferenceModel
	err := r.db.WithContext(ctx).
		First(&model, "local_kind = ? AND local_id = ?", kind, localID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByRemote looks up the reference for a CRM-side entity. When a
// remote record was linked from multiple lookup paths, the most
// recently updated reference wins.
func (r *GormEntityReferenceRepository) FindByRemote(ctx context.Context, kind sync.RemoteEntityKind, remoteID string) (*sync.EntityReference, error) {
	var model models.EntityReferenceModel
	err := r.db.WithContext(ctx).
		Where("remote_kind = ? AND remote_id = ?", kind, remoteID).
		Order("updated_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Delete removes the reference for a store-side entity
func (r *GormEntityReferenceRepository) Delete(ctx context.Context, kind sync.LocalEntityKind, localID string) error {
	result := r.db.WithContext(ctx).
		Where("local_kind = ? AND local_id = ?", kind, localID).
		Delete(&models.EntityReferenceModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormEntityReferenceRepository implements the repository interface
var _ sync.EntityReferenceRepository = (*GormEntityReferenceRepository)(nil)

package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/crmsync/backend/internal/domain/shared"
	"github.com/crmsync/backend/internal/domain/store"
	"github.com/crmsync/backend/internal/infrastructure/persistence/models"
)

// GormOrderRepository implements OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Save creates or updates an order
func (r *GormOrderRepository) Save(ctx context.Context, order *store.Order) error {
	var model models.OrderModel
	model.FromDomain(order)

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&model).Error
}

// FindByID returns the order, or shared.ErrNotFound
func (r *GormOrderRepository) FindByID(ctx context.Context, id string) (*store.Order, error) {
	var model models.OrderModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNumber returns the order with the given number, or shared.ErrNotFound
func (r *GormOrderRepository) FindByNumber(ctx context.Context, number string) (*store.Order, error) {
	var model models.OrderModel
	err := r.db.WithContext(ctx).First(&model, "number = ?", number).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Ensure GormOrderRepository implements the repository interface
var _ store.OrderRepository = (*GormOrderRepository)(nil)

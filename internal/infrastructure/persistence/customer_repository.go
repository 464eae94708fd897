package persistence

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/crmsync/backend/internal/domain/shared"
	"github.com/crmsync/backend/internal/domain/store"
	"github.com/crmsync/backend/internal/infrastructure/persistence/models"
)

// GormCustomerRepository implements CustomerRepository using GORM
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewGormCustomerRepository creates a new GormCustomerRepository
func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// Save creates or updates a customer
func (r *GormCustomerRepository) Save(ctx context.Context, customer *store.Customer) error {
	var model models.CustomerModel
	model.FromDomain(customer)

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&model).Error
}

// FindByID returns the customer, or shared.ErrNotFound
func (r *GormCustomerRepository) FindByID(ctx context.Context, id string) (*store.Customer, error) {
	var model models.CustomerModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByEmail returns the customer with the given email, or shared.ErrNotFound
func (r *GormCustomerRepository) FindByEmail(ctx context.Context, email string) (*store.Customer, error) {
	var model models.CustomerModel
	err := r.db.WithContext(ctx).
		First(&model, "email = ?", strings.ToLower(email)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Ensure GormCustomerRepository implements the repository interface
var _ store.CustomerRepository = (*GormCustomerRepository)(nil)

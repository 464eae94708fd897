package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/crmsync/backend/internal/infrastructure/crm"
	"github.com/crmsync/backend/internal/infrastructure/persistence/models"
)

// credentialName keys the single credential row. The integration talks
// to exactly one CRM portal, so one row is all there ever is.
const credentialName = "crm"

// GormTokenRepository implements crm.TokenStore using GORM
type GormTokenRepository struct {
	db *gorm.DB
}

// NewGormTokenRepository creates a new GormTokenRepository
func NewGormTokenRepository(db *gorm.DB) *GormTokenRepository {
	return &GormTokenRepository{db: db}
}

// Get returns the stored token, or nil when never authorized
func (r *GormTokenRepository) Get(ctx context.Context) (*crm.Token, error) {
	var model models.CRMCredentialModel
	err := r.db.WithContext(ctx).First(&model, "name = ?", credentialName).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	token := &crm.Token{
		AccessToken:  model.AccessToken,
		RefreshToken: model.RefreshToken,
	}
	if model.ExpiresAt != nil {
		token.ExpiresAt = *model.ExpiresAt
	}
	return token, nil
}

// Save atomically replaces the stored token pair. The upsert is a
// single statement so a concurrent reader sees either the old pair or
// the new one, never a mix.
func (r *GormTokenRepository) Save(ctx context.Context, token *crm.Token) error {
	model := models.CRMCredentialModel{
		Name:         credentialName,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		UpdatedAt:    time.Now(),
	}
	if !token.ExpiresAt.IsZero() {
		expiresAt := token.ExpiresAt
		model.ExpiresAt = &expiresAt
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"access_token", "refresh_token", "expires_at", "updated_at"}),
		}).
		Create(&model).Error
}

// Clear removes the stored credentials, disconnecting the integration
func (r *GormTokenRepository) Clear(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Delete(&models.CRMCredentialModel{}, "name = ?", credentialName).Error
}

// Ensure GormTokenRepository implements the token store interface
var _ crm.TokenStore = (*GormTokenRepository)(nil)

package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/crmsync/backend/internal/infrastructure/crm"
	"github.com/crmsync/backend/internal/infrastructure/persistence/models"
)

func setupTokenTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.CRMCredentialModel{})
	require.NoError(t, err)

	return db
}

func TestGormTokenRepository_GetBeforeAuthorization(t *testing.T) {
	db := setupTokenTestDB(t)
	repo := NewGormTokenRepository(db)

	token, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, token)
}

func TestGormTokenRepository_SaveAndGet(t *testing.T) {
	db := setupTokenTestDB(t)
	repo := NewGormTokenRepository(db)
	ctx := context.Background()

	expiresAt := time.Now().Add(time.Hour).Truncate(time.Second)
	err := repo.Save(ctx, &crm.Token{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    expiresAt,
	})
	require.NoError(t, err)

	token, err := repo.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Equal(t, "access-1", token.AccessToken)
	assert.Equal(t, "refresh-1", token.RefreshToken)
	assert.WithinDuration(t, expiresAt, token.ExpiresAt, time.Second)
}

func TestGormTokenRepository_SaveReplacesPair(t *testing.T) {
	db := setupTokenTestDB(t)
	repo := NewGormTokenRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &crm.Token{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
	}))
	require.NoError(t, repo.Save(ctx, &crm.Token{
		AccessToken:  "access-2",
		RefreshToken: "refresh-2",
	}))

	token, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-2", token.AccessToken)
	assert.Equal(t, "refresh-2", token.RefreshToken)

	var count int64
	require.NoError(t, db.Model(&models.CRMCredentialModel{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGormTokenRepository_Clear(t *testing.T) {
	db := setupTokenTestDB(t)
	repo := NewGormTokenRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &crm.Token{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
	}))
	require.NoError(t, repo.Clear(ctx))

	token, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, token)

	// Clearing an already empty store is not an error
	assert.NoError(t, repo.Clear(ctx))
}

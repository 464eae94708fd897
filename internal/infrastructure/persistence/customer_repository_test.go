package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crmsync/backend/internal/domain/shared"
	"github.com/crmsync/backend/internal/domain/store"
)

func TestGormCustomerRepository_SaveAndFind(t *testing.T) {
	db := setupStoreTestDB(t)
	repo := NewGormCustomerRepository(db)
	ctx := context.Background()

	customer, err := store.NewCustomer("7", "Ana@Example.com")
	require.NoError(t, err)
	customer.FirstName = "Ana"
	customer.LastName = "Jimenez"
	require.NoError(t, repo.Save(ctx, customer))

	t.Run("finds by id", func(t *testing.T) {
		found, err := repo.FindByID(ctx, "7")
		require.NoError(t, err)
		assert.Equal(t, "Ana Jimenez", found.FullName())
	})

	t.Run("email lookup is case insensitive", func(t *testing.T) {
		found, err := repo.FindByEmail(ctx, "ANA@example.COM")
		require.NoError(t, err)
		assert.Equal(t, "7", found.ID)
	})

	t.Run("returns not found for unknown customers", func(t *testing.T) {
		_, err := repo.FindByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("save upserts an existing customer", func(t *testing.T) {
		customer.Phone = "8888-1234"
		require.NoError(t, repo.Save(ctx, customer))

		found, err := repo.FindByID(ctx, "7")
		require.NoError(t, err)
		assert.Equal(t, "8888-1234", found.Phone)
	})
}

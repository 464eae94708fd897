package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/crmsync/backend/internal/domain/queue"
	"github.com/crmsync/backend/internal/domain/shared"
	"github.com/crmsync/backend/internal/infrastructure/persistence/models"
)

func setupQueueTestDB(t *testing.T, migrate bool) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	if migrate {
		require.NoError(t, db.AutoMigrate(&models.QueueItemModel{}))
	}
	return db
}

func newTestItem(t *testing.T, formType queue.FormType) *queue.Item {
	t.Helper()
	item, err := queue.NewItem(formType, map[string]any{
		"name":  "Ana",
		"email": "ana@example.com",
	})
	require.NoError(t, err)
	return item
}

func TestGormQueueItemRepository_SaveAndFind(t *testing.T) {
	db := setupQueueTestDB(t, true)
	repo := NewGormQueueItemRepository(db)
	ctx := context.Background()

	item := newTestItem(t, queue.FormTypeContact)
	require.NoError(t, repo.Save(ctx, item))

	found, err := repo.FindByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.ID, found.ID)
	assert.Equal(t, queue.FormTypeContact, found.FormType)
	assert.Equal(t, queue.StatusPending, found.Status)
	assert.Equal(t, "ana@example.com", found.Payload["email"])

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormQueueItemRepository_SaveCreatesMissingTable(t *testing.T) {
	// Fresh database, no migration ran. The first submission must not
	// be lost to a missing table.
	db := setupQueueTestDB(t, false)
	repo := NewGormQueueItemRepository(db)
	ctx := context.Background()

	item := newTestItem(t, queue.FormTypeQuote)
	require.NoError(t, repo.Save(ctx, item))

	found, err := repo.FindByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.FormTypeQuote, found.FormType)
}

func TestGormQueueItemRepository_UpdateStatusGuard(t *testing.T) {
	db := setupQueueTestDB(t, true)
	repo := NewGormQueueItemRepository(db)
	ctx := context.Background()

	item := newTestItem(t, queue.FormTypeContact)
	require.NoError(t, repo.Save(ctx, item))

	t.Run("claim and completion apply while the guard matches", func(t *testing.T) {
		require.NoError(t, item.MarkProcessing())
		require.NoError(t, repo.Update(ctx, item, queue.StatusPending))

		require.NoError(t, item.MarkProcessed("123"))
		require.NoError(t, repo.Update(ctx, item, queue.StatusProcessing))

		found, err := repo.FindByID(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, queue.StatusProcessed, found.Status)
		assert.Equal(t, "123", found.RemoteID)
	})

	t.Run("stale guard reports a conflict", func(t *testing.T) {
		err := repo.Update(ctx, item, queue.StatusPending)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})

	t.Run("unguarded update on a missing item reports not found", func(t *testing.T) {
		ghost := newTestItem(t, queue.FormTypeContact)
		err := repo.Update(ctx, ghost, "")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormQueueItemRepository_ListAndStats(t *testing.T) {
	db := setupQueueTestDB(t, true)
	repo := NewGormQueueItemRepository(db)
	ctx := context.Background()

	pending := newTestItem(t, queue.FormTypeContact)
	require.NoError(t, repo.Save(ctx, pending))

	processed := newTestItem(t, queue.FormTypeQuote)
	require.NoError(t, repo.Save(ctx, processed))
	require.NoError(t, processed.MarkProcessing())
	require.NoError(t, processed.MarkProcessed("9"))
	require.NoError(t, repo.Update(ctx, processed, queue.StatusPending))

	claimed := newTestItem(t, queue.FormTypeNewsletter)
	require.NoError(t, repo.Save(ctx, claimed))
	require.NoError(t, claimed.MarkProcessing())
	require.NoError(t, repo.Update(ctx, claimed, queue.StatusPending))

	failed := newTestItem(t, queue.FormTypeSupport)
	require.NoError(t, repo.Save(ctx, failed))
	require.NoError(t, failed.MarkProcessing())
	require.NoError(t, failed.MarkFailed("remote rejected the lead"))
	require.NoError(t, repo.Update(ctx, failed, ""))

	t.Run("list filters by status", func(t *testing.T) {
		items, err := repo.List(ctx, queue.Filter{Status: queue.StatusPending})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, pending.ID, items[0].ID)
	})

	t.Run("list filters by form type", func(t *testing.T) {
		items, err := repo.List(ctx, queue.Filter{FormType: queue.FormTypeQuote})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, processed.ID, items[0].ID)
	})

	t.Run("stats count per status", func(t *testing.T) {
		stats, err := repo.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(4), stats.Total)
		assert.Equal(t, int64(1), stats.Pending)
		assert.Equal(t, int64(1), stats.Processing)
		assert.Equal(t, int64(1), stats.Processed)
		assert.Equal(t, int64(1), stats.Failed)
	})
}

func TestGormQueueItemRepository_Purge(t *testing.T) {
	db := setupQueueTestDB(t, true)
	repo := NewGormQueueItemRepository(db)
	ctx := context.Background()

	old := newTestItem(t, queue.FormTypeContact)
	old.CreatedAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, repo.Save(ctx, old))
	require.NoError(t, old.MarkProcessing())
	require.NoError(t, old.MarkProcessed("1"))
	require.NoError(t, repo.Update(ctx, old, queue.StatusPending))

	stale := newTestItem(t, queue.FormTypeContact)
	stale.CreatedAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, repo.Save(ctx, stale))

	recent := newTestItem(t, queue.FormTypeContact)
	require.NoError(t, repo.Save(ctx, recent))

	removed, err := repo.Purge(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	// Only terminal items go. The stale pending item stays until an
	// operator deals with it.
	assert.Equal(t, int64(1), removed)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
}

package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add sync records table", "add_sync_records_table"},
		{"Add-Entity-References", "add_entity_references"},
		{"ADD_QUEUE_ITEMS", "add_queue_items"},
		{"queue__items__status", "queue_items_status"},
		{"Webhook Events v2", "webhook_events_v2"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, sanitizeName(tt.input), "input %q", tt.input)
	}
}

func TestCreateMigration(t *testing.T) {
	tmpDir := t.TempDir()

	mf, err := CreateMigration(tmpDir, "add sync records", "Track sync outcomes per entity")
	require.NoError(t, err)
	require.NotNil(t, mf)

	// Version prefix is YYYYMMDDHHMMSS
	assert.Len(t, mf.Version, 14)

	upBase := strings.TrimSuffix(filepath.Base(mf.UpPath), ".up.sql")
	downBase := strings.TrimSuffix(filepath.Base(mf.DownPath), ".down.sql")
	assert.Equal(t, upBase, downBase)
	assert.Equal(t, mf.Version+"_add_sync_records", upBase)

	upContent, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(upContent), "add sync records")
	assert.Contains(t, string(upContent), "Track sync outcomes per entity")
	assert.Contains(t, string(upContent), "Write your UP migration SQL here")

	downContent, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(downContent), "Rollback")
	assert.Contains(t, string(downContent), "Write your DOWN migration SQL here")
}

func TestCreateMigration_CreatesDirectory(t *testing.T) {
	nestedPath := filepath.Join(t.TempDir(), "nested", "migrations")

	mf, err := CreateMigration(nestedPath, "init", "initial schema")
	require.NoError(t, err)
	require.NotNil(t, mf)

	info, err := os.Stat(nestedPath)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestListMigrations(t *testing.T) {
	t.Run("pairs are listed once by base name", func(t *testing.T) {
		tmpDir := t.TempDir()
		for _, f := range []string{
			"000001_init_schema.up.sql",
			"000001_init_schema.down.sql",
			"000002_add_entity_references.up.sql",
			"000002_add_entity_references.down.sql",
			"000003_add_queue_items.up.sql",
			"000003_add_queue_items.down.sql",
		} {
			require.NoError(t, os.WriteFile(filepath.Join(tmpDir, f), []byte("-- test"), 0644))
		}

		migrations, err := ListMigrations(tmpDir)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"000001_init_schema",
			"000002_add_entity_references",
			"000003_add_queue_items",
		}, migrations)
	})

	t.Run("empty directory", func(t *testing.T) {
		migrations, err := ListMigrations(t.TempDir())
		require.NoError(t, err)
		assert.Empty(t, migrations)
	})

	t.Run("missing directory is treated as empty", func(t *testing.T) {
		migrations, err := ListMigrations("/nonexistent/path/to/migrations")
		require.NoError(t, err)
		assert.Empty(t, migrations)
	})

	t.Run("non-migration entries are skipped", func(t *testing.T) {
		tmpDir := t.TempDir()
		for _, f := range []string{
			"000001_init.up.sql",
			"000001_init.down.sql",
			"README.md",
			".gitkeep",
		} {
			require.NoError(t, os.WriteFile(filepath.Join(tmpDir, f), []byte("test"), 0644))
		}
		require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "archive.up.sql"), 0755))

		migrations, err := ListMigrations(tmpDir)
		require.NoError(t, err)
		assert.Equal(t, []string{"000001_init"}, migrations)
	})
}

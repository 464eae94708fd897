package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewItem(t *testing.T) {
	t.Run("creates pending item", func(t *testing.T) {
		item, err := NewItem(FormTypeContact, map[string]any{"email": "ana@x.com"})
		require.NoError(t, err)

		assert.Equal(t, StatusPending, item.Status)
		assert.Zero(t, item.Attempts)
		assert.Nil(t, item.ProcessedAt)
		assert.NotEmpty(t, item.ID)
	})

	t.Run("rejects invalid form type", func(t *testing.T) {
		_, err := NewItem("survey", map[string]any{"email": "ana@x.com"})
		require.Error(t, err)
	})

	t.Run("rejects empty payload", func(t *testing.T) {
		_, err := NewItem(FormTypeContact, nil)
		require.Error(t, err)
	})
}

func TestItemMarkProcessing(t *testing.T) {
	item, err := NewItem(FormTypeContact, map[string]any{"email": "ana@x.com"})
	require.NoError(t, err)

	require.NoError(t, item.MarkProcessing())
	assert.Equal(t, StatusProcessing, item.Status)

	t.Run("a held claim cannot be claimed again", func(t *testing.T) {
		assert.Error(t, item.MarkProcessing())
	})

	t.Run("completion requires a claim", func(t *testing.T) {
		unclaimed, err := NewItem(FormTypeContact, map[string]any{"email": "ana@x.com"})
		require.NoError(t, err)
		assert.Error(t, unclaimed.MarkProcessed("301"))
		assert.Error(t, unclaimed.RecordFailure("timeout"))
		assert.Error(t, unclaimed.MarkFailed("not authorized"))
		assert.Equal(t, StatusPending, unclaimed.Status)
	})
}

func TestItemMarkProcessed(t *testing.T) {
	item, err := NewItem(FormTypeContact, map[string]any{"email": "ana@x.com"})
	require.NoError(t, err)
	require.NoError(t, item.MarkProcessing())

	require.NoError(t, item.MarkProcessed("301"))
	assert.Equal(t, StatusProcessed, item.Status)
	assert.Equal(t, "301", item.RemoteID)
	assert.NotNil(t, item.ProcessedAt)

	t.Run("terminal states are never re-opened", func(t *testing.T) {
		assert.Error(t, item.MarkProcessing())
		assert.Error(t, item.MarkProcessed("302"))
		assert.Error(t, item.RecordFailure("late failure"))
		assert.Equal(t, "301", item.RemoteID)
	})
}

func TestItemRecordFailure(t *testing.T) {
	item, err := NewItem(FormTypeContact, map[string]any{"email": "ana@x.com"})
	require.NoError(t, err)

	require.NoError(t, item.MarkProcessing())
	require.NoError(t, item.RecordFailure("timeout"))
	assert.Equal(t, StatusPending, item.Status, "reverts to pending before the attempt ceiling")
	assert.Equal(t, 1, item.Attempts)
	assert.Equal(t, "timeout", item.ErrorMessage)

	require.NoError(t, item.MarkProcessing())
	require.NoError(t, item.RecordFailure("timeout"))
	require.NoError(t, item.MarkProcessing())
	require.NoError(t, item.RecordFailure("timeout"))
	assert.Equal(t, StatusFailed, item.Status, "attempts saturate at %d", MaxAttempts)
	assert.Equal(t, MaxAttempts, item.Attempts)
}

func TestItemMarkFailed(t *testing.T) {
	item, err := NewItem(FormTypeContact, map[string]any{"email": "ana@x.com"})
	require.NoError(t, err)
	require.NoError(t, item.MarkProcessing())

	require.NoError(t, item.MarkFailed("client not authorized"))
	assert.Equal(t, StatusFailed, item.Status)
	assert.Zero(t, item.Attempts, "precondition failures do not consume attempts")
	assert.Error(t, item.MarkFailed("again"))
}

func TestClassify(t *testing.T) {
	t.Run("quote keywords win over identity fields", func(t *testing.T) {
		got := Classify(map[string]any{"email": "ana@x.com", "message": "necesito una cotización"})
		assert.Equal(t, FormTypeQuote, got)
	})

	t.Run("support keywords", func(t *testing.T) {
		got := Classify(map[string]any{"message": "I need help with my order"})
		assert.Equal(t, FormTypeSupport, got)
	})

	t.Run("registration keywords", func(t *testing.T) {
		got := Classify(map[string]any{"message": "quiero registrarme"})
		assert.Equal(t, FormTypeRegistration, got)
	})

	t.Run("newsletter keywords", func(t *testing.T) {
		got := Classify(map[string]any{"message": "subscribe me please"})
		assert.Equal(t, FormTypeNewsletter, got)
	})

	t.Run("identity fields without keywords classify as contact", func(t *testing.T) {
		got := Classify(map[string]any{"name": "Ana", "email": "ana@x.com", "phone": "88881234"})
		assert.Equal(t, FormTypeContact, got)
	})

	t.Run("no keywords and no identity fields classify as general", func(t *testing.T) {
		got := Classify(map[string]any{"comment": "hola"})
		assert.Equal(t, FormTypeGeneral, got)
	})
}

func TestIsSpam(t *testing.T) {
	assert.True(t, IsSpam(map[string]any{"website": "http://spam.example", "email": "a@b.c"}))
	assert.False(t, IsSpam(map[string]any{"website": "", "email": "a@b.c"}))
	assert.False(t, IsSpam(map[string]any{"email": "a@b.c"}))
	assert.True(t, IsSpam(map[string]any{"homepage": "x"}))
}

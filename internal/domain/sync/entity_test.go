package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEntityReference(t *testing.T) {
	t.Run("creates reference with valid inputs", func(t *testing.T) {
		ref, err := NewEntityReference(LocalEntityOrder, "1042", RemoteEntityDeal, "77")
		require.NoError(t, err)
		require.NotNil(t, ref)

		assert.Equal(t, LocalEntityOrder, ref.LocalKind)
		assert.Equal(t, "1042", ref.LocalID)
		assert.Equal(t, RemoteEntityDeal, ref.RemoteKind)
		assert.Equal(t, "77", ref.RemoteID)
		assert.NotEmpty(t, ref.ID)
		assert.False(t, ref.CreatedAt.IsZero())
	})

	t.Run("fails with invalid local kind", func(t *testing.T) {
		_, err := NewEntityReference("invoice", "1042", RemoteEntityDeal, "77")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid local entity kind")
	})

	t.Run("fails with empty local ID", func(t *testing.T) {
		_, err := NewEntityReference(LocalEntityOrder, "", RemoteEntityDeal, "77")
		require.Error(t, err)
	})

	t.Run("fails with invalid remote kind", func(t *testing.T) {
		_, err := NewEntityReference(LocalEntityOrder, "1042", "company", "77")
		require.Error(t, err)
	})

	t.Run("fails with empty remote ID", func(t *testing.T) {
		_, err := NewEntityReference(LocalEntityOrder, "1042", RemoteEntityDeal, "")
		require.Error(t, err)
	})
}

func TestEntityReferenceRebind(t *testing.T) {
	ref, err := NewEntityReference(LocalEntityCustomer, "88", RemoteEntityContact, "301")
	require.NoError(t, err)

	t.Run("points reference at a new remote entity", func(t *testing.T) {
		err := ref.Rebind("302")
		require.NoError(t, err)
		assert.Equal(t, "302", ref.RemoteID)
	})

	t.Run("rejects empty remote ID", func(t *testing.T) {
		err := ref.Rebind("")
		require.Error(t, err)
		assert.Equal(t, "302", ref.RemoteID)
	})
}

func TestNewSyncRecord(t *testing.T) {
	t.Run("creates record with valid inputs", func(t *testing.T) {
		record, err := NewSyncRecord(LocalEntityOrder, "1042", "77", SyncDirectionOutbound, SyncStatusSuccess, "")
		require.NoError(t, err)
		require.NotNil(t, record)

		assert.Equal(t, LocalEntityOrder, record.EntityKind)
		assert.Equal(t, SyncDirectionOutbound, record.Direction)
		assert.Equal(t, SyncStatusSuccess, record.Status)
		assert.False(t, record.SyncedAt.IsZero())
	})

	t.Run("accepts empty remote ID for early failures", func(t *testing.T) {
		record, err := NewSyncRecord(LocalEntityOrder, "1042", "", SyncDirectionOutbound, SyncStatusFailed, "connection refused")
		require.NoError(t, err)
		assert.Empty(t, record.RemoteID)
		assert.Equal(t, "connection refused", record.Detail)
	})

	t.Run("fails with invalid direction", func(t *testing.T) {
		_, err := NewSyncRecord(LocalEntityOrder, "1042", "77", "sideways", SyncStatusSuccess, "")
		require.Error(t, err)
	})

	t.Run("fails with invalid status", func(t *testing.T) {
		_, err := NewSyncRecord(LocalEntityOrder, "1042", "77", SyncDirectionInbound, "partial", "")
		require.Error(t, err)
	})
}

func TestLocalEntityKindIsValid(t *testing.T) {
	valid := []LocalEntityKind{LocalEntityOrder, LocalEntityCustomer, LocalEntityGuestContact, LocalEntityGuest, LocalEntityForm}
	for _, k := range valid {
		assert.True(t, k.IsValid(), "expected %s to be valid", k)
	}
	assert.False(t, LocalEntityKind("product").IsValid())
	assert.False(t, LocalEntityKind("").IsValid())
}

func TestSyncEvents(t *testing.T) {
	record, err := NewSyncRecord(LocalEntityCustomer, "88", "301", SyncDirectionOutbound, SyncStatusSuccess, "")
	require.NoError(t, err)

	t.Run("entity pushed event carries record identity", func(t *testing.T) {
		event := NewEntityPushedEvent(record, true)
		assert.Equal(t, EventTypeEntityPushed, event.EventType())
		assert.Equal(t, record.ID, event.AggregateID())
		assert.Equal(t, "88", event.LocalID)
		assert.Equal(t, "301", event.RemoteID)
		assert.True(t, event.Created)
	})

	t.Run("loop prevented event carries reason", func(t *testing.T) {
		event := NewLoopPreventedEvent(record, "update lock held")
		assert.Equal(t, EventTypeLoopPrevented, event.EventType())
		assert.Equal(t, "update lock held", event.Reason)
	})
}

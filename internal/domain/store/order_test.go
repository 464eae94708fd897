package store

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrder(t *testing.T) {
	t.Run("creates pending order", func(t *testing.T) {
		order, err := NewOrder("1042", "1042", "USD", decimal.NewFromFloat(120.50))
		require.NoError(t, err)

		assert.Equal(t, OrderStatusPending, order.Status)
		assert.Equal(t, "USD", order.Currency)
		assert.True(t, order.IsGuestOrder())
	})

	t.Run("number defaults to ID", func(t *testing.T) {
		order, err := NewOrder("1042", "", "USD", decimal.Zero)
		require.NoError(t, err)
		assert.Equal(t, "1042", order.Number)
	})

	t.Run("requires an ID", func(t *testing.T) {
		_, err := NewOrder("", "1042", "USD", decimal.Zero)
		require.Error(t, err)
	})
}

func TestOrderChangeStatus(t *testing.T) {
	order, err := NewOrder("1042", "1042", "USD", decimal.Zero)
	require.NoError(t, err)

	changed, err := order.ChangeStatus(OrderStatusProcessing)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = order.ChangeStatus(OrderStatusProcessing)
	require.NoError(t, err)
	assert.False(t, changed, "same status is a no-op")

	_, err = order.ChangeStatus("shipped-ish")
	require.Error(t, err)
	assert.Equal(t, OrderStatusProcessing, order.Status)
}

func TestOrderChangeTotal(t *testing.T) {
	order, err := NewOrder("1042", "1042", "USD", decimal.NewFromInt(100))
	require.NoError(t, err)

	assert.False(t, order.ChangeTotal(decimal.NewFromFloat(100.00)))
	assert.True(t, order.ChangeTotal(decimal.NewFromFloat(150.25)))
	assert.True(t, order.Total.Equal(decimal.NewFromFloat(150.25)))
}

func TestOrderAppendNote(t *testing.T) {
	order, err := NewOrder("1042", "1042", "USD", decimal.Zero)
	require.NoError(t, err)

	assert.True(t, order.AppendNote("CRM amount changed to 150.25"))
	assert.False(t, order.AppendNote("CRM amount changed to 150.25"), "duplicate notes are skipped")
	assert.True(t, order.AppendNote("stage moved to WON"))
	assert.Contains(t, order.Note, "150.25")
	assert.Contains(t, order.Note, "WON")
}

func TestOrderCustomerName(t *testing.T) {
	order, err := NewOrder("1042", "1042", "USD", decimal.Zero)
	require.NoError(t, err)
	order.FirstName = " Ana "
	order.LastName = "Rojas"
	assert.Equal(t, "Ana Rojas", order.CustomerName())
}

func TestCustomerApplyProfile(t *testing.T) {
	customer, err := NewCustomer("88", "ANA@x.com")
	require.NoError(t, err)
	assert.Equal(t, "ana@x.com", customer.Email)

	changes := customer.ApplyProfile(map[string]string{
		"first_name": "Ana",
		"last_name":  "Rojas",
		"phone":      "+50688881234",
		"company":    "",
	})

	assert.Len(t, changes, 3)
	assert.Equal(t, "Ana", customer.FirstName)
	assert.Equal(t, "+50688881234", customer.Phone)

	t.Run("unchanged values produce no changes", func(t *testing.T) {
		changes := customer.ApplyProfile(map[string]string{"first_name": "Ana"})
		assert.Empty(t, changes)
	})

	t.Run("empty values never erase data", func(t *testing.T) {
		changes := customer.ApplyProfile(map[string]string{"last_name": ""})
		assert.Empty(t, changes)
		assert.Equal(t, "Rojas", customer.LastName)
	})
}

func TestCustomerChangeEmail(t *testing.T) {
	customer, err := NewCustomer("88", "ana@x.com")
	require.NoError(t, err)

	changed, err := customer.ChangeEmail("ANA@x.com")
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = customer.ChangeEmail("ana.rojas@x.com")
	require.NoError(t, err)
	assert.True(t, changed)

	_, err = customer.ChangeEmail("  ")
	require.Error(t, err)
}

package store

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crmsync/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Order
// ---------------------------------------------------------------------------

// OrderStatus is the lifecycle state of a store order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusOnHold     OrderStatus = "on-hold"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
	OrderStatusFailed     OrderStatus = "failed"
)

// IsValid returns true if the status is valid
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusOnHold,
		OrderStatusCompleted, OrderStatusCancelled, OrderStatusRefunded,
		OrderStatusFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// LineItem is one order line
type LineItem struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// Order is a store order. Identity fields come from the shop; sync
// bookkeeping lives elsewhere.
type Order struct {
	ID            string
	Number        string
	Status        OrderStatus
	Total         decimal.Decimal
	Currency      string
	CustomerID    string
	Email         string
	FirstName     string
	LastName      string
	Phone         string
	Company       string
	Address1      string
	City          string
	Country       string
	PaymentMethod string
	LineItems     []LineItem
	Note          string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOrder creates a pending order
func NewOrder(id, number, currency string, total decimal.Decimal) (*Order, error) {
	if id == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "order ID is required")
	}
	if number == "" {
		number = id
	}
	now := time.Now()
	return &Order{
		ID:        id,
		Number:    number,
		Status:    OrderStatusPending,
		Total:     total,
		Currency:  currency,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CustomerName returns the billing name, "First Last"
func (o *Order) CustomerName() string {
	return strings.TrimSpace(strings.TrimSpace(o.FirstName) + " " + strings.TrimSpace(o.LastName))
}

// ChangeStatus moves the order to the given status. It reports whether
// anything changed.
func (o *Order) ChangeStatus(status OrderStatus) (bool, error) {
	if !status.IsValid() {
		return false, shared.NewDomainError("INVALID_INPUT", "invalid order status: "+string(status))
	}
	if o.Status == status {
		return false, nil
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	return true, nil
}

// ChangeTotal updates the order total, reporting whether it changed
func (o *Order) ChangeTotal(total decimal.Decimal) bool {
	if o.Total.Equal(total) {
		return false
	}
	o.Total = total
	o.UpdatedAt = time.Now()
	return true
}

// AppendNote adds a line to the order note, reporting whether it changed
func (o *Order) AppendNote(note string) bool {
	note = strings.TrimSpace(note)
	if note == "" || strings.Contains(o.Note, note) {
		return false
	}
	if o.Note != "" {
		o.Note += "\n"
	}
	o.Note += note
	o.UpdatedAt = time.Now()
	return true
}

// IsGuestOrder reports whether the order has no registered customer
func (o *Order) IsGuestOrder() bool {
	return o.CustomerID == ""
}

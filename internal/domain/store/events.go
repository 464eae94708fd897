package store

import (
	"github.com/crmsync/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Event types emitted by the store domain
const (
	EventTypeOrderPlaced        = "store.order.placed"
	EventTypeOrderStatusChanged = "store.order.status_changed"
	EventTypeCustomerChanged    = "store.customer.changed"
)

// Aggregate type identifiers
const (
	AggregateTypeOrder    = "Order"
	AggregateTypeCustomer = "Customer"
)

// OrderPlacedEvent is emitted when a new order enters the store
type OrderPlacedEvent struct {
	shared.BaseDomainEvent
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
}

// NewOrderPlacedEvent creates an OrderPlacedEvent
func NewOrderPlacedEvent(order *Order) *OrderPlacedEvent {
	return &OrderPlacedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderPlaced, AggregateTypeOrder, uuid.New()),
		OrderID:         order.ID,
		OrderNumber:     order.Number,
	}
}

// OrderStatusChangedEvent is emitted when an order moves between statuses
type OrderStatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderID   string      `json:"order_id"`
	OldStatus OrderStatus `json:"old_status"`
	NewStatus OrderStatus `json:"new_status"`
}

// NewOrderStatusChangedEvent creates an OrderStatusChangedEvent
func NewOrderStatusChangedEvent(order *Order, oldStatus OrderStatus) *OrderStatusChangedEvent {
	return &OrderStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderStatusChanged, AggregateTypeOrder, uuid.New()),
		OrderID:         order.ID,
		OldStatus:       oldStatus,
		NewStatus:       order.Status,
	}
}

// CustomerChangedEvent is emitted when a customer profile is created or edited
type CustomerChangedEvent struct {
	shared.BaseDomainEvent
	CustomerID string `json:"customer_id"`
}

// NewCustomerChangedEvent creates a CustomerChangedEvent
func NewCustomerChangedEvent(customer *Customer) *CustomerChangedEvent {
	return &CustomerChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerChanged, AggregateTypeCustomer, uuid.New()),
		CustomerID:      customer.ID,
	}
}

package sync

import (
	"context"
	"fmt"

	"github.com/crmsync/backend/internal/domain/shared"
	"github.com/crmsync/backend/internal/domain/store"
	"go.uber.org/zap"
)

// OrderChangedHandler pushes orders to the CRM when they are placed or
// change status. It subscribes to the store domain events so order
// intake and the outbound sync stay decoupled.
type OrderChangedHandler struct {
	syncService *SyncService
	enabled     bool
	logger      *zap.Logger
}

// NewOrderChangedHandler creates a handler for order lifecycle events.
// When enabled is false events are acknowledged but nothing is pushed;
// the toggle mirrors the order sync feature flag.
func NewOrderChangedHandler(syncService *SyncService, enabled bool, logger *zap.Logger) *OrderChangedHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderChangedHandler{
		syncService: syncService,
		enabled:     enabled,
		logger:      logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *OrderChangedHandler) EventTypes() []string {
	return []string{store.EventTypeOrderPlaced, store.EventTypeOrderStatusChanged}
}

// Handle pushes the affected order. Push failures are logged and
// swallowed: the sync record keeps the failure visible and a later
// status change retries naturally.
func (h *OrderChangedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.enabled {
		return nil
	}

	var orderID, trigger string
	switch e := event.(type) {
	case *store.OrderPlacedEvent:
		orderID = e.OrderID
		trigger = "order_placed"
	case *store.OrderStatusChangedEvent:
		orderID = e.OrderID
		trigger = "status_" + string(e.NewStatus)
	default:
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}

	result, err := h.syncService.PushOrder(ctx, orderID, trigger)
	if err != nil {
		h.logger.Warn("order push failed",
			zap.String("order_id", orderID),
			zap.String("trigger", trigger),
			zap.Error(err))
		return nil
	}

	h.logger.Info("order pushed",
		zap.String("order_id", orderID),
		zap.String("remote_id", result.RemoteID),
		zap.Bool("created", result.Created))
	return nil
}

// CustomerChangedHandler pushes customer profile edits to the CRM
type CustomerChangedHandler struct {
	syncService *SyncService
	enabled     bool
	logger      *zap.Logger
}

// NewCustomerChangedHandler creates a handler for customer change events
func NewCustomerChangedHandler(syncService *SyncService, enabled bool, logger *zap.Logger) *CustomerChangedHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CustomerChangedHandler{
		syncService: syncService,
		enabled:     enabled,
		logger:      logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *CustomerChangedHandler) EventTypes() []string {
	return []string{store.EventTypeCustomerChanged}
}

// Handle pushes the affected customer profile
func (h *CustomerChangedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.enabled {
		return nil
	}

	changed, ok := event.(*store.CustomerChangedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}

	if _, err := h.syncService.PushCustomer(ctx, changed.CustomerID); err != nil {
		h.logger.Warn("customer push failed",
			zap.String("customer_id", changed.CustomerID),
			zap.Error(err))
	}
	return nil
}

var (
	_ shared.EventHandler = (*OrderChangedHandler)(nil)
	_ shared.EventHandler = (*CustomerChangedHandler)(nil)
)

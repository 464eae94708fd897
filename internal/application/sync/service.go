package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/crmsync/backend/internal/domain/guard"
	"github.com/crmsync/backend/internal/domain/mapping"
	"github.com/crmsync/backend/internal/domain/shared"
	"github.com/crmsync/backend/internal/domain/store"
	"github.com/crmsync/backend/internal/domain/sync"
)

// SyncService orchestrates bidirectional synchronization between the
// store and the CRM
type SyncService struct {
	refs      sync.EntityReferenceRepository
	records   sync.SyncRecordRepository
	orders    store.OrderRepository
	customers store.CustomerRepository
	client    sync.RemoteAPI
	engine    *mapping.Engine
	guard     *guard.Guard
	eventBus  shared.EventPublisher
	logger    *zap.Logger
}

// SyncServiceConfig contains configuration for SyncService
type SyncServiceConfig struct {
	References sync.EntityReferenceRepository
	Records    sync.SyncRecordRepository
	Orders     store.OrderRepository
	Customers  store.CustomerRepository
	Client     sync.RemoteAPI
	Engine     *mapping.Engine
	Guard      *guard.Guard
	EventBus   shared.EventPublisher
	Logger     *zap.Logger
}

// NewSyncService creates a new SyncService
func NewSyncService(cfg SyncServiceConfig) *SyncService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncService{
		refs:      cfg.References,
		records:   cfg.Records,
		orders:    cfg.Orders,
		customers: cfg.Customers,
		client:    cfg.Client,
		engine:    cfg.Engine,
		guard:     cfg.Guard,
		eventBus:  cfg.EventBus,
		logger:    logger,
	}
}

// PushResult contains the outcome of an outbound push
type PushResult struct {
	RemoteID string `json:"remote_id"`
	Created  bool   `json:"created"`
	Message  string `json:"message,omitempty"`
}

// ---------------------------------------------------------------------------
// Outbound Path
// ---------------------------------------------------------------------------

// PushOrder synchronizes a store order to its CRM deal. A missing deal
// is created, an existing one updated; the contact counterpart is
// resolved or created along the way.
func (s *SyncService) PushOrder(ctx context.Context, orderID string, trigger string) (*PushResult, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	contactID, err := s.resolveContactForOrder(ctx, order)
	if err != nil {
		// A missing contact degrades the deal, it does not block it.
		s.logger.Warn("contact resolution failed, pushing deal without contact",
			zap.String("order_id", orderID), zap.Error(err))
	}

	fields := s.engine.Transform(ctx, mapping.EntityDeal, mapping.ToRemote, orderRecord(order))
	if contactID != "" {
		fields["CONTACT_ID"] = contactID
	}

	if reasons := s.engine.Validate(mapping.EntityDeal, mapping.ToRemote, fields); len(reasons) > 0 {
		detail := strings.Join(reasons, "; ")
		s.recordOutcome(ctx, sync.LocalEntityOrder, orderID, "", sync.SyncDirectionOutbound, sync.SyncStatusSkipped, detail)
		return nil, shared.NewDomainError("VALIDATION_FAILURE", detail)
	}

	result := &PushResult{}
	ref, err := s.refs.FindByLocal(ctx, sync.LocalEntityOrder, orderID)
	switch {
	case err == nil:
		result.RemoteID = ref.RemoteID
		if err := s.client.UpdateDeal(ctx, ref.RemoteID, fields); err != nil {
			s.recordFailure(ctx, sync.LocalEntityOrder, orderID, ref.RemoteID, sync.SyncDirectionOutbound, err)
			return nil, err
		}
	case errors.Is(err, shared.ErrNotFound):
		remoteID, createErr := s.client.CreateDeal(ctx, fields)
		if createErr != nil {
			s.recordFailure(ctx, sync.LocalEntityOrder, orderID, "", sync.SyncDirectionOutbound, createErr)
			return nil, createErr
		}
		result.RemoteID = remoteID
		result.Created = true
		s.saveReference(ctx, sync.LocalEntityOrder, orderID, sync.RemoteEntityDeal, remoteID, result)
	default:
		return nil, err
	}

	detail := "trigger=" + trigger
	record := s.recordOutcome(ctx, sync.LocalEntityOrder, orderID, result.RemoteID, sync.SyncDirectionOutbound, sync.SyncStatusSuccess, detail)
	if record != nil {
		s.publish(ctx, sync.NewEntityPushedEvent(record, result.Created))
	}

	s.logger.Info("order pushed",
		zap.String("order_id", orderID),
		zap.String("deal_id", result.RemoteID),
		zap.Bool("created", result.Created),
		zap.String("trigger", trigger))
	return result, nil
}

// PushCustomer synchronizes a store customer to its CRM contact
func (s *SyncService) PushCustomer(ctx context.Context, customerID string) (*PushResult, error) {
	customer, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	fields := s.engine.Transform(ctx, mapping.EntityContact, mapping.ToRemote, customerRecord(customer))
	if reasons := s.engine.Validate(mapping.EntityContact, mapping.ToRemote, fields); len(reasons) > 0 {
		detail := strings.Join(reasons, "; ")
		s.recordOutcome(ctx, sync.LocalEntityCustomer, customerID, "", sync.SyncDirectionOutbound, sync.SyncStatusSkipped, detail)
		return nil, shared.NewDomainError("VALIDATION_FAILURE", detail)
	}

	result := &PushResult{}
	ref, err := s.refs.FindByLocal(ctx, sync.LocalEntityCustomer, customerID)
	switch {
	case err == nil:
		result.RemoteID = ref.RemoteID
		if err := s.client.UpdateContact(ctx, ref.RemoteID, fields); err != nil {
			s.recordFailure(ctx, sync.LocalEntityCustomer, customerID, ref.RemoteID, sync.SyncDirectionOutbound, err)
			return nil, err
		}
	case errors.Is(err, shared.ErrNotFound):
		remoteID, resolveErr := s.resolveOrCreateContact(ctx, customer.Email, fields)
		if resolveErr != nil {
			s.recordFailure(ctx, sync.LocalEntityCustomer, customerID, "", sync.SyncDirectionOutbound, resolveErr)
			return nil, resolveErr
		}
		result.RemoteID = remoteID
		result.Created = true
		s.saveReference(ctx, sync.LocalEntityCustomer, customerID, sync.RemoteEntityContact, remoteID, result)
	default:
		return nil, err
	}

	record := s.recordOutcome(ctx, sync.LocalEntityCustomer, customerID, result.RemoteID, sync.SyncDirectionOutbound, sync.SyncStatusSuccess, "")
	if record != nil {
		s.publish(ctx, sync.NewEntityPushedEvent(record, result.Created))
	}
	return result, nil
}

// ---------------------------------------------------------------------------
// Inbound Path
// ---------------------------------------------------------------------------

// ApplyDealChange applies a CRM deal change to the linked store order.
// It reports whether local state was mutated; every fault is caught and
// logged, never propagated.
func (s *SyncService) ApplyDealChange(ctx context.Context, remoteID string, origin guard.Source) (applied bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("inbound deal apply fault",
				zap.String("deal_id", remoteID), zap.Any("fault", r))
			applied = false
		}
	}()

	ref, err := s.refs.FindByRemote(ctx, sync.RemoteEntityDeal, remoteID)
	if err != nil {
		// An unlinked deal is not an error: the store never saw it.
		s.logger.Info("no order linked to deal, skipping",
			zap.String("deal_id", remoteID), zap.Error(err))
		return false
	}
	entityType := ref.LocalKind.String()

	if !s.guard.BeforeSync(ctx, entityType, ref.LocalID, origin) {
		s.recordLoopPrevented(ctx, ref, remoteID)
		return false
	}
	if !s.lockOrBail(ctx, ref, remoteID, origin) {
		return false
	}
	// Every exit from here on schedules the delayed release, so a
	// failed fetch or save cannot pin the lock for its full TTL.
	defer s.guard.ReleaseLockAfter(entityType, ref.LocalID)

	remote, err := s.client.GetDeal(ctx, remoteID)
	if err != nil {
		s.recordFailure(ctx, ref.LocalKind, ref.LocalID, remoteID, sync.SyncDirectionInbound, err)
		return false
	}
	local := s.engine.Transform(ctx, mapping.EntityDeal, mapping.FromRemote, remote)

	order, err := s.orders.FindByID(ctx, ref.LocalID)
	if err != nil {
		s.recordFailure(ctx, ref.LocalKind, ref.LocalID, remoteID, sync.SyncDirectionInbound, err)
		return false
	}

	changes := s.applyDealFields(order, remote, local)
	if len(changes) == 0 {
		s.recordOutcome(ctx, ref.LocalKind, ref.LocalID, remoteID, sync.SyncDirectionInbound, sync.SyncStatusSkipped, "no field changes")
		return false
	}

	if err := s.orders.Save(ctx, order); err != nil {
		s.recordFailure(ctx, ref.LocalKind, ref.LocalID, remoteID, sync.SyncDirectionInbound, err)
		return false
	}

	detail := strings.Join(changes, "; ")
	record, recErr := sync.NewSyncRecord(ref.LocalKind, ref.LocalID, remoteID, sync.SyncDirectionInbound, sync.SyncStatusSuccess, detail)
	if recErr == nil {
		s.guard.AfterSync(ctx, entityType, ref.LocalID, origin, true, &trailRecorder{records: s.records, record: record})
		s.publish(ctx, sync.NewRemoteChangeAppliedEvent(record, changes))
	}

	s.logger.Info("deal change applied",
		zap.String("deal_id", remoteID),
		zap.String("order_id", ref.LocalID),
		zap.Strings("changes", changes))
	return true
}

// ApplyContactChange applies a CRM contact change to the linked store
// customer. Same contract as ApplyDealChange.
func (s *SyncService) ApplyContactChange(ctx context.Context, remoteID string, origin guard.Source) (applied bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("inbound contact apply fault",
				zap.String("contact_id", remoteID), zap.Any("fault", r))
			applied = false
		}
	}()

	ref, err := s.refs.FindByRemote(ctx, sync.RemoteEntityContact, remoteID)
	if err != nil {
		s.logger.Info("no customer linked to contact, skipping",
			zap.String("contact_id", remoteID), zap.Error(err))
		return false
	}
	if ref.LocalKind != sync.LocalEntityCustomer {
		// Guest contacts have no local profile to mutate.
		s.recordOutcome(ctx, ref.LocalKind, ref.LocalID, remoteID, sync.SyncDirectionInbound, sync.SyncStatusSkipped, "no local profile for guest contact")
		return false
	}
	entityType := ref.LocalKind.String()

	if !s.guard.BeforeSync(ctx, entityType, ref.LocalID, origin) {
		s.recordLoopPrevented(ctx, ref, remoteID)
		return false
	}
	if !s.lockOrBail(ctx, ref, remoteID, origin) {
		return false
	}
	defer s.guard.ReleaseLockAfter(entityType, ref.LocalID)

	remote, err := s.client.GetContact(ctx, remoteID)
	if err != nil {
		s.recordFailure(ctx, ref.LocalKind, ref.LocalID, remoteID, sync.SyncDirectionInbound, err)
		return false
	}
	local := s.engine.Transform(ctx, mapping.EntityContact, mapping.FromRemote, remote)

	customer, err := s.customers.FindByID(ctx, ref.LocalID)
	if err != nil {
		s.recordFailure(ctx, ref.LocalKind, ref.LocalID, remoteID, sync.SyncDirectionInbound, err)
		return false
	}

	var changes []string
	profile := map[string]string{}
	for _, field := range []string{"first_name", "last_name", "phone", "company", "address_1", "city", "country"} {
		if value := asString(local[field]); value != "" {
			profile[field] = value
		}
	}
	for _, change := range customer.ApplyProfile(profile) {
		changes = append(changes, fmt.Sprintf("%s: %q -> %q", change.Field, change.From, change.To))
	}
	if email := asString(local["email"]); email != "" {
		if changed, emailErr := customer.ChangeEmail(email); emailErr == nil && changed {
			changes = append(changes, "email -> "+strings.ToLower(email))
		}
	}

	if len(changes) == 0 {
		s.recordOutcome(ctx, ref.LocalKind, ref.LocalID, remoteID, sync.SyncDirectionInbound, sync.SyncStatusSkipped, "no field changes")
		return false
	}

	if err := s.customers.Save(ctx, customer); err != nil {
		s.recordFailure(ctx, ref.LocalKind, ref.LocalID, remoteID, sync.SyncDirectionInbound, err)
		return false
	}

	detail := strings.Join(changes, "; ")
	record, recErr := sync.NewSyncRecord(ref.LocalKind, ref.LocalID, remoteID, sync.SyncDirectionInbound, sync.SyncStatusSuccess, detail)
	if recErr == nil {
		s.guard.AfterSync(ctx, entityType, ref.LocalID, origin, true, &trailRecorder{records: s.records, record: record})
		s.publish(ctx, sync.NewRemoteChangeAppliedEvent(record, changes))
	}
	return true
}

// Stats returns the aggregate sync trail counters
func (s *SyncService) Stats(ctx context.Context) (*sync.SyncStats, error) {
	return s.records.Stats(ctx)
}

// ---------------------------------------------------------------------------
// Internals
// ---------------------------------------------------------------------------

// applyDealFields mutates the order from the remote deal and returns a
// human-readable change list. An unknown pipeline stage leaves the
// status untouched but other fields still apply.
func (s *SyncService) applyDealFields(order *store.Order, remote, local mapping.Record) []string {
	var changes []string

	if stage := asString(remote["STAGE_ID"]); stage != "" {
		if status, known := s.engine.StageToStatus(stage); known {
			if changed, err := order.ChangeStatus(store.OrderStatus(status)); err == nil && changed {
				changes = append(changes, "status -> "+status)
			}
		} else {
			s.logger.Debug("unknown pipeline stage, keeping order status",
				zap.String("stage", stage), zap.String("order_id", order.ID))
		}
	}

	if raw, ok := local["total"]; ok {
		if total, err := decimal.NewFromString(asString(raw)); err == nil && total.IsPositive() && !total.Equal(order.Total) {
			// Sub-1% drift is rounding noise from the CRM side; note it
			// instead of rewriting the order total.
			threshold := order.Total.Mul(decimal.NewFromFloat(0.01))
			if order.Total.IsPositive() && total.Sub(order.Total).Abs().LessThan(threshold) {
				if order.AppendNote("CRM reports total " + total.String()) {
					changes = append(changes, "note: total drift "+total.String())
				}
			} else if order.ChangeTotal(total) {
				changes = append(changes, "total -> "+total.String())
			}
		}
	}

	if note := asString(local["note"]); note != "" {
		if order.AppendNote(note) {
			changes = append(changes, "note appended")
		}
	}

	return changes
}

// resolveContactForOrder finds the CRM contact for the order's buyer,
// creating one when nothing matches. Guest checkouts are deduplicated
// by email so repeat guests reuse one contact.
func (s *SyncService) resolveContactForOrder(ctx context.Context, order *store.Order) (string, error) {
	kind, localID := sync.LocalEntityCustomer, order.CustomerID
	if order.IsGuestOrder() {
		kind, localID = sync.LocalEntityGuestContact, strings.ToLower(order.Email)
	}
	if localID == "" {
		return "", nil
	}

	if ref, err := s.refs.FindByLocal(ctx, kind, localID); err == nil {
		return ref.RemoteID, nil
	} else if !errors.Is(err, shared.ErrNotFound) {
		return "", err
	}

	remoteID, err := s.resolveOrCreateContact(ctx, order.Email, s.engine.Transform(ctx, mapping.EntityContact, mapping.ToRemote, orderContactRecord(order)))
	if err != nil {
		return "", err
	}
	if ref, refErr := sync.NewEntityReference(kind, localID, sync.RemoteEntityContact, remoteID); refErr == nil {
		if saveErr := s.refs.Save(ctx, ref); saveErr != nil {
			s.logger.Error("contact reference save failed after remote create",
				zap.String("contact_id", remoteID), zap.Error(saveErr))
		}
	}
	return remoteID, nil
}

// resolveOrCreateContact looks the contact up by email first, creating
// it only when the CRM has never seen the address
func (s *SyncService) resolveOrCreateContact(ctx context.Context, email string, fields mapping.Record) (string, error) {
	if email != "" {
		if id, err := s.client.FindContactByEmail(ctx, email); err != nil {
			return "", err
		} else if id != "" {
			return id, nil
		}
	}
	return s.client.CreateContact(ctx, fields)
}

func (s *SyncService) lockOrBail(ctx context.Context, ref *sync.EntityReference, remoteID string, origin guard.Source) bool {
	ok, err := s.guard.AcquireLock(ctx, ref.LocalKind.String(), ref.LocalID, origin)
	if err != nil {
		// Lock store faults never block the apply.
		s.logger.Warn("lock acquisition errored, continuing",
			zap.String("entity_id", ref.LocalID), zap.Error(err))
		return true
	}
	if !ok {
		s.recordOutcome(ctx, ref.LocalKind, ref.LocalID, remoteID, sync.SyncDirectionInbound, sync.SyncStatusSkipped, "lock held by other source")
		return false
	}
	return true
}

func (s *SyncService) saveReference(ctx context.Context, localKind sync.LocalEntityKind, localID string, remoteKind sync.RemoteEntityKind, remoteID string, result *PushResult) {
	ref, err := sync.NewEntityReference(localKind, localID, remoteKind, remoteID)
	if err == nil {
		err = s.refs.Save(ctx, ref)
	}
	if err != nil {
		// The remote record exists, local bookkeeping does not. Surface
		// the inconsistency instead of compensating.
		s.logger.Error("reference save failed after remote create",
			zap.String("local_id", localID),
			zap.String("remote_id", remoteID),
			zap.Error(err))
		result.Message = "remote record created but reference save failed"
	}
}

func (s *SyncService) recordOutcome(ctx context.Context, kind sync.LocalEntityKind, localID, remoteID string, direction sync.SyncDirection, status sync.SyncStatus, detail string) *sync.SyncRecord {
	record, err := sync.NewSyncRecord(kind, localID, remoteID, direction, status, detail)
	if err != nil {
		s.logger.Warn("sync record construction failed", zap.Error(err))
		return nil
	}
	if err := s.records.Save(ctx, record); err != nil {
		s.logger.Warn("sync record save failed",
			zap.String("local_id", localID), zap.Error(err))
	}
	return record
}

func (s *SyncService) recordFailure(ctx context.Context, kind sync.LocalEntityKind, localID, remoteID string, direction sync.SyncDirection, cause error) {
	record := s.recordOutcome(ctx, kind, localID, remoteID, direction, sync.SyncStatusFailed, cause.Error())
	if record != nil {
		s.publish(ctx, sync.NewSyncFailedEvent(record, cause.Error()))
	}
	s.logger.Error("sync failed",
		zap.String("entity_kind", kind.String()),
		zap.String("local_id", localID),
		zap.String("direction", string(direction)),
		zap.Error(cause))
}

func (s *SyncService) recordLoopPrevented(ctx context.Context, ref *sync.EntityReference, remoteID string) {
	record := s.recordOutcome(ctx, ref.LocalKind, ref.LocalID, remoteID, sync.SyncDirectionInbound, sync.SyncStatusSkipped, "blocked by loop guard")
	if record != nil {
		s.publish(ctx, sync.NewLoopPreventedEvent(record, "blocked by loop guard"))
	}
}

func (s *SyncService) publish(ctx context.Context, event shared.DomainEvent) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed",
			zap.String("event_type", event.EventType()), zap.Error(err))
	}
}

func orderRecord(o *store.Order) mapping.Record {
	return mapping.Record{
		"id":            o.ID,
		"order_number":  o.Number,
		"customer_name": o.CustomerName(),
		"total":         o.Total.String(),
		"currency":      o.Currency,
		"status":        string(o.Status),
	}
}

func orderContactRecord(o *store.Order) mapping.Record {
	return mapping.Record{
		"first_name": o.FirstName,
		"last_name":  o.LastName,
		"email":      o.Email,
		"phone":      o.Phone,
		"company":    o.Company,
		"address_1":  o.Address1,
		"city":       o.City,
		"country":    o.Country,
	}
}

func customerRecord(c *store.Customer) mapping.Record {
	return mapping.Record{
		"first_name": c.FirstName,
		"last_name":  c.LastName,
		"email":      c.Email,
		"phone":      c.Phone,
		"company":    c.Company,
		"address_1":  c.Address1,
		"city":       c.City,
		"country":    c.Country,
	}
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}

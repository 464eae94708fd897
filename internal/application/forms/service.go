package forms

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crmsync/backend/internal/domain/mapping"
	"github.com/crmsync/backend/internal/domain/queue"
	"github.com/crmsync/backend/internal/domain/shared"
	"github.com/crmsync/backend/internal/domain/sync"
)

// DefaultVisibilityRetries bounds the existence polling in
// ProcessWithRetry; the backoff between polls is fixed.
const (
	DefaultVisibilityRetries = 3
	visibilityBackoff        = 200 * time.Millisecond
)

// FormService accepts website form submissions into the retry queue
// and turns queued items into CRM leads
type FormService struct {
	items    queue.Repository
	refs     sync.EntityReferenceRepository
	client   sync.RemoteAPI
	engine   *mapping.Engine
	eventBus shared.EventPublisher
	logger   *zap.Logger
}

// FormServiceConfig contains configuration for FormService
type FormServiceConfig struct {
	Items    queue.Repository
	Refs     sync.EntityReferenceRepository
	Client   sync.RemoteAPI
	Engine   *mapping.Engine
	EventBus shared.EventPublisher
	Logger   *zap.Logger
}

// NewFormService creates a new FormService
func NewFormService(cfg FormServiceConfig) *FormService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FormService{
		items:    cfg.Items,
		refs:     cfg.Refs,
		client:   cfg.Client,
		engine:   cfg.Engine,
		eventBus: cfg.EventBus,
		logger:   logger,
	}
}

// EnqueueResult contains the outcome of a form submission
type EnqueueResult struct {
	QueueID  uuid.UUID      `json:"queue_id"`
	FormType queue.FormType `json:"form_type"`
}

// Enqueue accepts a form submission. Spam is rejected before anything
// is stored; everything else is classified and durably queued.
func (s *FormService) Enqueue(ctx context.Context, formData map[string]any) (*EnqueueResult, error) {
	if len(formData) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "form data is required")
	}
	if queue.IsSpam(formData) {
		s.logger.Info("form submission rejected as spam")
		return nil, shared.NewDomainError("SPAM_REJECTED", "submission failed the spam check")
	}

	formType := queue.Classify(formData)
	item, err := queue.NewItem(formType, formData)
	if err != nil {
		return nil, err
	}
	if err := s.items.Save(ctx, item); err != nil {
		return nil, err
	}

	s.logger.Info("form submission queued",
		zap.String("queue_id", item.ID.String()),
		zap.String("form_type", formType.String()))
	return &EnqueueResult{QueueID: item.ID, FormType: formType}, nil
}

// Process turns one queued item into a CRM lead. It is idempotent:
// an already-processed item reports true without side effects, any
// other terminal state reports false. Processing never re-opens a
// terminal state. The item is claimed with a guarded status flip
// before the remote call, so two processors racing on the same item
// submit exactly one lead: the loser backs off without side effects.
func (s *FormService) Process(ctx context.Context, queueID uuid.UUID) (bool, error) {
	item, err := s.items.FindByID(ctx, queueID)
	if err != nil {
		return false, err
	}

	switch item.Status {
	case queue.StatusProcessed:
		return true, nil
	case queue.StatusPending:
		// fall through to claiming
	default:
		return false, nil
	}

	if err := item.MarkProcessing(); err != nil {
		return false, err
	}
	if err := s.items.Update(ctx, item, queue.StatusPending); err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			// Another processor claimed the item first; its
			// submission wins and this pass backs off.
			s.logger.Info("queue item already claimed",
				zap.String("queue_id", queueID.String()))
			return false, nil
		}
		return false, err
	}

	if !s.client.Authorized(ctx) {
		// Missing authorization is a precondition failure, not a
		// transient one: no retry will fix it.
		if err := item.MarkFailed("remote API is not authorized"); err != nil {
			return false, err
		}
		if err := s.items.Update(ctx, item, queue.StatusProcessing); err != nil {
			return false, err
		}
		return false, shared.ErrAuthFailure
	}

	fields := s.engine.Transform(ctx, mapping.EntityLead, mapping.ToRemote, mapping.Record(item.Payload))
	if reasons := s.engine.Validate(mapping.EntityLead, mapping.ToRemote, fields); len(reasons) > 0 {
		s.logger.Warn("lead validation reported issues, submitting anyway",
			zap.String("queue_id", queueID.String()),
			zap.Strings("reasons", reasons))
	}

	remoteID, err := s.client.CreateLead(ctx, fields)
	if err != nil {
		return false, s.handleLeadFailure(ctx, item, err)
	}

	if err := item.MarkProcessed(remoteID); err != nil {
		return false, err
	}
	if err := s.items.Update(ctx, item, queue.StatusProcessing); err != nil {
		// The claim protects this flip; a failure here means the row
		// was mutated out from under a held claim.
		s.logger.Error("completing claimed queue item failed",
			zap.String("queue_id", queueID.String()),
			zap.String("lead_id", remoteID),
			zap.Error(err))
		return false, err
	}

	s.linkLead(ctx, item, remoteID)
	s.logger.Info("queue item processed into lead",
		zap.String("queue_id", queueID.String()),
		zap.String("lead_id", remoteID))
	return true, nil
}

// ProcessWithRetry polls until the item becomes visible, then
// processes it. Submissions routed through asynchronous storage may
// not be readable immediately after Enqueue returns.
func (s *FormService) ProcessWithRetry(ctx context.Context, queueID uuid.UUID, maxRetries int) (bool, error) {
	if maxRetries <= 0 {
		maxRetries = DefaultVisibilityRetries
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if _, err := s.items.FindByID(ctx, queueID); err == nil {
			return s.Process(ctx, queueID)
		} else if !errors.Is(err, shared.ErrNotFound) {
			return false, err
		} else {
			lastErr = err
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(visibilityBackoff):
		}
	}
	return false, lastErr
}

// ProcessPending walks every pending item once, oldest first. Used by
// the periodic retry pass; items that fail simply stay pending until
// their attempts saturate.
func (s *FormService) ProcessPending(ctx context.Context, limit int) (int, error) {
	items, err := s.items.List(ctx, queue.Filter{Status: queue.StatusPending, Limit: limit})
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, item := range items {
		ok, err := s.Process(ctx, item.ID)
		if err != nil {
			s.logger.Warn("retry pass item failed",
				zap.String("queue_id", item.ID.String()), zap.Error(err))
			continue
		}
		if ok {
			processed++
		}
	}
	return processed, nil
}

// Stats returns the aggregate queue counters
func (s *FormService) Stats(ctx context.Context) (*queue.Stats, error) {
	return s.items.Stats(ctx)
}

// Purge removes terminal items older than the cutoff
func (s *FormService) Purge(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.items.Purge(ctx, time.Now().Add(-olderThan))
}

// handleLeadFailure books one failed attempt against a claimed item,
// reverting it to pending until attempts saturate
func (s *FormService) handleLeadFailure(ctx context.Context, item *queue.Item, cause error) error {
	if err := item.RecordFailure(cause.Error()); err != nil {
		return err
	}
	if err := s.items.Update(ctx, item, queue.StatusProcessing); err != nil {
		return err
	}
	s.logger.Warn("lead creation failed",
		zap.String("queue_id", item.ID.String()),
		zap.Int("attempts", item.Attempts),
		zap.String("status", item.Status.String()),
		zap.Error(cause))
	return cause
}

// linkLead persists the queue-item-to-lead reference. Failure here is
// an inconsistency to surface, never a reason to undo the lead.
func (s *FormService) linkLead(ctx context.Context, item *queue.Item, remoteID string) {
	ref, err := sync.NewEntityReference(sync.LocalEntityForm, item.ID.String(), sync.RemoteEntityLead, remoteID)
	if err == nil {
		err = s.refs.Save(ctx, ref)
	}
	if err != nil {
		s.logger.Error("lead reference save failed",
			zap.String("queue_id", item.ID.String()),
			zap.String("lead_id", remoteID),
			zap.Error(err))
	}
}

package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/crmsync/backend/internal/domain/guard"
	"github.com/crmsync/backend/internal/domain/shared"
	"github.com/crmsync/backend/internal/infrastructure/crm"
)

// ErrInvalidSignature is returned when a signed webhook fails the
// HMAC check
var ErrInvalidSignature = shared.NewDomainError("INVALID_SIGNATURE", "webhook signature verification failed")

// ErrMalformedPayload is returned when no entity ID can be extracted
// from the webhook body
var ErrMalformedPayload = shared.NewDomainError("MALFORMED_PAYLOAD", "webhook payload carries no entity ID")

// dealEvents and contactEvents are the normalized event names each
// endpoint acts on. Anything else is acknowledged and skipped.
var (
	dealEvents    = map[string]bool{"ONCRMDEALADD": true, "ONCRMDEALUPDATE": true}
	contactEvents = map[string]bool{"ONCRMCONTACTADD": true, "ONCRMCONTACTUPDATE": true}
)

// ChangeApplier is the slice of the sync orchestrator that ingestion
// needs: apply one remote-originated change per entity kind.
type ChangeApplier interface {
	ApplyDealChange(ctx context.Context, remoteID string, origin guard.Source) bool
	ApplyContactChange(ctx context.Context, remoteID string, origin guard.Source) bool
}

// WebhookService ingests CRM change notifications and hands them to
// the sync orchestrator
type WebhookService struct {
	sync   ChangeApplier
	secret string
	logger *zap.Logger
}

// WebhookServiceConfig contains configuration for WebhookService
type WebhookServiceConfig struct {
	Sync ChangeApplier
	// Secret enables HMAC-SHA256 verification of the X-Signature
	// header. Empty disables verification.
	Secret string
	Logger *zap.Logger
}

// NewWebhookService creates a new WebhookService
func NewWebhookService(cfg WebhookServiceConfig) *WebhookService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookService{
		sync:   cfg.Sync,
		secret: cfg.Secret,
		logger: logger,
	}
}

// WebhookResult contains the outcome of one ingested notification
type WebhookResult struct {
	Processed       bool   `json:"processed"`
	EventReceived   string `json:"event_received"`
	EventNormalized string `json:"event_normalized"`
	EntityID        string `json:"entity_id,omitempty"`
	Message         string `json:"message,omitempty"`
}

// ProcessDealWebhook ingests a deal change notification. Business
// failures (unlinked deal, loop-guard denial) are reported in the
// result, not as errors; only malformed input and bad signatures error.
func (s *WebhookService) ProcessDealWebhook(ctx context.Context, payload []byte, contentType, signature string) (*WebhookResult, error) {
	result, err := s.ingest(payload, contentType, signature)
	if err != nil {
		return result, err
	}
	if !dealEvents[result.EventNormalized] {
		result.Message = "event not handled by this endpoint"
		return result, nil
	}

	result.Processed = s.sync.ApplyDealChange(ctx, result.EntityID, guard.SourceRemote)
	if !result.Processed {
		result.Message = "change not applied"
	}
	return result, nil
}

// ProcessContactWebhook ingests a contact change notification. Same
// contract as ProcessDealWebhook.
func (s *WebhookService) ProcessContactWebhook(ctx context.Context, payload []byte, contentType, signature string) (*WebhookResult, error) {
	result, err := s.ingest(payload, contentType, signature)
	if err != nil {
		return result, err
	}
	if !contactEvents[result.EventNormalized] {
		result.Message = "event not handled by this endpoint"
		return result, nil
	}

	result.Processed = s.sync.ApplyContactChange(ctx, result.EntityID, guard.SourceRemote)
	if !result.Processed {
		result.Message = "change not applied"
	}
	return result, nil
}

// ingest verifies, parses and normalizes the raw notification
func (s *WebhookService) ingest(payload []byte, contentType, signature string) (*WebhookResult, error) {
	if err := s.verifySignature(payload, signature); err != nil {
		return &WebhookResult{}, err
	}

	event, entityID := parsePayload(payload, contentType)
	result := &WebhookResult{
		EventReceived:   event,
		EventNormalized: crm.NormalizeEvent(event),
		EntityID:        entityID,
	}
	if entityID == "" {
		s.logger.Warn("webhook payload carries no entity ID",
			zap.String("event", event))
		return result, ErrMalformedPayload
	}
	return result, nil
}

// verifySignature checks the HMAC-SHA256 of the raw body when a secret
// is configured. Unsigned deployments skip the check entirely.
func (s *WebhookService) verifySignature(payload []byte, signature string) error {
	if s.secret == "" {
		return nil
	}
	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature)))) {
		return ErrInvalidSignature
	}
	return nil
}

// parsePayload extracts the event name and entity ID from the shapes
// the CRM delivers: JSON with nested data.FIELDS, flat JSON, or a
// form-encoded body with bracketed keys.
func parsePayload(payload []byte, contentType string) (event, entityID string) {
	if strings.Contains(contentType, "application/x-www-form-urlencoded") {
		return parseFormPayload(payload)
	}

	var body map[string]any
	if err := json.Unmarshal(payload, &body); err != nil {
		return parseFormPayload(payload)
	}

	event = firstString(body, "event", "EVENT")

	fields := body
	if data, ok := body["data"].(map[string]any); ok {
		fields = data
	}
	if nested, ok := fields["FIELDS"].(map[string]any); ok {
		fields = nested
	}
	entityID = firstString(fields, "ID", "id", "entity_id")
	return event, entityID
}

func parseFormPayload(payload []byte) (event, entityID string) {
	values, err := url.ParseQuery(string(payload))
	if err != nil {
		return "", ""
	}
	event = values.Get("event")
	for _, key := range []string{"data[FIELDS][ID]", "FIELDS[ID]", "ID", "id"} {
		if v := values.Get(key); v != "" {
			return event, v
		}
	}
	return event, ""
}

func firstString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := m[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

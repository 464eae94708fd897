package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	webhookapp "github.com/crmsync/backend/internal/application/webhooks"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Maximum webhook payload size (64KB - CRM event notifications are small)
const maxWebhookPayloadSize = 65536

// WebhookHandler handles inbound change notifications from the CRM.
// These endpoints are called by the CRM and do not require authentication;
// authenticity is established by the HMAC signature on the body.
type WebhookHandler struct {
	BaseHandler
	webhookService *webhookapp.WebhookService
	logger         *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(webhookService *webhookapp.WebhookService, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{
		webhookService: webhookService,
		logger:         logger,
	}
}

// WebhookResponse represents the response for CRM webhook endpoints
type WebhookResponse struct {
	Success         bool   `json:"success"`
	Processed       bool   `json:"processed"`
	EventReceived   string `json:"event_received,omitempty"`
	EventNormalized string `json:"event_normalized,omitempty"`
	EntityID        string `json:"entity_id,omitempty"`
	Message         string `json:"message,omitempty"`
}

type processFunc func(ctx context.Context, payload []byte, contentType, signature string) (*webhookapp.WebhookResult, error)

// HandleDealWebhook receives deal add/update notifications.
// POST /webhook/deal
func (h *WebhookHandler) HandleDealWebhook(c *gin.Context) {
	h.handle(c, h.webhookService.ProcessDealWebhook)
}

// HandleContactWebhook receives contact add/update notifications.
// POST /webhook/contact
func (h *WebhookHandler) HandleContactWebhook(c *gin.Context) {
	h.handle(c, h.webhookService.ProcessContactWebhook)
}

func (h *WebhookHandler) handle(c *gin.Context, process processFunc) {
	// The raw body is needed for signature verification, so bypass binding
	// and enforce the size limit manually.
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookPayloadSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, WebhookResponse{
			Message: "failed to read request body",
		})
		return
	}
	if len(payload) > maxWebhookPayloadSize {
		c.JSON(http.StatusRequestEntityTooLarge, WebhookResponse{
			Message: "payload too large",
		})
		return
	}

	result, err := process(c.Request.Context(), payload, c.ContentType(), c.GetHeader("X-Signature"))
	if err != nil {
		switch {
		case errors.Is(err, webhookapp.ErrInvalidSignature):
			h.logger.Warn("webhook signature rejected", zap.String("path", c.FullPath()))
			c.JSON(http.StatusUnauthorized, WebhookResponse{
				Message: "invalid signature",
			})
		case errors.Is(err, webhookapp.ErrMalformedPayload):
			c.JSON(http.StatusBadRequest, WebhookResponse{
				Message: "malformed payload",
			})
		default:
			h.logger.Error("webhook processing failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, WebhookResponse{
				Message: "internal error",
			})
		}
		return
	}

	// Skipped changes (loop prevention, unknown entity, unhandled event)
	// still acknowledge with 200 so the CRM does not retry.
	c.JSON(http.StatusOK, WebhookResponse{
		Success:         true,
		Processed:       result.Processed,
		EventReceived:   result.EventReceived,
		EventNormalized: result.EventNormalized,
		EntityID:        result.EntityID,
		Message:         result.Message,
	})
}

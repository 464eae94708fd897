package handler

import (
	"errors"

	formsapp "github.com/crmsync/backend/internal/application/forms"
	"github.com/crmsync/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FormHandler handles storefront form submissions
type FormHandler struct {
	BaseHandler
	formService *formsapp.FormService
	logger      *zap.Logger
}

// NewFormHandler creates a new FormHandler
func NewFormHandler(formService *formsapp.FormService, logger *zap.Logger) *FormHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FormHandler{
		formService: formService,
		logger:      logger,
	}
}

// FormSubmissionRequest represents a captured form payload
type FormSubmissionRequest struct {
	FormData map[string]any `json:"form_data" binding:"required"`
}

// FormSubmissionResponse reports the queue entry created for a submission
type FormSubmissionResponse struct {
	QueueID   string `json:"queue_id"`
	FormType  string `json:"form_type"`
	Submitted bool   `json:"submitted"`
}

// SubmitForm accepts a form submission, queues it and attempts delivery.
// POST /form
func (h *FormHandler) SubmitForm(c *gin.Context) {
	var req FormSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.formService.Enqueue(c.Request.Context(), req.FormData)
	if err != nil {
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == "SPAM_REJECTED" {
			// Honeypot hits get a success-shaped answer so bots learn nothing.
			h.Success(c, FormSubmissionResponse{Submitted: true})
			return
		}
		h.HandleError(c, err)
		return
	}

	// Delivery failures are not surfaced to the visitor: the item stays
	// queued and the retry path picks it up later.
	submitted, err := h.formService.ProcessWithRetry(c.Request.Context(), result.QueueID, formsapp.DefaultVisibilityRetries)
	if err != nil {
		h.logger.Warn("form delivery deferred",
			zap.String("queue_id", result.QueueID.String()),
			zap.Error(err))
	}

	h.Success(c, FormSubmissionResponse{
		QueueID:   result.QueueID.String(),
		FormType:  string(result.FormType),
		Submitted: submitted,
	})
}

package handler

import (
	"strconv"
	"time"

	formsapp "github.com/crmsync/backend/internal/application/forms"
	syncapp "github.com/crmsync/backend/internal/application/sync"
	"github.com/crmsync/backend/internal/domain/guard"
	"github.com/crmsync/backend/internal/domain/queue"
	"github.com/crmsync/backend/internal/domain/sync"
	"github.com/crmsync/backend/internal/infrastructure/crm"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Default retention for purged queue items and sync records
const defaultPurgeRetention = 30 * 24 * time.Hour

// AdminHandler exposes maintenance operations for operators.
// All routes behind it require a valid admin JWT.
type AdminHandler struct {
	BaseHandler
	syncService *syncapp.SyncService
	formService *formsapp.FormService
	records     sync.SyncRecordRepository
	items       queue.Repository
	client      *crm.Client
	callbackURL string
	logger      *zap.Logger
}

// AdminHandlerConfig wires the dependencies of AdminHandler
type AdminHandlerConfig struct {
	SyncService *syncapp.SyncService
	FormService *formsapp.FormService
	Records     sync.SyncRecordRepository
	Items       queue.Repository
	Client      *crm.Client
	CallbackURL string
	Logger      *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(cfg AdminHandlerConfig) *AdminHandler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{
		syncService: cfg.SyncService,
		formService: cfg.FormService,
		records:     cfg.Records,
		items:       cfg.Items,
		client:      cfg.Client,
		callbackURL: cfg.CallbackURL,
		logger:      logger,
	}
}

// SyncRecordListResponse wraps a page of sync audit records
type SyncRecordListResponse struct {
	Records []*sync.SyncRecord `json:"records"`
	Count   int                `json:"count"`
}

// ListSyncRecords returns the sync audit trail, newest first.
// GET /admin/sync/records
func (h *AdminHandler) ListSyncRecords(c *gin.Context) {
	filter := sync.SyncRecordFilter{
		EntityKind: sync.LocalEntityKind(c.Query("entity_kind")),
		Direction:  sync.SyncDirection(c.Query("direction")),
		Status:     sync.SyncStatus(c.Query("status")),
		Limit:      queryInt(c, "limit", 50),
		Offset:     queryInt(c, "offset", 0),
		SortBy:     c.Query("sort_by"),
		SortDir:    c.Query("sort_dir"),
	}
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.BadRequest(c, "since must be RFC3339")
			return
		}
		filter.Since = &since
	}

	records, err := h.records.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, SyncRecordListResponse{Records: records, Count: len(records)})
}

// PushOrderRequest identifies the order to re-push
type PushOrderRequest struct {
	OrderID string `json:"order_id" binding:"required"`
}

// PushOrder forces an outbound sync of one order, bypassing event
// triggers. Useful after fixing mapping or credential problems.
// POST /admin/sync/orders
func (h *AdminHandler) PushOrder(c *gin.Context) {
	var req PushOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.syncService.PushOrder(c.Request.Context(), req.OrderID, "manual")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.logger.Info("manual order push",
		zap.String("order_id", req.OrderID),
		zap.String("operator", getOperator(c)),
	)
	h.Success(c, result)
}

// ReapplyDealRequest identifies the CRM deal to pull
type ReapplyDealRequest struct {
	DealID string `json:"deal_id" binding:"required"`
}

// ReapplyDeal re-fetches a CRM deal and applies it locally.
// POST /admin/sync/deals/reapply
func (h *AdminHandler) ReapplyDeal(c *gin.Context) {
	var req ReapplyDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	applied := h.syncService.ApplyDealChange(c.Request.Context(), req.DealID, guard.SourceRemote)
	h.Success(c, gin.H{"applied": applied})
}

// QueueItemListResponse wraps a page of retry-queue items
type QueueItemListResponse struct {
	Items []*queue.Item `json:"items"`
	Count int           `json:"count"`
}

// ListQueueItems returns queue items, oldest first by default so the
// view matches processing order.
// GET /admin/queue
func (h *AdminHandler) ListQueueItems(c *gin.Context) {
	filter := queue.Filter{
		Status:   queue.Status(c.Query("status")),
		FormType: queue.FormType(c.Query("form_type")),
		Limit:    queryInt(c, "limit", 50),
		Offset:   queryInt(c, "offset", 0),
		SortBy:   c.Query("sort_by"),
		SortDir:  c.Query("sort_dir"),
	}

	items, err := h.items.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, QueueItemListResponse{Items: items, Count: len(items)})
}

// ProcessQueue drains pending form queue items.
// POST /admin/queue/process
func (h *AdminHandler) ProcessQueue(c *gin.Context) {
	limit := queryInt(c, "limit", 50)
	processed, err := h.formService.ProcessPending(c.Request.Context(), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"processed": processed})
}

// ReprocessQueueItem re-drives a single queue item by id.
// POST /admin/queue/items/:id/process
func (h *AdminHandler) ReprocessQueueItem(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "id must be a UUID")
		return
	}

	submitted, err := h.formService.Process(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"submitted": submitted})
}

// PurgeQueue removes terminal queue items older than the retention window.
// DELETE /admin/queue
func (h *AdminHandler) PurgeQueue(c *gin.Context) {
	retention := defaultPurgeRetention
	if days := queryInt(c, "older_than_days", 0); days > 0 {
		retention = time.Duration(days) * 24 * time.Hour
	}

	removed, err := h.formService.Purge(c.Request.Context(), retention)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.logger.Info("queue purged",
		zap.Int64("removed", removed),
		zap.Duration("retention", retention),
		zap.String("operator", getOperator(c)),
	)
	h.Success(c, gin.H{"removed": removed})
}

// PurgeSyncRecords trims the sync audit trail.
// DELETE /admin/sync/records
func (h *AdminHandler) PurgeSyncRecords(c *gin.Context) {
	retention := defaultPurgeRetention
	if days := queryInt(c, "older_than_days", 0); days > 0 {
		retention = time.Duration(days) * 24 * time.Hour
	}

	removed, err := h.records.PurgeOlderThan(c.Request.Context(), time.Now().Add(-retention))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"removed": removed})
}

// RegisterWebhooks (re)binds the CRM event subscriptions to this host.
// POST /admin/webhooks/register
func (h *AdminHandler) RegisterWebhooks(c *gin.Context) {
	if err := h.client.RegisterWebhooks(c.Request.Context(), h.callbackURL); err != nil {
		h.HandleError(c, err)
		return
	}
	h.logger.Info("crm webhooks registered", zap.String("callback_base", h.callbackURL))
	h.Success(c, gin.H{"registered": true, "callback_base": h.callbackURL})
}

// DisconnectCRM discards the stored OAuth credentials. The integration
// stays down until an operator repeats the authorization flow.
// DELETE /admin/oauth/tokens
func (h *AdminHandler) DisconnectCRM(c *gin.Context) {
	if err := h.client.Disconnect(c.Request.Context()); err != nil {
		h.HandleError(c, err)
		return
	}
	h.logger.Warn("crm integration disconnected", zap.String("operator", getOperator(c)))
	h.Success(c, gin.H{"authorized": false})
}

// UnregisterWebhooks removes the CRM event subscriptions for this host.
// DELETE /admin/webhooks
func (h *AdminHandler) UnregisterWebhooks(c *gin.Context) {
	if err := h.client.UnregisterWebhooks(c.Request.Context(), h.callbackURL); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"registered": false})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

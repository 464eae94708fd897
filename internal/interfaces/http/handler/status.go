package handler

import (
	"runtime"
	"time"

	formsapp "github.com/crmsync/backend/internal/application/forms"
	syncapp "github.com/crmsync/backend/internal/application/sync"
	"github.com/crmsync/backend/internal/domain/queue"
	"github.com/crmsync/backend/internal/domain/sync"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SyncFlags mirrors the sync feature toggles for the status endpoint
type SyncFlags struct {
	OrderSync    bool `json:"order_sync"`
	CustomerSync bool `json:"customer_sync"`
	FormCapture  bool `json:"form_capture"`
}

// StatusHandler reports sync health for dashboards and probes
type StatusHandler struct {
	BaseHandler
	syncService *syncapp.SyncService
	formService *formsapp.FormService
	authorized  func() bool
	flags       SyncFlags
	startTime   time.Time
	logger      *zap.Logger
}

// NewStatusHandler creates a new StatusHandler. authorized is polled on
// every request so the answer tracks token state without a restart.
func NewStatusHandler(syncService *syncapp.SyncService, formService *formsapp.FormService, authorized func() bool, flags SyncFlags, logger *zap.Logger) *StatusHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusHandler{
		syncService: syncService,
		formService: formService,
		authorized:  authorized,
		flags:       flags,
		startTime:   time.Now(),
		logger:      logger,
	}
}

// StatusResponse represents the sync status report
type StatusResponse struct {
	Authorized bool            `json:"authorized"`
	Flags      SyncFlags       `json:"flags"`
	Sync       *sync.SyncStats `json:"sync,omitempty"`
	Queue      *queue.Stats    `json:"queue,omitempty"`
	GoVersion  string          `json:"go_version"`
	Uptime     string          `json:"uptime"`
}

// GetStatus returns authorization state, feature flags and counters.
// GET /status
func (h *StatusHandler) GetStatus(c *gin.Context) {
	resp := StatusResponse{
		Authorized: h.authorized(),
		Flags:      h.flags,
		GoVersion:  runtime.Version(),
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
	}

	if stats, err := h.syncService.Stats(c.Request.Context()); err != nil {
		h.logger.Warn("sync stats unavailable", zap.Error(err))
	} else {
		resp.Sync = stats
	}
	if stats, err := h.formService.Stats(c.Request.Context()); err != nil {
		h.logger.Warn("queue stats unavailable", zap.Error(err))
	} else {
		resp.Queue = stats
	}

	h.Success(c, resp)
}

package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/crmsync/backend/internal/infrastructure/auth"
	"github.com/crmsync/backend/internal/interfaces/http/handler"
	"github.com/crmsync/backend/internal/interfaces/http/middleware"
)

// Handlers bundles the handlers the route table needs.
type Handlers struct {
	Webhook *handler.WebhookHandler
	Form    *handler.FormHandler
	Status  *handler.StatusHandler
	System  *handler.SystemHandler
	OAuth   *handler.OAuthHandler
	Admin   *handler.AdminHandler
}

// RouteConfig tunes per-group middleware.
type RouteConfig struct {
	// JWTService guards the admin group. Required.
	JWTService *auth.JWTService
	// WebhookRateLimit caps webhook deliveries per client IP. The CRM
	// bursts after bulk edits, so this should stay well above the sync
	// frequency ceilings.
	WebhookRateLimit       int
	WebhookRateLimitWindow time.Duration
}

// BuildRoutes assembles the API route table.
func BuildRoutes(h Handlers, cfg RouteConfig) []RouteRegistrar {
	webhooks := NewDomainGroup("webhooks", "/webhook")
	if cfg.WebhookRateLimit > 0 {
		window := cfg.WebhookRateLimitWindow
		if window <= 0 {
			window = time.Minute
		}
		limiter := middleware.NewRateLimiter(cfg.WebhookRateLimit, window)
		webhooks.Use(middleware.RateLimit(limiter))
	}
	webhooks.POST("/deal", h.Webhook.HandleDealWebhook)
	webhooks.POST("/contact", h.Webhook.HandleContactWebhook)

	forms := NewDomainGroup("forms", "/form")
	forms.POST("", h.Form.SubmitForm)

	status := NewDomainGroup("status", "/status")
	status.GET("", h.Status.GetStatus)

	system := NewDomainGroup("system", "/system")
	system.GET("/info", h.System.GetSystemInfo)
	system.GET("/ping", h.System.Ping)

	oauth := NewDomainGroup("oauth", "/oauth")
	oauth.GET("/authorize", h.OAuth.Authorize)
	oauth.GET("/callback", h.OAuth.Callback)

	admin := NewDomainGroup("admin", "/admin")
	admin.Use(middleware.JWTAuthMiddleware(cfg.JWTService))
	admin.GET("/sync/records", h.Admin.ListSyncRecords)
	admin.DELETE("/sync/records", h.Admin.PurgeSyncRecords)
	admin.POST("/sync/orders", h.Admin.PushOrder)
	admin.POST("/sync/deals/reapply", h.Admin.ReapplyDeal)
	admin.GET("/queue", h.Admin.ListQueueItems)
	admin.POST("/queue/process", h.Admin.ProcessQueue)
	admin.POST("/queue/items/:id/process", h.Admin.ReprocessQueueItem)
	admin.DELETE("/queue", h.Admin.PurgeQueue)
	admin.POST("/webhooks/register", h.Admin.RegisterWebhooks)
	admin.DELETE("/webhooks", h.Admin.UnregisterWebhooks)
	admin.DELETE("/oauth/tokens", h.Admin.DisconnectCRM)

	return []RouteRegistrar{webhooks, forms, status, system, oauth, admin}
}

// SetupEngine builds a gin engine with the standard middleware chain
// and the full route table mounted under /api/v1.
func SetupEngine(h Handlers, cfg RouteConfig, global ...gin.HandlerFunc) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(global...)

	r := NewRouter(engine)
	for _, registrar := range BuildRoutes(h, cfg) {
		r.Register(registrar)
	}
	r.Setup()

	return engine
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	formsapp "github.com/crmsync/backend/internal/application/forms"
	syncapp "github.com/crmsync/backend/internal/application/sync"
	webhookapp "github.com/crmsync/backend/internal/application/webhooks"
	"github.com/crmsync/backend/internal/domain/guard"
	"github.com/crmsync/backend/internal/domain/mapping"
	"github.com/crmsync/backend/internal/infrastructure/auth"
	"github.com/crmsync/backend/internal/infrastructure/cache"
	"github.com/crmsync/backend/internal/infrastructure/config"
	"github.com/crmsync/backend/internal/infrastructure/crm"
	"github.com/crmsync/backend/internal/infrastructure/event"
	"github.com/crmsync/backend/internal/infrastructure/logger"
	"github.com/crmsync/backend/internal/infrastructure/persistence"
	"github.com/crmsync/backend/internal/infrastructure/scheduler"
	"github.com/crmsync/backend/internal/interfaces/http/handler"
	"github.com/crmsync/backend/internal/interfaces/http/middleware"
	"github.com/crmsync/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting CRM Sync Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize database connection
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, log, gormLogLevel)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	customerRepo := persistence.NewGormCustomerRepository(db.DB)
	referenceRepo := persistence.NewGormEntityReferenceRepository(db.DB)
	syncRecordRepo := persistence.NewGormSyncRecordRepository(db.DB)
	queueItemRepo := persistence.NewGormQueueItemRepository(db.DB)
	tokenRepo := persistence.NewGormTokenRepository(db.DB)

	// Guard stores: Redis when reachable, in-memory otherwise
	storeFactory := cache.NewGuardStoreFactory(cfg.Redis, cache.WithFactoryLogger(log))
	lockStore, counterStore, err := storeFactory.CreateStores()
	if err != nil {
		log.Fatal("Failed to create guard stores", zap.Error(err))
	}

	updateGuard := guard.New(lockStore, counterStore,
		guard.WithCeilings(cfg.Sync.MaxSyncsPerMinute, cfg.Sync.MaxSyncsPerHour),
		guard.WithLockTTLs(cfg.Sync.LocalLockTTL, cfg.Sync.RemoteLockTTL),
		guard.WithReleaseDelay(cfg.Sync.LockReleaseDelay),
		guard.WithLogger(log),
	)

	// CRM client with OAuth token persistence
	crmClient, err := crm.NewClient(&crm.Config{
		BaseURL:        cfg.CRM.BaseURL,
		ClientID:       cfg.CRM.ClientID,
		ClientSecret:   cfg.CRM.ClientSecret,
		RedirectURL:    cfg.CRM.RedirectURL,
		TimeoutSeconds: cfg.CRM.TimeoutSeconds,
	}, tokenRepo, crm.WithClientLogger(log))
	if err != nil {
		log.Fatal("Failed to create CRM client", zap.Error(err))
	}

	// Initialize event bus
	eventBus := event.NewInMemoryEventBus(log)

	// Field mapping engine
	mapEngine := mapping.NewEngine(
		mapping.WithPhonePrefix(cfg.Sync.PhonePrefix),
		mapping.WithEventPublisher(eventBus),
		mapping.WithLogger(log),
	)

	// Initialize application services
	syncService := syncapp.NewSyncService(syncapp.SyncServiceConfig{
		References: referenceRepo,
		Records:    syncRecordRepo,
		Orders:     orderRepo,
		Customers:  customerRepo,
		Client:     crmClient,
		Engine:     mapEngine,
		Guard:      updateGuard,
		EventBus:   eventBus,
		Logger:     log,
	})
	formService := formsapp.NewFormService(formsapp.FormServiceConfig{
		Items:    queueItemRepo,
		Refs:     referenceRepo,
		Client:   crmClient,
		Engine:   mapEngine,
		EventBus: eventBus,
		Logger:   log,
	})
	webhookService := webhookapp.NewWebhookService(webhookapp.WebhookServiceConfig{
		Sync:   syncService,
		Secret: cfg.CRM.WebhookSecret,
		Logger: log,
	})

	// Local change events drive the outbound half of the sync
	orderChangedHandler := syncapp.NewOrderChangedHandler(syncService, cfg.Sync.OrderSyncEnabled, log)
	eventBus.Subscribe(orderChangedHandler)
	customerChangedHandler := syncapp.NewCustomerChangedHandler(syncService, cfg.Sync.CustomerSyncEnabled, log)
	eventBus.Subscribe(customerChangedHandler)

	log.Info("Event handlers registered",
		zap.Strings("order_changed_events", orderChangedHandler.EventTypes()),
		zap.Strings("customer_changed_events", customerChangedHandler.EventTypes()),
	)

	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Background worker re-drives queued form submissions
	queueWorker := scheduler.NewQueueWorker(scheduler.QueueWorkerConfig{
		RetryInterval:  cfg.Sync.QueueRetryInterval,
		RetryBatchSize: cfg.Sync.QueueRetryBatch,
	}, formService, log)
	if err := queueWorker.Start(context.Background()); err != nil {
		log.Fatal("Failed to start queue worker", zap.Error(err))
	}
	defer func() {
		if err := queueWorker.Stop(context.Background()); err != nil {
			log.Error("Error stopping queue worker", zap.Error(err))
		}
	}()
	log.Info("Queue retry worker started",
		zap.Duration("interval", cfg.Sync.QueueRetryInterval),
		zap.Int("batch_size", cfg.Sync.QueueRetryBatch),
	)

	// Admin token issuance
	jwtService := auth.NewJWTService(cfg.JWT)

	// Initialize HTTP handlers
	webhookHandler := handler.NewWebhookHandler(webhookService, log)
	formHandler := handler.NewFormHandler(formService, log)
	statusHandler := handler.NewStatusHandler(syncService, formService,
		func() bool { return crmClient.Authorized(context.Background()) },
		handler.SyncFlags{
			OrderSync:    cfg.Sync.OrderSyncEnabled,
			CustomerSync: cfg.Sync.CustomerSyncEnabled,
			FormCapture:  cfg.Sync.FormCaptureEnabled,
		}, log)
	systemHandler := handler.NewSystemHandler()
	oauthHandler := handler.NewOAuthHandler(crmClient, cfg.App.Env == "production", log)
	adminHandler := handler.NewAdminHandler(handler.AdminHandlerConfig{
		SyncService: syncService,
		FormService: formService,
		Records:     syncRecordRepo,
		Items:       queueItemRepo,
		Client:      crmClient,
		CallbackURL: cfg.CRM.CallbackBase,
		Logger:      log,
	})

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. BodyLimit - Limit request body size
	// 7. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Mount the API route table under /api/v1
	r := router.NewRouter(engine)
	for _, registrar := range router.BuildRoutes(router.Handlers{
		Webhook: webhookHandler,
		Form:    formHandler,
		Status:  statusHandler,
		System:  systemHandler,
		OAuth:   oauthHandler,
		Admin:   adminHandler,
	}, router.RouteConfig{
		JWTService:             jwtService,
		WebhookRateLimit:       cfg.HTTP.WebhookRateLimitRequests,
		WebhookRateLimitWindow: cfg.HTTP.WebhookRateLimitWindow,
	}) {
		r.Register(registrar)
	}
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}

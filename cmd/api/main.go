package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/geniibooks/entitlements/internal/application/command"
	"github.com/geniibooks/entitlements/internal/application/middleware"
	"github.com/geniibooks/entitlements/internal/application/query"
	"github.com/geniibooks/entitlements/internal/domain/repository"
	"github.com/geniibooks/entitlements/internal/domain/service"
	"github.com/geniibooks/entitlements/internal/domain/valueobject"
	"github.com/geniibooks/entitlements/internal/infrastructure/billing/revenuecat"
	"github.com/geniibooks/entitlements/internal/infrastructure/cache"
	"github.com/geniibooks/entitlements/internal/infrastructure/catalog"
	"github.com/geniibooks/entitlements/internal/infrastructure/config"
	"github.com/geniibooks/entitlements/internal/infrastructure/logging"
	"github.com/geniibooks/entitlements/internal/infrastructure/persistence/pool"
	pgrepository "github.com/geniibooks/entitlements/internal/infrastructure/persistence/repository"
	app_handler "github.com/geniibooks/entitlements/internal/interfaces/http/handlers"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logging.Init(&cfg.Sentry); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logging.Sync()

	logging.Logger.Info("Starting entitlements API server",
		zap.Int("port", cfg.Server.Port),
		zap.String("environment", cfg.Sentry.Environment),
	)

	ctx := context.Background()

	// Initialize the catalog source
	var catalogRepo repository.CatalogRepository
	if cfg.Catalog.BundlePath != "" {
		bundled, err := catalog.LoadBundled(cfg.Catalog.BundlePath)
		if err != nil {
			logging.Logger.Fatal("Failed to load catalog bundle", zap.Error(err))
		}
		logging.Logger.Info("Catalog bundle loaded", zap.Int("items", bundled.Len()))
		catalogRepo = bundled
	} else {
		dbPool, err := pool.NewPool(ctx, cfg.Database)
		if err != nil {
			logging.Logger.Fatal("Failed to create database pool", zap.Error(err))
		}
		defer pool.Close(dbPool)

		if err := pool.Ping(ctx, dbPool); err != nil {
			logging.Logger.Fatal("Failed to ping database", zap.Error(err))
		}
		catalogRepo = pgrepository.NewCatalogRepository(dbPool)
	}

	// Initialize Redis
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logging.Logger.Fatal("Failed to parse Redis URL", zap.Error(err))
	}
	opts.PoolSize = cfg.Redis.PoolSize
	redisClient := redis.NewClient(opts)
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logging.Logger.Fatal("Failed to ping Redis", zap.Error(err))
	}

	asynqClient := asynq.NewClientFromRedisClient(redisClient)

	// Initialize the billing gateway
	gateway, err := revenuecat.NewClient(cfg.Billing, logging.Logger)
	if err != nil {
		logging.Logger.Fatal("Failed to create billing gateway", zap.Error(err))
	}
	defer gateway.Close()

	// Initialize domain services
	resolver, err := service.NewEntitlementResolver(service.Pricing{
		valueobject.KindPDF:           cfg.Pricing.SinglePDF,
		valueobject.KindVideo:         cfg.Pricing.SingleVideo,
		valueobject.KindCourseLecture: 0,
	})
	if err != nil {
		logging.Logger.Fatal("Failed to create resolver", zap.Error(err))
	}

	entitlementCache := cache.NewEntitlementCache(redisClient, logging.Logger)
	grantSource := cache.NewGrantSource(entitlementCache, gateway, logging.Logger)

	manager := service.NewSubscriptionManager(gateway, logging.Logger)
	binder := service.NewSessionBinder(manager, gateway, logging.Logger)
	binder.Start(ctx)
	defer binder.Stop()

	if err := manager.Initialize(ctx, ""); err != nil {
		// degraded start: the record is empty until a refresh converges
		logging.Logger.Warn("Initial entitlement sync failed", zap.Error(err))
	}

	// Initialize middleware
	jwtMiddleware := middleware.NewJWTMiddleware(
		cfg.JWT.Secret,
		redisClient,
		cfg.JWT.AccessTTL,
		cfg.JWT.Issuer,
	)
	rateLimiter := middleware.NewRateLimiter(redisClient, true) // fail open

	// Initialize commands
	sessionCmd := command.NewSessionCommand(binder)
	purchaseCmd := command.NewPurchaseCommand(manager, gateway)
	restoreCmd := command.NewRestoreCommand(manager)
	refreshCmd := command.NewRefreshCommand(manager)

	// Initialize queries
	checkAccessQuery := query.NewCheckAccessQuery(catalogRepo, manager, grantSource, resolver)
	listCatalogQuery := query.NewListCatalogQuery(catalogRepo)
	statusQuery := query.NewSubscriptionStatusQuery(manager, gateway)

	// Initialize handlers
	sessionHandler := app_handler.NewSessionHandler(sessionCmd, jwtMiddleware)
	accessHandler := app_handler.NewAccessHandler(checkAccessQuery)
	catalogHandler := app_handler.NewCatalogHandler(listCatalogQuery)
	subscriptionHandler := app_handler.NewSubscriptionHandler(statusQuery, purchaseCmd, restoreCmd, refreshCmd)
	webhookHandler := app_handler.NewWebhookHandler(cfg.Billing.WebhookSecret, gateway, asynqClient)

	// Setup Gin router
	if cfg.Sentry.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		logging.RequestMiddleware(logging.Logger),
	)

	// Health check endpoint (no auth required)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Webhook routes (no session auth, verified by shared credentials)
	webhooks := router.Group("/webhooks")
	webhooks.Use(rateLimiter.Middleware(middleware.ByIPAndEndpoint, middleware.WebhookConfig))
	{
		webhooks.POST("/billing", webhookHandler.HandleBillingEvent)
		webhooks.POST("/apple", webhookHandler.HandleAppleNotification)
		webhooks.POST("/google", webhookHandler.HandlePlayNotification)
	}

	// API v1 routes
	v1 := router.Group("/v1")
	{
		// Public catalog listing
		v1.GET("/catalog",
			rateLimiter.Middleware(middleware.ByIP, middleware.DefaultConfig),
			catalogHandler.List,
		)

		// Session routes
		session := v1.Group("/session")
		{
			session.POST("/login",
				rateLimiter.Middleware(middleware.ByIP, middleware.DefaultConfig),
				sessionHandler.Login,
			)
			session.POST("/logout", jwtMiddleware.Authenticate(), sessionHandler.Logout)
		}

		// Protected routes (require JWT)
		protected := v1.Group("")
		protected.Use(jwtMiddleware.Authenticate())
		{
			protected.GET("/content/:id/access",
				rateLimiter.Middleware(middleware.ByIdentity, middleware.DefaultConfig),
				accessHandler.CheckAccess,
			)

			subs := protected.Group("/subscription")
			subs.GET("", subscriptionHandler.GetStatus)
			subs.GET("/packages", subscriptionHandler.ListPackages)
			subs.POST("/purchase",
				rateLimiter.Middleware(middleware.ByIdentity, middleware.PurchaseConfig),
				subscriptionHandler.Purchase,
			)
			subs.POST("/restore",
				rateLimiter.Middleware(middleware.ByIdentity, middleware.PurchaseConfig),
				subscriptionHandler.Restore,
			)
			subs.POST("/refresh", subscriptionHandler.Refresh)
		}
	}

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Graceful shutdown
	go func() {
		logging.Logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logging.Logger.Info("Server exited")
}

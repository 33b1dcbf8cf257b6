package bootstrap

import (
	"context"
	"net/http"

	"github.com/go-authgate/returnguard/internal/config"
	"github.com/go-authgate/returnguard/internal/core"
	"github.com/go-authgate/returnguard/internal/handlers"
	"github.com/go-authgate/returnguard/internal/services"
	"github.com/go-authgate/returnguard/internal/store"

	"github.com/appleboy/graceful"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Application holds all initialized components
type Application struct {
	Config *config.Config

	// Core infrastructure
	DB                   *store.Store
	MetricsRecorder      core.Recorder
	OriginCache          core.Cache[[]string]
	RateLimitRedisClient *redis.Client

	// Services
	AuditService    *services.AuditService
	OriginService   *services.OriginService
	RedirectService *services.RedirectService

	// HTTP
	LoginProvider handlers.LoginProvider
	HandlerSet    handlerSet
	Router        *gin.Engine
	Server        *http.Server
}

// Run initializes and starts the application
func Run(cfg *config.Config) error {
	app := &Application{Config: cfg}
	ctx := context.Background()

	// Phase 1: Validate configuration
	if err := validateAllConfiguration(cfg); err != nil {
		return err
	}

	// Phase 2: Initialize infrastructure
	if err := app.initializeInfrastructure(ctx); err != nil {
		return err
	}

	// Phase 3: Initialize business layer
	app.initializeBusinessLayer()

	// Phase 4: Initialize HTTP layer
	if err := app.initializeHTTPLayer(); err != nil {
		return err
	}

	// Phase 5: Start server with graceful shutdown
	app.startWithGracefulShutdown()

	return nil
}

// initializeInfrastructure sets up database, metrics, cache, and Redis
func (app *Application) initializeInfrastructure(ctx context.Context) error {
	var err error

	// Database
	app.DB, err = initializeDatabase(ctx, app.Config)
	if err != nil {
		return err
	}

	// Metrics
	app.MetricsRecorder = initializeMetrics(app.Config)

	// Origin allowlist cache
	app.OriginCache, err = initializeOriginCache(ctx, app.Config)
	if err != nil {
		_ = app.DB.Close()
		return err
	}

	// Redis (for rate limiting)
	app.RateLimitRedisClient, err = initializeRateLimitRedisClient(ctx, app.Config)
	if err != nil {
		_ = app.OriginCache.Close()
		_ = app.DB.Close()
		return err
	}

	return nil
}

// initializeBusinessLayer sets up services
func (app *Application) initializeBusinessLayer() {
	app.AuditService, app.OriginService, app.RedirectService = initializeServices(
		app.Config,
		app.DB,
		app.OriginCache,
		app.MetricsRecorder,
	)
}

// initializeHTTPLayer sets up handlers, router, and server
func (app *Application) initializeHTTPLayer() error {
	provider, err := initializeLoginProvider(app.Config)
	if err != nil {
		return err
	}
	app.LoginProvider = provider
	logLoginProviderStatus(provider)

	app.HandlerSet = initializeHandlers(
		provider,
		app.AuditService,
		app.OriginService,
		app.RedirectService,
		app.MetricsRecorder,
	)

	app.Router, err = setupRouter(
		app.Config,
		app.DB,
		app.HandlerSet,
		app.MetricsRecorder,
		app.AuditService,
		app.RateLimitRedisClient,
	)
	if err != nil {
		return err
	}

	app.Server = createHTTPServer(app.Config, app.Router)
	return nil
}

// startWithGracefulShutdown starts the server and handles graceful shutdown
func (app *Application) startWithGracefulShutdown() {
	m := graceful.NewManager()

	// Running jobs
	addServerRunningJob(m, app.Server)
	addAuditLogCleanupJob(m, app.Config, app.AuditService)
	addMetricsGaugeUpdateJob(m, app.Config, app.OriginService, app.MetricsRecorder)

	// Shutdown jobs run concurrently
	addServerShutdownJob(m, app.Config, app.Server)
	addAuditServiceShutdownJob(m, app.Config, app.AuditService)
	addCacheCleanupJob(m, app.Config, app.OriginCache)
	addRedisClientShutdownJob(m, app.Config, app.RateLimitRedisClient)
	addDatabaseShutdownJob(m, app.Config, app.DB, app.AuditService)

	<-m.Done()
}

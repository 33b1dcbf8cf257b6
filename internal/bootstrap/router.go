package bootstrap

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-authgate/returnguard/internal/config"
	"github.com/go-authgate/returnguard/internal/core"
	"github.com/go-authgate/returnguard/internal/metrics"
	"github.com/go-authgate/returnguard/internal/middleware"
	"github.com/go-authgate/returnguard/internal/services"
	"github.com/go-authgate/returnguard/internal/store"
	"github.com/go-authgate/returnguard/internal/util"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

const (
	sessionCookieName  = "returnguard_session"
	healthCheckTimeout = 2 * time.Second
)

// setupRouter configures the Gin router with all routes and middleware
func setupRouter(
	cfg *config.Config,
	db *store.Store,
	h handlerSet,
	prometheusMetrics core.Recorder,
	auditService *services.AuditService,
	rateLimitRedisClient *redis.Client,
) (*gin.Engine, error) {
	setupGinMode(cfg)
	r := gin.New()

	r.Use(metrics.HTTPMetricsMiddleware(prometheusMetrics))
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(util.IPMiddleware())

	setupSessionMiddleware(r, cfg)

	r.GET("/health", createHealthCheckHandler(db))

	setupMetricsEndpoint(r, cfg)

	rateLimiters, err := setupRateLimiting(cfg, auditService, rateLimitRedisClient)
	if err != nil {
		return nil, err
	}

	setupAllRoutes(r, cfg, h, rateLimiters)

	logServerStartup(cfg)

	return r, nil
}

// setupSessionMiddleware configures session handling middleware
func setupSessionMiddleware(r *gin.Engine, cfg *config.Config) {
	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.SessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionCookieName, sessionStore))
	r.Use(middleware.SessionIdleTimeout(cfg.SessionIdleTimeout))
	r.Use(middleware.LoadPrincipal())
}

// setupMetricsEndpoint configures the Prometheus metrics endpoint
func setupMetricsEndpoint(r *gin.Engine, cfg *config.Config) {
	switch {
	case !cfg.MetricsEnabled:
		log.Printf("Prometheus metrics disabled")
	case cfg.MetricsToken != "":
		log.Printf("Prometheus metrics enabled at /metrics with Bearer token authentication")
		r.GET(
			"/metrics",
			middleware.MetricsAuthMiddleware(cfg.MetricsToken),
			gin.WrapH(promhttp.Handler()),
		)
	default:
		log.Printf("Prometheus metrics enabled at /metrics (no authentication)")
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
}

// setupAllRoutes configures all application routes
func setupAllRoutes(
	r *gin.Engine,
	cfg *config.Config,
	h handlerSet,
	rateLimiters rateLimitMiddlewares,
) {
	// Browser flow
	r.GET("/login", rateLimiters.login, h.auth.Login)
	r.GET("/auth/callback", rateLimiters.login, h.auth.Callback)
	r.GET("/logout", h.auth.Logout)

	// Public API
	api := r.Group("/api/v1")
	{
		api.GET("/session", h.auth.GetSession)
		api.POST("/redirect/check", rateLimiters.check, h.redirect.CheckRedirect)
		api.GET("/redirect/check", rateLimiters.check, h.redirect.CheckRedirectQuery)
		api.GET("/redirect/policy", h.redirect.GetPolicy)
	}

	// Admin API (Bearer token)
	if cfg.AdminToken == "" {
		log.Println("Admin API disabled (ADMIN_TOKEN not set)")
		return
	}
	admin := r.Group("/admin/api")
	admin.Use(middleware.RequireAdminToken(cfg.AdminToken))
	{
		admin.GET("/origins", h.origin.ListOrigins)
		admin.POST("/origins", h.origin.CreateOrigin)
		admin.DELETE("/origins/:id", h.origin.DeleteOrigin)

		admin.GET("/audit", h.audit.ListAuditLogs)
		admin.GET("/audit/stats", h.audit.GetAuditLogStats)
		admin.GET("/audit/export", h.audit.ExportAuditLogs)
	}
	log.Println("Admin API enabled at /admin/api")
}

// createHealthCheckHandler creates health check endpoint handler
func createHealthCheckHandler(db *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		switch err := db.Health(ctx); err {
		case nil:
			c.JSON(http.StatusOK, gin.H{
				"status":   "healthy",
				"database": "connected",
			})
		default:
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "disconnected",
			})
		}
	}
}

// setupGinMode sets Gin mode based on environment configuration
func setupGinMode(cfg *config.Config) {
	mode := ginModeMap[cfg.IsProduction()]
	gin.SetMode(mode)
	log.Printf("Gin mode: %s", ginModeLogMessage[cfg.IsProduction()])
}

var ginModeMap = map[bool]string{
	true:  gin.ReleaseMode,
	false: gin.DebugMode,
}

var ginModeLogMessage = map[bool]string{
	true:  "Release (production)",
	false: "Debug (development)",
}

// logServerStartup logs server startup information
func logServerStartup(cfg *config.Config) {
	log.Printf("ReturnGuard starting on %s", cfg.ServerAddr)
	log.Printf("Default redirect path: %s", cfg.RedirectDefaultPath)
	log.Printf("Static allowed origins: %d", len(cfg.RedirectAllowedOrigins))
	log.Printf("Redirect check API: %s/api/v1/redirect/check", cfg.BaseURL)
}

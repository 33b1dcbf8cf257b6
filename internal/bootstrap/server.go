package bootstrap

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-authgate/returnguard/internal/config"
	"github.com/go-authgate/returnguard/internal/core"
	"github.com/go-authgate/returnguard/internal/services"
	"github.com/go-authgate/returnguard/internal/store"

	"github.com/appleboy/graceful"
	"github.com/redis/go-redis/v9"
)

// createHTTPServer creates the HTTP server instance
func createHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// addServerRunningJob adds the HTTP server running job
func addServerRunningJob(m *graceful.Manager, srv *http.Server) {
	m.AddRunningJob(func(ctx context.Context) error {
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()
		<-ctx.Done()
		return nil
	})
}

// addServerShutdownJob adds HTTP server shutdown handler
func addServerShutdownJob(m *graceful.Manager, cfg *config.Config, srv *http.Server) {
	m.AddShutdownJob(func() error {
		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
			return err
		}

		log.Println("Server exited")
		return nil
	})
}

// errCloseTimeout is returned when a resource does not close in time.
var errCloseTimeout = errors.New("close timed out")

// closeWithTimeout runs closeFn and gives up waiting after timeout. The
// close call keeps running in the background.
func closeWithTimeout(timeout time.Duration, closeFn func() error) error {
	if timeout <= 0 {
		return closeFn()
	}

	done := make(chan error, 1)
	go func() { done <- closeFn() }()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return errCloseTimeout
	}
}

// addRedisClientShutdownJob adds Redis client shutdown handler
func addRedisClientShutdownJob(
	m *graceful.Manager,
	cfg *config.Config,
	redisClient *redis.Client,
) {
	if redisClient == nil {
		return
	}

	m.AddShutdownJob(func() error {
		log.Println("Closing Redis connection...")
		if err := closeWithTimeout(cfg.RedisCloseTimeout, redisClient.Close); err != nil {
			log.Printf("Error closing Redis client: %v", err)
			return err
		}
		log.Println("Redis connection closed")
		return nil
	})
}

// addAuditServiceShutdownJob flushes buffered audit events
func addAuditServiceShutdownJob(
	m *graceful.Manager,
	cfg *config.Config,
	auditService *services.AuditService,
) {
	m.AddShutdownJob(func() error {
		log.Println("Shutting down audit service...")
		ctx, cancel := context.WithTimeout(context.Background(), cfg.AuditShutdownTimeout)
		defer cancel()

		if err := auditService.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down audit service: %v", err)
			return err
		}
		return nil
	})
}

// addDatabaseShutdownJob closes the database connection pool once the audit
// queue has been written.
func addDatabaseShutdownJob(
	m *graceful.Manager,
	cfg *config.Config,
	db *store.Store,
	auditService *services.AuditService,
) {
	m.AddShutdownJob(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.AuditShutdownTimeout)
		_ = auditService.Shutdown(ctx)
		cancel()

		if err := closeWithTimeout(cfg.DBCloseTimeout, db.Close); err != nil {
			log.Printf("Error closing database: %v", err)
			return err
		}
		log.Println("Database connection closed")
		return nil
	})
}

// addAuditLogCleanupJob adds periodic audit log cleanup job
func addAuditLogCleanupJob(
	m *graceful.Manager,
	cfg *config.Config,
	auditService *services.AuditService,
) {
	if !cfg.EnableAuditLogging || cfg.AuditLogRetention <= 0 {
		return
	}

	m.AddRunningJob(func(ctx context.Context) error {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		// Run cleanup immediately on startup
		cleanupAuditLogs(ctx, auditService, cfg.AuditLogRetention)

		for {
			select {
			case <-ticker.C:
				cleanupAuditLogs(ctx, auditService, cfg.AuditLogRetention)
			case <-ctx.Done():
				return nil
			}
		}
	})
}

func cleanupAuditLogs(
	ctx context.Context,
	auditService *services.AuditService,
	retention time.Duration,
) {
	if deleted, err := auditService.CleanupOldLogs(ctx, retention); err != nil {
		log.Printf("Failed to cleanup old audit logs: %v", err)
	} else if deleted > 0 {
		log.Printf("Cleaned up %d old audit logs", deleted)
	}
}

// addMetricsGaugeUpdateJob adds periodic metrics gauge update job
func addMetricsGaugeUpdateJob(
	m *graceful.Manager,
	cfg *config.Config,
	originService *services.OriginService,
	prometheusMetrics core.Recorder,
) {
	if !cfg.MetricsEnabled || !cfg.MetricsGaugeUpdateEnabled {
		return
	}

	m.AddRunningJob(func(ctx context.Context) error {
		ticker := time.NewTicker(cfg.MetricsGaugeUpdateInterval)
		defer ticker.Stop()

		// Update immediately on startup
		updateGaugeMetrics(ctx, originService, prometheusMetrics)

		for {
			select {
			case <-ticker.C:
				updateGaugeMetrics(ctx, originService, prometheusMetrics)
			case <-ctx.Done():
				return nil
			}
		}
	})
}

// addCacheCleanupJob closes the origin cache on shutdown
func addCacheCleanupJob(
	m *graceful.Manager,
	cfg *config.Config,
	originCache core.Cache[[]string],
) {
	if originCache == nil {
		return
	}

	m.AddShutdownJob(func() error {
		if err := closeWithTimeout(cfg.CacheCloseTimeout, originCache.Close); err != nil {
			log.Printf("Error closing origin cache: %v", err)
		} else {
			log.Println("Origin cache closed")
		}
		return nil
	})
}

// errorLogger handles rate-limited error logging
type errorLogger struct {
	mu              sync.Mutex
	lastErrorTimes  map[string]time.Time
	rateLimitWindow time.Duration
}

// newErrorLogger creates a new error logger with rate limiting
func newErrorLogger() *errorLogger {
	return &errorLogger{
		lastErrorTimes:  make(map[string]time.Time),
		rateLimitWindow: 5 * time.Minute, // Log at most once per 5 minutes per operation
	}
}

// logIfNeeded logs an error only if rate limit allows. Reports whether it logged.
func (e *errorLogger) logIfNeeded(operation string, err error) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	lastTime, exists := e.lastErrorTimes[operation]
	if exists && now.Sub(lastTime) < e.rateLimitWindow {
		return false
	}

	log.Printf("Gauge update failed for %s: %v (further errors will be suppressed for %v)",
		operation, err, e.rateLimitWindow)
	e.lastErrorTimes[operation] = now
	return true
}

var gaugeErrorLogger = newErrorLogger()

// updateGaugeMetrics refreshes the allowlist size gauge. The origin service
// already records the query error and falls back to the static list.
func updateGaugeMetrics(
	ctx context.Context,
	originService *services.OriginService,
	m core.Recorder,
) {
	origins, err := originService.AllowedOrigins(ctx)
	if err != nil {
		gaugeErrorLogger.logIfNeeded("list_origins", err)
	}
	m.SetAllowedOriginsCount(len(origins))
}

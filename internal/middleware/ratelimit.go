package middleware

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-authgate/returnguard/internal/config"
	"github.com/go-authgate/returnguard/internal/models"
	"github.com/go-authgate/returnguard/internal/services"
	"github.com/go-authgate/returnguard/internal/templates"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterRedis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// RateLimitStoreType defines the type of rate limit store
type RateLimitStoreType string

const (
	// RateLimitStoreMemory uses in-memory storage (single instance only)
	RateLimitStoreMemory RateLimitStoreType = config.RateLimitStoreMemory
	// RateLimitStoreRedis uses Redis storage (distributed, multi-pod support)
	RateLimitStoreRedis RateLimitStoreType = config.RateLimitStoreRedis
)

var ErrRedisClientRequired = errors.New("redis store requires a redis client")

// RateLimitConfig holds the configuration for rate limiting with store support
type RateLimitConfig struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration // memory store only

	StoreType RateLimitStoreType

	// RedisClient is shared with other components; the limiter does not close it.
	RedisClient *redis.Client

	// Optional. When set, every rejected request is audited.
	AuditService *services.AuditService
}

// NewRateLimiter creates a per-client-IP limiter backed by the configured store.
func NewRateLimiter(cfg RateLimitConfig) (gin.HandlerFunc, error) {
	if cfg.RequestsPerMinute <= 0 {
		return nil, fmt.Errorf("invalid requests per minute: %d", cfg.RequestsPerMinute)
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = limiter.DefaultCleanUpInterval
	}

	rate := limiter.Rate{
		Period: time.Minute,
		Limit:  int64(cfg.RequestsPerMinute),
	}

	var store limiter.Store
	switch cfg.StoreType {
	case RateLimitStoreRedis:
		if cfg.RedisClient == nil {
			return nil, ErrRedisClientRequired
		}
		var err error
		store, err = limiterRedis.NewStoreWithOptions(cfg.RedisClient, limiter.StoreOptions{
			Prefix:          "ratelimit",
			CleanUpInterval: cfg.CleanupInterval,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis store: %w", err)
		}

	default:
		store = memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          "ratelimit",
			CleanUpInterval: cfg.CleanupInterval,
		})
	}

	instance := limiter.New(store, rate)

	return mgin.NewMiddleware(instance,
		mgin.WithLimitReachedHandler(limitReachedHandler(cfg.AuditService, cfg.RequestsPerMinute)),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			// Store errors let the request through.
			log.Printf("[RateLimit] store error on %s: %v", c.Request.URL.Path, err)
			c.Next()
		}),
	), nil
}

func limitReachedHandler(audit *services.AuditService, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		audit.Log(c, services.AuditLogEntry{
			EventType:    models.EventRateLimitExceeded,
			Severity:     models.SeverityWarning,
			ResourceType: models.ResourceSession,
			ResourceName: c.Request.URL.Path,
			Action:       "Rate limit exceeded",
			Details: models.AuditDetails{
				"limit_per_minute": limit,
			},
			Success: false,
		})

		if strings.Contains(c.GetHeader("Accept"), "text/html") {
			templates.RenderError(c, http.StatusTooManyRequests,
				"Rate Limit Exceeded", "Too many requests. Please try again later.")
		} else {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":             "rate_limit_exceeded",
				"error_description": "Too many requests. Please try again later.",
			})
		}
		c.Abort()
	}
}

// NewMemoryRateLimiter creates an in-memory rate limiter (single instance)
func NewMemoryRateLimiter(requestsPerMinute int) (gin.HandlerFunc, error) {
	return NewRateLimiter(RateLimitConfig{
		RequestsPerMinute: requestsPerMinute,
		StoreType:         RateLimitStoreMemory,
		CleanupInterval:   5 * time.Minute,
	})
}

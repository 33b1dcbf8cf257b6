package bootstrap

import (
	"fmt"
	"log"

	"github.com/go-authgate/returnguard/internal/config"
	"github.com/go-authgate/returnguard/internal/middleware"
	"github.com/go-authgate/returnguard/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// rateLimitMiddlewares holds rate limiting middlewares for different endpoints
type rateLimitMiddlewares struct {
	login gin.HandlerFunc
	check gin.HandlerFunc
}

// setupRateLimiting configures rate limiting middlewares based on configuration
func setupRateLimiting(
	cfg *config.Config,
	auditService *services.AuditService,
	redisClient *redis.Client,
) (rateLimitMiddlewares, error) {
	if !cfg.EnableRateLimit {
		noOpMiddleware := func(c *gin.Context) { c.Next() }
		log.Println("Rate limiting disabled")
		return rateLimitMiddlewares{login: noOpMiddleware, check: noOpMiddleware}, nil
	}
	return createRateLimiters(cfg, auditService, redisClient)
}

// createRateLimiters creates rate limiting middlewares for all endpoints
func createRateLimiters(
	cfg *config.Config,
	auditService *services.AuditService,
	redisClient *redis.Client,
) (rateLimitMiddlewares, error) {
	storeType := middleware.RateLimitStoreType(cfg.RateLimitStore)

	if storeType == middleware.RateLimitStoreRedis {
		log.Printf("Rate limiting enabled (store: redis, shared across instances)")
	} else {
		log.Printf("Rate limiting enabled (store: memory, single instance only)")
	}

	createLimiter := func(requestsPerMinute int, endpoint string) (gin.HandlerFunc, error) {
		limiter, err := middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerMinute: requestsPerMinute,
			StoreType:         storeType,
			RedisClient:       redisClient,
			CleanupInterval:   cfg.RateLimitCleanupInterval,
			AuditService:      auditService,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limiter for %s: %w", endpoint, err)
		}
		return limiter, nil
	}

	login, err := createLimiter(cfg.LoginRateLimit, "/login")
	if err != nil {
		return rateLimitMiddlewares{}, err
	}
	check, err := createLimiter(cfg.CheckRateLimit, "/api/v1/redirect/check")
	if err != nil {
		return rateLimitMiddlewares{}, err
	}

	return rateLimitMiddlewares{login: login, check: check}, nil
}

package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/go-authgate/returnguard/internal/cache"
	"github.com/go-authgate/returnguard/internal/config"
	"github.com/go-authgate/returnguard/internal/core"
	"github.com/go-authgate/returnguard/internal/metrics"
)

const originCacheKeyPrefix = "returnguard:origins:"

// initializeMetrics initializes Prometheus metrics
func initializeMetrics(cfg *config.Config) core.Recorder {
	prometheusMetrics := metrics.Init(cfg.MetricsEnabled)
	if cfg.MetricsEnabled {
		log.Println("Prometheus metrics initialized")
	} else {
		log.Println("Metrics disabled (using noop implementation)")
	}
	return prometheusMetrics
}

// initializeOriginCache initializes the cache in front of the registered
// origins table (always enabled, defaults to memory)
func initializeOriginCache(ctx context.Context, cfg *config.Config) (core.Cache[[]string], error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.CacheInitTimeout)
	defer cancel()

	switch cfg.OriginCacheType {
	case config.OriginCacheTypeRedisAside:
		c, err := cache.NewRueidisAsideCache[[]string](
			cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			originCacheKeyPrefix,
			cfg.OriginCacheClientTTL,
			cfg.OriginCacheSizePerConn,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis-aside origin cache: %w", err)
		}
		if err := c.Health(ctx); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("failed to initialize redis-aside origin cache: %w", err)
		}
		log.Printf(
			"Origin cache: redis-aside (addr=%s, db=%d, client_ttl=%s, cache_size_per_conn=%dMB)",
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.OriginCacheClientTTL,
			cfg.OriginCacheSizePerConn,
		)
		return c, nil

	case config.OriginCacheTypeRedis:
		c, err := cache.NewRueidisCache[[]string](
			ctx,
			cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			originCacheKeyPrefix,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis origin cache: %w", err)
		}
		log.Printf("Origin cache: redis (addr=%s, db=%d)", cfg.RedisAddr, cfg.RedisDB)
		return c, nil

	default: // memory
		log.Println("Origin cache: memory (single instance only)")
		return cache.NewMemoryCache[[]string](), nil
	}
}

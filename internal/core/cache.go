package core

import (
	"context"
	"time"
)

// Cache[T] is the key-value cache used for read-mostly data such as the
// effective redirect allowlist. Values are stored per key with a TTL.
type Cache[T any] interface {
	// Get returns cache.ErrCacheMiss if the key does not exist or has expired.
	Get(ctx context.Context, key string) (T, error)

	Set(ctx context.Context, key string, value T, ttl time.Duration) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	Close() error

	Health(ctx context.Context) error

	// GetWithFetch retrieves a value using the cache-aside pattern.
	// On cache miss, fetchFunc is called and the result is stored in cache.
	// Implementations may provide stampede protection (e.g. RueidisAsideCache).
	GetWithFetch(
		ctx context.Context,
		key string,
		ttl time.Duration,
		fetchFunc func(ctx context.Context, key string) (T, error),
	) (T, error)
}

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/rueidisaside"

	"github.com/go-authgate/returnguard/internal/core"
)

var _ core.Cache[[]string] = (*RueidisAsideCache[[]string])(nil)

// RueidisAsideCache combines Redis with RESP3 client-side caching. Redis
// invalidates the local copy on every replica when a key changes, so an
// allowlist update made through one replica is visible everywhere within
// milliseconds. GetWithFetch is stampede-protected by rueidisaside.
type RueidisAsideCache[T any] struct {
	client    rueidisaside.CacheAsideClient
	keyPrefix string
	clientTTL time.Duration
}

// NewRueidisAsideCache creates the client. cacheSizeMB bounds the local
// cache per connection.
func NewRueidisAsideCache[T any](
	addr, password string,
	db int,
	keyPrefix string,
	clientTTL time.Duration,
	cacheSizeMB int,
) (*RueidisAsideCache[T], error) {
	client, err := rueidisaside.NewClient(rueidisaside.ClientOption{
		ClientOption: rueidis.ClientOption{
			InitAddress:       []string{addr},
			Password:          password,
			SelectDB:          db,
			CacheSizeEachConn: cacheSizeMB * 1024 * 1024,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create rueidisaside client: %w", err)
	}

	return &RueidisAsideCache[T]{
		client:    client,
		keyPrefix: keyPrefix,
		clientTTL: clientTTL,
	}, nil
}

// Get reads through the client-side cache. A missing key is reported as
// ErrCacheMiss without populating anything.
func (r *RueidisAsideCache[T]) Get(ctx context.Context, key string) (T, error) {
	var zero T

	val, err := r.client.Get(
		ctx,
		r.clientTTL,
		r.keyPrefix+key,
		func(context.Context, string) (string, error) {
			return "", ErrCacheMiss
		},
	)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return zero, ErrCacheMiss
		}
		return zero, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	if val == "" {
		return zero, ErrCacheMiss
	}

	return decodeValue[T](val)
}

func (r *RueidisAsideCache[T]) GetWithFetch(
	ctx context.Context,
	key string,
	ttl time.Duration,
	fetchFunc func(ctx context.Context, key string) (T, error),
) (T, error) {
	var zero T

	val, err := r.client.Get(
		ctx,
		ttl,
		r.keyPrefix+key,
		func(ctx context.Context, _ string) (string, error) {
			value, err := fetchFunc(ctx, key)
			if err != nil {
				return "", err
			}
			return encodeValue(value)
		},
	)
	if err != nil {
		return zero, fmt.Errorf("failed to get with fetch: %w", err)
	}

	return decodeValue[T](val)
}

func (r *RueidisAsideCache[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	encoded, err := encodeValue(value)
	if err != nil {
		return err
	}

	c := r.client.Client()
	cmd := c.B().Set().Key(r.keyPrefix + key).Value(encoded).Ex(ttl).Build()
	if err := c.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

// Delete removes the key in Redis; tracking invalidates client-side copies.
func (r *RueidisAsideCache[T]) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.keyPrefix+key); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

func (r *RueidisAsideCache[T]) Close() error {
	r.client.Close()
	return nil
}

func (r *RueidisAsideCache[T]) Health(ctx context.Context) error {
	c := r.client.Client()
	if err := c.Do(ctx, c.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

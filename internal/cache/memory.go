package cache

import (
	"context"
	"sync"
	"time"

	"github.com/go-authgate/returnguard/internal/core"
)

type cacheItem[T any] struct {
	value     T
	expiresAt time.Time
}

var _ core.Cache[[]string] = (*MemoryCache[[]string])(nil)

// MemoryCache keeps values in process memory with lazy expiration.
// Suitable for single-instance deployments; each replica has its own copy.
type MemoryCache[T any] struct {
	mu    sync.RWMutex
	items map[string]cacheItem[T]

	// fetchMu serializes GetWithFetch misses per cache so a burst of requests
	// after an invalidation triggers a single fetch.
	fetchMu sync.Mutex
}

// NewMemoryCache creates a new memory cache instance.
func NewMemoryCache[T any]() *MemoryCache[T] {
	return &MemoryCache[T]{
		items: make(map[string]cacheItem[T]),
	}
}

func (m *MemoryCache[T]) Get(_ context.Context, key string) (T, error) {
	m.mu.RLock()
	item, exists := m.items[key]
	m.mu.RUnlock()

	if !exists || time.Now().After(item.expiresAt) {
		var zero T
		return zero, ErrCacheMiss
	}
	return item.value, nil
}

func (m *MemoryCache[T]) Set(_ context.Context, key string, value T, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = cacheItem[T]{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

func (m *MemoryCache[T]) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, key)
	return nil
}

// Close drops every entry.
func (m *MemoryCache[T]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make(map[string]cacheItem[T])
	return nil
}

// Health always succeeds for the in-process cache.
func (m *MemoryCache[T]) Health(context.Context) error {
	return nil
}

func (m *MemoryCache[T]) GetWithFetch(
	ctx context.Context,
	key string,
	ttl time.Duration,
	fetchFunc func(ctx context.Context, key string) (T, error),
) (T, error) {
	if value, err := m.Get(ctx, key); err == nil {
		return value, nil
	}

	m.fetchMu.Lock()
	defer m.fetchMu.Unlock()

	// Another caller may have filled the entry while we waited.
	if value, err := m.Get(ctx, key); err == nil {
		return value, nil
	}

	value, err := fetchFunc(ctx, key)
	if err != nil {
		var zero T
		return zero, err
	}
	_ = m.Set(ctx, key, value, ttl)
	return value, nil
}

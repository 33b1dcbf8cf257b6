package services

import (
	"context"
	"testing"
	"time"

	"github.com/go-authgate/returnguard/internal/cache"
	"github.com/go-authgate/returnguard/internal/metrics"
	"github.com/go-authgate/returnguard/internal/store"

	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// newAuditService starts an enabled audit service that is shut down when the
// test ends.
func newAuditService(t *testing.T, s *store.Store) *AuditService {
	t.Helper()
	svc := NewAuditService(s, true, 100)
	t.Cleanup(func() { _ = svc.Shutdown(context.Background()) })
	return svc
}

func newOriginService(t *testing.T, s *store.Store, static ...string) *OriginService {
	t.Helper()
	return NewOriginService(
		s,
		cache.NewMemoryCache[[]string](),
		time.Minute,
		static,
		nil,
		metrics.NewNoopMetrics(),
	)
}

// callFetchFn is a DoAndReturn helper that invokes the cache fetch function,
// simulating a cache miss where the real DB fetch is executed.
func callFetchFn[T any](
	ctx context.Context,
	key string,
	_ time.Duration,
	fn func(context.Context, string) (T, error),
) (T, error) {
	return fn(ctx, key)
}

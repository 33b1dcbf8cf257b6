package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-authgate/returnguard/internal/models"
	"github.com/go-authgate/returnguard/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskSensitiveDetails(t *testing.T) {
	tests := []struct {
		name     string
		details  models.AuditDetails
		expected models.AuditDetails
	}{
		{
			name:     "nil details",
			details:  nil,
			expected: nil,
		},
		{
			name: "sensitive keys are redacted",
			details: models.AuditDetails{
				"access_token":  "abc",
				"client_secret": "shh",
				"code_verifier": "verifier",
				"Password":      "hunter2",
				"reason":        "dangerous_scheme",
			},
			expected: models.AuditDetails{
				"access_token":  redactedValue,
				"client_secret": redactedValue,
				"code_verifier": redactedValue,
				"Password":      redactedValue,
				"reason":        "dangerous_scheme",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, maskSensitiveDetails(tt.details))
		})
	}
}

func TestAuditService_LogSync(t *testing.T) {
	ctx := context.Background()
	db := setupTestStore(t)
	svc := newAuditService(t, db)

	err := svc.LogSync(ctx, AuditLogEntry{
		EventType:    models.EventAuthenticationFailure,
		ActorIP:      "198.51.100.1",
		ResourceType: models.ResourceSession,
		Action:       "OAuth callback failed",
		Details:      models.AuditDetails{"token": "raw-token"},
	})
	require.NoError(t, err)

	logs, _, err := db.GetAuditLogsPaginated(
		ctx, store.NewPaginationParams(1, 10, ""), store.AuditLogFilters{},
	)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.SeverityInfo, logs[0].Severity, "severity defaults to INFO")
	assert.Equal(t, redactedValue, logs[0].Details["token"])
	assert.NotEmpty(t, logs[0].ID)
}

func TestAuditService_BatchesAndFlushesOnShutdown(t *testing.T) {
	ctx := context.Background()
	db := setupTestStore(t)
	svc := NewAuditService(db, true, 500)

	var wg sync.WaitGroup
	for i := range 250 {
		wg.Go(func() {
			svc.Log(ctx, AuditLogEntry{
				EventType:    models.EventRedirectRejected,
				ResourceType: models.ResourceRedirectTarget,
				ResourceName: fmt.Sprintf("//evil-%d.com", i),
			})
		})
	}
	wg.Wait()

	require.NoError(t, svc.Shutdown(ctx))
	// A second shutdown is harmless.
	require.NoError(t, svc.Shutdown(ctx))

	_, page, err := db.GetAuditLogsPaginated(
		ctx, store.NewPaginationParams(1, 10, ""), store.AuditLogFilters{},
	)
	require.NoError(t, err)
	assert.Equal(t, int64(250), page.Total)

	// Logging after shutdown drops the event instead of blocking.
	svc.Log(ctx, AuditLogEntry{EventType: models.EventLogout})
}

func TestAuditService_Disabled(t *testing.T) {
	ctx := context.Background()
	db := setupTestStore(t)
	svc := NewAuditService(db, false, 0)

	assert.False(t, svc.Enabled())
	svc.Log(ctx, AuditLogEntry{EventType: models.EventLogout})
	require.NoError(t, svc.LogSync(ctx, AuditLogEntry{EventType: models.EventLogout}))
	require.NoError(t, svc.Shutdown(ctx))

	_, page, err := db.GetAuditLogsPaginated(
		ctx, store.NewPaginationParams(1, 10, ""), store.AuditLogFilters{},
	)
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestAuditService_NilIsDisabled(t *testing.T) {
	var svc *AuditService
	assert.False(t, svc.Enabled())
	svc.Log(context.Background(), AuditLogEntry{EventType: models.EventLogout})
	assert.NoError(t, svc.LogSync(context.Background(), AuditLogEntry{}))
	assert.NoError(t, svc.Shutdown(context.Background()))
}

func TestAuditService_StatsAndCleanup(t *testing.T) {
	ctx := context.Background()
	db := setupTestStore(t)
	svc := newAuditService(t, db)

	for _, e := range []AuditLogEntry{
		{EventType: models.EventAuthenticationSuccess, Success: true},
		{EventType: models.EventAuthenticationFailure, Severity: models.SeverityWarning},
		{EventType: models.EventAuthenticationSuccess, Success: true},
	} {
		require.NoError(t, svc.LogSync(ctx, e))
	}

	stats, err := svc.GetAuditLogStats(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalEvents)
	assert.Equal(t, int64(2), stats.EventsByType[models.EventAuthenticationSuccess])
	assert.Equal(t, int64(1), stats.EventsBySeverity[models.SeverityWarning])
	assert.Equal(t, int64(2), stats.SuccessCount)
	assert.Equal(t, int64(1), stats.FailureCount)

	deleted, err := svc.CleanupOldLogs(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	deleted, err = svc.CleanupOldLogs(ctx, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
}

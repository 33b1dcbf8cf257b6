package bootstrap

import (
	"github.com/go-authgate/returnguard/internal/config"
	"github.com/go-authgate/returnguard/internal/core"
	"github.com/go-authgate/returnguard/internal/services"
	"github.com/go-authgate/returnguard/internal/store"
)

// initializeServices creates all business services
func initializeServices(
	cfg *config.Config,
	db *store.Store,
	originCache core.Cache[[]string],
	prometheusMetrics core.Recorder,
) (*services.AuditService, *services.OriginService, *services.RedirectService) {
	auditService := services.NewAuditService(
		db,
		cfg.EnableAuditLogging,
		cfg.AuditLogBufferSize,
	)

	originService := services.NewOriginService(
		db,
		originCache,
		cfg.OriginCacheTTL,
		cfg.RedirectAllowedOrigins,
		auditService,
		prometheusMetrics,
	)

	redirectService := services.NewRedirectService(
		originService,
		cfg.RedirectDefaultPath,
		cfg.RedirectExtraDeniedSchemes,
		auditService,
		prometheusMetrics,
	)

	return auditService, originService, redirectService
}

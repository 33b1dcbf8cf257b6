package bootstrap

import (
	"github.com/go-authgate/returnguard/internal/core"
	"github.com/go-authgate/returnguard/internal/handlers"
	"github.com/go-authgate/returnguard/internal/services"
)

// handlerSet holds all HTTP handlers
type handlerSet struct {
	auth     *handlers.AuthHandler
	redirect *handlers.RedirectHandler
	origin   *handlers.OriginHandler
	audit    *handlers.AuditHandler
}

// initializeHandlers creates all HTTP handlers
func initializeHandlers(
	provider handlers.LoginProvider,
	auditService *services.AuditService,
	originService *services.OriginService,
	redirectService *services.RedirectService,
	prometheusMetrics core.Recorder,
) handlerSet {
	return handlerSet{
		auth:     handlers.NewAuthHandler(provider, redirectService, auditService, prometheusMetrics),
		redirect: handlers.NewRedirectHandler(redirectService),
		origin:   handlers.NewOriginHandler(originService),
		audit:    handlers.NewAuditHandler(auditService),
	}
}

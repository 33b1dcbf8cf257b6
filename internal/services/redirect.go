package services

import (
	"context"
	"log"
	"strings"

	"github.com/go-authgate/returnguard/internal/core"
	"github.com/go-authgate/returnguard/internal/models"
	"github.com/go-authgate/returnguard/internal/redirect"
)

// Sources label where a redirect target came from.
const (
	SourceLogin     = "login"
	SourceCallback  = "callback"
	SourceLogout    = "logout"
	SourceAPI       = "api"
	SourceWeb       = "web"
	SourceDesktop   = "desktop"
	SourceExtension = "extension"
)

var knownSources = map[string]struct{}{
	SourceLogin:     {},
	SourceCallback:  {},
	SourceLogout:    {},
	SourceAPI:       {},
	SourceWeb:       {},
	SourceDesktop:   {},
	SourceExtension: {},
}

// NormalizeSource maps caller-supplied labels onto the known set so metric
// cardinality stays bounded. Unknown or empty labels become SourceAPI.
func NormalizeSource(source string) string {
	source = strings.ToLower(strings.TrimSpace(source))
	if _, ok := knownSources[source]; ok {
		return source
	}
	return SourceAPI
}

// RedirectPolicy is the policy clients can mirror locally.
type RedirectPolicy struct {
	DefaultPath    string   `json:"default_path"`
	DeniedSchemes  []string `json:"denied_schemes"`
	AllowedOrigins []string `json:"allowed_origins"`
}

// RedirectService applies the redirect policy with the live allowlist.
type RedirectService struct {
	origins            *OriginService
	defaultPath        string
	extraDeniedSchemes []string
	auditService       *AuditService
	metrics            core.Recorder
}

func NewRedirectService(
	origins *OriginService,
	defaultPath string,
	extraDeniedSchemes []string,
	auditService *AuditService,
	m core.Recorder,
) *RedirectService {
	return &RedirectService{
		origins:            origins,
		defaultPath:        defaultPath,
		extraDeniedSchemes: extraDeniedSchemes,
		auditService:       auditService,
		metrics:            m,
	}
}

// Sanitize returns a safe redirect target for raw. If the allowlist cannot be
// loaded, only the static origins are accepted.
func (s *RedirectService) Sanitize(ctx context.Context, raw, source string) redirect.Result {
	// The error is already logged and counted; the static list is still usable.
	allowed, _ := s.origins.AllowedOrigins(ctx)

	result := redirect.Sanitize(raw, redirect.Options{
		DefaultPath:        s.defaultPath,
		AllowedOrigins:     allowed,
		ExtraDeniedSchemes: s.extraDeniedSchemes,
		OnRejected: func(reason redirect.RejectionReason, truncated string) {
			log.Printf("[Redirect] rejected source=%s reason=%s value=%q", source, reason, truncated)
			s.auditService.Log(ctx, AuditLogEntry{
				EventType:    models.EventRedirectRejected,
				Severity:     models.SeverityWarning,
				ResourceType: models.ResourceRedirectTarget,
				ResourceName: truncated,
				Action:       "Redirect target rejected",
				Details: models.AuditDetails{
					"source": source,
					"reason": reason.String(),
					"value":  truncated,
				},
				Success: false,
			})
		},
	})

	s.metrics.RecordRedirectDecision(source, !result.WasRejected, result.RejectionReason.String())
	return result
}

// Policy returns the effective policy.
func (s *RedirectService) Policy(ctx context.Context) RedirectPolicy {
	allowed, _ := s.origins.AllowedOrigins(ctx)

	denied := redirect.DeniedSchemes()
	for _, scheme := range s.extraDeniedSchemes {
		if normalized := redirect.NormalizeScheme(scheme); normalized != "" {
			denied = append(denied, normalized)
		}
	}

	// An empty target always resolves to the effective default path.
	defaultPath := redirect.SanitizeSimple("", redirect.Options{
		DefaultPath:        s.defaultPath,
		AllowedOrigins:     allowed,
		ExtraDeniedSchemes: s.extraDeniedSchemes,
	})

	return RedirectPolicy{
		DefaultPath:    defaultPath,
		DeniedSchemes:  denied,
		AllowedOrigins: allowed,
	}
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-authgate/returnguard/internal/core"
	"github.com/go-authgate/returnguard/internal/models"
	"github.com/go-authgate/returnguard/internal/redirect"
	"github.com/go-authgate/returnguard/internal/store"

	"github.com/google/uuid"
)

// OriginsCacheKey is the cache entry holding the registered origins.
const OriginsCacheKey = "origins:all"

var (
	ErrOriginExists   = errors.New("origin already allowlisted")
	ErrOriginNotFound = errors.New("origin not found")
	ErrInvalidOrigin  = errors.New("invalid origin")
)

// OriginService owns the effective redirect allowlist: static entries from
// configuration followed by origins registered at runtime.
type OriginService struct {
	store        *store.Store
	cache        core.Cache[[]string]
	cacheTTL     time.Duration
	static       []string
	auditService *AuditService
	metrics      core.Recorder
}

// NewOriginService normalizes staticOrigins. Entries that do not normalize are
// skipped with a log line; config validation rejects them earlier.
func NewOriginService(
	s *store.Store,
	c core.Cache[[]string],
	cacheTTL time.Duration,
	staticOrigins []string,
	auditService *AuditService,
	m core.Recorder,
) *OriginService {
	static := make([]string, 0, len(staticOrigins))
	seen := make(map[string]struct{}, len(staticOrigins))
	for _, raw := range staticOrigins {
		origin, err := redirect.NormalizeOrigin(raw)
		if err != nil {
			log.Printf("[Origins] Skipping static origin %q: %v", raw, err)
			continue
		}
		if _, dup := seen[origin]; dup {
			continue
		}
		seen[origin] = struct{}{}
		static = append(static, origin)
	}

	return &OriginService{
		store:        s,
		cache:        c,
		cacheTTL:     cacheTTL,
		static:       static,
		auditService: auditService,
		metrics:      m,
	}
}

// StaticOrigins returns a copy of the configured origins.
func (s *OriginService) StaticOrigins() []string {
	out := make([]string, len(s.static))
	copy(out, s.static)
	return out
}

// AllowedOrigins returns the effective allowlist. When the registered origins
// cannot be loaded, the static list is returned together with the error.
func (s *OriginService) AllowedOrigins(ctx context.Context) ([]string, error) {
	registered, err := s.cache.GetWithFetch(
		ctx,
		OriginsCacheKey,
		s.cacheTTL,
		func(ctx context.Context, _ string) ([]string, error) {
			origins, err := s.store.ListAllowedOrigins(ctx)
			if err != nil {
				return nil, err
			}
			out := make([]string, 0, len(origins))
			for _, o := range origins {
				out = append(out, o.Origin)
			}
			return out, nil
		},
	)
	if err != nil {
		s.metrics.RecordDatabaseQueryError("list_origins")
		log.Printf("[Origins] Failed to load registered origins, using static list: %v", err)
		return s.StaticOrigins(), err
	}

	return mergeOrigins(s.static, registered), nil
}

// mergeOrigins appends registered entries not already in static.
func mergeOrigins(static, registered []string) []string {
	out := make([]string, 0, len(static)+len(registered))
	seen := make(map[string]struct{}, len(static)+len(registered))
	for _, list := range [][]string{static, registered} {
		for _, origin := range list {
			if _, dup := seen[origin]; dup {
				continue
			}
			seen[origin] = struct{}{}
			out = append(out, origin)
		}
	}
	return out
}

// ListRegistered returns the origins added through the admin API.
func (s *OriginService) ListRegistered(ctx context.Context) ([]models.AllowedOrigin, error) {
	origins, err := s.store.ListAllowedOrigins(ctx)
	if err != nil {
		s.metrics.RecordDatabaseQueryError("list_origins")
		return nil, err
	}
	return origins, nil
}

// AddOrigin normalizes raw and registers it. Origins already present in the
// static list or the database return ErrOriginExists.
func (s *OriginService) AddOrigin(
	ctx context.Context,
	raw, description string,
	actor *models.Principal,
) (*models.AllowedOrigin, error) {
	origin, err := redirect.NormalizeOrigin(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrigin, err)
	}

	for _, existing := range s.static {
		if existing == origin {
			return nil, ErrOriginExists
		}
	}

	entry := &models.AllowedOrigin{
		ID:          uuid.New().String(),
		Origin:      origin,
		Description: description,
		CreatedBy:   actor.DisplayName(),
	}
	if err := s.store.CreateAllowedOrigin(ctx, entry); err != nil {
		if errors.Is(err, store.ErrOriginExists) {
			return nil, ErrOriginExists
		}
		s.metrics.RecordDatabaseQueryError("create_origin")
		return nil, err
	}

	s.invalidateCache(ctx)
	s.metrics.RecordOriginChange("added")

	s.auditService.Log(ctx, AuditLogEntry{
		EventType:    models.EventOriginAdded,
		Severity:     models.SeverityWarning,
		ActorSubject: actorSubject(actor),
		ActorName:    actor.DisplayName(),
		ResourceType: models.ResourceOrigin,
		ResourceID:   entry.ID,
		ResourceName: entry.Origin,
		Action:       "Redirect origin added to allowlist",
		Details: models.AuditDetails{
			"origin":      entry.Origin,
			"description": description,
		},
		Success: true,
	})

	return entry, nil
}

// RemoveOrigin deletes a registered origin. Static origins have no ID and
// cannot be removed at runtime.
func (s *OriginService) RemoveOrigin(
	ctx context.Context,
	id string,
	actor *models.Principal,
) (*models.AllowedOrigin, error) {
	removed, err := s.store.DeleteAllowedOrigin(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrOriginNotFound
		}
		s.metrics.RecordDatabaseQueryError("delete_origin")
		return nil, err
	}

	s.invalidateCache(ctx)
	s.metrics.RecordOriginChange("removed")

	s.auditService.Log(ctx, AuditLogEntry{
		EventType:    models.EventOriginRemoved,
		Severity:     models.SeverityWarning,
		ActorSubject: actorSubject(actor),
		ActorName:    actor.DisplayName(),
		ResourceType: models.ResourceOrigin,
		ResourceID:   removed.ID,
		ResourceName: removed.Origin,
		Action:       "Redirect origin removed from allowlist",
		Details:      models.AuditDetails{"origin": removed.Origin},
		Success:      true,
	})

	return removed, nil
}

func (s *OriginService) invalidateCache(ctx context.Context) {
	if err := s.cache.Delete(ctx, OriginsCacheKey); err != nil {
		log.Printf("[Origins] Failed to invalidate cache: %v", err)
	}
}

func actorSubject(p *models.Principal) string {
	if p == nil {
		return ""
	}
	return p.Subject
}

package models

import (
	"context"

	"github.com/gin-gonic/gin"
)

// PrincipalContextKey is the gin key under which the session middleware
// stores the signed-in Principal.
const PrincipalContextKey = "principal"

type principalKey struct{}

// Principal is the signed-in user as reported by the identity provider.
type Principal struct {
	Subject string `json:"sub"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
}

// DisplayName returns the most human-readable identifier available.
func (p *Principal) DisplayName() string {
	switch {
	case p == nil:
		return ""
	case p.Name != "":
		return p.Name
	case p.Email != "":
		return p.Email
	}
	return p.Subject
}

// SetPrincipalContext returns a copy of ctx carrying p. A nil principal
// leaves ctx unchanged.
func SetPrincipalContext(ctx context.Context, p *Principal) context.Context {
	if p == nil {
		return ctx
	}
	return context.WithValue(ctx, principalKey{}, p)
}

// GetPrincipalFromContext checks the gin context first, then values set by
// SetPrincipalContext. Returns nil for anonymous requests.
func GetPrincipalFromContext(ctx context.Context) *Principal {
	if ginCtx, ok := ctx.(*gin.Context); ok {
		if v, exists := ginCtx.Get(PrincipalContextKey); exists {
			if p, ok := v.(*Principal); ok {
				return p
			}
		}
		if ginCtx.Request != nil {
			ctx = ginCtx.Request.Context()
		}
	}
	if p, ok := ctx.Value(principalKey{}).(*Principal); ok {
		return p
	}
	return nil
}

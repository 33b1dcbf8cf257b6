package middleware

import (
	"net/http"
	"strings"

	"github.com/go-authgate/returnguard/internal/models"
	"github.com/go-authgate/returnguard/internal/util"

	"github.com/gin-gonic/gin"
)

// AdminSubject identifies the static admin token in audit records.
const AdminSubject = "admin-token"

func abortUnauthorized(c *gin.Context, realm, description string) {
	c.Header("WWW-Authenticate", `Bearer realm="`+realm+`"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":             "unauthorized",
		"error_description": description,
	})
}

// bearerToken returns the credentials of an "Authorization: Bearer" header.
func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}

// verifyBearer aborts the request and returns false unless it carries token.
// An empty token rejects everything.
func verifyBearer(c *gin.Context, token, realm string) bool {
	provided, ok := bearerToken(c)
	if !ok {
		abortUnauthorized(c, realm, "Bearer token required")
		return false
	}
	if token == "" || !util.SecureCompare(provided, token) {
		abortUnauthorized(c, realm, "Invalid token")
		return false
	}
	return true
}

// RequireBearerToken rejects requests whose bearer token does not equal token.
func RequireBearerToken(token, realm string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if verifyBearer(c, token, realm) {
			c.Next()
		}
	}
}

// RequireAdminToken guards the admin API. Authenticated requests act as the
// signed-in user when there is one, otherwise as AdminSubject.
func RequireAdminToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !verifyBearer(c, token, "Admin") {
			return
		}
		if models.GetPrincipalFromContext(c) == nil {
			c.Set(models.PrincipalContextKey, &models.Principal{
				Subject: AdminSubject,
				Name:    "Admin API",
			})
		}
		c.Next()
	}
}

// MetricsAuthMiddleware protects the metrics endpoint with a Bearer token.
// When no token is configured the endpoint is open.
func MetricsAuthMiddleware(token string) gin.HandlerFunc {
	if token == "" {
		return func(c *gin.Context) { c.Next() }
	}
	return RequireBearerToken(token, "Metrics")
}

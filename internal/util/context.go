package util

import (
	"context"

	"github.com/gin-gonic/gin"
)

type contextKey string

const requestInfoKey contextKey = "request_info"

// RequestInfo is the request metadata attached to audit events.
type RequestInfo struct {
	IP        string
	UserAgent string
	Path      string
	Method    string
}

// IPMiddleware extracts client IP and stores it in the context
func IPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Gin's ClientIP() handles X-Forwarded-For and other headers
		c.Set("client_ip", c.ClientIP())
		c.Next()
	}
}

// SetRequestInfo returns a copy of ctx carrying info. Used outside of gin
// handlers (jobs, tests).
func SetRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey, info)
}

// SetIPContext stores only the client IP. An empty ip leaves ctx unchanged.
func SetIPContext(ctx context.Context, ip string) context.Context {
	if ip == "" {
		return ctx
	}
	info := GetRequestInfo(ctx)
	info.IP = ip
	return SetRequestInfo(ctx, info)
}

// GetRequestInfo reads request metadata from a gin context or from a value
// stored by SetRequestInfo.
func GetRequestInfo(ctx context.Context) RequestInfo {
	if ginCtx, ok := ctx.(*gin.Context); ok && ginCtx.Request != nil {
		return RequestInfo{
			IP:        ginCtx.ClientIP(),
			UserAgent: ginCtx.Request.UserAgent(),
			Path:      ginCtx.Request.URL.Path,
			Method:    ginCtx.Request.Method,
		}
	}
	if info, ok := ctx.Value(requestInfoKey).(RequestInfo); ok {
		return info
	}
	return RequestInfo{}
}

// GetIPFromContext extracts the client IP address from the context
func GetIPFromContext(ctx context.Context) string {
	return GetRequestInfo(ctx).IP
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-authgate/returnguard/internal/auth"
	"github.com/go-authgate/returnguard/internal/cache"
	"github.com/go-authgate/returnguard/internal/metrics"
	"github.com/go-authgate/returnguard/internal/middleware"
	"github.com/go-authgate/returnguard/internal/services"
	"github.com/go-authgate/returnguard/internal/store"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const testAdminToken = "admin-secret"

// fakeProvider stands in for the identity provider.
type fakeProvider struct {
	info        *auth.UserInfo
	exchangeErr error
	userInfoErr error

	gotCode     string
	gotVerifier string
}

func (f *fakeProvider) Name() string { return "fake-idp" }

func (f *fakeProvider) GetAuthURL(state, verifier string) string {
	q := url.Values{
		"state":          {state},
		"code_challenge": {oauth2.S256ChallengeFromVerifier(verifier)},
	}
	return "https://idp.example.com/authorize?" + q.Encode()
}

func (f *fakeProvider) ExchangeCode(_ context.Context, code, verifier string) (*oauth2.Token, error) {
	f.gotCode, f.gotVerifier = code, verifier
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return &oauth2.Token{AccessToken: "access"}, nil
}

func (f *fakeProvider) GetUserInfo(context.Context, *oauth2.Token) (*auth.UserInfo, error) {
	if f.userInfoErr != nil {
		return nil, f.userInfoErr
	}
	return f.info, nil
}

var errFakeIdP = errors.New("idp unavailable")

type testEnv struct {
	router   *gin.Engine
	store    *store.Store
	audit    *services.AuditService
	origins  *services.OriginService
	provider *fakeProvider
}

// newTestEnv wires the real services against an in-memory database. A nil
// provider disables login.
func newTestEnv(t *testing.T, provider *fakeProvider) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := store.New(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	m := metrics.NewNoopMetrics()
	audit := services.NewAuditService(db, true, 100)
	t.Cleanup(func() { _ = audit.Shutdown(context.Background()) })

	origins := services.NewOriginService(
		db, cache.NewMemoryCache[[]string](), time.Minute,
		[]string{"https://wrdesk.com"}, audit, m,
	)
	redirects := services.NewRedirectService(origins, "/home", nil, audit, m)

	var lp LoginProvider
	if provider != nil {
		lp = provider
	}
	authHandler := NewAuthHandler(lp, redirects, audit, m)
	redirectHandler := NewRedirectHandler(redirects)
	originHandler := NewOriginHandler(origins)
	auditHandler := NewAuditHandler(audit)

	r := gin.New()
	r.Use(sessions.Sessions("test_session", cookie.NewStore([]byte("test-secret"))))
	r.Use(middleware.LoadPrincipal())

	r.GET("/login", authHandler.Login)
	r.GET("/auth/callback", authHandler.Callback)
	r.GET("/logout", authHandler.Logout)
	r.GET("/api/v1/session", authHandler.GetSession)

	r.POST("/api/v1/redirect/check", redirectHandler.CheckRedirect)
	r.GET("/api/v1/redirect/check", redirectHandler.CheckRedirectQuery)
	r.GET("/api/v1/redirect/policy", redirectHandler.GetPolicy)

	admin := r.Group("/admin/api", middleware.RequireAdminToken(testAdminToken))
	admin.GET("/origins", originHandler.ListOrigins)
	admin.POST("/origins", originHandler.CreateOrigin)
	admin.DELETE("/origins/:id", originHandler.DeleteOrigin)
	admin.GET("/audit", auditHandler.ListAuditLogs)
	admin.GET("/audit/stats", auditHandler.GetAuditLogStats)
	admin.GET("/audit/export", auditHandler.ExportAuditLogs)

	// Helper endpoint: exposes session state for assertions.
	r.GET("/test-session", func(c *gin.Context) {
		sess := sessions.Default(c)
		c.JSON(http.StatusOK, gin.H{
			"state":     sess.Get(middleware.SessionOAuthState),
			"verifier":  sess.Get(middleware.SessionOAuthVerifier),
			"return_to": sess.Get(middleware.SessionReturnTo),
			"user_sub":  sess.Get(middleware.SessionUserSub),
		})
	})

	// Helper endpoint: signs the caller in without the provider.
	r.GET("/test-signin", func(c *gin.Context) {
		sess := sessions.Default(c)
		sess.Set(middleware.SessionUserSub, "user-1")
		sess.Set(middleware.SessionUserName, "Ada")
		_ = sess.Save()
		c.Status(http.StatusOK)
	})

	return &testEnv{
		router:   r,
		store:    db,
		audit:    audit,
		origins:  origins,
		provider: provider,
	}
}

type requestOption func(*http.Request)

func withCookies(cookies []*http.Cookie) requestOption {
	return func(r *http.Request) {
		for _, c := range cookies {
			r.AddCookie(c)
		}
	}
}

func withAdminToken() requestOption {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+testAdminToken)
	}
}

func (e *testEnv) do(method, target, body string, opts ...requestOption) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// sessionCookies extracts Set-Cookie headers from a response recorder.
func sessionCookies(w *httptest.ResponseRecorder) []*http.Cookie {
	resp := http.Response{Header: w.Header()}
	return resp.Cookies()
}

func (e *testEnv) readSession(t *testing.T, cookies []*http.Cookie) map[string]any {
	t.Helper()
	w := e.do(http.MethodGet, "/test-session", "", withCookies(cookies))
	require.Equal(t, http.StatusOK, w.Code)

	var data map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &data))
	return data
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var data map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &data), w.Body.String())
	return data
}

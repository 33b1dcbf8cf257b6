package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/go-authgate/returnguard/internal/auth"
	"github.com/go-authgate/returnguard/internal/models"
	"github.com/go-authgate/returnguard/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newSignedInProvider() *fakeProvider {
	return &fakeProvider{
		info: &auth.UserInfo{Subject: "sub-42", Email: "ada@example.com", Name: "Ada"},
	}
}

// startLogin runs /login and returns the session cookies and the state sent
// to the provider.
func startLogin(t *testing.T, env *testEnv, query string) ([]*http.Cookie, string) {
	t.Helper()
	w := env.do(http.MethodGet, "/login"+query, "")
	require.Equal(t, http.StatusTemporaryRedirect, w.Code)

	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	return sessionCookies(w), location.Query().Get("state")
}

func TestLogin_Disabled(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, path := range []string{"/login", "/auth/callback?code=x&state=y"} {
		w := env.do(http.MethodGet, path, "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
		assert.Contains(t, w.Body.String(), "Sign-in Unavailable")
	}
}

func TestLogin_StoresSanitizedTarget(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"relative path", "?returnTo=/projects/7", "/projects/7"},
		{"allowlisted origin", "?returnTo=" + url.QueryEscape("https://wrdesk.com/app"), "https://wrdesk.com/app"},
		{"legacy parameter", "?redirect=/legacy", "/legacy"},
		{"returnTo wins over legacy", "?returnTo=/new&redirect=/old", "/new"},
		{"missing", "", "/home"},
		{"external url", "?returnTo=" + url.QueryEscape("https://attacker.com/phish"), "/home"},
		{"protocol relative", "?returnTo=//evil.com", "/home"},
		{"javascript scheme", "?returnTo=" + url.QueryEscape("javascript:alert(1)"), "/home"},
		{"desktop deep link", "?returnTo=" + url.QueryEscape("wrcode://start"), "/home"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, newSignedInProvider())

			w := env.do(http.MethodGet, "/login"+tt.query, "")
			require.Equal(t, http.StatusTemporaryRedirect, w.Code)

			location := w.Header().Get("Location")
			assert.True(t, strings.HasPrefix(location, "https://idp.example.com/authorize?"), location)

			sess := env.readSession(t, sessionCookies(w))
			assert.Equal(t, tt.want, sess["return_to"])
			assert.NotEmpty(t, sess["state"])
			assert.NotEmpty(t, sess["verifier"])

			u, err := url.Parse(location)
			require.NoError(t, err)
			assert.Equal(t, sess["state"], u.Query().Get("state"))
			assert.Equal(t,
				oauth2.S256ChallengeFromVerifier(sess["verifier"].(string)),
				u.Query().Get("code_challenge"))
		})
	}
}

func TestLogin_AlreadySignedIn(t *testing.T) {
	env := newTestEnv(t, newSignedInProvider())
	signin := env.do(http.MethodGet, "/test-signin", "")

	w := env.do(http.MethodGet, "/login?returnTo="+url.QueryEscape("https://wrdesk.com/app"), "",
		withCookies(sessionCookies(signin)))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://wrdesk.com/app", w.Header().Get("Location"))

	w = env.do(http.MethodGet, "/login?returnTo=//evil.com", "",
		withCookies(sessionCookies(signin)))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/home", w.Header().Get("Location"))
}

func TestCallback_Success(t *testing.T) {
	env := newTestEnv(t, newSignedInProvider())
	cookies, state := startLogin(t, env, "?returnTo=/projects/7")
	sess := env.readSession(t, cookies)

	w := env.do(http.MethodGet, "/auth/callback?code=good&state="+url.QueryEscape(state), "",
		withCookies(cookies))
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/projects/7", w.Header().Get("Location"))

	assert.Equal(t, "good", env.provider.gotCode)
	assert.Equal(t, sess["verifier"], env.provider.gotVerifier)

	after := env.readSession(t, sessionCookies(w))
	assert.Equal(t, "sub-42", after["user_sub"])
	assert.Nil(t, after["state"])
	assert.Nil(t, after["verifier"])
	assert.Nil(t, after["return_to"])

	require.NoError(t, env.audit.Shutdown(context.Background()))
	logs, _, err := env.store.GetAuditLogsPaginated(context.Background(),
		store.NewPaginationParams(1, 10, ""),
		store.AuditLogFilters{EventType: models.EventAuthenticationSuccess},
	)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "sub-42", logs[0].ActorSubject)
	assert.Equal(t, "Ada", logs[0].ActorName)
}

func TestCallback_ResanitizesStoredTarget(t *testing.T) {
	env := newTestEnv(t, newSignedInProvider())
	ctx := context.Background()

	partner, err := env.origins.AddOrigin(ctx, "https://partner.example.com", "", nil)
	require.NoError(t, err)

	cookies, state := startLogin(t, env,
		"?returnTo="+url.QueryEscape("https://partner.example.com/x"))
	assert.Equal(t, "https://partner.example.com/x", env.readSession(t, cookies)["return_to"])

	// The origin is revoked while the user is at the provider.
	_, err = env.origins.RemoveOrigin(ctx, partner.ID, nil)
	require.NoError(t, err)

	w := env.do(http.MethodGet, "/auth/callback?code=good&state="+url.QueryEscape(state), "",
		withCookies(cookies))
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/home", w.Header().Get("Location"))
}

func TestCallback_Failures(t *testing.T) {
	tests := []struct {
		name       string
		provider   func() *fakeProvider
		query      func(state string) string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "provider error",
			provider:   newSignedInProvider,
			query:      func(string) string { return "?error=access_denied&error_description=User+cancelled" },
			wantStatus: http.StatusBadRequest,
			wantBody:   "User cancelled",
		},
		{
			name:       "state mismatch",
			provider:   newSignedInProvider,
			query:      func(string) string { return "?code=good&state=forged" },
			wantStatus: http.StatusBadRequest,
			wantBody:   "expired or was tampered with",
		},
		{
			name:       "missing code",
			provider:   newSignedInProvider,
			query:      func(state string) string { return "?state=" + url.QueryEscape(state) },
			wantStatus: http.StatusBadRequest,
			wantBody:   "authorization code",
		},
		{
			name: "exchange fails",
			provider: func() *fakeProvider {
				p := newSignedInProvider()
				p.exchangeErr = errFakeIdP
				return p
			},
			query:      func(state string) string { return "?code=good&state=" + url.QueryEscape(state) },
			wantStatus: http.StatusBadGateway,
			wantBody:   "Unable to complete sign-in",
		},
		{
			name: "userinfo fails",
			provider: func() *fakeProvider {
				p := newSignedInProvider()
				p.userInfoErr = errFakeIdP
				return p
			},
			query:      func(state string) string { return "?code=good&state=" + url.QueryEscape(state) },
			wantStatus: http.StatusBadGateway,
			wantBody:   "Unable to load your profile",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.provider())
			cookies, state := startLogin(t, env, "?returnTo=/x")

			w := env.do(http.MethodGet, "/auth/callback"+tt.query(state), "", withCookies(cookies))
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)

			sess := env.readSession(t, sessionCookies(w))
			assert.Nil(t, sess["user_sub"])
			assert.Nil(t, sess["state"], "pending state is single use")
			assert.Nil(t, sess["verifier"])
			assert.Nil(t, sess["return_to"], "stored target is dropped with the failed login")

			require.NoError(t, env.audit.Shutdown(context.Background()))
			_, page, err := env.store.GetAuditLogsPaginated(context.Background(),
				store.NewPaginationParams(1, 10, ""),
				store.AuditLogFilters{EventType: models.EventAuthenticationFailure},
			)
			require.NoError(t, err)
			assert.Equal(t, int64(1), page.Total)
		})
	}
}

func TestCallback_WithoutLogin(t *testing.T) {
	env := newTestEnv(t, newSignedInProvider())

	w := env.do(http.MethodGet, "/auth/callback?code=good&state=anything", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, env.provider.gotCode, "no exchange without a pending login")
}

func TestLogout(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"safe target", "?returnTo=/goodbye", "/goodbye"},
		{"allowlisted origin", "?returnTo=" + url.QueryEscape("https://wrdesk.com/"), "https://wrdesk.com/"},
		{"unsafe target", "?returnTo=//evil.com", "/home"},
		{"backslash trick", "?returnTo=" + url.QueryEscape(`/\evil.com`), "/home"},
		{"no target", "", "/home"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, newSignedInProvider())
			signin := env.do(http.MethodGet, "/test-signin", "")

			w := env.do(http.MethodGet, "/logout"+tt.query, "", withCookies(sessionCookies(signin)))
			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, tt.want, w.Header().Get("Location"))

			sess := env.readSession(t, sessionCookies(w))
			assert.Nil(t, sess["user_sub"])
		})
	}
}

func TestGetSession(t *testing.T) {
	env := newTestEnv(t, newSignedInProvider())

	w := env.do(http.MethodGet, "/api/v1/session", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSON(t, w)
	assert.Equal(t, false, body["authenticated"])
	assert.Equal(t, true, body["login_enabled"])
	assert.Equal(t, "fake-idp", body["provider"])
	assert.NotContains(t, body, "user")

	signin := env.do(http.MethodGet, "/test-signin", "")
	w = env.do(http.MethodGet, "/api/v1/session", "", withCookies(sessionCookies(signin)))
	body = decodeJSON(t, w)
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, map[string]any{"sub": "user-1", "name": "Ada"}, body["user"])
}

func TestGetSession_LoginDisabled(t *testing.T) {
	env := newTestEnv(t, nil)

	body := decodeJSON(t, env.do(http.MethodGet, "/api/v1/session", ""))
	assert.Equal(t, false, body["login_enabled"])
	assert.NotContains(t, body, "provider")
}

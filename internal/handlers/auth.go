package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-authgate/returnguard/internal/auth"
	"github.com/go-authgate/returnguard/internal/core"
	"github.com/go-authgate/returnguard/internal/middleware"
	"github.com/go-authgate/returnguard/internal/models"
	"github.com/go-authgate/returnguard/internal/services"
	"github.com/go-authgate/returnguard/internal/templates"
	"github.com/go-authgate/returnguard/internal/util"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

// LoginProvider is the identity provider used by the browser login flow.
// *auth.OIDCProvider implements it.
type LoginProvider interface {
	Name() string
	GetAuthURL(state, verifier string) string
	ExchangeCode(ctx context.Context, code, verifier string) (*oauth2.Token, error)
	GetUserInfo(ctx context.Context, token *oauth2.Token) (*auth.UserInfo, error)
}

// AuthHandler implements /login, /auth/callback, /logout and the session API.
type AuthHandler struct {
	provider        LoginProvider // nil when OIDC is disabled
	redirectService *services.RedirectService
	auditService    *services.AuditService
	metrics         core.Recorder
}

func NewAuthHandler(
	provider LoginProvider,
	rs *services.RedirectService,
	as *services.AuditService,
	m core.Recorder,
) *AuthHandler {
	return &AuthHandler{
		provider:        provider,
		redirectService: rs,
		auditService:    as,
		metrics:         m,
	}
}

// returnToParam reads returnTo, falling back to the legacy redirect parameter.
func returnToParam(c *gin.Context) string {
	if v, ok := c.GetQuery("returnTo"); ok {
		return v
	}
	return c.Query("redirect")
}

func (h *AuthHandler) renderLoginUnavailable(c *gin.Context) {
	templates.RenderError(c, http.StatusServiceUnavailable,
		"Sign-in Unavailable", "Sign-in is not configured on this server.")
}

// Login starts the authorization code flow, or sends an already signed-in
// user straight to the sanitized target.
func (h *AuthHandler) Login(c *gin.Context) {
	if h.provider == nil {
		h.renderLoginUnavailable(c)
		return
	}

	session := sessions.Default(c)
	target := h.redirectService.Sanitize(c, returnToParam(c), services.SourceLogin)

	if middleware.PrincipalFromSession(session) != nil {
		c.Redirect(http.StatusFound, target.Sanitized)
		return
	}

	state, err := util.RandomState()
	if err != nil {
		log.Printf("[OIDC] Failed to generate state: %v", err)
		templates.RenderError(c, http.StatusInternalServerError,
			"Internal Error", "Failed to start sign-in. Please try again.")
		return
	}
	verifier := oauth2.GenerateVerifier()

	session.Set(middleware.SessionOAuthState, state)
	session.Set(middleware.SessionOAuthVerifier, verifier)
	session.Set(middleware.SessionReturnTo, target.Sanitized)
	if err := session.Save(); err != nil {
		log.Printf("[OIDC] Failed to save session: %v", err)
		templates.RenderError(c, http.StatusInternalServerError,
			"Internal Error", "Failed to start sign-in. Please try again.")
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, h.provider.GetAuthURL(state, verifier))
}

// loginFailed records a failed callback and renders the error page.
func (h *AuthHandler) loginFailed(
	c *gin.Context,
	session sessions.Session,
	status int,
	reason, message string,
) {
	session.Delete(middleware.SessionOAuthState)
	session.Delete(middleware.SessionOAuthVerifier)
	session.Delete(middleware.SessionReturnTo)
	if err := session.Save(); err != nil {
		log.Printf("[OIDC] Failed to save session: %v", err)
	}

	h.metrics.RecordOAuthCallback(false)
	h.metrics.RecordLogin(false)

	h.auditService.Log(c, services.AuditLogEntry{
		EventType:    models.EventAuthenticationFailure,
		Severity:     models.SeverityWarning,
		ResourceType: models.ResourceSession,
		Action:       "OIDC login failed",
		Details: models.AuditDetails{
			"provider": h.provider.Name(),
			"reason":   reason,
		},
		Success:      false,
		ErrorMessage: message,
	})

	templates.RenderError(c, status, "Sign-in Failed", message)
}

// Callback completes the authorization code flow.
func (h *AuthHandler) Callback(c *gin.Context) {
	if h.provider == nil {
		h.renderLoginUnavailable(c)
		return
	}

	session := sessions.Default(c)

	if errCode := c.Query("error"); errCode != "" {
		message := c.Query("error_description")
		if message == "" {
			message = "The identity provider returned an error: " + errCode
		}
		log.Printf("[OIDC] Provider returned error=%s", errCode)
		h.loginFailed(c, session, http.StatusBadRequest, errCode, message)
		return
	}

	expectedState, _ := session.Get(middleware.SessionOAuthState).(string)
	if expectedState == "" || !util.SecureCompare(c.Query("state"), expectedState) {
		h.loginFailed(c, session, http.StatusBadRequest, "invalid_state",
			"The sign-in request expired or was tampered with. Please try again.")
		return
	}

	code := c.Query("code")
	if code == "" {
		h.loginFailed(c, session, http.StatusBadRequest, "missing_code",
			"The identity provider did not return an authorization code.")
		return
	}

	verifier, _ := session.Get(middleware.SessionOAuthVerifier).(string)
	token, err := h.provider.ExchangeCode(c, code, verifier)
	if err != nil {
		log.Printf("[OIDC] Code exchange failed: %v", err)
		h.loginFailed(c, session, http.StatusBadGateway, "token_exchange",
			"Unable to complete sign-in with the identity provider.")
		return
	}

	info, err := h.provider.GetUserInfo(c, token)
	if err != nil {
		log.Printf("[OIDC] User info request failed: %v", err)
		h.loginFailed(c, session, http.StatusBadGateway, "userinfo",
			"Unable to load your profile from the identity provider.")
		return
	}

	returnTo, _ := session.Get(middleware.SessionReturnTo).(string)

	session.Delete(middleware.SessionOAuthState)
	session.Delete(middleware.SessionOAuthVerifier)
	session.Delete(middleware.SessionReturnTo)
	session.Set(middleware.SessionUserSub, info.Subject)
	session.Set(middleware.SessionUserEmail, info.Email)
	session.Set(middleware.SessionUserName, info.Name)
	session.Set(middleware.SessionLastActivity, time.Now().Unix())
	if err := session.Save(); err != nil {
		log.Printf("[OIDC] Failed to save session: %v", err)
		templates.RenderError(c, http.StatusInternalServerError,
			"Internal Error", "Failed to save session.")
		return
	}

	h.metrics.RecordOAuthCallback(true)
	h.metrics.RecordLogin(true)

	principal := &models.Principal{Subject: info.Subject, Email: info.Email, Name: info.Name}
	c.Set(models.PrincipalContextKey, principal)

	h.auditService.Log(c, services.AuditLogEntry{
		EventType:    models.EventAuthenticationSuccess,
		Severity:     models.SeverityInfo,
		ResourceType: models.ResourceSession,
		Action:       "OIDC login succeeded",
		Details:      models.AuditDetails{"provider": h.provider.Name()},
		Success:      true,
	})

	// Re-checked against the current allowlist.
	target := h.redirectService.Sanitize(c, returnTo, services.SourceCallback)

	log.Printf("[OIDC] User authenticated: sub=%s provider=%s", info.Subject, h.provider.Name())
	c.Redirect(http.StatusFound, target.Sanitized)
}

// Logout clears the session and redirects to the sanitized target.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	principal := middleware.PrincipalFromSession(session)

	session.Clear()
	if err := session.Save(); err != nil {
		log.Printf("[Session] Failed to clear session: %v", err)
	}

	if principal != nil {
		h.metrics.RecordLogout()
		h.auditService.Log(c, services.AuditLogEntry{
			EventType:    models.EventLogout,
			Severity:     models.SeverityInfo,
			ActorSubject: principal.Subject,
			ActorName:    principal.DisplayName(),
			ResourceType: models.ResourceSession,
			Action:       "User logged out",
			Success:      true,
		})
	}

	target := h.redirectService.Sanitize(c, returnToParam(c), services.SourceLogout)
	c.Redirect(http.StatusFound, target.Sanitized)
}

type sessionResponse struct {
	Authenticated bool              `json:"authenticated"`
	User          *models.Principal `json:"user,omitempty"`
	LoginEnabled  bool              `json:"login_enabled"`
	Provider      string            `json:"provider,omitempty"`
}

// GetSession describes the current session.
func (h *AuthHandler) GetSession(c *gin.Context) {
	principal := middleware.PrincipalFromSession(sessions.Default(c))

	resp := sessionResponse{
		Authenticated: principal != nil,
		User:          principal,
		LoginEnabled:  h.provider != nil,
	}
	if h.provider != nil {
		resp.Provider = h.provider.Name()
	}

	c.JSON(http.StatusOK, resp)
}

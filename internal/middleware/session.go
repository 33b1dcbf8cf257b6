package middleware

import (
	"log"
	"time"

	"github.com/go-authgate/returnguard/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Session keys shared by the login flow and the middleware below.
const (
	SessionUserSub       = "user_sub"
	SessionUserEmail     = "user_email"
	SessionUserName      = "user_name"
	SessionLastActivity  = "last_activity"
	SessionOAuthState    = "oauth_state"
	SessionOAuthVerifier = "oauth_verifier"
	SessionReturnTo      = "return_to"
)

// LoadPrincipal exposes the signed-in user, if any, under
// models.PrincipalContextKey. It never rejects a request.
func LoadPrincipal() gin.HandlerFunc {
	return func(c *gin.Context) {
		if p := PrincipalFromSession(sessions.Default(c)); p != nil {
			c.Set(models.PrincipalContextKey, p)
		}
		c.Next()
	}
}

// PrincipalFromSession returns nil when the session holds no subject.
func PrincipalFromSession(session sessions.Session) *models.Principal {
	sub, _ := session.Get(SessionUserSub).(string)
	if sub == "" {
		return nil
	}
	email, _ := session.Get(SessionUserEmail).(string)
	name, _ := session.Get(SessionUserName).(string)
	return &models.Principal{Subject: sub, Email: email, Name: name}
}

// ClearUserSession removes the signed-in user and any pending login state.
func ClearUserSession(session sessions.Session) {
	for _, key := range []string{
		SessionUserSub,
		SessionUserEmail,
		SessionUserName,
		SessionLastActivity,
		SessionOAuthState,
		SessionOAuthVerifier,
		SessionReturnTo,
	} {
		session.Delete(key)
	}
}

// SessionIdleTimeout signs the user out after timeoutSeconds without a
// request. 0 disables the check.
func SessionIdleTimeout(timeoutSeconds int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeoutSeconds <= 0 {
			c.Next()
			return
		}

		session := sessions.Default(c)
		if session.Get(SessionUserSub) == nil {
			c.Next()
			return
		}

		now := time.Now().Unix()
		if last, ok := session.Get(SessionLastActivity).(int64); ok &&
			now-last > int64(timeoutSeconds) {
			log.Printf("[Session] Idle timeout for user=%v", session.Get(SessionUserSub))
			ClearUserSession(session)
		} else {
			session.Set(SessionLastActivity, now)
		}

		if err := session.Save(); err != nil {
			log.Printf("[Session] Failed to save session: %v", err)
		}
		c.Next()
	}
}

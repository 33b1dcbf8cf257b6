package bootstrap

import (
	"fmt"
	"log"

	"github.com/go-authgate/returnguard/internal/auth"
	"github.com/go-authgate/returnguard/internal/config"
	"github.com/go-authgate/returnguard/internal/handlers"
)

// initializeLoginProvider builds the OIDC provider. The result is a nil
// interface when login is disabled.
func initializeLoginProvider(cfg *config.Config) (handlers.LoginProvider, error) {
	if !cfg.OIDCEnabled {
		return nil, nil
	}

	provider, err := auth.NewOIDCProvider(auth.OIDCConfig{
		ProviderName:       cfg.OIDCProviderName,
		AuthURL:            cfg.OIDCAuthURL,
		TokenURL:           cfg.OIDCTokenURL,
		UserInfoURL:        cfg.OIDCUserInfoURL,
		ClientID:           cfg.OIDCClientID,
		ClientSecret:       cfg.OIDCClientSecret,
		RedirectURL:        cfg.OIDCRedirectURL,
		Scopes:             cfg.OIDCScopes,
		Timeout:            cfg.OAuthTimeout,
		InsecureSkipVerify: cfg.OAuthInsecureSkipVerify,
		MaxRetries:         cfg.OAuthMaxRetries,
		RetryDelay:         cfg.OAuthRetryDelay,
		MaxRetryDelay:      cfg.OAuthMaxRetryDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OIDC provider: %w", err)
	}
	if cfg.OAuthInsecureSkipVerify {
		log.Println("WARNING: OAuth TLS verification is disabled (OAUTH_INSECURE_SKIP_VERIFY=true)")
	}
	return provider, nil
}

func logLoginProviderStatus(provider handlers.LoginProvider) {
	if provider == nil {
		log.Println("Browser login disabled (OIDC_ENABLED=false)")
		return
	}
	log.Printf("Browser login enabled via %s", provider.Name())
}

package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-authgate/returnguard/internal/client"

	"golang.org/x/oauth2"
)

// maxUserInfoBytes caps how much of a userinfo response is read.
const maxUserInfoBytes = 1 << 20

// OIDCConfig describes an OpenID Connect provider using the authorization
// code flow with PKCE.
type OIDCConfig struct {
	ProviderName string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	Timeout            time.Duration
	InsecureSkipVerify bool
	MaxRetries         int
	RetryDelay         time.Duration
	MaxRetryDelay      time.Duration
}

// UserInfo is the subset of the OIDC userinfo response kept in the session.
type UserInfo struct {
	Subject string
	Email   string
	Name    string
}

type userInfoResponse struct {
	Sub               string `json:"sub"`
	Email             string `json:"email"`
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
}

// OIDCProvider handles the browser login against a single identity provider.
type OIDCProvider struct {
	name        string
	config      *oauth2.Config
	userInfoURL string
	httpClient  *http.Client

	maxRetries    int
	retryDelay    time.Duration
	maxRetryDelay time.Duration
}

// NewOIDCProvider builds a provider from explicit endpoints. No discovery
// document is fetched.
func NewOIDCProvider(cfg OIDCConfig) (*OIDCProvider, error) {
	if cfg.AuthURL == "" || cfg.TokenURL == "" || cfg.UserInfoURL == "" || cfg.ClientID == "" {
		return nil, ErrProviderMisconfig
	}

	httpClient, err := client.NewHTTPClient(cfg.Timeout, cfg.InsecureSkipVerify)
	if err != nil {
		return nil, err
	}

	name := cfg.ProviderName
	if name == "" {
		name = "oidc"
	}

	return &OIDCProvider{
		name: name,
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		userInfoURL:   cfg.UserInfoURL,
		httpClient:    httpClient,
		maxRetries:    cfg.MaxRetries,
		retryDelay:    cfg.RetryDelay,
		maxRetryDelay: cfg.MaxRetryDelay,
	}, nil
}

// Name returns the configured provider name.
func (p *OIDCProvider) Name() string {
	return p.name
}

// GetAuthURL returns the authorization URL carrying state and the S256
// challenge derived from verifier.
func (p *OIDCProvider) GetAuthURL(state, verifier string) string {
	return p.config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

// ExchangeCode exchanges authorization code for access token
func (p *OIDCProvider) ExchangeCode(
	ctx context.Context,
	code, verifier string,
) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	token, err := p.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}
	return token, nil
}

// GetUserInfo calls the userinfo endpoint with the access token, retrying
// transient failures.
func (p *OIDCProvider) GetUserInfo(ctx context.Context, token *oauth2.Token) (*UserInfo, error) {
	authed := p.config.Client(context.WithValue(ctx, oauth2.HTTPClient, p.httpClient), token)
	retryClient, err := client.NewRetryClient(authed, p.maxRetries, p.retryDelay, p.maxRetryDelay)
	if err != nil {
		return nil, err
	}

	resp, err := retryClient.Get(ctx, p.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUserInfoRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUserInfoBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response", ErrUserInfoRequest)
	}

	if resp.StatusCode != http.StatusOK {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		return nil, fmt.Errorf("%w: HTTP %d - %s", ErrUserInfoRequest, resp.StatusCode, preview)
	}

	var info userInfoResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUserInfoInvalid, err)
	}
	if strings.TrimSpace(info.Sub) == "" {
		return nil, fmt.Errorf("%w: missing sub claim", ErrUserInfoInvalid)
	}

	name := info.Name
	if name == "" {
		name = info.PreferredUsername
	}

	return &UserInfo{
		Subject: info.Sub,
		Email:   info.Email,
		Name:    name,
	}, nil
}

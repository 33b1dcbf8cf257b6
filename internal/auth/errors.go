package auth

import "errors"

var (
	ErrTokenExchange     = errors.New("failed to exchange authorization code")
	ErrUserInfoRequest   = errors.New("failed to fetch user info")
	ErrUserInfoInvalid   = errors.New("invalid user info response")
	ErrProviderMisconfig = errors.New("identity provider is not configured")
)

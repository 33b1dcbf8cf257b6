package client

import (
	"fmt"
	"net/http"
	"time"

	httpclient "github.com/appleboy/go-httpclient"
	retry "github.com/appleboy/go-httpretry"
)

// NewHTTPClient creates the base client for calls to the identity provider.
// The provider authenticates requests itself (client secret, bearer token),
// so no shared-secret headers are added.
func NewHTTPClient(timeout time.Duration, insecureSkipVerify bool) (*http.Client, error) {
	client, err := httpclient.NewAuthClient(
		httpclient.AuthModeNone,
		"",
		httpclient.WithTimeout(timeout),
		httpclient.WithInsecureSkipVerify(insecureSkipVerify),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}
	return client, nil
}

// NewRetryClient wraps base with exponential-backoff retries.
func NewRetryClient(
	base *http.Client,
	maxRetries int,
	retryDelay, maxRetryDelay time.Duration,
) (*retry.Client, error) {
	retryClient, err := retry.NewRealtimeClient(
		retry.WithHTTPClient(base),
		retry.WithMaxRetries(maxRetries),
		retry.WithInitialRetryDelay(retryDelay),
		retry.WithMaxRetryDelay(maxRetryDelay),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create retry client: %w", err)
	}
	return retryClient, nil
}

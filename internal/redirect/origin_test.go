package redirect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeOrigin(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "plain", raw: "https://wrdesk.com", want: "https://wrdesk.com"},
		{name: "upper case", raw: "HTTPS://WrDesk.COM", want: "https://wrdesk.com"},
		{name: "trailing slash", raw: "https://wrdesk.com/", want: "https://wrdesk.com"},
		{name: "whitespace", raw: "  https://wrdesk.com  ", want: "https://wrdesk.com"},
		{name: "port kept", raw: "https://app.wrdesk.com:8443", want: "https://app.wrdesk.com:8443"},
		{name: "ipv6", raw: "https://[::1]:8443", want: "https://[::1]:8443"},
		{name: "default port dropped", raw: "https://WrDesk.com:443", want: "https://wrdesk.com"},
		{name: "default port with slash", raw: "https://wrdesk.com:443/", want: "https://wrdesk.com"},
		{name: "ipv6 default port dropped", raw: "https://[::1]:443", want: "https://[::1]"},
		{name: "byte order mark", raw: "\ufeffhttps://wrdesk.com", want: "https://wrdesk.com"},

		{name: "empty", raw: "   ", wantErr: true},
		{name: "http", raw: "http://wrdesk.com", wantErr: true},
		{name: "no scheme", raw: "wrdesk.com", wantErr: true},
		{name: "path", raw: "https://wrdesk.com/app", wantErr: true},
		{name: "query", raw: "https://wrdesk.com?x=1", wantErr: true},
		{name: "empty query", raw: "https://wrdesk.com?", wantErr: true},
		{name: "fragment", raw: "https://wrdesk.com#x", wantErr: true},
		{name: "userinfo", raw: "https://user@wrdesk.com", wantErr: true},
		{name: "wildcard", raw: "https://*.wrdesk.com", wantErr: true},
		{name: "missing host", raw: "https://", wantErr: true},
		{name: "port only", raw: "https://:443", wantErr: true},
		{name: "backslash", raw: `https://wrdesk.com\`, wantErr: true},
		{name: "inner space", raw: "https://wr desk.com", wantErr: true},
		{name: "control character", raw: "https://wrdesk.com\x00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeOrigin(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidOrigin)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeOrigins(t *testing.T) {
	got, err := NormalizeOrigins([]string{
		"https://wrdesk.com",
		"HTTPS://WRDESK.COM/",
		"https://app.wrdesk.com",
		"https://wrdesk.com:443",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://wrdesk.com", "https://app.wrdesk.com"}, got)

	_, err = NormalizeOrigins([]string{"https://wrdesk.com", "http://insecure.example"})
	require.ErrorIs(t, err, ErrInvalidOrigin)

	got, err = NormalizeOrigins(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNormalizedOriginsMatchSanitize(t *testing.T) {
	origins, err := NormalizeOrigins([]string{"HTTPS://WrDesk.com:443/", "https://app.wrdesk.com:8443"})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://wrdesk.com", "https://app.wrdesk.com:8443"}, origins)

	opts := Options{AllowedOrigins: origins}
	assert.True(t, IsSafe("https://wrdesk.com/app", opts))
	assert.True(t, IsSafe("https://wrdesk.com:443/app", opts))
	assert.True(t, IsSafe("https://APP.wrdesk.com:8443/x?y=1", opts))
	assert.False(t, IsSafe("https://app.wrdesk.com/x", opts))
}

func TestOriginAllowedTrimsEntries(t *testing.T) {
	assert.True(t, originAllowed("https://wrdesk.com", []string{" https://wrdesk.com "}))
	assert.False(t, originAllowed("https://wrdesk.com", []string{"https://wrdesk.com/"}))
	assert.False(t, originAllowed("https://wrdesk.com", nil))
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		RedirectDefaultPath:        "/",
		DatabaseDriver:             DatabaseDriverSQLite,
		DatabaseDSN:                ":memory:",
		RateLimitStore:             RateLimitStoreMemory,
		LoginRateLimit:             10,
		CheckRateLimit:             60,
		EnableRateLimit:            true,
		OriginCacheType:            OriginCacheTypeMemory,
		OriginCacheTTL:             5 * time.Minute,
		MetricsGaugeUpdateEnabled:  true,
		MetricsGaugeUpdateInterval: time.Minute,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name: "redis rate limit store",
			mutate: func(c *Config) {
				c.RateLimitStore = RateLimitStoreRedis
				c.RedisAddr = "localhost:6379"
			},
		},
		{
			name:        "invalid rate limit store",
			mutate:      func(c *Config) { c.RateLimitStore = "reddis" },
			expectError: true,
			errorMsg:    `invalid RATE_LIMIT_STORE value: "reddis"`,
		},
		{
			name:        "uppercase cache type",
			mutate:      func(c *Config) { c.OriginCacheType = "MEMORY" },
			expectError: true,
			errorMsg:    `invalid ORIGIN_CACHE_TYPE value: "MEMORY"`,
		},
		{
			name:        "unknown database driver",
			mutate:      func(c *Config) { c.DatabaseDriver = "mysql" },
			expectError: true,
			errorMsg:    `invalid DATABASE_DRIVER value: "mysql"`,
		},
		{
			name: "postgres without dsn",
			mutate: func(c *Config) {
				c.DatabaseDriver = DatabaseDriverPostgres
				c.DatabaseDSN = ""
			},
			expectError: true,
			errorMsg:    "DATABASE_DSN is required",
		},
		{
			name:        "zero origin cache ttl",
			mutate:      func(c *Config) { c.OriginCacheTTL = 0 },
			expectError: true,
			errorMsg:    "ORIGIN_CACHE_TTL must be a positive duration",
		},
		{
			name: "redis-aside needs client ttl",
			mutate: func(c *Config) {
				c.OriginCacheType = OriginCacheTypeRedisAside
				c.RedisAddr = "localhost:6379"
			},
			expectError: true,
			errorMsg:    "ORIGIN_CACHE_CLIENT_TTL must be a positive duration",
		},
		{
			name: "redis backend without address",
			mutate: func(c *Config) {
				c.OriginCacheType = OriginCacheTypeRedis
				c.RedisAddr = ""
			},
			expectError: true,
			errorMsg:    "REDIS_ADDR is required",
		},
		{
			name:        "zero rate limit",
			mutate:      func(c *Config) { c.CheckRateLimit = 0 },
			expectError: true,
			errorMsg:    "must be positive",
		},
		{
			name: "zero rate limit ignored when disabled",
			mutate: func(c *Config) {
				c.EnableRateLimit = false
				c.CheckRateLimit = 0
			},
		},
		{
			name: "normalizable allowlist",
			mutate: func(c *Config) {
				c.RedirectAllowedOrigins = []string{"HTTPS://WrDesk.com/", "https://app.wrdesk.com:8443"}
			},
		},
		{
			name: "http origin in allowlist",
			mutate: func(c *Config) {
				c.RedirectAllowedOrigins = []string{"http://wrdesk.com"}
			},
			expectError: true,
			errorMsg:    "REDIRECT_ALLOWED_ORIGINS",
		},
		{
			name: "origin with path in allowlist",
			mutate: func(c *Config) {
				c.RedirectAllowedOrigins = []string{"https://wrdesk.com/app"}
			},
			expectError: true,
			errorMsg:    "invalid origin",
		},
		{
			name:        "unsafe default path",
			mutate:      func(c *Config) { c.RedirectDefaultPath = "//evil.com" },
			expectError: true,
			errorMsg:    "protocol_relative",
		},
		{
			name:        "relative default path without slash",
			mutate:      func(c *Config) { c.RedirectDefaultPath = "home" },
			expectError: true,
			errorMsg:    "REDIRECT_DEFAULT_PATH",
		},
		{
			name:        "empty denied scheme",
			mutate:      func(c *Config) { c.RedirectExtraDeniedSchemes = []string{"://"} },
			expectError: true,
			errorMsg:    "REDIRECT_EXTRA_DENIED_SCHEMES",
		},
		{
			name: "oidc enabled without endpoints",
			mutate: func(c *Config) {
				c.OIDCEnabled = true
				c.OIDCClientID = "client"
				c.OIDCRedirectURL = "http://localhost:8080/auth/callback"
			},
			expectError: true,
			errorMsg:    "OIDC_ENABLED=true requires OIDC_AUTH_URL, OIDC_TOKEN_URL, OIDC_USERINFO_URL",
		},
		{
			name: "oidc fully configured",
			mutate: func(c *Config) {
				c.OIDCEnabled = true
				c.OIDCAuthURL = "https://idp.example/authorize"
				c.OIDCTokenURL = "https://idp.example/token"
				c.OIDCUserInfoURL = "https://idp.example/userinfo"
				c.OIDCClientID = "client"
				c.OIDCRedirectURL = "http://localhost:8080/auth/callback"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateReportsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimitStore = "memcache"
	cfg.OriginCacheType = "disk"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RATE_LIMIT_STORE")
	assert.Contains(t, err.Error(), "ORIGIN_CACHE_TYPE")
}

func TestConstants(t *testing.T) {
	assert.Equal(t, "memory", RateLimitStoreMemory)
	assert.Equal(t, "redis", RateLimitStoreRedis)
	assert.Equal(t, "memory", OriginCacheTypeMemory)
	assert.Equal(t, "redis", OriginCacheTypeRedis)
	assert.Equal(t, "redis-aside", OriginCacheTypeRedisAside)
}

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "/", cfg.RedirectDefaultPath)
	assert.Equal(t, OriginCacheTypeMemory, cfg.OriginCacheType)
	assert.Equal(t, []string{"openid", "profile", "email"}, cfg.OIDCScopes)
	assert.Equal(t, 30*time.Second, cfg.DBInitTimeout)
	assert.Equal(t, 10*time.Second, cfg.AuditShutdownTimeout)
	assert.Equal(t, 5*time.Second, cfg.ServerShutdownTimeout)
}

func TestLoad_RedirectSettingsFromEnv(t *testing.T) {
	t.Setenv("REDIRECT_DEFAULT_PATH", "/dashboard")
	t.Setenv("REDIRECT_ALLOWED_ORIGINS", " https://wrdesk.com , ,https://app.wrdesk.com")
	t.Setenv("REDIRECT_EXTRA_DENIED_SCHEMES", "wrmobile,intent://")

	cfg := Load()

	assert.Equal(t, "/dashboard", cfg.RedirectDefaultPath)
	assert.Equal(t, []string{"https://wrdesk.com", "https://app.wrdesk.com"}, cfg.RedirectAllowedOrigins)
	assert.Equal(t, []string{"wrmobile", "intent://"}, cfg.RedirectExtraDeniedSchemes)
}

func TestLoad_TimeoutsFromEnv(t *testing.T) {
	tests := []struct {
		envKey   string
		envValue string
		getter   func(*Config) time.Duration
		expected time.Duration
	}{
		{"DB_INIT_TIMEOUT", "60s", func(c *Config) time.Duration { return c.DBInitTimeout }, time.Minute},
		{"REDIS_CONN_TIMEOUT", "10s", func(c *Config) time.Duration { return c.RedisConnTimeout }, 10 * time.Second},
		{"CACHE_CLOSE_TIMEOUT", "2s", func(c *Config) time.Duration { return c.CacheCloseTimeout }, 2 * time.Second},
		{"ORIGIN_CACHE_TTL", "1m", func(c *Config) time.Duration { return c.OriginCacheTTL }, time.Minute},
		// Invalid values fall back to the default.
		{"DB_CLOSE_TIMEOUT", "soon", func(c *Config) time.Duration { return c.DBCloseTimeout }, 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.envKey, func(t *testing.T) {
			t.Setenv(tt.envKey, tt.envValue)
			assert.Equal(t, tt.expected, tt.getter(Load()))
		})
	}
}

func TestConfig_UsesRedis(t *testing.T) {
	cfg := validConfig()
	assert.False(t, cfg.UsesRedis())

	cfg.OriginCacheType = OriginCacheTypeRedisAside
	assert.True(t, cfg.UsesRedis())

	cfg = validConfig()
	cfg.RateLimitStore = RateLimitStoreRedis
	assert.True(t, cfg.UsesRedis())

	cfg.EnableRateLimit = false
	assert.False(t, cfg.UsesRedis())
}

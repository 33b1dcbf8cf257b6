package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/go-authgate/returnguard/internal/redirect"
)

// Rate limit store constants
const (
	RateLimitStoreMemory = "memory"
	RateLimitStoreRedis  = "redis"
)

// Origin cache backend constants
const (
	OriginCacheTypeMemory     = "memory"
	OriginCacheTypeRedis      = "redis"
	OriginCacheTypeRedisAside = "redis-aside"
)

// Database driver constants
const (
	DatabaseDriverSQLite   = "sqlite"
	DatabaseDriverPostgres = "postgres"
)

type Config struct {
	// Server settings
	ServerAddr  string
	BaseURL     string
	Environment string // "production" enables secure cookies

	// Session settings
	SessionSecret      string
	SessionMaxAge      int // seconds
	SessionIdleTimeout int // seconds, 0 disables

	// Redirect policy
	RedirectDefaultPath        string
	RedirectAllowedOrigins     []string // scheme://host[:port], validated by Validate
	RedirectExtraDeniedSchemes []string

	// Database
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string

	// Audit Logging
	EnableAuditLogging bool
	AuditLogBufferSize int
	AuditLogRetention  time.Duration // 0 disables cleanup

	// Rate Limiting
	EnableRateLimit          bool
	RateLimitStore           string // "memory" or "redis"
	RateLimitCleanupInterval time.Duration
	LoginRateLimit           int // requests per minute
	CheckRateLimit           int // requests per minute

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Origin allowlist cache
	OriginCacheType        string        // "memory", "redis" or "redis-aside"
	OriginCacheTTL         time.Duration // server-side TTL
	OriginCacheClientTTL   time.Duration // client-side TTL (redis-aside only)
	OriginCacheSizePerConn int           // client-side cache size in MB (redis-aside only)

	// Metrics
	MetricsEnabled             bool
	MetricsToken               string // optional Bearer token for /metrics
	MetricsGaugeUpdateEnabled  bool
	MetricsGaugeUpdateInterval time.Duration

	// Admin API
	AdminToken string // admin routes are not mounted when empty

	// OIDC login provider
	OIDCEnabled      bool
	OIDCProviderName string
	OIDCAuthURL      string
	OIDCTokenURL     string
	OIDCUserInfoURL  string
	OIDCClientID     string
	OIDCClientSecret string
	OIDCRedirectURL  string
	OIDCScopes       []string

	// Outbound OAuth HTTP client
	OAuthTimeout            time.Duration
	OAuthInsecureSkipVerify bool // dev/testing only
	OAuthMaxRetries         int
	OAuthRetryDelay         time.Duration
	OAuthMaxRetryDelay      time.Duration

	// Timeouts
	DBInitTimeout         time.Duration
	DBCloseTimeout        time.Duration
	RedisConnTimeout      time.Duration
	RedisCloseTimeout     time.Duration
	CacheInitTimeout      time.Duration
	CacheCloseTimeout     time.Duration
	ServerShutdownTimeout time.Duration
	AuditShutdownTimeout  time.Duration
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	driver := getEnv("DATABASE_DRIVER", DatabaseDriverSQLite)
	var dsn string
	if driver == DatabaseDriverSQLite {
		dsn = getEnv("DATABASE_DSN", "returnguard.db")
	} else {
		dsn = getEnv("DATABASE_DSN", "")
	}

	return &Config{
		ServerAddr:         getEnv("SERVER_ADDR", ":8080"),
		BaseURL:            getEnv("BASE_URL", "http://localhost:8080"),
		Environment:        getEnv("ENVIRONMENT", "development"),
		SessionSecret:      getEnv("SESSION_SECRET", "session-secret-change-in-production"),
		SessionMaxAge:      getEnvInt("SESSION_MAX_AGE", 86400),
		SessionIdleTimeout: getEnvInt("SESSION_IDLE_TIMEOUT", 0),

		RedirectDefaultPath:        getEnv("REDIRECT_DEFAULT_PATH", redirect.DefaultPath),
		RedirectAllowedOrigins:     getEnvSlice("REDIRECT_ALLOWED_ORIGINS", nil),
		RedirectExtraDeniedSchemes: getEnvSlice("REDIRECT_EXTRA_DENIED_SCHEMES", nil),

		DatabaseDriver: driver,
		DatabaseDSN:    dsn,

		EnableAuditLogging: getEnvBool("ENABLE_AUDIT_LOGGING", true),
		AuditLogBufferSize: getEnvInt("AUDIT_LOG_BUFFER_SIZE", 1000),
		AuditLogRetention:  getEnvDuration("AUDIT_LOG_RETENTION", 90*24*time.Hour),

		EnableRateLimit:          getEnvBool("ENABLE_RATE_LIMIT", true),
		RateLimitStore:           getEnv("RATE_LIMIT_STORE", RateLimitStoreMemory),
		RateLimitCleanupInterval: getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		LoginRateLimit:           getEnvInt("LOGIN_RATE_LIMIT", 10),
		CheckRateLimit:           getEnvInt("CHECK_RATE_LIMIT", 120),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		OriginCacheType:        getEnv("ORIGIN_CACHE_TYPE", OriginCacheTypeMemory),
		OriginCacheTTL:         getEnvDuration("ORIGIN_CACHE_TTL", 5*time.Minute),
		OriginCacheClientTTL:   getEnvDuration("ORIGIN_CACHE_CLIENT_TTL", 30*time.Second),
		OriginCacheSizePerConn: getEnvInt("ORIGIN_CACHE_SIZE_PER_CONN", 8),

		MetricsEnabled:             getEnvBool("METRICS_ENABLED", false),
		MetricsToken:               getEnv("METRICS_TOKEN", ""),
		MetricsGaugeUpdateEnabled:  getEnvBool("METRICS_GAUGE_UPDATE_ENABLED", true),
		MetricsGaugeUpdateInterval: getEnvDuration("METRICS_GAUGE_UPDATE_INTERVAL", 5*time.Minute),

		AdminToken: getEnv("ADMIN_TOKEN", ""),

		OIDCEnabled:      getEnvBool("OIDC_ENABLED", false),
		OIDCProviderName: getEnv("OIDC_PROVIDER_NAME", "Single Sign-On"),
		OIDCAuthURL:      getEnv("OIDC_AUTH_URL", ""),
		OIDCTokenURL:     getEnv("OIDC_TOKEN_URL", ""),
		OIDCUserInfoURL:  getEnv("OIDC_USERINFO_URL", ""),
		OIDCClientID:     getEnv("OIDC_CLIENT_ID", ""),
		OIDCClientSecret: getEnv("OIDC_CLIENT_SECRET", ""),
		OIDCRedirectURL: getEnv(
			"OIDC_REDIRECT_URL",
			"http://localhost:8080/auth/callback",
		),
		OIDCScopes: getEnvSlice("OIDC_SCOPES", []string{"openid", "profile", "email"}),

		OAuthTimeout:            getEnvDuration("OAUTH_TIMEOUT", 15*time.Second),
		OAuthInsecureSkipVerify: getEnvBool("OAUTH_INSECURE_SKIP_VERIFY", false),
		OAuthMaxRetries:         getEnvInt("OAUTH_MAX_RETRIES", 3),
		OAuthRetryDelay:         getEnvDuration("OAUTH_RETRY_DELAY", time.Second),
		OAuthMaxRetryDelay:      getEnvDuration("OAUTH_MAX_RETRY_DELAY", 10*time.Second),

		DBInitTimeout:         getEnvDuration("DB_INIT_TIMEOUT", 30*time.Second),
		DBCloseTimeout:        getEnvDuration("DB_CLOSE_TIMEOUT", 5*time.Second),
		RedisConnTimeout:      getEnvDuration("REDIS_CONN_TIMEOUT", 5*time.Second),
		RedisCloseTimeout:     getEnvDuration("REDIS_CLOSE_TIMEOUT", 5*time.Second),
		CacheInitTimeout:      getEnvDuration("CACHE_INIT_TIMEOUT", 5*time.Second),
		CacheCloseTimeout:     getEnvDuration("CACHE_CLOSE_TIMEOUT", 5*time.Second),
		ServerShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 5*time.Second),
		AuditShutdownTimeout:  getEnvDuration("AUDIT_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// IsProduction reports whether cookies should be marked Secure.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// UsesRedis reports whether any component needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return (c.EnableRateLimit && c.RateLimitStore == RateLimitStoreRedis) ||
		c.OriginCacheType == OriginCacheTypeRedis ||
		c.OriginCacheType == OriginCacheTypeRedisAside
}

// Validate checks enum values, cross-field dependencies and the static
// redirect allowlist. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	switch c.DatabaseDriver {
	case DatabaseDriverSQLite, DatabaseDriverPostgres:
	default:
		errs = append(errs, fmt.Errorf(
			"invalid DATABASE_DRIVER value: %q (must be %q or %q)",
			c.DatabaseDriver, DatabaseDriverSQLite, DatabaseDriverPostgres,
		))
	}
	if c.DatabaseDriver == DatabaseDriverPostgres && c.DatabaseDSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN is required when DATABASE_DRIVER=postgres"))
	}

	if c.RateLimitStore != RateLimitStoreMemory && c.RateLimitStore != RateLimitStoreRedis {
		errs = append(errs, fmt.Errorf(
			"invalid RATE_LIMIT_STORE value: %q (must be %q or %q)",
			c.RateLimitStore, RateLimitStoreMemory, RateLimitStoreRedis,
		))
	}
	if c.EnableRateLimit && (c.LoginRateLimit <= 0 || c.CheckRateLimit <= 0) {
		errs = append(errs, errors.New("LOGIN_RATE_LIMIT and CHECK_RATE_LIMIT must be positive"))
	}

	switch c.OriginCacheType {
	case OriginCacheTypeMemory, OriginCacheTypeRedis, OriginCacheTypeRedisAside:
	default:
		errs = append(errs, fmt.Errorf(
			"invalid ORIGIN_CACHE_TYPE value: %q (must be %q, %q or %q)",
			c.OriginCacheType,
			OriginCacheTypeMemory, OriginCacheTypeRedis, OriginCacheTypeRedisAside,
		))
	}
	if c.OriginCacheTTL <= 0 {
		errs = append(errs, errors.New("ORIGIN_CACHE_TTL must be a positive duration"))
	}
	if c.OriginCacheType == OriginCacheTypeRedisAside && c.OriginCacheClientTTL <= 0 {
		errs = append(errs, errors.New("ORIGIN_CACHE_CLIENT_TTL must be a positive duration"))
	}
	if c.UsesRedis() && c.RedisAddr == "" {
		errs = append(errs, errors.New("REDIS_ADDR is required when a redis backend is selected"))
	}

	if _, err := redirect.NormalizeOrigins(c.RedirectAllowedOrigins); err != nil {
		errs = append(errs, fmt.Errorf("REDIRECT_ALLOWED_ORIGINS: %w", err))
	}
	if got := redirect.Sanitize(c.RedirectDefaultPath, redirect.Options{}); got.WasRejected {
		errs = append(errs, fmt.Errorf(
			"REDIRECT_DEFAULT_PATH %q is not a safe relative path (%s)",
			c.RedirectDefaultPath, got.RejectionReason,
		))
	}
	for _, scheme := range c.RedirectExtraDeniedSchemes {
		if redirect.NormalizeScheme(scheme) == "" {
			errs = append(errs, fmt.Errorf("REDIRECT_EXTRA_DENIED_SCHEMES: empty entry %q", scheme))
		}
	}

	if c.OIDCEnabled {
		missing := []string{}
		for name, value := range map[string]string{
			"OIDC_AUTH_URL":     c.OIDCAuthURL,
			"OIDC_TOKEN_URL":    c.OIDCTokenURL,
			"OIDC_USERINFO_URL": c.OIDCUserInfoURL,
			"OIDC_CLIENT_ID":    c.OIDCClientID,
			"OIDC_REDIRECT_URL": c.OIDCRedirectURL,
		} {
			if value == "" {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			slices.Sort(missing)
			errs = append(errs, fmt.Errorf(
				"OIDC_ENABLED=true requires %s",
				strings.Join(missing, ", "),
			))
		}
	}

	if c.MetricsGaugeUpdateEnabled && c.MetricsGaugeUpdateInterval <= 0 {
		errs = append(errs, errors.New("METRICS_GAUGE_UPDATE_INTERVAL must be a positive duration"))
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		if parts := splitAndTrim(value, ","); len(parts) > 0 {
			return parts
		}
	}
	return defaultValue
}

func splitAndTrim(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

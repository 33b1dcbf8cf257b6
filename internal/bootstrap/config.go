package bootstrap

import (
	"errors"
	"fmt"
	"log"

	"github.com/go-authgate/returnguard/internal/config"
)

const defaultSessionSecret = "session-secret-change-in-production"

// validateAllConfiguration validates all configuration settings
func validateAllConfiguration(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := validateSessionConfig(cfg); err != nil {
		return fmt.Errorf("invalid session configuration: %w", err)
	}
	if len(cfg.RedirectAllowedOrigins) == 0 {
		log.Println("REDIRECT_ALLOWED_ORIGINS is empty: only relative redirect targets are accepted until origins are registered")
	}
	return nil
}

// validateSessionConfig rejects the placeholder secret in production
func validateSessionConfig(cfg *config.Config) error {
	if len(cfg.SessionSecret) < 16 {
		return errors.New("SESSION_SECRET must be at least 16 characters")
	}
	if cfg.IsProduction() && cfg.SessionSecret == defaultSessionSecret {
		return errors.New("SESSION_SECRET must be changed in production")
	}
	if cfg.SessionMaxAge <= 0 {
		return errors.New("SESSION_MAX_AGE must be positive")
	}
	if cfg.SessionIdleTimeout < 0 {
		return errors.New("SESSION_IDLE_TIMEOUT must not be negative")
	}
	return nil
}

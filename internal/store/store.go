package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-authgate/returnguard/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store persists the runtime origin registry and the audit log.
type Store struct {
	db *gorm.DB
}

// New opens the database, applies migrations and verifies connectivity
// within ctx.
func New(ctx context.Context, driver, dsn string) (*Store, error) {
	dialector, err := GetDialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// Every new connection to an in-memory SQLite database is a new, empty
	// database.
	if driver == "sqlite" && strings.Contains(dsn, ":memory:") {
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(
		&models.AllowedOrigin{},
		&models.AuditLog{},
	); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// Health checks the database connection
func (s *Store) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DB returns the underlying GORM database connection (for transactions)
func (s *Store) DB() *gorm.DB {
	return s.db
}

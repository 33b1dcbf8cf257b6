package store

import (
	"context"
	"errors"

	"github.com/go-authgate/returnguard/internal/models"

	"gorm.io/gorm"
)

// CreateAllowedOrigin inserts o. o.Origin must already be normalized.
func (s *Store) CreateAllowedOrigin(ctx context.Context, o *models.AllowedOrigin) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.AllowedOrigin{}).
			Where("origin = ?", o.Origin).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrOriginExists
		}

		if err := tx.Create(o).Error; err != nil {
			// Lost a race with a concurrent insert.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrOriginExists
			}
			return err
		}
		return nil
	})
}

// ListAllowedOrigins returns every registered origin, oldest first.
func (s *Store) ListAllowedOrigins(ctx context.Context) ([]models.AllowedOrigin, error) {
	var origins []models.AllowedOrigin
	err := s.db.WithContext(ctx).
		Order("created_at ASC, origin ASC").
		Find(&origins).Error
	return origins, err
}

func (s *Store) GetAllowedOrigin(ctx context.Context, id string) (*models.AllowedOrigin, error) {
	var origin models.AllowedOrigin
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&origin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &origin, nil
}

// DeleteAllowedOrigin removes the origin with id and returns the deleted row.
func (s *Store) DeleteAllowedOrigin(ctx context.Context, id string) (*models.AllowedOrigin, error) {
	var deleted *models.AllowedOrigin
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var origin models.AllowedOrigin
		if err := tx.Where("id = ?", id).First(&origin).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRecordNotFound
			}
			return err
		}
		if err := tx.Delete(&origin).Error; err != nil {
			return err
		}
		deleted = &origin
		return nil
	})
	return deleted, err
}

func (s *Store) CountAllowedOrigins(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.AllowedOrigin{}).Count(&count).Error
	return count, err
}

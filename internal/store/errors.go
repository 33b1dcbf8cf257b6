package store

import "errors"

var (
	// ErrRecordNotFound wraps GORM's not found error for consistency
	ErrRecordNotFound = errors.New("record not found")

	// ErrOriginExists is returned when the normalized origin is already
	// registered.
	ErrOriginExists = errors.New("origin already registered")
)

package models

import "time"

// AllowedOrigin is an allowlist entry registered at runtime through the
// admin API. Origin is stored normalized (lowercase https://host[:port]).
type AllowedOrigin struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)"        json:"id"`
	Origin      string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"origin"`
	Description string    `gorm:"type:varchar(500)"                  json:"description,omitempty"`
	CreatedBy   string    `gorm:"type:varchar(255)"                  json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (AllowedOrigin) TableName() string {
	return "allowed_origins"
}

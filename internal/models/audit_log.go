package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents the type of audit event
type EventType string

const (
	// Redirect policy
	EventRedirectRejected EventType = "REDIRECT_REJECTED"

	// Allowlist administration
	EventOriginAdded   EventType = "ORIGIN_ADDED"
	EventOriginRemoved EventType = "ORIGIN_REMOVED"

	// Authentication
	EventAuthenticationSuccess EventType = "AUTHENTICATION_SUCCESS"
	EventAuthenticationFailure EventType = "AUTHENTICATION_FAILURE"
	EventLogout                EventType = "LOGOUT"

	// Security
	EventRateLimitExceeded EventType = "RATE_LIMIT_EXCEEDED"

	// Audit
	EventAuditLogViewed EventType = "AUDIT_LOG_VIEWED"
)

// EventSeverity represents the severity level of an audit event
type EventSeverity string

const (
	SeverityInfo     EventSeverity = "INFO"
	SeverityWarning  EventSeverity = "WARNING"
	SeverityError    EventSeverity = "ERROR"
	SeverityCritical EventSeverity = "CRITICAL"
)

// ResourceType represents the type of resource being operated on
type ResourceType string

const (
	ResourceRedirectTarget ResourceType = "REDIRECT_TARGET"
	ResourceOrigin         ResourceType = "ORIGIN"
	ResourceSession        ResourceType = "SESSION"
	ResourceAuditLog       ResourceType = "AUDIT_LOG"
)

// AuditDetails stores additional event-specific information as JSON
type AuditDetails map[string]any

// Value implements the driver.Valuer interface for database storage
func (a AuditDetails) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil //nolint:nilnil // nil driver.Value is SQL NULL
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface. SQLite returns TEXT columns as
// string, Postgres returns json as []byte.
func (a *AuditDetails) Scan(value any) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*a = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("failed to unmarshal AuditDetails value: %v", value)
	}

	result := make(AuditDetails)
	if err := json.Unmarshal(raw, &result); err != nil {
		return err
	}
	*a = result
	return nil
}

// AuditLog is an immutable audit entry. Rows are written in batches by the
// audit service and removed only by retention cleanup.
type AuditLog struct {
	ID string `gorm:"primaryKey;type:varchar(36)" json:"id"`

	EventType EventType     `gorm:"type:varchar(50);index;not null" json:"event_type"`
	EventTime time.Time     `gorm:"index;not null"                  json:"event_time"`
	Severity  EventSeverity `gorm:"type:varchar(20);not null"       json:"severity"`

	// Actor
	ActorSubject string `gorm:"type:varchar(255);index" json:"actor_subject,omitempty"`
	ActorName    string `gorm:"type:varchar(255)"       json:"actor_name,omitempty"`
	ActorIP      string `gorm:"type:varchar(45);index"  json:"actor_ip"`

	// Resource
	ResourceType ResourceType `gorm:"type:varchar(50);index" json:"resource_type"`
	ResourceID   string       `gorm:"type:varchar(255);index" json:"resource_id,omitempty"`
	ResourceName string       `gorm:"type:varchar(255)"       json:"resource_name,omitempty"`

	Action       string       `gorm:"type:varchar(255);not null" json:"action"`
	Details      AuditDetails `gorm:"type:json"                  json:"details,omitempty"`
	Success      bool         `gorm:"index;not null"             json:"success"`
	ErrorMessage string       `gorm:"type:text"                  json:"error_message,omitempty"`

	UserAgent     string `gorm:"type:varchar(500)" json:"user_agent,omitempty"`
	RequestPath   string `gorm:"type:varchar(500)" json:"request_path,omitempty"`
	RequestMethod string `gorm:"type:varchar(10)"  json:"request_method,omitempty"`

	CreatedAt time.Time `gorm:"index;not null" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

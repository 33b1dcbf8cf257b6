package store

import (
	"context"
	"time"

	"github.com/go-authgate/returnguard/internal/models"

	"gorm.io/gorm"
)

func (s *Store) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

// CreateAuditLogBatch writes entries in a single transaction.
func (s *Store) CreateAuditLogBatch(ctx context.Context, entries []*models.AuditLog) error {
	if len(entries) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(entries, 100).Error
}

// GetAuditLogsPaginated returns the newest matching entries first.
func (s *Store) GetAuditLogsPaginated(
	ctx context.Context,
	params PaginationParams,
	filters AuditLogFilters,
) ([]models.AuditLog, PaginationResult, error) {
	query := applyAuditFilters(s.db.WithContext(ctx).Model(&models.AuditLog{}), filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, PaginationResult{}, err
	}

	var logs []models.AuditLog
	if err := query.
		Order("event_time DESC").
		Offset(params.Offset()).
		Limit(params.PageSize).
		Find(&logs).Error; err != nil {
		return nil, PaginationResult{}, err
	}

	return logs, CalculatePagination(total, params.Page, params.PageSize), nil
}

// DeleteOldAuditLogs removes entries created before cutoff.
func (s *Store) DeleteOldAuditLogs(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.AuditLog{})
	return result.RowsAffected, result.Error
}

// GetAuditLogStats aggregates events with event_time in [start, end]. A zero
// bound is open.
func (s *Store) GetAuditLogStats(ctx context.Context, start, end time.Time) (AuditLogStats, error) {
	stats := AuditLogStats{
		EventsByType:     make(map[models.EventType]int64),
		EventsBySeverity: make(map[models.EventSeverity]int64),
	}

	base := func() *gorm.DB {
		return applyAuditFilters(
			s.db.WithContext(ctx).Model(&models.AuditLog{}),
			AuditLogFilters{StartTime: start, EndTime: end},
		)
	}

	if err := base().Count(&stats.TotalEvents).Error; err != nil {
		return stats, err
	}

	var byType []struct {
		EventType models.EventType
		Count     int64
	}
	if err := base().
		Select("event_type, COUNT(*) AS count").
		Group("event_type").
		Scan(&byType).Error; err != nil {
		return stats, err
	}
	for _, row := range byType {
		stats.EventsByType[row.EventType] = row.Count
	}

	var bySeverity []struct {
		Severity models.EventSeverity
		Count    int64
	}
	if err := base().
		Select("severity, COUNT(*) AS count").
		Group("severity").
		Scan(&bySeverity).Error; err != nil {
		return stats, err
	}
	for _, row := range bySeverity {
		stats.EventsBySeverity[row.Severity] = row.Count
	}

	if err := base().Where("success = ?", true).Count(&stats.SuccessCount).Error; err != nil {
		return stats, err
	}
	stats.FailureCount = stats.TotalEvents - stats.SuccessCount

	return stats, nil
}

func applyAuditFilters(query *gorm.DB, f AuditLogFilters) *gorm.DB {
	if f.EventType != "" {
		query = query.Where("event_type = ?", f.EventType)
	}
	if f.ActorSubject != "" {
		query = query.Where("actor_subject = ?", f.ActorSubject)
	}
	if f.ResourceType != "" {
		query = query.Where("resource_type = ?", f.ResourceType)
	}
	if f.Severity != "" {
		query = query.Where("severity = ?", f.Severity)
	}
	if f.Success != nil {
		query = query.Where("success = ?", *f.Success)
	}
	if !f.StartTime.IsZero() {
		query = query.Where("event_time >= ?", f.StartTime)
	}
	if !f.EndTime.IsZero() {
		query = query.Where("event_time <= ?", f.EndTime)
	}
	if f.ActorIP != "" {
		query = query.Where("actor_ip = ?", f.ActorIP)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		query = query.Where(
			"(action LIKE ? OR resource_name LIKE ? OR actor_name LIKE ?)",
			like, like, like,
		)
	}
	return query
}

package handlers

import (
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-authgate/returnguard/internal/models"
	"github.com/go-authgate/returnguard/internal/services"
	"github.com/go-authgate/returnguard/internal/store"

	"github.com/gin-gonic/gin"
)

const (
	// queryValueTrue represents the string "true" used in query parameters
	queryValueTrue = "true"

	maxExportRows = 10000
)

// AuditHandler serves the admin audit log API
type AuditHandler struct {
	auditService *services.AuditService
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditService *services.AuditService) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
	}
}

// parseAuditFilters reads the filter query parameters shared by list and
// export. Malformed times are ignored.
func parseAuditFilters(c *gin.Context) store.AuditLogFilters {
	filters := store.AuditLogFilters{
		EventType:    models.EventType(c.Query("event_type")),
		ActorSubject: c.Query("actor_subject"),
		ResourceType: models.ResourceType(c.Query("resource_type")),
		Severity:     models.EventSeverity(c.Query("severity")),
		ActorIP:      c.Query("actor_ip"),
		Search:       c.Query("search"),
	}

	if successStr := c.Query("success"); successStr != "" {
		success := successStr == queryValueTrue
		filters.Success = &success
	}

	if t, ok := parseTimeQuery(c, "start_time"); ok {
		filters.StartTime = t
	}
	if t, ok := parseTimeQuery(c, "end_time"); ok {
		filters.EndTime = t
	}

	return filters
}

func parseTimeQuery(c *gin.Context, key string) (time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ListAuditLogs retrieves audit logs with pagination and filtering
func (h *AuditHandler) ListAuditLogs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	params := store.NewPaginationParams(page, pageSize, c.Query("search"))
	filters := parseAuditFilters(c)

	logs, pagination, err := h.auditService.GetAuditLogs(c, params, filters)
	if err != nil {
		log.Printf("[Audit] Failed to list audit logs: %v", err)
		respondError(c, http.StatusInternalServerError,
			"server_error", "Failed to retrieve audit logs")
		return
	}

	h.auditService.Log(c, services.AuditLogEntry{
		EventType:    models.EventAuditLogViewed,
		Severity:     models.SeverityInfo,
		ResourceType: models.ResourceAuditLog,
		Action:       "Viewed audit logs",
		Details: models.AuditDetails{
			"page":       params.Page,
			"event_type": string(filters.EventType),
		},
		Success: true,
	})

	c.JSON(http.StatusOK, gin.H{
		"logs":       logs,
		"pagination": pagination,
	})
}

// GetAuditLogStats returns statistics about audit logs
func (h *AuditHandler) GetAuditLogStats(c *gin.Context) {
	startTime, _ := parseTimeQuery(c, "start_time")
	endTime, _ := parseTimeQuery(c, "end_time")

	// Default to last 30 days if no time range specified
	if startTime.IsZero() && endTime.IsZero() {
		endTime = time.Now()
		startTime = endTime.Add(-30 * 24 * time.Hour)
	}

	stats, err := h.auditService.GetAuditLogStats(c, startTime, endTime)
	if err != nil {
		log.Printf("[Audit] Failed to compute stats: %v", err)
		respondError(c, http.StatusInternalServerError,
			"server_error", "Failed to retrieve audit log statistics")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":      stats,
		"start_time": startTime,
		"end_time":   endTime,
	})
}

// ExportAuditLogs exports matching audit logs as CSV
func (h *AuditHandler) ExportAuditLogs(c *gin.Context) {
	filters := parseAuditFilters(c)

	// Raw params: the export is allowed past the API page size cap.
	params := store.PaginationParams{Page: 1, PageSize: maxExportRows}

	logs, _, err := h.auditService.GetAuditLogs(c, params, filters)
	if err != nil {
		log.Printf("[Audit] Failed to export audit logs: %v", err)
		respondError(c, http.StatusInternalServerError,
			"server_error", "Failed to retrieve audit logs")
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf(
		"attachment; filename=audit_logs_%s.csv",
		time.Now().Format("2006-01-02"),
	))

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	if err := writer.Write([]string{
		"Event Time",
		"Event Type",
		"Severity",
		"Actor",
		"Actor IP",
		"Resource Type",
		"Resource Name",
		"Action",
		"Success",
		"Error Message",
	}); err != nil {
		return
	}

	for _, entry := range logs {
		successStr := "Yes"
		if !entry.Success {
			successStr = "No"
		}

		if err := writer.Write([]string{
			entry.EventTime.Format(time.RFC3339),
			string(entry.EventType),
			string(entry.Severity),
			entry.ActorName,
			entry.ActorIP,
			string(entry.ResourceType),
			entry.ResourceName,
			entry.Action,
			successStr,
			entry.ErrorMessage,
		}); err != nil {
			return
		}
	}

	h.auditService.Log(c, services.AuditLogEntry{
		EventType:    models.EventAuditLogViewed,
		Severity:     models.SeverityInfo,
		ResourceType: models.ResourceAuditLog,
		Action:       "Exported audit logs to CSV",
		Details:      models.AuditDetails{"rows": len(logs)},
		Success:      true,
	})
}

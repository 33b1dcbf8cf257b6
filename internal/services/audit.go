package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/go-authgate/returnguard/internal/models"
	"github.com/go-authgate/returnguard/internal/store"
	"github.com/go-authgate/returnguard/internal/util"

	"github.com/google/uuid"
)

const (
	defaultAuditBufferSize = 1000
	auditBatchSize         = 100
	auditFlushInterval     = time.Second
	redactedValue          = "***REDACTED***"
)

// AuditLogEntry represents the data needed to create an audit log entry.
// Request metadata and the actor are taken from ctx when left empty.
type AuditLogEntry struct {
	EventType     models.EventType
	Severity      models.EventSeverity
	ActorSubject  string
	ActorName     string
	ActorIP       string
	ResourceType  models.ResourceType
	ResourceID    string
	ResourceName  string
	Action        string
	Details       models.AuditDetails
	Success       bool
	ErrorMessage  string
	UserAgent     string
	RequestPath   string
	RequestMethod string
}

// AuditService handles audit logging operations
type AuditService struct {
	store      *store.Store
	enabled    bool
	bufferSize int

	// Async logging channel
	logChan chan *models.AuditLog

	// Batch buffer
	batchBuffer []*models.AuditLog
	batchMutex  sync.Mutex
	batchTicker *time.Ticker

	// Graceful shutdown
	wg           sync.WaitGroup
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

// NewAuditService creates a new audit service
func NewAuditService(s *store.Store, enabled bool, bufferSize int) *AuditService {
	if bufferSize <= 0 {
		bufferSize = defaultAuditBufferSize
	}

	service := &AuditService{
		store:       s,
		enabled:     enabled,
		bufferSize:  bufferSize,
		logChan:     make(chan *models.AuditLog, bufferSize),
		batchBuffer: make([]*models.AuditLog, 0, auditBatchSize),
		shutdownCh:  make(chan struct{}),
	}

	if enabled {
		service.batchTicker = time.NewTicker(auditFlushInterval)
		service.wg.Add(1)
		go service.worker()
		log.Printf("[Audit] Service started with buffer size %d", bufferSize)
	} else {
		log.Println("[Audit] Service is disabled")
	}

	return service
}

// Enabled reports whether events are persisted.
func (s *AuditService) Enabled() bool {
	return s != nil && s.enabled
}

// worker is the background goroutine that processes audit logs
func (s *AuditService) worker() {
	defer s.wg.Done()

	for {
		select {
		case entry := <-s.logChan:
			s.addToBatch(entry)

		case <-s.batchTicker.C:
			s.flushBatch()

		case <-s.shutdownCh:
			// Drain whatever is still queued, then flush once.
			for {
				select {
				case entry := <-s.logChan:
					s.addToBatch(entry)
				default:
					s.flushBatch()
					return
				}
			}
		}
	}
}

func (s *AuditService) addToBatch(entry *models.AuditLog) {
	s.batchMutex.Lock()
	defer s.batchMutex.Unlock()

	s.batchBuffer = append(s.batchBuffer, entry)
	if len(s.batchBuffer) >= auditBatchSize {
		s.flushBatchUnsafe()
	}
}

func (s *AuditService) flushBatch() {
	s.batchMutex.Lock()
	defer s.batchMutex.Unlock()
	s.flushBatchUnsafe()
}

// flushBatchUnsafe flushes the batch buffer without locking (caller must hold lock)
func (s *AuditService) flushBatchUnsafe() {
	if len(s.batchBuffer) == 0 {
		return
	}

	toWrite := make([]*models.AuditLog, len(s.batchBuffer))
	copy(toWrite, s.batchBuffer)
	s.batchBuffer = s.batchBuffer[:0]

	// The request that produced these events is long gone; use a fresh context.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.store.CreateAuditLogBatch(ctx, toWrite); err != nil {
		log.Printf("[Audit] Failed to write batch of %d entries: %v", len(toWrite), err)
	}
}

// buildAuditLog fills request and actor metadata from ctx and redacts details.
func buildAuditLog(ctx context.Context, entry AuditLogEntry) *models.AuditLog {
	info := util.GetRequestInfo(ctx)
	if entry.ActorIP == "" {
		entry.ActorIP = info.IP
	}
	if entry.UserAgent == "" {
		entry.UserAgent = info.UserAgent
	}
	if entry.RequestPath == "" {
		entry.RequestPath = info.Path
	}
	if entry.RequestMethod == "" {
		entry.RequestMethod = info.Method
	}

	if p := models.GetPrincipalFromContext(ctx); p != nil {
		if entry.ActorSubject == "" {
			entry.ActorSubject = p.Subject
		}
		if entry.ActorName == "" {
			entry.ActorName = p.DisplayName()
		}
	}

	if entry.Severity == "" {
		entry.Severity = models.SeverityInfo
	}

	now := time.Now()
	return &models.AuditLog{
		ID:            uuid.New().String(),
		EventType:     entry.EventType,
		EventTime:     now,
		Severity:      entry.Severity,
		ActorSubject:  entry.ActorSubject,
		ActorName:     entry.ActorName,
		ActorIP:       entry.ActorIP,
		ResourceType:  entry.ResourceType,
		ResourceID:    entry.ResourceID,
		ResourceName:  entry.ResourceName,
		Action:        entry.Action,
		Details:       maskSensitiveDetails(entry.Details),
		Success:       entry.Success,
		ErrorMessage:  entry.ErrorMessage,
		UserAgent:     entry.UserAgent,
		RequestPath:   entry.RequestPath,
		RequestMethod: entry.RequestMethod,
		CreatedAt:     now,
	}
}

// Log records an audit log entry asynchronously. Events are dropped with a
// warning when the buffer is full or the service is shutting down.
func (s *AuditService) Log(ctx context.Context, entry AuditLogEntry) {
	if !s.Enabled() {
		return
	}

	auditLog := buildAuditLog(ctx, entry)

	select {
	case <-s.shutdownCh:
		log.Printf("[Audit] WARNING: service stopped, dropping event: %s", entry.EventType)
		return
	default:
	}

	select {
	case s.logChan <- auditLog:
	default:
		log.Printf("[Audit] WARNING: buffer full, dropping event: %s", entry.EventType)
	}
}

// LogSync records an audit log entry synchronously (for critical events)
func (s *AuditService) LogSync(ctx context.Context, entry AuditLogEntry) error {
	if !s.Enabled() {
		return nil
	}
	return s.store.CreateAuditLog(ctx, buildAuditLog(ctx, entry))
}

// GetAuditLogs retrieves audit logs with pagination and filtering
func (s *AuditService) GetAuditLogs(
	ctx context.Context,
	params store.PaginationParams,
	filters store.AuditLogFilters,
) ([]models.AuditLog, store.PaginationResult, error) {
	return s.store.GetAuditLogsPaginated(ctx, params, filters)
}

// CleanupOldLogs deletes audit logs older than the retention period
func (s *AuditService) CleanupOldLogs(ctx context.Context, retention time.Duration) (int64, error) {
	return s.store.DeleteOldAuditLogs(ctx, time.Now().Add(-retention))
}

// GetAuditLogStats returns statistics about audit logs
func (s *AuditService) GetAuditLogStats(
	ctx context.Context,
	startTime, endTime time.Time,
) (store.AuditLogStats, error) {
	return s.store.GetAuditLogStats(ctx, startTime, endTime)
}

// Shutdown flushes queued events and stops the worker. Safe to call more
// than once.
func (s *AuditService) Shutdown(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}

	s.shutdownOnce.Do(func() {
		s.batchTicker.Stop()
		close(s.shutdownCh)
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("[Audit] Service shut down gracefully")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("audit service shutdown timeout: %w", ctx.Err())
	}
}

// maskSensitiveDetails masks sensitive information in audit log details
func maskSensitiveDetails(details models.AuditDetails) models.AuditDetails {
	if details == nil {
		return nil
	}

	masked := make(models.AuditDetails, len(details))
	for key, value := range details {
		if isSensitiveField(key) {
			masked[key] = redactedValue
			continue
		}
		masked[key] = value
	}
	return masked
}

var sensitiveFields = []string{
	"password",
	"secret",
	"token",
	"code_verifier",
	"authorization",
}

// isSensitiveField checks if a field should be completely masked
func isSensitiveField(key string) bool {
	key = strings.ToLower(key)
	for _, field := range sensitiveFields {
		if strings.Contains(key, field) {
			return true
		}
	}
	return false
}

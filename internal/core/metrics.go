package core

// Recorder defines the interface for recording application metrics.
// Implementations include Metrics (Prometheus-based) and NoopMetrics (no-op).
type Recorder interface {
	// Redirect decisions. reason is empty for accepted targets.
	RecordRedirectDecision(source string, accepted bool, reason string)

	// Allowlist administration
	RecordOriginChange(action string)

	// Authentication
	RecordLogin(success bool)
	RecordLogout()
	RecordOAuthCallback(success bool)

	// Gauge Setters (for periodic updates)
	SetAllowedOriginsCount(count int)

	// Database Operations
	RecordDatabaseQueryError(operation string)
}

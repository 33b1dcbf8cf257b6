package metrics

const (
	resultSuccess  = "success"
	resultFailure  = "failure"
	resultError    = "error"
	resultAccepted = "accepted"
	resultRejected = "rejected"
)

// RecordRedirectDecision counts a sanitizer decision. Accepted decisions use
// the label reason="none".
func (m *Metrics) RecordRedirectDecision(source string, accepted bool, reason string) {
	result := resultAccepted
	if !accepted {
		result = resultRejected
	}
	if reason == "" {
		reason = "none"
	}
	m.RedirectDecisionsTotal.WithLabelValues(source, result, reason).Inc()
}

// RecordOriginChange counts an allowlist change ("added" or "removed").
func (m *Metrics) RecordOriginChange(action string) {
	m.OriginChangesTotal.WithLabelValues(action).Inc()
}

// RecordLogin records login attempt
func (m *Metrics) RecordLogin(success bool) {
	result := resultSuccess
	if !success {
		result = resultFailure
	}
	m.AuthLoginTotal.WithLabelValues(result).Inc()
}

// RecordLogout records logout
func (m *Metrics) RecordLogout() {
	m.AuthLogoutTotal.Inc()
}

// RecordOAuthCallback records OAuth callback
func (m *Metrics) RecordOAuthCallback(success bool) {
	result := resultSuccess
	if !success {
		result = resultError
	}
	m.AuthOAuthCallbackTotal.WithLabelValues(result).Inc()
}

// SetAllowedOriginsCount sets the size of the effective allowlist (for periodic updates)
func (m *Metrics) SetAllowedOriginsCount(count int) {
	m.AllowedOrigins.Set(float64(count))
}

// RecordDatabaseQueryError records a failed database query
func (m *Metrics) RecordDatabaseQueryError(operation string) {
	m.DatabaseQueryErrorsTotal.WithLabelValues(operation).Inc()
}

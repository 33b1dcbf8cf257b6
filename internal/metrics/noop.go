package metrics

// NoopMetrics is a no-operation implementation of Recorder
// All methods are empty and do nothing, providing zero overhead when metrics are disabled
type NoopMetrics struct{}

var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

func (n *NoopMetrics) RecordRedirectDecision(source string, accepted bool, reason string) {}
func (n *NoopMetrics) RecordOriginChange(action string)                                   {}

func (n *NoopMetrics) RecordLogin(success bool)         {}
func (n *NoopMetrics) RecordLogout()                    {}
func (n *NoopMetrics) RecordOAuthCallback(success bool) {}

func (n *NoopMetrics) SetAllowedOriginsCount(count int)          {}
func (n *NoopMetrics) RecordDatabaseQueryError(operation string) {}

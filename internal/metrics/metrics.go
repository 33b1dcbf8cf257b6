package metrics

import (
	"sync"

	"github.com/go-authgate/returnguard/internal/core"
	"github.com/go-authgate/returnguard/internal/redirect"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is the metrics interface used throughout the application.
type Recorder = core.Recorder

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Redirect policy
	RedirectDecisionsTotal *prometheus.CounterVec
	AllowedOrigins         prometheus.Gauge
	OriginChangesTotal     *prometheus.CounterVec

	// Authentication
	AuthLoginTotal         *prometheus.CounterVec
	AuthLogoutTotal        prometheus.Counter
	AuthOAuthCallbackTotal *prometheus.CounterVec

	// HTTP
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Database
	DatabaseQueryErrorsTotal *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init returns Prometheus-backed metrics registered on the default registry
// when enabled, NoopMetrics otherwise. Registration happens once per process.
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = newMetrics(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		RedirectDecisionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redirect_decisions_total",
				Help: "Total number of redirect target decisions",
			},
			[]string{"source", "result", "reason"}, // result: accepted, rejected
		),
		AllowedOrigins: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "redirect_allowed_origins",
				Help: "Number of origins in the effective redirect allowlist",
			},
		),
		OriginChangesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redirect_origin_changes_total",
				Help: "Total number of allowlist changes made through the admin API",
			},
			[]string{"action"}, // added, removed
		),

		AuthLoginTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_login_total",
				Help: "Total number of completed login attempts",
			},
			[]string{"result"},
		),
		AuthLogoutTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "auth_logout_total",
				Help: "Total number of logouts",
			},
		),
		AuthOAuthCallbackTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_oauth_callback_total",
				Help: "Total number of OAuth callbacks",
			},
			[]string{"result"},
		),

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{0.001, 0.005, 0.010, 0.025, 0.050, 0.100, 0.250, 0.500, 1.0, 2.5, 5.0},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being served",
			},
		),

		DatabaseQueryErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "database_query_errors_total",
				Help: "Total number of database query errors",
			},
			[]string{"operation"},
		),
	}

	// Pre-create every rejection series so dashboards see zeros instead of
	// missing data.
	for _, reason := range redirect.RejectionReasons() {
		m.RedirectDecisionsTotal.WithLabelValues("login", resultRejected, reason.String())
	}

	return m
}

package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the content pipeline.
// A disabled config yields a no-op instance; all record methods are
// nil-safe so callers never guard their metric calls.
type Metrics struct {
	config MetricsConfig

	// Run metrics
	runsStarted   prometheus.Counter
	runsCompleted *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec

	// Phase metrics
	phaseDuration *prometheus.HistogramVec
	retryRounds   *prometheus.CounterVec

	// Worker metrics
	workersExecuted *prometheus.CounterVec
	workerDuration  *prometheus.HistogramVec

	// Validation metrics
	validationIssues *prometheus.CounterVec

	// System metrics
	activeRuns prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		runsStarted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_started_total",
				Help:      "Total number of pipeline runs started",
			},
		),
		runsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_completed_total",
				Help:      "Total number of pipeline runs completed",
			},
			[]string{"status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of pipeline runs in seconds",
				Buckets:   buckets,
			},
			[]string{"status"},
		),
		phaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "phase_duration_seconds",
				Help:      "Duration of pipeline phases in seconds",
				Buckets:   buckets,
			},
			[]string{"phase"},
		),
		retryRounds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retry_rounds_total",
				Help:      "Total number of retry rounds by phase",
			},
			[]string{"phase"},
		),
		workersExecuted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "workers_executed_total",
				Help:      "Total number of unit workers executed",
			},
			[]string{"kind", "status"},
		),
		workerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "worker_duration_seconds",
				Help:      "Duration of unit worker attempts in seconds",
				Buckets:   buckets,
			},
			[]string{"kind"},
		),
		validationIssues: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_issues_total",
				Help:      "Total number of validation issues by severity",
			},
			[]string{"severity"},
		),
		activeRuns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_runs",
				Help:      "Current number of active pipeline runs",
			},
		),
	}

	registry.MustRegister(
		m.runsStarted,
		m.runsCompleted,
		m.runDuration,
		m.phaseDuration,
		m.retryRounds,
		m.workersExecuted,
		m.workerDuration,
		m.validationIssues,
		m.activeRuns,
	)

	return m, nil
}

// RecordRunStarted increments the counter for started runs.
func (m *Metrics) RecordRunStarted() {
	if m == nil || m.runsStarted == nil {
		return
	}
	m.runsStarted.Inc()
	m.activeRuns.Inc()
}

// RecordRunCompleted records a completed run with its status and duration.
func (m *Metrics) RecordRunCompleted(status string, duration time.Duration) {
	if m == nil || m.runsCompleted == nil {
		return
	}
	m.runsCompleted.WithLabelValues(status).Inc()
	m.runDuration.WithLabelValues(status).Observe(duration.Seconds())
	m.activeRuns.Dec()
}

// RecordPhase records a phase's duration.
func (m *Metrics) RecordPhase(phase string, duration time.Duration) {
	if m == nil || m.phaseDuration == nil {
		return
	}
	m.phaseDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

// RecordRetryRound increments the retry-round counter for a phase.
func (m *Metrics) RecordRetryRound(phase string) {
	if m == nil || m.retryRounds == nil {
		return
	}
	m.retryRounds.WithLabelValues(phase).Inc()
}

// RecordWorker records a unit worker attempt.
func (m *Metrics) RecordWorker(kind, status string, duration time.Duration) {
	if m == nil || m.workersExecuted == nil {
		return
	}
	m.workersExecuted.WithLabelValues(kind, status).Inc()
	m.workerDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordValidationIssues records validation issues by severity.
func (m *Metrics) RecordValidationIssues(severity string, count int) {
	if m == nil || m.validationIssues == nil || count == 0 {
		return
	}
	m.validationIssues.WithLabelValues(severity).Add(float64(count))
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server exposing the metrics endpoint.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		// Server errors must not take the pipeline down.
		_ = server.ListenAndServe()
	}()

	return nil
}

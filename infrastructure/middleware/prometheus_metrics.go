// Package middleware provides cross-cutting concerns for the validation
// engine.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-tribunal/internal/ports"
)

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus. It covers run outcomes, per-judge call telemetry, and token
// usage for the validation engine.
type PrometheusMetrics struct {
	runsTotal        *prometheus.CounterVec
	judgeCallsTotal  *prometheus.CounterVec
	judgeFailures    *prometheus.CounterVec
	executionLatency *prometheus.HistogramVec
	judgeTokensOut   *prometheus.HistogramVec
	operationCounter *prometheus.CounterVec
}

// NewPrometheusMetrics creates a PrometheusMetrics instance and registers
// all required metrics in the global Prometheus registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		runsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tribunal_validation_runs_total",
				Help: "Total validation runs by terminal outcome.",
			},
			[]string{"outcome"},
		),
		judgeCallsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tribunal_judge_calls_total",
				Help: "Total judge calls that returned a usable reply.",
			},
			[]string{"judge", "model"},
		),
		judgeFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tribunal_judge_failures_total",
				Help: "Judge call failures by failure kind.",
			},
			[]string{"judge", "kind"},
		),
		executionLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tribunal_operation_duration_seconds",
				Help:    "Execution time of engine operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "judge"},
		),
		judgeTokensOut: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tribunal_judge_tokens_out",
				Help:    "Completion tokens per judge reply.",
				Buckets: prometheus.ExponentialBuckets(16, 2, 10),
			},
			[]string{"judge"},
		),
		operationCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tribunal_operations_total",
				Help: "Total engine operations by name.",
			},
			[]string{"operation"},
		),
	}
}

// RecordLatency implements the MetricsCollector interface by recording
// execution latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	pm.executionLatency.WithLabelValues(operation, labels["judge"]).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by routing the
// known engine counters to their typed metric; anything else lands in the
// general operation counter.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case "validation_runs":
		pm.runsTotal.WithLabelValues(labels["outcome"]).Add(value)
	case "judge_call_success":
		pm.judgeCallsTotal.WithLabelValues(labels["judge"], labels["model"]).Add(value)
	case "judge_call_failures", "judge_failures":
		pm.judgeFailures.WithLabelValues(labels["judge"], labels["kind"]).Add(value)
	default:
		pm.operationCounter.WithLabelValues(metric).Add(value)
	}
}

// RecordHistogram implements the MetricsCollector interface.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case "judge_tokens_out":
		pm.judgeTokensOut.WithLabelValues(labels["judge"]).Observe(value)
	default:
		pm.executionLatency.WithLabelValues(metric, labels["judge"]).Observe(value)
	}
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

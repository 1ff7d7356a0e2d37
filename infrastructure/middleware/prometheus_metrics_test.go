package middleware

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/ahrav/go-tribunal/internal/ports"
)

// testPrometheusMetrics provides a single package-wide instance so tests
// never trip Prometheus duplicate-registration panics.
var testPrometheusMetrics *PrometheusMetrics

func init() {
	testPrometheusMetrics = NewPrometheusMetrics()
}

// TestNewPrometheusMetrics verifies the collector initializes every
// metric vector and satisfies the MetricsCollector port.
func TestNewPrometheusMetrics(t *testing.T) {
	pm := testPrometheusMetrics

	assert.NotNil(t, pm.runsTotal)
	assert.NotNil(t, pm.judgeCallsTotal)
	assert.NotNil(t, pm.judgeFailures)
	assert.NotNil(t, pm.executionLatency)
	assert.NotNil(t, pm.judgeTokensOut)
	assert.NotNil(t, pm.operationCounter)

	var _ ports.MetricsCollector = pm
}

// TestRecordCounterRouting verifies the engine's counter names land on
// their typed metrics with the expected labels.
func TestRecordCounterRouting(t *testing.T) {
	pm := testPrometheusMetrics

	pm.RecordCounter("validation_runs", 1, map[string]string{"outcome": "committed"})
	pm.RecordCounter("validation_runs", 2, map[string]string{"outcome": "committed"})
	assert.Equal(t, 3.0, testutil.ToFloat64(pm.runsTotal.WithLabelValues("committed")))

	pm.RecordCounter("judge_failures", 1, map[string]string{"judge": "claude", "kind": "rate_limited"})
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.judgeFailures.WithLabelValues("claude", "rate_limited")))

	pm.RecordCounter("judge_call_success", 1, map[string]string{"judge": "gpt", "model": "gpt-4o"})
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.judgeCallsTotal.WithLabelValues("gpt", "gpt-4o")))

	pm.RecordCounter("some_unknown_counter", 1, nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.operationCounter.WithLabelValues("some_unknown_counter")))
}

// TestRecordLatencyAndHistogram verifies observations are accepted
// without panicking on absent labels.
func TestRecordLatencyAndHistogram(t *testing.T) {
	pm := testPrometheusMetrics

	pm.RecordLatency("validation_run", 250*time.Millisecond, nil)
	pm.RecordLatency("judge_call", 80*time.Millisecond, map[string]string{"judge": "gemini"})
	pm.RecordHistogram("judge_tokens_out", 128, map[string]string{"judge": "gpt"})
	pm.RecordHistogram("other_distribution", 5, nil)
}

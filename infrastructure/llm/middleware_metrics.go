package llm

import (
	"context"
	"time"

	"github.com/ahrav/go-tribunal/internal/ports"
)

// metricsJudge records per-call latency, outcome, and token usage through
// the injected collector.
type metricsJudge struct {
	next      CoreJudge
	collector ports.MetricsCollector
	judge     string
}

// MetricsMiddleware creates middleware that reports judge call telemetry.
// The judge label distinguishes panel members sharing a collector.
func MetricsMiddleware(collector ports.MetricsCollector, judge string) Middleware {
	return func(next CoreJudge) CoreJudge {
		return &metricsJudge{next: next, collector: collector, judge: judge}
	}
}

// DoRequest forwards the request and records its telemetry.
func (m *metricsJudge) DoRequest(ctx context.Context, spec ports.PromptSpec) (ports.JudgeResponse, error) {
	start := time.Now()
	resp, err := m.next.DoRequest(ctx, spec)
	elapsed := time.Since(start)

	labels := map[string]string{"judge": m.judge, "model": m.next.GetModel()}
	m.collector.RecordLatency("judge_call", elapsed, labels)

	if err != nil {
		labels["kind"] = string(ports.JudgeErrorKindOf(err))
		m.collector.RecordCounter("judge_call_failures", 1, labels)
		return resp, err
	}

	m.collector.RecordCounter("judge_call_success", 1, labels)
	m.collector.RecordHistogram("judge_tokens_out", float64(resp.TokensOut), labels)
	return resp, nil
}

// GetModel returns the model name from the wrapped implementation.
func (m *metricsJudge) GetModel() string { return m.next.GetModel() }

// SetModel updates the model name in the wrapped implementation.
func (m *metricsJudge) SetModel(model string) { m.next.SetModel(model) }

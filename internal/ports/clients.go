// Package ports defines the core interfaces that form the contract between
// the domain/engine layers and the infrastructure layer.
// These interfaces enable dependency inversion and make the system testable.
package ports

import (
	"context"
	"errors"
	"time"

	"github.com/ahrav/go-tribunal/internal/domain"
)

// PromptSpec is the structured prompt sent to one judge: a system
// instruction carrying the role and rubric, and a user message carrying the
// serialized request content.
type PromptSpec struct {
	// System is the role/rubric instruction.
	System string

	// User is the serialized content under judgment.
	User string

	// MaxTokens bounds the judge's reply length. Zero means the provider
	// default.
	MaxTokens int

	// Temperature controls sampling randomness. Nil means the provider
	// default; judges are normally run at 0 for stable scoring.
	Temperature *float64
}

// JudgeResponse is a judge's raw reply before normalization.
type JudgeResponse struct {
	// Text is the raw response body.
	Text string

	// TokensIn and TokensOut are provider-reported token usage, zero when
	// the provider omits usage data.
	TokensIn  int
	TokensOut int
}

// JudgeClient is the uniform interface to one external judgment provider.
// Implementations enforce a bounded per-call timeout distinct from
// transport defaults; a hung provider must not hang the whole panel.
// The client performs no retries itself; retry policy belongs to the
// caller, kept explicit and observable.
type JudgeClient interface {
	// Invoke sends the prompt to the provider and returns the raw reply.
	// Failures are classifiable via JudgeErrorKindOf.
	Invoke(ctx context.Context, spec PromptSpec) (JudgeResponse, error)

	// Model returns the provider model identifier, for logging.
	Model() string
}

// JudgeErrorClassifier is implemented by infrastructure errors that know
// their own failure classification.
type JudgeErrorClassifier interface {
	JudgeErrorKind() domain.JudgeErrorKind
}

// JudgeErrorKindOf reduces any judge call error to the closed
// JudgeErrorKind vocabulary. Unclassifiable errors are treated as
// Unavailable, the retryable default.
func JudgeErrorKindOf(err error) domain.JudgeErrorKind {
	var c JudgeErrorClassifier
	if errors.As(err, &c) {
		return c.JudgeErrorKind()
	}
	// Timeouts, cancellations, and anything else unclassifiable read as
	// provider unavailability.
	return domain.JudgeErrUnavailable
}

// RateLimitDecision is the outcome of one admission rate-limit check.
type RateLimitDecision struct {
	// Allowed reports whether the request may proceed.
	Allowed bool

	// RetryAfter is how long the caller should wait when not allowed.
	RetryAfter time.Duration
}

// RateLimiter is the injectable per-user admission limiter. Checking is a
// cheap synchronous gate; internal expiry of idle keys is the limiter's
// own concern.
type RateLimiter interface {
	Check(ctx context.Context, key string) (RateLimitDecision, error)
}

// MetricsCollector abstracts operational metrics so the engine does not
// depend on a concrete telemetry backend.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a distribution metric.
	RecordHistogram(metric string, value float64, labels map[string]string)
}

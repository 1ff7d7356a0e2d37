package llm

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/ahrav/go-tribunal/internal/ports"
)

// retryJudge retries transient failures with exponential backoff.
//
// The validation engine never installs this in its default panel assembly:
// per the engine contract, a failed judge is recorded as data and retry
// policy belongs to the caller. The middleware exists for callers who
// choose an explicit retry policy outside a panel run.
type retryJudge struct {
	next       CoreJudge
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// RetryMiddleware creates opt-in middleware that retries retryable
// failures with exponential backoff and jitter. Quota and malformed
// failures are never retried.
func RetryMiddleware(maxRetries int, baseDelay, maxDelay time.Duration) Middleware {
	return func(next CoreJudge) CoreJudge {
		return &retryJudge{
			next:       next,
			maxRetries: maxRetries,
			baseDelay:  baseDelay,
			maxDelay:   maxDelay,
		}
	}
}

// DoRequest executes the request with retry on retryable classifications.
func (r *retryJudge) DoRequest(ctx context.Context, spec ports.PromptSpec) (ports.JudgeResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		resp, err := r.next.DoRequest(ctx, spec)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if errors.Is(err, ErrCircuitOpen) || ctx.Err() != nil {
			break
		}

		var provErr *ProviderError
		if errors.As(err, &provErr) && !provErr.IsRetryable() {
			break
		}

		if attempt == r.maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ports.JudgeResponse{}, ctx.Err()
		case <-time.After(r.calculateDelay(attempt)):
		}
	}

	return ports.JudgeResponse{}, fmt.Errorf("request failed after %d attempts: %w", r.maxRetries+1, lastErr)
}

func (r *retryJudge) calculateDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		attempt = 30
	}
	// #nosec G115 - attempt is bounded between 0 and 30
	multiplier := 1 << uint(attempt)
	delay := time.Duration(float64(r.baseDelay) * float64(multiplier))

	// Jitter of ±25% spreads synchronized retries.
	// #nosec G404 - weak RNG is acceptable for jitter
	jitter := time.Duration(rand.Float64() * float64(delay) * 0.5)
	delay = delay + jitter - (delay / 4)

	if delay > r.maxDelay {
		delay = r.maxDelay
	}
	return delay
}

// GetModel returns the model name from the wrapped implementation.
func (r *retryJudge) GetModel() string { return r.next.GetModel() }

// SetModel updates the model name in the wrapped implementation.
func (r *retryJudge) SetModel(m string) { r.next.SetModel(m) }

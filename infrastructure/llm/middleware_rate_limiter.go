package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/ahrav/go-tribunal/internal/ports"
)

// rateLimitedJudge paces requests to one provider with a token bucket.
// This protects the provider's own rate limits; it is unrelated to the
// per-user admission limiter.
type rateLimitedJudge struct {
	next    CoreJudge
	limiter *rate.Limiter
}

// RateLimitMiddleware creates middleware that paces provider calls with a
// token bucket. The limit sets sustained requests per second; burst allows
// temporary spikes above it.
func RateLimitMiddleware(limit rate.Limit, burst int) Middleware {
	limiter := rate.NewLimiter(limit, burst)
	return func(next CoreJudge) CoreJudge {
		return &rateLimitedJudge{next: next, limiter: limiter}
	}
}

// DoRequest blocks until a token is available, then forwards the request.
func (r *rateLimitedJudge) DoRequest(ctx context.Context, spec ports.PromptSpec) (ports.JudgeResponse, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return ports.JudgeResponse{}, fmt.Errorf("rate limit: %w", err)
	}
	return r.next.DoRequest(ctx, spec)
}

// GetModel returns the model name from the wrapped implementation.
func (r *rateLimitedJudge) GetModel() string { return r.next.GetModel() }

// SetModel updates the model name in the wrapped implementation.
func (r *rateLimitedJudge) SetModel(m string) { r.next.SetModel(m) }

package llm

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ahrav/go-tribunal/internal/domain"
	"github.com/ahrav/go-tribunal/internal/ports"
)

// ErrCircuitOpen indicates that the circuit breaker rejected a request
// before it reached the provider. It classifies as Unavailable so a
// tripped judge appears in verdicts like any other outage.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitState represents the current state of a circuit breaker.
type CircuitState int

const (
	// StateClosed allows all requests through; the provider is healthy.
	StateClosed CircuitState = iota

	// StateOpen rejects all requests immediately after too many
	// consecutive failures.
	StateOpen

	// StateHalfOpen lets one request probe for recovery after the
	// cooldown expires.
	StateHalfOpen
)

// circuitBreakerJudge turns a flapping provider into fast Unavailable
// failures instead of repeatedly burning the per-call timeout.
type circuitBreakerJudge struct {
	next CoreJudge

	mu           sync.Mutex
	state        CircuitState
	failureCount int
	maxFailures  int
	cooldown     time.Duration
	lastFailure  time.Time
}

// CircuitBreakerMiddleware creates middleware that opens after maxFailures
// consecutive errors and stays open for cooldown before probing recovery.
func CircuitBreakerMiddleware(maxFailures int, cooldown time.Duration) Middleware {
	return func(next CoreJudge) CoreJudge {
		return &circuitBreakerJudge{
			next:        next,
			state:       StateClosed,
			maxFailures: maxFailures,
			cooldown:    cooldown,
		}
	}
}

// DoRequest executes the request through the breaker. When the circuit is
// open, it fails immediately with an Unavailable classification.
func (cb *circuitBreakerJudge) DoRequest(ctx context.Context, spec ports.PromptSpec) (ports.JudgeResponse, error) {
	if !cb.allow() {
		return ports.JudgeResponse{}, NewProviderError(
			cb.next.GetModel(), domain.JudgeErrUnavailable, 0, "circuit breaker open", ErrCircuitOpen)
	}

	resp, err := cb.next.DoRequest(ctx, spec)
	cb.record(err)
	return resp, err
}

// allow reports whether a request may proceed, transitioning open circuits
// to half-open once the cooldown has elapsed.
func (cb *circuitBreakerJudge) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if time.Since(cb.lastFailure) < cb.cooldown {
			return false
		}
		cb.state = StateHalfOpen
	}
	return true
}

// record updates breaker state from a request outcome.
func (cb *circuitBreakerJudge) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		cb.failureCount = 0
		cb.state = StateClosed
		return
	}

	cb.failureCount++
	cb.lastFailure = time.Now()
	if cb.state == StateHalfOpen || cb.failureCount >= cb.maxFailures {
		cb.state = StateOpen
	}
}

// State returns the current circuit state, for monitoring and tests.
func (cb *circuitBreakerJudge) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// GetModel returns the model name from the wrapped implementation.
func (cb *circuitBreakerJudge) GetModel() string { return cb.next.GetModel() }

// SetModel updates the model name in the wrapped implementation.
func (cb *circuitBreakerJudge) SetModel(m string) { cb.next.SetModel(m) }

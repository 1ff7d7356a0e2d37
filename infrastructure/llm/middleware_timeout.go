package llm

import (
	"context"
	"time"

	"github.com/ahrav/go-tribunal/internal/ports"
)

// timeoutJudge enforces a per-call deadline around a provider core.
type timeoutJudge struct {
	next    CoreJudge
	timeout time.Duration
}

// TimeoutMiddleware bounds every judge call with its own deadline,
// independent of transport-level defaults. NewClient always installs this
// outermost, so a hung provider can never hang the panel.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next CoreJudge) CoreJudge {
		return &timeoutJudge{next: next, timeout: timeout}
	}
}

// DoRequest executes the request under a timeout context.
func (t *timeoutJudge) DoRequest(ctx context.Context, spec ports.PromptSpec) (ports.JudgeResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.DoRequest(ctx, spec)
}

// GetModel returns the model name from the wrapped implementation.
func (t *timeoutJudge) GetModel() string { return t.next.GetModel() }

// SetModel updates the model name in the wrapped implementation.
func (t *timeoutJudge) SetModel(m string) { t.next.SetModel(m) }

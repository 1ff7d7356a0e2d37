// Package panel runs the fixed judge panel concurrently and collects every
// member's verdict, successful or not, for one validation run.
package panel

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-tribunal/internal/domain"
	"github.com/ahrav/go-tribunal/internal/normalize"
	"github.com/ahrav/go-tribunal/internal/ports"
	"github.com/ahrav/go-tribunal/internal/rubric"
)

// settleBuffer is added to the per-judge timeout to form the global
// ceiling for a panel run. The ceiling is per-judge-timeout plus buffer,
// not timeout times panel size: judges run concurrently.
const settleBuffer = 5 * time.Second

// Member binds a panel seat to its judge client.
type Member struct {
	// ID is the panel seat, from the fixed JudgeID enum.
	ID domain.JudgeID

	// Client is the provider-backed judge client for this seat.
	Client ports.JudgeClient
}

// Orchestrator fans a validation request out to every panel member,
// waits for all of them to settle, and returns the full verdict list in
// dispatch order. Result order is presentational only; aggregation math
// downstream is order-independent.
type Orchestrator struct {
	members         []Member
	perJudgeTimeout time.Duration
}

// New creates an orchestrator over the given panel. perJudgeTimeout
// bounds each judge call; zero applies a 45s default matching the judge
// client's own bound.
func New(members []Member, perJudgeTimeout time.Duration) (*Orchestrator, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("panel requires at least one member")
	}
	seen := make(map[domain.JudgeID]bool, len(members))
	for _, m := range members {
		if m.Client == nil {
			return nil, fmt.Errorf("panel member %s has no client", m.ID)
		}
		if seen[m.ID] {
			return nil, fmt.Errorf("panel member %s appears twice", m.ID)
		}
		seen[m.ID] = true
	}
	if perJudgeTimeout <= 0 {
		perJudgeTimeout = 45 * time.Second
	}
	return &Orchestrator{members: members, perJudgeTimeout: perJudgeTimeout}, nil
}

// Size returns the fixed panel size. Consensus math uses this, never the
// count of judges that happened to succeed.
func (o *Orchestrator) Size() int { return len(o.members) }

// Run dispatches all judges concurrently and waits for every one to
// settle, success or failure, up to the global ceiling. One judge's
// failure is isolated: it never cancels or corrupts the others. Once
// dispatched, judge calls are not cancelled when a sibling fails; each
// runs to its own completion or timeout.
func (o *Orchestrator) Run(ctx context.Context, req domain.ValidationRequest, r *rubric.Rubric) []domain.JudgeVerdict {
	spec, err := r.BuildPrompt(req)
	if err != nil {
		// A template failure affects every seat identically; record it as
		// a malformed failure per judge so the audit trail stays complete.
		verdicts := make([]domain.JudgeVerdict, len(o.members))
		for i, m := range o.members {
			verdicts[i] = domain.FailedVerdict(m.ID, domain.JudgeErrMalformed,
				fmt.Sprintf("prompt build failed: %v", err), 0)
		}
		return verdicts
	}

	ctx, cancel := context.WithTimeout(ctx, o.perJudgeTimeout+settleBuffer)
	defer cancel()

	verdicts := make([]domain.JudgeVerdict, len(o.members))

	// errgroup without a derived context: goroutines always return nil,
	// so a failing judge can never cancel its siblings.
	var g errgroup.Group
	for i, m := range o.members {
		g.Go(func() error {
			verdicts[i] = o.invoke(ctx, m, spec, r)
			return nil
		})
	}
	_ = g.Wait()

	return verdicts
}

// invoke calls one judge, normalizes its reply, and stamps latency and
// token usage. All failures come back as data.
func (o *Orchestrator) invoke(ctx context.Context, m Member, spec ports.PromptSpec, r *rubric.Rubric) domain.JudgeVerdict {
	start := time.Now()
	resp, err := m.Client.Invoke(ctx, spec)
	latencyMs := time.Since(start).Milliseconds()

	if err != nil {
		return domain.FailedVerdict(m.ID, ports.JudgeErrorKindOf(err), err.Error(), latencyMs)
	}

	verdict := normalize.Normalize(m.ID, resp.Text, r)
	verdict.LatencyMs = latencyMs
	verdict.TokensIn = resp.TokensIn
	verdict.TokensOut = resp.TokensOut
	return verdict
}

package admission

import (
	"context"
	"fmt"

	"github.com/ahrav/go-tribunal/internal/domain"
	"github.com/ahrav/go-tribunal/internal/ports"
	"github.com/ahrav/go-tribunal/internal/rubric"
)

// Gate performs every admission check for a validation run. Checks run
// cheapest-first: authentication, rate limit, ownership, then the
// pre-flight balance read. A request that passes the gate has still not
// reserved anything; the authoritative balance check happens again
// inside the atomic commit.
type Gate struct {
	subjects ports.SubjectStore
	store    ports.ValidationStore
	limiter  ports.RateLimiter
}

// NewGate wires the gate's collaborators. The limiter may be nil to
// disable rate limiting, e.g. in tests.
func NewGate(subjects ports.SubjectStore, store ports.ValidationStore, limiter ports.RateLimiter) (*Gate, error) {
	if subjects == nil {
		return nil, fmt.Errorf("subject store must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("validation store must not be nil")
	}
	return &Gate{subjects: subjects, store: store, limiter: limiter}, nil
}

// Admit runs all admission checks for req and returns the subject record
// on success.
//
// Failure modes, in check order:
//   - domain.ErrUnauthenticated when the request has no owner identity.
//   - domain.RateLimitedError carrying retryAfter when the owner exceeds
//     the per-user rate.
//   - domain.ErrSubjectNotFound when the subject is missing or owned by
//     another user; the two cases are deliberately indistinguishable.
//   - domain.InsufficientBalanceError carrying the rubric's fixed cost
//     and the current balance when the owner cannot afford the run.
func (g *Gate) Admit(ctx context.Context, req domain.ValidationRequest, r *rubric.Rubric) (ports.Subject, error) {
	if req.OwnerID == "" {
		return ports.Subject{}, domain.ErrUnauthenticated
	}

	if g.limiter != nil {
		decision, err := g.limiter.Check(ctx, req.OwnerID)
		if err != nil {
			return ports.Subject{}, fmt.Errorf("rate limit check: %w", err)
		}
		if !decision.Allowed {
			return ports.Subject{}, &domain.RateLimitedError{RetryAfter: decision.RetryAfter}
		}
	}

	subject, err := g.subjects.FetchForOwner(ctx, req.SubjectID, req.OwnerID)
	if err != nil {
		return ports.Subject{}, err
	}

	cost := r.FixedCost()
	balance, err := g.store.Balance(ctx, req.OwnerID)
	if err != nil {
		return ports.Subject{}, fmt.Errorf("balance check: %w", err)
	}
	if balance < cost {
		return ports.Subject{}, &domain.InsufficientBalanceError{Required: cost, Balance: balance}
	}

	return subject, nil
}

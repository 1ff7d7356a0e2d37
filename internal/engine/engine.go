// Package engine runs the full validation pipeline: admission, panel
// dispatch, consensus aggregation, and the atomic cost-metered commit.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ahrav/go-tribunal/internal/admission"
	"github.com/ahrav/go-tribunal/internal/consensus"
	"github.com/ahrav/go-tribunal/internal/domain"
	"github.com/ahrav/go-tribunal/internal/panel"
	"github.com/ahrav/go-tribunal/internal/ports"
	"github.com/ahrav/go-tribunal/internal/rubric"
)

// commitAttempts bounds retries when a concurrent commit wins the
// balance race. Judges are pure reads, so retrying the commit alone is
// safe and cheap.
const commitAttempts = 3

// Engine coordinates one validation run end to end through the state
// machine:
//
//	Admitted -> Dispatching -> Aggregating ->
//	    {Committed | Rejected}
//
// Judge failures never terminate a run; they surface as failed verdict
// entries. Only aggregation and commit failures are terminal.
type Engine struct {
	rubrics      *rubric.Registry
	gate         *admission.Gate
	orchestrator *panel.Orchestrator
	calculator   *consensus.Calculator
	store        ports.ValidationStore
	metrics      ports.MetricsCollector
	tracer       trace.Tracer
}

// Options configures optional engine collaborators.
type Options struct {
	// Metrics receives run counters and latencies; nil disables them.
	Metrics ports.MetricsCollector

	// Tracer opens one span per run; nil uses a noop tracer.
	Tracer trace.Tracer
}

// New assembles an engine. The consensus threshold is fixed to a strict
// majority of the panel's size at construction.
func New(
	rubrics *rubric.Registry,
	gate *admission.Gate,
	orchestrator *panel.Orchestrator,
	store ports.ValidationStore,
	opts Options,
) (*Engine, error) {
	if rubrics == nil || gate == nil || orchestrator == nil || store == nil {
		return nil, fmt.Errorf("%w: engine requires rubrics, gate, orchestrator, and store", domain.ErrInvalidConfiguration)
	}

	calc, err := consensus.NewCalculator(orchestrator.Size())
	if err != nil {
		return nil, err
	}

	tracer := opts.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("engine")
	}

	return &Engine{
		rubrics:      rubrics,
		gate:         gate,
		orchestrator: orchestrator,
		calculator:   calc,
		store:        store,
		metrics:      opts.Metrics,
		tracer:       tracer,
	}, nil
}

// Validate executes one run. On success it returns the full consensus
// payload; on failure the returned error is always a *Rejection carrying
// only the closed error vocabulary, while the underlying cause is logged
// with the run's correlation id.
func (e *Engine) Validate(ctx context.Context, req domain.ValidationRequest) (Response, error) {
	requestID := uuid.NewString()
	start := time.Now()

	log := clog.FromContext(ctx).With(
		"request_id", requestID,
		"subject_id", req.SubjectID,
		"rubric", string(req.Rubric),
	)

	ctx, span := e.tracer.Start(ctx, "engine.validate",
		trace.WithAttributes(
			attribute.String("request.id", requestID),
			attribute.String("rubric.id", string(req.Rubric)),
		))
	defer span.End()

	resp, err := e.run(ctx, log, requestID, req)
	elapsed := time.Since(start)

	if err != nil {
		rej := rejectionFor(requestID, err)
		log.With("error", err.Error(), "code", rej.Code, "elapsed", elapsed).
			Warn("validation rejected")
		span.RecordError(err)
		span.SetStatus(codes.Error, rej.Code)
		e.count("validation_runs", map[string]string{"outcome": rej.Code})
		return Response{}, rej
	}

	log.With("consensus", resp.Consensus, "avg_score", resp.AvgScore, "elapsed", elapsed).
		Info("validation committed")
	span.SetAttributes(
		attribute.Bool("consensus", resp.Consensus),
		attribute.Int("avg_score", resp.AvgScore),
	)
	e.count("validation_runs", map[string]string{"outcome": "committed"})
	if e.metrics != nil {
		e.metrics.RecordLatency("validation_run", elapsed, nil)
	}
	return resp, nil
}

// run drives the state machine and returns the unsanitized terminal
// outcome; Validate owns sanitization.
func (e *Engine) run(ctx context.Context, log *clog.Logger, requestID string, req domain.ValidationRequest) (Response, error) {
	state := domain.RunAdmitted

	r, err := e.rubrics.Get(req.Rubric)
	if err != nil {
		return Response{}, err
	}

	if _, err := e.gate.Admit(ctx, req, r); err != nil {
		return Response{}, err
	}

	state = domain.RunDispatching
	log.With("state", string(state), "panel_size", e.orchestrator.Size()).Debug("dispatching panel")
	verdicts := e.orchestrator.Run(ctx, req, r)
	for _, v := range verdicts {
		if !v.Success && v.Failure != nil {
			// Full provider detail stays server-side; callers see the kind only.
			log.With("judge", string(v.Judge), "kind", string(v.Failure.Kind),
				"detail", v.Failure.Detail, "latency_ms", v.LatencyMs).
				Warn("judge failed")
			e.count("judge_failures", map[string]string{
				"judge": string(v.Judge), "kind": string(v.Failure.Kind),
			})
		}
	}

	state = domain.RunAggregating
	result, err := e.calculator.Aggregate(req, r, verdicts)
	if err != nil {
		// Zero usable verdicts: the run is rejected with no charge.
		return Response{}, err
	}

	receipt, err := e.commit(ctx, requestID, req, r, &result)
	if err != nil {
		return Response{}, err
	}

	state = domain.RunCommitted
	log.With("state", string(state), "usable", result.UsableCount,
		"ledger_entry", receipt.Entry.ID, "new_balance", receipt.NewBalance).
		Debug("run committed")

	return Response{
		Success:        true,
		Consensus:      result.Consensus,
		AvgScore:       result.AggregateScore,
		Validations:    result.Verdicts,
		AgreementLevel: result.Agreement,
		RequestID:      requestID,
		NewBalance:     receipt.NewBalance,
	}, nil
}

// commit applies the atomic debit-and-persist, retrying a bounded number
// of times when a concurrent commit wins the optimistic race.
func (e *Engine) commit(ctx context.Context, requestID string, req domain.ValidationRequest, r *rubric.Rubric, result *domain.ConsensusResult) (ports.CommitReceipt, error) {
	commitReq := ports.CommitRequest{
		RequestID: requestID,
		OwnerID:   req.OwnerID,
		SubjectID: req.SubjectID,
		Cost:      r.FixedCost(),
		Reason:    fmt.Sprintf("%s validation", r.ID()),
		Result:    result,
	}

	var lastErr error
	for attempt := 0; attempt < commitAttempts; attempt++ {
		receipt, err := e.store.Commit(ctx, commitReq)
		if err == nil {
			return receipt, nil
		}
		if errors.Is(err, domain.ErrInsufficientBalance) {
			// The authoritative re-check failed; surface current figures.
			balance, balErr := e.store.Balance(ctx, req.OwnerID)
			if balErr != nil {
				return ports.CommitReceipt{}, domain.NewCommitError("balance", balErr)
			}
			return ports.CommitReceipt{}, &domain.InsufficientBalanceError{
				Required: commitReq.Cost,
				Balance:  balance,
			}
		}
		if !errors.Is(err, domain.ErrBalanceConflict) {
			return ports.CommitReceipt{}, domain.NewCommitError("ledger", err)
		}
		lastErr = err
	}
	return ports.CommitReceipt{}, domain.NewCommitError("ledger", lastErr)
}

// count records a counter when metrics are configured.
func (e *Engine) count(metric string, labels map[string]string) {
	if e.metrics != nil {
		e.metrics.RecordCounter(metric, 1, labels)
	}
}

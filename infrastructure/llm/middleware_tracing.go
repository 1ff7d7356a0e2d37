package llm

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-tribunal/internal/ports"
)

// tracedJudge wraps judge calls in OpenTelemetry spans.
type tracedJudge struct {
	next   CoreJudge
	tracer trace.Tracer
	judge  string
}

// TracingMiddleware creates middleware that opens a span per judge call,
// tagged with the judge name, model, and token usage.
func TracingMiddleware(judge string) Middleware {
	tracer := otel.Tracer("go-tribunal/llm")
	return func(next CoreJudge) CoreJudge {
		return &tracedJudge{next: next, tracer: tracer, judge: judge}
	}
}

// DoRequest executes the request within a span.
func (t *tracedJudge) DoRequest(ctx context.Context, spec ports.PromptSpec) (ports.JudgeResponse, error) {
	ctx, span := t.tracer.Start(ctx, "judge.invoke",
		trace.WithAttributes(
			attribute.String("judge.id", t.judge),
			attribute.String("judge.model", t.next.GetModel()),
			attribute.Int("judge.prompt.length", len(spec.System)+len(spec.User)),
		),
	)
	defer span.End()

	resp, err := t.next.DoRequest(ctx, spec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(ports.JudgeErrorKindOf(err)))
		return resp, err
	}

	span.SetAttributes(
		attribute.Int("judge.tokens.input", resp.TokensIn),
		attribute.Int("judge.tokens.output", resp.TokensOut),
	)
	return resp, nil
}

// GetModel returns the model name from the wrapped implementation.
func (t *tracedJudge) GetModel() string { return t.next.GetModel() }

// SetModel updates the model name in the wrapped implementation.
func (t *tracedJudge) SetModel(m string) { t.next.SetModel(m) }

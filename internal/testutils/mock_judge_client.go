// Package testutils provides deterministic judge doubles for exercising
// the validation pipeline without real providers.
package testutils

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ahrav/go-tribunal/internal/ports"
)

// MockJudgeClient implements the JudgeClient interface with scripted
// responses for consistent testing of panel orchestration, normalization,
// and consensus behavior. Scripted outcomes are consumed in order; the
// last outcome repeats once the script is exhausted.
type MockJudgeClient struct {
	mu      sync.Mutex
	model   string
	script  []scriptedOutcome
	cursor  int
	calls   int
	delay   time.Duration
	prompts []ports.PromptSpec
}

type scriptedOutcome struct {
	resp ports.JudgeResponse
	err  error
}

var _ ports.JudgeClient = (*MockJudgeClient)(nil)

// NewMockJudgeClient creates a mock judge reporting the given model name.
// With no scripted outcomes it returns a neutral approving verdict.
func NewMockJudgeClient(model string) *MockJudgeClient {
	return &MockJudgeClient{model: model}
}

// RespondWith appends a successful reply to the script. Token counts are
// estimated from the text so usage accounting paths stay exercised.
func (m *MockJudgeClient) RespondWith(text string) *MockJudgeClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scriptedOutcome{
		resp: ports.JudgeResponse{
			Text:      text,
			TokensIn:  120,
			TokensOut: len(text) / 4,
		},
	})
	return m
}

// FailWith appends a failure to the script.
func (m *MockJudgeClient) FailWith(err error) *MockJudgeClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scriptedOutcome{err: err})
	return m
}

// WithDelay makes every call sleep before responding, honoring context
// cancellation, so timeout behavior can be tested.
func (m *MockJudgeClient) WithDelay(d time.Duration) *MockJudgeClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// Invoke implements ports.JudgeClient.
func (m *MockJudgeClient) Invoke(ctx context.Context, spec ports.PromptSpec) (ports.JudgeResponse, error) {
	m.mu.Lock()
	m.calls++
	m.prompts = append(m.prompts, spec)
	delay := m.delay

	var outcome scriptedOutcome
	switch {
	case len(m.script) == 0:
		outcome = scriptedOutcome{resp: ports.JudgeResponse{
			Text:      `{"score": 75, "approved": true, "feedback": "Solid overall."}`,
			TokensIn:  120,
			TokensOut: 18,
		}}
	case m.cursor < len(m.script):
		outcome = m.script[m.cursor]
		m.cursor++
	default:
		outcome = m.script[len(m.script)-1]
	}
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return ports.JudgeResponse{}, fmt.Errorf("mock judge interrupted: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
	if err := ctx.Err(); err != nil {
		return ports.JudgeResponse{}, err
	}
	return outcome.resp, outcome.err
}

// Model implements ports.JudgeClient.
func (m *MockJudgeClient) Model() string { return m.model }

// Calls returns how many times Invoke has been called.
func (m *MockJudgeClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastPrompt returns the most recent prompt sent to the judge, or a zero
// value when no call has happened.
func (m *MockJudgeClient) LastPrompt() ports.PromptSpec {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ports.PromptSpec{}
	}
	return m.prompts[len(m.prompts)-1]
}

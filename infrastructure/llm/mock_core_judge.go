package llm

import (
	"context"
	"sync"

	"github.com/ahrav/go-tribunal/internal/ports"
)

// mockCoreJudge is a scriptable CoreJudge for middleware tests.
type mockCoreJudge struct {
	mu        sync.Mutex
	model     string
	responses []ports.JudgeResponse
	errs      []error
	calls     int

	// delay simulates a slow provider; the mock honors ctx cancellation.
	delay func(ctx context.Context) error
}

func newMockCoreJudge(model string) *mockCoreJudge {
	return &mockCoreJudge{model: model}
}

// script queues a response or error for each successive call. The last
// scripted outcome repeats once the script is exhausted.
func (m *mockCoreJudge) script(resp ports.JudgeResponse, err error) *mockCoreJudge {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
	m.errs = append(m.errs, err)
	return m
}

func (m *mockCoreJudge) DoRequest(ctx context.Context, spec ports.PromptSpec) (ports.JudgeResponse, error) {
	if m.delay != nil {
		if err := m.delay(ctx); err != nil {
			return ports.JudgeResponse{}, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.calls
	m.calls++
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	if idx < 0 {
		return ports.JudgeResponse{Text: "{}"}, nil
	}
	return m.responses[idx], m.errs[idx]
}

func (m *mockCoreJudge) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockCoreJudge) GetModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.model
}

func (m *mockCoreJudge) SetModel(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.model = model
}

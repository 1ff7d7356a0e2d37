package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tribunal/internal/domain"
	"github.com/ahrav/go-tribunal/internal/ports"
)

// registerMockFactory installs a factory producing the given mock under a
// unique provider name and removes it after the test.
func registerMockFactory(t *testing.T, name string, mock *mockCoreJudge) {
	t.Helper()
	RegisterProviderFactory(name, func(ClientConfig) (CoreJudge, error) {
		return mock, nil
	})
	t.Cleanup(func() { delete(providerFactories, name) })
}

// TestNewClientValidation verifies configuration errors surface at
// construction, not at call time.
func TestNewClientValidation(t *testing.T) {
	t.Run("empty api key", func(t *testing.T) {
		_, err := NewClient("openai", ClientConfig{Model: "gpt-4o"})
		assert.ErrorIs(t, err, ErrEmptyAPIKey)
	})

	t.Run("empty model", func(t *testing.T) {
		_, err := NewClient("openai", ClientConfig{APIKey: "key"})
		assert.Error(t, err)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewClient("no-such-provider", ClientConfig{APIKey: "key", Model: "m"})
		assert.Error(t, err)
	})
}

// TestNewClientInvoke verifies the assembled client forwards prompts to
// the provider core and returns its reply.
func TestNewClientInvoke(t *testing.T) {
	mock := newMockCoreJudge("mock-model").
		script(ports.JudgeResponse{Text: `{"score": 80}`, TokensIn: 100, TokensOut: 20}, nil)
	registerMockFactory(t, "mock-invoke", mock)

	client, err := NewClient("mock-invoke", ClientConfig{APIKey: "key", Model: "mock-model"})
	require.NoError(t, err)
	assert.Equal(t, "mock-model", client.Model())

	resp, err := client.Invoke(context.Background(), ports.PromptSpec{System: "sys", User: "user"})
	require.NoError(t, err)
	assert.Equal(t, `{"score": 80}`, resp.Text)
	assert.Equal(t, 20, resp.TokensOut)
}

// TestNewClientAlwaysEnforcesTimeout verifies the mandatory per-call
// deadline cuts off a hung provider even when no middleware is
// configured.
func TestNewClientAlwaysEnforcesTimeout(t *testing.T) {
	mock := newMockCoreJudge("mock-model")
	mock.delay = func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Second):
			return nil
		}
	}
	registerMockFactory(t, "mock-hung", mock)

	client, err := NewClient("mock-hung", ClientConfig{
		APIKey:  "key",
		Model:   "mock-model",
		Timeout: 30 * time.Millisecond,
	})
	require.NoError(t, err)

	start := time.Now()
	_, err = client.Invoke(context.Background(), ports.PromptSpec{User: "hi"})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Less(t, elapsed, 5*time.Second)
	assert.Equal(t, domain.JudgeErrUnavailable, ports.JudgeErrorKindOf(err))
}

// TestMiddlewareOrdering verifies configured middleware composes with the
// first entry outermost.
func TestMiddlewareOrdering(t *testing.T) {
	mock := newMockCoreJudge("mock-model").
		script(ports.JudgeResponse{Text: "{}"}, nil)
	registerMockFactory(t, "mock-order", mock)

	var order []string
	tag := func(name string) Middleware {
		return func(next CoreJudge) CoreJudge {
			return &taggedJudge{next: next, name: name, order: &order}
		}
	}

	client, err := NewClient("mock-order", ClientConfig{
		APIKey:     "key",
		Model:      "mock-model",
		Middleware: []Middleware{tag("first"), tag("second")},
	})
	require.NoError(t, err)

	_, err = client.Invoke(context.Background(), ports.PromptSpec{User: "hi"})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
}

type taggedJudge struct {
	next  CoreJudge
	name  string
	order *[]string
}

func (j *taggedJudge) DoRequest(ctx context.Context, spec ports.PromptSpec) (ports.JudgeResponse, error) {
	*j.order = append(*j.order, j.name)
	return j.next.DoRequest(ctx, spec)
}

func (j *taggedJudge) GetModel() string  { return j.next.GetModel() }
func (j *taggedJudge) SetModel(m string) { j.next.SetModel(m) }

package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ahrav/go-tribunal/internal/ports"
)

// CoreJudge is the minimal interface a judgment provider must implement.
// The middleware chain wraps any conforming implementation, so providers
// stay free of cross-cutting concerns.
type CoreJudge interface {
	// DoRequest sends the structured prompt to the provider and returns the
	// raw reply with token usage. Failures are *ProviderError values.
	DoRequest(ctx context.Context, spec ports.PromptSpec) (ports.JudgeResponse, error)

	// GetModel returns the currently configured model name.
	GetModel() string

	// SetModel updates the model for subsequent requests.
	SetModel(model string)
}

// Middleware wraps a CoreJudge to add cross-cutting behavior. Middleware
// composes in order; the first configured middleware is outermost.
type Middleware func(CoreJudge) CoreJudge

// ClientConfig holds all configuration for creating a judge client.
type ClientConfig struct {
	// APIKey authenticates requests to the provider.
	APIKey string

	// Model specifies which provider model to use.
	Model string

	// BaseURL overrides the provider's default endpoint; empty uses the
	// default.
	BaseURL string

	// Timeout bounds each judge call. Zero applies DefaultJudgeTimeout.
	// This is distinct from transport-level defaults: a hung provider must
	// not hang the whole panel.
	Timeout time.Duration

	// Middleware is applied in order around the provider core, after the
	// mandatory per-call timeout.
	Middleware []Middleware
}

// DefaultJudgeTimeout bounds one judge call when no timeout is configured.
const DefaultJudgeTimeout = 45 * time.Second

// Client implements ports.JudgeClient over a middleware-wrapped provider
// core.
type Client struct {
	core CoreJudge
}

var _ ports.JudgeClient = (*Client)(nil)

// NewClient assembles a judge client for the named provider type with the
// timeout and middleware chain applied. The per-call timeout middleware is
// always installed, outermost, so no composition can remove the bound.
func NewClient(providerType string, config ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}
	if config.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	factory, ok := providerFactories[providerType]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", providerType)
	}

	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	// Apply middleware in reverse order so the first configured middleware
	// is the outermost wrapper.
	for i := len(config.Middleware) - 1; i >= 0; i-- {
		core = config.Middleware[i](core)
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultJudgeTimeout
	}
	core = TimeoutMiddleware(timeout)(core)

	return &Client{core: core}, nil
}

// Invoke sends the prompt to the provider and returns the raw reply.
func (c *Client) Invoke(ctx context.Context, spec ports.PromptSpec) (ports.JudgeResponse, error) {
	return c.core.DoRequest(ctx, spec)
}

// Model returns the configured model name from the underlying provider.
func (c *Client) Model() string { return c.core.GetModel() }

// ProviderFactory creates a CoreJudge implementation from configuration.
type ProviderFactory func(ClientConfig) (CoreJudge, error)

// providerFactories registers provider constructors by type name.
var providerFactories = map[string]ProviderFactory{}

// RegisterProviderFactory registers a custom provider factory, enabling
// extension without modifying this package.
func RegisterProviderFactory(providerType string, factory ProviderFactory) {
	providerFactories[providerType] = factory
}

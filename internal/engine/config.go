package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"

	"github.com/ahrav/go-tribunal/infrastructure/llm"
	"github.com/ahrav/go-tribunal/internal/domain"
	"github.com/ahrav/go-tribunal/internal/panel"
	"github.com/ahrav/go-tribunal/internal/ports"
)

// Config holds everything needed to assemble an engine from the
// environment: judge provider credentials and models, timeouts, and the
// admission rate-limit window.
type Config struct {
	OpenAIAPIKey string `env:"OPENAI_API_KEY" validate:"required"`
	OpenAIModel  string `env:"OPENAI_MODEL,default=gpt-4o"`

	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY" validate:"required"`
	AnthropicModel  string `env:"ANTHROPIC_MODEL,default=claude-3-5-sonnet-20241022"`

	GoogleAPIKey string `env:"GOOGLE_API_KEY" validate:"required"`
	GoogleModel  string `env:"GOOGLE_MODEL,default=gemini-2.0-flash-exp"`

	// JudgeTimeout bounds every individual judge call.
	JudgeTimeout time.Duration `env:"JUDGE_TIMEOUT,default=45s" validate:"gt=0"`

	// RateLimitRequests admissions are allowed per RateLimitWindow per user.
	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS,default=10" validate:"min=1"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW,default=1m" validate:"gt=0"`

	// RedisAddr selects the Redis-backed store when set; empty runs on the
	// in-memory store.
	RedisAddr string `env:"REDIS_ADDR"`
}

// LoadConfig reads Config from the environment and validates it.
func LoadConfig(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, fmt.Errorf("processing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration's struct tags.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, err)
	}
	return nil
}

// BuildPanel constructs the fixed three-seat judge panel from the
// configured providers. Seat order is the dispatch and reporting order.
// Every seat carries tracing middleware; when metrics is non-nil each
// judge call is also recorded against it.
func (c Config) BuildPanel(metrics ports.MetricsCollector) ([]panel.Member, error) {
	seats := []struct {
		id       domain.JudgeID
		provider string
		apiKey   string
		model    string
	}{
		{domain.JudgeGPT, "openai", c.OpenAIAPIKey, c.OpenAIModel},
		{domain.JudgeClaude, "anthropic", c.AnthropicAPIKey, c.AnthropicModel},
		{domain.JudgeGemini, "google", c.GoogleAPIKey, c.GoogleModel},
	}

	members := make([]panel.Member, 0, len(seats))
	for _, seat := range seats {
		mw := []llm.Middleware{llm.TracingMiddleware(string(seat.id))}
		if metrics != nil {
			mw = append(mw, llm.MetricsMiddleware(metrics, string(seat.id)))
		}
		client, err := llm.NewClient(seat.provider, llm.ClientConfig{
			APIKey:     seat.apiKey,
			Model:      seat.model,
			Timeout:    c.JudgeTimeout,
			Middleware: mw,
		})
		if err != nil {
			return nil, fmt.Errorf("building %s client: %w", seat.id, err)
		}
		members = append(members, panel.Member{ID: seat.id, Client: client})
	}
	return members, nil
}

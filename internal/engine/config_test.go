package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tribunal/internal/domain"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "sk-test-openai")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test-anthropic")
	t.Setenv("GOOGLE_API_KEY", "test-google")
}

// TestLoadConfigDefaults verifies the environment defaults match the
// engine's operating assumptions.
func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", cfg.OpenAIModel)
	assert.Equal(t, "claude-3-5-sonnet-20241022", cfg.AnthropicModel)
	assert.Equal(t, "gemini-2.0-flash-exp", cfg.GoogleModel)
	assert.Equal(t, 45*time.Second, cfg.JudgeTimeout)
	assert.Equal(t, 10, cfg.RateLimitRequests)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
}

// TestLoadConfigMissingKey verifies a missing provider credential fails
// validation at startup rather than at dispatch time.
func TestLoadConfigMissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test-openai")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "test-google")

	_, err := LoadConfig(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

// TestBuildPanel verifies the configured providers assemble into the
// fixed three-seat panel in dispatch order.
func TestBuildPanel(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig(context.Background())
	require.NoError(t, err)

	members, err := cfg.BuildPanel(nil)
	require.NoError(t, err)
	require.Len(t, members, 3)

	assert.Equal(t, domain.JudgeGPT, members[0].ID)
	assert.Equal(t, domain.JudgeClaude, members[1].ID)
	assert.Equal(t, domain.JudgeGemini, members[2].ID)
	assert.Equal(t, "gpt-4o", members[0].Client.Model())
}

type noopCollector struct{}

func (noopCollector) RecordLatency(string, time.Duration, map[string]string) {}
func (noopCollector) RecordCounter(string, float64, map[string]string)       {}
func (noopCollector) RecordHistogram(string, float64, map[string]string)     {}

// TestBuildPanelWithMetrics verifies every seat assembles with per-judge
// telemetry middleware when a collector is supplied.
func TestBuildPanelWithMetrics(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig(context.Background())
	require.NoError(t, err)

	members, err := cfg.BuildPanel(noopCollector{})
	require.NoError(t, err)
	require.Len(t, members, 3)
	for _, m := range members {
		assert.NotNil(t, m.Client)
	}
}

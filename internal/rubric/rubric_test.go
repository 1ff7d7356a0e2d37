package rubric

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tribunal/internal/domain"
)

func validConfig() Config {
	return Config{
		ID:           domain.RubricIdeaScreening,
		Name:         "Idea Screening",
		ScaleMin:     0,
		ScaleMax:     100,
		Tolerance:    5,
		FixedCost:    1500,
		SystemPrompt: "You are a pragmatic startup analyst scoring raw ideas.",
		UserTemplate: "Idea: {{.Title}}\n\n{{.Description}}\n\n{{.Context}}",
		MaxTokens:    800,
	}
}

// TestNewValidation verifies invalid configurations are rejected at
// compile time, never at request time.
func TestNewValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "missing id", mutate: func(c *Config) { c.ID = "" }},
		{name: "inverted scale", mutate: func(c *Config) { c.ScaleMin = 100; c.ScaleMax = 0 }},
		{name: "zero tolerance", mutate: func(c *Config) { c.Tolerance = 0 }},
		{name: "zero cost", mutate: func(c *Config) { c.FixedCost = 0 }},
		{name: "short system prompt", mutate: func(c *Config) { c.SystemPrompt = "judge it" }},
		{name: "excessive max tokens", mutate: func(c *Config) { c.MaxTokens = 100000 }},
		{name: "broken template", mutate: func(c *Config) { c.UserTemplate = "Idea: {{.Title" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			_, err := New(cfg)
			assert.Error(t, err)
		})
	}

	_, err := New(validConfig())
	assert.NoError(t, err)
}

// TestClampAndContains verifies the score bound helpers.
func TestClampAndContains(t *testing.T) {
	r, err := New(validConfig())
	require.NoError(t, err)

	assert.Equal(t, 100.0, r.Clamp(130))
	assert.Equal(t, 0.0, r.Clamp(-5))
	assert.Equal(t, 42.0, r.Clamp(42))

	assert.True(t, r.Contains(0))
	assert.True(t, r.Contains(100))
	assert.False(t, r.Contains(100.1))
}

// TestBuildPrompt verifies the rendered prompt carries the request
// content, the format instruction, and deterministic context ordering.
func TestBuildPrompt(t *testing.T) {
	r, err := New(validConfig())
	require.NoError(t, err)

	req := domain.ValidationRequest{
		SubjectID:   "idea-1",
		OwnerID:     "user-1",
		Title:       "Rooftop beekeeping kits",
		Description: "Turnkey hives for urban buildings.",
		Context: map[string]string{
			"market":  "urban sustainability",
			"budget":  "50k",
			"founder": "solo",
		},
		Rubric: domain.RubricIdeaScreening,
	}

	spec, err := r.BuildPrompt(req)
	require.NoError(t, err)

	assert.Contains(t, spec.System, "startup analyst")
	assert.Contains(t, spec.System, `"score"`)
	assert.Contains(t, spec.System, `"approved"`)
	assert.Contains(t, spec.User, "Rooftop beekeeping kits")
	assert.Contains(t, spec.User, "Turnkey hives")
	assert.Equal(t, 800, spec.MaxTokens)
	require.NotNil(t, spec.Temperature)
	assert.Zero(t, *spec.Temperature, "judges run at temperature zero for stable scoring")

	// Context keys render sorted so identical requests produce identical
	// prompts.
	budgetIdx := strings.Index(spec.User, "budget:")
	founderIdx := strings.Index(spec.User, "founder:")
	marketIdx := strings.Index(spec.User, "market:")
	require.NotEqual(t, -1, budgetIdx)
	assert.Less(t, budgetIdx, founderIdx)
	assert.Less(t, founderIdx, marketIdx)
}

// TestFormatInstructionSubReports verifies rubrics requesting structured
// sub-reports ask for them in the response shape.
func TestFormatInstructionSubReports(t *testing.T) {
	cfg := validConfig()
	cfg.WantSWOT = true
	cfg.WantFiveForces = true

	r, err := New(cfg)
	require.NoError(t, err)

	spec, err := r.BuildPrompt(domain.ValidationRequest{
		Title: "x", Description: "y",
	})
	require.NoError(t, err)

	assert.Contains(t, spec.System, `"swot"`)
	assert.Contains(t, spec.System, `"five_forces"`)
}

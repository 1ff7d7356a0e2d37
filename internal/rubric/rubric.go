// Package rubric defines the judgment rubrics a validation panel can apply:
// the score bounds, fixed token cost, agreement tolerance, and prompt
// templates for each validation context.
package rubric

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-tribunal/internal/domain"
	"github.com/ahrav/go-tribunal/internal/ports"
)

// Package-level validator instance for rubric configuration validation.
var validate = validator.New()

// Config declares one rubric. All fields are validated at registration;
// a registry never holds an invalid rubric.
type Config struct {
	// ID is the rubric selector carried by validation requests.
	ID domain.RubricID `yaml:"id" validate:"required"`

	// Name is the human-readable rubric name.
	Name string `yaml:"name" validate:"required,min=3,max=120"`

	// ScaleMin and ScaleMax bound judge scores. The bounds are a
	// business-policy decision per rubric (0-100 for screening, 0-10 for
	// phase review) and drive clamping in the normalizer.
	ScaleMin float64 `yaml:"scale_min"`
	ScaleMax float64 `yaml:"scale_max" validate:"gtfield=ScaleMin"`

	// Tolerance is the half-width of the agreement band: every usable
	// score within Tolerance of the aggregate means "high" agreement.
	Tolerance float64 `yaml:"tolerance" validate:"gt=0"`

	// FixedCost is the token amount debited for one run under this rubric.
	// Admission pre-flight checks balance against it before any judge is
	// invoked.
	FixedCost int64 `yaml:"fixed_cost" validate:"min=1"`

	// SystemPrompt is the judge's role and criteria instruction.
	SystemPrompt string `yaml:"system_prompt" validate:"required,min=20"`

	// UserTemplate is a Go template over the ValidationRequest producing
	// the user message. It may reference {{.Title}}, {{.Description}}, and
	// {{.Context}}.
	UserTemplate string `yaml:"user_template" validate:"required,min=10"`

	// MaxTokens bounds judge reply length for this rubric.
	MaxTokens int `yaml:"max_tokens" validate:"min=50,max=4000"`

	// WantSWOT and WantFiveForces request the structured sub-reports from
	// judges; the format instruction and normalizer honor them.
	WantSWOT       bool `yaml:"want_swot"`
	WantFiveForces bool `yaml:"want_five_forces"`
}

// Rubric is a validated, compiled rubric ready for prompt building.
type Rubric struct {
	cfg          Config
	userTemplate *template.Template
}

// New compiles and validates a rubric from its configuration.
func New(cfg Config) (*Rubric, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("rubric %s: configuration validation failed: %w", cfg.ID, err)
	}

	tmpl, err := template.New(string(cfg.ID)).Parse(cfg.UserTemplate)
	if err != nil {
		return nil, fmt.Errorf("rubric %s: failed to parse user template: %w", cfg.ID, err)
	}

	return &Rubric{cfg: cfg, userTemplate: tmpl}, nil
}

// ID returns the rubric selector.
func (r *Rubric) ID() domain.RubricID { return r.cfg.ID }

// Name returns the human-readable rubric name.
func (r *Rubric) Name() string { return r.cfg.Name }

// ScaleMin returns the lower score bound.
func (r *Rubric) ScaleMin() float64 { return r.cfg.ScaleMin }

// ScaleMax returns the upper score bound.
func (r *Rubric) ScaleMax() float64 { return r.cfg.ScaleMax }

// Tolerance returns the agreement band half-width.
func (r *Rubric) Tolerance() float64 { return r.cfg.Tolerance }

// FixedCost returns the token cost of one run under this rubric.
func (r *Rubric) FixedCost() int64 { return r.cfg.FixedCost }

// WantSWOT reports whether judges are asked for a SWOT sub-report.
func (r *Rubric) WantSWOT() bool { return r.cfg.WantSWOT }

// WantFiveForces reports whether judges are asked for a five-forces
// sub-report.
func (r *Rubric) WantFiveForces() bool { return r.cfg.WantFiveForces }

// Clamp forces a score into the rubric's bounds.
func (r *Rubric) Clamp(score float64) float64 {
	if score < r.cfg.ScaleMin {
		return r.cfg.ScaleMin
	}
	if score > r.cfg.ScaleMax {
		return r.cfg.ScaleMax
	}
	return score
}

// Contains reports whether a score lies within the rubric's bounds.
func (r *Rubric) Contains(score float64) bool {
	return score >= r.cfg.ScaleMin && score <= r.cfg.ScaleMax
}

// BuildPrompt renders the structured prompt for one judge call. The system
// instruction carries the rubric role plus the strict response format; the
// user message carries the serialized request content.
func (r *Rubric) BuildPrompt(req domain.ValidationRequest) (ports.PromptSpec, error) {
	var buf bytes.Buffer
	if err := r.userTemplate.Execute(&buf, promptData(req)); err != nil {
		return ports.PromptSpec{}, fmt.Errorf("rubric %s: failed to execute user template: %w", r.cfg.ID, err)
	}

	zero := 0.0
	return ports.PromptSpec{
		System:      r.cfg.SystemPrompt + "\n\n" + r.formatInstruction(),
		User:        buf.String(),
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: &zero,
	}, nil
}

// promptData flattens the request's context map into stable "key: value"
// lines so templates interpolate deterministically.
func promptData(req domain.ValidationRequest) map[string]string {
	keys := make([]string, 0, len(req.Context))
	for k := range req.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var ctx strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&ctx, "%s: %s\n", k, req.Context[k])
	}

	return map[string]string{
		"Title":       req.Title,
		"Description": req.Description,
		"Context":     ctx.String(),
	}
}

// formatInstruction tells the judge exactly what JSON shape to return.
// The normalizer repairs minor defects, but a strict instruction keeps the
// repair path rare.
func (r *Rubric) formatInstruction() string {
	fields := []string{
		`"score": <number between ` + fmt.Sprintf("%.0f and %.0f", r.cfg.ScaleMin, r.cfg.ScaleMax) + `>`,
		`"approved": <true or false>`,
		`"feedback": "<your reasoning>"`,
	}
	if r.cfg.WantSWOT {
		fields = append(fields, `"swot": {"strengths": [..], "weaknesses": [..], "opportunities": [..], "threats": [..]}`)
	}
	if r.cfg.WantFiveForces {
		fields = append(fields, `"five_forces": {"competitive_rivalry": "..", "supplier_power": "..", "buyer_power": "..", "threat_of_substitution": "..", "threat_of_new_entry": ".."}`)
	}
	return "IMPORTANT: Respond with a single JSON object in exactly this format, with no surrounding prose:\n{" +
		strings.Join(fields, ", ") + "}"
}

package rubric

import (
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-tribunal/internal/domain"
)

// Registry holds the rubrics a deployment supports, keyed by RubricID.
// It is safe for concurrent use; registration normally happens once at
// startup.
type Registry struct {
	mu      sync.RWMutex
	rubrics map[domain.RubricID]*Rubric
}

// NewRegistry creates an empty rubric registry.
func NewRegistry() *Registry {
	return &Registry{rubrics: make(map[domain.RubricID]*Rubric)}
}

// Register validates, compiles, and stores a rubric. Re-registering an ID
// replaces the previous rubric.
func (reg *Registry) Register(cfg Config) error {
	r, err := New(cfg)
	if err != nil {
		return err
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.rubrics[cfg.ID] = r
	return nil
}

// Get returns the rubric for the given ID.
func (reg *Registry) Get(id domain.RubricID) (*Rubric, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	r, ok := reg.rubrics[id]
	if !ok {
		return nil, fmt.Errorf("%w: unknown rubric %q", domain.ErrInvalidConfiguration, id)
	}
	return r, nil
}

// IDs returns the registered rubric IDs in unspecified order.
func (reg *Registry) IDs() []domain.RubricID {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	ids := make([]domain.RubricID, 0, len(reg.rubrics))
	for id := range reg.rubrics {
		ids = append(ids, id)
	}
	return ids
}

// rubricFile is the YAML document shape for rubric configuration files.
type rubricFile struct {
	Rubrics []Config `yaml:"rubrics"`
}

// LoadYAML registers every rubric from a YAML document. Loading stops at
// the first invalid rubric so a partially applied file never goes live.
func (reg *Registry) LoadYAML(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read rubric config: %w", err)
	}

	var file rubricFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse rubric config: %w", err)
	}
	if len(file.Rubrics) == 0 {
		return fmt.Errorf("%w: rubric config declares no rubrics", domain.ErrInvalidConfiguration)
	}

	for _, cfg := range file.Rubrics {
		if err := reg.Register(cfg); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile registers every rubric from a YAML file on disk.
func (reg *Registry) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open rubric config: %w", err)
	}
	defer f.Close()
	return reg.LoadYAML(f)
}

// DefaultRegistry returns a registry pre-loaded with the built-in rubrics.
// The scale bounds, tolerances, and fixed costs here are business policy,
// not implementation detail; changing them changes what results mean.
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	for _, cfg := range defaultConfigs() {
		if err := reg.Register(cfg); err != nil {
			// Built-in configs are covered by tests; a failure here is a
			// programming error, not an input error.
			panic(fmt.Sprintf("rubric: invalid built-in config %s: %v", cfg.ID, err))
		}
	}
	return reg
}

func defaultConfigs() []Config {
	return []Config{
		{
			ID:        domain.RubricIdeaScreening,
			Name:      "Startup idea screening",
			ScaleMin:  0,
			ScaleMax:  100,
			Tolerance: 5,
			FixedCost: 1500,
			SystemPrompt: "You are a seasoned venture analyst on an independent review panel. " +
				"Judge the startup idea below on market need, differentiation, feasibility, " +
				"and timing. Score 0-100 and approve only ideas worth a founder's next six months.",
			UserTemplate: "Idea: {{.Title}}\n\n{{.Description}}\n\n{{if .Context}}Additional context:\n{{.Context}}{{end}}",
			MaxTokens:    800,
		},
		{
			ID:        domain.RubricPhaseReview,
			Name:      "Phase deliverable review",
			ScaleMin:  0,
			ScaleMax:  10,
			Tolerance: 2,
			FixedCost: 800,
			SystemPrompt: "You are reviewing one phase deliverable of a startup validation program. " +
				"Judge completeness, evidence quality, and whether the deliverable supports moving " +
				"to the next phase. Score 0-10 and approve only work that meets the phase bar.",
			UserTemplate: "Deliverable: {{.Title}}\n\n{{.Description}}\n\n{{if .Context}}Phase context:\n{{.Context}}{{end}}",
			MaxTokens:    600,
		},
		{
			ID:        domain.RubricBusinessResearch,
			Name:      "Business research assessment",
			ScaleMin:  0,
			ScaleMax:  100,
			Tolerance: 5,
			FixedCost: 2500,
			SystemPrompt: "You are a strategy consultant assessing a business-research payload. " +
				"Judge the rigor of the research and the viability of the underlying business. " +
				"Score 0-100, approve only defensible positions, and include the requested " +
				"structured analyses.",
			UserTemplate: "Research subject: {{.Title}}\n\n{{.Description}}\n\n{{if .Context}}Research inputs:\n{{.Context}}{{end}}",
			MaxTokens:      1600,
			WantSWOT:       true,
			WantFiveForces: true,
		},
	}
}

package domain

// RubricID names a registered judgment rubric. The rubric fixes the
// scoring scale, the panel prompt, and the run's fixed token cost.
type RubricID string

const (
	// RubricIdeaScreening scores a raw idea for viability on a 0-100 scale.
	RubricIdeaScreening RubricID = "idea_screening"

	// RubricPhaseReview scores completed phase work on a 0-10 scale.
	RubricPhaseReview RubricID = "phase_review"

	// RubricBusinessResearch scores research depth on a 0-100 scale and
	// asks the panel for SWOT and five-forces sub-reports.
	RubricBusinessResearch RubricID = "business_research"
)

// ValidationRequest is one caller submission: a subject record to be
// judged by the full panel under a named rubric.
type ValidationRequest struct {
	// SubjectID identifies the record under judgment.
	SubjectID string `json:"subject_id" validate:"required"`

	// OwnerID identifies the authenticated caller; the subject must belong
	// to them.
	OwnerID string `json:"owner_id" validate:"required"`

	// Title is the subject's short name, included in the judge prompt.
	Title string `json:"title" validate:"required,max=500"`

	// Description is the content under judgment.
	Description string `json:"description" validate:"required"`

	// Context carries optional supplementary fields, rendered into the
	// prompt sorted by key so prompts are deterministic.
	Context map[string]string `json:"context,omitempty"`

	// Rubric selects the registered rubric to judge under.
	Rubric RubricID `json:"rubric" validate:"required"`
}

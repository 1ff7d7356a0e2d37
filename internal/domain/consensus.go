package domain

import "time"

// AgreementLevel qualifies how tightly the usable verdicts cluster around
// the aggregate score.
type AgreementLevel string

const (
	// AgreementHigh means every usable score is within the rubric's
	// tolerance of the aggregate score.
	AgreementHigh AgreementLevel = "high"

	// AgreementModerate means at least one usable score falls outside the
	// tolerance band.
	AgreementModerate AgreementLevel = "moderate"
)

// ConsensusResult is the engine's durable output for one validation run.
//
// Invariants:
//   - AggregateScore and Consensus are derived only from verdicts with
//     Success=true; failed judges contribute zero weight and never drag
//     the average down as silent zeros.
//   - Consensus requires approvals >= majority of the fixed panel size,
//     not of the usable count.
type ConsensusResult struct {
	// ID uniquely identifies this result (a UUID assigned at creation).
	ID string `json:"id"`

	// SubjectID links the result back to the judged record.
	SubjectID string `json:"subject_id"`

	// Rubric records which rubric the panel applied.
	Rubric RubricID `json:"rubric"`

	// Verdicts lists every panel member's verdict in dispatch order,
	// including failed entries for audit. Order is presentational only;
	// aggregation is order-independent.
	Verdicts []JudgeVerdict `json:"verdicts"`

	// UsableCount is the number of verdicts with Success=true.
	UsableCount int `json:"usable_count"`

	// AggregateScore is round(mean(usable scores)).
	AggregateScore int `json:"aggregate_score"`

	// Consensus reports whether enough judges approved, per the
	// majority-over-fixed-panel-size rule.
	Consensus bool `json:"consensus"`

	// Agreement qualifies score dispersion among usable verdicts.
	Agreement AgreementLevel `json:"agreement"`

	// Timestamp records when the result was produced.
	Timestamp time.Time `json:"timestamp"`
}

// Usable returns the verdicts that participate in aggregation.
func (r *ConsensusResult) Usable() []JudgeVerdict {
	usable := make([]JudgeVerdict, 0, len(r.Verdicts))
	for _, v := range r.Verdicts {
		if v.Success {
			usable = append(usable, v)
		}
	}
	return usable
}

// TokensUsed sums provider-reported token usage across all verdicts,
// including failed ones. Used for actual-cost bookkeeping alongside the
// rubric's fixed cost.
func (r *ConsensusResult) TokensUsed() int {
	total := 0
	for _, v := range r.Verdicts {
		total += v.TokensIn + v.TokensOut
	}
	return total
}

package domain

// JudgeID identifies one member of the fixed judging panel.
// The panel composition is set at engine construction; judges outside
// this enum never appear in a verdict.
type JudgeID string

// The three named panel members. Each maps to an external provider
// configured in the infrastructure layer.
const (
	JudgeGPT    JudgeID = "gpt"
	JudgeClaude JudgeID = "claude"
	JudgeGemini JudgeID = "gemini"
)

// JudgeErrorKind classifies why a single judge call failed.
// The classification decides caller retry policy; the engine itself
// records failures as data and never retries mid-run.
type JudgeErrorKind string

const (
	// JudgeErrUnavailable covers timeouts, network failures, and 5xx
	// responses. Retryable by caller policy.
	JudgeErrUnavailable JudgeErrorKind = "unavailable"

	// JudgeErrRateLimited covers provider 429 responses. Retryable after
	// backoff.
	JudgeErrRateLimited JudgeErrorKind = "rate_limited"

	// JudgeErrQuotaExceeded covers 402 and billing failures. Not retryable.
	JudgeErrQuotaExceeded JudgeErrorKind = "quota_exceeded"

	// JudgeErrMalformed covers 2xx responses whose body could not be
	// normalized into a verdict even after textual repair.
	JudgeErrMalformed JudgeErrorKind = "malformed"
)

// JudgeFailure records why a judge produced no usable verdict.
// Detail is logged server-side only; callers see the Kind.
type JudgeFailure struct {
	// Kind is the closed-vocabulary classification of the failure.
	Kind JudgeErrorKind `json:"kind"`

	// Detail is the raw provider or parse error text. Never returned to
	// callers.
	Detail string `json:"-"`
}

// SWOTReport is a structured sub-report some rubrics request from judges.
type SWOTReport struct {
	Strengths     []string `json:"strengths"`
	Weaknesses    []string `json:"weaknesses"`
	Opportunities []string `json:"opportunities"`
	Threats       []string `json:"threats"`
}

// FiveForcesReport captures a Porter five-forces sub-report.
type FiveForcesReport struct {
	CompetitiveRivalry   string `json:"competitive_rivalry"`
	SupplierPower        string `json:"supplier_power"`
	BuyerPower           string `json:"buyer_power"`
	ThreatOfSubstitution string `json:"threat_of_substitution"`
	ThreatOfNewEntry     string `json:"threat_of_new_entry"`
}

// SubReports holds the rubric-dependent structured sections of a verdict.
// Absent sections are nil.
type SubReports struct {
	SWOT       *SWOTReport       `json:"swot,omitempty"`
	FiveForces *FiveForcesReport `json:"five_forces,omitempty"`
}

// JudgeVerdict is one judge's opinion about a ValidationRequest.
// Verdicts live only for the duration of one run; the full list, including
// failed entries, is embedded in the ConsensusResult for audit.
//
// Invariant: when Success is false, Score and Approved carry no meaning and
// must contribute zero weight to aggregation.
type JudgeVerdict struct {
	// Judge identifies which panel member produced this verdict.
	Judge JudgeID `json:"judge"`

	// Success reports whether the judge returned a normalizable opinion.
	Success bool `json:"success"`

	// Score is the numeric score within the rubric's declared bounds.
	Score float64 `json:"score"`

	// Approved is the judge's boolean approval of the content.
	Approved bool `json:"approved"`

	// Feedback is the judge's free-text reasoning.
	Feedback string `json:"feedback,omitempty"`

	// Reports holds rubric-dependent structured sub-reports.
	Reports SubReports `json:"reports,omitempty"`

	// Degraded marks a verdict whose score was out of the rubric bounds
	// and was clamped rather than discarded.
	Degraded bool `json:"degraded,omitempty"`

	// Failure describes why the judge produced no usable opinion.
	// Nil when Success is true.
	Failure *JudgeFailure `json:"failure,omitempty"`

	// LatencyMs measures the judge call duration in milliseconds.
	LatencyMs int64 `json:"latency_ms"`

	// TokensIn and TokensOut record provider-reported token usage for
	// actual-cost accounting. Zero when the provider reports no usage.
	TokensIn  int `json:"tokens_in,omitempty"`
	TokensOut int `json:"tokens_out,omitempty"`
}

// FailedVerdict builds the audit entry for a judge that produced no usable
// opinion. The zero score carries no weight in aggregation.
func FailedVerdict(judge JudgeID, kind JudgeErrorKind, detail string, latencyMs int64) JudgeVerdict {
	return JudgeVerdict{
		Judge:     judge,
		Success:   false,
		Failure:   &JudgeFailure{Kind: kind, Detail: detail},
		LatencyMs: latencyMs,
	}
}

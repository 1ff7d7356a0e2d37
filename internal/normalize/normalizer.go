package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/ahrav/go-tribunal/internal/domain"
	"github.com/ahrav/go-tribunal/internal/rubric"
)

// wireVerdict is the untrusted shape decoded from repaired judge output.
// Field aliases cover the drift real judges exhibit: "reasoning" for
// feedback, a "verdict" word instead of an "approved" boolean.
type wireVerdict struct {
	Score      *float64                 `json:"score"`
	Approved   any                      `json:"approved"`
	Verdict    string                   `json:"verdict"`
	Feedback   string                   `json:"feedback"`
	Reasoning  string                   `json:"reasoning"`
	SWOT       *domain.SWOTReport       `json:"swot"`
	FiveForces *domain.FiveForcesReport `json:"five_forces"`
}

// Normalize parses one judge's raw text into a JudgeVerdict under the
// given rubric. Malformed output from one judge must never abort the
// panel, so total parse failure yields a verdict with Success=false and a
// Malformed failure reason rather than an error.
//
// Out-of-bounds scores are clamped to the rubric scale and the verdict is
// flagged Degraded instead of being discarded.
func Normalize(judge domain.JudgeID, raw string, r *rubric.Rubric) domain.JudgeVerdict {
	candidate := Repair(raw)
	if candidate == "" {
		return domain.FailedVerdict(judge, domain.JudgeErrMalformed,
			fmt.Sprintf("no JSON object found in response (%d chars)", len(raw)), 0)
	}

	var wire wireVerdict
	if err := json.Unmarshal([]byte(candidate), &wire); err != nil {
		return domain.FailedVerdict(judge, domain.JudgeErrMalformed,
			fmt.Sprintf("JSON parse failed after repair: %v", err), 0)
	}

	if wire.Score == nil {
		return domain.FailedVerdict(judge, domain.JudgeErrMalformed,
			"response is missing required field \"score\"", 0)
	}

	approved, ok := resolveApproval(wire)
	if !ok {
		return domain.FailedVerdict(judge, domain.JudgeErrMalformed,
			"response is missing a usable approval field", 0)
	}

	score := *wire.Score
	degraded := false
	if !r.Contains(score) {
		score = r.Clamp(score)
		degraded = true
	}

	feedback := wire.Feedback
	if feedback == "" {
		feedback = wire.Reasoning
	}

	return domain.JudgeVerdict{
		Judge:    judge,
		Success:  true,
		Score:    score,
		Approved: approved,
		Feedback: StripControlChars(feedback),
		Reports: domain.SubReports{
			SWOT:       wire.SWOT,
			FiveForces: wire.FiveForces,
		},
		Degraded: degraded,
	}
}

// approvalWords maps canonical verdict words to their boolean meaning.
// Near-miss spellings within edit distance 2 are accepted, so "aproved"
// or "rejcted" still resolve.
var approvalWords = map[string]bool{
	"approved": true,
	"approve":  true,
	"yes":      true,
	"true":     true,
	"accept":   true,
	"accepted": true,
	"rejected": false,
	"reject":   false,
	"no":       false,
	"false":    false,
	"denied":   false,
	"declined": false,
}

// resolveApproval extracts the approval decision from the wire verdict,
// accepting a boolean, a verdict word, or a near-miss spelling of one.
func resolveApproval(wire wireVerdict) (bool, bool) {
	switch v := wire.Approved.(type) {
	case bool:
		return v, true
	case string:
		if b, ok := matchApprovalWord(v); ok {
			return b, true
		}
	}

	if wire.Verdict != "" {
		return matchApprovalWord(wire.Verdict)
	}
	return false, false
}

// matchApprovalWord fuzzy-matches a verdict word against the canonical
// vocabulary. Very short words must match exactly; edit distance 2 on
// "no" would accept almost anything.
func matchApprovalWord(word string) (bool, bool) {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return false, false
	}

	if meaning, ok := approvalWords[word]; ok {
		return meaning, true
	}

	best := ""
	bestDist := 3
	for canonical := range approvalWords {
		if len(canonical) < 5 {
			continue
		}
		if d := levenshtein.ComputeDistance(word, canonical); d < bestDist {
			bestDist = d
			best = canonical
		}
	}
	if best == "" {
		return false, false
	}
	return approvalWords[best], true
}

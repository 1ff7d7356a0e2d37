// Package consensus aggregates panel verdicts into a single consensus
// result using majority voting over the fixed panel size.
package consensus

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/ahrav/go-tribunal/internal/domain"
	"github.com/ahrav/go-tribunal/internal/rubric"
)

// Calculator computes consensus over a panel of a fixed size. The size is
// fixed at construction: the approval threshold is a strict majority of
// the full panel, never of however many judges happened to respond.
type Calculator struct {
	panelSize int
	majority  int
}

// NewCalculator creates a calculator for a panel of the given fixed size.
func NewCalculator(panelSize int) (*Calculator, error) {
	if panelSize < 1 {
		return nil, fmt.Errorf("panel size must be at least 1, got %d", panelSize)
	}
	return &Calculator{
		panelSize: panelSize,
		majority:  panelSize/2 + 1,
	}, nil
}

// Majority returns the approval count required for consensus.
func (c *Calculator) Majority() int { return c.majority }

// Aggregate folds the panel's verdicts into a ConsensusResult.
//
// The aggregate score is the rounded mean of usable (successful) verdict
// scores. Consensus holds iff the usable approvals reach a strict
// majority of the fixed panel size. Agreement is high when every usable
// score sits within the rubric's tolerance of the aggregate, moderate
// otherwise. The computation is order-independent: permuting verdicts
// changes nothing but the stored ordering.
//
// Zero usable verdicts means there is nothing to aggregate; the run must
// be rejected, not committed, so ErrNoJudgesAvailable is returned.
func (c *Calculator) Aggregate(req domain.ValidationRequest, r *rubric.Rubric, verdicts []domain.JudgeVerdict) (domain.ConsensusResult, error) {
	if len(verdicts) != c.panelSize {
		return domain.ConsensusResult{}, fmt.Errorf(
			"expected %d verdicts for panel, got %d", c.panelSize, len(verdicts))
	}

	var (
		usable    int
		approvals int
		scoreSum  float64
	)
	for _, v := range verdicts {
		if !v.Success {
			continue
		}
		usable++
		scoreSum += v.Score
		if v.Approved {
			approvals++
		}
	}

	if usable == 0 {
		return domain.ConsensusResult{}, domain.ErrNoJudgesAvailable
	}

	aggregate := int(math.Round(scoreSum / float64(usable)))

	agreement := domain.AgreementHigh
	tolerance := r.Tolerance()
	for _, v := range verdicts {
		if !v.Success {
			continue
		}
		if math.Abs(v.Score-float64(aggregate)) > tolerance {
			agreement = domain.AgreementModerate
			break
		}
	}

	return domain.ConsensusResult{
		ID:             uuid.NewString(),
		SubjectID:      req.SubjectID,
		Rubric:         req.Rubric,
		Verdicts:       verdicts,
		UsableCount:    usable,
		AggregateScore: aggregate,
		Consensus:      approvals >= c.majority,
		Agreement:      agreement,
		Timestamp:      time.Now().UTC(),
	}, nil
}

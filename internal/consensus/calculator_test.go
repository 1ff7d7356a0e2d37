package consensus

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tribunal/internal/domain"
	"github.com/ahrav/go-tribunal/internal/rubric"
)

func testRubric(t *testing.T) *rubric.Rubric {
	t.Helper()
	r, err := rubric.New(rubric.Config{
		ID:           domain.RubricIdeaScreening,
		Name:         "Idea Screening",
		ScaleMin:     0,
		ScaleMax:     100,
		Tolerance:    5,
		FixedCost:    1500,
		SystemPrompt: "You are a pragmatic startup analyst scoring raw ideas.",
		UserTemplate: "Title: {{.Title}}\n{{.Description}}",
		MaxTokens:    800,
	})
	require.NoError(t, err)
	return r
}

func testRequest() domain.ValidationRequest {
	return domain.ValidationRequest{
		SubjectID:   "idea-1",
		OwnerID:     "user-1",
		Title:       "Solar-powered delivery drones",
		Description: "Drone fleet with panel-assisted range extension.",
		Rubric:      domain.RubricIdeaScreening,
	}
}

func okVerdict(judge domain.JudgeID, score float64, approved bool) domain.JudgeVerdict {
	return domain.JudgeVerdict{Judge: judge, Success: true, Score: score, Approved: approved}
}

// TestNewCalculator verifies the majority threshold derives from the
// fixed panel size set at construction.
func TestNewCalculator(t *testing.T) {
	tests := []struct {
		panelSize    int
		wantMajority int
	}{
		{panelSize: 1, wantMajority: 1},
		{panelSize: 3, wantMajority: 2},
		{panelSize: 5, wantMajority: 3},
	}

	for _, tt := range tests {
		calc, err := NewCalculator(tt.panelSize)
		require.NoError(t, err)
		assert.Equal(t, tt.wantMajority, calc.Majority())
	}

	_, err := NewCalculator(0)
	assert.Error(t, err)
}

// TestAggregateTwoOfThree covers the canonical partial-panel run: two
// judges succeed and approve, one times out. Two approvals meet the
// majority of a three-seat panel, so consensus holds.
func TestAggregateTwoOfThree(t *testing.T) {
	calc, err := NewCalculator(3)
	require.NoError(t, err)

	verdicts := []domain.JudgeVerdict{
		okVerdict(domain.JudgeGPT, 80, true),
		domain.FailedVerdict(domain.JudgeClaude, domain.JudgeErrUnavailable, "request timed out", 45000),
		okVerdict(domain.JudgeGemini, 60, true),
	}

	result, err := calc.Aggregate(testRequest(), testRubric(t), verdicts)
	require.NoError(t, err)

	assert.Equal(t, 2, result.UsableCount)
	assert.Equal(t, 70, result.AggregateScore)
	assert.True(t, result.Consensus, "2 approvals meet the majority of panel size 3")
	assert.Len(t, result.Verdicts, 3, "failed verdicts stay in the audit trail")
}

// TestAggregateSingleApprovalIsNotConsensus verifies the threshold uses
// the fixed panel size, not the usable count: one surviving judge cannot
// carry a three-seat panel even with a 100% approval rate among usable
// verdicts.
func TestAggregateSingleApprovalIsNotConsensus(t *testing.T) {
	calc, err := NewCalculator(3)
	require.NoError(t, err)

	verdicts := []domain.JudgeVerdict{
		okVerdict(domain.JudgeGPT, 90, true),
		domain.FailedVerdict(domain.JudgeClaude, domain.JudgeErrUnavailable, "connection refused", 120),
		domain.FailedVerdict(domain.JudgeGemini, domain.JudgeErrRateLimited, "429", 80),
	}

	result, err := calc.Aggregate(testRequest(), testRubric(t), verdicts)
	require.NoError(t, err)

	assert.Equal(t, 1, result.UsableCount)
	assert.Equal(t, 90, result.AggregateScore)
	assert.False(t, result.Consensus)
}

// TestAggregateNoUsableVerdicts verifies a fully failed panel rejects
// the run instead of committing anything.
func TestAggregateNoUsableVerdicts(t *testing.T) {
	calc, err := NewCalculator(3)
	require.NoError(t, err)

	verdicts := []domain.JudgeVerdict{
		domain.FailedVerdict(domain.JudgeGPT, domain.JudgeErrUnavailable, "timeout", 45000),
		domain.FailedVerdict(domain.JudgeClaude, domain.JudgeErrQuotaExceeded, "402", 90),
		domain.FailedVerdict(domain.JudgeGemini, domain.JudgeErrMalformed, "no JSON found", 800),
	}

	_, err = calc.Aggregate(testRequest(), testRubric(t), verdicts)
	assert.ErrorIs(t, err, domain.ErrNoJudgesAvailable)
}

// TestAggregateRejections verifies a majority of rejections blocks
// consensus even with usable verdicts on both sides.
func TestAggregateRejections(t *testing.T) {
	calc, err := NewCalculator(3)
	require.NoError(t, err)

	verdicts := []domain.JudgeVerdict{
		okVerdict(domain.JudgeGPT, 40, false),
		okVerdict(domain.JudgeClaude, 45, false),
		okVerdict(domain.JudgeGemini, 85, true),
	}

	result, err := calc.Aggregate(testRequest(), testRubric(t), verdicts)
	require.NoError(t, err)

	assert.False(t, result.Consensus)
	assert.Equal(t, 57, result.AggregateScore, "round(mean(40,45,85)) = round(56.67)")
}

// TestAggregateRounding verifies the aggregate is the rounded mean of
// usable scores only.
func TestAggregateRounding(t *testing.T) {
	calc, err := NewCalculator(3)
	require.NoError(t, err)

	tests := []struct {
		name   string
		scores []float64
		want   int
	}{
		{name: "exact mean", scores: []float64{80, 60, 70}, want: 70},
		{name: "rounds down", scores: []float64{80, 61, 70}, want: 70},
		{name: "rounds up", scores: []float64{80, 65, 70}, want: 72},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdicts := []domain.JudgeVerdict{
				okVerdict(domain.JudgeGPT, tt.scores[0], true),
				okVerdict(domain.JudgeClaude, tt.scores[1], true),
				okVerdict(domain.JudgeGemini, tt.scores[2], true),
			}
			result, err := calc.Aggregate(testRequest(), testRubric(t), verdicts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.AggregateScore)
		})
	}
}

// TestAggregateCommutativity verifies the aggregate and consensus flags
// are independent of verdict order.
func TestAggregateCommutativity(t *testing.T) {
	calc, err := NewCalculator(3)
	require.NoError(t, err)

	verdicts := []domain.JudgeVerdict{
		okVerdict(domain.JudgeGPT, 80, true),
		okVerdict(domain.JudgeClaude, 55, false),
		domain.FailedVerdict(domain.JudgeGemini, domain.JudgeErrUnavailable, "timeout", 45000),
	}

	baseline, err := calc.Aggregate(testRequest(), testRubric(t), verdicts)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	for range 10 {
		shuffled := make([]domain.JudgeVerdict, len(verdicts))
		copy(shuffled, verdicts)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		result, err := calc.Aggregate(testRequest(), testRubric(t), shuffled)
		require.NoError(t, err)
		assert.Equal(t, baseline.AggregateScore, result.AggregateScore)
		assert.Equal(t, baseline.Consensus, result.Consensus)
		assert.Equal(t, baseline.Agreement, result.Agreement)
		assert.Equal(t, baseline.UsableCount, result.UsableCount)
	}
}

// TestAggregateAgreementLevels verifies the tolerance band drives the
// agreement classification.
func TestAggregateAgreementLevels(t *testing.T) {
	calc, err := NewCalculator(3)
	require.NoError(t, err)

	t.Run("tight cluster is high agreement", func(t *testing.T) {
		verdicts := []domain.JudgeVerdict{
			okVerdict(domain.JudgeGPT, 72, true),
			okVerdict(domain.JudgeClaude, 70, true),
			okVerdict(domain.JudgeGemini, 68, true),
		}
		result, err := calc.Aggregate(testRequest(), testRubric(t), verdicts)
		require.NoError(t, err)
		assert.Equal(t, domain.AgreementHigh, result.Agreement)
	})

	t.Run("outlier is moderate agreement", func(t *testing.T) {
		verdicts := []domain.JudgeVerdict{
			okVerdict(domain.JudgeGPT, 90, true),
			okVerdict(domain.JudgeClaude, 70, true),
			okVerdict(domain.JudgeGemini, 50, true),
		}
		result, err := calc.Aggregate(testRequest(), testRubric(t), verdicts)
		require.NoError(t, err)
		assert.Equal(t, domain.AgreementModerate, result.Agreement)
	})
}

// TestAggregateWrongPanelSize verifies a verdict count mismatch is an
// error: losing a verdict silently would corrupt the majority math.
func TestAggregateWrongPanelSize(t *testing.T) {
	calc, err := NewCalculator(3)
	require.NoError(t, err)

	_, err = calc.Aggregate(testRequest(), testRubric(t), []domain.JudgeVerdict{
		okVerdict(domain.JudgeGPT, 80, true),
	})
	assert.Error(t, err)
}

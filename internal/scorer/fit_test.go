package scorer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rfp-radar/internal/model"
)

func validatedOutcome(adj float64, review bool) model.CascadeOutcome {
	return model.CascadeOutcome{
		SignalID:             "sig-1",
		Status:               model.OutcomeValidated,
		ResolvedTier:         "cheap",
		ConfidenceAdjustment: adj,
		Rationale:            "active ticketing RFP confirmed on the procurement portal",
		RequiresManualReview: review,
		CompletedAt:          time.Now().UTC(),
	}
}

func strongSignal() model.Signal {
	sig := model.NewSignal("Riverside FC", model.CategoryRFPPosting, 0.6)
	sig.Evidence = []model.Evidence{
		{Source: "procurement_portal", Content: "RFP for ticketing and point of sale systems", Credibility: 0.9},
		{Source: "news", Content: "club plans season ticket platform overhaul", Credibility: 0.7},
		{Source: "web_search", Content: "venue management bid documents", Credibility: 0.6},
	}
	return sig
}

func TestNewFitScorer_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultFitConfig()
	cfg.KeywordWeight = -5
	_, err := NewFitScorer(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "keyword_weight")
}

func TestScore_Deterministic(t *testing.T) {
	fs, err := NewFitScorer(DefaultFitConfig())
	require.NoError(t, err)

	sig := strongSignal()
	out := validatedOutcome(0.2, false)

	first, err := fs.Score(sig, out)
	require.NoError(t, err)
	second, err := fs.Score(sig, out)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestScore_StrongSignalRanksHigh(t *testing.T) {
	fs, err := NewFitScorer(DefaultFitConfig())
	require.NoError(t, err)

	score, err := fs.Score(strongSignal(), validatedOutcome(0.2, false))
	require.NoError(t, err)

	assert.Greater(t, score.Score, 70.0)
	assert.NotEmpty(t, score.KeywordMatches)
	assert.Contains(t, score.KeywordMatches, "ticketing")
	assert.Empty(t, score.NegativeMatches)
	assert.Contains(t, []model.Priority{model.PriorityCritical, model.PriorityHigh}, score.Priority)
}

func TestScore_RejectedOutcomeNotScoreable(t *testing.T) {
	fs, err := NewFitScorer(DefaultFitConfig())
	require.NoError(t, err)

	out := validatedOutcome(0, false)
	out.Status = model.OutcomeRejected
	_, err = fs.Score(strongSignal(), out)
	require.Error(t, err)
}

func TestScore_NegativeKeywordsPenalize(t *testing.T) {
	fs, err := NewFitScorer(DefaultFitConfig())
	require.NoError(t, err)

	clean, err := fs.Score(strongSignal(), validatedOutcome(0.2, false))
	require.NoError(t, err)

	tainted := strongSignal()
	tainted.Evidence = append(tainted.Evidence, model.Evidence{
		Source:      "news",
		Content:     "the previous contract awarded in 2024; this bid closed early",
		Credibility: 0.8,
	})
	penalized, err := fs.Score(tainted, validatedOutcome(0.2, false))
	require.NoError(t, err)

	assert.Less(t, penalized.Score, clean.Score)
	assert.Len(t, penalized.NegativeMatches, 2)
	assert.InDelta(t, 20, penalized.Penalty, 1e-9)
}

func TestScore_NoEvidenceScoresLow(t *testing.T) {
	fs, err := NewFitScorer(DefaultFitConfig())
	require.NoError(t, err)

	sig := model.NewSignal("Quiet Org", model.CategoryLeadershipMove, 0.3)
	out := validatedOutcome(0, false)
	out.Rationale = "weak but plausible"

	score, err := fs.Score(sig, out)
	require.NoError(t, err)
	assert.Zero(t, score.EvidenceScore)
	assert.Equal(t, model.PriorityDigest, score.Priority)
}

func TestScore_UnknownCategoryGetsMiddleFactor(t *testing.T) {
	fs, err := NewFitScorer(DefaultFitConfig())
	require.NoError(t, err)

	sig := strongSignal()
	sig.Category = model.SignalCategory("grant_award")
	score, err := fs.Score(sig, validatedOutcome(0.1, false))
	require.NoError(t, err)
	assert.InDelta(t, 0.5*DefaultFitConfig().CategoryWeight, score.CategoryScore, 1e-9)
}

func TestScore_ManualReviewCapsPriority(t *testing.T) {
	fs, err := NewFitScorer(DefaultFitConfig())
	require.NoError(t, err)

	reviewed, err := fs.Score(strongSignal(), validatedOutcome(0.3, true))
	require.NoError(t, err)
	unreviewed, err := fs.Score(strongSignal(), validatedOutcome(0.3, false))
	require.NoError(t, err)

	assert.NotEqual(t, model.PriorityCritical, reviewed.Priority)
	assert.NotEqual(t, model.PriorityHigh, reviewed.Priority)
	assert.Contains(t, []model.Priority{model.PriorityCritical, model.PriorityHigh}, unreviewed.Priority)
}

func TestScore_FallbackSourceScoresBelowPrimary(t *testing.T) {
	fs, err := NewFitScorer(DefaultFitConfig())
	require.NoError(t, err)

	primary := strongSignal()
	primarySc, err := fs.Score(primary, validatedOutcome(0.2, false))
	require.NoError(t, err)

	fallback := strongSignal()
	fallback.Metadata = map[string]string{"discovery_source": "project-broad"}
	fallbackSc, err := fs.Score(fallback, validatedOutcome(0.2, false))
	require.NoError(t, err)

	assert.Less(t, fallbackSc.SourceScore, primarySc.SourceScore)
}

func TestScoreOpportunity(t *testing.T) {
	fs, err := NewFitScorer(DefaultFitConfig())
	require.NoError(t, err)

	sig := strongSignal()
	out := validatedOutcome(0.2, false)
	opp, score, err := fs.ScoreOpportunity(sig, out)
	require.NoError(t, err)

	assert.Equal(t, sig.Organization, opp.Organization)
	assert.Equal(t, score.Score, opp.FitScore)
	assert.Equal(t, score.Priority, opp.Priority)
	assert.InDelta(t, 0.8, opp.Confidence, 1e-9)
	assert.NotEmpty(t, opp.ID)
}

func TestFitConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*FitConfig)
		wantErr string
	}{
		{"default valid", func(c *FitConfig) {}, ""},
		{"weights off 100", func(c *FitConfig) { c.SourceWeight = 50 }, "sum to 100"},
		{"negative weight", func(c *FitConfig) {
			c.EvidenceWeight = -1
			c.KeywordWeight += 16
		}, "evidence_weight"},
		{"threshold order", func(c *FitConfig) { c.HighThreshold = 90 }, "critical_threshold"},
		{"threshold range", func(c *FitConfig) {
			c.StandardThreshold = -2
		}, "standard_threshold"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultFitConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

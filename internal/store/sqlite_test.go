package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rfp-radar/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testSignal(org string) model.Signal {
	sig := model.NewSignal(org, model.CategoryRFPPosting, 0.6)
	sig.Evidence = []model.Evidence{
		{Source: "procurement_portal", URL: "https://example.org/rfp", Content: "ticketing RFP", Credibility: 0.9},
	}
	return sig
}

func testOutcome(sig model.Signal, status model.OutcomeStatus, cost float64) model.CascadeOutcome {
	return model.CascadeOutcome{
		SignalID:             sig.ID,
		Organization:         sig.Organization,
		Status:               status,
		ResolvedTier:         "cheap",
		ConfidenceAdjustment: 0.1,
		Rationale:            "confirmed",
		CostUSD:              cost,
		TotalTokens:          500,
		Attempts:             []model.TierAttempt{{Tier: "cheap", Tokens: 500, CostUSD: cost, Sufficient: true}},
		CompletedAt:          time.Now().UTC(),
	}
}

func TestSQLite_SignalRoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	sig := testSignal("Riverside FC")
	require.NoError(t, st.SaveSignal(ctx, sig))
	// Re-save is an upsert, not an error.
	require.NoError(t, st.SaveSignal(ctx, sig))
}

func TestSQLite_OutcomeRoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	sig := testSignal("Riverside FC")
	out := testOutcome(sig, model.OutcomeValidated, 0.12)
	require.NoError(t, st.SaveOutcome(ctx, out))

	got, err := st.GetOutcome(ctx, sig.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, out.SignalID, got.SignalID)
	assert.Equal(t, model.OutcomeValidated, got.Status)
	assert.Equal(t, "cheap", got.ResolvedTier)
	assert.InDelta(t, 0.12, got.CostUSD, 1e-9)
	require.Len(t, got.Attempts, 1)
	assert.Equal(t, 500, got.Attempts[0].Tokens)
}

func TestSQLite_GetOutcome_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetOutcome(context.Background(), "unknown-signal")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_GetOutcome_LatestWins(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	sig := testSignal("Riverside FC")
	first := testOutcome(sig, model.OutcomeRejected, 0.05)
	first.CompletedAt = time.Now().UTC().Add(-time.Hour)
	second := testOutcome(sig, model.OutcomeValidated, 0.2)

	require.NoError(t, st.SaveOutcome(ctx, first))
	require.NoError(t, st.SaveOutcome(ctx, second))

	got, err := st.GetOutcome(ctx, sig.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.OutcomeValidated, got.Status)
}

func TestSQLite_ListOutcomes_Filtered(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a := testSignal("Org A")
	b := testSignal("Org B")
	require.NoError(t, st.SaveOutcomes(ctx, []model.CascadeOutcome{
		testOutcome(a, model.OutcomeValidated, 0.1),
		testOutcome(b, model.OutcomeRejected, 0.3),
	}))

	validated, err := st.ListOutcomes(ctx, OutcomeFilter{Status: model.OutcomeValidated})
	require.NoError(t, err)
	require.Len(t, validated, 1)
	assert.Equal(t, "Org A", validated[0].Organization)

	byOrg, err := st.ListOutcomes(ctx, OutcomeFilter{Organization: "Org B"})
	require.NoError(t, err)
	require.Len(t, byOrg, 1)
	assert.Equal(t, model.OutcomeRejected, byOrg[0].Status)

	all, err := st.ListOutcomes(ctx, OutcomeFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	limited, err := st.ListOutcomes(ctx, OutcomeFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLite_TotalCost(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	total, err := st.TotalCost(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)

	require.NoError(t, st.SaveOutcome(ctx, testOutcome(testSignal("A"), model.OutcomeValidated, 0.25)))
	require.NoError(t, st.SaveOutcome(ctx, testOutcome(testSignal("B"), model.OutcomeRejected, 0.75)))

	total, err = st.TotalCost(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestSQLite_OpportunityRoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	sig := testSignal("Riverside FC")
	out := testOutcome(sig, model.OutcomeValidated, 0.1)
	opp := model.NewOpportunity(sig, out, 82.5, model.PriorityHigh)
	require.NoError(t, st.SaveOpportunity(ctx, opp))

	got, err := st.ListOpportunities(ctx, OpportunityFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, opp.ID, got[0].ID)
	assert.Equal(t, model.PriorityHigh, got[0].Priority)
	assert.InDelta(t, 82.5, got[0].FitScore, 1e-9)
}

func TestSQLite_ListOpportunities_SortedAndFiltered(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, tc := range []struct {
		org      string
		score    float64
		priority model.Priority
	}{
		{"Low", 40, model.PriorityDigest},
		{"Mid", 65, model.PriorityStandard},
		{"Top", 90, model.PriorityCritical},
	} {
		sig := testSignal(tc.org)
		out := testOutcome(sig, model.OutcomeValidated, 0.1)
		require.NoError(t, st.SaveOpportunity(ctx, model.NewOpportunity(sig, out, tc.score, tc.priority)))
	}

	all, err := st.ListOpportunities(ctx, OpportunityFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Top", all[0].Organization, "highest fit score first")

	hot, err := st.ListOpportunities(ctx, OpportunityFilter{MinFitScore: 60})
	require.NoError(t, err)
	assert.Len(t, hot, 2)

	critical, err := st.ListOpportunities(ctx, OpportunityFilter{Priority: model.PriorityCritical})
	require.NoError(t, err)
	require.Len(t, critical, 1)
	assert.Equal(t, "Top", critical[0].Organization)
}

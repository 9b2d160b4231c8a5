// Package store persists signals, cascade outcomes, and scored opportunities.
// Persistence is observability, not correctness: callers that can tolerate
// loss should go through Sink, which logs failures and moves on.
package store

import (
	"context"

	"github.com/sells-group/rfp-radar/internal/model"
)

// OutcomeFilter specifies criteria for listing cascade outcomes.
type OutcomeFilter struct {
	Status       model.OutcomeStatus `json:"status,omitempty"`
	Organization string              `json:"organization,omitempty"`
	Limit        int                 `json:"limit,omitempty"`
	Offset       int                 `json:"offset,omitempty"`
}

// OpportunityFilter specifies criteria for listing opportunities.
type OpportunityFilter struct {
	Priority    model.Priority `json:"priority,omitempty"`
	MinFitScore float64        `json:"min_fit_score,omitempty"`
	Limit       int            `json:"limit,omitempty"`
	Offset      int            `json:"offset,omitempty"`
}

// Store defines the persistence interface for the radar pipeline.
type Store interface {
	// Signals
	SaveSignal(ctx context.Context, sig model.Signal) error

	// Cascade outcomes
	SaveOutcome(ctx context.Context, out model.CascadeOutcome) error
	SaveOutcomes(ctx context.Context, outs []model.CascadeOutcome) error
	GetOutcome(ctx context.Context, signalID string) (*model.CascadeOutcome, error)
	ListOutcomes(ctx context.Context, filter OutcomeFilter) ([]model.CascadeOutcome, error)
	TotalCost(ctx context.Context) (float64, error)

	// Opportunities
	SaveOpportunity(ctx context.Context, opp model.Opportunity) error
	ListOpportunities(ctx context.Context, filter OpportunityFilter) ([]model.Opportunity, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

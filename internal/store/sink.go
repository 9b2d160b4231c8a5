package store

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/rfp-radar/internal/model"
)

// Sink is the fire-and-forget persistence wrapper used by the pipeline: a
// storage failure is logged and swallowed so it can never affect cascade
// correctness. A nil store makes every operation a no-op, which is how
// persistence stays optional.
type Sink struct {
	store Store
}

// NewSink wraps a Store. store may be nil.
func NewSink(store Store) *Sink {
	return &Sink{store: store}
}

// Enabled reports whether a backing store is configured.
func (s *Sink) Enabled() bool {
	return s != nil && s.store != nil
}

// StoreSignal persists a signal, reporting success.
func (s *Sink) StoreSignal(ctx context.Context, sig model.Signal) bool {
	if !s.Enabled() {
		return false
	}
	if err := s.store.SaveSignal(ctx, sig); err != nil {
		zap.L().Warn("store: signal persistence failed, continuing",
			zap.String("signal_id", sig.ID),
			zap.Error(err),
		)
		return false
	}
	return true
}

// StoreOutcome persists one cascade outcome, reporting success.
func (s *Sink) StoreOutcome(ctx context.Context, out model.CascadeOutcome) bool {
	if !s.Enabled() {
		return false
	}
	if err := s.store.SaveOutcome(ctx, out); err != nil {
		zap.L().Warn("store: outcome persistence failed, continuing",
			zap.String("signal_id", out.SignalID),
			zap.Error(err),
		)
		return false
	}
	return true
}

// StoreOutcomes persists a batch, one row at a time so a bad row does not
// poison its siblings. Returns how many were stored.
func (s *Sink) StoreOutcomes(ctx context.Context, outs []model.CascadeOutcome) int {
	stored := 0
	for _, out := range outs {
		if s.StoreOutcome(ctx, out) {
			stored++
		}
	}
	return stored
}

// StoreOpportunity persists a scored opportunity, reporting success.
func (s *Sink) StoreOpportunity(ctx context.Context, opp model.Opportunity) bool {
	if !s.Enabled() {
		return false
	}
	if err := s.store.SaveOpportunity(ctx, opp); err != nil {
		zap.L().Warn("store: opportunity persistence failed, continuing",
			zap.String("opportunity_id", opp.ID),
			zap.String("organization", opp.Organization),
			zap.Error(err),
		)
		return false
	}
	return true
}

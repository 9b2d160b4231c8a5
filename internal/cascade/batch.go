package cascade

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/rfp-radar/internal/model"
)

// ValidateBatch runs independent signals through the cascade with bounded
// concurrency. One signal's failure never aborts its siblings: a panic or
// unexpected error becomes an errored outcome in that signal's slot. Results
// are returned in input order regardless of completion order.
func (c *Cascade) ValidateBatch(ctx context.Context, signals []model.Signal, concurrency int) []model.CascadeOutcome {
	if concurrency <= 0 {
		concurrency = 5
	}

	outcomes := make([]model.CascadeOutcome, len(signals))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, sig := range signals {
		g.Go(func() error {
			outcomes[i] = c.validateIsolated(gCtx, sig)
			return nil // per-unit failures are recorded, not propagated
		})
	}
	_ = g.Wait()

	return outcomes
}

// validateIsolated converts a panicking cascade run into an errored outcome.
func (c *Cascade) validateIsolated(ctx context.Context, sig model.Signal) (out model.CascadeOutcome) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("cascade: signal processing panicked",
				zap.String("signal_id", sig.ID),
				zap.Any("panic", r),
			)
			out = model.CascadeOutcome{
				SignalID:     sig.ID,
				Organization: sig.Organization,
				Status:       model.OutcomeErrored,
				Reason:       fmt.Sprintf("panic: %v", r),
				CompletedAt:  time.Now().UTC(),
			}
			c.metrics.RecordOutcome(false, true)
		}
	}()

	return c.Validate(ctx, sig)
}

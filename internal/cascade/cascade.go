// Package cascade implements the multi-tier confidence escalation state
// machine that validates discovered signals. Each signal walks an ordered
// list of completion tiers, cheapest first, escalating whenever a tier's
// answer fails its sufficiency rule; the final tier is authoritative.
package cascade

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rfp-radar/internal/model"
	"github.com/sells-group/rfp-radar/pkg/anthropic"
)

// Escalation reasons attached to insufficient tier attempts.
const (
	ReasonRejectedByModel       = "Signal rejected by model"
	ReasonInsufficientRationale = "Insufficient rationale"
)

// Cascade validates signals through an ordered tier list. Collaborators are
// injected at construction; the cascade never builds its own clients.
type Cascade struct {
	client  anthropic.Client
	tiers   []model.Tier
	prompt  PromptBuilder
	metrics *Metrics
}

// Option configures the cascade.
type Option func(*Cascade)

// WithPromptBuilder overrides the default prompt strategy.
func WithPromptBuilder(pb PromptBuilder) Option {
	return func(c *Cascade) {
		if pb != nil {
			c.prompt = pb
		}
	}
}

// WithMetrics shares an existing accumulator instead of a fresh one.
func WithMetrics(m *Metrics) Option {
	return func(c *Cascade) {
		if m != nil {
			c.metrics = m
		}
	}
}

// New creates a Cascade. An invalid tier configuration is a programmer
// error and fails here rather than at validation time.
func New(client anthropic.Client, cfg *Config, opts ...Option) (*Cascade, error) {
	if client == nil {
		return nil, eris.New("cascade: nil completion client")
	}
	if cfg == nil {
		return nil, eris.New("cascade: nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Cascade{
		client:  client,
		tiers:   cfg.Tiers,
		prompt:  DefaultPromptBuilder,
		metrics: NewMetrics(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Metrics returns the cascade's accumulator.
func (c *Cascade) Metrics() *Metrics {
	return c.metrics
}

// Validate runs one signal through the tier sequence and returns its terminal
// outcome. Tiers are attempted strictly in order; a tier is skipped only by an
// earlier tier's sufficient answer. Completion failures escalate rather than
// propagate; the only errors a caller ever sees from the cascade are
// construction-time configuration errors.
func (c *Cascade) Validate(ctx context.Context, sig model.Signal) model.CascadeOutcome {
	log := zap.L().With(
		zap.String("signal_id", sig.ID),
		zap.String("organization", sig.Organization),
	)

	outcome := model.CascadeOutcome{
		SignalID:     sig.ID,
		Organization: sig.Organization,
	}

	prevReason := ""
	for i, tier := range c.tiers {
		last := i == len(c.tiers)-1

		prompt := c.prompt(sig, tier, prevReason)
		resp, err := c.client.Complete(ctx, anthropic.CompletionRequest{
			Model:     tier.Model,
			Prompt:    prompt,
			MaxTokens: int64(tier.MaxOutputTokens),
			Timeout:   time.Duration(tier.TimeoutSecs) * time.Second,
		})

		if err != nil {
			// Failed attempt: zero cost recorded, escalate unless this was
			// the final safety net.
			c.metrics.RecordAttempt(tier.Name, 0, 0, false)
			outcome.Attempts = append(outcome.Attempts, model.TierAttempt{
				Tier:             tier.Name,
				EscalationReason: err.Error(),
			})
			log.Warn("cascade: tier completion failed",
				zap.String("tier", tier.Name),
				zap.Bool("last_tier", last),
				zap.Error(err),
			)

			if last {
				outcome.Status = model.OutcomeRejected
				outcome.Reason = err.Error()
				outcome.RequiresManualReview = true
				break
			}
			prevReason = err.Error()
			continue
		}

		parsed := ParseValidation(resp.Text)
		tokens := resp.Usage.Total()
		cost := tier.Cost(tokens)
		outcome.TotalTokens += tokens
		outcome.CostUSD += cost

		sufficient := parsed.Validated && len(parsed.Rationale) >= tier.MinRationaleLen
		reason := ""
		if !sufficient {
			reason = ReasonInsufficientRationale
			if !parsed.Validated {
				reason = ReasonRejectedByModel
			}
		}

		resolved := sufficient || last
		c.metrics.RecordAttempt(tier.Name, tokens, cost, resolved)
		outcome.Attempts = append(outcome.Attempts, model.TierAttempt{
			Tier:             tier.Name,
			Tokens:           tokens,
			CostUSD:          cost,
			Sufficient:       sufficient,
			EscalationReason: reason,
		})

		if !resolved {
			log.Debug("cascade: escalating",
				zap.String("tier", tier.Name),
				zap.String("reason", reason),
			)
			prevReason = reason
			continue
		}

		// Terminal: either this tier was sufficient, or it is the last tier
		// and its answer is accepted as-is.
		outcome.ResolvedTier = tier.Name
		outcome.ConfidenceAdjustment = parsed.ConfidenceAdjustment
		outcome.Rationale = parsed.Rationale
		outcome.RequiresManualReview = parsed.RequiresManualReview
		if last && !sufficient && !parsed.ManualReviewSet {
			// The final tier has no next rung; an answer it could not make
			// sufficient goes to a human.
			outcome.RequiresManualReview = true
		}
		if parsed.Validated {
			outcome.Status = model.OutcomeValidated
		} else {
			outcome.Status = model.OutcomeRejected
			outcome.Reason = ReasonRejectedByModel
		}
		break
	}

	outcome.CompletedAt = time.Now().UTC()
	c.metrics.RecordOutcome(outcome.Validated(), false)

	log.Info("cascade: signal resolved",
		zap.String("status", string(outcome.Status)),
		zap.String("resolved_tier", outcome.ResolvedTier),
		zap.Int("tiers_attempted", len(outcome.Attempts)),
		zap.Float64("cost_usd", outcome.CostUSD),
	)
	return outcome
}

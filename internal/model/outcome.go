package model

import "time"

// OutcomeStatus is the terminal disposition of a Signal after one cascade run.
// Downstream consumers must branch on this status; a rejected or errored
// outcome never carries a usable validation.
type OutcomeStatus string

const (
	// OutcomeValidated means a tier confirmed the signal.
	OutcomeValidated OutcomeStatus = "validated"
	// OutcomeRejected means the resolving tier said the signal is not real.
	OutcomeRejected OutcomeStatus = "rejected"
	// OutcomeErrored means processing failed outside the cascade's normal
	// terminal paths (batch-unit isolation).
	OutcomeErrored OutcomeStatus = "errored"
)

// TierAttempt records one tier's attempt at validating a Signal, including
// attempts that escalated.
type TierAttempt struct {
	Tier             string  `json:"tier"`
	Tokens           int     `json:"tokens"`
	CostUSD          float64 `json:"cost_usd"`
	Sufficient       bool    `json:"sufficient"`
	EscalationReason string  `json:"escalation_reason,omitempty"`
}

// CascadeOutcome is the immutable terminal result of running one Signal
// through the cascade. Cost and token totals cover every attempted tier, not
// just the resolving one.
type CascadeOutcome struct {
	SignalID     string        `json:"signal_id"`
	Organization string        `json:"organization"`
	Status       OutcomeStatus `json:"status"`

	ResolvedTier         string  `json:"resolved_tier,omitempty"`
	ConfidenceAdjustment float64 `json:"confidence_adjustment"`
	Rationale            string  `json:"rationale,omitempty"`
	RequiresManualReview bool    `json:"requires_manual_review"`

	// Reason holds the rejection or error reason for non-validated outcomes.
	Reason string `json:"reason,omitempty"`

	Attempts    []TierAttempt `json:"attempts"`
	TotalTokens int           `json:"total_tokens"`
	CostUSD     float64       `json:"cost_usd"`
	CompletedAt time.Time     `json:"completed_at"`
}

// Validated reports whether the outcome confirms the signal.
func (o CascadeOutcome) Validated() bool {
	return o.Status == OutcomeValidated
}

// AdjustedConfidence returns the signal's prior plus this outcome's
// adjustment, clamped to [0,1].
func (o CascadeOutcome) AdjustedConfidence(prior float64) float64 {
	c := prior + o.ConfidenceAdjustment
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

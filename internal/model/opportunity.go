package model

import (
	"time"

	"github.com/google/uuid"
)

// Priority buckets an opportunity for notification routing.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityStandard Priority = "standard"
	PriorityDigest   Priority = "digest"
)

// Opportunity is a validated signal scored against the service catalog,
// ready for notification and persistence.
type Opportunity struct {
	ID           string         `json:"id"`
	Organization string         `json:"organization"`
	Signal       Signal         `json:"signal"`
	Outcome      CascadeOutcome `json:"outcome"`
	FitScore     float64        `json:"fit_score"`
	Confidence   float64        `json:"confidence"`
	Priority     Priority       `json:"priority"`
	CreatedAt    time.Time      `json:"created_at"`
}

// NewOpportunity builds an Opportunity from a validated outcome.
func NewOpportunity(sig Signal, out CascadeOutcome, fitScore float64, priority Priority) Opportunity {
	return Opportunity{
		ID:           uuid.New().String(),
		Organization: sig.Organization,
		Signal:       sig,
		Outcome:      out,
		FitScore:     fitScore,
		Confidence:   out.AdjustedConfidence(sig.PriorConfidence),
		Priority:     priority,
		CreatedAt:    time.Now().UTC(),
	}
}

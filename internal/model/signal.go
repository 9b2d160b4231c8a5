package model

import (
	"time"

	"github.com/google/uuid"
)

// SignalCategory classifies what kind of procurement signal was detected.
// The set is open: discovery sources may emit categories not listed here.
type SignalCategory string

const (
	CategoryRFPPosting      SignalCategory = "rfp_posting"
	CategoryVendorChange    SignalCategory = "vendor_change"
	CategoryBudgetApproval  SignalCategory = "budget_approval"
	CategoryFacilityProject SignalCategory = "facility_project"
	CategoryLeadershipMove  SignalCategory = "leadership_move"
)

// Evidence is a single supporting item attached to a Signal. Immutable once
// attached.
type Evidence struct {
	Source      string    `json:"source"`
	URL         string    `json:"url,omitempty"`
	Content     string    `json:"content"`
	Credibility float64   `json:"credibility"`
	CollectedAt time.Time `json:"collected_at"`
}

// Signal is one candidate unit of evidence about a potential opportunity.
// Signals are read-only inputs to the validation cascade: each cascade run
// produces a new CascadeOutcome rather than mutating the Signal.
type Signal struct {
	ID              string            `json:"id"`
	Organization    string            `json:"organization"`
	Category        SignalCategory    `json:"category"`
	PriorConfidence float64           `json:"prior_confidence"`
	Evidence        []Evidence        `json:"evidence,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// NewSignal creates a Signal with a fresh ID and clamped prior confidence.
func NewSignal(organization string, category SignalCategory, prior float64) Signal {
	if prior < 0 {
		prior = 0
	}
	if prior > 1 {
		prior = 1
	}
	return Signal{
		ID:              uuid.New().String(),
		Organization:    organization,
		Category:        category,
		PriorConfidence: prior,
		CreatedAt:       time.Now().UTC(),
	}
}

// TopEvidence returns up to n evidence items, highest credibility first.
// The receiver's evidence order is not modified.
func (s Signal) TopEvidence(n int) []Evidence {
	if n <= 0 || len(s.Evidence) == 0 {
		return nil
	}
	sorted := make([]Evidence, len(s.Evidence))
	copy(sorted, s.Evidence)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Credibility > sorted[j-1].Credibility; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

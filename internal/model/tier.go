package model

// Tier is one rung of the validation cascade: a completion-model capability
// level with its pricing and the thresholds that decide whether its answer is
// good enough to terminate the cascade. Tiers are configuration, not state.
type Tier struct {
	Name            string  `yaml:"name" json:"name"`
	Model           string  `yaml:"model" json:"model"`
	CostPer1K       float64 `yaml:"cost_per_1k" json:"cost_per_1k"`
	MaxOutputTokens int     `yaml:"max_output_tokens" json:"max_output_tokens"`

	// MinRationaleLen gates sufficiency: a tier's answer only terminates the
	// cascade when its rationale is at least this long. Cheaper tiers carry
	// tighter relative thresholds since short-circuiting them skips more
	// expensive verification.
	MinRationaleLen int `yaml:"min_rationale_len" json:"min_rationale_len"`

	// MinConfidenceAdj is recorded per tier but does not gate escalation:
	// rationale length is the engagement proxy used by the sufficiency rule.
	MinConfidenceAdj float64 `yaml:"min_confidence_adj" json:"min_confidence_adj"`

	TimeoutSecs int `yaml:"timeout_secs" json:"timeout_secs"`
}

// Cost converts a token count into USD at this tier's rate.
func (t Tier) Cost(tokens int) float64 {
	return float64(tokens) * t.CostPer1K / 1000.0
}

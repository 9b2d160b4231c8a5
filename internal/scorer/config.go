// Package scorer implements deterministic catalog-fit scoring for validated
// opportunities. No model calls happen here: the rubric is pure arithmetic
// over the signal, its cascade outcome, and configured keyword lists, so the
// same inputs always produce the same score.
package scorer

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
)

// FitConfig holds the scoring rubric weights, keyword lists, and priority
// thresholds.
type FitConfig struct {
	// Weights (sum = 100).
	ConfidenceWeight float64 `yaml:"confidence_weight" mapstructure:"confidence_weight"`
	CategoryWeight   float64 `yaml:"category_weight" mapstructure:"category_weight"`
	EvidenceWeight   float64 `yaml:"evidence_weight" mapstructure:"evidence_weight"`
	KeywordWeight    float64 `yaml:"keyword_weight" mapstructure:"keyword_weight"`
	SourceWeight     float64 `yaml:"source_weight" mapstructure:"source_weight"`

	// Keywords.
	CatalogKeywords  []string `yaml:"catalog_keywords" mapstructure:"catalog_keywords"`
	NegativeKeywords []string `yaml:"negative_keywords" mapstructure:"negative_keywords"`

	// Priority thresholds on the final 0-100 score.
	CriticalThreshold float64 `yaml:"critical_threshold" mapstructure:"critical_threshold"`
	HighThreshold     float64 `yaml:"high_threshold" mapstructure:"high_threshold"`
	StandardThreshold float64 `yaml:"standard_threshold" mapstructure:"standard_threshold"`
}

// DefaultFitConfig returns the standard rubric. Weights sum to 100.
func DefaultFitConfig() FitConfig {
	return FitConfig{
		ConfidenceWeight: 30,
		CategoryWeight:   20,
		EvidenceWeight:   15,
		KeywordWeight:    25,
		SourceWeight:     10,

		CatalogKeywords: []string{
			"ticketing", "point of sale", "concessions", "access control",
			"season ticket", "box office", "fan engagement", "mobile ordering",
			"venue management", "payment processing",
		},
		NegativeKeywords: []string{
			"contract awarded", "bid closed", "cancelled", "postponed indefinitely",
		},

		CriticalThreshold: 85,
		HighThreshold:     70,
		StandardThreshold: 50,
	}
}

// WeightSum returns the sum of all component weights.
func (c FitConfig) WeightSum() float64 {
	return c.ConfidenceWeight + c.CategoryWeight + c.EvidenceWeight +
		c.KeywordWeight + c.SourceWeight
}

// Validate checks that a FitConfig is internally consistent.
func (c FitConfig) Validate() error {
	var errs []string

	weights := map[string]float64{
		"confidence_weight": c.ConfidenceWeight,
		"category_weight":   c.CategoryWeight,
		"evidence_weight":   c.EvidenceWeight,
		"keyword_weight":    c.KeywordWeight,
		"source_weight":     c.SourceWeight,
	}
	for name, w := range weights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}

	sum := c.WeightSum()
	if sum <= 0 {
		errs = append(errs, "weight sum must be > 0")
	}
	if math.Abs(sum-100) > 1 {
		errs = append(errs, fmt.Sprintf("weights should sum to 100, got %.1f", sum))
	}

	if c.CriticalThreshold < c.HighThreshold {
		errs = append(errs, "critical_threshold must be >= high_threshold")
	}
	if c.HighThreshold < c.StandardThreshold {
		errs = append(errs, "high_threshold must be >= standard_threshold")
	}
	for name, th := range map[string]float64{
		"critical_threshold": c.CriticalThreshold,
		"high_threshold":     c.HighThreshold,
		"standard_threshold": c.StandardThreshold,
	} {
		if th < 0 || th > 100 {
			errs = append(errs, fmt.Sprintf("%s must be between 0 and 100", name))
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

package scorer

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rfp-radar/internal/model"
)

// FitScore is the rubric breakdown for one validated signal.
type FitScore struct {
	Score    float64        `json:"score"`
	Priority model.Priority `json:"priority"`

	ConfidenceScore float64 `json:"confidence_score"`
	CategoryScore   float64 `json:"category_score"`
	EvidenceScore   float64 `json:"evidence_score"`
	KeywordScore    float64 `json:"keyword_score"`
	SourceScore     float64 `json:"source_score"`
	Penalty         float64 `json:"penalty"`

	KeywordMatches  []string `json:"keyword_matches,omitempty"`
	NegativeMatches []string `json:"negative_matches,omitempty"`
}

// categoryFactor ranks how directly each signal category maps to a sale.
var categoryFactor = map[model.SignalCategory]float64{
	model.CategoryRFPPosting:      1.0,
	model.CategoryBudgetApproval:  0.85,
	model.CategoryVendorChange:    0.75,
	model.CategoryFacilityProject: 0.6,
	model.CategoryLeadershipMove:  0.4,
}

// FitScorer scores validated signals against the service catalog.
type FitScorer struct {
	cfg FitConfig
}

// NewFitScorer creates a FitScorer. The config is validated up front.
func NewFitScorer(cfg FitConfig) (*FitScorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &FitScorer{cfg: cfg}, nil
}

// Score computes the catalog-fit score for a validated signal. Only
// validated outcomes are scoreable.
func (fs *FitScorer) Score(sig model.Signal, out model.CascadeOutcome) (*FitScore, error) {
	if !out.Validated() {
		return nil, eris.Errorf("scorer: cannot score %s outcome for signal %s", out.Status, out.SignalID)
	}

	result := &FitScore{}

	result.ConfidenceScore = out.AdjustedConfidence(sig.PriorConfidence) * fs.cfg.ConfidenceWeight

	factor, ok := categoryFactor[sig.Category]
	if !ok {
		// Open-set categories default to the middle of the range.
		factor = 0.5
	}
	result.CategoryScore = factor * fs.cfg.CategoryWeight

	result.EvidenceScore = fs.evidenceComponent(sig) * fs.cfg.EvidenceWeight

	content := collectContent(sig, out)
	result.KeywordMatches = matchKeywords(content, fs.cfg.CatalogKeywords)
	result.KeywordScore = math.Min(float64(len(result.KeywordMatches))/3.0, 1.0) * fs.cfg.KeywordWeight

	result.SourceScore = sourceFactor(sig.Metadata["discovery_source"]) * fs.cfg.SourceWeight

	result.NegativeMatches = matchKeywords(content, fs.cfg.NegativeKeywords)
	result.Penalty = math.Min(float64(len(result.NegativeMatches))*10, 30)

	raw := result.ConfidenceScore + result.CategoryScore + result.EvidenceScore +
		result.KeywordScore + result.SourceScore - result.Penalty
	result.Score = math.Round(math.Min(100, math.Max(0, raw))*100) / 100
	result.Priority = fs.priority(result.Score, out.RequiresManualReview)

	zap.L().Debug("scorer: fit scoring complete",
		zap.String("signal_id", sig.ID),
		zap.String("organization", sig.Organization),
		zap.Float64("score", result.Score),
		zap.String("priority", string(result.Priority)),
	)

	return result, nil
}

// ScoreOpportunity runs the rubric and wraps the result as an Opportunity.
func (fs *FitScorer) ScoreOpportunity(sig model.Signal, out model.CascadeOutcome) (*model.Opportunity, *FitScore, error) {
	score, err := fs.Score(sig, out)
	if err != nil {
		return nil, nil, err
	}
	opp := model.NewOpportunity(sig, out, score.Score, score.Priority)
	return &opp, score, nil
}

// priority maps a score to a notification bucket. Outcomes flagged for
// manual review never route above standard: a human gates the hot path.
func (fs *FitScorer) priority(score float64, manualReview bool) model.Priority {
	var p model.Priority
	switch {
	case score >= fs.cfg.CriticalThreshold:
		p = model.PriorityCritical
	case score >= fs.cfg.HighThreshold:
		p = model.PriorityHigh
	case score >= fs.cfg.StandardThreshold:
		p = model.PriorityStandard
	default:
		p = model.PriorityDigest
	}
	if manualReview && (p == model.PriorityCritical || p == model.PriorityHigh) {
		p = model.PriorityStandard
	}
	return p
}

// evidenceComponent returns [0,1]: evidence volume (up to 5 items) scaled by
// average credibility.
func (fs *FitScorer) evidenceComponent(sig model.Signal) float64 {
	if len(sig.Evidence) == 0 {
		return 0
	}
	var credSum float64
	for _, ev := range sig.Evidence {
		credSum += ev.Credibility
	}
	avgCred := credSum / float64(len(sig.Evidence))
	volume := math.Min(float64(len(sig.Evidence))/5.0, 1.0)
	return volume * avgCred
}

func collectContent(sig model.Signal, out model.CascadeOutcome) string {
	var b strings.Builder
	for _, ev := range sig.Evidence {
		b.WriteString(ev.Content)
		b.WriteString("\n")
	}
	b.WriteString(out.Rationale)
	return strings.ToLower(b.String())
}

func matchKeywords(lowerContent string, keywords []string) []string {
	var matches []string
	for _, kw := range keywords {
		if strings.Contains(lowerContent, strings.ToLower(kw)) {
			matches = append(matches, kw)
		}
	}
	return matches
}

// sourceFactor ranks discovery provenance: primary attestation is most
// trustworthy, named fallback search tiers less so, unknown least.
func sourceFactor(source string) float64 {
	switch {
	case source == "" || source == "primary":
		return 1.0
	case strings.HasPrefix(source, "rfp") || strings.HasPrefix(source, "procurement"):
		return 0.8
	default:
		return 0.6
	}
}

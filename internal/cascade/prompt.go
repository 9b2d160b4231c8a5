package cascade

import (
	"fmt"
	"strings"

	"github.com/sells-group/rfp-radar/internal/model"
)

// PromptBuilder builds a tier-specific validation prompt for a signal.
// prevReason carries the previous tier's escalation reason so later tiers
// know why the signal was handed up; it is empty on the first tier.
type PromptBuilder func(sig model.Signal, tier model.Tier, prevReason string) string

const validationInstructions = `Respond with a JSON object:
{"validated": true|false, "confidence_adjustment": -1.0 to 1.0, "rationale": "...", "requires_manual_review": true|false}`

// DefaultPromptBuilder scales prompt verbosity with tier capacity: cheaper
// tiers get terser prompts and smaller evidence excerpts. This is a
// cost/quality lever, not cosmetics: a short prompt on the cheap tier keeps
// its token spend near zero.
func DefaultPromptBuilder(sig model.Signal, tier model.Tier, prevReason string) string {
	evidenceCount, excerptLen := 3, 280
	if tier.MaxOutputTokens > 512 {
		evidenceCount, excerptLen = 5, 800
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Validate this %s signal for %q (prior confidence %.2f).\n",
		sig.Category, sig.Organization, sig.PriorConfidence)

	for i, ev := range sig.TopEvidence(evidenceCount) {
		content := ev.Content
		if len(content) > excerptLen {
			content = content[:excerptLen]
		}
		fmt.Fprintf(&b, "Evidence %d [%s, credibility %.2f]: %s\n", i+1, ev.Source, ev.Credibility, content)
		if ev.URL != "" && tier.MaxOutputTokens > 512 {
			fmt.Fprintf(&b, "  URL: %s\n", ev.URL)
		}
	}

	if prevReason != "" {
		fmt.Fprintf(&b, "A cheaper model could not resolve this signal (%s). Examine it more carefully.\n", prevReason)
	}

	b.WriteString(validationInstructions)
	return b.String()
}

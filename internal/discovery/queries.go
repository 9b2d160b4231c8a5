package discovery

import (
	"fmt"
	"strings"
)

// QueryTier is one fallback search pattern. Tiers are tried in order and the
// first tier returning results wins, so narrower, higher-precision patterns
// go first.
type QueryTier struct {
	Name     string `yaml:"name"`
	Template string `yaml:"template"`
}

// Build substitutes the candidate organization into the tier's template.
func (q QueryTier) Build(organization string) string {
	return fmt.Sprintf(q.Template, strings.TrimSpace(organization))
}

// DefaultQueryTiers returns the standard fallback ladder, ordered from
// procurement-specific language down to broad project chatter.
func DefaultQueryTiers() []QueryTier {
	return []QueryTier{
		{Name: "rfp-direct", Template: `%q "request for proposal" ticketing OR concessions OR "point of sale"`},
		{Name: "procurement", Template: `%q procurement solicitation bid 2026`},
		{Name: "vendor-news", Template: `%q selects vendor OR "new ticketing provider" OR "technology partner"`},
		{Name: "project-broad", Template: `%q stadium OR arena OR venue technology upgrade`},
	}
}

// Package cost computes USD cost for external API usage: cascade completion
// tokens, primary discovery queries, and fallback search requests.
package cost

import "sync"

// Rates holds per-provider pricing configuration. Completion spend has no
// rate here: cascade tiers carry their own blended per-1k pricing.
type Rates struct {
	Perplexity PerplexityRate `yaml:"perplexity" mapstructure:"perplexity"`
	BrightData BrightDataRate `yaml:"brightdata" mapstructure:"brightdata"`
}

// PerplexityRate holds Perplexity pricing.
type PerplexityRate struct {
	PerQuery float64 `yaml:"per_query" mapstructure:"per_query"`
}

// BrightDataRate holds Bright Data SERP pricing.
type BrightDataRate struct {
	PerRequest float64 `yaml:"per_request" mapstructure:"per_request"`
}

// DefaultRates returns the default pricing table.
func DefaultRates() Rates {
	return Rates{
		Perplexity: PerplexityRate{PerQuery: 0.005},
		BrightData: BrightDataRate{PerRequest: 0.0015},
	}
}

// Calculator computes and accumulates API costs across a run.
type Calculator struct {
	rates Rates

	mu         sync.Mutex
	completion float64
	discovery  float64
	search     float64
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Completion records completion spend already priced by the cascade at the
// resolving tiers' blended rates.
func (c *Calculator) Completion(usd float64) {
	c.mu.Lock()
	c.completion += usd
	c.mu.Unlock()
}

// PerplexityQuery records one primary discovery query and returns its cost.
func (c *Calculator) PerplexityQuery() float64 {
	cost := c.rates.Perplexity.PerQuery
	c.mu.Lock()
	c.discovery += cost
	c.mu.Unlock()
	return cost
}

// SearchRequest records one fallback search request and returns its cost.
func (c *Calculator) SearchRequest() float64 {
	cost := c.rates.BrightData.PerRequest
	c.mu.Lock()
	c.search += cost
	c.mu.Unlock()
	return cost
}

// Totals is a point-in-time cost breakdown.
type Totals struct {
	CompletionUSD float64 `json:"completion_usd"`
	DiscoveryUSD  float64 `json:"discovery_usd"`
	SearchUSD     float64 `json:"search_usd"`
	TotalUSD      float64 `json:"total_usd"`
}

// Totals returns the accumulated spend by provider.
func (c *Calculator) Totals() Totals {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Totals{
		CompletionUSD: c.completion,
		DiscoveryUSD:  c.discovery,
		SearchUSD:     c.search,
		TotalUSD:      c.completion + c.discovery + c.search,
	}
}

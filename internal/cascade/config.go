package cascade

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/rfp-radar/internal/model"
)

// Config is the cascade tier configuration. Tiers must be ordered cheapest
// to most expensive; the order is the escalation order.
type Config struct {
	Tiers []model.Tier `yaml:"tiers"`

	// Concurrency bounds how many signals are validated in parallel.
	Concurrency int `yaml:"concurrency"`
}

// DefaultConfig returns the standard three-tier cascade.
func DefaultConfig() *Config {
	return &Config{
		Tiers: []model.Tier{
			{
				Name:            "cheap",
				Model:           "claude-haiku-4-5-20251001",
				CostPer1K:       0.0008,
				MaxOutputTokens: 512,
				MinRationaleLen: 10,
				TimeoutSecs:     10,
			},
			{
				Name:            "mid",
				Model:           "claude-sonnet-4-5-20250929",
				CostPer1K:       0.003,
				MaxOutputTokens: 1024,
				MinRationaleLen: 20,
				TimeoutSecs:     30,
			},
			{
				Name:            "expensive",
				Model:           "claude-opus-4-6",
				CostPer1K:       0.015,
				MaxOutputTokens: 2048,
				MinRationaleLen: 30,
				TimeoutSecs:     60,
			},
		},
		Concurrency: 5,
	}
}

// LoadConfig reads cascade config from a YAML file. The file has a top-level
// "cascade" key; missing fields fall back to defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "cascade: read config %s", path)
	}

	var wrapper struct {
		Cascade Config `yaml:"cascade"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "cascade: parse config")
	}

	cfg := &wrapper.Cascade
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	def := DefaultConfig()
	for i := range cfg.Tiers {
		if cfg.Tiers[i].TimeoutSecs <= 0 {
			cfg.Tiers[i].TimeoutSecs = def.Tiers[min(i, len(def.Tiers)-1)].TimeoutSecs
		}
		if cfg.Tiers[i].MaxOutputTokens <= 0 {
			cfg.Tiers[i].MaxOutputTokens = 1024
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the tier list for construction-time configuration errors.
func (c *Config) Validate() error {
	if len(c.Tiers) == 0 {
		return eris.New("cascade: tier list is empty")
	}
	seen := make(map[string]bool, len(c.Tiers))
	for i, t := range c.Tiers {
		if t.Name == "" {
			return eris.Errorf("cascade: tier %d has no name", i)
		}
		if seen[t.Name] {
			return eris.Errorf("cascade: duplicate tier name %q", t.Name)
		}
		seen[t.Name] = true
		if t.Model == "" {
			return eris.Errorf("cascade: tier %q has no model", t.Name)
		}
		if i > 0 && t.CostPer1K < c.Tiers[i-1].CostPer1K {
			return eris.Errorf("cascade: tier %q is cheaper than %q; tiers must be ordered cheap to expensive",
				t.Name, c.Tiers[i-1].Name)
		}
	}
	return nil
}

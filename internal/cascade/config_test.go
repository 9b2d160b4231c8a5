package cascade

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rfp-radar/internal/model"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cascade.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, `
cascade:
  concurrency: 8
  tiers:
    - name: triage
      model: claude-haiku-4-5-20251001
      cost_per_1k: 0.0008
      min_rationale_len: 10
    - name: deep
      model: claude-opus-4-6
      cost_per_1k: 0.015
      max_output_tokens: 4096
      min_rationale_len: 40
      timeout_secs: 90
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Concurrency)
	require.Len(t, cfg.Tiers, 2)
	assert.Equal(t, "triage", cfg.Tiers[0].Name)
	assert.Equal(t, 0.0008, cfg.Tiers[0].CostPer1K)
	// Unset fields are backfilled.
	assert.Equal(t, 1024, cfg.Tiers[0].MaxOutputTokens)
	assert.Equal(t, 10, cfg.Tiers[0].TimeoutSecs)
	assert.Equal(t, 90, cfg.Tiers[1].TimeoutSecs)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadConfig_RejectsInvalidTiers(t *testing.T) {
	path := writeConfigFile(t, `
cascade:
  tiers:
    - name: pricey
      model: claude-opus-4-6
      cost_per_1k: 0.015
    - name: bargain
      model: claude-haiku-4-5-20251001
      cost_per_1k: 0.0008
`)
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cheaper than")
}

func TestConfigValidate(t *testing.T) {
	tier := func(name, m string, cost float64) model.Tier {
		return model.Tier{Name: name, Model: m, CostPer1K: cost}
	}

	cases := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"empty", Config{}, "tier list is empty"},
		{"unnamed", Config{Tiers: []model.Tier{tier("", "m", 1)}}, "has no name"},
		{"duplicate", Config{Tiers: []model.Tier{tier("a", "m", 1), tier("a", "m", 2)}}, "duplicate tier name"},
		{"no model", Config{Tiers: []model.Tier{tier("a", "", 1)}}, "has no model"},
		{"descending cost", Config{Tiers: []model.Tier{tier("a", "m", 2), tier("b", "m", 1)}}, "ordered cheap to expensive"},
		{"valid", Config{Tiers: []model.Tier{tier("a", "m", 1), tier("b", "m", 1), tier("c", "m", 3)}}, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

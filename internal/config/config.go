package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/rfp-radar/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	BrightData BrightDataConfig `yaml:"brightdata" mapstructure:"brightdata"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Slack      SlackConfig      `yaml:"slack" mapstructure:"slack"`
	Cascade    CascadeConfig    `yaml:"cascade" mapstructure:"cascade"`
	Discovery  DiscoveryConfig  `yaml:"discovery" mapstructure:"discovery"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the persistence backend.
type StoreConfig struct {
	Driver      string           `yaml:"driver" mapstructure:"driver"`
	Path        string           `yaml:"path" mapstructure:"path"`
	DatabaseURL string           `yaml:"database_url" mapstructure:"database_url"`
	Pool        store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key        string  `yaml:"key" mapstructure:"key"`
	RateLimit  float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst  int     `yaml:"rate_burst" mapstructure:"rate_burst"`
	TimeoutSec int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// BrightDataConfig holds Bright Data SERP API settings.
type BrightDataConfig struct {
	Key        string `yaml:"key" mapstructure:"key"`
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	Zone       string `yaml:"zone" mapstructure:"zone"`
	MaxResults int    `yaml:"max_results" mapstructure:"max_results"`
}

// NotionConfig holds Notion API credentials and the opportunity database ID.
type NotionConfig struct {
	Token         string `yaml:"token" mapstructure:"token"`
	OpportunityDB string `yaml:"opportunity_db" mapstructure:"opportunity_db"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string `yaml:"login_url" mapstructure:"login_url"`
}

// SlackConfig holds the incoming webhook for alerts.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// CascadeConfig points at the validation tier ladder definition.
type CascadeConfig struct {
	ConfigPath string `yaml:"config_path" mapstructure:"config_path"`
}

// DiscoveryConfig configures the discovery fallback behavior.
type DiscoveryConfig struct {
	MaxSearchResults int `yaml:"max_search_results" mapstructure:"max_search_results"`
	RetryAttempts    int `yaml:"retry_attempts" mapstructure:"retry_attempts"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RFPRADAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "rfp-radar.db")
	v.SetDefault("store.pool.max_conns", 10)
	v.SetDefault("store.pool.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("batch.concurrency", 5)
	v.SetDefault("anthropic.rate_limit", 5.0)
	v.SetDefault("anthropic.rate_burst", 10)
	v.SetDefault("anthropic.timeout_secs", 120)
	// No defaults for the perplexity and brightdata endpoint settings: the
	// HTTP clients own those, and their options ignore empty overrides.
	v.SetDefault("brightdata.max_results", 5)
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("cascade.config_path", "cascade.yaml")
	v.SetDefault("discovery.max_search_results", 5)
	v.SetDefault("discovery.retry_attempts", 3)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the fields required by the given command mode are set.
// Modes: "scan" (discovery + validation), "validate" (cascade only),
// "report" (store only).
func (c *Config) Validate(mode string) error {
	var missing []string

	requireStore := func() {
		switch c.Store.Driver {
		case "sqlite", "":
		case "postgres":
			if c.Store.DatabaseURL == "" {
				missing = append(missing, "store.database_url is required for the postgres driver")
			}
		default:
			missing = append(missing, "store.driver must be sqlite or postgres")
		}
	}
	requireAnthropic := func() {
		if c.Anthropic.Key == "" {
			missing = append(missing, "anthropic.key is required")
		}
	}

	switch mode {
	case "scan":
		requireAnthropic()
		requireStore()
		if c.Perplexity.Key == "" {
			missing = append(missing, "perplexity.key is required")
		}
		if c.BrightData.Key == "" {
			missing = append(missing, "brightdata.key is required")
		}
	case "validate":
		requireAnthropic()
		requireStore()
	case "report":
		requireStore()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Batch.Concurrency < 1 || c.Batch.Concurrency > 50 {
		missing = append(missing, "batch.concurrency must be between 1 and 50")
	}

	if len(missing) > 0 {
		return eris.Errorf("config: invalid for mode %s: %s", mode, strings.Join(missing, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

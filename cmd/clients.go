package main

import (
	"context"
	"os"
	"time"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rfp-radar/internal/cascade"
	"github.com/sells-group/rfp-radar/internal/notify"
	"github.com/sells-group/rfp-radar/internal/store"
	anthropicpkg "github.com/sells-group/rfp-radar/pkg/anthropic"
	"github.com/sells-group/rfp-radar/pkg/notion"
	sfpkg "github.com/sells-group/rfp-radar/pkg/salesforce"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite", "":
		dsn := cfg.Store.Path
		if dsn == "" {
			dsn = "rfp-radar.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initSink opens the configured store and wraps it in a fire-and-forget sink.
// Persistence problems degrade to warnings instead of stopping a batch.
func initSink(ctx context.Context) (*store.Sink, func(), error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, nil, eris.Wrap(err, "migrate store")
	}
	return store.NewSink(st), func() { st.Close() }, nil //nolint:errcheck
}

func initCascade() (*cascade.Cascade, error) {
	client := anthropicpkg.NewClient(cfg.Anthropic.Key,
		anthropicpkg.WithTimeout(time.Duration(cfg.Anthropic.TimeoutSec)*time.Second),
		anthropicpkg.WithRateLimit(cfg.Anthropic.RateLimit, cfg.Anthropic.RateBurst),
	)

	cascadeCfg, err := loadCascadeConfig()
	if err != nil {
		return nil, err
	}
	return cascade.New(client, cascadeCfg)
}

// loadCascadeConfig reads the tier ladder from the configured path, falling
// back to the built-in ladder when no file exists.
func loadCascadeConfig() (*cascade.Config, error) {
	path := cfg.Cascade.ConfigPath
	if path == "" {
		return cascade.DefaultConfig(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		zap.L().Debug("cascade config not found, using defaults", zap.String("path", path))
		return cascade.DefaultConfig(), nil
	}
	return cascade.LoadConfig(path)
}

func initSalesforce() (sfpkg.Client, error) {
	if cfg.Salesforce.ClientID == "" {
		return nil, eris.New("salesforce client ID is required (RFPRADAR_SALESFORCE_CLIENT_ID)")
	}

	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.Salesforce.LoginURL,
		Username:       cfg.Salesforce.Username,
		ConsumerKey:    cfg.Salesforce.ClientID,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "init salesforce")
	}

	return sfpkg.NewClient(sf), nil
}

// initRouter builds the notification fan-out from whichever channels are
// configured. Routes referencing absent channels are pruned so a partial
// channel setup still works.
func initRouter() (*notify.Router, *notify.DigestChannel, error) {
	var channels []notify.Channel
	var digest *notify.DigestChannel

	var slack *notify.SlackChannel
	if cfg.Slack.WebhookURL != "" {
		slack = notify.NewSlackChannel(cfg.Slack.WebhookURL)
		channels = append(channels, slack)
	}
	if cfg.Notion.Token != "" && cfg.Notion.OpportunityDB != "" {
		channels = append(channels, notify.NewNotionChannel(
			notion.NewClient(cfg.Notion.Token), cfg.Notion.OpportunityDB))
	}
	var sfChannel *notify.SalesforceChannel
	if cfg.Salesforce.ClientID != "" {
		sfClient, err := initSalesforce()
		if err != nil {
			return nil, nil, err
		}
		sfChannel = notify.NewSalesforceChannel(sfClient, "RFP Radar")
		channels = append(channels, sfChannel)
	}

	// The digest flushes through Salesforce when available, landing buffered
	// items as cold leads in one batch call; otherwise Slack gets a summary.
	switch {
	case sfChannel != nil:
		digest = notify.NewDigestChannel(sfChannel)
	case slack != nil:
		digest = notify.NewDigestChannel(slack)
	}
	if digest != nil {
		channels = append(channels, digest)
	}

	if len(channels) == 0 {
		return nil, nil, nil
	}

	registered := make(map[string]bool, len(channels))
	for _, ch := range channels {
		registered[ch.Name()] = true
	}
	routes := notify.Routes{}
	for priority, names := range notify.DefaultRoutes() {
		var kept []string
		for _, name := range names {
			if registered[name] {
				kept = append(kept, name)
			}
		}
		if len(kept) > 0 {
			routes[priority] = kept
		}
	}

	r, err := notify.NewRouter(channels, routes)
	if err != nil {
		return nil, nil, err
	}
	return r, digest, nil
}

// logMetrics emits the per-tier metrics table at the end of a batch.
func logMetrics(snap cascade.MetricsSnapshot) {
	for tier, tm := range snap.Tiers {
		zap.L().Info("cascade tier metrics",
			zap.String("tier", tier),
			zap.Int64("attempts", tm.Attempts),
			zap.Int64("resolutions", tm.Resolutions),
			zap.Int64("tokens", tm.Tokens),
			zap.Float64("cost_usd", tm.CostUSD),
		)
	}
	zap.L().Info("cascade batch metrics",
		zap.Int64("processed", snap.Processed),
		zap.Int64("validated", snap.Validated),
		zap.Int64("rejected", snap.Rejected),
		zap.Int64("errored", snap.Errored),
		zap.Float64("total_cost_usd", snap.TotalCostUSD),
	)
}

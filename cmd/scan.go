package main

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/rfp-radar/internal/cost"
	"github.com/sells-group/rfp-radar/internal/discovery"
	"github.com/sells-group/rfp-radar/internal/model"
	"github.com/sells-group/rfp-radar/internal/scorer"
	"github.com/sells-group/rfp-radar/pkg/brightdata"
	"github.com/sells-group/rfp-radar/pkg/perplexity"
)

var (
	scanCandidatesPath string
	scanOrg            string
	scanWebsite        string
	scanCategory       string
	scanPrior          float64
	scanConcurrency    int
	scanNoNotify       bool
)

// scanSummary is the JSON document scan prints on completion.
type scanSummary struct {
	Candidates    int                 `json:"candidates"`
	Accepted      int                 `json:"accepted"`
	Rejected      int                 `json:"rejected"`
	NoSignal      int                 `json:"no_signal"`
	Opportunities []model.Opportunity `json:"opportunities,omitempty"`
	Spend         cost.Totals         `json:"spend"`
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Discover and validate RFP signals for candidate organizations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("scan"); err != nil {
			return err
		}
		ctx := cmd.Context()

		candidates, err := loadCandidates()
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			return eris.New("no candidates: pass --candidates or --org")
		}

		sink, closeStore, err := initSink(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		casc, err := initCascade()
		if err != nil {
			return err
		}

		primary := perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model),
		)
		search := brightdata.NewClient(cfg.BrightData.Key,
			brightdata.WithBaseURL(cfg.BrightData.BaseURL),
			brightdata.WithZone(cfg.BrightData.Zone),
		)

		pipe, err := discovery.New(primary, search, casc,
			discovery.WithMaxResults(cfg.Discovery.MaxSearchResults),
			discovery.WithRetryAttempts(cfg.Discovery.RetryAttempts),
		)
		if err != nil {
			return err
		}

		fitScorer, err := scorer.NewFitScorer(scorer.DefaultFitConfig())
		if err != nil {
			return err
		}

		router, digest, err := initRouter()
		if err != nil {
			return err
		}

		concurrency := scanConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.Concurrency
		}

		calc := cost.NewCalculator(cost.DefaultRates())
		results := pipe.DiscoverBatch(ctx, candidates, concurrency)

		summary := scanSummary{Candidates: len(candidates)}
		for _, res := range results {
			recordDiscoverySpend(calc, res)

			if res.Signal != nil {
				sink.StoreSignal(ctx, *res.Signal)
			}
			if res.Outcome != nil {
				sink.StoreOutcome(ctx, *res.Outcome)
			}

			switch res.Status {
			case discovery.ResultAccepted:
				summary.Accepted++
			case discovery.ResultRejected:
				summary.Rejected++
				continue
			default:
				summary.NoSignal++
				continue
			}

			sig, outcome := opportunityInputs(res)
			if sig == nil {
				continue
			}
			opp, _, err := fitScorer.ScoreOpportunity(*sig, *outcome)
			if err != nil {
				zap.L().Warn("scan: scoring failed",
					zap.String("organization", res.Candidate.Organization),
					zap.Error(err),
				)
				continue
			}
			sink.StoreOpportunity(ctx, *opp)
			summary.Opportunities = append(summary.Opportunities, *opp)

			if router != nil && !scanNoNotify {
				router.Route(ctx, *opp)
			}
		}

		if digest != nil && !scanNoNotify {
			if err := digest.Flush(ctx); err != nil {
				zap.L().Warn("scan: digest flush failed", zap.Error(err))
			}
		}

		snap := casc.Metrics().Snapshot()
		logMetrics(snap)

		calc.Completion(snap.TotalCostUSD)
		summary.Spend = calc.Totals()

		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal scan summary")
		}
		cmd.Println(string(data))
		return nil
	},
}

// opportunityInputs returns the signal and outcome to score for an accepted
// result. Primary-source acceptances never ran the cascade, so a synthetic
// validated outcome carries their confidence boost.
func opportunityInputs(res discovery.Result) (*model.Signal, *model.CascadeOutcome) {
	if res.Signal != nil && res.Outcome != nil {
		return res.Signal, res.Outcome
	}
	if res.Source != "primary" {
		return nil, nil
	}

	category := res.Candidate.Category
	if category == "" {
		category = model.CategoryRFPPosting
	}
	prior := res.Candidate.PriorConfidence
	if prior <= 0 {
		prior = 0.5
	}
	sig := model.NewSignal(res.Candidate.Organization, category, prior)

	adj := 0.15
	if res.PrimaryMode == discovery.PrimaryFoundDirect {
		adj = 0.3
	}
	out := model.CascadeOutcome{
		SignalID:             sig.ID,
		Organization:         sig.Organization,
		Status:               model.OutcomeValidated,
		ResolvedTier:         "primary",
		ConfidenceAdjustment: adj,
		Rationale:            res.Reason,
	}
	return &sig, &out
}

// recordDiscoverySpend charges flat per-request rates for the external calls
// a result consumed. Cascade completion spend is tracked by the cascade
// itself.
func recordDiscoverySpend(calc *cost.Calculator, res discovery.Result) {
	for _, att := range res.Attempts {
		if att.SourceTier == "primary" {
			calc.PerplexityQuery()
		} else {
			calc.SearchRequest()
		}
	}
}

func loadCandidates() ([]discovery.Candidate, error) {
	if scanCandidatesPath != "" {
		return readCandidatesCSV(scanCandidatesPath)
	}
	if scanOrg == "" {
		return nil, nil
	}
	return []discovery.Candidate{{
		Organization:    scanOrg,
		Website:         scanWebsite,
		Category:        model.SignalCategory(scanCategory),
		PriorConfidence: scanPrior,
	}}, nil
}

// readCandidatesCSV parses a candidate file with an
// organization,website,category,prior_confidence header row.
func readCandidatesCSV(path string) ([]discovery.Candidate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open candidates file %s", path)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var candidates []discovery.Candidate
	header := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "read candidates csv")
		}
		if header {
			header = false
			continue
		}
		if len(rec) < 1 || rec[0] == "" {
			continue
		}

		c := discovery.Candidate{Organization: rec[0]}
		if len(rec) > 1 {
			c.Website = rec[1]
		}
		if len(rec) > 2 {
			c.Category = model.SignalCategory(rec[2])
		}
		if len(rec) > 3 && rec[3] != "" {
			prior, err := strconv.ParseFloat(rec[3], 64)
			if err != nil {
				return nil, eris.Wrapf(err, "parse prior confidence for %s", rec[0])
			}
			c.PriorConfidence = prior
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

func init() {
	scanCmd.Flags().StringVar(&scanCandidatesPath, "candidates", "", "CSV file of candidate organizations")
	scanCmd.Flags().StringVar(&scanOrg, "org", "", "single candidate organization name")
	scanCmd.Flags().StringVar(&scanWebsite, "website", "", "candidate website")
	scanCmd.Flags().StringVar(&scanCategory, "category", "", "signal category hint")
	scanCmd.Flags().Float64Var(&scanPrior, "prior", 0, "prior confidence for the candidate")
	scanCmd.Flags().IntVar(&scanConcurrency, "concurrency", 0, "batch concurrency (default from config)")
	scanCmd.Flags().BoolVar(&scanNoNotify, "no-notify", false, "skip notification fan-out")
	rootCmd.AddCommand(scanCmd)
}

package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/rfp-radar/internal/model"
)

var (
	validateSignalsPath string
	validateConcurrency int
	validateNoPersist   bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run externally supplied signals through the validation cascade",
	Long:  "Reads a JSON array of signals and validates each through the tier ladder. Useful for replaying signals gathered elsewhere or re-checking earlier rejections.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("validate"); err != nil {
			return err
		}
		ctx := cmd.Context()

		signals, err := readSignals(validateSignalsPath)
		if err != nil {
			return err
		}
		if len(signals) == 0 {
			return eris.New("no signals in input file")
		}

		casc, err := initCascade()
		if err != nil {
			return err
		}

		concurrency := validateConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.Concurrency
		}

		outcomes := casc.ValidateBatch(ctx, signals, concurrency)

		if !validateNoPersist {
			sink, closeStore, err := initSink(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			for _, sig := range signals {
				sink.StoreSignal(ctx, sig)
			}
			sink.StoreOutcomes(ctx, outcomes)
		}

		logMetrics(casc.Metrics().Snapshot())

		data, err := json.MarshalIndent(outcomes, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal outcomes")
		}
		cmd.Println(string(data))
		return nil
	},
}

func readSignals(path string) ([]model.Signal, error) {
	if path == "" {
		return nil, eris.New("--signals is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read signals file %s", path)
	}

	var signals []model.Signal
	if err := json.Unmarshal(data, &signals); err != nil {
		return nil, eris.Wrap(err, "parse signals file")
	}
	return signals, nil
}

func init() {
	validateCmd.Flags().StringVar(&validateSignalsPath, "signals", "", "JSON file containing an array of signals")
	validateCmd.Flags().IntVar(&validateConcurrency, "concurrency", 0, "batch concurrency (default from config)")
	validateCmd.Flags().BoolVar(&validateNoPersist, "no-persist", false, "skip storing signals and outcomes")
	rootCmd.AddCommand(validateCmd)
}

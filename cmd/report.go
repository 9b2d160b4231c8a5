package main

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/rfp-radar/internal/model"
	"github.com/sells-group/rfp-radar/internal/store"
)

var (
	outcomesStatus string
	outcomesOrg    string
	outcomesLimit  int
	outcomesOffset int

	oppsPriority string
	oppsMinFit   float64
	oppsLimit    int
)

var outcomesCmd = &cobra.Command{
	Use:   "outcomes",
	Short: "List stored cascade outcomes",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("report"); err != nil {
			return err
		}
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		outcomes, err := st.ListOutcomes(ctx, store.OutcomeFilter{
			Status:       model.OutcomeStatus(outcomesStatus),
			Organization: outcomesOrg,
			Limit:        outcomesLimit,
			Offset:       outcomesOffset,
		})
		if err != nil {
			return err
		}

		totalCost, err := st.TotalCost(ctx)
		if err != nil {
			return err
		}

		report := struct {
			Outcomes     []model.CascadeOutcome `json:"outcomes"`
			TotalCostUSD float64                `json:"total_cost_usd"`
		}{Outcomes: outcomes, TotalCostUSD: totalCost}

		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal outcomes report")
		}
		cmd.Println(string(data))
		return nil
	},
}

var opportunitiesCmd = &cobra.Command{
	Use:   "opportunities",
	Short: "List stored opportunities by fit score",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("report"); err != nil {
			return err
		}
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		opps, err := st.ListOpportunities(ctx, store.OpportunityFilter{
			Priority:    model.Priority(oppsPriority),
			MinFitScore: oppsMinFit,
			Limit:       oppsLimit,
		})
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(opps, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal opportunities")
		}
		cmd.Println(string(data))
		return nil
	},
}

func init() {
	outcomesCmd.Flags().StringVar(&outcomesStatus, "status", "", "filter by outcome status (validated, rejected, errored)")
	outcomesCmd.Flags().StringVar(&outcomesOrg, "org", "", "filter by organization")
	outcomesCmd.Flags().IntVar(&outcomesLimit, "limit", 0, "max rows (default 100)")
	outcomesCmd.Flags().IntVar(&outcomesOffset, "offset", 0, "rows to skip")
	rootCmd.AddCommand(outcomesCmd)

	opportunitiesCmd.Flags().StringVar(&oppsPriority, "priority", "", "filter by priority (critical, high, standard, digest)")
	opportunitiesCmd.Flags().Float64Var(&oppsMinFit, "min-fit", 0, "minimum fit score")
	opportunitiesCmd.Flags().IntVar(&oppsLimit, "limit", 0, "max rows (default 100)")
	rootCmd.AddCommand(opportunitiesCmd)
}

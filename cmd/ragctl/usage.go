package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/ragchat/internal/domain/usage"
)

var usagePeriod string

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show embedding token usage for the current day or month",
	Long: `Show embedding token usage against the configured budget.
Counters survive restarts only when the database driver is redis or valkey.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		period, err := usage.ParsePeriod(usagePeriod)
		if err != nil {
			return err
		}
		r := usages.GetReport(cmd.Context(), period)

		out := cmd.OutOrStdout()
		printf(out, "Period:    %s (%s to %s)\n", r.Period(),
			r.PeriodStart().Format(time.DateOnly), r.PeriodEnd().Format(time.DateOnly))
		printf(out, "Used:      %d tokens\n", r.TokensUsed())
		if r.TokensLimit() == 0 {
			printf(out, "Limit:     unlimited\n")
			return nil
		}
		printf(out, "Limit:     %d tokens\n", r.TokensLimit())
		printf(out, "Remaining: %d tokens\n", r.TokensRemaining())
		if r.Exhausted() {
			printf(out, "Budget exhausted until %s\n", r.PeriodEnd().Format(time.RFC3339))
		}
		return nil
	},
}

func init() {
	usageCmd.Flags().StringVarP(&usagePeriod, "period", "p", "day", "Aggregation period: day or month")
	rootCmd.AddCommand(usageCmd)
}

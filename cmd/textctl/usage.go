package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"wordsmith/internal/billing"
	"wordsmith/internal/types"
)

func newUsageCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Inspect the local usage ledger",
	}
	cmd.AddCommand(newUsageShowCmd(a), newUsageHistoryCmd(a))
	return cmd
}

func newUsageShowCmd(a *app) *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show one user's counters and remaining quota for a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			svc, closeLedger, err := a.openService(cmd)
			if err != nil {
				return err
			}
			defer closeAndJoin(closeLedger, &err)

			report, err := svc.CurrentUsage(cmd.Context(), a.actor(), types.PeriodKey(period))
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), report)
			}

			remaining := fmt.Sprint(report.ContentLeft)
			if report.Limits.Unlimited() {
				remaining = "unlimited"
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "user\t%s\n", report.UserID)
			fmt.Fprintf(tw, "period\t%s\n", report.Period)
			fmt.Fprintf(tw, "plan\t%s (%s)\n", report.PlanType, report.Status)
			fmt.Fprintf(tw, "content generated\t%d\n", report.Usage.ContentGenerated)
			fmt.Fprintf(tw, "content remaining\t%s\n", remaining)
			fmt.Fprintf(tw, "sentiment analyses\t%d\n", report.Usage.SentimentAnalysisUsed)
			fmt.Fprintf(tw, "keyword extractions\t%d\n", report.Usage.KeywordExtractionUsed)
			fmt.Fprintf(tw, "summaries\t%d\n", report.Usage.TextSummarizationUsed)
			fmt.Fprintf(tw, "api calls\t%d\n", report.Usage.APICalls)
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&period, "period", "", "Period in YYYY-MM form (default: current month)")
	return cmd
}

func newUsageHistoryCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List one user's recorded periods, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			if limit < 1 || limit > billing.MaxHistoryLimit {
				return fmt.Errorf("limit must be between 1 and %d", billing.MaxHistoryLimit)
			}
			svc, closeLedger, err := a.openService(cmd)
			if err != nil {
				return err
			}
			defer closeAndJoin(closeLedger, &err)

			records, err := svc.UsageHistory(cmd.Context(), a.actor(), limit)
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), records)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PERIOD\tCONTENT\tSENTIMENT\tKEYWORDS\tSUMMARIES\tAPI CALLS")
			for _, r := range records {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n", r.PeriodKey, r.ContentGenerated,
					r.SentimentAnalysisUsed, r.KeywordExtractionUsed, r.TextSummarizationUsed, r.APICalls)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", billing.DefaultHistoryLimit, "Number of periods to list")
	return cmd
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"wordsmith/internal/analytics"
	"wordsmith/internal/types"
)

func newKeywordsCmd(a *app) *cobra.Command {
	var maxKeywords int

	cmd := &cobra.Command{
		Use:   "keywords [file]",
		Short: "Extract the most frequent content words",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			svc, closeLedger, err := a.openService(cmd)
			if err != nil {
				return err
			}
			defer closeAndJoin(closeLedger, &err)

			res, err := svc.ExtractKeywords(cmd.Context(), a.actor(), analytics.KeywordsInput{Text: text, MaxKeywords: maxKeywords})
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			for _, kc := range res.Counts {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", kc.Word, kc.Count); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxKeywords, "max", 0, "Maximum keywords to return (default 10)")
	return cmd
}

func newSentimentCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sentiment [file]",
		Short: "Score the polarity of the text",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			svc, closeLedger, err := a.openService(cmd)
			if err != nil {
				return err
			}
			defer closeAndJoin(closeLedger, &err)

			res, err := svc.AnalyzeSentiment(cmd.Context(), a.actor(), text)
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.4f\t(+%d/-%d of %d words)\n",
				res.Label, res.Score, res.Positive, res.Negative, res.Words)
			return err
		},
	}
}

func newSummarizeCmd(a *app) *cobra.Command {
	var (
		maxLength int
		kind      string
		language  string
	)

	cmd := &cobra.Command{
		Use:   "summarize [file]",
		Short: "Pick the most representative sentences",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			svc, closeLedger, err := a.openService(cmd)
			if err != nil {
				return err
			}
			defer closeAndJoin(closeLedger, &err)

			res, err := svc.Summarize(cmd.Context(), a.actor(), analytics.SummaryInput{
				Text:      text,
				MaxLength: maxLength,
				Type:      types.SummaryType(kind),
				Language:  language,
			})
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), res.Summary)
			return err
		},
	}

	cmd.Flags().IntVar(&maxLength, "max-length", 0, "Requested summary length, 50-1000 (default 200)")
	cmd.Flags().StringVar(&kind, "type", "", "Summary type: extractive or abstractive")
	cmd.Flags().StringVar(&language, "language", "", "Language of the text")
	return cmd
}

// closeAndJoin runs closeFn and reports its error unless *err is already set.
func closeAndJoin(closeFn func() error, err *error) {
	if cerr := closeFn(); cerr != nil && *err == nil {
		*err = cerr
	}
}

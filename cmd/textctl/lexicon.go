package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"wordsmith/internal/textproc"
)

func newLexiconCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lexicon",
		Short: "Work with lexicon override files",
	}
	cmd.AddCommand(newLexiconCheckCmd(a))
	return cmd
}

type lexiconSummary struct {
	File      string   `json:"file"`
	Stopwords int      `json:"stopwords"`
	Positive  int      `json:"positive"`
	Negative  int      `json:"negative"`
	Overlap   []string `json:"overlap,omitempty"`
}

// newLexiconCheckCmd parses a lexicon file and fails when a word is listed
// as both positive and negative.
func newLexiconCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Validate a lexicon override file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lex, err := textproc.LoadLexiconFile(args[0])
			if err != nil {
				return err
			}

			spec := lex.Spec()
			summary := lexiconSummary{
				File:      args[0],
				Stopwords: len(spec.Stopwords),
				Positive:  len(spec.Positive),
				Negative:  len(spec.Negative),
				Overlap:   lex.Overlap(),
			}
			if a.jsonOutput() {
				if err := writeJSON(cmd.OutOrStdout(), summary); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d stopwords, %d positive, %d negative\n",
					summary.File, summary.Stopwords, summary.Positive, summary.Negative)
			}

			if len(summary.Overlap) > 0 {
				return fmt.Errorf("words listed as both positive and negative: %s", strings.Join(summary.Overlap, ", "))
			}
			return nil
		},
	}
}

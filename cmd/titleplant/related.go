package main

import (
	"github.com/spf13/cobra"

	"github.com/local/titleplant/internal/logger"
	"github.com/local/titleplant/internal/related"
)

var (
	relatedDryRun    bool
	relatedStatsOnly bool
	relatedBatchSize int
)

var relatedCmd = &cobra.Command{
	Use:   "parse-related",
	Short: "Parse document cross-references into structured links",
	Long: `parse-related walks rows whose cross-reference text has not been
parsed yet, extracts each "INSTRUMENT bk:BOOK/PAGE" reference, resolves it
against the index and stores the result as JSON on the row. Already-parsed
rows are never revisited, so the command can be re-run or resumed freely.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		defer logger.Close()
		store, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		proc := related.NewProcessor(store, relatedBatchSize)
		stats, err := proc.Run(cmd.Context(), relatedDryRun || relatedStatsOnly)
		if err != nil {
			return err
		}
		return printJSON(stats)
	},
}

func init() {
	relatedCmd.Flags().BoolVar(&relatedDryRun, "dry-run", false,
		"parse and resolve without writing")
	relatedCmd.Flags().BoolVar(&relatedStatsOnly, "stats-only", false,
		"alias for --dry-run: report counts only")
	relatedCmd.Flags().IntVar(&relatedBatchSize, "batch-size", related.DefaultBatchSize,
		"rows per batch")
}

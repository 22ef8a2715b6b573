package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/local/titleplant/internal/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the index database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		defer logger.Close()
		store, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Migrate(cmd.Context()); err != nil {
			return err
		}
		log.Info().Msg("schema is up to date")
		return nil
	},
}

var (
	cleanDryRun     bool
	cleanReportOnly bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Prepare the imported index for downloading",
	Long: `Clean skips rows with unusable locators, excludes books served by
the NEW portal, collapses duplicate (book, page, source) rows and assigns
download priorities. The pass is idempotent; run it after every import.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		defer logger.Close()
		store, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		rep, err := store.Clean(cmd.Context(), cleanDryRun || cleanReportOnly)
		if err != nil {
			return err
		}
		return printJSON(rep)
	},
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanDryRun, "dry-run", false,
		"report what would change without writing")
	cleanCmd.Flags().BoolVar(&cleanReportOnly, "report-only", false,
		"alias for --dry-run")
}

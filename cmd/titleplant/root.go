package main

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/local/titleplant/internal/config"
	"github.com/local/titleplant/internal/index"
	"github.com/local/titleplant/internal/logger"
	"github.com/local/titleplant/internal/metrics"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "titleplant",
	Short: "County land-records download pipeline",
	Long: `titleplant builds a county title plant: it cleans the imported
deed index, downloads each recorded document from the county lookup
portals, optimizes the PDFs and archives them in Cloud Storage, and
parses cross-references between documents.

Typical order of operations:
  titleplant migrate         ensure the database schema
  titleplant clean           prepare the imported index for downloading
  titleplant download --stage test
  titleplant parse-related   resolve document cross-references`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(func() {
		_ = godotenv.Load()
		cfg = config.FromEnv()
		_ = logger.Init(logger.Options{
			Level:        cfg.Logging.Level,
			Pretty:       cfg.Logging.Pretty,
			File:         cfg.Logging.File,
			MaxSizeMB:    cfg.Logging.MaxSizeMB,
			MaxBackups:   cfg.Logging.MaxBackups,
			MaxAgeDays:   cfg.Logging.MaxAgeDays,
			Compress:     cfg.Logging.Compress,
			SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
			AxiomAPIKey:  cfg.Axiom.APIKey,
			AxiomOrgID:   cfg.Axiom.OrgID,
			AxiomDataset: cfg.Axiom.Dataset,
			AxiomFlush:   cfg.Axiom.FlushInterval,
		})
		metrics.Init()
	})

	rootCmd.AddCommand(migrateCmd, cleanCmd, downloadCmd, relatedCmd,
		validateCmd, reportCmd, monitorCmd, statusCmd)
}

// openStore connects to the index database with a pool sized for the
// configured worker count.
func openStore(ctx context.Context) (*index.Store, error) {
	return index.Open(ctx, cfg.DB, cfg.Worker.Concurrency)
}

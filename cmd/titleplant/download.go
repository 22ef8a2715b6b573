package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/local/titleplant/internal/archive"
	"github.com/local/titleplant/internal/index"
	"github.com/local/titleplant/internal/logger"
	"github.com/local/titleplant/internal/pdfopt"
	"github.com/local/titleplant/internal/pipeline"
	"github.com/local/titleplant/internal/portal"
)

var (
	downloadStage   string
	downloadWorkers int
	downloadDryRun  bool
	downloadResume  bool
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download queued documents from the county portals",
	Long: `Download runs one stage of the pipeline: it claims pending rows,
fetches each document from its portal, optimizes the PDF, archives it in
Cloud Storage and records the outcome. Interrupting with Ctrl-C finishes
in-flight documents, writes a checkpoint and exits; the next run resumes
from it.

Stages: ` + strings.Join(index.StageNames(), ", "),
	RunE: func(cmd *cobra.Command, args []string) error {
		defer logger.Close()
		ctx := cmd.Context()

		stage, ok := index.Stages[downloadStage]
		if !ok {
			return fmt.Errorf("unknown stage %q (valid: %s)",
				downloadStage, strings.Join(index.StageNames(), ", "))
		}
		if downloadWorkers > 0 {
			cfg.Worker.Concurrency = downloadWorkers
		}
		cfg.Worker.Resume = downloadResume

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		if downloadDryRun {
			return downloadPreview(cmd, store, stage)
		}

		mgr, err := archive.New(ctx, cfg.GCS)
		if err != nil {
			return err
		}
		defer mgr.Close()

		stats := pipeline.NewStats()
		worker := pipeline.NewWorker(
			store,
			portal.NewClient(cfg.Portal),
			pdfopt.New(cfg.Optimizer),
			mgr,
			pipeline.NewLimiter(cfg.Portal.RateLimitDelay),
			stats,
			cfg.Worker.DownloadDir,
		)
		sched := pipeline.NewScheduler(store, worker, stats, cfg.Worker)
		return sched.Run(ctx, stage)
	},
}

// downloadPreview lists what the stage would process without claiming or
// fetching anything.
func downloadPreview(cmd *cobra.Command, store *index.Store, stage index.Stage) error {
	batch, err := store.FetchNextBatch(cmd.Context(), stage, 25, 0)
	if err != nil {
		return err
	}
	fmt.Printf("stage %s: first %d candidates\n", stage.Name, len(batch))
	for _, d := range batch {
		line := map[string]any{
			"id":       d.ID,
			"book":     d.Book,
			"page":     d.Page,
			"priority": d.DownloadPriority,
			"type":     d.DocType(),
		}
		out, _ := json.Marshal(line)
		fmt.Println(string(out))
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	downloadCmd.Flags().StringVar(&downloadStage, "stage", "",
		"download stage to run (required)")
	downloadCmd.Flags().IntVar(&downloadWorkers, "workers", 0,
		"override worker concurrency")
	downloadCmd.Flags().BoolVar(&downloadDryRun, "dry-run", false,
		"list queue candidates without downloading")
	downloadCmd.Flags().BoolVar(&downloadResume, "resume", true,
		"resume from the stage's latest checkpoint")
	_ = downloadCmd.MarkFlagRequired("stage")
}

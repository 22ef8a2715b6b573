package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/local/titleplant/internal/logger"
	"github.com/local/titleplant/internal/metrics"
)

var validateLastHours int

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Cross-check workflow columns for inconsistencies",
	RunE: func(cmd *cobra.Command, args []string) error {
		defer logger.Close()
		store, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		v, err := store.Validate(cmd.Context())
		if err != nil {
			return err
		}
		if err := printJSON(v); err != nil {
			return err
		}
		if validateLastHours > 0 {
			n, err := store.CompletedSince(cmd.Context(),
				time.Duration(validateLastHours)*time.Hour)
			if err != nil {
				return err
			}
			fmt.Printf("completed in last %dh: %d\n", validateLastHours, n)
		}
		if !v.Clean() {
			return fmt.Errorf("validation found %d completed rows without an archive path",
				v.CompletedMissingPath)
		}
		return nil
	},
}

var reportGaps bool

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print queue statistics and a completion estimate",
	RunE: func(cmd *cobra.Command, args []string) error {
		defer logger.Close()
		store, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		stats, err := store.Stats(cmd.Context())
		if err != nil {
			return err
		}
		if err := printJSON(stats); err != nil {
			return err
		}
		if eta, ok := stats.EstimateCompletion(); ok {
			fmt.Printf("estimated time to drain backlog: %s (at %d docs/hour)\n",
				eta.Round(time.Minute), stats.CompletedLastHour)
		}

		if reportGaps {
			gaps, err := store.Gaps(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(gaps)
		}
		return nil
	},
}

var (
	monitorInterval time.Duration
	monitorAddr     string
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Serve Prometheus metrics and log queue depth periodically",
	RunE: func(cmd *cobra.Command, args []string) error {
		defer logger.Close()
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{Addr: monitorAddr, Handler: mux}
		go func() {
			log.Info().Str("addr", monitorAddr).Msg("metrics server listening")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("metrics server error")
			}
		}()
		defer srv.Close()

		ticker := time.NewTicker(monitorInterval)
		defer ticker.Stop()
		for {
			stats, err := store.Stats(ctx)
			if err != nil {
				log.Error().Err(err).Msg("stats query failed")
			} else {
				for status, n := range stats.ByStatus {
					metrics.SetQueueDepth(status, n)
				}
				log.Info().
					Interface("by_status", stats.ByStatus).
					Int64("completed_last_hour", stats.CompletedLastHour).
					Msg("queue depth")
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	},
}

func init() {
	validateCmd.Flags().IntVar(&validateLastHours, "last-hours", 0,
		"also report completions within the trailing window")
	reportCmd.Flags().BoolVar(&reportGaps, "gaps", false,
		"include per-book completion gaps")
	monitorCmd.Flags().DurationVar(&monitorInterval, "interval", time.Minute,
		"how often to sample queue depth")
	monitorCmd.Flags().StringVar(&monitorAddr, "addr", ":9090",
		"metrics listen address")
}

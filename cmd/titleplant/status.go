package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/local/titleplant/internal/archive"
	"github.com/local/titleplant/internal/logger"
	"github.com/local/titleplant/internal/statuscheck"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check connectivity to the database, archive bucket and portal",
	RunE: func(cmd *cobra.Command, args []string) error {
		defer logger.Close()
		ctx := cmd.Context()

		opts := statuscheck.Options{
			PortalURL: cfg.Portal.BaseURL,
			UserAgent: cfg.Portal.UserAgent,
		}
		if store, err := openStore(ctx); err == nil {
			defer store.Close()
			opts.DB = store
		} else {
			opts.DB = failedPinger{err}
		}
		if mgr, err := archive.New(ctx, cfg.GCS); err == nil {
			defer mgr.Close()
			opts.Bucket = mgr
		} else {
			opts.Bucket = failedPinger{err}
		}

		summary := statuscheck.New(opts).Summary(ctx)
		if err := printJSON(summary); err != nil {
			return err
		}
		if !summary.Healthy() {
			return fmt.Errorf("one or more subsystems are unhealthy")
		}
		return nil
	},
}

// failedPinger surfaces a construction error through the health check.
type failedPinger struct{ err error }

func (p failedPinger) Ping(context.Context) error { return p.err }

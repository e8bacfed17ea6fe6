package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/strategy-engine/internal/config"
	"github.com/jonathan/strategy-engine/internal/db"
	"github.com/jonathan/strategy-engine/internal/server"
)

var servePort string

// watchdogInterval is how often the watchdog scans for campaigns stuck in
// PRODUCTION_PROCESSING without a callback.
const watchdogInterval = 15 * time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the pipeline, approval, campaign, and production-callback endpoints, plus a background watchdog for campaigns stuck in production.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (defaults to PORT env var)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if servePort != "" {
		cfg.Port = servePort
	}

	srv, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Start blocks until shutdown; cancelling stops the watchdog too.
		defer cancel()
		return srv.Start()
	})
	g.Go(func() error {
		watchdog(ctx, srv.Campaigns(), cfg.WatchdogMaxAge)
		return nil
	})
	return g.Wait()
}

// watchdog periodically surfaces campaigns that entered production and never
// received a callback. It only reports; recovery is an operator decision via
// the retry endpoint.
func watchdog(ctx context.Context, campaigns *db.CampaignRepository, maxAge time.Duration) {
	ticker := time.NewTicker(watchdogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stuck, err := campaigns.StuckInProcessing(ctx, maxAge)
			if err != nil {
				log.Printf("[Watchdog] Scan failed: %v", err)
				continue
			}
			for _, c := range stuck {
				log.Printf("[Watchdog] Campaign %s stuck in %s since %s (correlation %s)",
					c.ID, c.Status, c.DispatchedAt.Format(time.RFC3339), deref(c.CorrelationID))
			}
		}
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

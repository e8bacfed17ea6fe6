package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/strategy-engine/internal/db"
)

var (
	watchdogDBURL string
	watchdogHours int
)

var watchdogCmd = &cobra.Command{
	Use:   "watchdog",
	Short: "List campaigns stuck in production",
	Long: `Scans for campaigns that entered PRODUCTION_PROCESSING and never received a
callback within the age threshold. One-shot version of the scan the serve
command runs in the background; useful from cron or for ad-hoc checks.`,
	RunE: runWatchdog,
}

func init() {
	watchdogCmd.Flags().StringVar(&watchdogDBURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to STRATEGY_DATABASE_URL env var)")
	watchdogCmd.Flags().IntVar(&watchdogHours, "hours", 2, "Age threshold in hours")
	rootCmd.AddCommand(watchdogCmd)
}

func runWatchdog(_ *cobra.Command, _ []string) error {
	databaseURL := watchdogDBURL
	if databaseURL == "" {
		databaseURL = os.Getenv("STRATEGY_DATABASE_URL")
	}
	if databaseURL == "" {
		return fmt.Errorf("database URL is required (--db-url or STRATEGY_DATABASE_URL)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	database, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	stuck, err := db.NewCampaignRepository(database).StuckInProcessing(ctx, time.Duration(watchdogHours)*time.Hour)
	if err != nil {
		return fmt.Errorf("failed to scan for stuck campaigns: %w", err)
	}

	if len(stuck) == 0 {
		fmt.Println("No stuck campaigns.")
		return nil
	}
	for _, c := range stuck {
		fmt.Printf("%s  %s  tenant=%s  dispatched=%s  correlation=%s\n",
			c.ID, c.Status, c.TenantID, c.DispatchedAt.Format(time.RFC3339), deref(c.CorrelationID))
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"
)

var (
	migrateDBURL string
	migrateFile  string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	Long:  `Applies the schema file to the configured PostgreSQL database. The schema is idempotent (CREATE ... IF NOT EXISTS), so re-running is safe.`,
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().StringVar(&migrateDBURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to STRATEGY_DATABASE_URL env var)")
	migrateCmd.Flags().StringVar(&migrateFile, "file", "migrations/schema.sql", "Path to the schema file")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(_ *cobra.Command, _ []string) error {
	databaseURL := migrateDBURL
	if databaseURL == "" {
		databaseURL = os.Getenv("STRATEGY_DATABASE_URL")
	}
	if databaseURL == "" {
		return fmt.Errorf("database URL is required (--db-url or STRATEGY_DATABASE_URL)")
	}

	schema, err := os.ReadFile(migrateFile)
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() { _ = conn.Close(ctx) }()

	if _, err := conn.Exec(ctx, string(schema)); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	fmt.Printf("Applied %s\n", migrateFile)
	return nil
}

// Package main provides the entry point for the Strategy Engine.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "strategy_engine",
	Short: "Content Strategy Engine",
	Long:  "Strategy Engine turns raw consumer research into human-approved hub & spoke content blueprints via a multi-stage agent pipeline, and dispatches approved blueprints to the production system.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

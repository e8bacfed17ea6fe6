package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/strategy-engine/internal/agents"
	"github.com/jonathan/strategy-engine/internal/config"
	"github.com/jonathan/strategy-engine/internal/db"
	"github.com/jonathan/strategy-engine/internal/ingestion"
	"github.com/jonathan/strategy-engine/internal/llm"
	"github.com/jonathan/strategy-engine/internal/observability"
	"github.com/jonathan/strategy-engine/internal/pipeline"
	"github.com/jonathan/strategy-engine/internal/registry"
	"github.com/jonathan/strategy-engine/internal/seoapi"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run the content strategy pipeline once",
	Long: `Runs the full pipeline over a single research input: intent extraction -> SEO/GEO strategy -> topic cluster -> blueprint.

The input may be a plain-text or HTML file, or "-" for stdin. Without --db-url the run is not persisted; the blueprint is written to stdout (or --output).`,
	RunE: runPipelineCmd,
}

var (
	runInput   string
	runOutput  string
	runAPIKey  string
	runDBURL   string
	runVerbose bool
)

func init() {
	runCommand.Flags().StringVarP(&runInput, "input", "i", "", "Path to research input file, or \"-\" for stdin (required)")
	runCommand.Flags().StringVarP(&runOutput, "output", "o", "", "Path to write the blueprint JSON (defaults to stdout)")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print stage summaries while running")

	// API key can be passed as a flag, or read from env var GEMINI_API_KEY
	runCommand.Flags().StringVar(&runAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")

	// Database URL for run persistence
	runCommand.Flags().StringVar(&runDBURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to STRATEGY_DATABASE_URL env var)")

	_ = runCommand.MarkFlagRequired("input")
	rootCmd.AddCommand(runCommand)
}

func runPipelineCmd(_ *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if runAPIKey != "" {
		cfg.GeminiAPIKey = runAPIKey
	}
	if runDBURL != "" {
		cfg.DatabaseURL = runDBURL
	}
	if cfg.GeminiAPIKey == "" {
		return fmt.Errorf("Gemini API key is required (--api-key or GEMINI_API_KEY)")
	}

	raw, meta, err := readInput(runInput)
	if err != nil {
		return err
	}

	llmClient, err := llm.NewClient(ctx, llm.DefaultGeminiConfig(), cfg.GeminiAPIKey)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer llmClient.Close()

	var store pipeline.RunStore = pipeline.NopStore{}
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close()
		store = db.NewRunRepository(database)
	}

	printer := observability.NewPrinter(os.Stderr)
	var onProgress pipeline.ProgressCallback
	if runVerbose {
		onProgress = func(event pipeline.ProgressEvent) {
			fmt.Fprintf(os.Stderr, "[%s] %s\n", event.Stage, event.Message)
		}
	}

	runner := pipeline.NewRunner(pipeline.Options{
		Extractor:  agents.NewIntentExtractor(llmClient),
		Strategist: agents.NewStrategist(llmClient, seoapi.NewClient(cfg.SEOAPIBaseURL, cfg.SEOAPILogin, cfg.SEOAPIPassword, 15*time.Second)),
		Builder:    agents.NewClusterBuilder(llmClient, registry.NewClient(cfg.RegistryURL, 10*time.Second)),
		Store:      store,
		Model:      llmClient.GetModel(llm.TierStandard),
		OnProgress: onProgress,
	})

	if runVerbose {
		fmt.Fprintf(os.Stderr, "Input: %s (%d chars, hash %s)\n", meta.Source, meta.CharCount, meta.Hash[:12])
	}

	state, err := runner.Run(ctx, raw)
	if err != nil {
		return err
	}

	if runVerbose {
		printer.PrintIntent(state.Intent)
		printer.PrintStrategy(state.SEOStrategy)
		printer.PrintBlueprint(state.Blueprint)
	}
	printer.PrintRunResult(state)

	if state.Blueprint == nil {
		return fmt.Errorf("run %s finished %s: %s", state.RunID, state.Status, state.Error)
	}
	return writeBlueprint(state.Blueprint, runOutput)
}

func readInput(path string) (string, *ingestion.Metadata, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		normalized, meta := ingestion.Normalize(string(data), "stdin")
		return normalized, meta, nil
	}
	return ingestion.IngestFromFile(path)
}

func writeBlueprint(blueprint any, path string) error {
	doc, err := json.MarshalIndent(blueprint, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal blueprint: %w", err)
	}
	doc = append(doc, '\n')

	if path == "" {
		_, err = os.Stdout.Write(doc)
		return err
	}
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		return fmt.Errorf("failed to write blueprint: %w", err)
	}
	return nil
}

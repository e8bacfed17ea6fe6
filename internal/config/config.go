// Package config loads and validates engine configuration from the
// environment. A .env file is loaded by the CLI entrypoint before this
// package reads anything, so local development and deployed environments go
// through the same path.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Default values for optional settings.
const (
	DefaultPort              = "8080"
	DefaultWebhookTimeout    = 30 * time.Second
	DefaultWebhookMaxRetries = 3
	DefaultWatchdogMaxAge    = 2 * time.Hour
)

// Config is the full runtime configuration of the strategy engine.
type Config struct {
	// Core
	DatabaseURL  string // STRATEGY_DATABASE_URL
	GeminiAPIKey string // GEMINI_API_KEY
	Port         string // PORT

	// Production webhook
	ProductionWebhookURL string        // PRODUCTION_WEBHOOK_URL
	WebhookSecret        string        // WEBHOOK_SECRET (HMAC signing + callback verification)
	WebhookBearerToken   string        // WEBHOOK_BEARER_TOKEN (optional)
	WebhookTimeout       time.Duration // WEBHOOK_TIMEOUT_SECONDS
	WebhookMaxRetries    int           // WEBHOOK_MAX_RETRIES

	// External services
	RegistryURL    string        // CONTENT_REGISTRY_URL (optional; empty degrades cannibalization checks)
	SEOAPIBaseURL  string        // SEO_API_BASE_URL (optional; empty leaves volumes unverified)
	SEOAPILogin    string        // SEO_API_LOGIN
	SEOAPIPassword string        // SEO_API_PASSWORD
	WatchdogMaxAge time.Duration // WATCHDOG_MAX_AGE_HOURS
}

// Load reads configuration from the environment. Optional integrations
// (registry, SEO API) may be absent; Validate decides what is mandatory for
// a given entrypoint.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:          os.Getenv("STRATEGY_DATABASE_URL"),
		GeminiAPIKey:         os.Getenv("GEMINI_API_KEY"),
		Port:                 os.Getenv("PORT"),
		ProductionWebhookURL: os.Getenv("PRODUCTION_WEBHOOK_URL"),
		WebhookSecret:        os.Getenv("WEBHOOK_SECRET"),
		WebhookBearerToken:   os.Getenv("WEBHOOK_BEARER_TOKEN"),
		RegistryURL:          os.Getenv("CONTENT_REGISTRY_URL"),
		SEOAPIBaseURL:        os.Getenv("SEO_API_BASE_URL"),
		SEOAPILogin:          os.Getenv("SEO_API_LOGIN"),
		SEOAPIPassword:       os.Getenv("SEO_API_PASSWORD"),
		WebhookTimeout:       DefaultWebhookTimeout,
		WebhookMaxRetries:    DefaultWebhookMaxRetries,
		WatchdogMaxAge:       DefaultWatchdogMaxAge,
	}

	if cfg.Port == "" {
		cfg.Port = DefaultPort
	}

	if s := os.Getenv("WEBHOOK_TIMEOUT_SECONDS"); s != "" {
		seconds, err := strconv.Atoi(s)
		if err != nil || seconds < 1 {
			return nil, fmt.Errorf("invalid WEBHOOK_TIMEOUT_SECONDS: %q", s)
		}
		cfg.WebhookTimeout = time.Duration(seconds) * time.Second
	}

	if s := os.Getenv("WEBHOOK_MAX_RETRIES"); s != "" {
		retries, err := strconv.Atoi(s)
		if err != nil || retries < 1 {
			return nil, fmt.Errorf("invalid WEBHOOK_MAX_RETRIES: %q", s)
		}
		cfg.WebhookMaxRetries = retries
	}

	if s := os.Getenv("WATCHDOG_MAX_AGE_HOURS"); s != "" {
		hours, err := strconv.Atoi(s)
		if err != nil || hours < 1 {
			return nil, fmt.Errorf("invalid WATCHDOG_MAX_AGE_HOURS: %q", s)
		}
		cfg.WatchdogMaxAge = time.Duration(hours) * time.Hour
	}

	return cfg, nil
}

// Validate checks the settings the server entrypoint cannot run without.
// The one-shot CLI has looser requirements and checks its own flags.
func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required but not set")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("STRATEGY_DATABASE_URL is required but not set")
	}
	if c.ProductionWebhookURL != "" && c.WebhookSecret == "" {
		return fmt.Errorf("WEBHOOK_SECRET is required when PRODUCTION_WEBHOOK_URL is set")
	}
	return nil
}

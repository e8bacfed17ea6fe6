package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("STRATEGY_DATABASE_URL", "postgres://localhost/strategy_test")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultWebhookTimeout, cfg.WebhookTimeout)
	assert.Equal(t, DefaultWebhookMaxRetries, cfg.WebhookMaxRetries)
	assert.Equal(t, DefaultWatchdogMaxAge, cfg.WatchdogMaxAge)
	assert.Empty(t, cfg.RegistryURL)
	assert.Empty(t, cfg.SEOAPIBaseURL)
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("WEBHOOK_TIMEOUT_SECONDS", "10")
	t.Setenv("WEBHOOK_MAX_RETRIES", "5")
	t.Setenv("WATCHDOG_MAX_AGE_HOURS", "6")
	t.Setenv("CONTENT_REGISTRY_URL", "http://registry.local")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.WebhookTimeout)
	assert.Equal(t, 5, cfg.WebhookMaxRetries)
	assert.Equal(t, 6*time.Hour, cfg.WatchdogMaxAge)
	assert.Equal(t, "http://registry.local", cfg.RegistryURL)
}

func TestLoadRejectsInvalidNumbers(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non-numeric timeout", "WEBHOOK_TIMEOUT_SECONDS", "soon"},
		{"zero timeout", "WEBHOOK_TIMEOUT_SECONDS", "0"},
		{"negative retries", "WEBHOOK_MAX_RETRIES", "-1"},
		{"non-numeric watchdog", "WATCHDOG_MAX_AGE_HOURS", "two"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestValidate(t *testing.T) {
	t.Run("missing api key", func(t *testing.T) {
		cfg := &Config{DatabaseURL: "postgres://localhost/x"}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "GEMINI_API_KEY")
	})

	t.Run("missing database url", func(t *testing.T) {
		cfg := &Config{GeminiAPIKey: "k"}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "STRATEGY_DATABASE_URL")
	})

	t.Run("webhook url without secret", func(t *testing.T) {
		cfg := &Config{
			GeminiAPIKey:         "k",
			DatabaseURL:          "postgres://localhost/x",
			ProductionWebhookURL: "https://production.example.com/hook",
		}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "WEBHOOK_SECRET")
	})

	t.Run("complete config", func(t *testing.T) {
		cfg := &Config{
			GeminiAPIKey:         "k",
			DatabaseURL:          "postgres://localhost/x",
			ProductionWebhookURL: "https://production.example.com/hook",
			WebhookSecret:        "s3cret",
		}
		assert.NoError(t, cfg.Validate())
	})
}

// Package llm provides centralized LLM configuration and client abstractions.
// Each pipeline agent runs on a model tier chosen for its task complexity.
package llm

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for simple tasks: classification, extraction
	TierLite ModelTier = "lite"
	// TierStandard is for moderate reasoning: structured output, clustering
	TierStandard ModelTier = "standard"
	// TierAdvanced is for complex reasoning: strategy planning
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
)

// Pipeline stage names, used for tier selection and retry logging.
const (
	StageExtractIntent    = "extract_intent"
	StageGenerateStrategy = "generate_strategy"
	StageBuildCluster     = "build_cluster"
)

// Config holds the model configuration for the application
type Config struct {
	Provider Provider
	Models   map[ModelTier]string
}

// DefaultConfig returns the default configuration (currently Gemini)
func DefaultConfig() *Config {
	return DefaultGeminiConfig()
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return "" // No model configured
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := &Config{
		Provider: c.Provider,
		Models:   make(map[ModelTier]string),
	}
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[tier] = model
	return newConfig
}

// ParseTier maps a user-supplied tier name to a ModelTier. Returns false for
// anything other than the known tier names.
func ParseTier(s string) (ModelTier, bool) {
	switch ModelTier(s) {
	case TierLite, TierStandard, TierAdvanced:
		return ModelTier(s), true
	}
	return "", false
}

// TierForStage maps a pipeline stage to its model tier. Intent extraction is
// a classification task; strategy generation needs the deepest reasoning;
// cluster building sits in between.
func TierForStage(stage string) ModelTier {
	switch stage {
	case StageExtractIntent:
		return TierLite
	case StageGenerateStrategy:
		return TierAdvanced
	case StageBuildCluster:
		return TierStandard
	default:
		return TierStandard
	}
}

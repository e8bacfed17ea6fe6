package agents

import (
	"context"
	"fmt"

	"github.com/jonathan/strategy-engine/internal/llm"
	"github.com/jonathan/strategy-engine/internal/prompts"
	"github.com/jonathan/strategy-engine/internal/schemas"
	"github.com/jonathan/strategy-engine/internal/types"
)

// IntentExtractor is agent 1: it turns raw research input into a structured
// consumer intent profile.
type IntentExtractor struct {
	llm llm.Client
}

// NewIntentExtractor creates agent 1 on the given LLM client.
func NewIntentExtractor(client llm.Client) *IntentExtractor {
	return &IntentExtractor{llm: client}
}

// Extract runs the intent extraction prompt over rawInput. feedback carries
// the previous attempt's validation errors on retries.
func (e *IntentExtractor) Extract(ctx context.Context, rawInput, feedback string) (*types.ExtractedIntent, error) {
	prompt := prompts.Format(prompts.MustGet(promptFile, "extract-intent"), map[string]string{
		"RawInput": rawInput,
	})
	prompt = withFeedback(prompt, feedback)

	raw, err := e.llm.GenerateJSON(ctx, prompt, llm.TierForStage(llm.StageExtractIntent))
	if err != nil {
		return nil, fmt.Errorf("intent extraction call failed: %w", err)
	}

	var intent types.ExtractedIntent
	if err := decodeValidated(schemas.SchemaIntent, raw, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

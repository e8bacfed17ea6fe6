// Package agents implements the three LLM agents of the strategy pipeline:
// intent extraction, SEO/GEO strategy generation, and cluster building. Each
// agent renders an embedded prompt, calls the model on its tier, and
// validates the raw response against the stage's JSON schema before
// deserializing. Schema or deserialization failures surface as
// *guards.MalformedOutputError so the structured-output guard can retry with
// feedback.
package agents

import (
	"encoding/json"
	"errors"

	"github.com/jonathan/strategy-engine/internal/guards"
	"github.com/jonathan/strategy-engine/internal/prompts"
	"github.com/jonathan/strategy-engine/internal/schemas"
)

const promptFile = "agents.json"

// withFeedback appends the previous attempt's validation errors to a prompt
// on retry attempts. feedback is empty on the first attempt.
func withFeedback(prompt, feedback string) string {
	if feedback == "" {
		return prompt
	}
	suffix := prompts.Format(prompts.MustGet(promptFile, "error-feedback"), map[string]string{
		"Errors": feedback,
	})
	return prompt + "\n\n" + suffix
}

// decodeValidated validates raw model output against a named schema and
// deserializes it into out. Both failure modes are malformed output, never a
// hard error.
func decodeValidated(schemaName, raw string, out any) error {
	if err := schemas.Validate(schemaName, raw); err != nil {
		var validationErr *schemas.ValidationError
		if errors.As(err, &validationErr) {
			return &guards.MalformedOutputError{Detail: validationErr.Error()}
		}
		// Not even parseable as JSON.
		return &guards.MalformedOutputError{Detail: err.Error()}
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return &guards.MalformedOutputError{Detail: "failed to deserialize validated output: " + err.Error()}
	}
	return nil
}

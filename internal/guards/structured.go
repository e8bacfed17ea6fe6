package guards

import (
	"context"
	"errors"
	"log"
)

// DefaultMaxAttempts is the EC2 retry budget, counting the first call.
const DefaultMaxAttempts = 3

// AgentCall produces a typed agent result. feedback is empty on the first
// attempt; on retries it carries the previous attempt's validation errors so
// the agent can include them in an error-feedback prompt.
type AgentCall[T any] func(ctx context.Context, feedback string) (T, error)

// RunStructured (EC2) wraps an agent call with strict validation and a
// bounded retry loop. Two failure layers trigger a retry:
//
//  1. *MalformedOutputError from the call itself (schema validation or
//     deserialization of the raw model output failed), and
//  2. a non-nil result from validate, a business rule the schema alone
//     can't express, such as "at least 2 proposed topics".
//
// Any other error from the call (network, context) propagates immediately.
// When the budget is exhausted the last failure is returned as a
// *StructuredOutputError, guaranteeing no malformed object ever reaches the
// next agent or the dispatch layer.
func RunStructured[T any](
	ctx context.Context,
	stage string,
	maxAttempts int,
	call AgentCall[T],
	validate func(T) error,
) (T, error) {
	var zero T
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	lastError := ""
	feedback := ""

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := call(ctx, feedback)
		if err != nil {
			var malformed *MalformedOutputError
			if !errors.As(err, &malformed) {
				return zero, err
			}
			lastError = malformed.Detail
			feedback = malformed.Detail
			log.Printf("[EC2] %s attempt %d/%d: schema validation failed: %s", stage, attempt, maxAttempts, lastError)
			continue
		}

		if validate != nil {
			if verr := validate(result); verr != nil {
				lastError = verr.Error()
				feedback = verr.Error()
				log.Printf("[EC2] %s attempt %d/%d: business validation failed: %s", stage, attempt, maxAttempts, lastError)
				continue
			}
		}

		log.Printf("[EC2] %s passed validation on attempt %d", stage, attempt)
		return result, nil
	}

	return zero, &StructuredOutputError{Stage: stage, Attempts: maxAttempts, LastError: lastError}
}

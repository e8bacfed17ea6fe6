package guards

import "fmt"

// GarbageInputError indicates the raw input contains no researchable
// consumer content (EC1). The orchestrator maps it to a REJECTED run,
// never to FAILED.
type GarbageInputError struct {
	Reason     string
	Confidence float64
}

func (e *GarbageInputError) Error() string {
	return fmt.Sprintf("input rejected: %s (confidence=%.2f)", e.Reason, e.Confidence)
}

// MalformedOutputError indicates a single agent response failed schema
// validation or deserialization. RunStructured retries on it; anything else
// an agent returns propagates immediately.
type MalformedOutputError struct {
	Detail string
}

func (e *MalformedOutputError) Error() string {
	return "malformed agent output: " + e.Detail
}

// StructuredOutputError indicates an agent kept returning malformed or
// business-invalid output until the retry budget was exhausted (EC2).
type StructuredOutputError struct {
	Stage     string
	Attempts  int
	LastError string
}

func (e *StructuredOutputError) Error() string {
	return fmt.Sprintf("%s: structured output failed after %d attempts: %s", e.Stage, e.Attempts, e.LastError)
}

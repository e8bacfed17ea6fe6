package dispatch

import "fmt"

// WebhookDispatchError is a retryable delivery failure: network errors, 5xx
// responses, or a 2xx acknowledgement missing the production job ID.
type WebhookDispatchError struct {
	CorrelationID string
	StatusCode    int // 0 when the request never completed
	Attempts      int
	Cause         error
}

func (e *WebhookDispatchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("webhook dispatch %s failed after %d attempts (last status %d): %v", e.CorrelationID, e.Attempts, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("webhook dispatch %s failed after %d attempts: %v", e.CorrelationID, e.Attempts, e.Cause)
}

func (e *WebhookDispatchError) Unwrap() error { return e.Cause }

// NonRetryableDispatchError is a 4xx rejection: the payload or credentials
// are wrong and retrying the identical request cannot succeed.
type NonRetryableDispatchError struct {
	CorrelationID string
	StatusCode    int
	Body          string
}

func (e *NonRetryableDispatchError) Error() string {
	return fmt.Sprintf("webhook dispatch %s rejected with status %d: %s", e.CorrelationID, e.StatusCode, e.Body)
}

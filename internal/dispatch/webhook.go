package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/jonathan/strategy-engine/internal/types"
)

// Default delivery parameters.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 1 * time.Second
	DefaultTimeout     = 30 * time.Second
)

// Webhook headers shared with the production system.
const (
	HeaderCorrelationID  = "X-Correlation-Id"
	HeaderIdempotencyKey = "X-Idempotency-Key"
	HeaderSignature      = "X-Signature-256"
)

// DispatchResult records a successful, acknowledged delivery.
type DispatchResult struct {
	CorrelationID   string
	IdempotencyKey  string
	ProductionJobID string
	StatusCode      int
	Attempts        int
}

// Webhook delivers signed blueprint payloads to the production system with
// bounded exponential backoff. 4xx responses other than 429 abort
// immediately (*NonRetryableDispatchError); network failures, 5xx responses,
// 429s, and unparsable acknowledgements are retried and surface as
// *WebhookDispatchError once the budget is spent.
type Webhook struct {
	url         string
	secret      string
	bearerToken string
	maxAttempts int
	baseDelay   time.Duration
	http        *http.Client
}

// WebhookOptions configures a Webhook dispatcher.
type WebhookOptions struct {
	URL         string
	Secret      string
	BearerToken string        // optional production API token
	MaxAttempts int           // 0 means DefaultMaxAttempts
	BaseDelay   time.Duration // 0 means DefaultBaseDelay; first retry waits this long, doubling after
	Timeout     time.Duration // 0 means DefaultTimeout
}

// NewWebhook creates a dispatcher for the production webhook endpoint.
func NewWebhook(opts WebhookOptions) *Webhook {
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Webhook{
		url:         opts.URL,
		secret:      opts.Secret,
		bearerToken: opts.BearerToken,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		http:        &http.Client{Timeout: timeout},
	}
}

// ack is the production system's acceptance response. Older deployments
// return production_job_id instead of job_id.
type ack struct {
	JobID           string `json:"job_id"`
	ProductionJobID string `json:"production_job_id"`
}

// Dispatch sends the blueprint under the given correlation and idempotency
// identifiers. Both identifiers are injected into the payload body as well
// as the headers, so the receiver can correlate the delivery from the body
// alone. The payload is serialized once and the signature covers those
// exact bytes; all retry attempts resend them unchanged.
func (w *Webhook) Dispatch(ctx context.Context, blueprint *types.ContentBlueprint, correlationID, idempotencyKey string) (*DispatchResult, error) {
	body, err := buildPayload(blueprint, correlationID, idempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal blueprint %s: %w", blueprint.BlueprintID, err)
	}
	signature := Sign(body, w.secret)

	var lastErr error
	lastStatus := 0

	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		if attempt > 1 {
			delay := w.baseDelay << (attempt - 2)
			log.Printf("[Dispatch] %s attempt %d/%d in %s", correlationID, attempt, w.maxAttempts, delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, retryErr, fatalErr := w.attempt(ctx, body, signature, correlationID, idempotencyKey)
		if fatalErr != nil {
			return nil, fatalErr
		}
		if retryErr == nil {
			result.Attempts = attempt
			log.Printf("[Dispatch] %s accepted: job %s (status %d, attempt %d)", correlationID, result.ProductionJobID, result.StatusCode, attempt)
			return result, nil
		}

		lastErr = retryErr
		if we, ok := retryErr.(*attemptError); ok {
			lastStatus = we.status
		}
		log.Printf("[Dispatch] %s attempt %d/%d failed: %v", correlationID, attempt, w.maxAttempts, retryErr)
	}

	return nil, &WebhookDispatchError{
		CorrelationID: correlationID,
		StatusCode:    lastStatus,
		Attempts:      w.maxAttempts,
		Cause:         lastErr,
	}
}

// buildPayload flattens the blueprint into a JSON object and injects the
// correlation and idempotency identifiers as top-level fields.
func buildPayload(blueprint *types.ContentBlueprint, correlationID, idempotencyKey string) ([]byte, error) {
	raw, err := json.Marshal(blueprint)
	if err != nil {
		return nil, err
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	payload["correlation_id"], _ = json.Marshal(correlationID)
	payload["idempotency_key"], _ = json.Marshal(idempotencyKey)
	return json.Marshal(payload)
}

// attemptError wraps one retryable attempt failure with its status code.
type attemptError struct {
	status int
	cause  error
}

func (e *attemptError) Error() string { return e.cause.Error() }
func (e *attemptError) Unwrap() error { return e.cause }

// attempt performs one delivery. It returns exactly one of: a result,
// a retryable error, or a fatal error that must abort the loop.
func (w *Webhook) attempt(ctx context.Context, body []byte, signature, correlationID, idempotencyKey string) (*DispatchResult, error, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build dispatch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderCorrelationID, correlationID)
	req.Header.Set(HeaderIdempotencyKey, idempotencyKey)
	req.Header.Set(HeaderSignature, signature)
	if w.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+w.bearerToken)
	}

	resp, err := w.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, &attemptError{cause: err}, nil
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var parsed ack
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return nil, &attemptError{status: resp.StatusCode, cause: fmt.Errorf("unparsable acknowledgement: %w", err)}, nil
		}
		jobID := parsed.JobID
		if jobID == "" {
			jobID = parsed.ProductionJobID
		}
		if jobID == "" {
			// A 2xx without a job ID gives us nothing to track the campaign
			// by; treat it as a failed delivery.
			return nil, &attemptError{status: resp.StatusCode, cause: fmt.Errorf("acknowledgement is missing a production job id")}, nil
		}
		return &DispatchResult{
			CorrelationID:   correlationID,
			IdempotencyKey:  idempotencyKey,
			ProductionJobID: jobID,
			StatusCode:      resp.StatusCode,
		}, nil, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		// Rate limiting is transient; it goes through the retry budget like
		// a 5xx instead of aborting.
		return nil, &attemptError{status: resp.StatusCode, cause: fmt.Errorf("production system rate limited the dispatch")}, nil

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, nil, &NonRetryableDispatchError{
			CorrelationID: correlationID,
			StatusCode:    resp.StatusCode,
			Body:          string(respBody),
		}

	default:
		return nil, &attemptError{status: resp.StatusCode, cause: fmt.Errorf("server returned status %d", resp.StatusCode)}, nil
	}
}

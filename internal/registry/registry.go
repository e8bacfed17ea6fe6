// Package registry provides the published-content similarity lookup used by
// the cluster-building agent for keyword cannibalization checks. The vector
// search itself lives in an external service; this package only defines the
// lookup boundary and an HTTP client for it.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SimilarContent is one near-duplicate candidate returned by the registry.
type SimilarContent struct {
	ContentID      string  `json:"content_id"`
	URL            string  `json:"url"`
	Title          string  `json:"title"`
	PrimaryKeyword string  `json:"primary_keyword"`
	Score          float64 `json:"score"`
	ContentType    string  `json:"content_type,omitempty"`
}

// Searcher finds published content similar to a keyword. An empty result is
// a valid business outcome ("no existing content"), not an error; callers
// wrap results with the EC3 miss handler.
type Searcher interface {
	SearchSimilar(ctx context.Context, query string, limit int, threshold float64) ([]SimilarContent, error)
}

// Client is an HTTP Searcher backed by the content-registry service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a registry client for the given base URL. An empty URL is
// allowed; every search then fails and EC3 degrades the pipeline gracefully.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type searchRequest struct {
	Query     string  `json:"query"`
	Limit     int     `json:"limit"`
	Threshold float64 `json:"threshold"`
}

type searchResponse struct {
	Results []SimilarContent `json:"results"`
}

// SearchSimilar queries the registry for content similar to query. Scores
// below threshold are filtered server-side.
func (c *Client) SearchSimilar(ctx context.Context, query string, limit int, threshold float64) ([]SimilarContent, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("content registry URL is not configured")
	}

	body, err := json.Marshal(searchRequest{Query: query, Limit: limit, Threshold: threshold})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal registry query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build registry request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry search failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry search returned status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode registry response: %w", err)
	}
	return parsed.Results, nil
}

// Package seoapi looks up monthly search volumes for candidate keywords.
// The lookup is best-effort: any failure returns unverified volumes so the
// strategist can still produce a cluster and EC4 can pivot the distribution
// mode instead of failing the run.
package seoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// KeywordVolume is the verified search data for one keyword. Verified is
// false when the provider could not be reached or did not know the keyword.
type KeywordVolume struct {
	Keyword      string
	SearchVolume *int
	Difficulty   *int
	Verified     bool
}

// VolumeLookup resolves monthly search volumes for a batch of keywords.
type VolumeLookup interface {
	Volumes(ctx context.Context, keywords []string) ([]KeywordVolume, error)
}

// Client is a VolumeLookup backed by a DataForSEO-compatible HTTP endpoint.
type Client struct {
	baseURL string
	login   string
	pass    string
	http    *http.Client
}

// NewClient builds a keyword-volume client. An empty base URL is allowed;
// lookups then return unverified volumes for every keyword.
func NewClient(baseURL, login, password string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		login:   login,
		pass:    password,
		http:    &http.Client{Timeout: timeout},
	}
}

type volumeTask struct {
	Keywords []string `json:"keywords"`
}

type volumeResult struct {
	Keyword           string `json:"keyword"`
	SearchVolume      *int   `json:"search_volume"`
	KeywordDifficulty *int   `json:"keyword_difficulty"`
}

type volumeResponse struct {
	Tasks []struct {
		Result []volumeResult `json:"result"`
	} `json:"tasks"`
}

// Volumes looks up search volumes for keywords. It never fails the caller:
// on any provider error every keyword comes back unverified and the error is
// logged, not returned. The error return exists only for context
// cancellation.
func (c *Client) Volumes(ctx context.Context, keywords []string) ([]KeywordVolume, error) {
	unverified := make([]KeywordVolume, len(keywords))
	for i, kw := range keywords {
		unverified[i] = KeywordVolume{Keyword: kw}
	}
	if len(keywords) == 0 {
		return unverified, nil
	}
	if c.baseURL == "" {
		log.Printf("[SEOAPI] No provider configured: %d keywords left unverified", len(keywords))
		return unverified, nil
	}

	body, err := json.Marshal([]volumeTask{{Keywords: keywords}})
	if err != nil {
		return unverified, fmt.Errorf("failed to marshal volume request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v3/keywords_data/search_volume/live", bytes.NewReader(body))
	if err != nil {
		return unverified, fmt.Errorf("failed to build volume request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.login != "" {
		req.SetBasicAuth(c.login, c.pass)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return unverified, ctx.Err()
		}
		log.Printf("[SEOAPI] Volume lookup failed: %v (continuing unverified)", err)
		return unverified, nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[SEOAPI] Volume lookup returned status %d (continuing unverified)", resp.StatusCode)
		return unverified, nil
	}

	var parsed volumeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		log.Printf("[SEOAPI] Failed to decode volume response: %v (continuing unverified)", err)
		return unverified, nil
	}

	byKeyword := make(map[string]volumeResult)
	for _, task := range parsed.Tasks {
		for _, r := range task.Result {
			byKeyword[r.Keyword] = r
		}
	}

	out := make([]KeywordVolume, len(keywords))
	verified := 0
	for i, kw := range keywords {
		out[i] = KeywordVolume{Keyword: kw}
		if r, ok := byKeyword[kw]; ok && r.SearchVolume != nil {
			out[i].SearchVolume = r.SearchVolume
			out[i].Difficulty = r.KeywordDifficulty
			out[i].Verified = true
			verified++
		}
	}
	log.Printf("[SEOAPI] Verified %d/%d keywords", verified, len(keywords))
	return out, nil
}

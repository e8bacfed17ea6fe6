package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/strategy-engine/internal/agents"
	"github.com/jonathan/strategy-engine/internal/llm"
	"github.com/jonathan/strategy-engine/internal/registry"
	"github.com/jonathan/strategy-engine/internal/seoapi"
	"github.com/jonathan/strategy-engine/internal/types"
)

// goodInput passes the garbage guard: long enough, enough words, and carries
// purchase/pain signals.
const goodInput = "I bought an office chair last month and my lower back pain got worse, sitting for long hours is a real problem"

const intentJSON = `{
	"target_persona": "office workers with chronic back pain",
	"core_pain_points": ["sitting 10 hours a day", "cheap chairs break fast"],
	"underlying_emotions": ["frustration"],
	"raw_input_snippet": "my lower back pain got worse"
}`

const strategyJSON = `{
	"cluster_primary_keyword": "ergonomic chair",
	"proposed_topics": [
		{
			"topic_id": "hub-1", "title": "Ergonomic chair buyer guide", "slug": "ergonomic-chair-guide",
			"role": "hub", "content_type": "article",
			"seo": {"primary_keyword": "ergonomic chair"}
		},
		{
			"topic_id": "spoke-1", "title": "Lumbar support explained", "slug": "lumbar-support",
			"role": "spoke", "content_type": "video",
			"seo": {"primary_keyword": "lumbar support"},
			"geo_queries": [{"query_text": "what is lumbar support", "intent": "informational"}]
		}
	]
}`

const clusterJSON = `{
	"hub": {"topic_id": "hub-1", "title": "Ergonomic chair buyer guide", "role": "hub"},
	"spokes": [{"topic_id": "spoke-1", "title": "Lumbar support explained", "role": "spoke"}],
	"internal_links": [
		{"from_topic_id": "spoke-1", "to_topic_id": "hub-1",
		 "anchor_text": "full buyer guide", "link_type": "contextual"}
	],
	"cannibalization_risks": [],
	"existing_content_links": ["https://example.com/old-review"]
}`

type scriptedLLM struct {
	responses []string
	calls     int
}

func (s *scriptedLLM) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return s.GenerateJSON(ctx, prompt, tier)
}

func (s *scriptedLLM) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	if s.calls >= len(s.responses) {
		return "", errors.New("scriptedLLM: no response queued")
	}
	resp := s.responses[s.calls]
	s.calls++
	return resp, nil
}

func (s *scriptedLLM) GetModel(tier llm.ModelTier) string { return "fake-model" }
func (s *scriptedLLM) Close() error                       { return nil }

type memStore struct {
	created  int
	statuses []types.RunStatus
}

func (m *memStore) Create(ctx context.Context, state *types.PipelineState) error {
	m.created++
	return nil
}

func (m *memStore) UpdateFromState(ctx context.Context, state *types.PipelineState) error {
	m.statuses = append(m.statuses, state.Status)
	return nil
}

type stubVolumes struct {
	volumes []seoapi.KeywordVolume
}

func (s *stubVolumes) Volumes(ctx context.Context, keywords []string) ([]seoapi.KeywordVolume, error) {
	return s.volumes, nil
}

type stubSearcher struct {
	items []registry.SimilarContent
	err   error
}

func (s *stubSearcher) SearchSimilar(ctx context.Context, query string, limit int, threshold float64) ([]registry.SimilarContent, error) {
	return s.items, s.err
}

func volume(v int) *int { return &v }

func newTestRunner(client llm.Client, store RunStore, searcher registry.Searcher, volumes seoapi.VolumeLookup) *Runner {
	if volumes == nil {
		volumes = &stubVolumes{volumes: []seoapi.KeywordVolume{
			{Keyword: "ergonomic chair", SearchVolume: volume(5400), Verified: true},
			{Keyword: "lumbar support", SearchVolume: volume(880), Verified: true},
		}}
	}
	if searcher == nil {
		searcher = &stubSearcher{}
	}
	return NewRunner(Options{
		Extractor:  agents.NewIntentExtractor(client),
		Strategist: agents.NewStrategist(client, volumes),
		Builder:    agents.NewClusterBuilder(client, searcher),
		Store:      store,
		Model:      "fake-model",
	})
}

func TestRunner_HappyPath(t *testing.T) {
	client := &scriptedLLM{responses: []string{intentJSON, strategyJSON, clusterJSON}}
	store := &memStore{}
	runner := newTestRunner(client, store, nil, nil)

	state, err := runner.Run(context.Background(), goodInput)
	require.NoError(t, err)
	assert.Equal(t, types.RunAwaitingApproval, state.Status)
	assert.Equal(t, 1, store.created)

	// Status progression persisted before and after each stage.
	require.NotEmpty(t, store.statuses)
	assert.Equal(t, types.RunExtractingIntent, store.statuses[0])
	assert.Contains(t, store.statuses, types.RunStrategizing)
	assert.Contains(t, store.statuses, types.RunClustering)
	assert.Equal(t, types.RunAwaitingApproval, store.statuses[len(store.statuses)-1])

	require.NotNil(t, state.Blueprint)
	bp := state.Blueprint
	assert.NotEmpty(t, bp.BlueprintID)
	assert.Equal(t, state.RunID, bp.PipelineRunID)
	assert.Equal(t, "ergonomic chair", bp.ClusterPrimaryKeyword)
	assert.Equal(t, types.SEOModeFull, bp.SEOMode)
	require.NotNil(t, bp.EstimatedTotalSearchVolume)
	assert.Equal(t, 6280, *bp.EstimatedTotalSearchVolume)

	// Topics are resolved from the enriched strategy, not the cluster's
	// trimmed copies.
	require.Len(t, bp.Spokes, 1)
	assert.True(t, bp.Spokes[0].SEO.SearchVolumeVerified)
	assert.NotEmpty(t, bp.Spokes[0].GEOQueries)
	require.Len(t, bp.InternalLinks, 1)
	assert.Equal(t, "hub-1", bp.InternalLinks[0].ToTopicID)
	assert.NoError(t, bp.Validate())
}

func TestRunner_GarbageInputRejectedBeforeAnyModelCall(t *testing.T) {
	client := &scriptedLLM{}
	store := &memStore{}
	runner := newTestRunner(client, store, nil, nil)

	state, err := runner.Run(context.Background(), "555")
	require.NoError(t, err)
	assert.Equal(t, types.RunRejected, state.Status)
	assert.NotEmpty(t, state.Error)
	assert.Zero(t, client.calls, "no model call may happen for garbage input")
	assert.Equal(t, types.RunRejected, store.statuses[len(store.statuses)-1])
}

func TestRunner_EmptyExtractionRejected(t *testing.T) {
	noPainPoints := `{
		"target_persona": "someone",
		"core_pain_points": [],
		"underlying_emotions": []
	}`
	client := &scriptedLLM{responses: []string{noPainPoints}}
	runner := newTestRunner(client, &memStore{}, nil, nil)

	state, err := runner.Run(context.Background(), goodInput)
	require.NoError(t, err)
	assert.Equal(t, types.RunRejected, state.Status)
	assert.Contains(t, state.Error, "no pain points")
}

func TestRunner_PersistentMalformedStrategyFails(t *testing.T) {
	malformed := `{"proposed_topics": "not an array"}`
	client := &scriptedLLM{responses: []string{intentJSON, malformed, malformed, malformed}}
	runner := newTestRunner(client, &memStore{}, nil, nil)

	state, err := runner.Run(context.Background(), goodInput)
	require.NoError(t, err)
	assert.Equal(t, types.RunFailed, state.Status)
	assert.Contains(t, state.Error, "generate_strategy")
	assert.Contains(t, state.Error, "3 attempts")
	assert.Equal(t, 4, client.calls, "one intent call plus a full strategy retry budget")
}

func TestRunner_RegistryUnreachableStillSucceeds(t *testing.T) {
	client := &scriptedLLM{responses: []string{intentJSON, strategyJSON, clusterJSON}}
	searcher := &stubSearcher{err: errors.New("connection refused")}
	runner := newTestRunner(client, &memStore{}, searcher, nil)

	state, err := runner.Run(context.Background(), goodInput)
	require.NoError(t, err)
	assert.Equal(t, types.RunAwaitingApproval, state.Status)
	require.NotNil(t, state.Blueprint)
	assert.False(t, state.Blueprint.CannibalizationChecked)
}

func TestRunner_NoVolumeDataPivotsToGEOOnly(t *testing.T) {
	client := &scriptedLLM{responses: []string{intentJSON, strategyJSON, clusterJSON}}
	volumes := &stubVolumes{volumes: []seoapi.KeywordVolume{
		{Keyword: "ergonomic chair"},
		{Keyword: "lumbar support"},
	}}
	runner := newTestRunner(client, &memStore{}, nil, volumes)

	state, err := runner.Run(context.Background(), goodInput)
	require.NoError(t, err)
	require.NotNil(t, state.Blueprint)
	assert.Equal(t, types.SEOModeGEOOnly, state.Blueprint.SEOMode)
	assert.NotEmpty(t, state.Blueprint.SEOModeReason)
	assert.Nil(t, state.Blueprint.EstimatedTotalSearchVolume)
}

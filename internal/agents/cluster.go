package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonathan/strategy-engine/internal/guards"
	"github.com/jonathan/strategy-engine/internal/llm"
	"github.com/jonathan/strategy-engine/internal/prompts"
	"github.com/jonathan/strategy-engine/internal/registry"
	"github.com/jonathan/strategy-engine/internal/schemas"
	"github.com/jonathan/strategy-engine/internal/types"
)

// Cannibalization lookup parameters.
const (
	ragSearchLimit = 5
	ragThreshold   = 0.7
)

// ClusterBuilder is agent 3: it links the approved topics into a
// hub-and-spoke cluster and flags cannibalization risks against already
// published content.
type ClusterBuilder struct {
	llm      llm.Client
	searcher registry.Searcher
	ragMiss  *guards.RAGMissHandler
}

// NewClusterBuilder creates agent 3.
func NewClusterBuilder(client llm.Client, searcher registry.Searcher) *ClusterBuilder {
	return &ClusterBuilder{
		llm:      client,
		searcher: searcher,
		ragMiss:  guards.NewRAGMissHandler(),
	}
}

// CheckExisting queries the content registry for published pieces similar to
// the cluster's primary keyword and classifies the result through EC3. The
// lookup runs once per pipeline stage, outside the model retry loop.
func (b *ClusterBuilder) CheckExisting(ctx context.Context, keyword string) guards.RAGMissResult {
	items, err := b.searcher.SearchSimilar(ctx, keyword, ragSearchLimit, ragThreshold)
	if err != nil {
		return b.ragMiss.HandleError(err, keyword)
	}
	return b.ragMiss.Handle(items, ragThreshold, keyword)
}

// Build runs the cluster prompt over the strategy's topics. existing carries
// the EC3 result; its matches are shown to the model so it can flag overlap
// and link to published content.
func (b *ClusterBuilder) Build(ctx context.Context, strategy *types.SEOStrategy, existing guards.RAGMissResult, feedback string) (*types.TopicCluster, error) {
	topicsJSON, err := json.Marshal(strategy.ProposedTopics)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal topics: %w", err)
	}

	matches := existing.Matches
	if matches == nil {
		matches = []registry.SimilarContent{}
	}
	existingJSON, err := json.Marshal(matches)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal existing content: %w", err)
	}

	prompt := prompts.Format(prompts.MustGet(promptFile, "build-cluster"), map[string]string{
		"Topics":          string(topicsJSON),
		"ExistingContent": string(existingJSON),
	})
	prompt = withFeedback(prompt, feedback)

	raw, err := b.llm.GenerateJSON(ctx, prompt, llm.TierForStage(llm.StageBuildCluster))
	if err != nil {
		return nil, fmt.Errorf("cluster building call failed: %w", err)
	}

	var cluster types.TopicCluster
	if err := decodeValidated(schemas.SchemaCluster, raw, &cluster); err != nil {
		return nil, err
	}
	return &cluster, nil
}

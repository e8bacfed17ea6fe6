// Package pipeline provides the high-level orchestration for the content
// strategy process: three sequential agent stages wrapped by the input and
// output guards, with the run state persisted after every stage.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jonathan/strategy-engine/internal/agents"
	"github.com/jonathan/strategy-engine/internal/guards"
	"github.com/jonathan/strategy-engine/internal/llm"
	"github.com/jonathan/strategy-engine/internal/types"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// RunStore persists run state. Implemented by db.RunRepository; a no-op
// store is used by the one-shot CLI when no database is configured.
type RunStore interface {
	Create(ctx context.Context, state *types.PipelineState) error
	UpdateFromState(ctx context.Context, state *types.PipelineState) error
}

// NopStore discards run state. Used when persistence is not configured.
type NopStore struct{}

// Create implements RunStore.
func (NopStore) Create(ctx context.Context, state *types.PipelineState) error { return nil }

// UpdateFromState implements RunStore.
func (NopStore) UpdateFromState(ctx context.Context, state *types.PipelineState) error { return nil }

// BlueprintVersion is the payload schema version stamped on every blueprint.
const BlueprintVersion = "1.0"

// Runner executes the pipeline. All collaborators are injected; the runner
// holds no mutable state and is safe for concurrent runs.
type Runner struct {
	guard       *guards.GarbageInputGuard
	extractor   *agents.IntentExtractor
	strategist  *agents.Strategist
	builder     *agents.ClusterBuilder
	store       RunStore
	model       string
	maxAttempts int
	onProgress  ProgressCallback
}

// Options configures a Runner.
type Options struct {
	Extractor   *agents.IntentExtractor
	Strategist  *agents.Strategist
	Builder     *agents.ClusterBuilder
	Store       RunStore
	Model       string // recorded on each run for traceability
	MaxAttempts int    // structured-output retry budget, 0 means default
	OnProgress  ProgressCallback
}

// NewRunner creates a pipeline runner.
func NewRunner(opts Options) *Runner {
	store := opts.Store
	if store == nil {
		store = NopStore{}
	}
	return &Runner{
		guard:       guards.NewGarbageInputGuard(),
		extractor:   opts.Extractor,
		strategist:  opts.Strategist,
		builder:     opts.Builder,
		store:       store,
		model:       opts.Model,
		maxAttempts: opts.MaxAttempts,
		onProgress:  opts.OnProgress,
	}
}

// Run executes the full pipeline over normalized research input. The
// business outcome is encoded in the returned state's Status: AWAITING_APPROVAL
// on success, REJECTED when the input guard refuses the input, FAILED when an
// agent exhausts its retry budget or a stage errors. The error return is
// reserved for persistence failures.
func (r *Runner) Run(ctx context.Context, rawInput string) (*types.PipelineState, error) {
	state, err := r.Prepare(ctx, rawInput)
	if err != nil {
		return nil, err
	}
	return r.Resume(ctx, state)
}

// Prepare creates and persists a pending run record without executing any
// stage. The HTTP API uses it to hand the run ID back immediately and
// continue with Resume in the background.
func (r *Runner) Prepare(ctx context.Context, rawInput string) (*types.PipelineState, error) {
	state := types.NewPipelineState(rawInput, r.model)
	if err := r.store.Create(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to create run record: %w", err)
	}
	log.Printf("[Pipeline] Run %s started", state.RunID)
	return state, nil
}

// Resume executes all stages of a prepared run.
func (r *Runner) Resume(ctx context.Context, state *types.PipelineState) (*types.PipelineState, error) {
	// Stage 1: intent extraction, guarded by EC1 on both sides.
	if err := r.enterStage(ctx, state, types.RunExtractingIntent); err != nil {
		return nil, err
	}
	if err := r.guard.Check(state.RawInput); err != nil {
		return r.finishWithError(ctx, state, err)
	}
	intent, err := guards.RunStructured(ctx, llm.StageExtractIntent, r.maxAttempts,
		func(ctx context.Context, feedback string) (*types.ExtractedIntent, error) {
			return r.extractor.Extract(ctx, state.RawInput, feedback)
		}, nil)
	if err != nil {
		return r.finishWithError(ctx, state, err)
	}
	if err := r.guard.CheckIntent(intent); err != nil {
		return r.finishWithError(ctx, state, err)
	}
	state.Intent = intent
	if err := r.save(ctx, state); err != nil {
		return nil, err
	}

	// Stage 2: strategy generation plus volume enrichment and the EC4
	// distribution-mode decision.
	if err := r.enterStage(ctx, state, types.RunStrategizing); err != nil {
		return nil, err
	}
	strategy, err := guards.RunStructured(ctx, llm.StageGenerateStrategy, r.maxAttempts,
		func(ctx context.Context, feedback string) (*types.SEOStrategy, error) {
			return r.strategist.Generate(ctx, intent, feedback)
		},
		func(s *types.SEOStrategy) error { return s.Validate() })
	if err != nil {
		return r.finishWithError(ctx, state, err)
	}
	if err := r.strategist.Enrich(ctx, strategy); err != nil {
		return r.finishWithError(ctx, state, err)
	}
	state.SEOStrategy = strategy
	if err := r.save(ctx, state); err != nil {
		return nil, err
	}

	// Stage 3: cluster building. The cannibalization lookup runs once,
	// outside the retry loop; EC3 makes a missing registry a degrade, not a
	// failure.
	if err := r.enterStage(ctx, state, types.RunClustering); err != nil {
		return nil, err
	}
	existing := r.builder.CheckExisting(ctx, strategy.ClusterPrimaryKeyword)
	cluster, err := guards.RunStructured(ctx, llm.StageBuildCluster, r.maxAttempts,
		func(ctx context.Context, feedback string) (*types.TopicCluster, error) {
			return r.builder.Build(ctx, strategy, existing, feedback)
		},
		func(c *types.TopicCluster) error { return c.Validate() })
	if err != nil {
		return r.finishWithError(ctx, state, err)
	}
	state.Cluster = cluster
	if err := r.save(ctx, state); err != nil {
		return nil, err
	}

	// Final assembly: the blueprint takes its topics from the enriched
	// strategy (the cluster agent returns trimmed copies) and its link graph
	// from the cluster.
	blueprint, err := assembleBlueprint(state, strategy, cluster, existing)
	if err != nil {
		return r.finishWithError(ctx, state, err)
	}
	state.Blueprint = blueprint
	state.Status = types.RunAwaitingApproval
	if err := r.save(ctx, state); err != nil {
		return nil, err
	}
	r.emit(state, "blueprint ready for review")
	log.Printf("[Pipeline] Run %s awaiting approval (blueprint %s, mode %s)", state.RunID, blueprint.BlueprintID, blueprint.SEOMode)
	return state, nil
}

// enterStage advances the run status and persists before the stage work
// starts, so a crash mid-stage leaves an accurate record.
func (r *Runner) enterStage(ctx context.Context, state *types.PipelineState, status types.RunStatus) error {
	state.Status = status
	if err := r.save(ctx, state); err != nil {
		return err
	}
	r.emit(state, string(status))
	return nil
}

func (r *Runner) save(ctx context.Context, state *types.PipelineState) error {
	now := time.Now().UTC()
	state.UpdatedAt = &now
	if err := r.store.UpdateFromState(ctx, state); err != nil {
		return fmt.Errorf("failed to persist run %s: %w", state.RunID, err)
	}
	return nil
}

// finishWithError maps a stage error to a terminal status. EC1 rejections
// become REJECTED; everything else becomes FAILED. The business outcome is
// carried in the state, not the error return.
func (r *Runner) finishWithError(ctx context.Context, state *types.PipelineState, cause error) (*types.PipelineState, error) {
	var garbage *guards.GarbageInputError
	if errors.As(cause, &garbage) {
		state.Status = types.RunRejected
	} else {
		state.Status = types.RunFailed
	}
	state.Error = cause.Error()
	if err := r.save(ctx, state); err != nil {
		return nil, err
	}
	r.emit(state, cause.Error())
	log.Printf("[Pipeline] Run %s finished %s: %v", state.RunID, state.Status, cause)
	return state, nil
}

func (r *Runner) emit(state *types.PipelineState, message string) {
	if r.onProgress != nil {
		r.onProgress(ProgressEvent{
			Stage:   string(state.Status),
			Message: message,
			RunID:   state.RunID,
		})
	}
}

// assembleBlueprint merges the three stage outputs into the dispatch payload.
// Topics come from the enriched strategy keyed by topic ID; the cluster
// contributes the link graph, risks, and existing-content references.
func assembleBlueprint(state *types.PipelineState, strategy *types.SEOStrategy, cluster *types.TopicCluster, existing guards.RAGMissResult) (*types.ContentBlueprint, error) {
	byID := make(map[string]types.TopicNode, len(strategy.ProposedTopics))
	for _, topic := range strategy.ProposedTopics {
		byID[topic.TopicID] = topic
	}

	resolve := func(node types.TopicNode) types.TopicNode {
		if full, ok := byID[node.TopicID]; ok {
			return full
		}
		return node
	}

	spokes := make([]types.TopicNode, 0, len(cluster.Spokes))
	for _, spoke := range cluster.Spokes {
		spokes = append(spokes, resolve(spoke))
	}

	blueprint := &types.ContentBlueprint{
		BlueprintID: types.NewBlueprintID(),
		Version:     BlueprintVersion,
		CreatedAt:   time.Now().UTC(),

		TargetPersona:      state.Intent.TargetPersona,
		CorePainPoints:     state.Intent.CorePainPoints,
		UnderlyingEmotions: state.Intent.UnderlyingEmotions,
		RawInputSnippet:    state.Intent.RawInputSnippet,

		Hub:           resolve(cluster.Hub),
		Spokes:        spokes,
		InternalLinks: cluster.InternalLinks,

		ClusterPrimaryKeyword:      strategy.ClusterPrimaryKeyword,
		EstimatedTotalSearchVolume: strategy.EstimatedTotalSearchVolume,
		SEOMode:                    strategy.SEOMode,
		SEOModeReason:              strategy.SEOModeReason,

		PipelineRunID:          state.RunID,
		AgentModelUsed:         state.ModelUsed,
		CannibalizationChecked: existing.CannibalizationChecked,
		ExistingContentLinks:   cluster.ExistingContentLinks,
	}

	if err := blueprint.Validate(); err != nil {
		return nil, fmt.Errorf("assembled blueprint is invalid: %w", err)
	}
	return blueprint, nil
}

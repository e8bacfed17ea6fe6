package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunStatus is the lifecycle status of a pipeline run.
type RunStatus string

// Run status constants. REJECTED means EC1 refused the input before any
// model call; FAILED covers EC2 exhaustion and unhandled stage errors.
const (
	RunPending          RunStatus = "pending"
	RunExtractingIntent RunStatus = "extracting_intent"
	RunStrategizing     RunStatus = "strategizing"
	RunClustering       RunStatus = "clustering"
	RunAwaitingApproval RunStatus = "awaiting_approval"
	RunApproved         RunStatus = "approved"
	RunCompleted        RunStatus = "completed"
	RunRejected         RunStatus = "rejected"
	RunFailed           RunStatus = "failed"
)

// Terminal reports whether no further pipeline stage may run.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunRejected, RunFailed, RunCompleted:
		return true
	}
	return false
}

// ExtractedIntent is the output of agent 1 (intent extractor).
type ExtractedIntent struct {
	TargetPersona      string   `json:"target_persona"`
	CorePainPoints     []string `json:"core_pain_points"`
	UnderlyingEmotions []string `json:"underlying_emotions"`
	RawInputSnippet    string   `json:"raw_input_snippet,omitempty"`
}

// SEOStrategy is the output of agent 2 (SEO/GEO strategist).
type SEOStrategy struct {
	ProposedTopics             []TopicNode `json:"proposed_topics"`
	ClusterPrimaryKeyword      string      `json:"cluster_primary_keyword"`
	EstimatedTotalSearchVolume *int        `json:"estimated_total_search_volume,omitempty"`
	SEOMode                    SEOMode     `json:"seo_mode"`
	SEOModeReason              string      `json:"seo_mode_reason,omitempty"`
}

// Validate checks the business rules a JSON schema can't express for a
// freshly generated strategy: exactly one hub, at least one spoke, and a GEO
// query on every spoke. Violations feed the structured-output retry loop.
func (s *SEOStrategy) Validate() error {
	if s.ClusterPrimaryKeyword == "" {
		return fmt.Errorf("cluster_primary_keyword must not be empty")
	}
	hubs := 0
	spokes := 0
	for _, topic := range s.ProposedTopics {
		switch topic.Role {
		case RoleHub:
			hubs++
		case RoleSpoke:
			spokes++
			if len(topic.GEOQueries) == 0 {
				return fmt.Errorf("spoke %q must have at least 1 geo_query", topic.TopicID)
			}
		}
	}
	if hubs != 1 {
		return fmt.Errorf("strategy must have exactly 1 hub topic, got %d", hubs)
	}
	if spokes < 1 {
		return fmt.Errorf("strategy must have at least 1 spoke topic")
	}
	return nil
}

// TopicCluster is the output of agent 3 (cluster builder).
type TopicCluster struct {
	Hub                  TopicNode      `json:"hub"`
	Spokes               []TopicNode    `json:"spokes"`
	InternalLinks        []InternalLink `json:"internal_links"`
	CannibalizationRisks []string       `json:"cannibalization_risks,omitempty"`
	ExistingContentLinks []string       `json:"existing_content_links,omitempty"`
}

// Validate checks cluster integrity: roles are consistent and every internal
// link references a topic that exists in the cluster. Links to unknown topic
// IDs would be silently dropped at persistence time, so they count as agent
// errors here.
func (c *TopicCluster) Validate() error {
	if c.Hub.Role != RoleHub {
		return fmt.Errorf("hub node %q has role %q, want %q", c.Hub.TopicID, c.Hub.Role, RoleHub)
	}
	if len(c.Spokes) == 0 {
		return fmt.Errorf("cluster must have at least 1 spoke")
	}

	known := map[string]bool{c.Hub.TopicID: true}
	for _, spoke := range c.Spokes {
		if spoke.Role != RoleSpoke {
			return fmt.Errorf("spoke node %q has role %q, want %q", spoke.TopicID, spoke.Role, RoleSpoke)
		}
		known[spoke.TopicID] = true
	}
	for _, link := range c.InternalLinks {
		if !known[link.FromTopicID] {
			return fmt.Errorf("internal link references unknown from_topic_id %q", link.FromTopicID)
		}
		if !known[link.ToTopicID] {
			return fmt.Errorf("internal link references unknown to_topic_id %q", link.ToTopicID)
		}
	}
	return nil
}

// PipelineState is the full durable state of one pipeline run. It is owned
// exclusively by the orchestrator and persisted to the run repository after
// every stage so a crash leaves an inspectable partial record.
type PipelineState struct {
	RunID     string    `json:"run_id"`
	Status    RunStatus `json:"status"`
	RawInput  string    `json:"raw_input"`
	ModelUsed string    `json:"model_used"`

	Intent      *ExtractedIntent  `json:"intent,omitempty"`
	SEOStrategy *SEOStrategy      `json:"seo_strategy,omitempty"`
	Cluster     *TopicCluster     `json:"cluster,omitempty"`
	Blueprint   *ContentBlueprint `json:"blueprint,omitempty"`

	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// NewPipelineState initializes a pending run for the given raw input.
func NewPipelineState(rawInput, model string) *PipelineState {
	return &PipelineState{
		RunID:     uuid.New().String(),
		Status:    RunPending,
		RawInput:  rawInput,
		ModelUsed: model,
		CreatedAt: time.Now().UTC(),
	}
}

// Package types defines the shared domain types for the strategy engine.
// ContentBlueprint is the API contract: the exact JSON payload sent to the
// production system via webhook. Both systems must agree on this schema.
package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TopicRole identifies a node's position in the hub & spoke model.
type TopicRole string

// Topic role constants
const (
	RoleHub   TopicRole = "hub"
	RoleSpoke TopicRole = "spoke"
)

// ContentType is the output format of a content piece.
type ContentType string

// Supported content types
const (
	ContentVideo    ContentType = "video"
	ContentArticle  ContentType = "article"
	ContentShort    ContentType = "short"
	ContentCarousel ContentType = "carousel"
)

// SearchIntent classifies traditional SEO search intent.
type SearchIntent string

// Search intent constants
const (
	IntentInformational SearchIntent = "informational"
	IntentCommercial    SearchIntent = "commercial"
	IntentTransactional SearchIntent = "transactional"
	IntentNavigational  SearchIntent = "navigational"
)

// GEOIntent classifies a conversational AI-search query.
type GEOIntent string

// GEO intent constants
const (
	GEOInformational GEOIntent = "informational"
	GEOComparison    GEOIntent = "comparison"
	GEOSolution      GEOIntent = "solution"
)

// LinkType is the relationship type of an internal link.
type LinkType string

// Link type constants
const (
	LinkContextual LinkType = "contextual"
	LinkCTA        LinkType = "cta"
	LinkRelated    LinkType = "related"
)

// SEOMode is the EC4 strategy mode for a blueprint.
type SEOMode string

// SEO mode constants
const (
	SEOModeFull    SEOMode = "full_seo_geo"
	SEOModeGEOOnly SEOMode = "geo_only"
)

// GEOQuery is a conversational query pattern for AI search engines
// (ChatGPT, Perplexity, Gemini), as opposed to a traditional SEO keyword.
type GEOQuery struct {
	QueryText         string    `json:"query_text"`
	Intent            GEOIntent `json:"intent"`
	Constraints       []string  `json:"constraints,omitempty"`
	MandatoryElements []string  `json:"mandatory_elements,omitempty"`
}

// SEOMetadata is the keyword strategy for a single topic.
// SearchVolume is nil until verified; SearchVolumeVerified distinguishes real
// API data from an AI estimate.
type SEOMetadata struct {
	PrimaryKeyword       string       `json:"primary_keyword"`
	SecondaryKeywords    []string     `json:"secondary_keywords,omitempty"`
	LongTailKeywords     []string     `json:"long_tail_keywords,omitempty"`
	SearchVolume         *int         `json:"search_volume,omitempty"`
	SearchVolumeVerified bool         `json:"search_volume_verified"`
	KeywordDifficulty    *float64     `json:"keyword_difficulty,omitempty"`
	SearchIntent         SearchIntent `json:"search_intent"`
}

// TopicNode is the blueprint for one content piece (hub or spoke).
type TopicNode struct {
	TopicID     string      `json:"topic_id"`
	Title       string      `json:"title"`
	Slug        string      `json:"slug"`
	Role        TopicRole   `json:"role"`
	ContentType ContentType `json:"content_type"`

	Hook                  string   `json:"hook"`
	KeyPoints             []string `json:"key_points"`
	TargetDurationSeconds *int     `json:"target_duration_seconds,omitempty"`

	SEO        SEOMetadata `json:"seo"`
	GEOQueries []GEOQuery  `json:"geo_queries"`

	Tone string `json:"tone,omitempty"`
	CTA  string `json:"cta,omitempty"`
}

// InternalLink is a directed link between two topics in a cluster.
// The topic IDs are transient agent identifiers ("hub-main", "spoke-1");
// they are resolved to persisted node IDs at campaign-creation time.
type InternalLink struct {
	FromTopicID string   `json:"from_topic_id"`
	ToTopicID   string   `json:"to_topic_id"`
	AnchorText  string   `json:"anchor_text"`
	LinkType    LinkType `json:"link_type"`
	ExistingURL string   `json:"existing_url,omitempty"`
}

// ContentBlueprint is the finalized, schema-validated output of the
// three-stage pipeline, and the payload dispatched to the production system.
type ContentBlueprint struct {
	BlueprintID string    `json:"blueprint_id"`
	Version     string    `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	ApprovedBy  string    `json:"approved_by,omitempty"`

	TargetPersona      string   `json:"target_persona"`
	CorePainPoints     []string `json:"core_pain_points"`
	UnderlyingEmotions []string `json:"underlying_emotions"`
	RawInputSnippet    string   `json:"raw_input_snippet,omitempty"`

	Hub           TopicNode      `json:"hub"`
	Spokes        []TopicNode    `json:"spokes"`
	InternalLinks []InternalLink `json:"internal_links"`

	ClusterPrimaryKeyword      string `json:"cluster_primary_keyword"`
	EstimatedTotalSearchVolume *int   `json:"estimated_total_search_volume,omitempty"`

	SEOMode       SEOMode `json:"seo_mode"`
	SEOModeReason string  `json:"seo_mode_reason,omitempty"`

	PipelineRunID          string   `json:"pipeline_run_id"`
	AgentModelUsed         string   `json:"agent_model_used"`
	CannibalizationChecked bool     `json:"cannibalization_checked"`
	ExistingContentLinks   []string `json:"existing_content_links,omitempty"`
}

// NewBlueprintID returns a fresh blueprint identifier.
func NewBlueprintID() string {
	return uuid.New().String()
}

// Validate checks the structural rules the JSON schema alone can't express
// in context. Every spoke must carry at least one GEO query so persona
// constraints (height, budget) survive to the final payload; the hub may
// have zero.
func (b *ContentBlueprint) Validate() error {
	if b.Hub.Role != RoleHub {
		return fmt.Errorf("hub node %q has role %q, want %q", b.Hub.TopicID, b.Hub.Role, RoleHub)
	}
	if len(b.Spokes) == 0 {
		return fmt.Errorf("blueprint %s has no spokes", b.BlueprintID)
	}
	for _, spoke := range b.Spokes {
		if spoke.Role != RoleSpoke {
			return fmt.Errorf("spoke node %q has role %q, want %q", spoke.TopicID, spoke.Role, RoleSpoke)
		}
		if len(spoke.GEOQueries) == 0 {
			return fmt.Errorf("spoke %q must have at least 1 GEO query", spoke.TopicID)
		}
	}
	if b.ClusterPrimaryKeyword == "" {
		return fmt.Errorf("blueprint %s is missing cluster_primary_keyword", b.BlueprintID)
	}
	return nil
}

// Nodes returns the hub followed by all spokes.
func (b *ContentBlueprint) Nodes() []TopicNode {
	nodes := make([]TopicNode, 0, 1+len(b.Spokes))
	nodes = append(nodes, b.Hub)
	nodes = append(nodes, b.Spokes...)
	return nodes
}

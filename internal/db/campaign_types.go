package db

import (
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/strategy-engine/internal/types"
)

// CampaignStatus is the post-approval lifecycle status of a campaign.
type CampaignStatus string

// Campaign status constants. The production side of the lifecycle begins at
// DISPATCHING_TO_API; everything before it is owned by humans.
const (
	StatusDraftGenerating      CampaignStatus = "DRAFT_GENERATING"
	StatusPendingHumanApproval CampaignStatus = "PENDING_HUMAN_APPROVAL"
	StatusApproved             CampaignStatus = "APPROVED"
	StatusDispatchingToAPI     CampaignStatus = "DISPATCHING_TO_API"
	StatusProductionProcessing CampaignStatus = "PRODUCTION_PROCESSING"
	StatusDispatchFailed       CampaignStatus = "DISPATCH_FAILED"
	StatusProductionFailed     CampaignStatus = "PRODUCTION_FAILED"
	StatusCompleted            CampaignStatus = "COMPLETED"
	StatusFailed               CampaignStatus = "FAILED"
	StatusRejected             CampaignStatus = "REJECTED"
)

// Campaign is the durable aggregate for one approved (or in-approval)
// blueprint. The blueprint payload is kept verbatim so dispatch retries
// resend exactly what was approved.
type Campaign struct {
	ID          uuid.UUID `json:"id"`
	TenantID    string    `json:"tenant_id"`
	RunID       string    `json:"run_id"`
	BlueprintID string    `json:"blueprint_id"`

	Status                CampaignStatus `json:"status"`
	ClusterPrimaryKeyword string         `json:"cluster_primary_keyword"`
	SEOMode               types.SEOMode  `json:"seo_mode"`

	Blueprint *types.ContentBlueprint `json:"blueprint,omitempty"`

	CorrelationID    *string    `json:"correlation_id,omitempty"`
	IdempotencyKey   *string    `json:"idempotency_key,omitempty"`
	DispatchAttempts int        `json:"dispatch_attempts"`
	DispatchedAt     *time.Time `json:"dispatched_at,omitempty"`
	DispatchError    *string    `json:"dispatch_error,omitempty"`
	ProductionJobID  *string    `json:"production_job_id,omitempty"`

	ApprovedBy  *string    `json:"approved_by,omitempty"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// ContentNode is one persisted content piece of a campaign. The production
// columns are filled in by callbacks as pieces get published.
type ContentNode struct {
	ID         uuid.UUID `json:"id"`
	CampaignID uuid.UUID `json:"campaign_id"`

	TopicID     string            `json:"topic_id"` // transient agent ID, unique per campaign
	Title       string            `json:"title"`
	Slug        string            `json:"slug"`
	Role        types.TopicRole   `json:"role"`
	ContentType types.ContentType `json:"content_type"`
	Payload     types.TopicNode   `json:"payload"`

	ProductionURL    *string    `json:"production_url,omitempty"`
	ProductionStatus *string    `json:"production_status,omitempty"`
	PublishedAt      *time.Time `json:"published_at,omitempty"`
}

// NodeLink is a persisted internal link between two content nodes.
type NodeLink struct {
	ID         uuid.UUID      `json:"id"`
	CampaignID uuid.UUID      `json:"campaign_id"`
	FromNodeID uuid.UUID      `json:"from_node_id"`
	ToNodeID   uuid.UUID      `json:"to_node_id"`
	AnchorText string         `json:"anchor_text"`
	LinkType   types.LinkType `json:"link_type"`
}

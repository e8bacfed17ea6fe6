package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/strategy-engine/internal/dispatch"
	"github.com/jonathan/strategy-engine/internal/types"
)

// CampaignRepository persists campaign aggregates: the campaign row, its
// extracted intent, topic cluster, content nodes, and internal links. All
// status changes go through Transition, which enforces the state machine
// under a row lock.
type CampaignRepository struct {
	db *DB
}

// NewCampaignRepository creates a campaign repository on the given pool.
func NewCampaignRepository(db *DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

const campaignColumns = `id, tenant_id, run_id, blueprint_id, status, cluster_primary_keyword,
	seo_mode, blueprint, correlation_id, idempotency_key, dispatch_attempts, dispatched_at,
	dispatch_error, production_job_id, approved_by, approved_at, completed_at, created_at, updated_at`

func scanCampaign(row pgx.Row) (*Campaign, error) {
	var c Campaign
	var blueprintDoc []byte
	err := row.Scan(
		&c.ID, &c.TenantID, &c.RunID, &c.BlueprintID, &c.Status, &c.ClusterPrimaryKeyword,
		&c.SEOMode, &blueprintDoc, &c.CorrelationID, &c.IdempotencyKey, &c.DispatchAttempts, &c.DispatchedAt,
		&c.DispatchError, &c.ProductionJobID, &c.ApprovedBy, &c.ApprovedAt, &c.CompletedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(blueprintDoc) > 0 {
		var bp types.ContentBlueprint
		if err := json.Unmarshal(blueprintDoc, &bp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal blueprint for campaign %s: %w", c.ID, err)
		}
		c.Blueprint = &bp
	}
	return &c, nil
}

// CreateFromBlueprint persists a finished blueprint as a campaign aggregate
// in DRAFT_GENERATING. Topic IDs are resolved to node UUIDs while inserting
// the link graph; links referencing an unknown topic are dropped with a
// warning rather than failing the whole campaign.
func (r *CampaignRepository) CreateFromBlueprint(ctx context.Context, tenantID string, blueprint *types.ContentBlueprint, intent *types.ExtractedIntent) (*Campaign, error) {
	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	campaignID := uuid.New()
	blueprintDoc, err := json.Marshal(blueprint)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal blueprint %s: %w", blueprint.BlueprintID, err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO campaigns
		 (id, tenant_id, run_id, blueprint_id, status, cluster_primary_keyword, seo_mode, blueprint, dispatch_attempts)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0)`,
		campaignID, tenantID, blueprint.PipelineRunID, blueprint.BlueprintID,
		string(StatusDraftGenerating), blueprint.ClusterPrimaryKeyword, string(blueprint.SEOMode), blueprintDoc,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert campaign: %w", err)
	}

	if intent != nil {
		painPoints, _ := json.Marshal(intent.CorePainPoints)
		emotions, _ := json.Marshal(intent.UnderlyingEmotions)
		_, err = tx.Exec(ctx,
			`INSERT INTO extracted_intents
			 (campaign_id, target_persona, core_pain_points, underlying_emotions, raw_input_snippet)
			 VALUES ($1, $2, $3, $4, $5)`,
			campaignID, intent.TargetPersona, painPoints, emotions, intent.RawInputSnippet,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert extracted intent: %w", err)
		}
	}

	existingLinks, _ := json.Marshal(blueprint.ExistingContentLinks)
	_, err = tx.Exec(ctx,
		`INSERT INTO topic_clusters
		 (campaign_id, cluster_primary_keyword, seo_mode, seo_mode_reason,
		  estimated_total_search_volume, cannibalization_checked, existing_content_links)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		campaignID, blueprint.ClusterPrimaryKeyword, string(blueprint.SEOMode), blueprint.SEOModeReason,
		blueprint.EstimatedTotalSearchVolume, blueprint.CannibalizationChecked, existingLinks,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert topic cluster: %w", err)
	}

	// Insert content nodes, building the topic-ID resolution map for links.
	nodeIDs := make(map[string]uuid.UUID, 1+len(blueprint.Spokes))
	for _, node := range blueprint.Nodes() {
		payload, err := json.Marshal(node)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal topic %s: %w", node.TopicID, err)
		}
		nodeID := uuid.New()
		_, err = tx.Exec(ctx,
			`INSERT INTO content_nodes
			 (id, campaign_id, topic_id, title, slug, role, content_type, payload)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			nodeID, campaignID, node.TopicID, node.Title, node.Slug,
			string(node.Role), string(node.ContentType), payload,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert content node %s: %w", node.TopicID, err)
		}
		nodeIDs[node.TopicID] = nodeID
	}

	for _, link := range blueprint.InternalLinks {
		fromID, fromOK := nodeIDs[link.FromTopicID]
		toID, toOK := nodeIDs[link.ToTopicID]
		if !fromOK || !toOK {
			log.Printf("[CampaignRepo] Dropping internal link %s -> %s: unresolved topic id", link.FromTopicID, link.ToTopicID)
			continue
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO internal_links (id, campaign_id, from_node_id, to_node_id, anchor_text, link_type)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New(), campaignID, fromID, toID, link.AnchorText, string(link.LinkType),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert internal link %s -> %s: %w", link.FromTopicID, link.ToTopicID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit campaign: %w", err)
	}

	log.Printf("[CampaignRepo] Created campaign %s for blueprint %s (%d nodes)", campaignID, blueprint.BlueprintID, len(nodeIDs))
	return r.GetByID(ctx, campaignID)
}

// TransitionOptions carries the side-effect inputs for specific targets.
type TransitionOptions struct {
	ApprovedBy      string // required for the first move to APPROVED
	ProductionJobID string // required for PRODUCTION_PROCESSING
	DispatchError   string // recorded on *_FAILED targets
}

// Transition moves a campaign to target under the state machine. The row is
// locked for the duration of the check-then-write, so concurrent transitions
// serialize and the loser sees the winner's status in its error. Side
// effects are keyed to the target status:
//
//	APPROVED               stamps approver and approval time (first time only)
//	DISPATCHING_TO_API     stamps correlation/idempotency identifiers once,
//	                       increments dispatch_attempts, sets dispatched_at
//	PRODUCTION_PROCESSING  stores the production job ID
//	*_FAILED               stores the dispatch error
//	COMPLETED              stamps the completion time
func (r *CampaignRepository) Transition(ctx context.Context, campaignID uuid.UUID, target CampaignStatus, opts TransitionOptions) (*Campaign, error) {
	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	c, err := scanCampaign(tx.QueryRow(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = $1 FOR UPDATE`, campaignID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("campaign not found: %s", campaignID)
		}
		return nil, fmt.Errorf("failed to load campaign %s: %w", campaignID, err)
	}

	from := c.Status
	if err := applyTransition(c, target, opts, time.Now().UTC()); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		`UPDATE campaigns SET
		 status = $2, correlation_id = $3, idempotency_key = $4, dispatch_attempts = $5,
		 dispatched_at = $6, dispatch_error = $7, production_job_id = $8,
		 approved_by = $9, approved_at = $10, completed_at = $11, updated_at = $12
		 WHERE id = $1`,
		c.ID, string(c.Status), c.CorrelationID, c.IdempotencyKey, c.DispatchAttempts,
		c.DispatchedAt, c.DispatchError, c.ProductionJobID,
		c.ApprovedBy, c.ApprovedAt, c.CompletedAt, c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update campaign %s: %w", campaignID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transition: %w", err)
	}

	log.Printf("[CampaignRepo] Campaign %s: %s -> %s", campaignID, from, target)
	return c, nil
}

// applyTransition mutates the loaded campaign for a move to target: the
// membership check plus the target-keyed side effects. Pure in-memory; the
// caller owns locking and persistence.
func applyTransition(c *Campaign, target CampaignStatus, opts TransitionOptions, now time.Time) error {
	if !CanTransition(c.Status, target) {
		return &InvalidTransitionError{CampaignID: c.ID.String(), Current: c.Status, Target: target}
	}

	c.Status = target
	c.UpdatedAt = &now

	switch target {
	case StatusApproved:
		if opts.ApprovedBy != "" {
			c.ApprovedBy = &opts.ApprovedBy
			c.ApprovedAt = &now
		}

	case StatusDispatchingToAPI:
		if c.ApprovedAt == nil {
			return fmt.Errorf("campaign %s has no approval timestamp", c.ID)
		}
		// Identifiers are stamped once; retries resend under the same
		// correlation ID and idempotency key.
		if c.CorrelationID == nil {
			correlationID := dispatch.CorrelationID(c.TenantID, c.BlueprintID, now)
			idempotencyKey := dispatch.IdempotencyKey(c.BlueprintID, c.TenantID, *c.ApprovedAt)
			c.CorrelationID = &correlationID
			c.IdempotencyKey = &idempotencyKey
		}
		c.DispatchAttempts++
		c.DispatchedAt = &now

	case StatusProductionProcessing:
		if opts.ProductionJobID == "" {
			return fmt.Errorf("campaign %s: production job id is required for %s", c.ID, target)
		}
		c.ProductionJobID = &opts.ProductionJobID

	case StatusDispatchFailed, StatusProductionFailed, StatusFailed:
		if opts.DispatchError != "" {
			c.DispatchError = &opts.DispatchError
		}

	case StatusCompleted:
		c.CompletedAt = &now
	}
	return nil
}

// GetByID loads one campaign. Returns (nil, nil) when it does not exist.
func (r *CampaignRepository) GetByID(ctx context.Context, campaignID uuid.UUID) (*Campaign, error) {
	c, err := scanCampaign(r.db.pool.QueryRow(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, campaignID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get campaign %s: %w", campaignID, err)
	}
	return c, nil
}

// GetByCorrelationID resolves a production callback to its campaign.
// Returns (nil, nil) when no campaign carries the ID.
func (r *CampaignRepository) GetByCorrelationID(ctx context.Context, correlationID string) (*Campaign, error) {
	c, err := scanCampaign(r.db.pool.QueryRow(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE correlation_id = $1`, correlationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get campaign by correlation %s: %w", correlationID, err)
	}
	return c, nil
}

// ListForTenant returns a tenant's campaigns, newest first.
func (r *CampaignRepository) ListForTenant(ctx context.Context, tenantID string, limit int) ([]Campaign, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.pool.Query(ctx,
		`SELECT `+campaignColumns+` FROM campaigns
		 WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT $2`,
		tenantID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, nil
}

// StuckInProcessing returns campaigns that entered PRODUCTION_PROCESSING
// longer than maxAge ago and never received a callback. The watchdog
// surfaces them for manual intervention; nothing is cancelled automatically.
func (r *CampaignRepository) StuckInProcessing(ctx context.Context, maxAge time.Duration) ([]Campaign, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	rows, err := r.db.pool.Query(ctx,
		`SELECT `+campaignColumns+` FROM campaigns
		 WHERE status = $1 AND dispatched_at < $2
		 ORDER BY dispatched_at ASC`,
		string(StatusProductionProcessing), cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query stuck campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, nil
}

// Nodes returns the content nodes of a campaign, hub first.
func (r *CampaignRepository) Nodes(ctx context.Context, campaignID uuid.UUID) ([]ContentNode, error) {
	rows, err := r.db.pool.Query(ctx,
		`SELECT id, campaign_id, topic_id, title, slug, role, content_type, payload,
		        production_url, production_status, published_at
		 FROM content_nodes WHERE campaign_id = $1
		 ORDER BY (role = 'hub') DESC, topic_id ASC`,
		campaignID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list content nodes: %w", err)
	}
	defer rows.Close()

	var nodes []ContentNode
	for rows.Next() {
		var n ContentNode
		var payload []byte
		if err := rows.Scan(&n.ID, &n.CampaignID, &n.TopicID, &n.Title, &n.Slug, &n.Role, &n.ContentType,
			&payload, &n.ProductionURL, &n.ProductionStatus, &n.PublishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan content node: %w", err)
		}
		if err := json.Unmarshal(payload, &n.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal node %s: %w", n.TopicID, err)
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// UpdateNodeProduction records per-node publication results from a
// production callback.
func (r *CampaignRepository) UpdateNodeProduction(ctx context.Context, campaignID uuid.UUID, topicID, productionURL, productionStatus string, publishedAt *time.Time) error {
	tag, err := r.db.pool.Exec(ctx,
		`UPDATE content_nodes
		 SET production_url = NULLIF($3, ''), production_status = NULLIF($4, ''), published_at = $5
		 WHERE campaign_id = $1 AND topic_id = $2`,
		campaignID, topicID, productionURL, productionStatus, publishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update node %s: %w", topicID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("content node not found: campaign %s topic %s", campaignID, topicID)
	}
	return nil
}

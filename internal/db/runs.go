package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/strategy-engine/internal/types"
)

// RunRepository persists pipeline run state. Each run is stored as one JSONB
// document plus indexed status/timestamp columns, so intermediate agent
// output survives crashes and stays queryable without a rigid schema.
type RunRepository struct {
	db *DB
}

// NewRunRepository creates a run repository on the given connection pool.
func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

// RunSummary is the lightweight listing view of a run.
type RunSummary struct {
	RunID     string          `json:"run_id"`
	Status    types.RunStatus `json:"status"`
	ModelUsed string          `json:"model_used"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
}

// Create inserts a fresh run record.
func (r *RunRepository) Create(ctx context.Context, state *types.PipelineState) error {
	doc, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal run state: %w", err)
	}

	_, err = r.db.pool.Exec(ctx,
		`INSERT INTO pipeline_runs (run_id, status, model_used, state, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		state.RunID, string(state.Status), state.ModelUsed, doc, state.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create run %s: %w", state.RunID, err)
	}
	return nil
}

// UpdateFromState replaces the stored document with the current state. The
// orchestrator calls this after every stage, so the indexed columns track
// the document.
func (r *RunRepository) UpdateFromState(ctx context.Context, state *types.PipelineState) error {
	doc, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal run state: %w", err)
	}

	tag, err := r.db.pool.Exec(ctx,
		`UPDATE pipeline_runs
		 SET status = $2, state = $3, error = NULLIF($4, ''), updated_at = NOW()
		 WHERE run_id = $1`,
		state.RunID, string(state.Status), doc, state.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to update run %s: %w", state.RunID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("run not found: %s", state.RunID)
	}
	return nil
}

// Update merges the given fields into the stored document without touching
// the rest. A "status" field also updates the indexed status column, an
// "error" field the error column.
func (r *RunRepository) Update(ctx context.Context, runID string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	patch, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to marshal run update: %w", err)
	}

	tag, err := r.db.pool.Exec(ctx,
		`UPDATE pipeline_runs
		 SET state = state || $2::jsonb,
		     status = COALESCE($3, status),
		     error = COALESCE($4, error),
		     updated_at = NOW()
		 WHERE run_id = $1`,
		runID, patch, stringField(fields, "status"), stringField(fields, "error"),
	)
	if err != nil {
		return fmt.Errorf("failed to update run %s: %w", runID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}
	return nil
}

func stringField(fields map[string]any, key string) *string {
	if v, ok := fields[key].(string); ok {
		return &v
	}
	return nil
}

// Get loads the full run state. Returns (nil, nil) when the run does not
// exist.
func (r *RunRepository) Get(ctx context.Context, runID string) (*types.PipelineState, error) {
	var doc []byte
	err := r.db.pool.QueryRow(ctx,
		`SELECT state FROM pipeline_runs WHERE run_id = $1`, runID,
	).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run %s: %w", runID, err)
	}

	var state types.PipelineState
	if err := json.Unmarshal(doc, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run %s: %w", runID, err)
	}
	return &state, nil
}

// ListRecent returns the newest runs, most recent first.
func (r *RunRepository) ListRecent(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.pool.Query(ctx,
		`SELECT run_id, status, model_used, COALESCE(error, ''), created_at, updated_at
		 FROM pipeline_runs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var summaries []RunSummary
	for rows.Next() {
		var s RunSummary
		if err := rows.Scan(&s.RunID, &s.Status, &s.ModelUsed, &s.Error, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

// MarkApproved flips an awaiting run to approved. The status guard is in
// the WHERE clause so concurrent approvals cannot double-fire.
func (r *RunRepository) MarkApproved(ctx context.Context, runID, approvedBy string) error {
	tag, err := r.db.pool.Exec(ctx,
		`UPDATE pipeline_runs
		 SET status = $2, approved_by = $3, approved_at = NOW(), updated_at = NOW()
		 WHERE run_id = $1 AND status = $4`,
		runID, string(types.RunApproved), approvedBy, string(types.RunAwaitingApproval),
	)
	if err != nil {
		return fmt.Errorf("failed to approve run %s: %w", runID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("run %s is not awaiting approval", runID)
	}
	return nil
}

// MarkCompleted marks an approved run as completed.
func (r *RunRepository) MarkCompleted(ctx context.Context, runID string) error {
	tag, err := r.db.pool.Exec(ctx,
		`UPDATE pipeline_runs SET status = $2, updated_at = NOW() WHERE run_id = $1`,
		runID, string(types.RunCompleted),
	)
	if err != nil {
		return fmt.Errorf("failed to complete run %s: %w", runID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}
	return nil
}

// MarkFailed records a terminal failure with its reason.
func (r *RunRepository) MarkFailed(ctx context.Context, runID, reason string) error {
	tag, err := r.db.pool.Exec(ctx,
		`UPDATE pipeline_runs
		 SET status = $2, error = $3, updated_at = NOW()
		 WHERE run_id = $1`,
		runID, string(types.RunFailed), reason,
	)
	if err != nil {
		return fmt.Errorf("failed to mark run %s failed: %w", runID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}
	return nil
}

// SaveResearchInput archives the normalized raw input of a run for audit
// and later re-processing.
func (r *RunRepository) SaveResearchInput(ctx context.Context, runID, rawText, source, hash string) error {
	_, err := r.db.pool.Exec(ctx,
		`INSERT INTO user_research_inputs (run_id, raw_text, source, content_hash)
		 VALUES ($1, $2, $3, $4)`,
		runID, rawText, source, hash,
	)
	if err != nil {
		return fmt.Errorf("failed to save research input for run %s: %w", runID, err)
	}
	return nil
}

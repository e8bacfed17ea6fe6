package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jonathan/strategy-engine/internal/db"
	"github.com/jonathan/strategy-engine/internal/ingestion"
	"github.com/jonathan/strategy-engine/internal/llm"
	"github.com/jonathan/strategy-engine/internal/server/middleware"
	"github.com/jonathan/strategy-engine/internal/types"
)

var validate = validator.New()

// runTimeout bounds a background pipeline run. Three agent stages with full
// retry budgets stay well under this.
const runTimeout = 15 * time.Minute

// StartPipelineRequest is the body of POST /pipeline/start. The min length
// is a cheap transport-level filter; the real garbage-input heuristics run
// inside the pipeline. Model optionally pins every stage to one tier
// ("lite", "standard", "advanced") instead of the per-stage mapping.
type StartPipelineRequest struct {
	RawText string `json:"raw_text" validate:"required,min=10"`
	Model   string `json:"model"`
	Source  string `json:"source"`
}

// handleStartPipeline accepts raw research input, creates a run record, and
// executes the pipeline in the background. The response carries the run ID
// for status polling.
func (s *Server) handleStartPipeline(w http.ResponseWriter, r *http.Request) {
	var req StartPipelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		s.errorResponse(w, http.StatusUnprocessableEntity, "raw_text is required and must be at least 10 characters")
		return
	}

	var tier llm.ModelTier
	if req.Model != "" {
		parsed, ok := llm.ParseTier(req.Model)
		if !ok {
			s.errorResponse(w, http.StatusUnprocessableEntity, "model must be one of: lite, standard, advanced")
			return
		}
		tier = parsed
	}
	runner := s.runnerForTier(tier)

	source := req.Source
	if source == "" {
		source = "api"
	}
	normalized, meta := ingestion.Normalize(req.RawText, source)

	state, err := runner.Prepare(r.Context(), normalized)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.runs.SaveResearchInput(r.Context(), state.RunID, normalized, meta.Source, meta.Hash); err != nil {
		log.Printf("[Server] Failed to archive research input for run %s: %v", state.RunID, err)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		if _, err := runner.Resume(ctx, state); err != nil {
			log.Printf("[Server] Run %s aborted: %v", state.RunID, err)
		}
	}()

	s.jsonResponse(w, http.StatusAccepted, map[string]string{
		"run_id": state.RunID,
		"status": string(state.Status),
	})
}

// handleListRuns returns recent pipeline runs.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	summaries, err := s.runs.ListRecent(r.Context(), limit)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"runs": summaries})
}

// handleGetRun returns the full state of one run, including any partial
// stage output.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	state, err := s.loadRun(w, r)
	if state == nil || err != nil {
		return
	}
	s.jsonResponse(w, http.StatusOK, state)
}

// handleGetBlueprint returns just the assembled blueprint of a run.
func (s *Server) handleGetBlueprint(w http.ResponseWriter, r *http.Request) {
	state, err := s.loadRun(w, r)
	if state == nil || err != nil {
		return
	}
	if state.Blueprint == nil {
		s.errorResponse(w, http.StatusConflict, "run has no blueprint yet (status: "+string(state.Status)+")")
		return
	}
	s.jsonResponse(w, http.StatusOK, state.Blueprint)
}

// ApproveRunRequest is the body of POST /pipeline/runs/{run_id}/approve.
type ApproveRunRequest struct {
	TenantID string `json:"tenant_id" validate:"required"`
}

// handleApproveRun records human approval of a blueprint, creates the
// campaign aggregate, and dispatches it to the production system. Dispatch
// failure is reported through the campaign status, not an HTTP error.
func (s *Server) handleApproveRun(w http.ResponseWriter, r *http.Request) {
	operator, err := middleware.GetOperator(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req ApproveRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "tenant_id is required")
		return
	}

	state, err := s.loadRun(w, r)
	if state == nil || err != nil {
		return
	}
	if state.Status != types.RunAwaitingApproval || state.Blueprint == nil {
		s.errorResponse(w, http.StatusConflict, "run is not awaiting approval (status: "+string(state.Status)+")")
		return
	}

	if err := s.runs.MarkApproved(r.Context(), state.RunID, operator); err != nil {
		s.errorResponse(w, http.StatusConflict, err.Error())
		return
	}
	state.Blueprint.ApprovedBy = operator

	campaign, err := s.campaigns.CreateFromBlueprint(r.Context(), req.TenantID, state.Blueprint, state.Intent)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	campaign, err = s.campaigns.Transition(r.Context(), campaign.ID, db.StatusPendingHumanApproval, db.TransitionOptions{})
	if err == nil {
		campaign, err = s.campaigns.Transition(r.Context(), campaign.ID, db.StatusApproved, db.TransitionOptions{ApprovedBy: operator})
	}
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	if s.webhook == nil {
		log.Printf("[Server] Campaign %s approved; no production webhook configured", campaign.ID)
		s.jsonResponse(w, http.StatusOK, campaign)
		return
	}

	campaign, err = s.dispatchCampaign(r.Context(), campaign)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, campaign)
}

// handleRejectRun marks an awaiting run as rejected. Rejection is terminal;
// a new run must be started from (possibly revised) input.
func (s *Server) handleRejectRun(w http.ResponseWriter, r *http.Request) {
	operator, err := middleware.GetOperator(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	state, err := s.loadRun(w, r)
	if state == nil || err != nil {
		return
	}
	if state.Status != types.RunAwaitingApproval {
		s.errorResponse(w, http.StatusConflict, "run is not awaiting approval (status: "+string(state.Status)+")")
		return
	}

	reason := "rejected by " + operator
	if err := s.runs.Update(r.Context(), state.RunID, map[string]any{
		"status": string(types.RunRejected),
		"error":  reason,
	}); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	now := time.Now().UTC()
	state.Status = types.RunRejected
	state.Error = reason
	state.UpdatedAt = &now
	s.jsonResponse(w, http.StatusOK, state)
}

// handleRetryDispatch re-dispatches a campaign whose previous dispatch or
// production run failed. The recovery path routes through APPROVED, so the
// original approval stamp and correlation ID are preserved.
func (s *Server) handleRetryDispatch(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.GetOperator(r); err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if s.webhook == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "no production webhook configured")
		return
	}

	campaign := s.loadCampaign(w, r)
	if campaign == nil {
		return
	}

	campaign, err := s.campaigns.Transition(r.Context(), campaign.ID, db.StatusApproved, db.TransitionOptions{})
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	campaign, err = s.dispatchCampaign(r.Context(), campaign)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, campaign)
}

// dispatchCampaign runs the dispatch sequence: move to DISPATCHING_TO_API
// (which stamps the wire identifiers), send the webhook, and record the
// outcome. A webhook failure lands the campaign in DISPATCH_FAILED; the
// error return is reserved for persistence problems.
func (s *Server) dispatchCampaign(ctx context.Context, campaign *db.Campaign) (*db.Campaign, error) {
	campaign, err := s.campaigns.Transition(ctx, campaign.ID, db.StatusDispatchingToAPI, db.TransitionOptions{})
	if err != nil {
		return nil, err
	}

	result, err := s.webhook.Dispatch(ctx, campaign.Blueprint, *campaign.CorrelationID, *campaign.IdempotencyKey)
	if err != nil {
		return s.campaigns.Transition(ctx, campaign.ID, db.StatusDispatchFailed, db.TransitionOptions{DispatchError: err.Error()})
	}

	return s.campaigns.Transition(ctx, campaign.ID, db.StatusProductionProcessing, db.TransitionOptions{ProductionJobID: result.ProductionJobID})
}

// handleListCampaigns returns a tenant's campaigns.
func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		s.errorResponse(w, http.StatusBadRequest, "tenant_id query parameter is required")
		return
	}

	campaigns, err := s.campaigns.ListForTenant(r.Context(), tenantID, queryInt(r, "limit", 50))
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"campaigns": campaigns})
}

// handleGetCampaign returns one campaign.
func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	campaign := s.loadCampaign(w, r)
	if campaign == nil {
		return
	}
	s.jsonResponse(w, http.StatusOK, campaign)
}

// handleGetCampaignNodes returns the content nodes of a campaign, including
// any production results reported so far.
func (s *Server) handleGetCampaignNodes(w http.ResponseWriter, r *http.Request) {
	campaign := s.loadCampaign(w, r)
	if campaign == nil {
		return
	}

	nodes, err := s.campaigns.Nodes(r.Context(), campaign.ID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"nodes": nodes})
}

// handleStuckCampaigns lists campaigns stuck in PRODUCTION_PROCESSING longer
// than the given number of hours (default: the watchdog max age).
func (s *Server) handleStuckCampaigns(w http.ResponseWriter, r *http.Request) {
	maxAge := s.cfg.WatchdogMaxAge
	if hours := queryInt(r, "hours", 0); hours > 0 {
		maxAge = time.Duration(hours) * time.Hour
	}

	stuck, err := s.campaigns.StuckInProcessing(r.Context(), maxAge)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"campaigns": stuck})
}

// loadRun resolves the {run_id} path value. On failure it writes the error
// response and returns nil.
func (s *Server) loadRun(w http.ResponseWriter, r *http.Request) (*types.PipelineState, error) {
	runID := r.PathValue("run_id")
	state, err := s.runs.Get(r.Context(), runID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return nil, err
	}
	if state == nil {
		s.errorResponse(w, http.StatusNotFound, (&ErrNotFound{Resource: "run", ID: runID}).Error())
		return nil, errors.New("not found")
	}
	return state, nil
}

// loadCampaign resolves the {id} path value. On failure it writes the error
// response and returns nil.
func (s *Server) loadCampaign(w http.ResponseWriter, r *http.Request) *db.Campaign {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid campaign id")
		return nil
	}

	campaign, err := s.campaigns.GetByID(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return nil
	}
	if campaign == nil {
		s.errorResponse(w, http.StatusNotFound, (&ErrNotFound{Resource: "campaign", ID: id.String()}).Error())
		return nil
	}
	return campaign
}

func queryInt(r *http.Request, key string, fallback int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil {
			return value
		}
	}
	return fallback
}

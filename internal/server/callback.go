package server

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/jonathan/strategy-engine/internal/db"
	"github.com/jonathan/strategy-engine/internal/dispatch"
)

// ProductionCallback is the payload the production system posts when a job
// finishes. Per-node results are optional; older callers only report the
// campaign-level outcome.
type ProductionCallback struct {
	CorrelationID string         `json:"correlation_id"`
	Status        string         `json:"status"` // "completed" or "failed"
	Error         string         `json:"error,omitempty"`
	Nodes         []CallbackNode `json:"nodes,omitempty"`
}

// CallbackNode is one published content piece in a production callback.
type CallbackNode struct {
	TopicID       string     `json:"topic_id"`
	ProductionURL string     `json:"production_url,omitempty"`
	Status        string     `json:"status,omitempty"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
}

// handleProductionCallback closes the loop with the production system. The
// HMAC signature is verified over the raw body before anything is decoded,
// with the same secret used for outbound dispatch.
func (s *Server) handleProductionCallback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	if s.cfg.WebhookSecret != "" {
		signature := r.Header.Get(dispatch.HeaderSignature)
		if !dispatch.Verify(body, s.cfg.WebhookSecret, signature) {
			log.Printf("[Server] Rejected production callback with bad signature")
			s.errorResponse(w, http.StatusUnauthorized, "invalid signature")
			return
		}
	}

	var payload ProductionCallback
	if err := json.Unmarshal(body, &payload); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if payload.CorrelationID == "" {
		s.errorResponse(w, http.StatusBadRequest, "correlation_id is required")
		return
	}
	if payload.Status != "completed" && payload.Status != "failed" {
		s.errorResponse(w, http.StatusBadRequest, "status must be \"completed\" or \"failed\"")
		return
	}

	campaign, err := s.campaigns.GetByCorrelationID(r.Context(), payload.CorrelationID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if campaign == nil {
		s.errorResponse(w, http.StatusNotFound, (&ErrNotFound{Resource: "campaign", ID: payload.CorrelationID}).Error())
		return
	}

	// Duplicate delivery of the same outcome is acknowledged, not replayed.
	if (campaign.Status == db.StatusCompleted && payload.Status == "completed") ||
		(campaign.Status == db.StatusProductionFailed && payload.Status == "failed") {
		s.jsonResponse(w, http.StatusOK, campaign)
		return
	}

	for _, node := range payload.Nodes {
		if err := s.campaigns.UpdateNodeProduction(r.Context(), campaign.ID, node.TopicID, node.ProductionURL, node.Status, node.PublishedAt); err != nil {
			log.Printf("[Server] Callback node update failed for campaign %s: %v", campaign.ID, err)
		}
	}

	if payload.Status == "completed" {
		campaign, err = s.campaigns.Transition(r.Context(), campaign.ID, db.StatusCompleted, db.TransitionOptions{})
		if err == nil {
			if markErr := s.runs.MarkCompleted(r.Context(), campaign.RunID); markErr != nil {
				log.Printf("[Server] Failed to complete run %s: %v", campaign.RunID, markErr)
			}
		}
	} else {
		campaign, err = s.campaigns.Transition(r.Context(), campaign.ID, db.StatusProductionFailed, db.TransitionOptions{DispatchError: payload.Error})
	}
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	log.Printf("[Server] Production callback %s: campaign %s -> %s", payload.CorrelationID, campaign.ID, campaign.Status)
	s.jsonResponse(w, http.StatusOK, campaign)
}

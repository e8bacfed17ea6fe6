package server

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/strategy-engine/internal/db"
	"github.com/jonathan/strategy-engine/internal/guards"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", &ErrNotFound{Resource: "run", ID: "r1"}, http.StatusNotFound},
		{"validation", &ErrValidation{Field: "raw_text", Message: "too short"}, http.StatusBadRequest},
		{"conflict", &ErrConflict{Message: "already approved"}, http.StatusConflict},
		{
			"invalid transition",
			&db.InvalidTransitionError{CampaignID: "c1", Current: db.StatusCompleted, Target: db.StatusApproved},
			http.StatusConflict,
		},
		{
			"garbage input",
			&guards.GarbageInputError{Reason: "input appears to be random characters", Confidence: 0.9},
			http.StatusUnprocessableEntity,
		},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "run not found: r1", (&ErrNotFound{Resource: "run", ID: "r1"}).Error())
	assert.Contains(t, (&ErrValidation{Field: "tenant_id", Message: "required"}).Error(), "tenant_id")
}

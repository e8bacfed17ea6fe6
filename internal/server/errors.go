package server

import (
	"fmt"
	"net/http"

	"github.com/jonathan/strategy-engine/internal/db"
	"github.com/jonathan/strategy-engine/internal/guards"
)

// ErrNotFound indicates a resource was not found
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrConflict indicates the resource is not in a state that allows the
// requested operation.
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	switch err.(type) {
	case *ErrNotFound:
		return http.StatusNotFound
	case *ErrValidation:
		return http.StatusBadRequest
	case *ErrConflict, *db.InvalidTransitionError:
		return http.StatusConflict
	case *guards.GarbageInputError:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

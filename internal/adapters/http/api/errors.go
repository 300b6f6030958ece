package api

import (
	"errors"
	"net/http"

	service "github.com/okian/cadis/internal/app"
	"github.com/okian/cadis/internal/adapters/mq/queue"
	"github.com/okian/cadis/internal/adapters/repository"
	"github.com/okian/cadis/internal/domain/model"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
)

// writeDomainError maps engine and service errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrEmptyRequest),
		errors.Is(err, model.ErrValidation):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, model.ErrEmptyInput):
		writeError(w, http.StatusUnprocessableEntity, "empty_input", err)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrDuplicateRun):
		writeError(w, http.StatusConflict, "duplicate", err)
	case errors.Is(err, queue.ErrFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", errors.Join(ErrBackpressure, err))
	case errors.Is(err, service.ErrNotStarted),
		errors.Is(err, queue.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	case errors.Is(err, model.ErrConfiguration):
		writeError(w, http.StatusInternalServerError, "configuration", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

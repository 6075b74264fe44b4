// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/commentsense/internal/adapters/repository"
	"github.com/okian/commentsense/internal/domain/model"
)

// OutcomeDependencies defines the interface for outcome lookups.
type OutcomeDependencies interface {
	Outcome(ctx context.Context, eventID string) (model.Outcome, error)
}

// OutcomesHandler handles outcome requests.
type OutcomesHandler struct {
	deps OutcomeDependencies
}

// NewOutcomesHandler creates a new outcomes handler.
func NewOutcomesHandler(deps OutcomeDependencies) *OutcomesHandler {
	return &OutcomesHandler{deps: deps}
}

// HandleGetOutcome handles GET /outcomes/{event_id} requests.
func (h *OutcomesHandler) HandleGetOutcome(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_outcome"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/outcomes/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	out, err := h.deps.Outcome(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

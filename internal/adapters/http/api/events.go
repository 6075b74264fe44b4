// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/okian/commentsense/internal/adapters/lambda"
	"github.com/okian/commentsense/internal/adapters/mq/queue"
	service "github.com/okian/commentsense/internal/app"
	"github.com/okian/commentsense/internal/app/pipeline"
	"github.com/okian/commentsense/internal/domain/dedupe"
	"github.com/okian/commentsense/internal/domain/model"
)

// EventDependencies defines the interface for event processing dependencies.
type EventDependencies interface {
	dedupe.Deduper
	Enqueue(ctx context.Context, e model.Event) error
	ProcessSync(ctx context.Context, e *model.Event) (model.Outcome, error)
}

// EventsHandler handles event requests.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// HandlePostEvent handles POST /events requests.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	ev, err := decodeEvent(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	service.AssignID(&ev)

	if h.deps.SeenAndRecord(r.Context(), ev.ID) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", EventID: ev.ID, Duplicate: true})
		return
	}

	if err := h.deps.Enqueue(r.Context(), ev); err != nil {
		h.deps.Unrecord(r.Context(), ev.ID)
		if errors.Is(err, queue.ErrQueueFull) {
			writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
			return
		}
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", EventID: ev.ID})
}

// HandlePostEventSync handles POST /events/sync: the event runs inline and
// the answer has the same shape as a Lambda invocation.
func (h *EventsHandler) HandlePostEventSync(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event_sync"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	ev, err := decodeEvent(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, lambda.Failure(WrapKind(op, ErrBadRequest, err)))
		return
	}
	service.AssignID(&ev)

	if h.deps.SeenAndRecord(r.Context(), ev.ID) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", EventID: ev.ID, Duplicate: true})
		return
	}

	out, err := h.deps.ProcessSync(r.Context(), &ev)
	switch {
	case pipeline.IsSkip(err):
		writeJSON(w, http.StatusOK, true)
		return
	case errors.Is(err, service.ErrNotStarted):
		h.deps.Unrecord(r.Context(), ev.ID)
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		return
	}

	resp := lambda.Success(out)
	if err != nil {
		resp = lambda.Failure(err)
	}
	status, convErr := strconv.Atoi(resp.StatusCode)
	if convErr != nil {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, resp)
}

// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/commentsense/internal/domain/dedupe"
	"github.com/okian/commentsense/internal/domain/model"
)

// maxBodyBytes bounds inbound event payloads.
const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper

	// Enqueue pushes an event for async processing.
	Enqueue(ctx context.Context, e model.Event) error

	// ProcessSync runs the pipeline inline.
	ProcessSync(ctx context.Context, e *model.Event) (model.Outcome, error)

	// Outcome returns the recorded outcome for an event id.
	Outcome(ctx context.Context, eventID string) (model.Outcome, error)
}

// Server wires HTTP routes for the webhook API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	eventsHandler   *EventsHandler
	outcomesHandler *OutcomesHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		eventsHandler:   NewEventsHandler(deps),
		outcomesHandler: NewOutcomesHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"))
	mux.HandleFunc("/events/sync", MetricsMiddleware(s.eventsHandler.HandlePostEventSync, "events_sync"))
	mux.HandleFunc("/outcomes/", MetricsMiddleware(s.outcomesHandler.HandleGetOutcome, "outcomes"))
}

// decodeEvent reads and validates the envelope. Only the ticket event
// type is required so skips can still be acknowledged.
func decodeEvent(w http.ResponseWriter, r *http.Request) (model.Event, error) {
	var ev model.Event
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&ev); err != nil {
		return model.Event{}, err
	}
	if strings.TrimSpace(ev.TicketEvent().Type) == "" {
		return model.Event{}, errors.New("missing detail.ticket_event.type")
	}
	return ev, nil
}

type ackResponse struct {
	Status    string `json:"status"`
	EventID   string `json:"event_id"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

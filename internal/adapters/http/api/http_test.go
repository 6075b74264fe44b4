package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/commentsense/internal/adapters/http/api"
	"github.com/okian/commentsense/internal/adapters/lambda"
	"github.com/okian/commentsense/internal/adapters/mq/queue"
	"github.com/okian/commentsense/internal/adapters/repository"
	service "github.com/okian/commentsense/internal/app"
	"github.com/okian/commentsense/internal/app/pipeline"
	"github.com/okian/commentsense/internal/domain/model"
)

// mockDeps implements api.Dependencies and api.StatsProvider.
type mockDeps struct {
	seen       map[string]bool
	enqueued   []model.Event
	enqueueErr error
	syncOut    model.Outcome
	syncErr    error
	outcomes   map[string]model.Outcome
	outcomeErr error
}

func newMockDeps() *mockDeps {
	return &mockDeps{seen: map[string]bool{}, outcomes: map[string]model.Outcome{}}
}

func (m *mockDeps) SeenAndRecord(_ context.Context, id string) bool {
	if m.seen[id] {
		return true
	}
	m.seen[id] = true
	return false
}

func (m *mockDeps) Unrecord(_ context.Context, id string) { delete(m.seen, id) }

func (m *mockDeps) Size() int64 { return int64(len(m.seen)) }

func (m *mockDeps) Enqueue(_ context.Context, e model.Event) error {
	if m.enqueueErr != nil {
		return m.enqueueErr
	}
	m.enqueued = append(m.enqueued, e)
	return nil
}

func (m *mockDeps) ProcessSync(_ context.Context, e *model.Event) (model.Outcome, error) {
	out := m.syncOut
	out.EventID = e.ID
	return out, m.syncErr
}

func (m *mockDeps) Outcome(_ context.Context, id string) (model.Outcome, error) {
	if m.outcomeErr != nil {
		return model.Outcome{}, m.outcomeErr
	}
	o, ok := m.outcomes[id]
	if !ok {
		return model.Outcome{}, fmt.Errorf("outcome %s: %w", id, repository.ErrNotFound)
	}
	return o, nil
}

func (m *mockDeps) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true, "queueLength": 0, "seenEvents": len(m.seen)}
}

const eventBody = `{
  "id": "evt-1",
  "detail": {"ticket_event": {
    "type": "Comment Created",
    "comment": {"body": "Bonjour, ceci est urgent", "is_public": true},
    "ticket": {"id": 123}
  }}
}`

func newMux(deps *mockDeps) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, deps).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux(newMockDeps())

		Convey("Then health serves metrics", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "commentsense_")
		})

		Convey("Then stats are served as JSON", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var stats map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &stats), ShouldBeNil)
			So(stats["started"], ShouldEqual, true)
		})

		Convey("Then wrong methods are not found", func() {
			So(do(mux, http.MethodGet, "/events", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodPost, "/stats", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestEventsHandler_Post(t *testing.T) {
	Convey("Given the events endpoint", t, func() {
		deps := newMockDeps()
		mux := newMux(deps)

		Convey("When a valid event is posted", func() {
			w := do(mux, http.MethodPost, "/events", eventBody)

			Convey("Then it is accepted and queued", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(deps.enqueued, ShouldHaveLength, 1)
				So(deps.enqueued[0].TicketID(), ShouldEqual, "123")
				So(w.Body.String(), ShouldContainSubstring, `"status":"accepted"`)
			})
		})

		Convey("When the same event is posted twice", func() {
			do(mux, http.MethodPost, "/events", eventBody)
			w := do(mux, http.MethodPost, "/events", eventBody)

			Convey("Then the second delivery is acknowledged as a duplicate", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"status":"duplicate"`)
				So(deps.enqueued, ShouldHaveLength, 1)
			})
		})

		Convey("When the event has no id", func() {
			body := strings.Replace(eventBody, `"id": "evt-1",`, "", 1)
			w := do(mux, http.MethodPost, "/events", body)

			Convey("Then an id is assigned", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(deps.enqueued[0].ID, ShouldNotBeEmpty)
			})
		})

		Convey("When the body is not JSON", func() {
			w := do(mux, http.MethodPost, "/events", "{")

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "bad_request")
			})
		})

		Convey("When the ticket event type is missing", func() {
			w := do(mux, http.MethodPost, "/events", `{"detail":{"ticket_event":{}}}`)

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the queue is full", func() {
			deps.enqueueErr = fmt.Errorf("enqueue evt-1: %w", queue.ErrQueueFull)
			w := do(mux, http.MethodPost, "/events", eventBody)

			Convey("Then it answers 429 and forgets the id", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				So(deps.seen["evt-1"], ShouldBeFalse)
			})
		})

		Convey("When the service is stopped", func() {
			deps.enqueueErr = service.ErrNotStarted
			w := do(mux, http.MethodPost, "/events", eventBody)

			Convey("Then it answers 503", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			})
		})
	})
}

func TestEventsHandler_PostSync(t *testing.T) {
	Convey("Given the synchronous events endpoint", t, func() {
		deps := newMockDeps()
		mux := newMux(deps)

		Convey("When the pipeline succeeds", func() {
			deps.syncOut = model.Outcome{TicketID: "123", TicketUpdated: true}
			w := do(mux, http.MethodPost, "/events/sync", eventBody)

			Convey("Then a Lambda-style 200 response is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp lambda.Response
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.StatusCode, ShouldEqual, "200")
				So(resp.Headers["Content-Type"], ShouldEqual, "application/json")
				So(resp.Body, ShouldContainSubstring, `"ticket_updated":true`)
			})
		})

		Convey("When the pipeline fails", func() {
			deps.syncErr = &pipeline.StepError{Step: pipeline.StepTranslate, Err: errors.New("throttled")}
			w := do(mux, http.MethodPost, "/events/sync", eventBody)

			Convey("Then a 400 response names the failed step", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				var resp lambda.Response
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.StatusCode, ShouldEqual, "400")
				So(resp.Body, ShouldEqual, "translate: throttled")
			})
		})

		Convey("When the event is skipped", func() {
			deps.syncErr = pipeline.ErrNotPublic
			w := do(mux, http.MethodPost, "/events/sync", eventBody)

			Convey("Then the control value true is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(strings.TrimSpace(w.Body.String()), ShouldEqual, "true")
			})
		})
	})
}

func TestOutcomesHandler(t *testing.T) {
	Convey("Given the outcomes endpoint", t, func() {
		deps := newMockDeps()
		deps.outcomes["evt-1"] = model.Outcome{EventID: "evt-1", TicketID: "123", Notified: true}
		mux := newMux(deps)

		Convey("When the outcome exists", func() {
			w := do(mux, http.MethodGet, "/outcomes/evt-1", "")

			Convey("Then it is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var out model.Outcome
				So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
				So(out.Notified, ShouldBeTrue)
			})
		})

		Convey("When the outcome is unknown", func() {
			w := do(mux, http.MethodGet, "/outcomes/nope", "")

			Convey("Then it is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When the id is missing", func() {
			w := do(mux, http.MethodGet, "/outcomes/", "")

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the store fails", func() {
			deps.outcomeErr = errors.New("boom")
			w := do(mux, http.MethodGet, "/outcomes/evt-1", "")

			Convey("Then it is an internal error", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
			})
		})
	})
}

func TestWrapKind(t *testing.T) {
	Convey("Given a wrapped API error", t, func() {
		cause := errors.New("unexpected EOF")
		err := api.WrapKind("api.post_event", api.ErrBadRequest, cause)

		Convey("Then both the kind and the cause match", func() {
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldStartWith, "api.post_event")
		})
	})
}

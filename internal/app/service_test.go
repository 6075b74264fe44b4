package service_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/commentsense/internal/adapters/http/api"
	eventqueue "github.com/okian/commentsense/internal/adapters/mq/queue"
	"github.com/okian/commentsense/internal/adapters/repository"
	service "github.com/okian/commentsense/internal/app"
	"github.com/okian/commentsense/internal/app/pipeline"
	"github.com/okian/commentsense/internal/domain/model"
	"github.com/okian/commentsense/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// scriptedProcessor returns canned errors per event id.
type scriptedProcessor struct {
	mu    sync.Mutex
	errs  map[string]error
	seen  []string
	block chan struct{}
}

func (p *scriptedProcessor) Process(_ context.Context, ev *model.Event) (model.Outcome, error) {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, ev.ID)
	err := p.errs[ev.ID]
	out := model.Outcome{EventID: ev.ID, TicketID: ev.TicketID()}
	if err != nil {
		out.FailedStep = pipeline.FailedStep(err)
	}
	return out, err
}

func (p *scriptedProcessor) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.seen)
}

func commentEvent(id string) model.Event {
	return model.Event{
		ID: id,
		Detail: model.Detail{TicketEvent: model.TicketEvent{
			Type:    model.EventTypeCommentCreated,
			Comment: model.Comment{Body: "Bonjour", IsPublic: true},
			Ticket:  model.Ticket{ID: "123"},
		}},
	}
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(&scriptedProcessor{},
			service.WithWorkerCount(2),
			service.WithQueueSize(10),
			service.WithDedupeSize(100),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Convey("When it has not been started", func() {
			err := svc.Enqueue(ctx, commentEvent("e1"))

			Convey("Then work is refused", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})

		Convey("When ids are checked before it is started", func() {
			Convey("Then nothing is recorded and nothing panics", func() {
				So(func() { svc.SeenAndRecord(ctx, "e1") }, ShouldNotPanic)
				So(svc.SeenAndRecord(ctx, "e1"), ShouldBeFalse)
				So(func() { svc.Unrecord(ctx, "e1") }, ShouldNotPanic)
				So(svc.Size(), ShouldEqual, 0)
			})
		})

		Convey("When started and stopped", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats()["started"], ShouldEqual, true)
			So(svc.GetStats()["workerCount"], ShouldEqual, 2)

			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then it reports stopped and stop is idempotent", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
				So(svc.Stop(ctx), ShouldBeNil)
			})
		})
	})
}

func TestService_Processing(t *testing.T) {
	Convey("Given a started service", t, func() {
		proc := &scriptedProcessor{errs: map[string]error{}}
		svc := service.New(proc, service.WithWorkerCount(2), service.WithQueueSize(10))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When an event is queued", func() {
			So(svc.SeenAndRecord(ctx, "e1"), ShouldBeFalse)
			So(svc.Enqueue(ctx, commentEvent("e1")), ShouldBeNil)

			Convey("Then its outcome becomes queryable", func() {
				So(eventually(func() bool {
					_, err := svc.Outcome(ctx, "e1")
					return err == nil
				}), ShouldBeTrue)
				out, _ := svc.Outcome(ctx, "e1")
				So(out.TicketID, ShouldEqual, "123")
			})

			Convey("And a second delivery is a duplicate", func() {
				So(svc.SeenAndRecord(ctx, "e1"), ShouldBeTrue)
				So(svc.Size(), ShouldEqual, 1)
			})
		})

		Convey("When translation fails", func() {
			proc.errs["e2"] = &pipeline.StepError{Step: pipeline.StepTranslate, Err: errors.New("throttled")}
			So(svc.SeenAndRecord(ctx, "e2"), ShouldBeFalse)
			So(svc.Enqueue(ctx, commentEvent("e2")), ShouldBeNil)

			Convey("Then the id is forgotten so a redelivery runs again", func() {
				So(eventually(func() bool { return svc.Size() == 0 }), ShouldBeTrue)
				So(svc.SeenAndRecord(ctx, "e2"), ShouldBeFalse)
			})
		})

		Convey("When a later step fails", func() {
			proc.errs["e3"] = &pipeline.StepError{Step: pipeline.StepUpdateTicket, Err: errors.New("422")}
			So(svc.SeenAndRecord(ctx, "e3"), ShouldBeFalse)
			So(svc.Enqueue(ctx, commentEvent("e3")), ShouldBeNil)

			Convey("Then the id stays recorded", func() {
				So(eventually(func() bool { return proc.count() == 1 }), ShouldBeTrue)
				So(eventually(func() bool {
					out, err := svc.Outcome(ctx, "e3")
					return err == nil && out.FailedStep == pipeline.StepUpdateTicket
				}), ShouldBeTrue)
				So(svc.SeenAndRecord(ctx, "e3"), ShouldBeTrue)
			})
		})

		Convey("When processing inline", func() {
			ev := commentEvent("e4")
			out, err := svc.ProcessSync(ctx, &ev)

			Convey("Then the outcome is returned and kept", func() {
				So(err, ShouldBeNil)
				So(out.EventID, ShouldEqual, "e4")
				got, err := svc.Outcome(ctx, "e4")
				So(err, ShouldBeNil)
				So(got.EventID, ShouldEqual, "e4")
			})
		})
	})
}

func TestService_Backpressure(t *testing.T) {
	Convey("Given a service whose single worker is blocked", t, func() {
		proc := &scriptedProcessor{block: make(chan struct{})}
		svc := service.New(proc, service.WithWorkerCount(1), service.WithQueueSize(1))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When the queue fills up", func() {
			So(svc.Enqueue(ctx, commentEvent("a")), ShouldBeNil)
			var err error
			ok := eventually(func() bool {
				err = svc.Enqueue(ctx, commentEvent("b"))
				if err != nil {
					return true
				}
				return false
			})

			Convey("Then further events are rejected as full", func() {
				So(ok, ShouldBeTrue)
				So(errors.Is(err, eventqueue.ErrQueueFull), ShouldBeTrue)
			})
		})

		Reset(func() {
			close(proc.block)
			_ = svc.Stop(ctx)
		})
	})
}

func TestAssignID(t *testing.T) {
	Convey("Given an event without an id", t, func() {
		ev := commentEvent("")
		service.AssignID(&ev)

		Convey("Then one is generated and kept on later calls", func() {
			So(ev.ID, ShouldNotBeEmpty)
			id := ev.ID
			service.AssignID(&ev)
			So(ev.ID, ShouldEqual, id)
		})
	})
}

func TestService_StopDrainsAfterCancel(t *testing.T) {
	Convey("Given accepted events behind a busy worker", t, func() {
		proc := &scriptedProcessor{block: make(chan struct{})}
		svc := service.New(proc, service.WithWorkerCount(1), service.WithQueueSize(10))
		startCtx, cancelStart := context.WithCancel(context.Background())
		So(svc.Start(startCtx), ShouldBeNil)
		for _, id := range []string{"a", "b", "c"} {
			So(svc.Enqueue(startCtx, commentEvent(id)), ShouldBeNil)
		}

		Convey("When the start context is cancelled and the service stopped", func() {
			cancelStart()
			close(proc.block)
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err := svc.Stop(stopCtx)

			Convey("Then every accepted event was processed", func() {
				So(err, ShouldBeNil)
				So(proc.count(), ShouldEqual, 3)
			})
		})
	})
}

func TestService_SyncRedelivery(t *testing.T) {
	Convey("Given the sync endpoint over a started service", t, func() {
		proc := &scriptedProcessor{errs: map[string]error{}}
		svc := service.New(proc, service.WithWorkerCount(1))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(ctx, mux)
		post := func(id string) *httptest.ResponseRecorder {
			body := fmt.Sprintf(`{"id":%q,"detail":{"ticket_event":{"type":"Comment Created","comment":{"body":"Bonjour","is_public":true},"ticket":{"id":123}}}}`, id)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/events/sync", strings.NewReader(body)))
			return w
		}

		Convey("When translation fails and the delivery is retried", func() {
			proc.errs["e1"] = &pipeline.StepError{Step: pipeline.StepTranslate, Err: errors.New("throttled")}
			first := post("e1")
			second := post("e1")

			Convey("Then the retry runs the pipeline again", func() {
				So(first.Code, ShouldEqual, http.StatusBadRequest)
				So(second.Code, ShouldEqual, http.StatusBadRequest)
				So(second.Body.String(), ShouldNotContainSubstring, "duplicate")
				So(proc.count(), ShouldEqual, 2)
			})
		})

		Convey("When the ticket update fails and the delivery is retried", func() {
			proc.errs["e2"] = &pipeline.StepError{Step: pipeline.StepUpdateTicket, Err: errors.New("422")}
			post("e2")
			second := post("e2")

			Convey("Then the retry is a duplicate", func() {
				So(second.Code, ShouldEqual, http.StatusOK)
				So(second.Body.String(), ShouldContainSubstring, "duplicate")
				So(proc.count(), ShouldEqual, 1)
			})
		})
	})
}

// mapReader serves outcomes kept outside the service.
type mapReader map[string]model.Outcome

func (m mapReader) Get(_ context.Context, id string) (model.Outcome, error) {
	o, ok := m[id]
	if !ok {
		return model.Outcome{}, fmt.Errorf("outcome %s: %w", id, repository.ErrNotFound)
	}
	return o, nil
}

func TestService_OutcomeReader(t *testing.T) {
	Convey("Given a service backed by a durable outcome store", t, func() {
		reader := mapReader{"old": {EventID: "old", TicketID: "7", TicketUpdated: true}}
		svc := service.New(&scriptedProcessor{}, service.WithWorkerCount(1), service.WithOutcomeReader(reader))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When the outcome is not in memory", func() {
			out, err := svc.Outcome(ctx, "old")

			Convey("Then it is read from the store", func() {
				So(err, ShouldBeNil)
				So(out.TicketID, ShouldEqual, "7")
			})
		})

		Convey("When neither holds the outcome", func() {
			_, err := svc.Outcome(ctx, "nope")

			Convey("Then it is not found", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

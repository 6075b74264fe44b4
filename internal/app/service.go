// Package service runs the comment pipeline behind the webhook API: a
// bounded queue, a worker pool, duplicate suppression and an in-memory
// record of recent outcomes.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"

	eventqueue "github.com/okian/commentsense/internal/adapters/mq/queue"
	workerpool "github.com/okian/commentsense/internal/adapters/mq/worker"
	"github.com/okian/commentsense/internal/adapters/repository"
	"github.com/okian/commentsense/internal/app/pipeline"
	"github.com/okian/commentsense/internal/domain/dedupe"
	"github.com/okian/commentsense/internal/domain/model"
	"github.com/okian/commentsense/pkg/logger"
	"github.com/okian/commentsense/pkg/metrics"
)

// Processor runs the pipeline for one event.
type Processor interface {
	Process(ctx context.Context, ev *model.Event) (model.Outcome, error)
}

// OutcomeReader looks up outcomes that are no longer held in memory.
type OutcomeReader interface {
	Get(ctx context.Context, eventID string) (model.Outcome, error)
}

// Service implements the API dependencies for webhook mode.
type Service struct {
	mu sync.RWMutex

	processor  Processor
	outcomes   *repository.MemoryStore
	deduper    dedupe.Deduper
	eventQueue *eventqueue.InMemoryQueue
	workerPool *workerpool.Pool
	ledger     OutcomeReader

	// stopWorkers ends in-flight work once Stop gives up waiting.
	stopWorkers context.CancelFunc

	workerCount      int
	queueSize        int
	dedupeSize       int
	outcomesCapacity int

	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many event ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithOutcomeCapacity sets how many recent outcomes stay queryable.
func WithOutcomeCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.outcomesCapacity = n
		}
	}
}

// WithOutcomeReader sets a durable store consulted when an outcome has
// been evicted from memory or was recorded by another instance.
func WithOutcomeReader(r OutcomeReader) Option {
	return func(s *Service) {
		s.ledger = r
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a Service around processor.
func New(processor Processor, opts ...Option) *Service {
	s := &Service{
		processor:        processor,
		workerCount:      runtime.NumCPU() * 4,
		queueSize:        10_000,
		dedupeSize:       50_000,
		outcomesCapacity: 10_000,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.outcomes = repository.NewMemoryStore(repository.WithCapacity(s.outcomesCapacity))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.eventQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, processorFunc(s.process),
		workerpool.WithFailureHook(s.onFailure),
	)
	// Workers outlive the start context so Stop can drain accepted events.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.stopWorkers = cancel
	s.workerPool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "comment service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop closes the queue and waits for in-flight events to finish. When ctx
// ends first the remaining work is cancelled.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping comment service...")
	err := s.workerPool.Shutdown(ctx)
	s.stopWorkers()
	s.started = false
	s.logger.Info(ctx, "comment service stopped")
	return err
}

// processorFunc adapts a function to workerpool.Processor.
type processorFunc func(ctx context.Context, ev *model.Event) (model.Outcome, error)

func (f processorFunc) Process(ctx context.Context, ev *model.Event) (model.Outcome, error) {
	return f(ctx, ev)
}

// process runs the pipeline and keeps the outcome for lookups.
func (s *Service) process(ctx context.Context, ev *model.Event) (model.Outcome, error) {
	out, err := s.processor.Process(ctx, ev)
	if rerr := s.outcomes.Record(ctx, out); rerr != nil {
		s.logger.Warn(ctx, "outcome not kept", logger.String("event_id", out.EventID), logger.Error(rerr))
	}
	return out, err
}

// onFailure forgets events that failed before any side effect, so a
// redelivery is processed again. Later failures stay recorded to avoid
// paging twice.
func (s *Service) onFailure(ctx context.Context, ev *model.Event, err error) {
	if pipeline.FailedStep(err) != pipeline.StepTranslate {
		return
	}
	s.deduper.Unrecord(ctx, ev.ID)
	s.logger.Debug(ctx, "event forgotten for redelivery", logger.String("event_id", ev.ID))
}

// SeenAndRecord atomically checks if an event id was seen and records it if not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	if s.deduper == nil {
		return false
	}
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordEventDuplicate()
	}
	return seen
}

// Unrecord removes an event id from the seen set.
func (s *Service) Unrecord(ctx context.Context, id string) {
	if s.deduper == nil {
		return
	}
	s.deduper.Unrecord(ctx, id)
}

// Size returns the current number of remembered event ids.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

// AssignID gives ev a correlation id when the envelope had none.
func AssignID(ev *model.Event) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
}

// Enqueue submits an event for asynchronous processing.
func (s *Service) Enqueue(ctx context.Context, ev model.Event) error { //nolint:gocritic // hugeParam: queued by value
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}

	if err := s.eventQueue.Enqueue(ctx, ev); err != nil {
		s.logger.Warn(ctx, "event rejected",
			logger.String("event_id", ev.ID),
			logger.Error(err),
		)
		return fmt.Errorf("enqueue %s: %w", ev.ID, err)
	}
	s.logger.Debug(ctx, "event queued",
		logger.String("event_id", ev.ID),
		logger.String("ticket_id", ev.TicketID()),
	)
	return nil
}

// ProcessSync runs the pipeline inline.
func (s *Service) ProcessSync(ctx context.Context, ev *model.Event) (model.Outcome, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return model.Outcome{}, ErrNotStarted
	}
	out, err := s.process(ctx, ev)
	if err != nil && !pipeline.IsSkip(err) {
		s.onFailure(ctx, ev, err)
	}
	return out, err
}

// Outcome returns the recorded outcome for an event id, falling back to
// the durable store when one is configured.
func (s *Service) Outcome(ctx context.Context, eventID string) (model.Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return model.Outcome{}, ErrNotStarted
	}
	out, err := s.outcomes.Get(ctx, eventID)
	if err == nil || s.ledger == nil || !errors.Is(err, repository.ErrNotFound) {
		return out, err
	}
	return s.ledger.Get(ctx, eventID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}
	if s.started {
		stats["queueLength"] = s.eventQueue.Len()
		stats["seenEvents"] = s.deduper.Size()
		stats["outcomes"] = s.outcomes.Count(ctx)
		metrics.UpdateWorkerCount(s.workerCount)
	}
	return stats
}

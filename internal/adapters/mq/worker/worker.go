// Package worker drains the event queue and runs each event through the
// comment pipeline.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"

	"github.com/okian/commentsense/internal/app/pipeline"
	"github.com/okian/commentsense/internal/domain/model"
	"github.com/okian/commentsense/pkg/logger"
	"github.com/okian/commentsense/pkg/metrics"
)

const defaultWorkerMultiplier = 4

// Processor runs the pipeline for one event.
type Processor interface {
	Process(ctx context.Context, ev *model.Event) (model.Outcome, error)
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue() <-chan model.Event
}

// FailureHook is called with the event and error of a failed run.
type FailureHook func(ctx context.Context, ev *model.Event, err error)

// InMemoryWorker reads events until the queue channel closes or ctx ends.
type InMemoryWorker struct {
	queue     Queue
	processor Processor
	onFailure FailureHook
	name      string

	done chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, processor Processor, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		processor: processor,
		name:      "worker",
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run processes events until the queue is closed and drained or ctx is
// cancelled.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			w.handle(ctx, &ev)
		}
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker) handle(ctx context.Context, ev *model.Event) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error(ctx, "panic while processing event",
				logger.String("event_id", ev.ID),
				logger.Any("panic", r),
			)
			metrics.RecordEventFailed("panic")
			if w.onFailure != nil {
				w.onFailure(ctx, ev, fmt.Errorf("panic: %v", r))
			}
		}
	}()

	_, err := w.processor.Process(ctx, ev)
	if err == nil || pipeline.IsSkip(err) {
		return
	}
	w.logger.Debug(ctx, "event failed",
		logger.String("event_id", ev.ID),
		logger.String("step", pipeline.FailedStep(err)),
	)
	if w.onFailure != nil {
		w.onFailure(ctx, ev, err)
	}
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	wg sync.WaitGroup

	logger logger.Logger
}

// NewPool creates workerCount workers. A count below one defaults to four
// per CPU since the work is network bound.
func NewPool(workerCount int, queue Queue, processor Processor, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(queue, processor, wopts...)
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *InMemoryWorker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Shutdown closes the queue and waits for workers to drain it or for ctx
// to expire.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info(ctx, "worker pool stopped")
		return nil
	case <-ctx.Done():
		p.logger.Warn(ctx, "worker pool shutdown timed out")
		return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
	}
}

// Package worker executes queued analysis run requests.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/cadis/internal/domain/model"
	"github.com/okian/cadis/pkg/logger"
	"github.com/okian/cadis/pkg/metrics"
)

// Default worker configuration constants.
const (
	poolShutdownTimeout = 30 * time.Second
)

// Runner executes one run request. On failure the returned result still
// carries the failed run's report.
type Runner interface {
	Execute(ctx context.Context, req model.RunRequest) (model.RunResult, error)
}

// Recorder persists finished runs.
type Recorder interface {
	SaveRun(ctx context.Context, result model.RunResult) error
}

// Queue defines how workers receive requests.
type Queue interface {
	Dequeue() <-chan model.RunRequest
}

// Worker pulls requests off the queue until the queue closes, the context
// is cancelled or Shutdown is called.
type Worker struct {
	queue    Queue
	runner   Runner
	recorder Recorder
	name     string

	shutdown chan struct{}
	once     sync.Once
	done     chan struct{}

	logger logger.Logger
}

// NewWorker creates a new worker with configuration options.
func NewWorker(queue Queue, runner Runner, recorder Recorder, opts ...Option) *Worker {
	w := &Worker{
		queue:    queue,
		runner:   runner,
		recorder: recorder,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named("worker")
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	requests := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case req, ok := <-requests:
			if !ok {
				return
			}
			if err := w.process(ctx, req); err != nil {
				w.logger.Error(ctx, "run request failed", logger.String("runID", req.ID), logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker after its current request.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.once.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed once Run has returned.
func (w *Worker) Done() <-chan struct{} { return w.done }

func (w *Worker) process(ctx context.Context, req model.RunRequest) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerRunLatency(float64(time.Since(start).Milliseconds()))
	}()

	result, runErr := w.runner.Execute(ctx, req)
	if runErr != nil && (errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded)) {
		// a cancelled run leaves nothing behind
		metrics.RecordWorkerError()
		return fmt.Errorf("run %s cancelled: %w", req.ID, runErr)
	}

	if err := w.recorder.SaveRun(ctx, result); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordPersistenceError("run")
		return fmt.Errorf("persist run %s: %w", req.ID, errors.Join(err, runErr))
	}
	if runErr != nil {
		metrics.RecordWorkerError()
		return fmt.Errorf("run %s: %w", req.ID, runErr)
	}

	w.logger.Debug(ctx, "run persisted",
		logger.String("runID", req.ID),
		logger.String("scenario", result.Scenario.ID),
		logger.Int("insights", len(result.Insights)),
	)
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*Worker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a worker pool. A non-positive count means one worker per CPU.
func NewPool(workerCount int, queue Queue, runner Runner, recorder Recorder, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	// the pool logs through the same logger the options give its workers
	base := &Worker{}
	for _, opt := range opts {
		opt(base)
	}
	if base.logger == nil {
		base.logger = logger.Get().Named("worker")
	}

	p := &Pool{
		workers: make([]*Worker, workerCount),
		queue:   queue,
		logger:  base.logger.Named("pool"),
	}
	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewWorker(queue, runner, recorder, wopts...)
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateWorkerActiveCount(len(p.workers))
}

// Shutdown closes the queue, lets workers drain it and waits for them.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut int
	for i, w := range p.workers {
		select {
		case <-w.Done():
		case <-shutdownCtx.Done():
			timedOut++
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerActiveCount(0)
	if timedOut > 0 {
		return fmt.Errorf("%d workers did not stop: %w", timedOut, shutdownCtx.Err())
	}
	return nil
}

package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/cadis/internal/adapters/mq/queue"
	"github.com/okian/cadis/internal/adapters/mq/worker"
	"github.com/okian/cadis/internal/adapters/repository"
	"github.com/okian/cadis/internal/domain/dedupe"
	"github.com/okian/cadis/internal/domain/model"
	"github.com/okian/cadis/pkg/logger"
	"github.com/okian/cadis/pkg/metrics"
)

// Service exposes the engine to the outer surfaces: synchronous runs,
// queued runs executed by a worker pool, and stored results.
type Service struct {
	mu sync.RWMutex

	engine  *Engine
	store   repository.Store
	deduper dedupe.Deduper
	queue   *queue.InMemoryQueue
	pool    *worker.Pool

	// live reports of queued and running runs, dropped once stored
	inflight map[string]model.RunReport

	workerCount int
	queueSize   int
	dedupeSize  int

	started bool
	logger  logger.Logger
}

// ServiceOption applies a configuration option to the Service.
type ServiceOption func(*Service)

// WithWorkerCount sets the number of run workers.
func WithWorkerCount(count int) ServiceOption {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued runs.
func WithQueueSize(size int) ServiceOption {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many run ids are remembered for idempotency.
func WithDedupeSize(size int) ServiceOption {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithServiceLogger sets a custom logger for the service.
func WithServiceLogger(l logger.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService constructs a Service over an engine and a store.
func NewService(engine *Engine, store repository.Store, opts ...ServiceOption) *Service {
	s := &Service{
		engine:      engine,
		store:       store,
		inflight:    make(map[string]model.RunReport),
		workerCount: runtime.NumCPU(),
		queueSize:   queue.DefaultCapacity,
		dedupeSize:  dedupe.DefaultMaxSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	return s
}

// Engine returns the engine the service runs.
func (s *Service) Engine() *Engine { return s.engine }

// Start creates the run queue and starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s, s, worker.WithLogger(s.logger.Named("worker")))
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "run service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop drains the queue, waits for the workers and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	pool := s.pool
	s.mu.Unlock()

	// workers take s.mu while finishing their runs
	ctx := context.Background()
	if err := pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "store close", logger.Error(err))
	}
	s.logger.Info(ctx, "run service stopped")
}

// Analyze runs a request synchronously and stores the completed result.
// A store failure is logged; the result is still returned.
func (s *Service) Analyze(ctx context.Context, req model.RunRequest) (*model.RunResult, error) {
	if len(req.Records) == 0 && len(req.Sources) == 0 {
		return nil, ErrEmptyRequest
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	res, err := s.engine.execute(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveRun(ctx, res); err != nil {
		metrics.RecordPersistenceError("run")
		s.logger.Error(ctx, "store run", logger.String("runID", req.ID), logger.Error(err))
	}
	return &res, nil
}

// Submit queues a request for asynchronous execution and returns its run
// id. A request id that was already submitted is rejected with
// ErrDuplicateRun.
func (s *Service) Submit(ctx context.Context, req model.RunRequest) (string, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return "", ErrNotStarted
	}
	if len(req.Records) == 0 && len(req.Sources) == 0 {
		return "", ErrEmptyRequest
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	if s.deduper.SeenAndRecord(ctx, req.ID) {
		metrics.RecordDuplicateRequest()
		return "", fmt.Errorf("%w: %s", ErrDuplicateRun, req.ID)
	}
	s.setInflight(model.RunReport{RunID: req.ID, State: model.StateIdle})

	if err := s.queue.Enqueue(ctx, req); err != nil {
		s.deduper.Unrecord(ctx, req.ID)
		s.dropInflight(req.ID)
		return "", fmt.Errorf("enqueue run %s: %w", req.ID, err)
	}
	s.logger.Debug(ctx, "run queued", logger.String("runID", req.ID), logger.Int("queueLength", s.queue.Len()))
	return req.ID, nil
}

// Execute implements worker.Runner.
func (s *Service) Execute(ctx context.Context, req model.RunRequest) (model.RunResult, error) {
	res, err := s.engine.execute(ctx, req, WithTransitionHook(s.track))
	if err != nil && ctx.Err() != nil {
		s.dropInflight(req.ID)
	}
	return res, err
}

// SaveRun implements worker.Recorder. The live report is replaced by the
// stored result.
func (s *Service) SaveRun(ctx context.Context, result model.RunResult) error {
	if err := s.store.SaveRun(ctx, result); err != nil {
		rep := result.Report
		rep.State = model.StateFailed
		if rep.Error != "" {
			rep.Error += "; "
		}
		rep.Error += "store: " + err.Error()
		s.setInflight(rep)
		return err
	}
	s.dropInflight(result.Report.RunID)
	return nil
}

// GetRun returns a stored run, or the live report of a run that has not
// been stored yet.
func (s *Service) GetRun(ctx context.Context, runID string) (model.RunResult, error) {
	s.mu.RLock()
	rep, ok := s.inflight[runID]
	s.mu.RUnlock()
	if ok {
		rep.Transitions = append([]model.Transition(nil), rep.Transitions...)
		return model.RunResult{Report: rep}, nil
	}
	return s.store.GetRun(ctx, runID)
}

// Simulate normalizes a raw record, simulates it and stores the result.
func (s *Service) Simulate(ctx context.Context, rec model.RawRecord) (model.SimulationResult, error) {
	res, err := s.engine.SimulateRecord(ctx, rec)
	if err != nil {
		return model.SimulationResult{}, err
	}
	if err := s.store.SaveSimulation(ctx, res); err != nil {
		metrics.RecordPersistenceError("simulation")
		s.logger.Error(ctx, "store simulation", logger.String("observationID", res.ObservationID), logger.Error(err))
	}
	return res, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"inFlight":    len(s.inflight),
	}
	if s.started {
		stats["queueLength"] = s.queue.Len()
		stats["seenRunIDs"] = s.deduper.Size()
	}
	return stats
}

// track mirrors a running run's state. Terminal states are left to SaveRun
// so a finished run never shows without its result.
func (s *Service) track(runID string, t model.Transition) {
	if t.To.Terminal() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rep, ok := s.inflight[runID]
	if !ok {
		rep = model.RunReport{RunID: runID}
	}
	if t.From == model.StateIdle {
		rep.StartedAt = t.At
	}
	rep.State = t.To
	rep.Transitions = append(rep.Transitions, t)
	s.inflight[runID] = rep
}

func (s *Service) setInflight(rep model.RunReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight[rep.RunID] = rep
}

func (s *Service) dropInflight(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, runID)
}

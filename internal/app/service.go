// Package service provides the scheduling service behind the HTTP API and CLI:
// synchronous solves plus an asynchronous, idempotent job pipeline.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	jobqueue "github.com/okian/prodplan/internal/adapters/mq/queue"
	workerpool "github.com/okian/prodplan/internal/adapters/mq/worker"
	"github.com/okian/prodplan/internal/adapters/repository"
	"github.com/okian/prodplan/internal/adapters/solver/simplex"
	"github.com/okian/prodplan/internal/domain/dedupe"
	"github.com/okian/prodplan/internal/domain/model"
	"github.com/okian/prodplan/internal/domain/schedule"
	"github.com/okian/prodplan/internal/domain/solver"
	"github.com/okian/prodplan/pkg/logger"
	"github.com/okian/prodplan/pkg/metrics"
)

const minPruneInterval = time.Second

// Service owns the job pipeline and the solver configuration.
type Service struct {
	mu sync.RWMutex

	// Core components, created by Start.
	store *repository.MemoryStore
	index dedupe.Index
	queue *jobqueue.InMemoryQueue[string]
	pool  *workerpool.Pool

	// Configuration
	workerCount  int
	queueSize    int
	dedupeSize   int
	solveTimeout time.Duration
	jobRetention time.Duration
	nodeLimit    int
	policy       schedule.CapacityPolicy
	excessWeight float64
	newEngine    EngineFactory

	// State
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	logger logger.Logger
}

// Stats is a point-in-time view of the service for monitoring.
type Stats struct {
	Started         bool           `json:"started"`
	WorkerCount     int            `json:"worker_count"`
	QueueCapacity   int            `json:"queue_capacity"`
	QueueLength     int            `json:"queue_length"`
	DedupeSize      int            `json:"dedupe_size"`
	IdempotencyKeys int64          `json:"idempotency_keys"`
	Jobs            map[string]int `json:"jobs"`
	SolveTimeoutMS  int64          `json:"solve_timeout_ms"`
	CapacityPolicy  string         `json:"capacity_policy"`
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:  runtime.NumCPU(),
		queueSize:    1000,
		dedupeSize:   10_000,
		solveTimeout: 30 * time.Second,
		jobRetention: time.Hour,
		nodeLimit:    10_000,
		policy:       schedule.ExactRegularHours,
		logger:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start creates the job pipeline and starts the workers. Jobs keep running
// when ctx is canceled; Stop ends them.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting scheduling service...")

	runCtx := context.WithoutCancel(ctx)
	s.store = repository.NewMemoryStore(runCtx)
	s.index = dedupe.NewInMemoryIndex(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = jobqueue.NewInMemoryQueue[string](jobqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.store, workerpool.SolverFunc(s.run),
		workerpool.WithLogger(s.logger),
		workerpool.WithSolveTimeout(s.solveTimeout),
	)
	s.pool.Start(runCtx)

	s.stopCh = make(chan struct{})
	s.wg.Add(1)
	go s.pruneLoop(runCtx, s.store, s.index, s.stopCh)

	s.started = true
	s.logger.Info(ctx, "scheduling service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Duration("solveTimeout", s.solveTimeout),
		logger.String("policy", s.policy.String()),
	)
	return nil
}

// Stop stops accepting jobs and waits for queued jobs to finish. If ctx ends
// first, in-flight solves are canceled and the context error is returned.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping scheduling service...")

	err := s.pool.Shutdown(ctx)
	close(s.stopCh)
	s.wg.Wait()
	_ = s.store.Close()

	s.started = false
	s.logger.Info(ctx, "scheduling service stopped")
	return err
}

// Solve schedules in synchronously, bounded by the solve timeout.
func (s *Service) Solve(ctx context.Context, in model.Input) (*model.Output, error) {
	ctx, cancel := context.WithTimeout(ctx, s.solveTimeout)
	defer cancel()
	return s.run(ctx, in)
}

// run solves in on a fresh engine with the configured builder options.
func (s *Service) run(ctx context.Context, in model.Input) (*model.Output, error) {
	return schedule.Solve(ctx, s.engine(), in,
		schedule.WithRegularCapacityPolicy(s.policy),
		schedule.WithExcessWeight(s.excessWeight),
		schedule.WithLogger(s.logger.Named("schedule")),
	)
}

func (s *Service) engine() solver.Engine {
	if s.newEngine != nil {
		return s.newEngine()
	}
	return simplex.New(
		simplex.WithNodeLimit(s.nodeLimit),
		simplex.WithTimeLimit(SearchBudget(s.solveTimeout)),
		simplex.WithLogger(s.logger.Named("simplex")),
	)
}

// SearchBudget is the share of a solve timeout the engine may search before
// it settles for its best schedule; the rest is left for mapping the result.
func SearchBudget(timeout time.Duration) time.Duration {
	return timeout - timeout/10
}

// Submit queues in for an asynchronous solve. With a non-empty requestID the
// call is idempotent: a repeat returns the job created first and true.
// Invalid input is rejected up front with a configuration error.
func (s *Service) Submit(ctx context.Context, requestID string, in model.Input) (repository.Job, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return repository.Job{}, false, ErrNotStarted
	}
	if err := schedule.Validate(in); err != nil {
		return repository.Job{}, false, err
	}

	job := repository.Job{ID: uuid.NewString(), RequestID: requestID, State: repository.StateQueued, Input: in}
	if err := s.store.Create(ctx, job); err != nil {
		return repository.Job{}, false, fmt.Errorf("create job: %w", err)
	}

	if requestID != "" {
		if existing, ok := s.claim(ctx, requestID, job.ID); ok {
			s.store.Delete(ctx, job.ID)
			metrics.RecordJobDuplicate()
			s.logger.Debug(ctx, "duplicate job request",
				logger.String("requestID", requestID),
				logger.String("jobID", existing.ID),
			)
			return existing, true, nil
		}
	}

	if err := s.queue.Enqueue(ctx, job.ID); err != nil {
		s.store.Delete(ctx, job.ID)
		if requestID != "" {
			s.index.Release(ctx, requestID)
		}
		switch {
		case errors.Is(err, jobqueue.ErrFull):
			return repository.Job{}, false, ErrBackpressure
		case errors.Is(err, jobqueue.ErrClosed):
			return repository.Job{}, false, ErrNotStarted
		default:
			return repository.Job{}, false, fmt.Errorf("enqueue job: %w", err)
		}
	}

	metrics.RecordJobSubmitted()
	s.logger.Debug(ctx, "job queued", logger.String("jobID", job.ID), logger.String("requestID", requestID))

	if stored, err := s.store.Get(ctx, job.ID); err == nil {
		return stored, false, nil
	}
	return job, false, nil
}

// claim binds requestID to id. If requestID already names a stored job, that
// job is returned with true. A key whose job is gone is rebound.
func (s *Service) claim(ctx context.Context, requestID, id string) (repository.Job, bool) {
	for {
		bound, claimed := s.index.Claim(ctx, requestID, id)
		if claimed {
			return repository.Job{}, false
		}
		job, err := s.store.Get(ctx, bound)
		if err == nil {
			return job, true
		}
		s.index.Release(ctx, requestID)
	}
}

// Job returns the job with id.
func (s *Service) Job(ctx context.Context, id string) (repository.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.store == nil {
		return repository.Job{}, ErrNotStarted
	}
	job, err := s.store.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return job, err
}

// PruneJobs removes finished jobs older than the retention period and
// returns how many were removed.
func (s *Service) PruneJobs(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.store == nil {
		return 0
	}
	return s.prune(ctx, s.store, s.index)
}

// prune drops expired jobs and releases the request keys still bound to them.
func (s *Service) prune(ctx context.Context, store repository.Store, index dedupe.Index) int {
	removed := store.Prune(ctx, time.Now().Add(-s.jobRetention))
	released := 0
	for _, job := range removed {
		if job.RequestID == "" {
			continue
		}
		if bound, ok := index.Lookup(ctx, job.RequestID); ok && bound == job.ID {
			index.Release(ctx, job.RequestID)
			released++
		}
	}
	if len(removed) > 0 {
		s.logger.Debug(ctx, "pruned finished jobs",
			logger.Int("count", len(removed)),
			logger.Int("releasedKeys", released))
	}
	return len(removed)
}

// pruneLoop runs without the service lock so Stop can wait for it.
func (s *Service) pruneLoop(ctx context.Context, store repository.Store, index dedupe.Index, stop <-chan struct{}) {
	defer s.wg.Done()

	interval := s.jobRetention / 4
	if interval < minPruneInterval {
		interval = minPruneInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.prune(ctx, store, index)
		}
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := Stats{
		Started:        s.started,
		WorkerCount:    s.workerCount,
		QueueCapacity:  s.queueSize,
		DedupeSize:     s.dedupeSize,
		Jobs:           map[string]int{},
		SolveTimeoutMS: s.solveTimeout.Milliseconds(),
		CapacityPolicy: s.policy.String(),
	}

	if s.started {
		stats.QueueLength = s.queue.Len(ctx)
		stats.IdempotencyKeys = s.index.Size()
		for state, n := range s.store.CountByState(ctx) {
			stats.Jobs[string(state)] = n
			metrics.UpdateJobsByState(string(state), n)
		}
		metrics.UpdateWorkerCount(s.workerCount)
	}
	return stats
}

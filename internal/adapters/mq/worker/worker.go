package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/prodplan/internal/adapters/repository"
	"github.com/okian/prodplan/internal/domain/model"
	"github.com/okian/prodplan/internal/domain/schedule"
	"github.com/okian/prodplan/pkg/logger"
	"github.com/okian/prodplan/pkg/metrics"
)

// ErrorKindInternal marks failures that did not come from scheduling itself,
// such as a job vanishing from the store mid-run.
const ErrorKindInternal = "internal"

// Jobs is the part of the job store a worker needs.
type Jobs interface {
	Update(ctx context.Context, id string, fn func(*repository.Job)) (repository.Job, error)
}

// Solver produces a schedule for an input.
type Solver interface {
	Solve(ctx context.Context, in model.Input) (*model.Output, error)
}

// SolverFunc adapts a function to Solver.
type SolverFunc func(ctx context.Context, in model.Input) (*model.Output, error)

// Solve calls f.
func (f SolverFunc) Solve(ctx context.Context, in model.Input) (*model.Output, error) {
	return f(ctx, in)
}

// Queue defines how workers receive job IDs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan string
}

// Worker processes queued jobs.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)
	// Shutdown stops the worker after the job in hand, if any.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for solve jobs.
type InMemoryWorker struct {
	queue        Queue
	jobs         Jobs
	solver       Solver
	name         string
	solveTimeout time.Duration

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	// base is the configured logger before the worker name is applied.
	base   logger.Logger
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, jobs Jobs, solver Solver, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		jobs:     jobs,
		solver:   solver,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.base = w.logger
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	ids := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case id, ok := <-ids:
			if !ok {
				return
			}
			if err := w.processJob(ctx, id); err != nil {
				w.logger.Error(ctx, "error processing job", logger.String("jobID", id), logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processJob runs one job from queued to a terminal state. A returned error
// means the job could not be tracked; solve failures are stored on the job.
func (w *InMemoryWorker) processJob(ctx context.Context, id string) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	job, err := w.jobs.Update(ctx, id, func(j *repository.Job) {
		if j.State == repository.StateQueued {
			j.State = repository.StateRunning
		}
	})
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "job_lookup")
		return fmt.Errorf("claim job %s: %w", id, err)
	}
	if job.State != repository.StateRunning {
		w.logger.Warn(ctx, "skipping job that is not queued",
			logger.String("jobID", id),
			logger.String("state", string(job.State)),
		)
		return nil
	}

	metrics.AddWorkerActive(1)
	out, solveErr := w.solve(ctx, job.Input)
	metrics.AddWorkerActive(-1)

	_, err = w.jobs.Update(ctx, id, func(j *repository.Job) {
		if solveErr != nil {
			j.State = repository.StateFailed
			j.Error = solveErr.Error()
			j.ErrorKind = errorKind(solveErr)
			return
		}
		j.State = repository.StateSucceeded
		j.Output = out
	})
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "job_update")
		return fmt.Errorf("store result of job %s: %w", id, err)
	}

	if solveErr != nil {
		metrics.RecordErrorByComponent("worker", errorKind(solveErr))
		w.logger.Info(ctx, "job failed",
			logger.String("jobID", id),
			logger.String("kind", errorKind(solveErr)),
			logger.Error(solveErr),
		)
		return nil
	}
	w.logger.Debug(ctx, "job succeeded",
		logger.String("jobID", id),
		logger.Float64("totalCost", out.TotalCost),
		logger.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (w *InMemoryWorker) solve(ctx context.Context, in model.Input) (*model.Output, error) {
	if w.solveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.solveTimeout)
		defer cancel()
	}
	return w.solver.Solve(ctx, in)
}

// errorKind names the class of a solve error for clients.
func errorKind(err error) string {
	if kind, ok := schedule.KindOf(err); ok {
		return kind.String()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return schedule.KindTimeout.String()
	}
	return ErrorKindInternal
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	cancel context.CancelFunc
	logger logger.Logger
}

// NewPool creates a pool of workerCount workers sharing queue, jobs and
// solver. opts apply to every worker; each is named worker-<i>.
func NewPool(workerCount int, queue Queue, jobs Jobs, solver Solver, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		cancel:  func() {},
	}
	for i := range pool.workers {
		workerOpts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(queue, jobs, solver, workerOpts...)
	}

	pool.logger = pool.workers[0].base.Named("worker-pool")

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool. Canceling ctx aborts in-flight solves.
func (p *Pool) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	for _, w := range p.workers {
		go w.Run(runCtx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Shutdown closes the queue and lets workers drain it. If ctx ends first,
// in-flight solves are canceled and the context error is returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	defer p.cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
		}
	}
	p.logger.Info(ctx, "worker pool stopped")
	return nil
}

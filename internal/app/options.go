package service

import (
	"time"

	"github.com/okian/prodplan/internal/domain/schedule"
	"github.com/okian/prodplan/internal/domain/solver"
	"github.com/okian/prodplan/pkg/logger"
)

// EngineFactory returns a fresh engine for one solve.
type EngineFactory func() solver.Engine

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of solver workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many idempotency keys are remembered. Zero or less
// keeps every key.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		s.dedupeSize = size
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSolveTimeout bounds every solve, synchronous or queued.
func WithSolveTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.solveTimeout = d
		}
	}
}

// WithJobRetention sets how long finished jobs stay readable.
func WithJobRetention(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.jobRetention = d
		}
	}
}

// WithNodeLimit caps branch-and-bound nodes for the default engine.
func WithNodeLimit(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.nodeLimit = n
		}
	}
}

// WithCapacityPolicy sets how regular hours constrain production.
func WithCapacityPolicy(p schedule.CapacityPolicy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithExcessWeight sets the objective weight per unit of excess.
func WithExcessWeight(w float64) Option {
	return func(s *Service) {
		if w >= 0 {
			s.excessWeight = w
		}
	}
}

// WithEngineFactory replaces the default simplex engine.
func WithEngineFactory(f EngineFactory) Option {
	return func(s *Service) {
		if f != nil {
			s.newEngine = f
		}
	}
}

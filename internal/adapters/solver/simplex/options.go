package simplex

import (
	"time"

	"github.com/okian/prodplan/pkg/logger"
)

// Option configures an Engine.
type Option func(*Engine)

// WithNodeLimit caps the number of branch-and-bound nodes. Zero disables the cap.
func WithNodeLimit(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.nodeLimit = n
		}
	}
}

// WithIntegralityTolerance sets how far from an integer a value may be and
// still count as integral.
func WithIntegralityTolerance(tol float64) Option {
	return func(e *Engine) {
		if tol > 0 && tol < 0.5 {
			e.integralTol = tol
		}
	}
}

// WithTolerance sets the reduced-cost tolerance passed to gonum's simplex.
func WithTolerance(tol float64) Option {
	return func(e *Engine) {
		if tol > 0 {
			e.lpTol = tol
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithGapTolerance sets the relative gap below which a node cannot improve on
// the incumbent and is pruned. Zero proves optimality exactly.
func WithGapTolerance(gap float64) Option {
	return func(e *Engine) {
		if gap >= 0 && gap < 1 {
			e.gapTol = gap
		}
	}
}

// WithTimeLimit stops the search once d has passed and an incumbent exists;
// the run then reports StatusFeasible. Without an incumbent the search goes on
// until the context ends. Zero disables the limit.
func WithTimeLimit(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.timeLimit = d
		}
	}
}

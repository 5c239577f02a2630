// Package solver defines the capability contract of a MILP solver engine.
//
// The scheduling core only registers variables and linear constraints, sets an
// objective, runs the engine and reads values back. Concrete engines live under
// internal/adapters/solver.
package solver

import (
	"context"
	"fmt"
)

// Var is an opaque handle to a variable registered with an Engine.
type Var int

// Term is one coefficient-variable product of a linear expression.
type Term struct {
	Var  Var
	Coef float64
}

// Expr is a linear expression: the sum of its terms.
type Expr []Term

// Plus returns e extended with coef*v.
func (e Expr) Plus(coef float64, v Var) Expr {
	return append(e, Term{Var: v, Coef: coef})
}

// Relation is the comparison between a constraint's expression and its right-hand side.
type Relation int

// Constraint relations.
const (
	LessEqual Relation = iota
	Equal
	GreaterEqual
)

func (r Relation) String() string {
	switch r {
	case LessEqual:
		return "<="
	case Equal:
		return "="
	case GreaterEqual:
		return ">="
	default:
		return fmt.Sprintf("Relation(%d)", int(r))
	}
}

// Direction of optimisation.
type Direction int

// Objective directions.
const (
	Minimize Direction = iota
	Maximize
)

func (d Direction) String() string {
	if d == Maximize {
		return "maximize"
	}
	return "minimize"
}

// Status is the terminal classification of an Optimize call.
type Status int

// Terminal statuses.
const (
	StatusUnknown Status = iota
	// StatusOptimal means a proven optimum was found.
	StatusOptimal
	// StatusFeasible means a search limit stopped the engine with an integral
	// incumbent that is not proven optimal.
	StatusFeasible
	StatusInfeasible
	StatusUnbounded
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusFeasible:
		return "feasible"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Solved reports whether variable values may be read after this status.
func (s Status) Solved() bool {
	return s == StatusOptimal || s == StatusFeasible
}

// Valuer reads variable values after a solved status.
type Valuer interface {
	// Value returns the value assigned to v. It fails with ErrNotSolved before
	// Optimize reported a solved status.
	Value(v Var) (float64, error)
}

// Engine is the MILP capability consumed by the scheduling core.
type Engine interface {
	// CreateVariable registers a variable with bounds, an objective
	// coefficient and an integrality flag.
	CreateVariable(lower, upper, objective float64, integral bool, name string) (Var, error)

	// AddConstraint registers expr rel rhs.
	AddConstraint(expr Expr, rel Relation, rhs float64, name string) error

	// SetObjective replaces the objective function.
	SetObjective(expr Expr, dir Direction) error

	// Optimize runs the engine. The error is non-nil for engine failures and
	// for ctx cancellation; infeasibility is reported through the status.
	Optimize(ctx context.Context) (Status, error)

	Valuer
}

// Hinter is implemented by engines that accept a starting solution. An engine
// ignores a hinted point that breaks the model.
type Hinter interface {
	// AddHint records a suggested value for v.
	AddHint(v Var, value float64) error
}

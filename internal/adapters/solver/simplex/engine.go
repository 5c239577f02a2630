// Package simplex implements solver.Engine in pure Go. Linear relaxations are
// solved with gonum's simplex method; integrality is enforced by branch and
// bound with rounding and diving heuristics.
package simplex

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/okian/prodplan/internal/domain/solver"
	"github.com/okian/prodplan/pkg/logger"
	"github.com/okian/prodplan/pkg/metrics"
)

// Default engine configuration constants.
const (
	defaultNodeLimit   = 10_000
	defaultIntegralTol = 1e-6
	defaultLPTol       = 1e-10
	defaultGapTol      = 1e-4
	pruneTol           = 1e-9
	// diveInterval is how many nodes pass between dives while no incumbent exists.
	diveInterval = 64
)

type variable struct {
	name     string
	lower    float64
	upper    float64
	obj      float64
	integral bool
}

type constraint struct {
	name string
	expr solver.Expr
	rel  solver.Relation
	rhs  float64
}

// Stats describes the work done by the last Optimize call.
type Stats struct {
	Nodes    int
	LPSolves int
	Duration time.Duration
	// Dives counts heuristic dives; Incumbents counts improving solutions.
	Dives      int
	Incumbents int
	// HintUsed is set when the hinted point was feasible and seeded the search.
	HintUsed bool
	// LimitHit is set when the node or time limit stopped the search.
	LimitHit bool
}

// Engine is a branch-and-bound MILP engine. It is not safe for concurrent use;
// each solve should own its own Engine.
type Engine struct {
	vars      []variable
	cons      []constraint
	direction solver.Direction

	hints     map[solver.Var]float64

	nodeLimit   int
	timeLimit   time.Duration
	integralTol float64
	gapTol      float64
	lpTol       float64

	status    solver.Status
	values    []float64
	objective float64
	stats     Stats

	logger logger.Logger
}

var (
	_ solver.Engine = (*Engine)(nil)
	_ solver.Hinter = (*Engine)(nil)
)

// New creates an empty engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		nodeLimit:   defaultNodeLimit,
		integralTol: defaultIntegralTol,
		gapTol:      defaultGapTol,
		lpTol:       defaultLPTol,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateVariable registers a variable. The lower bound must be finite; the
// upper bound may be +Inf.
func (e *Engine) CreateVariable(lower, upper, objective float64, integral bool, name string) (solver.Var, error) {
	switch {
	case math.IsNaN(lower) || math.IsInf(lower, 0):
		return 0, fmt.Errorf("%w: %s lower bound %v must be finite", solver.ErrInvalidBounds, name, lower)
	case math.IsNaN(upper) || math.IsInf(upper, -1) || upper < lower:
		return 0, fmt.Errorf("%w: %s upper bound %v below lower bound %v", solver.ErrInvalidBounds, name, upper, lower)
	case notFinite(objective):
		return 0, fmt.Errorf("%w: %s objective %v", solver.ErrInvalidCoef, name, objective)
	}
	e.vars = append(e.vars, variable{
		name:     name,
		lower:    lower,
		upper:    upper,
		obj:      objective,
		integral: integral,
	})
	e.invalidate()
	return solver.Var(len(e.vars) - 1), nil
}

// AddConstraint registers expr rel rhs.
func (e *Engine) AddConstraint(expr solver.Expr, rel solver.Relation, rhs float64, name string) error {
	if rel < solver.LessEqual || rel > solver.GreaterEqual {
		return fmt.Errorf("constraint %s: unknown relation %v", name, rel)
	}
	if notFinite(rhs) {
		return fmt.Errorf("%w: constraint %s rhs %v", solver.ErrInvalidCoef, name, rhs)
	}
	if err := e.checkExpr(expr, name); err != nil {
		return err
	}
	cp := make(solver.Expr, len(expr))
	copy(cp, expr)
	e.cons = append(e.cons, constraint{name: name, expr: cp, rel: rel, rhs: rhs})
	e.invalidate()
	return nil
}

// SetObjective replaces every objective coefficient with those of expr.
func (e *Engine) SetObjective(expr solver.Expr, dir solver.Direction) error {
	if dir != solver.Minimize && dir != solver.Maximize {
		return fmt.Errorf("unknown objective direction %v", dir)
	}
	if err := e.checkExpr(expr, "objective"); err != nil {
		return err
	}
	for i := range e.vars {
		e.vars[i].obj = 0
	}
	for _, t := range expr {
		e.vars[t.Var].obj += t.Coef
	}
	e.direction = dir
	e.invalidate()
	return nil
}

// Value returns the value of v in the last solution.
func (e *Engine) Value(v solver.Var) (float64, error) {
	if !e.status.Solved() {
		return 0, fmt.Errorf("%w: status %s", solver.ErrNotSolved, e.status)
	}
	if int(v) < 0 || int(v) >= len(e.values) {
		return 0, fmt.Errorf("%w: %d", solver.ErrUnknownVariable, int(v))
	}
	return e.values[v], nil
}

// Objective returns the objective value of the last solution.
func (e *Engine) Objective() (float64, error) {
	if !e.status.Solved() {
		return 0, fmt.Errorf("%w: status %s", solver.ErrNotSolved, e.status)
	}
	return e.objective, nil
}

// Status returns the status of the last Optimize call.
func (e *Engine) Status() solver.Status { return e.status }

// Stats returns counters for the last Optimize call.
func (e *Engine) Stats() Stats { return e.stats }

// NumVariables returns the number of registered variables.
func (e *Engine) NumVariables() int { return len(e.vars) }

// NumConstraints returns the number of registered constraints.
func (e *Engine) NumConstraints() int { return len(e.cons) }

// Optimize runs branch and bound from the LP relaxation of the model.
//
// The search starts from a feasible hint when one was given, dives depth-first
// until it holds an incumbent and then expands the open node with the lowest
// bound. Nodes within the gap tolerance of the incumbent are pruned. Once the
// time limit passes with an incumbent in hand the search stops and reports
// StatusFeasible. Cancellation of ctx is checked between nodes.
func (e *Engine) Optimize(ctx context.Context) (solver.Status, error) {
	start := time.Now()
	e.invalidate()
	e.stats = Stats{}
	defer func() {
		e.stats.Duration = time.Since(start)
		metrics.RecordSolverRun(e.status.String(), e.stats.Nodes, e.stats.LPSolves, float64(e.stats.Duration.Milliseconds()))
		e.logger.Debug(ctx, "branch and bound finished",
			logger.String("status", e.status.String()),
			logger.Int("nodes", e.stats.Nodes),
			logger.Int("lpSolves", e.stats.LPSolves),
			logger.Int("incumbents", e.stats.Incumbents),
			logger.Bool("hintUsed", e.stats.HintUsed),
			logger.Duration("duration", e.stats.Duration),
		)
	}()

	s := newSearch(e)
	if x := e.hintPoint(ctx); x != nil {
		e.stats.HintUsed = s.offer(ctx, x, "hint")
	}

	root := &node{lower: make([]float64, len(e.vars)), upper: make([]float64, len(e.vars)), bound: math.Inf(-1)}
	for j, v := range e.vars {
		root.lower[j] = v.lower
		root.upper[j] = v.upper
	}
	s.push(root)

	limitHit := false
	for s.open.Len() > 0 {
		if err := ctx.Err(); err != nil {
			e.status = solver.StatusError
			return e.status, fmt.Errorf("%w after %d nodes: %w", ErrInterrupted, e.stats.Nodes, err)
		}
		if e.nodeLimit > 0 && e.stats.Nodes >= e.nodeLimit {
			limitHit = true
			break
		}
		if e.timeLimit > 0 && s.best != nil && time.Since(start) >= e.timeLimit {
			limitHit = true
			break
		}

		nd := s.pop()
		if nd.bound >= s.cutoff() {
			continue
		}
		e.stats.Nodes++

		res, err := e.relax(nd.lower, nd.upper)
		if err != nil {
			e.status = solver.StatusError
			return e.status, err
		}
		switch res.status {
		case solver.StatusInfeasible:
			continue
		case solver.StatusUnbounded:
			if e.stats.Nodes == 1 {
				e.status = solver.StatusUnbounded
				return e.status, nil
			}
			continue
		}

		val := s.sense * res.objective
		if val >= s.cutoff() {
			continue
		}

		j := e.branchVariable(res.x)
		if j < 0 {
			s.offer(ctx, res.x, "relaxation")
			continue
		}
		if x := e.rounded(res.x); x != nil {
			s.offer(ctx, x, "rounding")
		}
		if s.best == nil && (e.stats.Nodes == 1 || e.stats.Nodes%diveInterval == 0) {
			e.stats.Dives++
			if x := e.dive(ctx, nd, res.x); x != nil {
				s.offer(ctx, x, "dive")
			}
		}
		if val >= s.cutoff() {
			continue
		}

		floor := math.Floor(res.x[j])
		down, up := nd.child(val), nd.child(val)
		down.upper[j] = floor
		up.lower[j] = floor + 1
		// The later push wins depth ties; follow the nearer side, rounding up on ties.
		if res.x[j]-floor >= 0.5 {
			s.push(down)
			s.push(up)
		} else {
			s.push(up)
			s.push(down)
		}
	}

	e.stats.LimitHit = limitHit
	best := s.best
	if best == nil {
		if limitHit {
			e.status = solver.StatusError
			return e.status, fmt.Errorf("%w: %d nodes without an integral solution", ErrNodeLimit, e.nodeLimit)
		}
		e.status = solver.StatusInfeasible
		return e.status, nil
	}

	for j, v := range e.vars {
		if v.integral {
			best[j] = math.Round(best[j])
		}
	}
	e.values = best
	e.objective = e.objectiveAt(best)
	e.status = solver.StatusOptimal
	if limitHit {
		e.status = solver.StatusFeasible
	}
	return e.status, nil
}

// AddHint records a starting value for v. Optimize checks the hinted point
// against the model and, when every bound, integrality flag and row holds,
// starts the search with it as the incumbent. Unhinted variables take their
// lower bound.
func (e *Engine) AddHint(v solver.Var, value float64) error {
	if int(v) < 0 || int(v) >= len(e.vars) {
		return fmt.Errorf("%w: hint for %d", solver.ErrUnknownVariable, int(v))
	}
	if notFinite(value) {
		return fmt.Errorf("%w: hint %v for %s", solver.ErrInvalidCoef, value, e.vars[v].name)
	}
	if e.hints == nil {
		e.hints = make(map[solver.Var]float64)
	}
	e.hints[v] = value
	return nil
}

// ClearHints drops every recorded hint.
func (e *Engine) ClearHints() { e.hints = nil }

// branchVariable returns the integral variable whose value is furthest from an
// integer, or -1 when x is integral within tolerance.
func (e *Engine) branchVariable(x []float64) int {
	idx, worst := -1, e.integralTol
	for j, v := range e.vars {
		if !v.integral {
			continue
		}
		frac := math.Abs(x[j] - math.Round(x[j]))
		if frac > worst {
			idx, worst = j, frac
		}
	}
	return idx
}

func (e *Engine) checkExpr(expr solver.Expr, name string) error {
	for _, t := range expr {
		if int(t.Var) < 0 || int(t.Var) >= len(e.vars) {
			return fmt.Errorf("%w: %s references variable %d", solver.ErrUnknownVariable, name, int(t.Var))
		}
		if notFinite(t.Coef) {
			return fmt.Errorf("%w: %s coefficient %v for %s", solver.ErrInvalidCoef, name, t.Coef, e.vars[t.Var].name)
		}
	}
	return nil
}

// invalidate drops any previous solution after the model changes.
func (e *Engine) invalidate() {
	e.status = solver.StatusUnknown
	e.values = nil
	e.objective = 0
}

func notFinite(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

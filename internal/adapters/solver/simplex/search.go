package simplex

import (
	"container/heap"
	"context"
	"math"
	"slices"

	"github.com/okian/prodplan/internal/domain/solver"
	"github.com/okian/prodplan/pkg/logger"
)

// rowTol is the slack allowed when checking a candidate point against a row.
const rowTol = 1e-6

type node struct {
	lower []float64
	upper []float64
	// bound is the parent's relaxation value in minimisation sense.
	bound float64
	depth int
	seq   int
}

func (n *node) child(bound float64) *node {
	return &node{
		lower: slices.Clone(n.lower),
		upper: slices.Clone(n.upper),
		bound: bound,
		depth: n.depth + 1,
	}
}

// frontier holds the open nodes. It pops the deepest, most recent node until
// an incumbent exists and the lowest bound afterwards.
type frontier struct {
	nodes     []*node
	bestFirst bool
}

func (f *frontier) Len() int { return len(f.nodes) }

func (f *frontier) Less(i, j int) bool {
	a, b := f.nodes[i], f.nodes[j]
	if f.bestFirst && a.bound != b.bound {
		return a.bound < b.bound
	}
	if a.depth != b.depth {
		return a.depth > b.depth
	}
	return a.seq > b.seq
}

func (f *frontier) Swap(i, j int) { f.nodes[i], f.nodes[j] = f.nodes[j], f.nodes[i] }

func (f *frontier) Push(x any) { f.nodes = append(f.nodes, x.(*node)) }

func (f *frontier) Pop() any {
	n := len(f.nodes)
	nd := f.nodes[n-1]
	f.nodes[n-1] = nil
	f.nodes = f.nodes[:n-1]
	return nd
}

// search is the state of one Optimize call.
type search struct {
	e       *Engine
	sense   float64
	open    *frontier
	seq     int
	best    []float64
	bestObj float64
}

func newSearch(e *Engine) *search {
	s := &search{e: e, sense: 1, open: &frontier{}, bestObj: math.Inf(1)}
	if e.direction == solver.Maximize {
		s.sense = -1
	}
	return s
}

func (s *search) push(nd *node) {
	s.seq++
	nd.seq = s.seq
	heap.Push(s.open, nd)
}

func (s *search) pop() *node {
	return heap.Pop(s.open).(*node)
}

// cutoff is the value a node must beat to be worth expanding.
func (s *search) cutoff() float64 {
	if s.best == nil {
		return math.Inf(1)
	}
	abs := math.Abs(s.bestObj)
	return s.bestObj - math.Max(pruneTol*math.Max(1, abs), s.e.gapTol*abs)
}

// offer keeps x when it improves on the incumbent. The first incumbent
// switches the frontier to best-bound order.
func (s *search) offer(ctx context.Context, x []float64, source string) bool {
	obj := s.e.objectiveAt(x)
	val := s.sense * obj
	if s.best != nil && val >= s.bestObj-pruneTol*math.Max(1, math.Abs(s.bestObj)) {
		return false
	}
	s.best, s.bestObj = x, val
	s.e.stats.Incumbents++
	if !s.open.bestFirst {
		s.open.bestFirst = true
		heap.Init(s.open)
	}
	s.e.logger.Debug(ctx, "new incumbent",
		logger.String("source", source),
		logger.Float64("objective", obj),
		logger.Int("nodes", s.e.stats.Nodes),
	)
	return true
}

// dive fixes one fractional integral variable at a time to its nearest
// integer, trying the other side when that is infeasible, and re-solves after
// each fix. It returns an integral point or nil when both sides fail.
func (e *Engine) dive(ctx context.Context, nd *node, x []float64) []float64 {
	lower, upper := slices.Clone(nd.lower), slices.Clone(nd.upper)
	for range len(e.vars) {
		if ctx.Err() != nil {
			return nil
		}
		j := e.diveVariable(x)
		if j < 0 {
			return x
		}
		if r := e.rounded(x); r != nil {
			return r
		}
		near := math.Round(x[j])
		next := e.fix(lower, upper, j, near)
		if next == nil {
			far := math.Floor(x[j])
			if far == near {
				far = math.Ceil(x[j])
			}
			next = e.fix(lower, upper, j, far)
		}
		if next == nil {
			return nil
		}
		x = next
	}
	return nil
}

// diveVariable returns the fractional integral variable closest to an integer,
// or -1 when x is integral.
func (e *Engine) diveVariable(x []float64) int {
	idx, nearest := -1, math.Inf(1)
	for j, v := range e.vars {
		if !v.integral {
			continue
		}
		frac := math.Abs(x[j] - math.Round(x[j]))
		if frac > e.integralTol && frac < nearest {
			idx, nearest = j, frac
		}
	}
	return idx
}

// fix pins variable j to v and re-solves. The bounds are restored when the
// relaxation has no optimum.
func (e *Engine) fix(lower, upper []float64, j int, v float64) []float64 {
	if v < lower[j]-feasTol || v > upper[j]+feasTol {
		return nil
	}
	lo, hi := lower[j], upper[j]
	lower[j], upper[j] = v, v
	res, err := e.relax(lower, upper)
	if err != nil || res.status != solver.StatusOptimal {
		lower[j], upper[j] = lo, hi
		return nil
	}
	return res.x
}

// rounded returns x with its integral variables rounded, or nil when that point
// breaks the model.
func (e *Engine) rounded(x []float64) []float64 {
	r := slices.Clone(x)
	for j, v := range e.vars {
		if v.integral {
			r[j] = math.Round(r[j])
		}
	}
	if !e.feasible(r) {
		return nil
	}
	return r
}

// hintPoint completes the hints with lower bounds and returns the point when
// it is feasible.
func (e *Engine) hintPoint(ctx context.Context) []float64 {
	if len(e.hints) == 0 {
		return nil
	}
	x := make([]float64, len(e.vars))
	for j, v := range e.vars {
		x[j] = v.lower
	}
	for v, val := range e.hints {
		if int(v) < len(x) {
			x[v] = val
		}
	}
	if !e.feasible(x) {
		e.logger.Debug(ctx, "hint rejected", logger.Int("hinted", len(e.hints)))
		return nil
	}
	return x
}

// feasible reports whether x satisfies every bound, integrality flag and row.
func (e *Engine) feasible(x []float64) bool {
	for j, v := range e.vars {
		if x[j] < v.lower-rowTol || x[j] > v.upper+rowTol {
			return false
		}
		if v.integral && math.Abs(x[j]-math.Round(x[j])) > e.integralTol {
			return false
		}
	}
	for _, c := range e.cons {
		lhs := 0.0
		for _, t := range c.expr {
			lhs += t.Coef * x[t.Var]
		}
		tol := rowTol * math.Max(1, math.Abs(c.rhs))
		switch c.rel {
		case solver.LessEqual:
			if lhs > c.rhs+tol {
				return false
			}
		case solver.GreaterEqual:
			if lhs < c.rhs-tol {
				return false
			}
		default:
			if math.Abs(lhs-c.rhs) > tol {
				return false
			}
		}
	}
	return true
}

func (e *Engine) objectiveAt(x []float64) float64 {
	obj := 0.0
	for j, v := range e.vars {
		obj += v.obj * x[j]
	}
	return obj
}

package simplex

import (
	"errors"
	"fmt"
	"math"

	"github.com/okian/prodplan/internal/domain/solver"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

const feasTol = 1e-9

// relaxation is the outcome of one LP solve.
type relaxation struct {
	status    solver.Status
	objective float64
	x         []float64
}

// row is one equality row of the standard form before slack columns are added.
type row struct {
	coefs map[int]float64 // original variable index -> coefficient
	slack float64         // +1 slack, -1 surplus, 0 none
	rhs   float64
}

// relax solves the LP relaxation with variable bounds lower/upper.
//
// gonum solves min cᵀx s.t. Ax = b, x ≥ 0, so every variable is shifted by its
// lower bound, finite upper bounds become rows and inequalities get slack columns.
// Variables whose bounds meet are constants and get no column.
func (e *Engine) relax(lower, upper []float64) (relaxation, error) {
	e.stats.LPSolves++
	n := len(e.vars)
	x := make([]float64, n)
	copy(x, lower)

	for j := range n {
		if upper[j] < lower[j]-feasTol {
			return relaxation{status: solver.StatusInfeasible}, nil
		}
	}

	sense := 1.0
	if e.direction == solver.Maximize {
		sense = -1
	}

	rows := make([]row, 0, len(e.cons)+n)
	used := make([]bool, n)
	for _, c := range e.cons {
		r := row{coefs: make(map[int]float64, len(c.expr))}
		for _, t := range c.expr {
			r.coefs[int(t.Var)] += t.Coef
		}
		r.rhs = c.rhs
		for j, a := range r.coefs {
			if a == 0 {
				delete(r.coefs, j)
				continue
			}
			r.rhs -= a * lower[j]
			if upper[j]-lower[j] <= feasTol {
				delete(r.coefs, j)
				continue
			}
			used[j] = true
		}
		if len(r.coefs) == 0 {
			if !emptyRowHolds(c.rel, r.rhs) {
				return relaxation{status: solver.StatusInfeasible}, nil
			}
			continue
		}
		switch c.rel {
		case solver.LessEqual:
			r.slack = 1
		case solver.GreaterEqual:
			r.slack = -1
		}
		rows = append(rows, r)
	}

	// Variables in no constraint sit at whichever bound their cost prefers.
	for j := range n {
		if used[j] || sense*e.vars[j].obj >= 0 {
			continue
		}
		if math.IsInf(upper[j], 1) {
			return relaxation{status: solver.StatusUnbounded}, nil
		}
		x[j] = upper[j]
	}

	col := make([]int, n)
	cols := 0
	for j := range n {
		col[j] = -1
		if !used[j] {
			continue
		}
		col[j] = cols
		cols++
		if !math.IsInf(upper[j], 1) {
			rows = append(rows, row{
				coefs: map[int]float64{j: 1},
				slack: 1,
				rhs:   upper[j] - lower[j],
			})
		}
	}

	if cols > 0 {
		xs, status, err := e.solveStandardForm(rows, col, cols, sense)
		if err != nil || status != solver.StatusOptimal {
			return relaxation{status: status}, err
		}
		for j := range n {
			if col[j] >= 0 {
				x[j] = lower[j] + xs[col[j]]
			}
		}
	}

	return relaxation{status: solver.StatusOptimal, objective: e.objectiveAt(x), x: x}, nil
}

// solveStandardForm assembles [A | S] x = b and hands it to gonum.
func (e *Engine) solveStandardForm(rows []row, col []int, cols int, sense float64) ([]float64, solver.Status, error) {
	m := len(rows)
	slacks := 0
	for _, r := range rows {
		if r.slack != 0 {
			slacks++
		}
	}
	width := cols + slacks
	if m > width {
		return nil, solver.StatusError, fmt.Errorf("%w: %d rows over %d columns", ErrOverdetermined, m, width)
	}

	a := mat.NewDense(m, width, nil)
	b := make([]float64, m)
	c := make([]float64, width)
	for j, k := range col {
		if k >= 0 {
			c[k] = sense * e.vars[j].obj
		}
	}

	next := cols
	for i, r := range rows {
		sign := 1.0
		if r.rhs < 0 {
			sign = -1
		}
		for j, coef := range r.coefs {
			a.Set(i, col[j], sign*coef)
		}
		if r.slack != 0 {
			a.Set(i, next, sign*r.slack)
			next++
		}
		b[i] = sign * r.rhs
	}

	_, xs, err := lp.Simplex(c, a, b, e.lpTol, nil)
	switch {
	case err == nil:
		return xs, solver.StatusOptimal, nil
	case errors.Is(err, lp.ErrInfeasible):
		return nil, solver.StatusInfeasible, nil
	case errors.Is(err, lp.ErrUnbounded):
		return nil, solver.StatusUnbounded, nil
	default:
		return nil, solver.StatusError, fmt.Errorf("%w: %w", ErrRelaxation, err)
	}
}

func emptyRowHolds(rel solver.Relation, rhs float64) bool {
	switch rel {
	case solver.LessEqual:
		return 0 <= rhs+feasTol
	case solver.GreaterEqual:
		return 0 >= rhs-feasTol
	default:
		return math.Abs(rhs) <= feasTol
	}
}

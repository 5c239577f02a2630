package schedule_test

import (
	"context"
	"fmt"

	"github.com/okian/prodplan/internal/domain/solver"
)

// call is one recorded engine interaction.
type call struct {
	Op       string
	Name     string
	Expr     solver.Expr
	Rel      solver.Relation
	RHS      float64
	Integral bool
	Lower    float64
	Upper    float64
}

// recordingEngine records every call and replays canned results.
type recordingEngine struct {
	calls  []call
	names  []string
	status solver.Status
	err    error
	values map[string]float64
	hints  map[string]float64
	solved bool
}

func newRecordingEngine() *recordingEngine {
	return &recordingEngine{status: solver.StatusOptimal, values: map[string]float64{}, hints: map[string]float64{}}
}

func (e *recordingEngine) CreateVariable(lower, upper, _ float64, integral bool, name string) (solver.Var, error) {
	e.calls = append(e.calls, call{Op: "var", Name: name, Lower: lower, Upper: upper, Integral: integral})
	e.names = append(e.names, name)
	return solver.Var(len(e.names) - 1), nil
}

func (e *recordingEngine) AddConstraint(expr solver.Expr, rel solver.Relation, rhs float64, name string) error {
	e.calls = append(e.calls, call{Op: "constraint", Name: name, Expr: expr, Rel: rel, RHS: rhs})
	return nil
}

func (e *recordingEngine) SetObjective(expr solver.Expr, dir solver.Direction) error {
	e.calls = append(e.calls, call{Op: "objective", Name: dir.String(), Expr: expr})
	return nil
}

// AddHint keeps hints apart from calls so call sequences stay comparable.
func (e *recordingEngine) AddHint(v solver.Var, value float64) error {
	if int(v) < 0 || int(v) >= len(e.names) {
		return fmt.Errorf("%w: %d", solver.ErrUnknownVariable, v)
	}
	e.hints[e.names[v]] = value
	return nil
}

func (e *recordingEngine) Optimize(context.Context) (solver.Status, error) {
	e.calls = append(e.calls, call{Op: "optimize"})
	e.solved = e.status.Solved()
	return e.status, e.err
}

func (e *recordingEngine) Value(v solver.Var) (float64, error) {
	if !e.solved {
		return 0, solver.ErrNotSolved
	}
	if int(v) < 0 || int(v) >= len(e.names) {
		return 0, fmt.Errorf("%w: %d", solver.ErrUnknownVariable, v)
	}
	return e.values[e.names[v]], nil
}

func (e *recordingEngine) ops(op string) []call {
	var out []call
	for _, c := range e.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (e *recordingEngine) constraint(name string) (call, bool) {
	for _, c := range e.calls {
		if c.Op == "constraint" && c.Name == name {
			return c, true
		}
	}
	return call{}, false
}

// termNames renders an expression as coefficient-name pairs.
func (e *recordingEngine) termNames(expr solver.Expr) map[string]float64 {
	out := make(map[string]float64, len(expr))
	for _, t := range expr {
		out[e.names[t.Var]] += t.Coef
	}
	return out
}

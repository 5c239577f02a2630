package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/prodplan/internal/domain/model"
	"github.com/okian/prodplan/internal/domain/solver"
	"github.com/okian/prodplan/internal/domain/week"
	"github.com/okian/prodplan/pkg/metrics"
)

// Solve builds in on engine, optimizes and maps the result. engine must be
// fresh: each call owns its engine for the duration of the solve.
func Solve(ctx context.Context, engine solver.Engine, in model.Input, opts ...BuilderOption) (*model.Output, error) {
	start := time.Now()
	out, err := solve(ctx, engine, in, opts...)

	outcome := "error"
	switch kind, ok := KindOf(err); {
	case err == nil:
		outcome = out.Status
	case ok:
		outcome = kind.String()
	}
	metrics.RecordSchedule(outcome, float64(time.Since(start).Milliseconds()))
	return out, err
}

func solve(ctx context.Context, engine solver.Engine, in model.Input, opts ...BuilderOption) (*model.Output, error) {
	b := NewBuilder(engine, opts...)
	m, err := b.Build(ctx, in)
	if err != nil {
		return nil, err
	}

	status, err := engine.Optimize(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, contextError(err)
		}
		return nil, newError(KindSolverFailure, err)
	}

	switch status {
	case solver.StatusOptimal, solver.StatusFeasible:
		return Map(status, engine, m)
	case solver.StatusInfeasible:
		e := newError(KindInfeasible, fmt.Errorf("engine reported %s", status))
		if day, ok := firstShortage(m); ok {
			e.Day = &day
			e.Err = fmt.Errorf("demand through %s needs more hours than regular and overtime capacity provide", day)
		}
		return nil, e
	case solver.StatusUnbounded:
		return nil, newError(KindInfeasible, fmt.Errorf("engine reported %s: no finite minimum-cost schedule exists", status))
	default:
		return nil, newError(KindSolverFailure, fmt.Errorf("engine reported %s", status))
	}
}

// contextError classifies a context error; a missed deadline is a timeout.
func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(KindTimeout, err)
	}
	return newError(KindSolverFailure, err)
}

// firstShortage returns the first working day by which cumulative demand hours
// exceed cumulative regular plus overtime hours. Infeasibility can also come
// from integrality under ExactRegularHours, in which case there is no such day.
func firstShortage(m *Model) (week.Day, bool) {
	var need, have float64
	for _, day := range week.WorkingDays() {
		for _, p := range m.products {
			need += float64(p.Demand[day]) * p.hoursPerUnit
		}
		have += float64(m.input.Capacity.RegularHours[day] + m.input.Capacity.OvertimeHours[day])
		if need > have+1e-9 {
			return day, true
		}
	}
	return 0, false
}

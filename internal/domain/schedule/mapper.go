package schedule

import (
	"errors"
	"fmt"
	"math"

	"github.com/okian/prodplan/internal/domain/model"
	"github.com/okian/prodplan/internal/domain/naming"
	"github.com/okian/prodplan/internal/domain/solver"
	"github.com/okian/prodplan/internal/domain/week"
)

// Map reads the solution of m back from values. Only optimal and feasible
// statuses are mapped; anything else is a KindNotSolved error.
func Map(status solver.Status, values solver.Valuer, m *Model) (*model.Output, error) {
	if m == nil {
		return nil, newError(KindNotSolved, errors.New("no model to map"))
	}
	if !status.Solved() {
		return nil, newError(KindNotSolved, fmt.Errorf("engine status %s", status))
	}

	out := &model.Output{
		Products:     make([]model.ProductSchedule, 0, len(m.products)),
		OvertimeUsed: make(map[week.Day]bool, week.Count),
		Status:       status.String(),
	}
	overtime := make(map[week.Day]int, week.Count)

	for _, p := range m.products {
		ps := model.ProductSchedule{
			Product:  p.Product,
			Regular:  make(map[week.Day]int, week.Count),
			Overtime: make(map[week.Day]int, week.Count),
			Produced: make(map[week.Day]int, week.Count),
			Excess:   make(map[week.Day]int, week.Count),
		}
		for _, day := range week.All() {
			units := [3]int{}
			for i, kind := range naming.Kinds() {
				n, err := readUnits(values, m.mustVar(p, day, kind))
				if err != nil {
					return nil, &Error{Kind: KindSolverFailure, Product: p.Name, Day: &day, Err: err}
				}
				units[i] = n
			}
			reg, ot, exc := units[naming.Regular], units[naming.Overtime], units[naming.Excess]

			ps.Regular[day] = reg
			ps.Overtime[day] = ot
			ps.Produced[day] = reg + ot
			ps.Excess[day] = exc
			overtime[day] += ot
			out.TotalCost += p.RegularUnitCost*float64(reg) + p.OvertimeUnitCost*float64(ot)
		}
		out.Products = append(out.Products, ps)
	}

	for _, day := range week.All() {
		out.OvertimeUsed[day] = overtime[day] > 0
	}
	return out, nil
}

func readUnits(values solver.Valuer, v solver.Var) (int, error) {
	x, err := values.Value(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, fmt.Errorf("variable %d has value %v", int(v), x)
	}
	n := int(math.Round(x))
	if n < 0 {
		return 0, fmt.Errorf("variable %d has negative value %v", int(v), x)
	}
	return n, nil
}

package loadgen

import (
	"errors"
	"fmt"
	"math"

	"github.com/okian/prodplan/internal/domain/model"
	"github.com/okian/prodplan/internal/domain/schedule"
	"github.com/okian/prodplan/internal/domain/week"
)

// ErrInvalidSchedule marks a returned schedule that breaks a constraint of
// its input.
var ErrInvalidSchedule = errors.New("invalid schedule")

const hoursTolerance = 1e-6

// Verify checks out against the constraints of in under policy: demand
// coverage with carried excess, per-day hour limits, overtime flags and total
// cost. All violations are reported together.
func Verify(in model.Input, out *model.Output, policy schedule.CapacityPolicy) error {
	if out == nil {
		return fmt.Errorf("%w: no output", ErrInvalidSchedule)
	}
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidSchedule}, args...)...))
	}

	if len(out.Products) != len(in.Products) {
		fail("%d products scheduled, %d requested", len(out.Products), len(in.Products))
	}

	regular := map[week.Day]float64{}
	overtime := map[week.Day]float64{}
	overtimeUnits := map[week.Day]int{}
	labor := 0.0

	for _, p := range in.Products {
		ps, ok := out.Product(p.Name)
		if !ok {
			fail("product %q missing", p.Name)
			continue
		}
		hours := 1 / p.ProductionRate
		for _, d := range week.WorkingDays() {
			reg, ot, exc := ps.Regular[d], ps.Overtime[d], ps.Excess[d]
			if reg < 0 || ot < 0 || exc < 0 {
				fail("%s %s: negative units", p.Name, d)
			}
			if ps.Produced[d] != reg+ot {
				fail("%s %s: produced %d is not regular %d plus overtime %d", p.Name, d, ps.Produced[d], reg, ot)
			}
			credit := 0
			if src, ok := d.CreditSource(); ok {
				credit = ps.Excess[src]
			}
			if reg+ot+credit-exc < p.Demand[d] {
				fail("%s %s: demand %d not covered", p.Name, d, p.Demand[d])
			}
			regular[d] += float64(reg) * hours
			overtime[d] += float64(ot) * hours
			overtimeUnits[d] += ot
			labor += float64(reg)*p.RegularUnitCost + float64(ot)*p.OvertimeUnitCost
		}
	}

	for _, d := range week.WorkingDays() {
		limit := float64(in.Capacity.RegularHours[d])
		switch {
		case policy == schedule.ExactRegularHours && math.Abs(regular[d]-limit) > hoursTolerance:
			fail("%s: %.4f regular hours used, exactly %v required", d, regular[d], limit)
		case regular[d] > limit+hoursTolerance:
			fail("%s: %.4f regular hours used, %v available", d, regular[d], limit)
		}
		if ot := float64(in.Capacity.OvertimeHours[d]); overtime[d] > ot+hoursTolerance {
			fail("%s: %.4f overtime hours used, %v available", d, overtime[d], ot)
		}
		if out.OvertimeUsed[d] != (overtimeUnits[d] > 0) {
			fail("%s: overtime flag %v with %d overtime units", d, out.OvertimeUsed[d], overtimeUnits[d])
		}
	}

	if math.Abs(out.TotalCost-labor) > hoursTolerance*math.Max(1, labor) {
		fail("total cost %.4f, labor cost %.4f", out.TotalCost, labor)
	}
	return errors.Join(errs...)
}

package schedule_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/prodplan/internal/adapters/solver/simplex"
	"github.com/okian/prodplan/internal/domain/model"
	"github.com/okian/prodplan/internal/domain/schedule"
	"github.com/okian/prodplan/internal/domain/solver"
	"github.com/okian/prodplan/internal/domain/week"
	. "github.com/smartystreets/goconvey/convey"
)

func singleProduct(regular, overtime int) model.Input {
	return model.Input{
		Products: []model.Product{{
			Name:             "Widget",
			ProductionRate:   1,
			Demand:           everyWorkingDay(10),
			RegularUnitCost:  1,
			OvertimeUnitCost: 2,
		}},
		Capacity: model.WeeklyCapacity{
			RegularHours:  everyWorkingDay(regular),
			OvertimeHours: everyWorkingDay(overtime),
		},
	}
}

// coverage returns, per working day, credit + production - excess - demand.
func coverage(p model.ProductSchedule) map[week.Day]int {
	out := map[week.Day]int{}
	for _, d := range week.WorkingDays() {
		credit := 0
		if src, ok := d.CreditSource(); ok {
			credit = p.Excess[src]
		}
		out[d] = credit + p.Produced[d] - p.Excess[d] - p.Demand[d]
	}
	return out
}

func TestSolve(t *testing.T) {
	ctx := context.Background()

	Convey("Given enough regular hours for the whole demand", t, func() {
		out, err := schedule.Solve(ctx, simplex.New(), singleProduct(10, 0))
		So(err, ShouldBeNil)

		Convey("Every day produces its demand on regular hours for a cost of 60", func() {
			So(out.TotalCost, ShouldEqual, 60)
			So(out.Status, ShouldEqual, "optimal")
			widget, _ := out.Product("Widget")
			for _, d := range week.WorkingDays() {
				So(widget.Produced[d], ShouldEqual, 10)
				So(widget.Overtime[d], ShouldEqual, 0)
				So(widget.Excess[d], ShouldEqual, 0)
				So(out.OvertimeUsed[d], ShouldBeFalse)
			}
		})
	})

	Convey("Given half the regular hours and ample overtime", t, func() {
		out, err := schedule.Solve(ctx, simplex.New(), singleProduct(5, 10))
		So(err, ShouldBeNil)

		Convey("Each day splits evenly and overtime is flagged every working day", func() {
			So(out.TotalCost, ShouldEqual, 90)
			widget, _ := out.Product("Widget")
			for _, d := range week.WorkingDays() {
				So(widget.Regular[d], ShouldEqual, 5)
				So(widget.Overtime[d], ShouldEqual, 5)
				So(out.OvertimeUsed[d], ShouldBeTrue)
			}
			So(out.OvertimeUsed[week.Sunday], ShouldBeFalse)
		})
	})

	Convey("Given a day whose demand needs the previous day's surplus", t, func() {
		in := singleProduct(10, 0)
		in.Products[0].Demand[week.Monday] = 5
		in.Products[0].Demand[week.Tuesday] = 15
		out, err := schedule.Solve(ctx, simplex.New(), in)
		So(err, ShouldBeNil)
		widget, _ := out.Product("Widget")

		Convey("Monday's excess is credited to Tuesday", func() {
			So(widget.Excess[week.Monday], ShouldEqual, 5)
			So(widget.Produced[week.Tuesday], ShouldEqual, 10)
			So(widget.Excess[week.Tuesday], ShouldEqual, 0)
		})

		Convey("Demand is covered every working day", func() {
			for _, d := range week.WorkingDays() {
				So(coverage(widget)[d], ShouldBeGreaterThanOrEqualTo, 0)
			}
		})
	})

	Convey("Given several products with fractional hours per unit", t, func() {
		in := twoProducts()
		in.Capacity.RegularHours = everyWorkingDay(4)
		out, err := schedule.Solve(ctx, simplex.New(), in,
			schedule.WithRegularCapacityPolicy(schedule.BoundedRegularHours))
		So(err, ShouldBeNil)

		Convey("Capacity and demand hold for every product and day", func() {
			for _, d := range week.WorkingDays() {
				var regHours, otHours float64
				for _, p := range out.Products {
					h, _ := p.HoursPerUnit()
					regHours += float64(p.Regular[d]) * h
					otHours += float64(p.Overtime[d]) * h
					So(coverage(p)[d], ShouldBeGreaterThanOrEqualTo, 0)
				}
				So(regHours, ShouldBeLessThanOrEqualTo, 4+1e-9)
				So(otHours, ShouldBeLessThanOrEqualTo, 2+1e-9)
			}
		})
	})

	Convey("Given zero demand", t, func() {
		in := singleProduct(10, 5)
		in.Products[0].Demand = nil

		Convey("Exact regular hours still produce the regular output", func() {
			out, err := schedule.Solve(ctx, simplex.New(), in)
			So(err, ShouldBeNil)
			widget, _ := out.Product("Widget")
			So(widget.Produced[week.Thursday], ShouldEqual, 10)
			So(out.TotalCost, ShouldEqual, 60)
		})

		Convey("Bounded regular hours produce nothing", func() {
			out, err := schedule.Solve(ctx, simplex.New(), in,
				schedule.WithRegularCapacityPolicy(schedule.BoundedRegularHours))
			So(err, ShouldBeNil)
			So(out.TotalCost, ShouldEqual, 0)
			So(out.OvertimeUsed[week.Monday], ShouldBeFalse)
		})
	})

	Convey("Given Monday demand beyond Monday's capacity", t, func() {
		in := singleProduct(10, 0)
		in.Capacity.RegularHours[week.Monday] = 5

		Convey("No earlier day can cover it and the error names Monday", func() {
			out, err := schedule.Solve(ctx, simplex.New(), in,
				schedule.WithRegularCapacityPolicy(schedule.BoundedRegularHours))
			So(out, ShouldBeNil)
			So(errors.Is(err, schedule.ErrNoFeasibleSchedule), ShouldBeTrue)
			var se *schedule.Error
			So(errors.As(err, &se), ShouldBeTrue)
			So(se.Kind, ShouldEqual, schedule.KindInfeasible)
			So(se.Day, ShouldNotBeNil)
			So(*se.Day, ShouldEqual, week.Monday)
		})
	})

	Convey("Given an expired deadline", t, func() {
		dctx, cancel := context.WithDeadline(ctx, time.Now().Add(-time.Second))
		defer cancel()

		Convey("The solve times out", func() {
			_, err := schedule.Solve(dctx, simplex.New(), singleProduct(10, 0))
			So(errors.Is(err, schedule.ErrTimeout), ShouldBeTrue)
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
		})
	})

	Convey("Given an engine that fails", t, func() {
		engine := newRecordingEngine()
		engine.status = solver.StatusError
		engine.err = errors.New("backend crashed")

		Convey("The failure is reported as a solver failure", func() {
			_, err := schedule.Solve(ctx, engine, singleProduct(10, 0))
			So(errors.Is(err, schedule.ErrSolverFailure), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "backend crashed")
		})
	})

	Convey("Given an engine that reports unbounded without an error", t, func() {
		engine := newRecordingEngine()
		engine.status = solver.StatusUnbounded

		Convey("The result is the no-feasible-schedule outcome, never an output", func() {
			out, err := schedule.Solve(ctx, engine, singleProduct(10, 0))
			So(out, ShouldBeNil)
			kind, _ := schedule.KindOf(err)
			So(kind, ShouldEqual, schedule.KindInfeasible)
			So(errors.Is(err, schedule.ErrNoFeasibleSchedule), ShouldBeTrue)
			So(errors.Is(err, schedule.ErrSolverFailure), ShouldBeFalse)
		})
	})
}

func perDay(units ...int) map[week.Day]int {
	m := map[week.Day]int{}
	for i, d := range week.WorkingDays() {
		m[d] = units[i]
	}
	return m
}

func TestSolve_ExactWeekOfSeveralRates(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	Convey("Given four products at rates 2, 4, 5 and 10 under exact regular hours", t, func() {
		in := model.Input{
			Products: []model.Product{
				{Name: "Axle", ProductionRate: 2, Demand: perDay(12, 8, 10, 14, 6, 9), RegularUnitCost: 3, OvertimeUnitCost: 5},
				{Name: "Bolt", ProductionRate: 4, Demand: perDay(20, 16, 18, 12, 24, 10), RegularUnitCost: 2, OvertimeUnitCost: 3},
				{Name: "Cog", ProductionRate: 5, Demand: perDay(15, 25, 10, 20, 30, 5), RegularUnitCost: 4, OvertimeUnitCost: 7},
				{Name: "Disc", ProductionRate: 10, Demand: perDay(40, 30, 50, 20, 60, 35), RegularUnitCost: 1, OvertimeUnitCost: 2},
			},
			Capacity: model.WeeklyCapacity{
				RegularHours:  everyWorkingDay(20),
				OvertimeHours: everyWorkingDay(5),
			},
		}
		engine := simplex.New(simplex.WithTimeLimit(2 * time.Second))

		start := time.Now()
		out, err := schedule.Solve(ctx, engine, in)
		elapsed := time.Since(start)

		Convey("A schedule comes back within a few seconds", func() {
			So(err, ShouldBeNil)
			So(elapsed, ShouldBeLessThan, 5*time.Second)
			So(out.Status, ShouldBeIn, "optimal", "feasible")
			So(engine.Stats().Incumbents, ShouldBeGreaterThan, 0)
		})

		Convey("Every regular hour is used and demand is covered", func() {
			So(err, ShouldBeNil)
			for _, d := range week.WorkingDays() {
				var regHours, otHours float64
				for _, p := range out.Products {
					h, _ := p.HoursPerUnit()
					regHours += float64(p.Regular[d]) * h
					otHours += float64(p.Overtime[d]) * h
					So(coverage(p)[d], ShouldBeGreaterThanOrEqualTo, 0)
				}
				So(regHours, ShouldAlmostEqual, 20, 1e-6)
				So(otHours, ShouldBeLessThanOrEqualTo, 5+1e-6)
			}
		})
	})
}

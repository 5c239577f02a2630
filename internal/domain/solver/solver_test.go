package solver_test

import (
	"testing"

	"github.com/okian/prodplan/internal/domain/solver"
	. "github.com/smartystreets/goconvey/convey"
)

func TestExpr_Plus(t *testing.T) {
	Convey("Given an empty expression", t, func() {
		var e solver.Expr

		Convey("When terms are added", func() {
			e = e.Plus(0.5, solver.Var(2)).Plus(-1, solver.Var(0))

			Convey("Then they are kept in order", func() {
				So(e, ShouldResemble, solver.Expr{{Var: 2, Coef: 0.5}, {Var: 0, Coef: -1}})
			})
		})
	})
}

func TestStatus(t *testing.T) {
	Convey("Only optimal and feasible statuses carry values", t, func() {
		solved := map[solver.Status]bool{
			solver.StatusUnknown:    false,
			solver.StatusOptimal:    true,
			solver.StatusFeasible:   true,
			solver.StatusInfeasible: false,
			solver.StatusUnbounded:  false,
			solver.StatusError:      false,
		}
		for status, want := range solved {
			So(status.Solved(), ShouldEqual, want)
		}
	})

	Convey("Statuses, relations and directions print readably", t, func() {
		So(solver.StatusInfeasible.String(), ShouldEqual, "infeasible")
		So(solver.Status(42).String(), ShouldEqual, "unknown")
		So(solver.GreaterEqual.String(), ShouldEqual, ">=")
		So(solver.Relation(9).String(), ShouldEqual, "Relation(9)")
		So(solver.Maximize.String(), ShouldEqual, "maximize")
	})
}

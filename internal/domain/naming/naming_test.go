package naming_test

import (
	"errors"
	"testing"

	"github.com/okian/prodplan/internal/domain/naming"
	"github.com/okian/prodplan/internal/domain/solver"
	"github.com/okian/prodplan/internal/domain/week"
	. "github.com/smartystreets/goconvey/convey"
)

func TestVariableID(t *testing.T) {
	Convey("Given product names and days", t, func() {
		Convey("The identifier is readable and normalized", func() {
			So(naming.VariableID("  Widget ", week.Tuesday, naming.Overtime), ShouldEqual, "widget_ot_tue")
			So(naming.VariableID("WIDGET", week.Tuesday, naming.Overtime), ShouldEqual, "widget_ot_tue")
		})

		Convey("Distinct triples never collide", func() {
			products := []string{"a", "a_reg", "a_reg_mon", "b", "reg", "mon"}
			seen := map[string]naming.Key{}
			for _, p := range products {
				for _, d := range week.All() {
					for _, k := range naming.Kinds() {
						key := naming.Key{Product: p, Day: d, Kind: k}
						id := key.ID()
						prev, dup := seen[id]
						So(dup, ShouldBeFalse)
						if dup {
							t.Logf("collision %v vs %v", prev, key)
						}
						seen[id] = key
					}
				}
			}
			So(len(seen), ShouldEqual, len(products)*week.Count*3)
		})

		Convey("Identifiers round-trip through ParseVariableID", func() {
			for _, p := range []string{"bolt", "m8_bolt", "hex nut"} {
				for _, d := range week.All() {
					for _, k := range naming.Kinds() {
						key, err := naming.ParseVariableID(naming.VariableID(p, d, k))
						So(err, ShouldBeNil)
						So(key, ShouldResemble, naming.Key{Product: p, Day: d, Kind: k})
					}
				}
			}
		})

		Convey("Malformed identifiers are rejected", func() {
			for _, id := range []string{"", "widget", "widget_mon", "widget_xx_mon", "widget_reg_xyz", "_reg_mon"} {
				_, err := naming.ParseVariableID(id)
				So(errors.Is(err, naming.ErrMalformedID), ShouldBeTrue)
			}
		})
	})
}

func TestKind(t *testing.T) {
	Convey("Kinds form a closed set", t, func() {
		So(naming.Kinds(), ShouldResemble, []naming.Kind{naming.Regular, naming.Overtime, naming.Excess})
		k, err := naming.ParseKind("exc")
		So(err, ShouldBeNil)
		So(k, ShouldEqual, naming.Excess)

		_, err = naming.ParseKind("he")
		So(errors.Is(err, naming.ErrUnknownKind), ShouldBeTrue)
	})
}

func TestTable(t *testing.T) {
	Convey("Given a fresh table", t, func() {
		table := naming.NewTable()
		key := naming.Key{Product: "Widget", Day: week.Monday, Kind: naming.Regular}

		Convey("Registered handles can be looked up by key", func() {
			So(table.Register(key, solver.Var(3)), ShouldBeNil)
			v, ok := table.Lookup(naming.Key{Product: "widget", Day: week.Monday, Kind: naming.Regular})
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, solver.Var(3))
			So(table.Len(), ShouldEqual, 1)
			So(table.IDs(), ShouldResemble, []string{"widget_reg_mon"})
		})

		Convey("Registering the same identifier twice fails", func() {
			So(table.Register(key, solver.Var(0)), ShouldBeNil)
			err := table.Register(naming.Key{Product: " WIDGET", Day: week.Monday, Kind: naming.Regular}, solver.Var(1))
			So(errors.Is(err, naming.ErrDuplicateID), ShouldBeTrue)
		})

		Convey("Missing keys are reported", func() {
			_, ok := table.Lookup(key)
			So(ok, ShouldBeFalse)
			So(func() { table.MustLookup(key) }, ShouldPanic)
		})
	})
}

// Package schedule turns a weekly production input into a MILP, submits it to a
// solver engine and maps the solution back to a per-product, per-day plan.
package schedule

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/okian/prodplan/internal/domain/model"
	"github.com/okian/prodplan/internal/domain/naming"
	"github.com/okian/prodplan/internal/domain/solver"
	"github.com/okian/prodplan/internal/domain/week"
	"github.com/okian/prodplan/pkg/logger"
	"github.com/okian/prodplan/pkg/metrics"
)

// CapacityPolicy selects how regular hours bind each working day.
type CapacityPolicy int

// Capacity policies.
const (
	// ExactRegularHours requires every regular hour to be used.
	ExactRegularHours CapacityPolicy = iota
	// BoundedRegularHours lets regular hours go unused.
	BoundedRegularHours
)

func (p CapacityPolicy) String() string {
	if p == BoundedRegularHours {
		return "bounded"
	}
	return "exact"
}

// ParseCapacityPolicy accepts "exact" or "bounded".
func ParseCapacityPolicy(s string) (CapacityPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "exact":
		return ExactRegularHours, nil
	case "bounded":
		return BoundedRegularHours, nil
	default:
		return 0, fmt.Errorf("unknown regular capacity policy %q", s)
	}
}

func (p CapacityPolicy) relation() solver.Relation {
	if p == BoundedRegularHours {
		return solver.LessEqual
	}
	return solver.Equal
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithRegularCapacityPolicy sets the regular-hours relation.
func WithRegularCapacityPolicy(p CapacityPolicy) BuilderOption {
	return func(b *Builder) { b.policy = p }
}

// WithExcessWeight puts w per unit of excess into the objective. The default
// is zero: excess carries no cost and equal-cost plans may differ in how much
// surplus they carry. A small weight such as 1e-6 prefers the plan carrying
// least. It never enters the reported total cost.
func WithExcessWeight(w float64) BuilderOption {
	return func(b *Builder) {
		if w >= 0 && !math.IsInf(w, 1) {
			b.excessWeight = w
		}
	}
}

// WithLogger sets the builder logger.
func WithLogger(l logger.Logger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// Builder formulates one Input on one engine. It is single-use.
type Builder struct {
	engine       solver.Engine
	policy       CapacityPolicy
	excessWeight float64
	logger       logger.Logger
	used         bool
}

// NewBuilder returns a Builder that registers its model on engine.
func NewBuilder(engine solver.Engine, opts ...BuilderOption) *Builder {
	b := &Builder{
		engine: engine,
		policy: ExactRegularHours,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type plannedProduct struct {
	model.Product
	hoursPerUnit float64
}

// Model is the formulated problem: the input, its resolved products and the
// variables registered for them.
type Model struct {
	input       model.Input
	products    []plannedProduct
	table       *naming.Table
	policy      CapacityPolicy
	constraints int
}

// Input returns the input the model was built from.
func (m *Model) Input() model.Input { return m.input }

// Table returns the identifier table of the model's variables.
func (m *Model) Table() *naming.Table { return m.table }

// Policy returns the regular capacity policy the model was built with.
func (m *Model) Policy() CapacityPolicy { return m.policy }

// Variables returns the number of registered variables.
func (m *Model) Variables() int { return m.table.Len() }

// Constraints returns the number of registered constraints.
func (m *Model) Constraints() int { return m.constraints }

// Var returns the engine handle of a product's variable.
func (m *Model) Var(product string, day week.Day, kind naming.Kind) (solver.Var, bool) {
	return m.table.Lookup(naming.Key{Product: product, Day: day, Kind: kind})
}

func (m *Model) mustVar(p plannedProduct, day week.Day, kind naming.Kind) solver.Var {
	return m.table.MustLookup(naming.Key{Product: p.Name, Day: day, Kind: kind})
}

// Validate returns the configuration error Build would fail in with, if any.
func Validate(in model.Input) error {
	if err := model.Validate(in); err != nil {
		return newError(KindConfiguration, err)
	}
	return nil
}

// Build validates in and registers its variables, objective and constraints.
// Engines implementing solver.Hinter also receive a starting plan when a
// greedy one exists. Nothing reaches the engine when the input is invalid.
func (b *Builder) Build(ctx context.Context, in model.Input) (*Model, error) {
	if b.used {
		return nil, newError(KindConfiguration, ErrBuilderReused)
	}
	b.used = true

	if err := ctx.Err(); err != nil {
		return nil, contextError(err)
	}
	if err := Validate(in); err != nil {
		return nil, err
	}

	m := &Model{input: in, table: naming.NewTable(), policy: b.policy}
	for _, p := range in.Products {
		h, err := p.HoursPerUnit()
		if err != nil {
			return nil, &Error{Kind: KindConfiguration, Product: p.Name, Err: err}
		}
		m.products = append(m.products, plannedProduct{Product: p, hoursPerUnit: h})
	}

	steps := []func(*Model) error{
		b.createVariables,
		b.setObjective,
		b.addCapacity,
		b.addDemand,
	}
	for _, step := range steps {
		if err := step(m); err != nil {
			return nil, err
		}
	}
	if err := b.hint(ctx, m); err != nil {
		return nil, err
	}

	metrics.UpdateModelSize(m.Variables(), m.Constraints())
	b.logger.Debug(ctx, "model built",
		logger.Int("products", len(m.products)),
		logger.Int("variables", m.Variables()),
		logger.Int("constraints", m.Constraints()),
		logger.String("policy", m.policy.String()),
	)
	return m, nil
}

// createVariables registers regular, overtime and excess units for every
// product on every day of the week, Sunday included.
func (b *Builder) createVariables(m *Model) error {
	for _, p := range m.products {
		for _, day := range week.All() {
			for _, kind := range naming.Kinds() {
				key := naming.Key{Product: p.Name, Day: day, Kind: kind}
				v, err := b.engine.CreateVariable(0, math.Inf(1), 0, true, key.ID())
				if err != nil {
					return b.engineError(p.Name, &day, fmt.Errorf("create %s: %w", key.ID(), err))
				}
				if err := m.table.Register(key, v); err != nil {
					return &Error{Kind: KindConfiguration, Product: p.Name, Day: &day, Err: err}
				}
			}
		}
	}
	return nil
}

// setObjective minimizes labor cost. Excess appears only with a positive
// excess weight.
func (b *Builder) setObjective(m *Model) error {
	obj := make(solver.Expr, 0, 3*week.Count*len(m.products))
	for _, p := range m.products {
		for _, day := range week.All() {
			obj = obj.Plus(p.RegularUnitCost, m.mustVar(p, day, naming.Regular))
			obj = obj.Plus(p.OvertimeUnitCost, m.mustVar(p, day, naming.Overtime))
			if b.excessWeight > 0 {
				obj = obj.Plus(b.excessWeight, m.mustVar(p, day, naming.Excess))
			}
		}
	}
	if err := b.engine.SetObjective(obj, solver.Minimize); err != nil {
		return b.engineError("", nil, fmt.Errorf("set objective: %w", err))
	}
	return nil
}

// addCapacity bounds the labor-hours spent each working day.
func (b *Builder) addCapacity(m *Model) error {
	for _, day := range week.WorkingDays() {
		reg := make(solver.Expr, 0, len(m.products))
		ot := make(solver.Expr, 0, len(m.products))
		for _, p := range m.products {
			reg = reg.Plus(p.hoursPerUnit, m.mustVar(p, day, naming.Regular))
			ot = ot.Plus(p.hoursPerUnit, m.mustVar(p, day, naming.Overtime))
		}

		regularHours := float64(m.input.Capacity.RegularHours[day])
		if err := b.addConstraint(m, reg, m.policy.relation(), regularHours, "regular_hours_"+day.Abbrev(), "", day); err != nil {
			return err
		}
		overtimeHours := float64(m.input.Capacity.OvertimeHours[day])
		if err := b.addConstraint(m, ot, solver.LessEqual, overtimeHours, "overtime_hours_"+day.Abbrev(), "", day); err != nil {
			return err
		}
	}
	return nil
}

// addDemand covers each working day's demand with that day's production plus
// the excess credited from the previous working day. Monday has no credit.
func (b *Builder) addDemand(m *Model) error {
	for _, p := range m.products {
		for _, day := range week.WorkingDays() {
			expr := make(solver.Expr, 0, 4)
			if src, ok := day.CreditSource(); ok {
				expr = expr.Plus(1, m.mustVar(p, src, naming.Excess))
			}
			expr = expr.
				Plus(1, m.mustVar(p, day, naming.Overtime)).
				Plus(1, m.mustVar(p, day, naming.Regular)).
				Plus(-1, m.mustVar(p, day, naming.Excess))

			name := "demand_" + naming.Normalize(p.Name) + "_" + day.Abbrev()
			if err := b.addConstraint(m, expr, solver.GreaterEqual, float64(p.Demand[day]), name, p.Name, day); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *Builder) addConstraint(m *Model, expr solver.Expr, rel solver.Relation, rhs float64, name, product string, day week.Day) error {
	if err := b.engine.AddConstraint(expr, rel, rhs, name); err != nil {
		return b.engineError(product, &day, fmt.Errorf("add %s: %w", name, err))
	}
	m.constraints++
	return nil
}

func (b *Builder) engineError(product string, day *week.Day, err error) error {
	return &Error{Kind: KindSolverFailure, Product: product, Day: day, Err: err}
}

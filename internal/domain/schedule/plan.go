package schedule

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/okian/prodplan/internal/domain/naming"
	"github.com/okian/prodplan/internal/domain/solver"
	"github.com/okian/prodplan/internal/domain/week"
	"github.com/okian/prodplan/pkg/logger"
)

// maxBlockHours caps the search for a product's production block.
const maxBlockHours = 64

// block is a whole number of hours that yields a whole number of units.
type block struct {
	hours int
	units int
}

// productionBlock returns the smallest block of p, if one exists within
// maxBlockHours.
func productionBlock(p plannedProduct) (block, bool) {
	for h := 1; h <= maxBlockHours; h++ {
		u := float64(h) / p.hoursPerUnit
		if r := math.Round(u); r >= 1 && math.Abs(u-r) <= 1e-9*u {
			return block{hours: h, units: int(r)}, true
		}
	}
	return block{}, false
}

// startingPlan builds a whole-unit plan that meets every constraint of m, day
// by day in week order. Each day first covers what the previous day's excess
// leaves of its demand. Regular hours go to the products that save most per
// hour over overtime and overtime covers the rest. Under ExactRegularHours
// regular hours are spent in whole blocks and any left over go to the cheapest
// products as excess. It reports false when the greedy construction fails.
func startingPlan(m *Model) (map[naming.Key]float64, bool) {
	n := len(m.products)
	exact := m.policy == ExactRegularHours

	blocks := make([]block, n)
	for i, p := range m.products {
		blocks[i], _ = productionBlock(p)
	}
	byPremium := productOrder(n, func(i int) float64 {
		p := m.products[i]
		return -(p.OvertimeUnitCost - p.RegularUnitCost) / p.hoursPerUnit
	})
	byCost := productOrder(n, func(i int) float64 {
		p := m.products[i]
		return p.RegularUnitCost / p.hoursPerUnit
	})

	plan := make(map[naming.Key]float64, 3*week.Count*n)
	carry := make([]int, n)
	for _, day := range week.WorkingDays() {
		need := make([]int, n)
		reg := make([]int, n)
		ot := make([]int, n)
		for i, p := range m.products {
			need[i] = max(0, p.Demand[day]-carry[i])
		}

		hoursLeft := m.input.Capacity.RegularHours[day]
		left := float64(hoursLeft)
		for _, i := range byPremium {
			if need[i] == 0 {
				continue
			}
			if exact {
				b := blocks[i]
				if b.hours == 0 {
					continue
				}
				k := min((need[i]+b.units-1)/b.units, hoursLeft/b.hours)
				reg[i] = k * b.units
				hoursLeft -= k * b.hours
				continue
			}
			h := m.products[i].hoursPerUnit
			reg[i] = min(need[i], int(math.Floor(left/h+1e-9)))
			left -= float64(reg[i]) * h
		}
		if exact && hoursLeft > 0 {
			extra, ok := fillHours(hoursLeft, byCost, blocks)
			if !ok {
				return nil, false
			}
			for i, k := range extra {
				reg[i] += k * blocks[i].units
			}
		}

		otLeft := float64(m.input.Capacity.OvertimeHours[day])
		for i, p := range m.products {
			short := need[i] - reg[i]
			if short <= 0 {
				continue
			}
			hours := float64(short) * p.hoursPerUnit
			if hours > otLeft+1e-9 {
				return nil, false
			}
			ot[i] = short
			otLeft -= hours
		}

		for i, p := range m.products {
			carry[i] += reg[i] + ot[i] - p.Demand[day]
			plan[naming.Key{Product: p.Name, Day: day, Kind: naming.Regular}] = float64(reg[i])
			plan[naming.Key{Product: p.Name, Day: day, Kind: naming.Overtime}] = float64(ot[i])
			plan[naming.Key{Product: p.Name, Day: day, Kind: naming.Excess}] = float64(carry[i])
		}
	}
	return plan, true
}

// productOrder returns product indices sorted by key, ties in input order.
func productOrder(n int, key func(int) float64) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch ka, kb := key(a), key(b); {
		case ka < kb:
			return -1
		case ka > kb:
			return 1
		}
		return 0
	})
	return order
}

// fillHours splits hours into whole blocks, preferring products early in
// order, and returns the block count per product.
func fillHours(hours int, order []int, blocks []block) ([]int, bool) {
	from := make([]int, hours+1)
	for a := range from {
		from[a] = -1
	}
	for a := 1; a <= hours; a++ {
		for _, i := range order {
			b := blocks[i].hours
			if b == 0 || b > a {
				continue
			}
			if a == b || from[a-b] >= 0 {
				from[a] = i
				break
			}
		}
	}
	if from[hours] < 0 {
		return nil, false
	}
	count := make([]int, len(blocks))
	for a := hours; a > 0; a -= blocks[from[a]].hours {
		count[from[a]]++
	}
	return count, true
}

// hint hands engines that accept one a starting plan. Sunday is left to the
// engine's default of zero.
func (b *Builder) hint(ctx context.Context, m *Model) error {
	h, ok := b.engine.(solver.Hinter)
	if !ok {
		return nil
	}
	plan, ok := startingPlan(m)
	if !ok {
		b.logger.Debug(ctx, "no starting plan", logger.String("policy", m.policy.String()))
		return nil
	}
	for _, p := range m.products {
		for _, day := range week.WorkingDays() {
			for _, kind := range naming.Kinds() {
				key := naming.Key{Product: p.Name, Day: day, Kind: kind}
				if err := h.AddHint(m.table.MustLookup(key), plan[key]); err != nil {
					return b.engineError(p.Name, &day, fmt.Errorf("hint %s: %w", key.ID(), err))
				}
			}
		}
	}
	return nil
}

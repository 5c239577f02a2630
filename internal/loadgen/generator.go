package loadgen

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/okian/prodplan/internal/domain/model"
	"github.com/okian/prodplan/internal/domain/week"
)

// Generator ranges.
const (
	minRegularHours = 8
	regularSpread   = 9 // regular hours fall in [8, 16]
	maxOvertime     = 4
	maxRate         = 5
	minCostCents    = 100
	costSpread      = 900
)

// Generate returns a random week that has a schedule under both capacity
// policies.
//
// The first product is made at one unit per hour, so it can absorb any whole
// number of leftover hours. Every other product's demand needs at most a whole
// number of hours, ceil(demand/rate), and the hours needed per day never exceed
// regular plus overtime capacity. Splitting whole hours between regular and
// overtime is always possible, so the week is feasible even when regular hours
// must be used in full.
func Generate(rng *rand.Rand, products int) model.Input {
	if products < 1 {
		products = 1
	}

	in := model.Input{
		Products: make([]model.Product, products),
		Capacity: model.WeeklyCapacity{
			RegularHours:  make(map[week.Day]int, 6),
			OvertimeHours: make(map[week.Day]int, 6),
		},
	}
	for i := range in.Products {
		rate := 1
		if i > 0 {
			rate = 1 + rng.IntN(maxRate)
		}
		regular := cents(minCostCents + rng.IntN(costSpread))
		in.Products[i] = model.Product{
			Name:             fmt.Sprintf("Product %02d", i+1),
			ProductionRate:   float64(rate),
			Demand:           make(map[week.Day]int, 6),
			RegularUnitCost:  regular,
			OvertimeUnitCost: math.Round(regular*(125+float64(rng.IntN(51)))) / 100,
		}
	}

	for _, d := range week.WorkingDays() {
		regular := minRegularHours + rng.IntN(regularSpread)
		overtime := rng.IntN(maxOvertime + 1)
		in.Capacity.RegularHours[d] = regular
		in.Capacity.OvertimeHours[d] = overtime

		share := (regular + rng.IntN(overtime+1)) / products
		for i := range in.Products {
			p := &in.Products[i]
			hours := rng.IntN(share + 1)
			if hours == 0 {
				p.Demand[d] = 0
				continue
			}
			rate := int(p.ProductionRate)
			p.Demand[d] = hours*rate - rng.IntN(rate)
		}
	}
	return in
}

// GenerateN returns n weeks drawn from one seeded source.
func GenerateN(seed uint64, n, products int) []model.Input {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]model.Input, n)
	for i := range out {
		out[i] = Generate(rng, products)
	}
	return out
}

func cents(n int) float64 { return float64(n) / 100 }

// Package model contains the scheduling input and output shapes passed between layers.
package model

import (
	"fmt"

	"github.com/okian/prodplan/internal/domain/naming"
	"github.com/okian/prodplan/internal/domain/week"
)

// Product is one item to schedule for the week.
type Product struct {
	Name string `json:"name" yaml:"name" validate:"required"`
	// ProductionRate is units produced per labor-hour.
	ProductionRate float64 `json:"production_rate" yaml:"production_rate" validate:"gt=0"`
	// Demand holds units required per working day.
	Demand           map[week.Day]int `json:"demand" yaml:"demand"`
	RegularUnitCost  float64          `json:"regular_unit_cost" yaml:"regular_unit_cost" validate:"gte=0"`
	OvertimeUnitCost float64          `json:"overtime_unit_cost" yaml:"overtime_unit_cost" validate:"gte=0"`
}

// Key returns the normalized product name used as its identity.
func (p Product) Key() string {
	return naming.Normalize(p.Name)
}

// HoursPerUnit returns the labor-hours one unit takes (1/rate). A non-positive
// rate is a configuration error.
func (p Product) HoursPerUnit() (float64, error) {
	if !(p.ProductionRate > 0) {
		return 0, fmt.Errorf("%w: product %q has production rate %v", ErrNonPositiveRate, p.Name, p.ProductionRate)
	}
	return 1 / p.ProductionRate, nil
}

// WeeklyCapacity holds labor-hours available per day.
type WeeklyCapacity struct {
	RegularHours  map[week.Day]int `json:"regular_hours" yaml:"regular_hours"`
	OvertimeHours map[week.Day]int `json:"overtime_hours" yaml:"overtime_hours"`
}

// Input is everything needed for one solve.
type Input struct {
	Products []Product      `json:"products" yaml:"products"`
	Capacity WeeklyCapacity `json:"capacity" yaml:"capacity"`
}

// ProductSchedule is a product annotated with its planned production.
type ProductSchedule struct {
	Product
	// Regular and Overtime hold units committed on each kind of hours.
	Regular  map[week.Day]int `json:"regular"`
	Overtime map[week.Day]int `json:"overtime"`
	// Produced is Regular plus Overtime.
	Produced map[week.Day]int `json:"produced"`
	// Excess is production beyond the day's demand, credited to the next working day.
	Excess map[week.Day]int `json:"excess"`
}

// Output is the mapped result of a solved schedule.
type Output struct {
	Products     []ProductSchedule `json:"products"`
	OvertimeUsed map[week.Day]bool `json:"overtime_used"`
	TotalCost    float64           `json:"total_cost"`
	Status       string            `json:"status"`
}

// Product returns the schedule of the product with the given name.
func (o *Output) Product(name string) (ProductSchedule, bool) {
	key := naming.Normalize(name)
	for _, p := range o.Products {
		if p.Key() == key {
			return p, true
		}
	}
	return ProductSchedule{}, false
}

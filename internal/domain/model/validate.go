package model

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/okian/prodplan/internal/domain/week"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// structValidator returns the shared validator, reporting fields by json name.
func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})
		validate = v
	})
	return validate
}

// Validate checks an Input before anything is submitted to a solver engine.
// It returns a *ValidationError listing every offending product, field and day.
func Validate(in Input) error {
	var problems []Problem
	add := func(product, field string, day *week.Day, format string, args ...any) {
		problems = append(problems, Problem{
			Product: product,
			Field:   field,
			Day:     day,
			Message: fmt.Sprintf(format, args...),
		})
	}

	if len(in.Products) == 0 {
		add("", "products", nil, "at least one product is required")
	}

	seen := make(map[string]string, len(in.Products))
	for i, p := range in.Products {
		label := p.Name
		if strings.TrimSpace(label) == "" {
			label = fmt.Sprintf("#%d", i+1)
		}

		if err := structValidator().Struct(p); err != nil {
			var fieldErrs validator.ValidationErrors
			if !errors.As(err, &fieldErrs) {
				return fmt.Errorf("validate product %s: %w", label, err)
			}
			for _, fe := range fieldErrs {
				add(label, fe.Field(), nil, "%s", describe(fe))
			}
		}
		if math.IsInf(p.ProductionRate, 0) {
			add(label, "production_rate", nil, "must be finite")
		}
		if notFinite(p.RegularUnitCost) {
			add(label, "regular_unit_cost", nil, "must be finite")
		}
		if notFinite(p.OvertimeUnitCost) {
			add(label, "overtime_unit_cost", nil, "must be finite")
		}

		switch key := p.Key(); {
		case key == "" && p.Name != "":
			add(label, "name", nil, "must not be blank")
		case key != "":
			if first, dup := seen[key]; dup {
				add(label, "name", nil, "duplicates product %q after normalization", first)
			} else {
				seen[key] = p.Name
			}
		}

		for day, units := range p.Demand {
			d := day
			switch {
			case !d.Valid():
				add(label, "demand", nil, "unknown day %d", int(d))
			case !d.IsWorking():
				add(label, "demand", &d, "demand is only accepted for working days")
			case units < 0:
				add(label, "demand", &d, "must not be negative, got %d", units)
			}
		}
	}

	checkCapacity := func(field string, hours map[week.Day]int) {
		for _, d := range week.WorkingDays() {
			day := d
			h, ok := hours[d]
			switch {
			case !ok:
				add("", field, &day, "no entry for working day")
			case h < 0:
				add("", field, &day, "must not be negative, got %d", h)
			}
		}
		for d := range hours {
			if !d.Valid() {
				add("", field, nil, "unknown day %d", int(d))
			}
		}
	}
	checkCapacity("regular_hours", in.Capacity.RegularHours)
	checkCapacity("overtime_hours", in.Capacity.OvertimeHours)

	if len(problems) == 0 {
		return nil
	}
	sortProblems(problems)
	return &ValidationError{Problems: problems}
}

func notFinite(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}

// sortProblems orders problems by product, field and day so messages are stable.
func sortProblems(problems []Problem) {
	dayOf := func(p Problem) int {
		if p.Day == nil {
			return -1
		}
		return int(*p.Day)
	}
	slices.SortStableFunc(problems, func(a, b Problem) int {
		if c := cmp.Compare(a.Product, b.Product); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Field, b.Field); c != 0 {
			return c
		}
		return cmp.Compare(dayOf(a), dayOf(b))
	})
}

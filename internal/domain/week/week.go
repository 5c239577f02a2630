// Package week models the fixed seven-day scheduling cycle.
//
// The week is isolated: nothing carries over from the previous week, so the
// first working day has no credit source and Sunday has no predecessor.
package week

import (
	"errors"
	"fmt"
	"strings"
)

// Day is a day of the week. Ordinals follow Sunday=0 … Saturday=6.
type Day int

// Days of the week.
const (
	Sunday Day = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

// Count is the number of days in the cycle.
const Count = 7

// ErrUnknownDay is returned when a day name cannot be parsed.
var ErrUnknownDay = errors.New("unknown week day")

var dayNames = [Count]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// All returns every day in ordinal order.
func All() []Day {
	return []Day{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}
}

// WorkingDays returns the six days on which demand and capacity constraints apply.
func WorkingDays() []Day {
	return []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}
}

// Valid reports whether d is one of the seven defined days.
func (d Day) Valid() bool {
	return d >= Sunday && d <= Saturday
}

// IsWorking reports whether d is a working day.
func (d Day) IsWorking() bool {
	return d >= Monday && d <= Saturday
}

// Previous returns the preceding day within the same week. Sunday opens the
// cycle and has no predecessor, in which case ok is false.
func (d Day) Previous() (prev Day, ok bool) {
	if !d.Valid() || d == Sunday {
		return Sunday, false
	}
	return d - 1, true
}

// CreditSource returns the working day whose excess production is credited
// towards d's demand. Monday and Sunday have none.
func (d Day) CreditSource() (Day, bool) {
	prev, ok := d.Previous()
	if !ok || !prev.IsWorking() {
		return Sunday, false
	}
	return prev, true
}

// Abbrev returns the three-letter lower-case abbreviation, e.g. "mon".
func (d Day) Abbrev() string {
	if !d.Valid() {
		return fmt.Sprintf("day%d", int(d))
	}
	return dayNames[d][:3]
}

// String returns the lower-case English name of the day.
func (d Day) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Day(%d)", int(d))
	}
	return dayNames[d]
}

// Title returns the capitalised day name for reports.
func (d Day) Title() string {
	s := d.String()
	return strings.ToUpper(s[:1]) + s[1:]
}

// ParseDay parses a full or three-letter day name, case-insensitively.
func ParseDay(s string) (Day, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for i, name := range dayNames {
		if v == name || v == name[:3] {
			return Day(i), nil
		}
	}
	return Sunday, fmt.Errorf("%w: %q", ErrUnknownDay, s)
}

// MarshalText encodes the day by name so maps keyed by Day serialise readably.
func (d Day) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownDay, int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText decodes a day name.
func (d *Day) UnmarshalText(text []byte) error {
	parsed, err := ParseDay(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

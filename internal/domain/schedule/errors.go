package schedule

import (
	"errors"
	"fmt"
	"strings"

	"github.com/okian/prodplan/internal/domain/week"
)

// Sentinel kinds for scheduling failures. Every *Error matches exactly one.
var (
	ErrConfiguration      = errors.New("invalid scheduling configuration")
	ErrNoFeasibleSchedule = errors.New("no feasible schedule")
	ErrSolverFailure      = errors.New("solver failure")
	ErrTimeout            = errors.New("solve timed out")
	ErrNotSolved          = errors.New("solution not available")

	// ErrBuilderReused is returned by a second Build on the same Builder.
	ErrBuilderReused = errors.New("builder already used")
)

// ErrorKind classifies an Error.
type ErrorKind int

// Error kinds.
const (
	KindConfiguration ErrorKind = iota + 1
	KindInfeasible
	KindSolverFailure
	KindTimeout
	KindNotSolved
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindInfeasible:
		return "infeasible"
	case KindSolverFailure:
		return "solver_failure"
	case KindTimeout:
		return "timeout"
	case KindNotSolved:
		return "not_solved"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindConfiguration:
		return ErrConfiguration
	case KindInfeasible:
		return ErrNoFeasibleSchedule
	case KindTimeout:
		return ErrTimeout
	case KindNotSolved:
		return ErrNotSolved
	default:
		return ErrSolverFailure
	}
}

// Error is a scheduling failure with the entity it concerns, when known.
type Error struct {
	Kind    ErrorKind
	Product string
	Day     *week.Day
	Err     error
}

func newError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.sentinel().Error())
	if e.Product != "" {
		fmt.Fprintf(&b, " for product %q", e.Product)
	}
	if e.Day != nil {
		b.WriteString(" on " + e.Day.String())
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind sentinel and the cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return 0, false
}

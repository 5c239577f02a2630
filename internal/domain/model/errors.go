package model

import (
	"errors"
	"strings"

	"github.com/okian/prodplan/internal/domain/week"
)

// Sentinel kinds for input problems.
var (
	ErrInvalidInput    = errors.New("invalid schedule input")
	ErrNonPositiveRate = errors.New("non-positive production rate")
)

// Problem is one offending record in an Input.
type Problem struct {
	Product string    `json:"product,omitempty"`
	Day     *week.Day `json:"day,omitempty"`
	Field   string    `json:"field,omitempty"`
	Message string    `json:"message"`
}

func (p Problem) String() string {
	var b strings.Builder
	switch {
	case p.Product != "":
		b.WriteString("product " + quote(p.Product))
	case strings.HasSuffix(p.Field, "_hours"):
		b.WriteString("capacity")
	default:
		b.WriteString("input")
	}
	if p.Field != "" {
		b.WriteString(" " + p.Field)
	}
	if p.Day != nil {
		b.WriteString(" on " + p.Day.String())
	}
	b.WriteString(": " + p.Message)
	return b.String()
}

func quote(s string) string { return `"` + s + `"` }

// ValidationError lists every problem found in an Input.
type ValidationError struct {
	Problems []Problem `json:"problems"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.String()
	}
	return ErrInvalidInput.Error() + ": " + strings.Join(msgs, "; ")
}

// Is matches ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

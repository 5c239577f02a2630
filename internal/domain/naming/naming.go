// Package naming derives unique solver variable identifiers from
// (product, day, kind) triples and resolves them back.
package naming

import (
	"fmt"
	"strings"

	"github.com/okian/prodplan/internal/domain/solver"
	"github.com/okian/prodplan/internal/domain/week"
	"golang.org/x/text/cases"
)

const separator = "_"

// Kind is the role a decision variable plays for one product on one day.
type Kind int

// Variable kinds. The set is closed; a variable has exactly one kind.
const (
	Regular Kind = iota
	Overtime
	Excess
)

// Kinds returns every kind in declaration order.
func Kinds() []Kind {
	return []Kind{Regular, Overtime, Excess}
}

func (k Kind) String() string {
	switch k {
	case Regular:
		return "reg"
	case Overtime:
		return "ot"
	case Excess:
		return "exc"
	default:
		return fmt.Sprintf("kind%d", int(k))
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Key identifies one decision variable.
type Key struct {
	Product string
	Day     week.Day
	Kind    Kind
}

// ID returns the variable identifier for k.
func (k Key) ID() string {
	return VariableID(k.Product, k.Day, k.Kind)
}

// Normalize returns the lookup form of a product name: trimmed and case-folded.
func Normalize(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// VariableID returns "<normalized product>_<kind>_<day>", e.g. "widget_ot_tue".
// The suffix has a fixed shape, so distinct triples never share an identifier
// even when product names contain the separator.
func VariableID(product string, day week.Day, kind Kind) string {
	return Normalize(product) + separator + kind.String() + separator + day.Abbrev()
}

// ParseVariableID splits an identifier produced by VariableID. The returned
// Key carries the normalized product name.
func ParseVariableID(id string) (Key, error) {
	daySep := strings.LastIndex(id, separator)
	if daySep <= 0 {
		return Key{}, fmt.Errorf("%w: %q", ErrMalformedID, id)
	}
	kindSep := strings.LastIndex(id[:daySep], separator)
	if kindSep <= 0 {
		return Key{}, fmt.Errorf("%w: %q", ErrMalformedID, id)
	}

	day, err := week.ParseDay(id[daySep+1:])
	if err != nil {
		return Key{}, fmt.Errorf("%w: %q: %w", ErrMalformedID, id, err)
	}
	kind, err := ParseKind(id[kindSep+1 : daySep])
	if err != nil {
		return Key{}, fmt.Errorf("%w: %q: %w", ErrMalformedID, id, err)
	}
	return Key{Product: id[:kindSep], Day: day, Kind: kind}, nil
}

// Table maps variable identifiers to engine handles for a single build.
// It is not safe for concurrent use and must not be shared across builds.
type Table struct {
	vars  map[string]solver.Var
	order []string
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{vars: make(map[string]solver.Var)}
}

// Register records the handle for key. Registering the same identifier twice fails.
func (t *Table) Register(key Key, v solver.Var) error {
	id := key.ID()
	if _, ok := t.vars[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	t.vars[id] = v
	t.order = append(t.order, id)
	return nil
}

// Lookup returns the handle for key.
func (t *Table) Lookup(key Key) (solver.Var, bool) {
	v, ok := t.vars[key.ID()]
	return v, ok
}

// MustLookup returns the handle for key and panics when it is missing.
// Builders use it for variables they registered themselves.
func (t *Table) MustLookup(key Key) solver.Var {
	v, ok := t.Lookup(key)
	if !ok {
		panic("naming: variable not registered: " + key.ID())
	}
	return v
}

// Len returns the number of registered variables.
func (t *Table) Len() int {
	return len(t.vars)
}

// IDs returns the registered identifiers in registration order.
func (t *Table) IDs() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

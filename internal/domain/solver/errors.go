package solver

import "errors"

// Sentinel errors shared by engine implementations.
var (
	ErrNotSolved       = errors.New("engine has no solution")
	ErrUnknownVariable = errors.New("unknown variable")
	ErrInvalidBounds   = errors.New("invalid variable bounds")
	ErrInvalidCoef     = errors.New("invalid coefficient")
)

package simplex

import "errors"

// Sentinel kinds for engine failures.
var (
	ErrInterrupted    = errors.New("branch and bound interrupted")
	ErrNodeLimit      = errors.New("node limit reached")
	ErrOverdetermined = errors.New("more rows than columns")
	ErrRelaxation     = errors.New("lp relaxation failed")
)

package workbook

import "errors"

// Error constants.
var (
	ErrNoSheet    = errors.New("workbook has no sheets")
	ErrCell       = errors.New("invalid cell")
	ErrNoProducts = errors.New("workbook lists no products")
	ErrNoOutput   = errors.New("no schedule to write")
)

package naming

import "errors"

// Sentinel kinds for naming errors.
var (
	ErrUnknownKind = errors.New("unknown variable kind")
	ErrMalformedID = errors.New("malformed variable id")
	ErrDuplicateID = errors.New("duplicate variable id")
)

package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidConfig    = errors.New("invalid configuration")

	// Knowledge-base validation
	ErrOutOfRangeCF     = errors.New("certainty factor must be between 0 and 1")
	ErrInvalidCondition = errors.New("invalid condition")
	ErrUnknownOperator  = errors.New("unknown operator")
	ErrEmptyQuery       = errors.New("empty query")
)

package condition

import (
	"errors"
	"fmt"

	"github.com/cognicore/shortliffe/pkg/shortliffe/internalerr"
)

var (
	errEmptyTarget  = fmt.Errorf("%w: empty fact name", internalerr.ErrInvalidCondition)
	errUnbalanced   = fmt.Errorf("%w: unbalanced parentheses", internalerr.ErrInvalidCondition)
	errMissingFact  = fmt.Errorf("%w: missing \"fact\"", internalerr.ErrInvalidCondition)
	errUnsupported  = fmt.Errorf("%w: expected a string or a mapping", internalerr.ErrInvalidCondition)
	errBadFactValue = fmt.Errorf("%w: \"fact\" must be a string or a list of strings", internalerr.ErrInvalidCondition)

	errUnknownOperatorType = fmt.Errorf("%w: operator must be a string", internalerr.ErrUnknownOperator)
)

// Error reports a condition entry that could not be turned into a node.
// It unwraps to internalerr.ErrInvalidCondition or internalerr.ErrUnknownOperator.
type Error struct {
	Entry any
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v (entry %#v)", e.Err, e.Entry)
}

func (e *Error) Unwrap() error { return e.Err }

// IsConditionError reports whether err came from condition parsing.
func IsConditionError(err error) bool {
	return errors.Is(err, internalerr.ErrInvalidCondition) || errors.Is(err, internalerr.ErrUnknownOperator)
}

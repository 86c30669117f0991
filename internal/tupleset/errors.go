package tupleset

import (
	"errors"
	"fmt"
)

// InvariantError reports an internal invariant breach in the tuple model.
//
// These are logic errors, not input errors: signature length mismatches,
// out-of-range stratum indexes, scores outside [0, 1]. They are raised as
// panics from value methods (Signature.Add) and returned from constructors.
type InvariantError struct {
	Op      string
	Message string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violation in %s: %s", e.Op, e.Message)
}

// Invariantf builds an InvariantError.
func Invariantf(op, format string, args ...any) *InvariantError {
	return &InvariantError{Op: op, Message: fmt.Sprintf(format, args...)}
}

// IsInvariantError reports whether err wraps an InvariantError.
func IsInvariantError(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}

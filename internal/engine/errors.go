package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/kwsearch/internal/tupleset"
)

// RuntimeError represents an error detected while answering a query.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Network is the canonical key of the affected network, if any.
	Network string

	// Block is the affected block, if any.
	Block string

	// Err is the underlying cause.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeJoinCandidateNotFound indicates two adjacent network nodes have
	// no FK in the schema graph.
	ErrCodeJoinCandidateNotFound RuntimeErrorCode = "JOIN_CANDIDATE_NOT_FOUND"

	// ErrCodeSQLExecution indicates the database rejected or failed a query.
	ErrCodeSQLExecution RuntimeErrorCode = "SQL_EXECUTION_FAILED"

	// ErrCodeInvariantViolation indicates a logic error in scoring or
	// stratification. Results can no longer be trusted.
	ErrCodeInvariantViolation RuntimeErrorCode = "INVARIANT_VIOLATION"

	// ErrCodeDeadlineExceeded indicates a block ran past its timeout.
	ErrCodeDeadlineExceeded RuntimeErrorCode = "DEADLINE_EXCEEDED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Block != "" {
		msg += fmt.Sprintf(" (block=%s)", e.Block)
	} else if e.Network != "" {
		msg += fmt.Sprintf(" (network=%s)", e.Network)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// JoinCandidateNotFoundError reports that a network edge has no matching
// FK between its two tables.
type JoinCandidateNotFoundError struct {
	FK     string
	Parent string
	Child  string
}

// Error implements the error interface.
func (e *JoinCandidateNotFoundError) Error() string {
	return fmt.Sprintf("no foreign key %q joins %s and %s", e.FK, e.Parent, e.Child)
}

// RuntimeError returns the error as a RuntimeError for uniform handling.
func (e *JoinCandidateNotFoundError) RuntimeError() *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeJoinCandidateNotFound,
		Message: e.Error(),
		Err:     e,
	}
}

// IsJoinNotFound returns true if err is a join-candidate-not-found error.
// Uses errors.As to handle wrapped errors.
func IsJoinNotFound(err error) bool {
	var je *JoinCandidateNotFoundError
	if errors.As(err, &je) {
		return true
	}
	return hasCode(err, ErrCodeJoinCandidateNotFound)
}

// IsInvariantViolation returns true if err reports a broken internal
// invariant, either as a RuntimeError or a raw tupleset.InvariantError.
func IsInvariantViolation(err error) bool {
	return hasCode(err, ErrCodeInvariantViolation) || tupleset.IsInvariantError(err)
}

// IsDeadlineExceeded returns true if a block ran past its timeout.
func IsDeadlineExceeded(err error) bool {
	return hasCode(err, ErrCodeDeadlineExceeded)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// invariantError wraps a model invariant breach.
func invariantError(err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInvariantViolation,
		Message: "score bounds no longer sound",
		Err:     err,
	}
}

// recoverInvariant converts a panicking *tupleset.InvariantError into an
// error. Other panics propagate.
func recoverInvariant(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	ie, ok := r.(*tupleset.InvariantError)
	if !ok {
		panic(r)
	}
	*errp = invariantError(ie)
}

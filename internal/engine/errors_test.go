package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kwsearch/internal/tupleset"
)

func TestRuntimeError_Error(t *testing.T) {
	err := &RuntimeError{
		Code:    ErrCodeSQLExecution,
		Message: "join failed",
		Block:   "b0",
		Network: "n0",
		Err:     errors.New("no such table: y"),
	}
	assert.Equal(t, "SQL_EXECUTION_FAILED: join failed (block=b0): no such table: y", err.Error())

	err.Block = ""
	assert.Equal(t, "SQL_EXECUTION_FAILED: join failed (network=n0): no such table: y", err.Error())
}

func TestErrorClassifiers(t *testing.T) {
	join := &JoinCandidateNotFoundError{FK: "y_x", Parent: "x", Child: "y"}
	inv := tupleset.Invariantf("test", "broken")

	assert.True(t, IsJoinNotFound(join))
	assert.True(t, IsJoinNotFound(fmt.Errorf("wrapped: %w", join.RuntimeError())))
	assert.False(t, IsJoinNotFound(inv))

	assert.True(t, IsInvariantViolation(inv))
	assert.True(t, IsInvariantViolation(invariantError(inv)))
	assert.False(t, IsInvariantViolation(join))

	deadline := &RuntimeError{Code: ErrCodeDeadlineExceeded, Err: context.DeadlineExceeded}
	assert.True(t, IsDeadlineExceeded(deadline))
	assert.True(t, errors.Is(deadline, context.DeadlineExceeded))
	assert.False(t, IsDeadlineExceeded(join))
}

func TestRecoverInvariant(t *testing.T) {
	run := func() (err error) {
		defer recoverInvariant(&err)
		panic(tupleset.Invariantf("test", "bound exceeded"))
	}
	err := run()
	require.Error(t, err)
	assert.True(t, IsInvariantViolation(err))

	assert.Panics(t, func() {
		var err error
		defer recoverInvariant(&err)
		panic("unrelated")
	})
}

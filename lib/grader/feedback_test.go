package grader_test

import (
	"errors"
	"testing"

	"github.com/database-playground/sqlgrader/lib/grader"
	"github.com/database-playground/sqlgrader/lib/sqlrunner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	t.Run("Correct", func(t *testing.T) {
		t.Parallel()

		reference := sqlrunner.Success(users())
		feedback := grader.Resolve(&reference, sqlrunner.Success(users()))

		assert.Equal(t, grader.VerdictCorrect, feedback.Verdict)
		assert.True(t, feedback.IsCorrect)
		assert.Equal(t, grader.MessageCorrect, feedback.MessageKey)
		assert.Nil(t, feedback.Mismatch)
	})

	t.Run("Incorrect", func(t *testing.T) {
		t.Parallel()

		reference := sqlrunner.Success(users())
		feedback := grader.Resolve(&reference, sqlrunner.Success())

		assert.Equal(t, grader.VerdictIncorrect, feedback.Verdict)
		assert.False(t, feedback.IsCorrect)
		assert.Equal(t, grader.MessageIncorrect, feedback.MessageKey)
		require.NotNil(t, feedback.Mismatch)
		assert.Equal(t, grader.MismatchResultCount, feedback.Mismatch.Kind)
	})

	t.Run("Unverifiable without reference", func(t *testing.T) {
		t.Parallel()

		feedback := grader.Resolve(nil, sqlrunner.Success(users()))

		assert.Equal(t, grader.VerdictUnverifiable, feedback.Verdict)
		assert.False(t, feedback.IsCorrect)
		assert.Equal(t, grader.MessageVerificationError, feedback.MessageKey)
	})

	t.Run("Unverifiable with failed reference", func(t *testing.T) {
		t.Parallel()

		reference := sqlrunner.Failure(errors.New("no such column: nope"))
		feedback := grader.Resolve(&reference, sqlrunner.Success())

		assert.Equal(t, grader.VerdictUnverifiable, feedback.Verdict)
		assert.NotEqual(t, grader.MessageIncorrect, feedback.MessageKey)
	})

	t.Run("Execution failed", func(t *testing.T) {
		t.Parallel()

		outcome := sqlrunner.Failure(errors.New(`near "SELEC": syntax error`))
		feedback := grader.ExecutionFailed(outcome.Err)

		assert.Equal(t, grader.VerdictExecutionFailed, feedback.Verdict)
		assert.False(t, feedback.IsCorrect)
		assert.Equal(t, grader.MessageQueryFailed, feedback.MessageKey)
		assert.Equal(t, `near "SELEC": syntax error`, feedback.Error)
	})
}

package grader_test

import (
	"context"
	"testing"

	"github.com/database-playground/sqlgrader/lib/exercise"
	"github.com/database-playground/sqlgrader/lib/grader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyDefaultCatalog(t *testing.T) {
	t.Parallel()

	catalog, err := exercise.Default()
	require.NoError(t, err)

	reports := grader.Verify(context.TODO(), catalog)
	require.Len(t, reports, catalog.Len())
	for _, report := range reports {
		assert.True(t, report.OK(), "%s: %s %s", report.ExerciseID, report.Problem, report.Err)
	}
	assert.NoError(t, grader.Failed(reports))
}

func TestVerifyFindsProblems(t *testing.T) {
	t.Parallel()

	base := exercise.Definition{
		Title:          "t",
		Task:           "t",
		Schema:         "CREATE TABLE t (v INT);",
		Seed:           "INSERT INTO t VALUES (1), (2);",
		ReferenceQuery: "SELECT v FROM t ORDER BY v;",
	}

	good := base
	good.ID = "good"

	badSchema := base
	badSchema.ID = "bad-schema"
	badSchema.Seed = "INSERT INTO nope VALUES (1);"

	badReference := base
	badReference.ID = "bad-reference"
	badReference.ReferenceQuery = "SELECT w FROM t;"

	unstable := base
	unstable.ID = "unstable"
	unstable.ReferenceQuery = "INSERT INTO t VALUES (3); SELECT count(*) FROM t;"

	catalog, err := exercise.NewCatalog([]exercise.Definition{good, badSchema, badReference, unstable})
	require.NoError(t, err)

	reports := grader.Verify(context.TODO(), catalog)
	require.Len(t, reports, 4)

	assert.True(t, reports[0].OK())
	assert.Equal(t, grader.ProblemInitialization, reports[1].Problem)
	assert.Equal(t, grader.ProblemReference, reports[2].Problem)
	assert.Contains(t, reports[2].Err, "no such column")
	assert.Equal(t, grader.ProblemSelfCheck, reports[3].Problem)

	err = grader.Failed(reports)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad-schema")
	assert.NotContains(t, err.Error(), "good:")
}

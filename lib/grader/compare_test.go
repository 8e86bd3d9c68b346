package grader_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/database-playground/sqlgrader/lib/grader"
	"github.com/database-playground/sqlgrader/lib/sqlrunner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func users() sqlrunner.QueryResult {
	return sqlrunner.QueryResult{
		Columns: []string{"id", "name"},
		Rows: [][]sqlrunner.Value{
			{sqlrunner.Int(1), sqlrunner.String("Alice")},
			{sqlrunner.Int(2), sqlrunner.String("Bob")},
		},
	}
}

func TestCompare(t *testing.T) {
	t.Parallel()

	failure := sqlrunner.Failure(errors.New("no such table: users"))

	for name, tc := range map[string]struct {
		user      sqlrunner.Outcome
		reference sqlrunner.Outcome
		want      grader.Mismatch
	}{
		"identical": {
			user:      sqlrunner.Success(users()),
			reference: sqlrunner.Success(users()),
			want:      grader.Mismatch{Kind: grader.MismatchNone},
		},
		"user failed": {
			user:      failure,
			reference: sqlrunner.Success(users()),
			want:      grader.Mismatch{Kind: grader.MismatchNotExecuted},
		},
		"reference failed": {
			user:      sqlrunner.Success(users()),
			reference: failure,
			want:      grader.Mismatch{Kind: grader.MismatchNotExecuted},
		},
		"both failed": {
			user:      failure,
			reference: failure,
			want:      grader.Mismatch{Kind: grader.MismatchNotExecuted},
		},
		"both without result sets": {
			user:      sqlrunner.Success(),
			reference: sqlrunner.Success(),
			want:      grader.Mismatch{Kind: grader.MismatchNone},
		},
		"user without result sets": {
			user:      sqlrunner.Success(),
			reference: sqlrunner.Success(users()),
			want:      grader.Mismatch{Kind: grader.MismatchResultCount},
		},
		"extra result set": {
			user:      sqlrunner.Success(users(), users()),
			reference: sqlrunner.Success(users()),
			want:      grader.Mismatch{Kind: grader.MismatchResultCount},
		},
		"only first result set is compared": {
			user: sqlrunner.Success(users(), sqlrunner.QueryResult{Columns: []string{"x"}}),
			reference: sqlrunner.Success(users(), sqlrunner.QueryResult{
				Columns: []string{"y"},
				Rows:    [][]sqlrunner.Value{{sqlrunner.Int(9)}},
			}),
			want: grader.Mismatch{Kind: grader.MismatchNone},
		},
		"column count": {
			user: sqlrunner.Success(sqlrunner.QueryResult{
				Columns: []string{"id"},
				Rows:    [][]sqlrunner.Value{{sqlrunner.Int(1)}, {sqlrunner.Int(2)}},
			}),
			reference: sqlrunner.Success(users()),
			want:      grader.Mismatch{Kind: grader.MismatchColumnCount},
		},
		"column names are case sensitive": {
			user: sqlrunner.Success(sqlrunner.QueryResult{
				Columns: []string{"id", "Name"},
				Rows:    users().Rows,
			}),
			reference: sqlrunner.Success(users()),
			want:      grader.Mismatch{Kind: grader.MismatchColumnName, Column: 1},
		},
		"column names are not trimmed": {
			user: sqlrunner.Success(sqlrunner.QueryResult{
				Columns: []string{"id ", "name"},
				Rows:    users().Rows,
			}),
			reference: sqlrunner.Success(users()),
			want:      grader.Mismatch{Kind: grader.MismatchColumnName, Column: 0},
		},
		"row count": {
			user: sqlrunner.Success(sqlrunner.QueryResult{
				Columns: []string{"id", "name"},
				Rows:    users().Rows[:1],
			}),
			reference: sqlrunner.Success(users()),
			want:      grader.Mismatch{Kind: grader.MismatchRowCount},
		},
		"ragged row": {
			user: sqlrunner.Success(sqlrunner.QueryResult{
				Columns: []string{"id", "name"},
				Rows: [][]sqlrunner.Value{
					{sqlrunner.Int(1), sqlrunner.String("Alice")},
					{sqlrunner.Int(2)},
				},
			}),
			reference: sqlrunner.Success(users()),
			want:      grader.Mismatch{Kind: grader.MismatchRowLength, Row: 1},
		},
		"single cell differs": {
			user: sqlrunner.Success(sqlrunner.QueryResult{
				Columns: []string{"id", "name"},
				Rows: [][]sqlrunner.Value{
					{sqlrunner.Int(1), sqlrunner.String("Alice")},
					{sqlrunner.Int(2), sqlrunner.String("Bobby")},
				},
			}),
			reference: sqlrunner.Success(users()),
			want:      grader.Mismatch{Kind: grader.MismatchCell, Row: 1, Column: 1},
		},
		"row order matters": {
			user: sqlrunner.Success(sqlrunner.QueryResult{
				Columns: []string{"id", "name"},
				Rows:    [][]sqlrunner.Value{users().Rows[1], users().Rows[0]},
			}),
			reference: sqlrunner.Success(users()),
			want:      grader.Mismatch{Kind: grader.MismatchCell, Row: 0, Column: 0},
		},
		"string is not number": {
			user: sqlrunner.Success(sqlrunner.QueryResult{
				Columns: []string{"v"},
				Rows:    [][]sqlrunner.Value{{sqlrunner.String("1")}},
			}),
			reference: sqlrunner.Success(sqlrunner.QueryResult{
				Columns: []string{"v"},
				Rows:    [][]sqlrunner.Value{{sqlrunner.Int(1)}},
			}),
			want: grader.Mismatch{Kind: grader.MismatchCell},
		},
		"null is only null": {
			user: sqlrunner.Success(sqlrunner.QueryResult{
				Columns: []string{"v"},
				Rows:    [][]sqlrunner.Value{{sqlrunner.Null()}},
			}),
			reference: sqlrunner.Success(sqlrunner.QueryResult{
				Columns: []string{"v"},
				Rows:    [][]sqlrunner.Value{{sqlrunner.String("")}},
			}),
			want: grader.Mismatch{Kind: grader.MismatchCell},
		},
		"numbers by value": {
			user: sqlrunner.Success(sqlrunner.QueryResult{
				Columns: []string{"v"},
				Rows:    [][]sqlrunner.Value{{sqlrunner.Float(2.0)}, {sqlrunner.Null()}},
			}),
			reference: sqlrunner.Success(sqlrunner.QueryResult{
				Columns: []string{"v"},
				Rows:    [][]sqlrunner.Value{{sqlrunner.Int(2)}, {sqlrunner.Null()}},
			}),
			want: grader.Mismatch{Kind: grader.MismatchNone},
		},
		"empty tables with same columns": {
			user:      sqlrunner.Success(sqlrunner.QueryResult{Columns: []string{"id"}, Rows: [][]sqlrunner.Value{}}),
			reference: sqlrunner.Success(sqlrunner.QueryResult{Columns: []string{"id"}, Rows: [][]sqlrunner.Value{}}),
			want:      grader.Mismatch{Kind: grader.MismatchNone},
		},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := grader.Compare(tc.user, tc.reference)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.want.Kind == grader.MismatchNone, grader.AreEquivalent(tc.user, tc.reference))
		})
	}
}

func TestMismatchString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "column_name at column 0", grader.Mismatch{Kind: grader.MismatchColumnName}.String())
	assert.Equal(t, "cell at row 2, column 1", grader.Mismatch{Kind: grader.MismatchCell, Row: 2, Column: 1}.String())
	assert.Equal(t, "row_count", grader.Mismatch{Kind: grader.MismatchRowCount}.String())
}

func TestMismatchJSON(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		mismatch grader.Mismatch
		want     string
	}{
		"column name at position 0": {grader.Mismatch{Kind: grader.MismatchColumnName}, `{"kind":"column_name","column":0}`},
		"cell in the first row":     {grader.Mismatch{Kind: grader.MismatchCell, Column: 1}, `{"kind":"cell","row":0,"column":1}`},
		"row length":                {grader.Mismatch{Kind: grader.MismatchRowLength}, `{"kind":"row_length","row":0}`},
		"no position":               {grader.Mismatch{Kind: grader.MismatchRowCount}, `{"kind":"row_count"}`},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := json.Marshal(tc.mismatch)
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(got))

			var decoded grader.Mismatch
			require.NoError(t, json.Unmarshal(got, &decoded))
			assert.Equal(t, tc.mismatch, decoded)
		})
	}
}

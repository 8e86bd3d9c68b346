// Package grader decides whether a submitted query is correct by comparing
// its result against the result of the exercise's reference query.
package grader

import (
	"encoding/json"
	"fmt"

	"github.com/database-playground/sqlgrader/lib/sqlrunner"
)

// MismatchKind names the first comparison step that failed.
type MismatchKind string

const (
	MismatchNone        MismatchKind = "none"
	MismatchNotExecuted MismatchKind = "not_executed"
	MismatchResultCount MismatchKind = "result_count"
	MismatchColumnCount MismatchKind = "column_count"
	MismatchColumnName  MismatchKind = "column_name"
	MismatchRowCount    MismatchKind = "row_count"
	MismatchRowLength   MismatchKind = "row_length"
	MismatchCell        MismatchKind = "cell"
)

// Mismatch describes why two outcomes are not equivalent. Row and Column
// are positions in the first result set and are only meaningful for the
// kinds that refer to them.
type Mismatch struct {
	Kind   MismatchKind `json:"kind"`
	Row    int          `json:"row"`
	Column int          `json:"column"`
}

// MarshalJSON writes row and column exactly for the kinds that carry
// them, so position 0 stays distinguishable from no position.
func (m Mismatch) MarshalJSON() ([]byte, error) {
	wire := struct {
		Kind   MismatchKind `json:"kind"`
		Row    *int         `json:"row,omitempty"`
		Column *int         `json:"column,omitempty"`
	}{Kind: m.Kind}

	switch m.Kind {
	case MismatchColumnName:
		wire.Column = &m.Column
	case MismatchRowLength:
		wire.Row = &m.Row
	case MismatchCell:
		wire.Row = &m.Row
		wire.Column = &m.Column
	}

	return json.Marshal(wire)
}

func (m Mismatch) String() string {
	switch m.Kind {
	case MismatchColumnName:
		return fmt.Sprintf("%s at column %d", m.Kind, m.Column)
	case MismatchRowLength:
		return fmt.Sprintf("%s at row %d", m.Kind, m.Row)
	case MismatchCell:
		return fmt.Sprintf("%s at row %d, column %d", m.Kind, m.Row, m.Column)
	default:
		return string(m.Kind)
	}
}

// AreEquivalent reports whether the user's outcome matches the reference.
func AreEquivalent(user, reference sqlrunner.Outcome) bool {
	return Compare(user, reference).Kind == MismatchNone
}

// Compare checks the two outcomes for strict, order-sensitive equality
// and returns the first difference found.
//
// A failed outcome never matches. Two outcomes without any result set
// match. Otherwise both must hold the same number of result sets and
// only the first one of each is compared: column names in order, then
// every row cell by cell.
func Compare(user, reference sqlrunner.Outcome) Mismatch {
	if user.Failed() || reference.Failed() {
		return Mismatch{Kind: MismatchNotExecuted}
	}

	if len(user.Results) == 0 && len(reference.Results) == 0 {
		return Mismatch{Kind: MismatchNone}
	}
	if len(user.Results) != len(reference.Results) {
		return Mismatch{Kind: MismatchResultCount}
	}

	got, want := user.Results[0], reference.Results[0]

	if len(got.Columns) != len(want.Columns) {
		return Mismatch{Kind: MismatchColumnCount}
	}
	for i := range got.Columns {
		if got.Columns[i] != want.Columns[i] {
			return Mismatch{Kind: MismatchColumnName, Column: i}
		}
	}

	if len(got.Rows) != len(want.Rows) {
		return Mismatch{Kind: MismatchRowCount}
	}
	for r := range got.Rows {
		if len(got.Rows[r]) != len(want.Rows[r]) {
			return Mismatch{Kind: MismatchRowLength, Row: r}
		}
		for c := range got.Rows[r] {
			if !got.Rows[r][c].Equal(want.Rows[r][c]) {
				return Mismatch{Kind: MismatchCell, Row: r, Column: c}
			}
		}
	}

	return Mismatch{Kind: MismatchNone}
}

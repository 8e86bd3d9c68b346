package sqlrunner

import "fmt"

// Stage names the initialization script that failed to apply.
type Stage string

const (
	StageSchema Stage = "schema"
	StageSeed   Stage = "seed"
)

// InitializationError is returned when the schema or seed script
// could not be applied to a fresh database.
type InitializationError struct {
	Stage  Stage
	Parent error
}

// QueryError is returned when a submitted script fails.
// Parent carries the engine error untouched.
type QueryError struct {
	Parent error
}

func NewInitializationError(stage Stage, err error) error {
	return InitializationError{Stage: stage, Parent: err}
}

func NewQueryError(err error) *QueryError {
	return &QueryError{Parent: err}
}

func (e InitializationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Stage, e.Parent.Error())
}

func (e InitializationError) Unwrap() error {
	return e.Parent
}

func (e *QueryError) Error() string {
	return "query error: " + e.Parent.Error()
}

func (e *QueryError) Unwrap() error {
	return e.Parent
}

// Message returns the engine's error message verbatim.
func (e *QueryError) Message() string {
	return e.Parent.Error()
}

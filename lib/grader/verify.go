package grader

import (
	"context"
	"errors"

	"github.com/database-playground/sqlgrader/lib/exercise"
)

// Report is the result of checking one exercise's content.
type Report struct {
	ExerciseID string `json:"exercise_id"`
	// Problem is empty when the exercise is usable and self-consistent.
	Problem string `json:"problem,omitempty"`
	Err     string `json:"error,omitempty"`
}

func (r Report) OK() bool {
	return r.Problem == ""
}

const (
	ProblemInitialization = "initialization_error"
	ProblemReference      = "reference_unavailable"
	ProblemSelfCheck      = "reference_not_self_consistent"
)

// Verify starts a session for every exercise in the catalog and grades
// the reference query against itself. It catches broken schema or seed
// scripts, reference queries that do not run, and references whose
// output is not deterministic enough to grade.
func Verify(ctx context.Context, catalog *exercise.Catalog) []Report {
	ctx, span := tracer.Start(ctx, "grader.Verify")
	defer span.End()

	reports := make([]Report, 0, catalog.Len())
	for _, def := range catalog.List() {
		reports = append(reports, verifyOne(ctx, def))
	}

	return reports
}

func verifyOne(ctx context.Context, def exercise.Definition) Report {
	report := Report{ExerciseID: def.ID}

	session, err := Start(ctx, def)
	if err != nil {
		report.Problem = ProblemInitialization
		report.Err = err.Error()
		return report
	}
	defer func() { _ = session.Close() }()

	if !session.ReferenceAvailable() {
		report.Problem = ProblemReference
		report.Err = session.ReferenceError().Error()
		return report
	}

	submission, err := session.Run(ctx, def.ReferenceQuery)
	if err != nil {
		report.Problem = ProblemSelfCheck
		report.Err = err.Error()
		return report
	}
	if submission.Feedback.Verdict != VerdictCorrect {
		report.Problem = ProblemSelfCheck
		if submission.Feedback.Mismatch != nil {
			report.Err = submission.Feedback.Mismatch.String()
		} else {
			report.Err = submission.Feedback.Error
		}
	}

	return report
}

// Failed returns the reports describing broken exercises, joined as an
// error, or nil when every exercise passed.
func Failed(reports []Report) error {
	var errs []error
	for _, r := range reports {
		if !r.OK() {
			errs = append(errs, errors.New(r.ExerciseID+": "+r.Problem+": "+r.Err))
		}
	}
	return errors.Join(errs...)
}

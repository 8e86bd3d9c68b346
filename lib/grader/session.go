package grader

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/database-playground/sqlgrader/lib/exercise"
	"github.com/database-playground/sqlgrader/lib/sqlrunner"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("sqlgrader/grader")

// ErrSessionClosed is returned by Run after Close.
var ErrSessionClosed = errors.New("session closed")

// Session is the grading state of one exercise view: its own database
// plus the reference outcome computed once when the session started.
type Session struct {
	exercise exercise.Definition

	mu        sync.Mutex
	db        *sqlrunner.Database
	reference *sqlrunner.Outcome
	// referenceErr is kept for diagnostics when the reference query failed.
	referenceErr *sqlrunner.QueryError
	closed       bool
}

// Submission is the outcome of running a user query plus its grade.
type Submission struct {
	Outcome  sqlrunner.Outcome
	Feedback Feedback
}

// Start creates the session database from the exercise's schema and seed
// and runs the reference query against it. Failing to set up the database
// returns the sqlrunner.InitializationError. A failing reference query
// does not: the session stays usable, but nothing it grades can be
// correct.
func Start(ctx context.Context, def exercise.Definition) (*Session, error) {
	ctx, span := tracer.Start(ctx, "grader.Start")
	defer span.End()
	span.SetAttributes(attribute.String("exercise.id", def.ID))

	db, err := sqlrunner.Open(ctx, def.Schema, def.Seed)
	if err != nil {
		span.SetStatus(codes.Error, "initialization error")
		span.RecordError(err)
		return nil, err
	}

	s := &Session{exercise: def, db: db}

	span.AddEvent("reference.run")
	outcome := db.Execute(ctx, def.ReferenceQuery)
	if outcome.Failed() {
		s.referenceErr = outcome.Err
		span.AddEvent("reference.unavailable")
		slog.WarnContext(ctx, "reference query failed; submissions cannot be verified",
			slog.String("exercise", def.ID),
			slog.Any("error", outcome.Err))
	} else {
		s.reference = &outcome
	}

	return s, nil
}

// Exercise returns the definition the session was started from.
func (s *Session) Exercise() exercise.Definition {
	return s.exercise
}

// ReferenceAvailable reports whether submissions can be verified.
func (s *Session) ReferenceAvailable() bool {
	return s.reference != nil
}

// ReferenceError returns why the reference query failed, if it did.
func (s *Session) ReferenceError() error {
	if s.referenceErr == nil {
		return nil
	}
	return s.referenceErr
}

// Run executes query against the session database and grades it.
// Execution failures are reported as VerdictExecutionFailed.
func (s *Session) Run(ctx context.Context, query string) (Submission, error) {
	ctx, span := tracer.Start(ctx, "grader.Run")
	defer span.End()
	span.SetAttributes(attribute.String("exercise.id", s.exercise.ID))

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Submission{}, ErrSessionClosed
	}

	outcome := s.db.Execute(ctx, query)
	if outcome.Failed() {
		span.SetAttributes(attribute.String("grader.verdict", string(VerdictExecutionFailed)))
		return Submission{Outcome: outcome, Feedback: ExecutionFailed(outcome.Err)}, nil
	}

	feedback := Resolve(s.reference, outcome)
	span.SetAttributes(attribute.String("grader.verdict", string(feedback.Verdict)))

	return Submission{Outcome: outcome, Feedback: feedback}, nil
}

// Close destroys the session database.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	return s.db.Close()
}

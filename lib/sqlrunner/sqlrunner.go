// Package sqlrunner owns the ephemeral SQLite databases that exercises
// run against: one in-memory database per session, seeded from a schema
// and a seed script, executing arbitrary user scripts.
package sqlrunner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	_ "modernc.org/sqlite"
)

var tracer = otel.Tracer("sqlgrader/sqlrunner")

// Database is a single in-memory SQLite database.
//
// An in-memory database lives exactly as long as its connection, so the
// pool is capped at one connection and that connection stays checked out
// until Close.
type Database struct {
	db   *sql.DB
	conn *sql.Conn

	closeOnce sync.Once
	closeErr  error
}

// Open creates a fresh database and applies schema, then seed.
// Either script failing yields an InitializationError.
func Open(ctx context.Context, schema, seed string) (*Database, error) {
	ctx, span := tracer.Start(ctx, "sqlrunner.Open")
	defer span.End()

	span.AddEvent("sqlite.open")
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		span.SetStatus(codes.Error, "open")
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		span.SetStatus(codes.Error, "connect")
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	d := &Database{db: db, conn: conn}

	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
		d.closeQuietly(ctx)
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	span.AddEvent("apply.schema")
	if err := d.apply(ctx, schema); err != nil {
		d.closeQuietly(ctx)
		span.SetStatus(codes.Error, "schema")
		span.RecordError(err)
		return nil, NewInitializationError(StageSchema, err)
	}

	span.AddEvent("apply.seed")
	if err := d.apply(ctx, seed); err != nil {
		d.closeQuietly(ctx)
		span.SetStatus(codes.Error, "seed")
		span.RecordError(err)
		return nil, NewInitializationError(StageSeed, err)
	}

	return d, nil
}

func (d *Database) apply(ctx context.Context, script string) error {
	for _, stmt := range SplitStatements(script) {
		if _, err := d.conn.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Execute runs every statement of script in order. A result set is
// collected for each statement that produced at least one row; DDL, plain
// DML and selects matching nothing contribute none. The first failing
// statement stops the script and its engine error is returned as the
// Failure.
func (d *Database) Execute(ctx context.Context, script string) Outcome {
	ctx, span := tracer.Start(ctx, "sqlrunner.Execute")
	defer span.End()

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, "context")
		return Failure(err)
	}

	statements := SplitStatements(script)
	span.SetAttributes(attribute.Int("sql.statements", len(statements)))

	results := []QueryResult{}
	for idx, stmt := range statements {
		span.AddEvent("sqlite.query", trace.WithAttributes(attribute.Int("sql.statement_index", idx)))

		result, ok, err := d.query(ctx, stmt)
		if err != nil {
			span.SetStatus(codes.Error, "query error")
			span.RecordError(err)
			return Failure(err)
		}
		if ok {
			results = append(results, result)
		}
	}

	span.SetStatus(codes.Ok, "success")
	return Success(results...)
}

// query runs a single statement. ok is false when the statement yielded
// no rows.
func (d *Database) query(ctx context.Context, stmt string) (result QueryResult, ok bool, err error) {
	rows, err := d.conn.QueryContext(ctx, stmt)
	if err != nil {
		return QueryResult{}, false, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.WarnContext(ctx, "close rows", slog.Any("error", closeErr))
		}
	}()

	cols, err := rows.Columns()
	if err != nil {
		return QueryResult{}, false, err
	}

	values := [][]Value{}
	for rows.Next() {
		scanners := make([]any, len(cols))
		for i := range scanners {
			scanners[i] = &CellScanner{}
		}

		if err := rows.Scan(scanners...); err != nil {
			return QueryResult{}, false, err
		}

		row := make([]Value, len(cols))
		for i, cell := range scanners {
			row[i] = cell.(*CellScanner).Value()
		}
		values = append(values, row)
	}
	if err := rows.Err(); err != nil {
		return QueryResult{}, false, err
	}

	if len(cols) == 0 || len(values) == 0 {
		return QueryResult{}, false, nil
	}

	return QueryResult{Columns: cols, Rows: values}, true, nil
}

// Close releases the database. Calling it more than once is harmless.
func (d *Database) Close() error {
	d.closeOnce.Do(func() {
		d.closeErr = errors.Join(d.conn.Close(), d.db.Close())
	})
	return d.closeErr
}

func (d *Database) closeQuietly(ctx context.Context) {
	if err := d.Close(); err != nil {
		slog.WarnContext(ctx, "close sqlite", slog.Any("error", err))
	}
}

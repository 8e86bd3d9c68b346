package grader

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/database-playground/sqlgrader/lib/exercise"
	"github.com/database-playground/sqlgrader/lib/sqlrunner"
)

// ExpectedCache serves the reference outcome of exercises for display
// ("show expected output"). Each miss builds a throwaway database;
// concurrent misses for the same exercise share one build.
type ExpectedCache struct {
	cache   *lru.Cache[string, sqlrunner.Outcome]
	group   singleflight.Group
	timeout time.Duration
}

// NewExpectedCache keeps up to size outcomes. A build that takes longer
// than timeout fails without being cached.
func NewExpectedCache(size int, timeout time.Duration) (*ExpectedCache, error) {
	if timeout <= 0 {
		return nil, errors.New("expected cache timeout must be positive")
	}

	cache, err := lru.New[string, sqlrunner.Outcome](size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}

	return &ExpectedCache{cache: cache, timeout: timeout}, nil
}

// Expected returns the reference outcome of def. A failing reference
// query is returned as a failed Outcome and cached like any other, since
// exercise content does not change while the process runs.
//
// The build is detached from ctx: a caller giving up does not fail the
// build for the other callers waiting on it. A build running out of time
// is reported as an error wrapping context.DeadlineExceeded, never as a
// failed Outcome.
func (c *ExpectedCache) Expected(ctx context.Context, def exercise.Definition) (sqlrunner.Outcome, error) {
	ctx, span := tracer.Start(ctx, "ExpectedCache.Expected")
	defer span.End()

	key := contentKey(def)

	span.AddEvent("cache.get")
	if outcome, ok := c.cache.Get(key); ok {
		span.AddEvent("cache.hit")
		return outcome, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		buildCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		return c.build(buildCtx, key, def)
	})

	select {
	case <-ctx.Done():
		return sqlrunner.Outcome{}, ctx.Err()
	case result := <-ch:
		if result.Err != nil {
			return sqlrunner.Outcome{}, result.Err
		}
		return result.Val.(sqlrunner.Outcome), nil
	}
}

func (c *ExpectedCache) build(ctx context.Context, key string, def exercise.Definition) (sqlrunner.Outcome, error) {
	db, err := sqlrunner.Open(ctx, def.Schema, def.Seed)
	if err != nil {
		if ctx.Err() != nil {
			return sqlrunner.Outcome{}, fmt.Errorf("build expected output: %w", ctx.Err())
		}
		return sqlrunner.Outcome{}, err
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.WarnContext(ctx, "close expected database", slog.Any("error", err))
		}
	}()

	outcome := db.Execute(ctx, def.ReferenceQuery)
	if outcome.Failed() && ctx.Err() != nil {
		// Running out of time says nothing about the content.
		return sqlrunner.Outcome{}, fmt.Errorf("build expected output: %w", ctx.Err())
	}

	c.cache.Add(key, outcome)
	return outcome, nil
}

// contentKey identifies the exercise content, so an edited catalog
// served under the same ID never hits a stale entry.
func contentKey(def exercise.Definition) string {
	h := sha1.New()
	for _, part := range []string{def.ID, def.Schema, def.Seed, def.ReferenceQuery} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Package sessions keeps the live grading sessions of the HTTP service.
//
// Sessions are bounded in number and lifetime: the least recently
// started session is evicted when the registry is full, and every session
// expires a fixed time after it started. Eviction closes the session's
// database.
package sessions

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/database-playground/sqlgrader/lib/exercise"
	"github.com/database-playground/sqlgrader/lib/grader"
)

var ErrSessionNotFound = errors.New("session not found")

// Registry maps session IDs to grading sessions.
type Registry struct {
	sessions *expirable.LRU[string, *grader.Session]
}

func New(size int, ttl time.Duration) (*Registry, error) {
	if size <= 0 {
		return nil, errors.New("registry size must be positive")
	}
	if ttl <= 0 {
		return nil, errors.New("session ttl must be positive")
	}

	// onEvict runs under the LRU's lock, while Close waits for a running
	// query to finish, so closing happens on its own goroutine.
	onEvict := func(id string, session *grader.Session) {
		go closeSession(id, session)
	}

	return &Registry{
		sessions: expirable.NewLRU[string, *grader.Session](size, onEvict, ttl),
	}, nil
}

// Start creates a session for def and registers it under a new ID.
func (r *Registry) Start(ctx context.Context, def exercise.Definition) (string, *grader.Session, error) {
	session, err := grader.Start(ctx, def)
	if err != nil {
		return "", nil, err
	}

	id := uuid.NewString()
	r.sessions.Add(id, session)

	return id, session, nil
}

// Get returns the session registered under id.
func (r *Registry) Get(id string) (*grader.Session, error) {
	session, ok := r.sessions.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Delete closes and forgets the session. It reports whether it existed.
// The session is closed by the time Delete returns.
func (r *Registry) Delete(id string) bool {
	session, ok := r.sessions.Peek(id)
	if !ok || !r.sessions.Remove(id) {
		return false
	}

	closeSession(id, session)
	return true
}

func (r *Registry) Len() int {
	return r.sessions.Len()
}

// Close closes every registered session and waits for them to close.
func (r *Registry) Close() {
	live := make(map[string]*grader.Session)
	for _, id := range r.sessions.Keys() {
		if session, ok := r.sessions.Peek(id); ok {
			live[id] = session
		}
	}
	r.sessions.Purge()

	for id, session := range live {
		closeSession(id, session)
	}
}

func closeSession(id string, session *grader.Session) {
	if err := session.Close(); err != nil {
		slog.Warn("close evicted session", slog.String("session", id), slog.Any("error", err))
		return
	}
	slog.Debug("session closed", slog.String("session", id), slog.String("exercise", session.Exercise().ID))
}

package main

import (
	"context"
	"errors"

	"github.com/database-playground/sqlgrader/lib/exercise"
	"github.com/database-playground/sqlgrader/lib/sessions"
	"github.com/database-playground/sqlgrader/lib/sqlrunner"
)

type Response struct {
	Success bool `json:"success"`

	Data    any     `json:"data,omitempty"`    // success = true
	Message *string `json:"message,omitempty"` // success = false
	Code    *string `json:"code,omitempty"`    // success = false
}

type BadPayloadError struct {
	Parent error
}

// ReferenceUnavailableError is returned when an exercise's reference
// query does not run, which is a content bug.
type ReferenceUnavailableError struct {
	Parent error
}

func NewSuccessResponse(data any) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

func NewFailedResponse(err error) Response {
	var badPayloadError BadPayloadError
	var initError sqlrunner.InitializationError
	var queryError *sqlrunner.QueryError
	var referenceError ReferenceUnavailableError

	var code string
	var message string

	switch {
	case errors.As(err, &badPayloadError):
		code = "BAD_PAYLOAD"
		message = badPayloadError.Parent.Error()
	case errors.As(err, &initError):
		code = "INITIALIZATION_ERROR"
		message = initError.Error()
	case errors.As(err, &referenceError):
		code = "REFERENCE_UNAVAILABLE"
		message = referenceError.Parent.Error()
	case errors.As(err, &queryError):
		code = "QUERY_ERROR"
		message = queryError.Message()
	case errors.Is(err, context.DeadlineExceeded):
		code = "TIMEOUT"
		message = err.Error()
	case errors.Is(err, exercise.ErrExerciseNotFound), errors.Is(err, sessions.ErrSessionNotFound):
		code = "NOT_FOUND"
		message = err.Error()
	default:
		code = "INTERNAL_ERROR"
		message = err.Error()
	}

	return Response{
		Success: false,
		Message: &message,
		Code:    &code,
	}
}

func NewBadPayloadError(message string) BadPayloadError {
	return BadPayloadError{Parent: errors.New(message)}
}

func (e BadPayloadError) Error() string {
	return "bad payload: " + e.Parent.Error()
}

func (e ReferenceUnavailableError) Error() string {
	return "reference unavailable: " + e.Parent.Error()
}

package apperror

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure categories the service distinguishes.
//
// Note what is NOT here: user code failing to compile, exiting nonzero, or
// crashing. Those are ordinary data carried inside an outcome struct. These
// sentinels cover failures of the service itself — bad requests, missing
// resources, a broken environment (compiler or sandbox gone), admission
// rejection, and internal faults.
var (
	ErrNotFound    = errors.New("not found")
	ErrValidation  = errors.New("validation error")
	ErrUnavailable = errors.New("environment unavailable")
	ErrTooBusy     = errors.New("too busy")
	ErrForbidden   = errors.New("forbidden")
)

type AppError struct {
	Err     error  // sentinel category, matched with errors.Is
	Message string // human-readable error message
	Field   string // optional: request field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Unavailable reports a configuration or environment failure — compiler
// binary missing, sandbox backend unreachable. Kept distinct from user code
// errors so the HTTP layer answers 503 instead of blaming the submitted
// program.
func Unavailable(message string) *AppError {
	return &AppError{
		Err:     ErrUnavailable,
		Message: message,
	}
}

// TooBusy reports that the engine's admission limit on concurrent
// compile+execute sessions has been reached.
func TooBusy(message string) *AppError {
	return &AppError{
		Err:     ErrTooBusy,
		Message: message,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

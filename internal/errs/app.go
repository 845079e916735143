package errs

import (
	"errors"
	"fmt"
	"time"
)

// RateLimitError is ErrRateLimited with a known retry delay.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter.Round(time.Second))
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// Validation returns an error wrapping ErrValidation with the given message.
func Validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// Category is the coarse class of an AppError.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryAPI
	CategoryValidation
	CategoryPersistence
)

func (c Category) String() string {
	switch c {
	case CategoryAPI:
		return "api"
	case CategoryValidation:
		return "validation"
	case CategoryPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// AppError is the single error surface handed to the presentation layer.
type AppError struct {
	Category Category
	Message  string
	Err      error
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Category.String() + " error"
}

func (e *AppError) Unwrap() error { return e.Err }

// recoverable is implemented by typed transport errors.
type recoverable interface {
	error
	IsRecoverable() bool
	Suggestion() string
}

// IsRecoverable reports whether retrying the failed action makes sense.
func (e *AppError) IsRecoverable() bool {
	var r recoverable
	if e.Category == CategoryAPI && errors.As(e.Err, &r) {
		return r.IsRecoverable()
	}
	return false
}

// Suggestion returns a remediation hint, if any.
func (e *AppError) Suggestion() string {
	var r recoverable
	if errors.As(e.Err, &r) {
		return r.Suggestion()
	}
	if e.Category == CategoryValidation {
		return "Check the highlighted fields and try again."
	}
	return ""
}

// Persistence wraps a local storage failure.
func Persistence(err error) *AppError {
	return &AppError{Category: CategoryPersistence, Message: "local storage failure: " + err.Error(), Err: err}
}

// Wrap classifies err into an AppError. Nil stays nil.
func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	var app *AppError
	if errors.As(err, &app) {
		return app
	}
	var r recoverable
	switch {
	case errors.As(err, &r):
		return &AppError{Category: CategoryAPI, Message: r.Error(), Err: err}
	case errors.Is(err, ErrValidation):
		return &AppError{Category: CategoryValidation, Message: err.Error(), Err: err}
	default:
		return &AppError{Category: CategoryUnknown, Message: err.Error(), Err: err}
	}
}

// Package apperror defines the error taxonomy shared by the store, the
// resolver and the API layer.
//
// Every caller-visible failure is an *AppError that wraps one of the sentinel
// errors below. Callers branch with errors.Is, never by matching messages:
//
//	if errors.Is(err, apperror.ErrUserAlreadyExists) { ... }
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")

	// ErrDuplicateEmail is raised by the store when the email UNIQUE
	// constraint rejects an insert.
	ErrDuplicateEmail = errors.New("duplicate email")

	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
)

type AppError struct {
	Err     error  // sentinel
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
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

// UserNotFound is the NotFound flavour used when a lookup by email misses.
// The email is intentionally left out of the message.
func UserNotFound() *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: "user not found",
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func DuplicateEmail(email string) *AppError {
	return &AppError{
		Err:     ErrDuplicateEmail,
		Message: fmt.Sprintf("email %s is already registered", email),
		Field:   "email",
	}
}

func UserAlreadyExists() *AppError {
	return &AppError{
		Err:     ErrUserAlreadyExists,
		Message: "user already exists",
		Field:   "email",
	}
}

func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: "invalid credentials",
	}
}

// Unauthenticated is returned by operations that need an identity when the
// request carried none (or an invalid token).
func Unauthenticated() *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: "authentication required",
	}
}

package app

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated is returned when a request carries no usable session.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrInvalidCredentials is the parent of both login failures.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownEmail       = fmt.Errorf("%w: user not found", ErrInvalidCredentials)
	ErrWrongPassword      = fmt.Errorf("%w: incorrect password", ErrInvalidCredentials)

	ErrForbidden = errors.New("not authorized")
	ErrNotFound  = errors.New("not found")

	ErrConflict      = errors.New("conflict")
	ErrEmailTaken    = fmt.Errorf("%w: email already registered", ErrConflict)
	ErrUsernameTaken = fmt.Errorf("%w: username already in use", ErrConflict)

	// ErrValidation is wrapped with a field-level detail.
	ErrValidation = errors.New("invalid input")
	// ErrInvalidFile is returned when an upload is not a readable PDF.
	ErrInvalidFile = errors.New("uploaded file must be a PDF document")
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

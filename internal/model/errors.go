package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports an unknown session, question or profile.
	ErrNotFound = errors.New("not found")
	// ErrValidation reports malformed input to a public operation.
	ErrValidation = errors.New("validation failed")
	// ErrExternalService reports an unreachable or misbehaving generator/evaluator.
	ErrExternalService = errors.New("external service unavailable")
	// ErrInvalidTransition reports a rejected session status change.
	ErrInvalidTransition = fmt.Errorf("%w: invalid status transition", ErrValidation)
)

// Validationf builds an error that matches ErrValidation.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf builds an error that matches ErrNotFound.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

package services

import (
	"errors"

	"rally-backend/internal/repository"
)

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

// ConflictError is a request that breaks a business rule given current state.
// Details carries extra response fields such as the running session id.
type ConflictError struct {
	Message string
	Details map[string]string
}

func (e *ConflictError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type UnauthorizedError struct{ Message string }

func (e *UnauthorizedError) Error() string { return e.Message }

type ForbiddenError struct{ Message string }

func (e *ForbiddenError) Error() string { return e.Message }

type RateLimitError struct{ Message string }

func (e *RateLimitError) Error() string { return e.Message }

func invalid(field, message string) error {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}

func isConflict(err error) bool {
	return errors.Is(err, repository.ErrConflict)
}

// UnavailableError reports an optional backend that is not configured.
type UnavailableError struct{ Message string }

func (e *UnavailableError) Error() string { return e.Message }

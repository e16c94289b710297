package service

import (
	"errors"
	"fmt"

	"pantry/internal/repository"
)

var (
	ErrValidation  = errors.New("invalid input")
	ErrNotFound    = errors.New("item not found")
	ErrPersistence = errors.New("storage unavailable")
)

// ValidationError указывает поле, которое не прошло проверку
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// normalize maps store errors onto the service taxonomy; forbidden collapses into not found
func normalize(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrInvalidField):
		return invalid("patch", "id, owner, category and subcategory cannot be changed")
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	default:
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
}

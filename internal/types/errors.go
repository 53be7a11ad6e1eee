package locitypes

import (
	"errors"
	"fmt"
	"strings"
)

// Domain specific errors.
var (
	ErrNotFound        = errors.New("requested item not found")
	ErrConflict        = errors.New("item already exists or conflict")
	ErrUnauthenticated = errors.New("authentication required or invalid credentials")
	ErrForbidden       = errors.New("action forbidden")
	ErrBadRequest      = errors.New("bad request")
)

// Itinerary pipeline errors. These are the only ones meant to reach users verbatim.
var (
	ErrInvalidInput       = errors.New("invalid trip request")
	ErrInvalidDestination = errors.New("invalid destination")
	ErrPersistence        = errors.New("failed to save itinerary")
	ErrInvalidShareToken  = errors.New("this link is invalid")
)

// InputError describes a rejected trip request field by field.
type InputError struct {
	Fields map[string]string
}

func (e *InputError) Error() string {
	if len(e.Fields) == 0 {
		return ErrInvalidInput.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for field, reason := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, reason))
	}
	return fmt.Sprintf("%s: %s", ErrInvalidInput, strings.Join(parts, ", "))
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

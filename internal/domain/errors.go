package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrParse is returned when a document cannot be decoded.
	ErrParse = errors.New("invalid JSON file")
	// ErrValidation is returned when structural validation is enforced and fails.
	ErrValidation = errors.New("invalid pivot")
	// ErrIDConflict is returned when an id is already used by another pivot.
	ErrIDConflict = errors.New("pivot id already in use")
	// ErrEmptyID is returned when a pivot id would become empty.
	ErrEmptyID = errors.New("pivot id is empty")
	// ErrNotFound is returned when no pivot has the requested id.
	ErrNotFound = errors.New("pivot not found")
	// ErrInvalidJSON is returned when a free-form field is not valid JSON.
	ErrInvalidJSON = errors.New("value is not valid JSON")
)

// ParseError reports why a document could not be loaded.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse document: %v", e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}

// ValidationError lists the pivots that failed structural validation.
type ValidationError struct {
	IDs []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid pivots: %s", strings.Join(e.IDs, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// ConflictError carries the id that collided.
type ConflictError struct {
	ID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("pivot id %q already in use", e.ID)
}

func (e *ConflictError) Unwrap() error {
	return ErrIDConflict
}

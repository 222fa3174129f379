// Package entity defines the schema declarations read from the content API:
// collections, fields and relations, and the conversion of raw relation rows
// into the typed declarations the content mesh resolves.
package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors for schema declarations.
var (
	// ErrInvalidRelation indicates a relation declaration that cannot be resolved.
	ErrInvalidRelation = errors.New("invalid relation declaration")

	// ErrInvalidCollection indicates a collection declaration without a usable name.
	ErrInvalidCollection = errors.New("invalid collection declaration")
)

// ValidationError represents a validation error with detailed field information.
// It implements the error interface and provides context about which field failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

package entity

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		message  string
		expected string
	}{
		{
			name:     "required field",
			field:    "dest_field",
			message:  "required",
			expected: "validation error on field 'dest_field': required",
		},
		{
			name:     "empty field name",
			field:    "",
			message:  "test message",
			expected: "validation error on field '': test message",
		},
		{
			name:     "empty message",
			field:    "junction",
			message:  "",
			expected: "validation error on field 'junction': ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &ValidationError{
				Field:   tt.field,
				Message: tt.message,
			}

			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestValidationError_InErrorChain(t *testing.T) {
	base := &ValidationError{Field: "src_collection", Message: "required"}
	wrapped := fmt.Errorf("%w: %w", ErrInvalidRelation, base)

	var validationErr *ValidationError
	assert.True(t, errors.As(wrapped, &validationErr))
	assert.Equal(t, "src_collection", validationErr.Field)
	assert.True(t, errors.Is(wrapped, ErrInvalidRelation))
	assert.False(t, errors.Is(wrapped, ErrInvalidCollection))
}

package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_Error(t *testing.T) {
	assert.Equal(t, "validation failed: Email - must be a valid email", NewValidationError("Email", "must be a valid email").Error())
	assert.Equal(t, "validation failed: limit out of range", NewValidationError("", "limit out of range").Error())
}

func TestNotFoundError_Error(t *testing.T) {
	assert.Equal(t, "user not found", NewNotFoundError("user", "user not found").Error())
	assert.Equal(t, "user not found", NewNotFoundError("user", "").Error())
}

func TestAlreadyExistsError_Error(t *testing.T) {
	assert.Equal(t, "email already exists", NewAlreadyExistsError("user", "email already exists").Error())
	assert.Equal(t, "user already exists", NewAlreadyExistsError("user", "").Error())
}

func TestInternalError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewInternalError("failed to get user", cause)

	assert.Equal(t, "failed to get user: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "internal server error", ErrInternal.Error())
}

func TestKindHelpers(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		notFound      bool
		alreadyExists bool
		validation    bool
	}{
		{name: "not found", err: NewNotFoundError("user", "user not found"), notFound: true},
		{name: "wrapped not found", err: fmt.Errorf("get: %w", NewNotFoundError("user", "")), notFound: true},
		{name: "already exists", err: NewAlreadyExistsError("user", "email already exists"), alreadyExists: true},
		{name: "validation", err: NewValidationError("Name", "is required"), validation: true},
		{name: "internal", err: NewInternalError("boom", nil)},
		{name: "plain", err: errors.New("plain")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.notFound, IsNotFound(tt.err))
			assert.Equal(t, tt.alreadyExists, IsAlreadyExists(tt.err))
			assert.Equal(t, tt.validation, IsValidation(tt.err))
		})
	}
}

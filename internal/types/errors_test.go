package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	err := NewValidationError("pick a skill")
	assert.Equal(t, "pick a skill", err.Error())

	wrapped := NewSendError(errors.New("connection reset"))
	assert.Equal(t, "message could not be sent: connection reset", wrapped.Error())
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewSubmissionError(cause)
	assert.ErrorIs(t, err, cause)
}

func TestError_KindMatching(t *testing.T) {
	err := NewAccessDeniedError()
	assert.True(t, IsAccessDenied(err))
	assert.True(t, IsAccessDenied(fmt.Errorf("open conversation: %w", err)))

	assert.False(t, IsAccessDenied(NewTransientError(errors.New("timeout"))))
	assert.False(t, IsAccessDenied(errors.New("plain error")))
	assert.False(t, IsAccessDenied(nil))
}

func TestErrorKind_String(t *testing.T) {
	assert.Equal(t, "validation error", ErrValidation.String())
	assert.Equal(t, "access denied", ErrAccessDenied.String())
	assert.Equal(t, "unknown error", ErrorKind(99).String())
}

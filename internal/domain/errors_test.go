package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	assert.Equal(t, "Face not found", ErrFaceNotFound.Error())

	wrapped := ErrBackendUnavailable.WithError(errors.New("dial tcp: connection refused"))
	assert.Equal(t, "Face storage backend is unreachable: dial tcp: connection refused", wrapped.Error())
}

func TestAppError_WithError(t *testing.T) {
	cause := errors.New("load failed")
	wrapped := ErrModelUnavailable.WithError(cause)

	assert.Equal(t, ErrModelUnavailable.Code, wrapped.Code)
	assert.Equal(t, ErrModelUnavailable.StatusCode, wrapped.StatusCode)
	assert.Same(t, cause, wrapped.Unwrap())
	assert.Nil(t, ErrModelUnavailable.Err, "sentinel must stay untouched")
	assert.Nil(t, ErrModelUnavailable.Unwrap())
}

func TestAppError_Is(t *testing.T) {
	cause := errors.New("i/o timeout")

	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"sentinel itself", ErrRecognitionInFlight, ErrRecognitionInFlight, true},
		{"same code with cause", ErrBackendRejected.WithError(cause), ErrBackendRejected, true},
		{"through fmt wrapping", fmt.Errorf("enroll %q: %w", "Alice", ErrBackendRejected), ErrBackendRejected, true},
		{"cause reachable", ErrBackendUnavailable.WithError(cause), cause, true},
		{"different code", ErrModelUnavailable.WithError(cause), ErrInvalidRegion, false},
		{"backend errors stay distinct", ErrBackendUnavailable, ErrBackendRejected, false},
		{"plain error", cause, ErrInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestAppError_As(t *testing.T) {
	err := fmt.Errorf("remove %q: %w", "Bob", ErrFaceNotFound.WithError(errors.New("no rows")))

	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "FACE_NOT_FOUND", appErr.Code)
	assert.Equal(t, 404, appErr.StatusCode)
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		err        *AppError
		code       string
		statusCode int
	}{
		{ErrInternal, "INTERNAL_ERROR", 500},
		{ErrBadRequest, "BAD_REQUEST", 400},
		{ErrNotFound, "NOT_FOUND", 404},
		{ErrFaceNotFound, "FACE_NOT_FOUND", 404},
		{ErrInvalidImage, "INVALID_IMAGE", 422},
		{ErrRateLimitExceeded, "RATE_LIMIT_EXCEEDED", 429},
		{ErrValidationFailed, "VALIDATION_FAILED", 422},
		{ErrModelUnavailable, "MODEL_UNAVAILABLE", 503},
		{ErrInvalidRegion, "INVALID_REGION", 422},
		{ErrDegenerateEmbedding, "DEGENERATE_EMBEDDING", 422},
		{ErrNotUnitVector, "NOT_UNIT_VECTOR", 422},
		{ErrDimensionMismatch, "DIMENSION_MISMATCH", 422},
		{ErrNoSingleFace, "NO_SINGLE_FACE", 422},
		{ErrInvalidName, "INVALID_NAME", 422},
		{ErrBackendUnavailable, "BACKEND_UNAVAILABLE", 502},
		{ErrBackendRejected, "BACKEND_REJECTED", 502},
		{ErrNoFrameSource, "NO_FRAME_SOURCE", 400},
		{ErrRecognitionInFlight, "RECOGNITION_IN_FLIGHT", 409},
	}

	seen := make(map[string]bool)
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.statusCode, tt.err.StatusCode)
			assert.NotEmpty(t, tt.err.Message)
			assert.False(t, seen[tt.code], "duplicate code")
			seen[tt.code] = true
		})
	}
}

package domain

import (
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: 404,
	}

	ErrFaceNotFound = &AppError{
		Code:       "FACE_NOT_FOUND",
		Message:    "Face not found",
		StatusCode: 404,
	}

	ErrInvalidImage = &AppError{
		Code:       "INVALID_IMAGE",
		Message:    "Invalid image format or corrupted file",
		StatusCode: 422,
	}

	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Rate limit exceeded, please try again later",
		StatusCode: 429,
	}

	ErrValidationFailed = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Request validation failed",
		StatusCode: 422,
	}

	// Model lifecycle
	ErrModelUnavailable = &AppError{
		Code:       "MODEL_UNAVAILABLE",
		Message:    "Recognition models are not loaded",
		StatusCode: 503,
	}

	// Per-detection errors, recoverable
	ErrInvalidRegion = &AppError{
		Code:       "INVALID_REGION",
		Message:    "Detection box has no area inside the frame",
		StatusCode: 422,
	}

	ErrDegenerateEmbedding = &AppError{
		Code:       "DEGENERATE_EMBEDDING",
		Message:    "Embedding has zero norm",
		StatusCode: 422,
	}

	ErrNotUnitVector = &AppError{
		Code:       "NOT_UNIT_VECTOR",
		Message:    "Embedding is not normalized",
		StatusCode: 422,
	}

	ErrDimensionMismatch = &AppError{
		Code:       "DIMENSION_MISMATCH",
		Message:    "Embedding dimension does not match",
		StatusCode: 422,
	}

	// User input
	ErrNoSingleFace = &AppError{
		Code:       "NO_SINGLE_FACE",
		Message:    "Exactly one face must be visible to enroll",
		StatusCode: 422,
	}

	ErrInvalidName = &AppError{
		Code:       "INVALID_NAME",
		Message:    "Name must contain only letters, digits and spaces",
		StatusCode: 422,
	}

	// Backend collaborator
	ErrBackendUnavailable = &AppError{
		Code:       "BACKEND_UNAVAILABLE",
		Message:    "Face storage backend is unreachable",
		StatusCode: 502,
	}

	ErrBackendRejected = &AppError{
		Code:       "BACKEND_REJECTED",
		Message:    "Face storage backend rejected the request",
		StatusCode: 502,
	}

	ErrNoFrameSource = &AppError{
		Code:       "NO_FRAME_SOURCE",
		Message:    "No image supplied and no camera configured",
		StatusCode: 400,
	}

	ErrRecognitionInFlight = &AppError{
		Code:       "RECOGNITION_IN_FLIGHT",
		Message:    "A recognition is already running",
		StatusCode: 409,
	}
)

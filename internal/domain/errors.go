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

// Is matches any AppError carrying the same code, so errors.Is keeps working
// after WithError produced a copy.
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

	ErrValidationFailed = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Request validation failed",
		StatusCode: 422,
	}

	ErrInvalidImage = &AppError{
		Code:       "INVALID_IMAGE",
		Message:    "Invalid image format or corrupted file",
		StatusCode: 422,
	}

	ErrTooManyImages = &AppError{
		Code:       "TOO_MANY_IMAGES",
		Message:    "Too many probe images in a single request",
		StatusCode: 422,
	}

	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Rate limit exceeded",
		StatusCode: 429,
	}

	// Pipeline errors

	ErrNoValidProbe = &AppError{
		Code:       "NO_VALID_PROBE",
		Message:    "No usable face found in the submitted images",
		StatusCode: 422,
	}

	ErrShapeMismatch = &AppError{
		Code:       "SHAPE_MISMATCH",
		Message:    "Embedding dimension mismatch",
		StatusCode: 422,
	}

	ErrEmptyGallery = &AppError{
		Code:       "EMPTY_GALLERY",
		Message:    "Reference gallery is empty",
		StatusCode: 503,
	}

	ErrGalleryUnreadable = &AppError{
		Code:       "GALLERY_UNREADABLE",
		Message:    "Reference gallery could not be read",
		StatusCode: 503,
	}

	ErrProviderUnavailable = &AppError{
		Code:       "PROVIDER_UNAVAILABLE",
		Message:    "Embedding provider is unavailable",
		StatusCode: 503,
	}

	ErrResultNotFound = &AppError{
		Code:       "RESULT_NOT_FOUND",
		Message:    "No saved result available",
		StatusCode: 404,
	}
)

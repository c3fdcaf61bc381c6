package main

import (
	"errors"

	"github.com/saturnino-fabrica-de-software/lookalike/internal/domain"
)

// Process exit statuses
const (
	exitOK                  = 0
	exitUnexpected          = 1
	exitNoValidProbe        = 2
	exitGallery             = 3
	exitShapeMismatch       = 4
	exitProviderUnavailable = 5
	exitUsage               = 64
)

// usageError marks bad invocations (arguments, flags)
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var usage *usageError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &usage), errors.Is(err, domain.ErrTooManyImages):
		return exitUsage
	case errors.Is(err, domain.ErrNoValidProbe):
		return exitNoValidProbe
	case errors.Is(err, domain.ErrEmptyGallery), errors.Is(err, domain.ErrGalleryUnreadable):
		return exitGallery
	case errors.Is(err, domain.ErrShapeMismatch):
		return exitShapeMismatch
	case errors.Is(err, domain.ErrProviderUnavailable):
		return exitProviderUnavailable
	default:
		return exitUnexpected
	}
}

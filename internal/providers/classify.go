package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/enricharr/enricharr/internal/models"
)

// Error is a provider failure carrying its classification. Adapters return
// it for any failure they can attribute; everything else classifies unknown.
type Error struct {
	Class   models.ErrorClass
	Message string
}

func (e *Error) Error() string { return string(e.Class) + ": " + e.Message }

// NewError builds a classified provider error.
func NewError(class models.ErrorClass, message string) *Error {
	return &Error{Class: class, Message: message}
}

// ClassifyStatus maps an upstream HTTP status to the failure taxonomy.
func ClassifyStatus(status int) models.ErrorClass {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return models.ErrClassAuthError
	case status == http.StatusNotFound || status == http.StatusGone:
		return models.ErrClassNotFound
	case status == http.StatusTooManyRequests:
		return models.ErrClassRateLimited
	case status == http.StatusUnavailableForLegalReasons:
		return models.ErrClassRegionBlocked
	case status == http.StatusUnsupportedMediaType || status == http.StatusUnprocessableEntity:
		return models.ErrClassFormatError
	case status >= 500:
		return models.ErrClassUnavailable
	default:
		return models.ErrClassUnknown
	}
}

// Classify reduces any adapter error to its taxonomy class. Context deadline
// expiry always wins: the orchestrator treats the call as a timeout no
// matter what the adapter reported.
func Classify(err error) models.ErrorClass {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return models.ErrClassTimeout
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Class
	}
	return models.ErrClassUnknown
}

// statusError is a convenience for adapters bailing on a non-200 response.
func statusError(provider string, status int) *Error {
	return NewError(ClassifyStatus(status), provider+" returned "+http.StatusText(status))
}

package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/enricharr/enricharr/internal/models"
)

func TestClassifyStatus(t *testing.T) {
	cases := []struct {
		status int
		want   models.ErrorClass
	}{
		{http.StatusUnauthorized, models.ErrClassAuthError},
		{http.StatusForbidden, models.ErrClassAuthError},
		{http.StatusNotFound, models.ErrClassNotFound},
		{http.StatusGone, models.ErrClassNotFound},
		{http.StatusTooManyRequests, models.ErrClassRateLimited},
		{http.StatusUnavailableForLegalReasons, models.ErrClassRegionBlocked},
		{http.StatusUnsupportedMediaType, models.ErrClassFormatError},
		{http.StatusUnprocessableEntity, models.ErrClassFormatError},
		{http.StatusInternalServerError, models.ErrClassUnavailable},
		{http.StatusBadGateway, models.ErrClassUnavailable},
		{http.StatusTeapot, models.ErrClassUnknown},
	}
	for _, c := range cases {
		if got := ClassifyStatus(c.status); got != c.want {
			t.Errorf("ClassifyStatus(%d) = %q, want %q", c.status, got, c.want)
		}
	}
}

func TestClassify(t *testing.T) {
	if got := Classify(context.DeadlineExceeded); got != models.ErrClassTimeout {
		t.Errorf("deadline = %q", got)
	}
	if got := Classify(context.Canceled); got != models.ErrClassTimeout {
		t.Errorf("canceled = %q", got)
	}

	wrapped := fmt.Errorf("fetching poster: %w", NewError(models.ErrClassRateLimited, "slow down"))
	if got := Classify(wrapped); got != models.ErrClassRateLimited {
		t.Errorf("wrapped provider error = %q", got)
	}

	if got := Classify(errors.New("something else")); got != models.ErrClassUnknown {
		t.Errorf("opaque error = %q", got)
	}
}

func TestClassifyTimeoutWinsOverClassifiedError(t *testing.T) {
	// An adapter may wrap a classified error around a context failure; the
	// deadline still decides.
	err := fmt.Errorf("%w: %w", context.DeadlineExceeded, NewError(models.ErrClassUnavailable, "x"))
	if got := Classify(err); got != models.ErrClassTimeout {
		t.Errorf("got %q, want timeout", got)
	}
}

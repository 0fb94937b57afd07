package aggregator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/enricharr/enricharr/internal/models"
)

func probeCandidate(url string) *models.Candidate {
	return &models.Candidate{ID: uuid.New(), Capability: models.CapTrailer, Provider: "x", URL: url}
}

func TestVerifierProbeClassification(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		success bool
		class   models.ErrorClass
	}{
		{"ok", http.StatusOK, true, ""},
		{"gone", http.StatusNotFound, false, models.ErrClassUnavailable},
		{"throttled", http.StatusTooManyRequests, false, models.ErrClassRateLimited},
		{"geo blocked", http.StatusForbidden, false, models.ErrClassRegionBlocked},
		{"legal block", http.StatusUnavailableForLegalReasons, false, models.ErrClassRegionBlocked},
		{"bad media", http.StatusUnsupportedMediaType, false, models.ErrClassFormatError},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(c.status)
			}))
			defer srv.Close()

			v := NewVerifierWithClient(srv.Client())
			res := v.Test(context.Background(), probeCandidate(srv.URL))
			if res.Success != c.success {
				t.Fatalf("success = %v, want %v", res.Success, c.success)
			}
			if res.ErrorClass != c.class {
				t.Errorf("class = %q, want %q", res.ErrorClass, c.class)
			}
		})
	}
}

func TestVerifierFallsBackToRangedGET(t *testing.T) {
	var sawRange bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		sawRange = r.Header.Get("Range") == "bytes=0-0"
		w.WriteHeader(http.StatusPartialContent)
	}))
	defer srv.Close()

	v := NewVerifierWithClient(srv.Client())
	res := v.Test(context.Background(), probeCandidate(srv.URL))
	if !res.Success {
		t.Fatalf("expected success via GET fallback, got %+v", res)
	}
	if !sawRange {
		t.Error("fallback GET should request a single byte")
	}
}

func TestVerifierNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // probe a dead server

	v := NewVerifier()
	res := v.Test(context.Background(), probeCandidate(srv.URL))
	if res.Success {
		t.Fatal("probe against a closed server must fail")
	}
	if res.ErrorClass != models.ErrClassUnavailable {
		t.Errorf("class = %q, want unavailable", res.ErrorClass)
	}
}

func TestVerifierRejectsEmptyURL(t *testing.T) {
	v := NewVerifier()
	res := v.Test(context.Background(), &models.Candidate{ID: uuid.New()})
	if res.Success || res.ErrorClass != models.ErrClassFormatError {
		t.Errorf("got %+v, want format_error", res)
	}
}

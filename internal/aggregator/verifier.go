package aggregator

import (
	"context"
	"net/http"
	"time"

	"github.com/enricharr/enricharr/internal/models"
)

// TestResult is the outcome of a candidate availability probe.
type TestResult struct {
	Success    bool              `json:"success"`
	ErrorClass models.ErrorClass `json:"error_class,omitempty"`
	Message    string            `json:"message,omitempty"`
}

// Verifier performs a cheap existence probe against a candidate URL before
// a selection that implies a later download (trailers) may be committed.
// It never downloads the payload: HEAD first, then a one-byte ranged GET
// for servers that reject HEAD.
type Verifier struct {
	client *http.Client
}

func NewVerifier() *Verifier {
	return &Verifier{client: &http.Client{Timeout: 10 * time.Second}}
}

// NewVerifierWithClient is for tests.
func NewVerifierWithClient(client *http.Client) *Verifier {
	return &Verifier{client: client}
}

// Test probes the candidate without committing anything.
func (v *Verifier) Test(ctx context.Context, candidate *models.Candidate) TestResult {
	if candidate.URL == "" {
		return TestResult{ErrorClass: models.ErrClassFormatError, Message: "candidate has no URL"}
	}

	status, err := v.probe(ctx, "HEAD", candidate.URL)
	if err == nil && (status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented) {
		status, err = v.probe(ctx, "GET", candidate.URL)
	}
	if err != nil {
		return TestResult{ErrorClass: models.ErrClassUnavailable, Message: err.Error()}
	}
	if status >= 200 && status < 300 {
		return TestResult{Success: true}
	}
	return TestResult{
		ErrorClass: probeClass(status),
		Message:    http.StatusText(status),
	}
}

func (v *Verifier) probe(ctx context.Context, method, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, err
	}
	if method == "GET" {
		req.Header.Set("Range", "bytes=0-0")
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

// probeClass narrows HTTP status to the probe taxonomy the caller sees
// verbatim: unavailable, rate_limited, region_blocked, format_error.
func probeClass(status int) models.ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return models.ErrClassRateLimited
	case status == http.StatusForbidden || status == http.StatusUnavailableForLegalReasons:
		return models.ErrClassRegionBlocked
	case status == http.StatusUnsupportedMediaType || status == http.StatusRequestedRangeNotSatisfiable:
		return models.ErrClassFormatError
	default:
		return models.ErrClassUnavailable
	}
}

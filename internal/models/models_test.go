package models

import (
	"testing"
)

func TestCapabilityPredicates(t *testing.T) {
	for _, c := range []Capability{CapPoster, CapFanart, CapBanner, CapClearLogo, CapTrailer} {
		if !c.IsAsset() {
			t.Errorf("%s should be an asset", c)
		}
	}
	for _, c := range []Capability{CapTitle, CapPlot, CapRating, CapGenres} {
		if c.IsAsset() {
			t.Errorf("%s should be a metadata field", c)
		}
	}
	if !CapTrailer.RequiresProbe() {
		t.Error("trailer commits must be probe-gated")
	}
	if CapPoster.RequiresProbe() {
		t.Error("poster commits are not probe-gated")
	}
	if Capability("hologram").Valid() {
		t.Error("unknown capability must not validate")
	}
}

func TestCapabilityKeyIsCanonical(t *testing.T) {
	a := CapabilityKey([]Capability{CapTrailer, CapPoster, CapPlot})
	b := CapabilityKey([]Capability{CapPlot, CapPoster, CapTrailer})
	if a != b {
		t.Errorf("%q != %q", a, b)
	}
	if a != "plot,poster,trailer" {
		t.Errorf("key = %q", a)
	}
}

func TestRateLimitedProvidersDeduplicates(t *testing.T) {
	r := &AggregationResult{Outcomes: []ProviderOutcome{
		{Provider: "tmdb", Capability: CapPoster, ErrorClass: ErrClassRateLimited},
		{Provider: "tmdb", Capability: CapFanart, ErrorClass: ErrClassRateLimited},
		{Provider: "tvdb", Capability: CapPoster, OK: true},
		{Provider: "omdb", Capability: CapRating, ErrorClass: ErrClassUnavailable},
	}}
	got := r.RateLimitedProviders()
	if len(got) != 1 || got[0] != "tmdb" {
		t.Errorf("RateLimitedProviders = %v", got)
	}
}

func TestBulkRunStates(t *testing.T) {
	running := &BulkRun{Status: BulkRunning}
	if !running.Active() || running.Resumable() {
		t.Error("running run is active and not resumable")
	}
	parked := &BulkRun{Status: BulkRateLimited}
	if parked.Active() || !parked.Resumable() {
		t.Error("rate-limited run is parked but resumable")
	}
	done := &BulkRun{Status: BulkCompleted}
	if done.Active() || done.Resumable() {
		t.Error("completed run is terminal")
	}
}

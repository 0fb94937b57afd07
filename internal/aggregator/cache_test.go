package aggregator

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/enricharr/enricharr/internal/models"
)

func cachedResult(targetID uuid.UUID, caps []models.Capability, expires time.Time) *models.AggregationResult {
	return &models.AggregationResult{
		TargetID:     targetID,
		Capabilities: caps,
		Candidates: []models.Candidate{{
			ID: uuid.New(), Capability: caps[0], Provider: "x", URL: "https://example.com/a",
		}},
		FetchedAt: expires.Add(-time.Hour),
		ExpiresAt: expires,
	}
}

func TestCacheHitAndExpiry(t *testing.T) {
	now := time.Now()
	cache := NewResultCache(time.Hour)
	cache.now = func() time.Time { return now }

	targetID := uuid.New()
	caps := []models.Capability{models.CapPoster}
	cache.Put(cachedResult(targetID, caps, now.Add(time.Hour)))

	if cache.Get(targetID, caps) == nil {
		t.Fatal("expected cache hit before expiry")
	}

	cache.now = func() time.Time { return now.Add(61 * time.Minute) }
	if cache.Get(targetID, caps) != nil {
		t.Error("expected miss after TTL elapsed")
	}
}

func TestCacheKeyIgnoresCapabilityOrder(t *testing.T) {
	now := time.Now()
	cache := NewResultCache(time.Hour)
	cache.now = func() time.Time { return now }

	targetID := uuid.New()
	cache.Put(cachedResult(targetID, []models.Capability{models.CapPoster, models.CapTrailer}, now.Add(time.Hour)))

	if cache.Get(targetID, []models.Capability{models.CapTrailer, models.CapPoster}) == nil {
		t.Error("the same capability set in a different order should hit")
	}
}

func TestCacheInvalidateDropsAllEntriesForTarget(t *testing.T) {
	now := time.Now()
	cache := NewResultCache(time.Hour)
	cache.now = func() time.Time { return now }

	targetID := uuid.New()
	other := uuid.New()
	cache.Put(cachedResult(targetID, []models.Capability{models.CapPoster}, now.Add(time.Hour)))
	cache.Put(cachedResult(targetID, []models.Capability{models.CapTrailer}, now.Add(time.Hour)))
	cache.Put(cachedResult(other, []models.Capability{models.CapPoster}, now.Add(time.Hour)))

	cache.Invalidate(targetID)

	if cache.Get(targetID, []models.Capability{models.CapPoster}) != nil {
		t.Error("poster entry should be gone")
	}
	if cache.Get(targetID, []models.Capability{models.CapTrailer}) != nil {
		t.Error("trailer entry should be gone")
	}
	if cache.Get(other, []models.Capability{models.CapPoster}) == nil {
		t.Error("other target's entry should survive")
	}
}

func TestFindCandidateSkipsExpired(t *testing.T) {
	now := time.Now()
	cache := NewResultCache(time.Hour)
	cache.now = func() time.Time { return now }

	targetID := uuid.New()
	res := cachedResult(targetID, []models.Capability{models.CapPoster}, now.Add(time.Hour))
	cache.Put(res)
	id := res.Candidates[0].ID

	if cache.FindCandidate(id) == nil {
		t.Fatal("expected candidate lookup to succeed while live")
	}
	if cache.FindCandidateForTarget(targetID, id) == nil {
		t.Fatal("expected scoped lookup to succeed while live")
	}
	if cache.FindCandidateForTarget(uuid.New(), id) != nil {
		t.Error("scoped lookup must not cross targets")
	}

	cache.now = func() time.Time { return now.Add(2 * time.Hour) }
	if cache.FindCandidate(id) != nil {
		t.Error("expired entry's candidates must not resolve")
	}
}

package aggregator

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/enricharr/enricharr/internal/models"
)

// DefaultCacheTTL bounds how long a fan-out result is reused.
const DefaultCacheTTL = time.Hour

// ResultCache memoizes aggregation runs per (target, capability set) for a
// bounded TTL. It caches provider responses only; selection commits are
// never read from here. Shared by the interactive path and the bulk
// scheduler, so it is safe for concurrent use.
type ResultCache struct {
	mu      sync.RWMutex
	entries map[string]*models.AggregationResult
	ttl     time.Duration
	now     func() time.Time
}

func NewResultCache(ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ResultCache{
		entries: make(map[string]*models.AggregationResult),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *ResultCache) TTL() time.Duration { return c.ttl }

func cacheKey(targetID uuid.UUID, caps []models.Capability) string {
	return targetID.String() + "|" + models.CapabilityKey(caps)
}

// Get returns the live result for the key, or nil on miss/expiry.
func (c *ResultCache) Get(targetID uuid.UUID, caps []models.Capability) *models.AggregationResult {
	c.mu.RLock()
	res, ok := c.entries[cacheKey(targetID, caps)]
	c.mu.RUnlock()
	if !ok || c.now().After(res.ExpiresAt) {
		return nil
	}
	return res
}

// Put stores a result under its own (target, capability set) key,
// superseding any previous entry whole.
func (c *ResultCache) Put(res *models.AggregationResult) {
	c.mu.Lock()
	c.entries[cacheKey(res.TargetID, res.Capabilities)] = res
	c.mu.Unlock()
}

// FindCandidate locates a candidate by id across all live entries.
// Candidates only exist inside cached runs, so an expired entry means the
// candidate is gone and a fresh resolve is needed.
func (c *ResultCache) FindCandidate(id uuid.UUID) *models.Candidate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := c.now()
	for _, res := range c.entries {
		if now.After(res.ExpiresAt) {
			continue
		}
		if cand := res.Candidate(id); cand != nil {
			return cand
		}
	}
	return nil
}

// FindCandidateForTarget is FindCandidate scoped to one target's entries.
func (c *ResultCache) FindCandidateForTarget(targetID, id uuid.UUID) *models.Candidate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := c.now()
	prefix := targetID.String() + "|"
	for k, res := range c.entries {
		if !strings.HasPrefix(k, prefix) || now.After(res.ExpiresAt) {
			continue
		}
		if cand := res.Candidate(id); cand != nil {
			return cand
		}
	}
	return nil
}

// Invalidate drops every cached result for a target, whatever the
// capability set.
func (c *ResultCache) Invalidate(targetID uuid.UUID) {
	prefix := targetID.String() + "|"
	c.mu.Lock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}

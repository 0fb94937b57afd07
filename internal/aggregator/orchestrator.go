package aggregator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/enricharr/enricharr/internal/models"
	"github.com/enricharr/enricharr/internal/providers"
	"github.com/enricharr/enricharr/internal/ratelimit"
)

const (
	// DefaultCallTimeout bounds one (provider, capability) call.
	DefaultCallTimeout = 12 * time.Second
	// DefaultRunDeadline bounds the whole fan-out for one target.
	DefaultRunDeadline = 30 * time.Second
)

// OrderSource yields the current priority-order snapshot. Implemented by the
// priority repository; the orchestrator only ever reads.
type OrderSource interface {
	Orders() (PriorityOrders, error)
}

// Orchestrator fans one target's request out to every enabled,
// capability-matching provider concurrently and folds the settled outcomes
// into a single ranked AggregationResult. One provider's failure never
// aborts the run.
type Orchestrator struct {
	registry    *providers.Registry
	limiter     *ratelimit.Limiter
	cache       *ResultCache
	orders      OrderSource
	weights     Weights
	callTimeout time.Duration
	runDeadline time.Duration
}

func NewOrchestrator(registry *providers.Registry, limiter *ratelimit.Limiter,
	cache *ResultCache, orders OrderSource, weights Weights) *Orchestrator {

	// Budgets are declared by the adapters; the shared limiter enforces them
	// across both the interactive and bulk paths.
	for _, p := range registry.All() {
		n, window := p.Budget()
		limiter.Register(p.Name(), n, window)
	}

	return &Orchestrator{
		registry:    registry,
		limiter:     limiter,
		cache:       cache,
		orders:      orders,
		weights:     weights,
		callTimeout: DefaultCallTimeout,
		runDeadline: DefaultRunDeadline,
	}
}

// SetTimeouts overrides the per-call and per-run bounds (tests and config).
func (o *Orchestrator) SetTimeouts(call, run time.Duration) {
	if call > 0 {
		o.callTimeout = call
	}
	if run > 0 {
		o.runDeadline = run
	}
}

// Cache exposes the result cache for invalidation by callers.
func (o *Orchestrator) Cache() *ResultCache { return o.cache }

// Resolve runs the full pipeline for one target: cache check, concurrent
// fan-out gated by the rate limiter, merge, rank, cache. A run with zero
// successful providers still returns a result with every outcome marked.
func (o *Orchestrator) Resolve(ctx context.Context, target *models.Target, caps []models.Capability, force bool) (*models.AggregationResult, error) {
	if len(caps) == 0 {
		return nil, fmt.Errorf("no capabilities requested")
	}
	for _, c := range caps {
		if !c.Valid() {
			return nil, fmt.Errorf("unknown capability %q", c)
		}
	}

	if force {
		o.cache.Invalidate(target.ID)
	} else if res := o.cache.Get(target.ID, caps); res != nil {
		return res, nil
	}

	type call struct {
		provider   providers.Provider
		capability models.Capability
	}
	var calls []call
	for _, capability := range caps {
		for _, p := range o.registry.EnabledFor(capability) {
			calls = append(calls, call{p, capability})
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, o.runDeadline)
	defer cancel()

	var (
		mu         sync.Mutex
		wg         sync.WaitGroup
		outcomes   []models.ProviderOutcome
		candidates []models.Candidate
	)

	for _, cl := range calls {
		wg.Add(1)
		go func(cl call) {
			defer wg.Done()
			name := cl.provider.Name()

			if ok, deferUntil := o.limiter.TryAcquire(name); !ok {
				log.Printf("Aggregator: %s denied by rate limiter until %s", name, deferUntil.Format(time.RFC3339))
				mu.Lock()
				outcomes = append(outcomes, models.ProviderOutcome{
					Provider: name, Capability: cl.capability,
					ErrorClass: models.ErrClassRateLimited,
				})
				mu.Unlock()
				return
			}

			callCtx, cancelCall := context.WithTimeout(runCtx, o.callTimeout)
			defer cancelCall()

			start := time.Now()
			batch, err := cl.provider.Fetch(callCtx, target, cl.capability)
			elapsed := float64(time.Since(start).Milliseconds())

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				class := providers.Classify(err)
				log.Printf("Aggregator: %s/%s failed (%s): %v", name, cl.capability, class, err)
				outcomes = append(outcomes, models.ProviderOutcome{
					Provider: name, Capability: cl.capability,
					ErrorClass: class, Duration: elapsed,
				})
				return
			}
			outcomes = append(outcomes, models.ProviderOutcome{
				Provider: name, Capability: cl.capability,
				OK: true, Candidates: len(batch), Duration: elapsed,
			})
			candidates = append(candidates, batch...)
		}(cl)
	}
	wg.Wait()

	orders, err := o.orders.Orders()
	if err != nil {
		log.Printf("Aggregator: loading priority orders failed, ranking without tie-break lists: %v", err)
		orders = PriorityOrders{}
	}

	ranked, recs := Rank(candidates, orders, o.weights)

	now := time.Now()
	result := &models.AggregationResult{
		TargetID:        target.ID,
		Capabilities:    append([]models.Capability(nil), caps...),
		Outcomes:        outcomes,
		Candidates:      ranked,
		Recommendations: recs,
		FetchedAt:       now,
		ExpiresAt:       now.Add(o.cache.TTL()),
	}
	// A result carrying rate-limit denials is a partial snapshot. Caching it
	// would replay the denial for the whole TTL, so a retry after the limiter
	// recovers must reach the providers again.
	if len(result.RateLimitedProviders()) == 0 {
		o.cache.Put(result)
	}
	return result, nil
}

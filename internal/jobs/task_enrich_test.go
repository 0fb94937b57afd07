package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/enricharr/enricharr/internal/aggregator"
	"github.com/enricharr/enricharr/internal/models"
	"github.com/enricharr/enricharr/internal/providers"
	"github.com/enricharr/enricharr/internal/ratelimit"
)

type fakeTargets struct {
	targets []*models.Target
}

func (f *fakeTargets) Count() (int, error) { return len(f.targets), nil }

func (f *fakeTargets) ListBatch(offset, limit int) ([]*models.Target, error) {
	if offset >= len(f.targets) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.targets) {
		end = len(f.targets)
	}
	return f.targets[offset:end], nil
}

type fakeRunStore struct {
	prev     *models.BulkRun
	claimErr error
	updates  []models.BulkRun
}

func (f *fakeRunStore) Claim(run *models.BulkRun) error {
	if f.claimErr != nil {
		return f.claimErr
	}
	run.StartedAt = time.Now()
	return nil
}

func (f *fakeRunStore) Update(run *models.BulkRun) error {
	snapshot := *run
	snapshot.RateLimitedProviders = append([]string(nil), run.RateLimitedProviders...)
	f.updates = append(f.updates, snapshot)
	return nil
}

func (f *fakeRunStore) Latest() (*models.BulkRun, error) { return f.prev, nil }

type fakeResolver struct {
	seen    []string
	resolve func(target *models.Target) (*models.AggregationResult, error)
}

func (f *fakeResolver) Resolve(ctx context.Context, target *models.Target, caps []models.Capability, force bool) (*models.AggregationResult, error) {
	f.seen = append(f.seen, target.Title)
	return f.resolve(target)
}

type fakeNotifier struct {
	events []string
}

func (f *fakeNotifier) Broadcast(event string, data interface{}) {
	f.events = append(f.events, event)
}

type fakeSelections struct {
	commits int
}

func (f *fakeSelections) Commit(ctx context.Context, sel *models.SelectionState, override bool) (*models.SelectionState, error) {
	f.commits++
	return sel, nil
}

type noOrders struct{}

func (noOrders) Orders() (aggregator.PriorityOrders, error) { return aggregator.PriorityOrders{}, nil }

func libraryOf(n int) []*models.Target {
	targets := make([]*models.Target, n)
	for i := range targets {
		targets[i] = &models.Target{ID: uuid.New(), Title: string(rune('a' + i))}
	}
	return targets
}

func goodResult(target *models.Target) (*models.AggregationResult, error) {
	cand := models.Candidate{
		ID: uuid.New(), Capability: models.CapPoster, Provider: "tmdb",
		URL: "https://example.com/poster", Width: 1920, Height: 2880,
	}
	return &models.AggregationResult{
		TargetID:   target.ID,
		Candidates: []models.Candidate{cand},
		Recommendations: map[models.Capability]models.Recommendation{
			models.CapPoster: {CandidateID: cand.ID, Provider: "tmdb"},
		},
	}, nil
}

func rateLimitedResult(target *models.Target) (*models.AggregationResult, error) {
	return &models.AggregationResult{
		TargetID: target.ID,
		Outcomes: []models.ProviderOutcome{
			{Provider: "tmdb", Capability: models.CapPoster, ErrorClass: models.ErrClassRateLimited},
		},
	}, nil
}

func newTestHandler(targets *fakeTargets, runs *fakeRunStore, resolver *fakeResolver, notifier *fakeNotifier) *BulkEnrichHandler {
	selector := aggregator.NewAutoSelector(&fakeSelections{}, nil, aggregator.DefaultWeights(),
		func() models.PolicyMode { return models.PolicyBalanced })
	return NewBulkEnrichHandler(targets, runs, resolver, selector, noOrders{}, notifier,
		[]models.Capability{models.CapPoster})
}

func finalUpdate(t *testing.T, runs *fakeRunStore) models.BulkRun {
	t.Helper()
	if len(runs.updates) == 0 {
		t.Fatal("no run updates recorded")
	}
	return runs.updates[len(runs.updates)-1]
}

func TestBulkRunCompletes(t *testing.T) {
	targets := &fakeTargets{targets: libraryOf(3)}
	runs := &fakeRunStore{}
	resolver := &fakeResolver{resolve: goodResult}
	notifier := &fakeNotifier{}

	h := newTestHandler(targets, runs, resolver, notifier)
	if err := h.Run(context.Background(), false); err != nil {
		t.Fatal(err)
	}

	final := finalUpdate(t, runs)
	if final.Status != models.BulkCompleted {
		t.Errorf("status = %q", final.Status)
	}
	if final.Processed != 3 || final.Skipped != 0 || final.Failed != 0 {
		t.Errorf("counts = %d/%d/%d", final.Processed, final.Skipped, final.Failed)
	}
	if final.FinishedAt == nil {
		t.Error("completed run should be stamped finished")
	}

	var progress, complete int
	for _, e := range notifier.events {
		switch e {
		case "bulk:progress":
			progress++
		case "bulk:complete":
			complete++
		}
	}
	if progress != 3 || complete != 1 {
		t.Errorf("events = %v", notifier.events)
	}
}

func TestBulkRunParksOnRateLimit(t *testing.T) {
	targets := &fakeTargets{targets: libraryOf(3)}
	runs := &fakeRunStore{}
	notifier := &fakeNotifier{}
	resolver := &fakeResolver{}
	resolver.resolve = func(target *models.Target) (*models.AggregationResult, error) {
		if len(resolver.seen) == 2 { // second target hits the limit
			return rateLimitedResult(target)
		}
		return goodResult(target)
	}

	h := newTestHandler(targets, runs, resolver, notifier)
	if err := h.Run(context.Background(), false); err != nil {
		t.Fatal(err)
	}

	final := finalUpdate(t, runs)
	if final.Status != models.BulkRateLimited {
		t.Fatalf("status = %q", final.Status)
	}
	// The in-flight target is not counted, so the resumed run retries it.
	if final.Processed != 1 {
		t.Errorf("processed = %d, want 1", final.Processed)
	}
	if len(final.RateLimitedProviders) != 1 || final.RateLimitedProviders[0] != "tmdb" {
		t.Errorf("RateLimitedProviders = %v", final.RateLimitedProviders)
	}

	parked := false
	for _, e := range notifier.events {
		if e == "bulk:rate_limit" {
			parked = true
		}
	}
	if !parked {
		t.Errorf("events = %v, want bulk:rate_limit", notifier.events)
	}
}

func TestBulkRunResumesFromCheckpoint(t *testing.T) {
	targets := &fakeTargets{targets: libraryOf(3)}
	runs := &fakeRunStore{
		prev: &models.BulkRun{Status: models.BulkRateLimited, Total: 3, Processed: 1},
	}
	resolver := &fakeResolver{resolve: goodResult}

	h := newTestHandler(targets, runs, resolver, &fakeNotifier{})
	if err := h.Run(context.Background(), false); err != nil {
		t.Fatal(err)
	}

	if len(resolver.seen) != 2 {
		t.Fatalf("resolver saw %v, want the 2 unprocessed targets", resolver.seen)
	}
	if resolver.seen[0] != "b" || resolver.seen[1] != "c" {
		t.Errorf("resolver walked %v, want [b c]", resolver.seen)
	}

	final := finalUpdate(t, runs)
	if final.Status != models.BulkCompleted || final.Processed != 3 {
		t.Errorf("final = %q processed=%d", final.Status, final.Processed)
	}
}

func TestBulkRunClaimConflictIsNotAnError(t *testing.T) {
	targets := &fakeTargets{targets: libraryOf(2)}
	runs := &fakeRunStore{claimErr: models.ErrRunAlreadyActive}
	resolver := &fakeResolver{resolve: goodResult}

	h := newTestHandler(targets, runs, resolver, &fakeNotifier{})
	if err := h.Run(context.Background(), false); err != nil {
		t.Fatalf("losing the claim race should be silent: %v", err)
	}
	if len(resolver.seen) != 0 {
		t.Error("no target may be processed without holding the claim")
	}
	if len(runs.updates) != 0 {
		t.Error("no run record may be written without holding the claim")
	}
}

type budgetedProvider struct {
	name  string
	calls atomic.Int32
}

func (p *budgetedProvider) Name() string                      { return p.name }
func (p *budgetedProvider) Capabilities() []models.Capability { return []models.Capability{models.CapPoster} }
func (p *budgetedProvider) Budget() (int, time.Duration)      { return 1, time.Hour }
func (p *budgetedProvider) RequiresAuth() bool                { return false }
func (p *budgetedProvider) Fetch(ctx context.Context, target *models.Target, capability models.Capability) ([]models.Candidate, error) {
	p.calls.Add(1)
	return []models.Candidate{{
		ID: uuid.New(), Capability: models.CapPoster, Provider: p.name,
		URL: "https://example.com/poster", Width: 1920, Height: 2880,
	}}, nil
}

func TestParkedRunResumesWithFreshProviderCalls(t *testing.T) {
	// End to end over the real orchestrator and limiter: a run parked by a
	// limiter denial must, once the budget recovers, re-resolve its
	// checkpointed target instead of replaying the cached denial.
	p := &budgetedProvider{name: "p"}
	registry := providers.NewRegistry()
	registry.Register(p, providers.Config{Enabled: true})
	limiter := ratelimit.New()
	orchestrator := aggregator.NewOrchestrator(registry, limiter,
		aggregator.NewResultCache(time.Hour), noOrders{}, aggregator.DefaultWeights())
	orchestrator.SetTimeouts(time.Second, 5*time.Second)

	targets := &fakeTargets{targets: libraryOf(2)}
	runs := &fakeRunStore{}
	selector := aggregator.NewAutoSelector(&fakeSelections{}, nil, aggregator.DefaultWeights(),
		func() models.PolicyMode { return models.PolicyBalanced })
	h := NewBulkEnrichHandler(targets, runs, orchestrator, selector, noOrders{}, &fakeNotifier{},
		[]models.Capability{models.CapPoster})

	if err := h.Run(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	parked := finalUpdate(t, runs)
	if parked.Status != models.BulkRateLimited || parked.Processed != 1 {
		t.Fatalf("first run = %q processed=%d, want parked at 1", parked.Status, parked.Processed)
	}

	limiter.Register("p", 1000, time.Minute)
	runs.prev = &parked
	if err := h.Run(context.Background(), false); err != nil {
		t.Fatal(err)
	}

	final := finalUpdate(t, runs)
	if final.Status != models.BulkCompleted || final.Processed != 2 {
		t.Fatalf("resumed run = %q processed=%d, want completed at 2", final.Status, final.Processed)
	}
	if p.calls.Load() != 2 {
		t.Errorf("provider called %d times, want 2 (one per target)", p.calls.Load())
	}
}

func TestBulkRunForceRestartsFromZero(t *testing.T) {
	targets := &fakeTargets{targets: libraryOf(3)}
	runs := &fakeRunStore{
		prev: &models.BulkRun{Status: models.BulkRateLimited, Total: 3, Processed: 1},
	}
	resolver := &fakeResolver{resolve: goodResult}

	h := newTestHandler(targets, runs, resolver, &fakeNotifier{})
	if err := h.Run(context.Background(), true); err != nil {
		t.Fatal(err)
	}

	if len(resolver.seen) != 3 {
		t.Fatalf("forced run walked %v, want every target from the start", resolver.seen)
	}
	final := finalUpdate(t, runs)
	if final.Processed != 3 {
		t.Errorf("processed = %d, want 3", final.Processed)
	}
}

func TestBulkRunCountsSkippedTargets(t *testing.T) {
	targets := &fakeTargets{targets: libraryOf(2)}
	runs := &fakeRunStore{}
	// Resolves succeed but produce nothing to commit.
	resolver := &fakeResolver{resolve: func(target *models.Target) (*models.AggregationResult, error) {
		return &models.AggregationResult{TargetID: target.ID}, nil
	}}

	h := newTestHandler(targets, runs, resolver, &fakeNotifier{})
	if err := h.Run(context.Background(), false); err != nil {
		t.Fatal(err)
	}

	final := finalUpdate(t, runs)
	if final.Status != models.BulkCompleted {
		t.Errorf("status = %q", final.Status)
	}
	if final.Processed != 2 || final.Skipped != 2 {
		t.Errorf("processed=%d skipped=%d, want 2/2", final.Processed, final.Skipped)
	}
}

func TestBulkRunCountsFailedTargets(t *testing.T) {
	targets := &fakeTargets{targets: libraryOf(2)}
	runs := &fakeRunStore{}
	resolver := &fakeResolver{resolve: func(target *models.Target) (*models.AggregationResult, error) {
		return nil, errors.New("boom")
	}}

	h := newTestHandler(targets, runs, resolver, &fakeNotifier{})
	if err := h.Run(context.Background(), false); err != nil {
		t.Fatal(err)
	}

	final := finalUpdate(t, runs)
	if final.Processed != 2 || final.Failed != 2 {
		t.Errorf("processed=%d failed=%d, want 2/2", final.Processed, final.Failed)
	}
}

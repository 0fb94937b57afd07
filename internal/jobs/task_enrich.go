package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/enricharr/enricharr/internal/aggregator"
	"github.com/enricharr/enricharr/internal/models"
)

// batchSize bounds how many targets are loaded per page while walking the
// library.
const batchSize = 25

// TargetStore is the slice of the target repository the scheduler needs.
type TargetStore interface {
	Count() (int, error)
	ListBatch(offset, limit int) ([]*models.Target, error)
}

// RunStore persists bulk-run records. Claim must be a compare-and-swap:
// it fails with models.ErrRunAlreadyActive while another run is running.
type RunStore interface {
	Claim(run *models.BulkRun) error
	Update(run *models.BulkRun) error
	Latest() (*models.BulkRun, error)
}

// Resolver is the single-target pipeline the scheduler drives in a loop.
type Resolver interface {
	Resolve(ctx context.Context, target *models.Target, caps []models.Capability, force bool) (*models.AggregationResult, error)
}

// ──────── Bulk Enrichment Handler ────────

// BulkEnrichHandler walks every library target through the resolve+select
// pipeline, checkpointing after each target. A rate-limit signal from any
// provider ends the run immediately in a resumable state; the next trigger
// continues from the checkpoint instead of restarting.
type BulkEnrichHandler struct {
	targets      TargetStore
	runs         RunStore
	resolver     Resolver
	selector     *aggregator.AutoSelector
	orders       aggregator.OrderSource
	notifier     EventNotifier
	capabilities []models.Capability
}

func NewBulkEnrichHandler(targets TargetStore, runs RunStore, resolver Resolver,
	selector *aggregator.AutoSelector, orders aggregator.OrderSource,
	notifier EventNotifier, capabilities []models.Capability) *BulkEnrichHandler {
	if len(capabilities) == 0 {
		capabilities = models.AllCapabilities
	}
	return &BulkEnrichHandler{
		targets: targets, runs: runs, resolver: resolver, selector: selector,
		orders: orders, notifier: notifier, capabilities: capabilities,
	}
}

func (h *BulkEnrichHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload BulkEnrichPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
	}
	return h.Run(ctx, payload.Force)
}

// Run executes one bulk pass. Exposed separately from asynq for tests.
func (h *BulkEnrichHandler) Run(ctx context.Context, force bool) error {
	total, err := h.targets.Count()
	if err != nil {
		return fmt.Errorf("count targets: %w", err)
	}

	run := &models.BulkRun{Total: total, RateLimitedProviders: []string{}}

	// Resume a rate-limited run's checkpoint instead of reprocessing 1..N.
	// A forced run starts over from the first target.
	if !force {
		if prev, err := h.runs.Latest(); err == nil && prev != nil && prev.Resumable() {
			run.Processed = prev.Processed
			run.Skipped = prev.Skipped
			run.Failed = prev.Failed
			log.Printf("[bulk] resuming from checkpoint: %d/%d targets done", prev.Processed, total)
		}
	}

	if err := h.runs.Claim(run); err != nil {
		if errors.Is(err, models.ErrRunAlreadyActive) {
			log.Println("[bulk] a run is already active, skipping trigger")
			return nil
		}
		return fmt.Errorf("claim run: %w", err)
	}

	orders, err := h.orders.Orders()
	if err != nil {
		log.Printf("[bulk] loading priority orders failed: %v", err)
		orders = aggregator.PriorityOrders{}
	}

	for {
		batch, err := h.targets.ListBatch(run.Processed, batchSize)
		if err != nil {
			return h.finish(run, models.BulkFailed, fmt.Errorf("list targets: %w", err))
		}
		if len(batch) == 0 {
			break
		}

		for _, target := range batch {
			// Cooperative stop, checked at each iteration boundary.
			select {
			case <-ctx.Done():
				log.Println("[bulk] stop requested, checkpointing")
				return h.finish(run, models.BulkFailed, nil)
			default:
			}

			run.CurrentTarget = &target.Title
			status, rateLimited := h.enrichTarget(ctx, target, orders, force)

			if rateLimited != nil {
				// The in-flight target is marked but not counted processed,
				// so the resumed run picks it up again.
				run.RateLimitedProviders = mergeNames(run.RateLimitedProviders, rateLimited)
				if err := h.finish(run, models.BulkRateLimited, nil); err != nil {
					return err
				}
				h.notify("bulk:rate_limit", run)
				log.Printf("[bulk] rate limited by %v at %d/%d, run parked", rateLimited, run.Processed, run.Total)
				return nil
			}

			run.Processed++
			switch status {
			case targetFailed:
				run.Failed++
			case targetSkipped:
				run.Skipped++
			}

			if err := h.runs.Update(run); err != nil {
				log.Printf("[bulk] checkpoint write failed: %v", err)
			}
			h.notify("bulk:progress", run)
		}
	}

	if err := h.finish(run, models.BulkCompleted, nil); err != nil {
		return err
	}
	h.notify("bulk:complete", run)
	log.Printf("[bulk] completed: %d processed, %d skipped, %d failed", run.Processed, run.Skipped, run.Failed)
	return nil
}

type targetStatus int

const (
	targetEnriched targetStatus = iota
	targetSkipped
	targetFailed
)

// enrichTarget runs resolve+select for one target. A non-nil second return
// names the providers whose rate limiter denial must park the whole run.
func (h *BulkEnrichHandler) enrichTarget(ctx context.Context, target *models.Target, orders aggregator.PriorityOrders, force bool) (targetStatus, []string) {
	res, err := h.resolver.Resolve(ctx, target, h.capabilities, force)
	if err != nil {
		log.Printf("[bulk] resolve %q failed: %v", target.Title, err)
		return targetFailed, nil
	}

	if rl := res.RateLimitedProviders(); len(rl) > 0 {
		return targetFailed, rl
	}

	committed := 0
	for _, capability := range h.capabilities {
		status, err := h.selector.Apply(ctx, res, capability, orders)
		if err != nil {
			log.Printf("[bulk] apply %s for %q failed: %v", capability, target.Title, err)
			return targetFailed, nil
		}
		if status == "committed" {
			committed++
		}
	}
	if committed == 0 {
		return targetSkipped, nil
	}
	return targetEnriched, nil
}

// finish stamps the terminal state and persists it. The parked
// rate_limited state keeps processed as the resumable checkpoint.
func (h *BulkEnrichHandler) finish(run *models.BulkRun, status models.BulkStatus, cause error) error {
	run.Status = status
	run.CurrentTarget = nil
	now := time.Now()
	run.FinishedAt = &now
	if err := h.runs.Update(run); err != nil {
		log.Printf("[bulk] final state write failed: %v", err)
		if cause == nil {
			return err
		}
	}
	return cause
}

func (h *BulkEnrichHandler) notify(event string, run *models.BulkRun) {
	if h.notifier != nil {
		h.notifier.Broadcast(event, run)
	}
}

func mergeNames(existing, more []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, n := range existing {
		seen[n] = true
	}
	for _, n := range more {
		if !seen[n] {
			seen[n] = true
			existing = append(existing, n)
		}
	}
	return existing
}

package aggregator

import (
	"context"
	"errors"
	"fmt"

	"github.com/enricharr/enricharr/internal/models"
)

// SelectionStore persists committed selections. Commit must perform its
// lock check and write in one atomic step; a locked row without override
// returns models.ErrLockedConflict and writes nothing.
type SelectionStore interface {
	Commit(ctx context.Context, sel *models.SelectionState, override bool) (*models.SelectionState, error)
}

// AutoSelector decides whether a resolved candidate is written back
// automatically. Two modes: balanced trusts the ranking engine's quality
// heuristics; custom takes the first priority-ordered provider that
// produced anything, unless the capability is configured to stay balanced.
type AutoSelector struct {
	selections SelectionStore
	verifier   *Verifier
	weights    Weights

	// Mode yields the active policy mode; read per target so a settings
	// change takes effect mid bulk run.
	Mode func() models.PolicyMode
	// BalancedOverrides lists capabilities that use the balanced algorithm
	// even in custom mode.
	BalancedOverrides map[models.Capability]bool
}

func NewAutoSelector(selections SelectionStore, verifier *Verifier, weights Weights, mode func() models.PolicyMode) *AutoSelector {
	return &AutoSelector{
		selections:        selections,
		verifier:          verifier,
		weights:           weights,
		Mode:              mode,
		BalancedOverrides: make(map[models.Capability]bool),
	}
}

// Choose picks the winning candidate for one capability under the active
// mode. Returns nil when the pool has no candidate for the capability.
func (a *AutoSelector) Choose(result *models.AggregationResult, capability models.Capability, orders PriorityOrders) (*models.Candidate, string) {
	mode := a.Mode()
	if mode == models.PolicyCustom && !a.BalancedOverrides[capability] {
		if c := a.chooseByPriority(result, capability, orders); c != nil {
			return c, "priority order (custom mode)"
		}
		return nil, ""
	}

	rec, ok := result.Recommendations[capability]
	if !ok {
		return nil, ""
	}
	return result.Candidate(rec.CandidateID), rec.Reason
}

// chooseByPriority walks the priority order and takes the first provider
// that produced any candidate, ignoring quality heuristics. Among that
// provider's own candidates the ranking comparator still picks its best.
func (a *AutoSelector) chooseByPriority(result *models.AggregationResult, capability models.Capability, orders PriorityOrders) *models.Candidate {
	providersInOrder := append([]string(nil), orders[capability]...)
	// Providers that produced candidates but are missing from the order
	// list still come after every listed one.
	for _, c := range result.Candidates {
		if c.Capability == capability && orders.IndexOf(capability, c.Provider) > len(orders[capability]) {
			providersInOrder = append(providersInOrder, c.Provider)
		}
	}

	for _, name := range providersInOrder {
		var best *models.Candidate
		for i := range result.Candidates {
			c := &result.Candidates[i]
			if c.Capability != capability || c.Provider != name {
				continue
			}
			if best == nil {
				best = c
				continue
			}
			if win, _ := beats(c, best, orders, a.weights); win {
				best = c
			}
		}
		if best != nil {
			return best
		}
	}
	return nil
}

// Apply commits the chosen candidate for one capability, honoring locks and
// the probe requirement. The returned status is human-readable and feeds
// the bulk report; a locked selection is a skip, never an error.
func (a *AutoSelector) Apply(ctx context.Context, result *models.AggregationResult, capability models.Capability, orders PriorityOrders) (string, error) {
	winner, _ := a.Choose(result, capability, orders)
	if winner == nil {
		return "skipped: no candidates", nil
	}

	if capability.RequiresProbe() && a.verifier != nil {
		probe := a.verifier.Test(ctx, winner)
		if !probe.Success {
			return fmt.Sprintf("skipped: probe failed (%s)", probe.ErrorClass), nil
		}
	}

	sel := &models.SelectionState{
		TargetID:   result.TargetID,
		Capability: capability,
		Provider:   winner.Provider,
		URL:        winner.URL,
		Value:      winner.Value,
	}
	if _, err := a.selections.Commit(ctx, sel, false); err != nil {
		if errors.Is(err, models.ErrLockedConflict) {
			return "skipped: locked", nil
		}
		return "", err
	}
	return "committed", nil
}

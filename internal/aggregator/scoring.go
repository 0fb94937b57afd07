package aggregator

import (
	"fmt"
	"sort"

	"github.com/enricharr/enricharr/internal/models"
)

// Quality tiers for asset candidates, bucketed by width.
const (
	tierSD = 1
	tierHD = 2
	tier4K = 3
)

func qualityTier(width int) int {
	switch {
	case width >= 3840:
		return tier4K
	case width >= 1280:
		return tierHD
	default:
		return tierSD
	}
}

func tierLabel(tier int) string {
	switch tier {
	case tier4K:
		return "4K"
	case tierHD:
		return "HD"
	default:
		return "SD"
	}
}

// Weights are the tunable knobs of the ranking engine. The observable
// contract fixes quality tier as the primary key; how votes trade off
// against resolution inside a tier is configurable.
type Weights struct {
	// PreferVotesOverResolution flips the secondary and tertiary
	// comparators for asset candidates.
	PreferVotesOverResolution bool
	// DefaultFieldConfidence scores metadata-field candidates whose
	// provider reported no confidence of its own.
	DefaultFieldConfidence float64
}

func DefaultWeights() Weights {
	return Weights{DefaultFieldConfidence: 0.5}
}

// Rank orders candidates per capability and picks a head recommendation for
// each. Ordering is a pure function of candidate attributes and the priority
// order, so arrival order never changes the outcome.
func Rank(candidates []models.Candidate, orders PriorityOrders, w Weights) ([]models.Candidate, map[models.Capability]models.Recommendation) {
	byCap := make(map[models.Capability][]models.Candidate)
	for _, c := range candidates {
		byCap[c.Capability] = append(byCap[c.Capability], c)
	}

	var ranked []models.Candidate
	recs := make(map[models.Capability]models.Recommendation)

	// Stable iteration over capabilities for deterministic output order.
	caps := make([]models.Capability, 0, len(byCap))
	for c := range byCap {
		caps = append(caps, c)
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i] < caps[j] })

	for _, capability := range caps {
		pool := byCap[capability]
		sort.Slice(pool, func(i, j int) bool {
			win, _ := beats(&pool[i], &pool[j], orders, w)
			return win
		})
		for i := range pool {
			s := displayScore(&pool[i], w)
			pool[i].Score = &s
		}
		ranked = append(ranked, pool...)

		head := pool[0]
		reason := "only candidate"
		if len(pool) > 1 {
			_, reason = beats(&pool[0], &pool[1], orders, w)
		}
		recs[capability] = models.Recommendation{
			CandidateID: head.ID,
			Provider:    head.Provider,
			Score:       *head.Score,
			Reason:      reason,
		}
	}
	return ranked, recs
}

// beats reports whether a outranks b and names the rule that decided it.
func beats(a, b *models.Candidate, orders PriorityOrders, w Weights) (bool, string) {
	if a.Capability.IsAsset() {
		if ta, tb := qualityTier(a.Width), qualityTier(b.Width); ta != tb {
			winner := ta
			if tb > ta {
				winner = tb
			}
			return ta > tb, fmt.Sprintf("higher quality tier (%s)", tierLabel(winner))
		}
		stages := []struct {
			av, bv int
			reason string
		}{
			{a.Width*10000 + a.Height, b.Width*10000 + b.Height, "higher resolution"},
			{a.Votes, b.Votes, "more votes"},
		}
		if w.PreferVotesOverResolution {
			stages[0], stages[1] = stages[1], stages[0]
		}
		for _, s := range stages {
			if s.av != s.bv {
				return s.av > s.bv, s.reason
			}
		}
	} else {
		ca, cb := fieldConfidence(a, w), fieldConfidence(b, w)
		if ca != cb {
			return ca > cb, "higher confidence"
		}
		if a.Votes != b.Votes {
			return a.Votes > b.Votes, "more votes"
		}
	}

	// Identical on every quality axis: the priority order decides.
	ia, ib := orders.IndexOf(a.Capability, a.Provider), orders.IndexOf(a.Capability, b.Provider)
	if ia != ib {
		return ia < ib, "priority order tie-break"
	}
	// Same provider (or both unlisted): fall back to name/URL so the order
	// is total regardless of merge order.
	if a.Provider != b.Provider {
		return a.Provider < b.Provider, "priority order tie-break"
	}
	return a.URL+a.Value < b.URL+b.Value, "priority order tie-break"
}

func fieldConfidence(c *models.Candidate, w Weights) float64 {
	if c.Confidence > 0 {
		return c.Confidence
	}
	return w.DefaultFieldConfidence
}

// displayScore is a composite for sorting display and API payloads; the
// authoritative order comes from beats, not from comparing these numbers
// across tiers.
func displayScore(c *models.Candidate, w Weights) float64 {
	if c.Capability.IsAsset() {
		return float64(qualityTier(c.Width))*1_000_000 + float64(c.Width) + float64(c.Votes)/10_000
	}
	return fieldConfidence(c, w)*100 + float64(c.Votes)/1_000_000
}

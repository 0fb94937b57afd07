package aggregator

import (
	"fmt"

	"github.com/enricharr/enricharr/internal/models"
)

// PriorityOrders is a read-only snapshot of the persisted provider ranking,
// one ordered list per capability.
type PriorityOrders map[models.Capability][]string

// IndexOf returns the provider's position in the capability's order list.
// Providers absent from the list sort after every listed one.
func (po PriorityOrders) IndexOf(capability models.Capability, provider string) int {
	for i, name := range po[capability] {
		if name == provider {
			return i
		}
	}
	return len(po[capability]) + 1000
}

// ValidateOrder checks that newOrder is a permutation of exactly the enabled
// providers supplying the capability: nothing missing, nothing duplicated,
// nothing disabled or foreign. Returns models.ErrInvalidPriorityOrder
// (wrapped with detail) on any violation.
func ValidateOrder(newOrder, enabled []string) error {
	allowed := make(map[string]bool, len(enabled))
	for _, name := range enabled {
		allowed[name] = true
	}

	seen := make(map[string]bool, len(newOrder))
	for _, name := range newOrder {
		if !allowed[name] {
			return fmt.Errorf("%w: provider %q is not an enabled supplier", models.ErrInvalidPriorityOrder, name)
		}
		if seen[name] {
			return fmt.Errorf("%w: provider %q listed twice", models.ErrInvalidPriorityOrder, name)
		}
		seen[name] = true
	}
	for _, name := range enabled {
		if !seen[name] {
			return fmt.Errorf("%w: provider %q missing from order", models.ErrInvalidPriorityOrder, name)
		}
	}
	return nil
}

// Package reconcile derives requirement status, supplied quantities, PO
// balances and priority promotions from a snapshot of entities. Nothing in
// this package performs I/O.
package reconcile

import "refractory-tracker/internal/models"

// DeriveRequirementStatus is a pure function of the items' required and
// supplied quantities. An item requiring zero is treated as satisfied.
func DeriveRequirementStatus(items []models.RequirementItem) models.Status {
	if len(items) == 0 {
		return models.StatusPending
	}

	complete := true
	started := false
	for _, item := range items {
		if item.QuantitySupplied < item.QuantityRequired {
			complete = false
		}
		if item.QuantitySupplied > 0 {
			started = true
		}
	}

	switch {
	case complete:
		return models.StatusCompleted
	case started:
		return models.StatusInProgress
	default:
		return models.StatusPending
	}
}

// RemainingQuantity is what can still be supplied against the item.
func RemainingQuantity(item models.RequirementItem) int {
	if rem := item.QuantityRequired - item.QuantitySupplied; rem > 0 {
		return rem
	}
	return 0
}

// Progress totals required and supplied quantities over items.
func Progress(items []models.RequirementItem) (required, supplied int) {
	for _, item := range items {
		required += item.QuantityRequired
		supplied += item.QuantitySupplied
	}
	return required, supplied
}

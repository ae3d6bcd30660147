package reconcile

import "refractory-tracker/internal/models"

// ComputeNewPOBalance floors at zero. Oversupply against the PO balance is
// tolerated because balances and requirement allocations drift
// independently.
func ComputeNewPOBalance(item models.POItem, suppliedQty int) int {
	if b := item.BalanceQty - suppliedQty; b > 0 {
		return b
	}
	return 0
}

package reconcile

import (
	"strings"

	"github.com/juju/errors"

	"refractory-tracker/internal/models"
)

// ValidateSupplyAmount accepts 1..remaining for the item.
func ValidateSupplyAmount(item models.RequirementItem, requestedQty int) error {
	remaining := item.QuantityRequired - item.QuantitySupplied
	if requestedQty <= 0 || requestedQty > remaining {
		return &ValidationError{
			Code:      CodeOutOfRange,
			Material:  item.MaterialName,
			Requested: requestedQty,
			Available: max(remaining, 0),
		}
	}
	return nil
}

// ValidateRequirementSelection checks a requested quantity against the PO
// item's current balance. An empty balance is reported as NoStock.
func ValidateRequirementSelection(poItem models.POItem, requestedQty int) error {
	if poItem.BalanceQty == 0 {
		return &ValidationError{
			Code:      CodeNoStock,
			Material:  poItem.MaterialName,
			Requested: requestedQty,
		}
	}
	if requestedQty <= 0 || requestedQty > poItem.BalanceQty {
		return &ValidationError{
			Code:      CodeExceedsAvailable,
			Material:  poItem.MaterialName,
			Requested: requestedQty,
			Available: poItem.BalanceQty,
		}
	}
	return nil
}

// ValidatePOItems checks the structural rules of a PO's item list.
func ValidatePOItems(items []models.POItem) error {
	if len(items) == 0 {
		return errors.NotValidf("purchase order without items")
	}
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		name := strings.TrimSpace(item.MaterialName)
		if name == "" {
			return errors.NotValidf("item with empty material name")
		}
		if seen[name] {
			return errors.NotValidf("duplicate material %q", name)
		}
		seen[name] = true
		if item.Quantity < 0 {
			return errors.NotValidf("quantity %d for %q", item.Quantity, name)
		}
		if item.BalanceQty < 0 || item.BalanceQty > item.Quantity {
			return errors.NotValidf("balance %d for %q (quantity %d)", item.BalanceQty, name, item.Quantity)
		}
		if !item.Unit.Valid() {
			return errors.NotValidf("unit %q for %q", item.Unit, name)
		}
	}
	return nil
}

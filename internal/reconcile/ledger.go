package reconcile

import "refractory-tracker/internal/models"

// RecalculateSuppliedQuantities rebuilds every item's QuantitySupplied from
// the ledger entries that belong to req. Entries for other requirements, or
// for materials no longer on req, are ignored.
func RecalculateSuppliedQuantities(req models.Requirement, ledger []models.SupplyEvent) []models.RequirementItem {
	sums := make(map[string]int)
	for _, e := range ledger {
		if e.RequirementID == req.ID {
			sums[e.MaterialName] += e.Quantity
		}
	}

	items := make([]models.RequirementItem, len(req.SelectedItems))
	for i, item := range req.SelectedItems {
		item.QuantitySupplied = sums[item.MaterialName]
		items[i] = item
	}
	return items
}

// ApplyLedger returns req with supplied quantities and status re-derived
// from the ledger.
func ApplyLedger(req models.Requirement, ledger []models.SupplyEvent) models.Requirement {
	out := req.Clone()
	out.SelectedItems = RecalculateSuppliedQuantities(req, ledger)
	out.Status = DeriveRequirementStatus(out.SelectedItems)
	return out
}

func LedgerSum(ledger []models.SupplyEvent, requirementID, materialName string) int {
	total := 0
	for _, e := range ledger {
		if e.RequirementID == requirementID && e.MaterialName == materialName {
			total += e.Quantity
		}
	}
	return total
}

// LedgerFor returns the entries recorded against a requirement, optionally
// narrowed to one material.
func LedgerFor(ledger []models.SupplyEvent, requirementID, materialName string) []models.SupplyEvent {
	var out []models.SupplyEvent
	for _, e := range ledger {
		if e.RequirementID != requirementID {
			continue
		}
		if materialName != "" && e.MaterialName != materialName {
			continue
		}
		out = append(out, e)
	}
	return out
}

// SameItems reports whether two item lists carry identical quantities.
func SameItems(a, b []models.RequirementItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

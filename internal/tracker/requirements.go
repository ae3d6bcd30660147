package tracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/juju/errors"

	"refractory-tracker/internal/audit"
	"refractory-tracker/internal/models"
	"refractory-tracker/internal/reconcile"
	"refractory-tracker/internal/store"
)

type SelectionInput struct {
	MaterialName     string `json:"material_name"`
	QuantityRequired int    `json:"quantity_required"`
}

type RequirementInput struct {
	PONumber      string           `json:"po_number"`
	DeliveryDate  models.Date      `json:"delivery_date"`
	Priority      models.Priority  `json:"priority"`
	Notes         string           `json:"notes"`
	SelectedItems []SelectionInput `json:"selected_items"`
}

// RequirementPatch edits the fields that are set. Quantities maps material
// names already on the requirement to a new required quantity.
type RequirementPatch struct {
	DeliveryDate *models.Date     `json:"delivery_date"`
	Priority     *models.Priority `json:"priority"`
	Notes        *string          `json:"notes"`
	Quantities   map[string]int   `json:"quantities"`
}

// CreateRequirement validates every selection against the PO's current
// balances before anything is written. Balances are not reserved.
func (c *Coordinator) CreateRequirement(ctx context.Context, in RequirementInput) (models.Requirement, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	number := strings.TrimSpace(in.PONumber)
	if number == "" {
		return models.Requirement{}, errors.NotValidf("empty PO number")
	}
	if in.DeliveryDate.IsZero() {
		return models.Requirement{}, errors.NotValidf("missing delivery date")
	}
	priority := in.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return models.Requirement{}, errors.NotValidf("priority %q", priority)
	}
	if len(in.SelectedItems) == 0 {
		return models.Requirement{}, errors.NotValidf("requirement without items")
	}

	p := c.poIndexByNumber(number)
	if p < 0 {
		return models.Requirement{}, errors.NotFoundf("purchase order %q", number)
	}
	po := c.pos[p]

	items := make([]models.RequirementItem, 0, len(in.SelectedItems))
	seen := make(map[string]bool)
	for _, sel := range in.SelectedItems {
		name := strings.TrimSpace(sel.MaterialName)
		if seen[name] {
			return models.Requirement{}, errors.NotValidf("material %q selected twice", name)
		}
		seen[name] = true
		k := po.Item(name)
		if k < 0 {
			return models.Requirement{}, errors.NotFoundf("material %q on purchase order %s", name, number)
		}
		if err := reconcile.ValidateRequirementSelection(po.Items[k], sel.QuantityRequired); err != nil {
			return models.Requirement{}, err
		}
		items = append(items, models.RequirementItem{
			MaterialName:     name,
			QuantityRequired: sel.QuantityRequired,
			Unit:             po.Items[k].Unit,
		})
	}

	now := c.now()
	req := models.Requirement{
		ID:                uuid.NewString(),
		OwnerID:           c.ownerID,
		PONumber:          number,
		AreaOfApplication: po.AreaOfApplication,
		DeliveryDate:      in.DeliveryDate,
		Priority:          priority,
		Status:            models.StatusPending,
		Notes:             strings.TrimSpace(in.Notes),
		SelectedItems:     items,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	req = reconcile.ApplyUrgencyPromotion(req, c.cfg.UrgentThresholdDays, now)

	if _, err := c.cfg.Store.Insert(ctx, store.Requirements, store.RequirementToRecord(req)); err != nil {
		logger.Errorf("creating requirement for %s: %v", number, err)
		return models.Requirement{}, errors.Annotatef(err, "creating requirement for %s", number)
	}
	c.reqs = append(c.reqs, req)

	c.audit(ctx, audit.EntityRequirement, req.ID, models.AuditActionCreate,
		fmt.Sprintf("Created requirement for %s (%d items)", number, len(items)), nil, req)
	c.notify()
	return req.Clone(), nil
}

func (c *Coordinator) UpdateRequirement(ctx context.Context, id string, patch RequirementPatch) (models.Requirement, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.reqIndex(id)
	if i < 0 {
		return models.Requirement{}, errors.NotFoundf("requirement %q", id)
	}
	before := c.reqs[i]
	next := before.Clone()

	if patch.DeliveryDate != nil {
		if patch.DeliveryDate.IsZero() {
			return models.Requirement{}, errors.NotValidf("missing delivery date")
		}
		next.DeliveryDate = *patch.DeliveryDate
	}
	if patch.Priority != nil {
		if !patch.Priority.Valid() {
			return models.Requirement{}, errors.NotValidf("priority %q", *patch.Priority)
		}
		next.Priority = *patch.Priority
	}
	if patch.Notes != nil {
		next.Notes = strings.TrimSpace(*patch.Notes)
	}
	for name, qty := range patch.Quantities {
		k := next.Item(name)
		if k < 0 {
			return models.Requirement{}, errors.NotFoundf("material %q on requirement", name)
		}
		if qty <= 0 {
			return models.Requirement{}, errors.NotValidf("required quantity %d for %q", qty, name)
		}
		next.SelectedItems[k].QuantityRequired = qty
	}

	now := c.now()
	next.Status = reconcile.DeriveRequirementStatus(next.SelectedItems)
	next = reconcile.ApplyUrgencyPromotion(next, c.cfg.UrgentThresholdDays, now)
	next.UpdatedAt = now

	rec := store.RequirementToRecord(next).Pick(
		store.ColDeliveryDate, store.ColPriority, store.ColNotes,
		store.ColSelectedItems, store.ColStatus, store.ColUpdatedAt)
	if err := c.cfg.Store.Update(ctx, store.Requirements, id, rec); err != nil {
		logger.Errorf("updating requirement %s: %v", id, err)
		return models.Requirement{}, errors.Annotatef(err, "updating requirement %s", id)
	}
	c.reqs[i] = next

	c.audit(ctx, audit.EntityRequirement, id, models.AuditActionUpdate,
		fmt.Sprintf("Updated requirement for %s", next.PONumber), before, next)
	c.notify()
	return next.Clone(), nil
}

// DeleteRequirement removes the requirement and then each of its ledger
// entries. A failure part way leaves the remaining entries in place.
func (c *Coordinator) DeleteRequirement(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.reqIndex(id)
	if i < 0 {
		return errors.NotFoundf("requirement %q", id)
	}
	req := c.reqs[i]
	if err := c.cfg.Store.Delete(ctx, store.Requirements, id); err != nil {
		logger.Errorf("deleting requirement %s: %v", id, err)
		return errors.Annotatef(err, "deleting requirement %s", id)
	}
	c.reqs = append(c.reqs[:i:i], c.reqs[i+1:]...)
	c.notify()

	removed := 0
	for _, e := range reconcile.LedgerFor(c.ledger, id, "") {
		if err := c.cfg.Store.Delete(ctx, store.SupplyHistory, e.ID); err != nil {
			logger.Errorf("deleting supply event %s of requirement %s: %v", e.ID, id, err)
			return errors.Annotatef(err, "deleting supply history of requirement %s", id)
		}
		c.ledger = removeEvent(c.ledger, e.ID)
		removed++
	}

	c.audit(ctx, audit.EntityRequirement, id, models.AuditActionDelete,
		fmt.Sprintf("Deleted requirement for %s with %d supply entries", req.PONumber, removed), req, nil)
	return nil
}

func removeEvent(ledger []models.SupplyEvent, id string) []models.SupplyEvent {
	for i := range ledger {
		if ledger[i].ID == id {
			return append(ledger[:i:i], ledger[i+1:]...)
		}
	}
	return ledger
}

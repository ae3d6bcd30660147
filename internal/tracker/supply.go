package tracker

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/juju/errors"

	"refractory-tracker/internal/audit"
	"refractory-tracker/internal/models"
	"refractory-tracker/internal/reconcile"
	"refractory-tracker/internal/store"
)

type SupplyInput struct {
	RequirementID string      `json:"req_id"`
	MaterialName  string      `json:"material_name"`
	Quantity      int         `json:"quantity"`
	Date          models.Date `json:"date"`
	Notes         string      `json:"notes"`
}

// SupplyEdit changes the fields that are set on one ledger entry.
type SupplyEdit struct {
	ID       string       `json:"id"`
	Quantity *int         `json:"quantity"`
	Date     *models.Date `json:"date"`
	Notes    *string      `json:"notes"`
}

// RecordSupply appends a ledger entry, refreshes the requirement from the
// ledger and then lowers the PO balance, in that order. Each step runs only
// if the previous write succeeded; nothing is rolled back.
func (c *Coordinator) RecordSupply(ctx context.Context, in SupplyInput) (models.SupplyEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := c.reqIndex(in.RequirementID)
	if r < 0 {
		return models.SupplyEvent{}, errors.NotFoundf("requirement %q", in.RequirementID)
	}
	req := c.reqs[r]
	k := req.Item(in.MaterialName)
	if k < 0 {
		return models.SupplyEvent{}, errors.NotFoundf("material %q on requirement", in.MaterialName)
	}
	// Remaining quantity comes from the ledger, not the cached column.
	current := reconcile.ApplyLedger(req, c.ledger)
	if err := reconcile.ValidateSupplyAmount(current.SelectedItems[k], in.Quantity); err != nil {
		return models.SupplyEvent{}, err
	}

	now := c.now()
	date := in.Date
	if date.IsZero() {
		date = models.DateOf(now)
	}
	event := models.SupplyEvent{
		ID:            uuid.NewString(),
		OwnerID:       c.ownerID,
		RequirementID: req.ID,
		PONumber:      req.PONumber,
		MaterialName:  in.MaterialName,
		Quantity:      in.Quantity,
		Date:          date,
		Notes:         strings.TrimSpace(in.Notes),
		CreatedAt:     now,
	}

	// 1. ledger
	if _, err := c.cfg.Store.Insert(ctx, store.SupplyHistory, store.SupplyEventToRecord(event)); err != nil {
		logger.Errorf("recording supply for requirement %s: %v", req.ID, err)
		return models.SupplyEvent{}, errors.Annotatef(err, "recording supply for requirement %s", req.ID)
	}
	c.ledger = append(c.ledger, event)
	c.audit(ctx, audit.EntitySupplyEvent, event.ID, models.AuditActionCreate,
		fmt.Sprintf("Supplied %d %s of %s for %s", event.Quantity, req.SelectedItems[k].Unit, event.MaterialName, event.PONumber),
		nil, event)
	c.notify()

	// 2. requirement
	if err := c.saveRequirementDerived(ctx, r, reconcile.ApplyLedger(req, c.ledger)); err != nil {
		return models.SupplyEvent{}, errors.Annotate(err, "supply recorded")
	}
	c.audit(ctx, audit.EntityRequirement, req.ID, models.AuditActionUpdate,
		fmt.Sprintf("Requirement for %s is %s after supply", req.PONumber, c.reqs[r].Status),
		req, c.reqs[r])

	// 3. purchase order
	p := c.poIndexByNumber(req.PONumber)
	if p < 0 {
		logger.Warningf("requirement %s references missing purchase order %q, balance not updated", req.ID, req.PONumber)
		return event, nil
	}
	po := c.pos[p]
	m := po.Item(event.MaterialName)
	if m < 0 {
		logger.Warningf("purchase order %s has no material %q, balance not updated", po.PONumber, event.MaterialName)
		return event, nil
	}
	balance := reconcile.ComputeNewPOBalance(po.Items[m], event.Quantity)
	if balance == po.Items[m].BalanceQty {
		return event, nil
	}
	next := po.Clone()
	next.Items[m].BalanceQty = balance
	if err := c.savePOItems(ctx, p, next); err != nil {
		return models.SupplyEvent{}, errors.Annotate(err, "supply recorded")
	}
	c.audit(ctx, audit.EntityPurchaseOrder, po.ID, models.AuditActionUpdate,
		fmt.Sprintf("Balance of %s on %s lowered from %d to %d", event.MaterialName, po.PONumber, po.Items[m].BalanceQty, balance),
		po, c.pos[p])
	return event, nil
}

// EditSupplyHistory rewrites ledger entries and then recomputes every
// requirement they belong to. PO balances are not changed. A failed write
// stops the batch; entries already rewritten stay and are returned with
// the error.
func (c *Coordinator) EditSupplyHistory(ctx context.Context, edits []SupplyEdit) ([]models.SupplyEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, edit := range edits {
		if c.ledgerIndex(edit.ID) < 0 {
			return nil, errors.NotFoundf("supply event %q", edit.ID)
		}
		if edit.Quantity != nil && *edit.Quantity <= 0 {
			return nil, errors.NotValidf("supply quantity %d", *edit.Quantity)
		}
		if edit.Date != nil && edit.Date.IsZero() {
			return nil, errors.NotValidf("missing supply date")
		}
	}

	var (
		edited  []models.SupplyEvent
		touched []string
		editErr error
	)
	for _, edit := range edits {
		i := c.ledgerIndex(edit.ID)
		before := c.ledger[i]
		next := before
		if edit.Quantity != nil {
			next.Quantity = *edit.Quantity
		}
		if edit.Date != nil {
			next.Date = *edit.Date
		}
		if edit.Notes != nil {
			next.Notes = strings.TrimSpace(*edit.Notes)
		}

		rec := store.SupplyEventToRecord(next).Pick(store.ColQuantity, store.ColDate, store.ColNotes)
		rec[store.ColUpdatedAt] = c.now()
		if err := c.cfg.Store.Update(ctx, store.SupplyHistory, next.ID, rec); err != nil {
			logger.Errorf("editing supply event %s: %v", next.ID, err)
			editErr = errors.Annotatef(err, "editing supply event %s", next.ID)
			break
		}
		c.ledger[i] = next
		edited = append(edited, next)
		if !contains(touched, next.RequirementID) {
			touched = append(touched, next.RequirementID)
		}
		c.audit(ctx, audit.EntitySupplyEvent, next.ID, models.AuditActionUpdate,
			fmt.Sprintf("Edited supply of %s for %s", next.MaterialName, next.PONumber), before, next)
	}
	if len(edited) > 0 {
		c.notify()
	}

	// Edits that did land are folded into their requirements even when a
	// later one failed.
	for _, id := range touched {
		if err := c.recompute(ctx, id); err != nil && editErr == nil {
			editErr = errors.Trace(err)
		}
	}
	return edited, editErr
}

// DeleteSupplyEvent removes a ledger entry and recomputes its requirement.
// The PO balance is not restored.
func (c *Coordinator) DeleteSupplyEvent(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.ledgerIndex(id)
	if i < 0 {
		return errors.NotFoundf("supply event %q", id)
	}
	event := c.ledger[i]
	if err := c.cfg.Store.Delete(ctx, store.SupplyHistory, id); err != nil {
		logger.Errorf("deleting supply event %s: %v", id, err)
		return errors.Annotatef(err, "deleting supply event %s", id)
	}
	c.ledger = removeEvent(c.ledger, id)
	c.audit(ctx, audit.EntitySupplyEvent, id, models.AuditActionDelete,
		fmt.Sprintf("Deleted supply of %s for %s", event.MaterialName, event.PONumber), event, nil)
	c.notify()

	return errors.Trace(c.recompute(ctx, event.RequirementID))
}

func sortHistory(events []models.SupplyEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Date.Equal(events[j].Date.Time) {
			return events[i].Date.After(events[j].Date.Time)
		}
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})
}

func contains(ids []string, id string) bool {
	for _, other := range ids {
		if other == id {
			return true
		}
	}
	return false
}

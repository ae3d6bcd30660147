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

type POInput struct {
	PONumber          string          `json:"po_number"`
	PODate            models.Date     `json:"po_date"`
	AreaOfApplication string          `json:"area_of_application"`
	Items             []models.POItem `json:"items"`
}

// POItemPatch describes one item of an edited PO. A nil BalanceQty keeps
// the balance of an existing item, or starts a new item fully available.
type POItemPatch struct {
	MaterialName string      `json:"material_name"`
	Quantity     int         `json:"quantity"`
	BalanceQty   *int        `json:"balance_qty"`
	Unit         models.Unit `json:"unit"`
}

// POPatch replaces the fields that are set. A nil Items leaves the item
// list untouched.
type POPatch struct {
	PONumber          *string       `json:"po_number"`
	PODate            *models.Date  `json:"po_date"`
	AreaOfApplication *string       `json:"area_of_application"`
	Items             []POItemPatch `json:"items"`
}

func (c *Coordinator) CreatePO(ctx context.Context, in POInput) (models.PurchaseOrder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	number := strings.TrimSpace(in.PONumber)
	if number == "" {
		return models.PurchaseOrder{}, errors.NotValidf("empty PO number")
	}
	if c.poIndexByNumber(number) >= 0 {
		return models.PurchaseOrder{}, errors.AlreadyExistsf("purchase order %q", number)
	}
	items := make([]models.POItem, len(in.Items))
	for i, item := range in.Items {
		item.MaterialName = strings.TrimSpace(item.MaterialName)
		item.BalanceQty = item.Quantity
		items[i] = item
	}
	if err := reconcile.ValidatePOItems(items); err != nil {
		return models.PurchaseOrder{}, errors.Trace(err)
	}

	now := c.now()
	po := models.PurchaseOrder{
		ID:                uuid.NewString(),
		OwnerID:           c.ownerID,
		PONumber:          number,
		PODate:            in.PODate,
		AreaOfApplication: strings.TrimSpace(in.AreaOfApplication),
		Items:             items,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if _, err := c.cfg.Store.Insert(ctx, store.PurchaseOrders, store.PurchaseOrderToRecord(po)); err != nil {
		logger.Errorf("creating purchase order %s: %v", number, err)
		return models.PurchaseOrder{}, errors.Annotatef(err, "creating purchase order %s", number)
	}
	c.pos = append(c.pos, po)

	c.audit(ctx, audit.EntityPurchaseOrder, po.ID, models.AuditActionCreate,
		fmt.Sprintf("Created purchase order %s", po.PONumber), nil, po)
	c.notify()
	return po.Clone(), nil
}

func (c *Coordinator) UpdatePO(ctx context.Context, id string, patch POPatch) (models.PurchaseOrder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.poIndex(id)
	if i < 0 {
		return models.PurchaseOrder{}, errors.NotFoundf("purchase order %q", id)
	}
	before := c.pos[i]
	next := before.Clone()

	if patch.PONumber != nil {
		number := strings.TrimSpace(*patch.PONumber)
		if number == "" {
			return models.PurchaseOrder{}, errors.NotValidf("empty PO number")
		}
		if j := c.poIndexByNumber(number); j >= 0 && j != i {
			return models.PurchaseOrder{}, errors.AlreadyExistsf("purchase order %q", number)
		}
		next.PONumber = number
	}
	if patch.PODate != nil {
		next.PODate = *patch.PODate
	}
	if patch.AreaOfApplication != nil {
		next.AreaOfApplication = strings.TrimSpace(*patch.AreaOfApplication)
	}
	if patch.Items != nil {
		next.Items = mergePOItems(before, patch.Items)
	}
	if err := reconcile.ValidatePOItems(next.Items); err != nil {
		return models.PurchaseOrder{}, errors.Trace(err)
	}

	next.UpdatedAt = c.now()
	rec := store.PurchaseOrderToRecord(next).Pick(
		store.ColPONumber, store.ColPODate, store.ColAreaOfApplication, store.ColItems, store.ColUpdatedAt)
	if err := c.cfg.Store.Update(ctx, store.PurchaseOrders, id, rec); err != nil {
		logger.Errorf("updating purchase order %s: %v", id, err)
		return models.PurchaseOrder{}, errors.Annotatef(err, "updating purchase order %s", id)
	}
	c.pos[i] = next

	c.audit(ctx, audit.EntityPurchaseOrder, id, models.AuditActionUpdate,
		fmt.Sprintf("Updated purchase order %s", next.PONumber), before, next)
	c.notify()
	return next.Clone(), nil
}

func mergePOItems(po models.PurchaseOrder, patch []POItemPatch) []models.POItem {
	items := make([]models.POItem, len(patch))
	for k, p := range patch {
		name := strings.TrimSpace(p.MaterialName)
		balance := p.Quantity
		switch {
		case p.BalanceQty != nil:
			balance = *p.BalanceQty
		case po.Item(name) >= 0:
			balance = po.Items[po.Item(name)].BalanceQty
		}
		if balance > p.Quantity {
			balance = p.Quantity
		}
		items[k] = models.POItem{
			MaterialName: name,
			Quantity:     p.Quantity,
			BalanceQty:   balance,
			Unit:         p.Unit,
		}
	}
	return items
}

// DeletePO removes the PO only. Requirements that reference its number are
// left in place; their supply no longer adjusts any balance.
func (c *Coordinator) DeletePO(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.poIndex(id)
	if i < 0 {
		return errors.NotFoundf("purchase order %q", id)
	}
	po := c.pos[i]
	if err := c.cfg.Store.Delete(ctx, store.PurchaseOrders, id); err != nil {
		logger.Errorf("deleting purchase order %s: %v", id, err)
		return errors.Annotatef(err, "deleting purchase order %s", id)
	}
	c.pos = append(c.pos[:i:i], c.pos[i+1:]...)

	if po.Document != nil {
		c.dropDocument(ctx, po.Document.Path)
	}
	c.audit(ctx, audit.EntityPurchaseOrder, id, models.AuditActionDelete,
		fmt.Sprintf("Deleted purchase order %s", po.PONumber), po, nil)
	c.notify()
	return nil
}

// AdjustPOBalance sets the balance of one item directly.
func (c *Coordinator) AdjustPOBalance(ctx context.Context, id, materialName string, balance int) (models.PurchaseOrder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.poIndex(id)
	if i < 0 {
		return models.PurchaseOrder{}, errors.NotFoundf("purchase order %q", id)
	}
	before := c.pos[i]
	k := before.Item(materialName)
	if k < 0 {
		return models.PurchaseOrder{}, errors.NotFoundf("material %q on purchase order %s", materialName, before.PONumber)
	}
	if balance < 0 || balance > before.Items[k].Quantity {
		return models.PurchaseOrder{}, errors.NotValidf("balance %d for %q (quantity %d)", balance, materialName, before.Items[k].Quantity)
	}

	next := before.Clone()
	next.Items[k].BalanceQty = balance
	if err := c.savePOItems(ctx, i, next); err != nil {
		return models.PurchaseOrder{}, err
	}

	c.audit(ctx, audit.EntityPurchaseOrder, id, models.AuditActionUpdate,
		fmt.Sprintf("Set balance of %s on %s to %d", materialName, next.PONumber, balance), before, next)
	c.notify()
	return next.Clone(), nil
}

func (c *Coordinator) savePOItems(ctx context.Context, i int, next models.PurchaseOrder) error {
	next.UpdatedAt = c.now()
	rec := store.Record{
		store.ColItems:     store.ItemsValue(next.Items),
		store.ColUpdatedAt: next.UpdatedAt,
	}
	if err := c.cfg.Store.Update(ctx, store.PurchaseOrders, next.ID, rec); err != nil {
		logger.Errorf("updating balances of purchase order %s: %v", next.ID, err)
		return errors.Annotatef(err, "updating balances of purchase order %s", next.PONumber)
	}
	c.pos[i] = next
	return nil
}

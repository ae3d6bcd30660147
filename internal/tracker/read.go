package tracker

import (
	"github.com/juju/errors"

	"refractory-tracker/internal/models"
	"refractory-tracker/internal/reconcile"
)

// Snapshot is a copy of a session's entities.
type Snapshot struct {
	PurchaseOrders []models.PurchaseOrder
	Requirements   []models.Requirement
	Ledger         []models.SupplyEvent
}

func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		PurchaseOrders: c.purchaseOrders(),
		Requirements:   c.requirements(),
		Ledger:         append([]models.SupplyEvent(nil), c.ledger...),
	}
}

func (c *Coordinator) PurchaseOrders() []models.PurchaseOrder {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.purchaseOrders()
}

func (c *Coordinator) purchaseOrders() []models.PurchaseOrder {
	out := make([]models.PurchaseOrder, len(c.pos))
	for i, po := range c.pos {
		out[i] = po.Clone()
	}
	return out
}

func (c *Coordinator) Requirements() []models.Requirement {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requirements()
}

func (c *Coordinator) requirements() []models.Requirement {
	out := make([]models.Requirement, len(c.reqs))
	for i, r := range c.reqs {
		out[i] = r.Clone()
	}
	return out
}

func (c *Coordinator) Ledger() []models.SupplyEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.SupplyEvent(nil), c.ledger...)
}

func (c *Coordinator) PurchaseOrder(id string) (models.PurchaseOrder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.poIndex(id)
	if i < 0 {
		return models.PurchaseOrder{}, errors.NotFoundf("purchase order %q", id)
	}
	return c.pos[i].Clone(), nil
}

func (c *Coordinator) Requirement(id string) (models.Requirement, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.reqIndex(id)
	if i < 0 {
		return models.Requirement{}, errors.NotFoundf("requirement %q", id)
	}
	return c.reqs[i].Clone(), nil
}

// History lists ledger entries, newest supply date first. Empty arguments
// widen the filter.
func (c *Coordinator) History(requirementID, materialName string) []models.SupplyEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []models.SupplyEvent
	for _, e := range c.ledger {
		if requirementID != "" && e.RequirementID != requirementID {
			continue
		}
		if materialName != "" && e.MaterialName != materialName {
			continue
		}
		out = append(out, e)
	}
	sortHistory(out)
	return out
}

// SupplyQueue lists open requirements matching the PO number query in the
// order they should be supplied.
func (c *Coordinator) SupplyQueue(poNumberQuery string) []models.Requirement {
	c.mu.Lock()
	defer c.mu.Unlock()
	return reconcile.ActiveQueue(reconcile.FilterByPONumber(c.requirements(), poNumberQuery))
}

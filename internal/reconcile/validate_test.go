package reconcile_test

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/juju/errors"

	"refractory-tracker/internal/models"
	"refractory-tracker/internal/reconcile"
)

func TestComputeNewPOBalance(t *testing.T) {
	c := qt.New(t)
	po := models.POItem{MaterialName: "A", Quantity: 100, BalanceQty: 20}
	c.Assert(reconcile.ComputeNewPOBalance(po, 5), qt.Equals, 15)
	c.Assert(reconcile.ComputeNewPOBalance(po, 20), qt.Equals, 0)
	c.Assert(reconcile.ComputeNewPOBalance(po, 30), qt.Equals, 0)
}

func TestValidateSupplyAmount(t *testing.T) {
	c := qt.New(t)
	it := item("A", 10, 4)

	c.Assert(reconcile.ValidateSupplyAmount(it, 1), qt.IsNil)
	c.Assert(reconcile.ValidateSupplyAmount(it, 6), qt.IsNil)

	for _, qty := range []int{0, -1, 7} {
		err := reconcile.ValidateSupplyAmount(it, qty)
		c.Assert(err, qt.ErrorIs, reconcile.ErrOutOfRange)
		var verr *reconcile.ValidationError
		c.Assert(errors.As(err, &verr), qt.IsTrue)
		c.Assert(verr.Available, qt.Equals, 6)
		c.Assert(verr.Requested, qt.Equals, qty)
	}
}

func TestValidateRequirementSelection(t *testing.T) {
	c := qt.New(t)
	po := models.POItem{MaterialName: "A", Quantity: 100, BalanceQty: 30}

	c.Assert(reconcile.ValidateRequirementSelection(po, 30), qt.IsNil)

	err := reconcile.ValidateRequirementSelection(po, 31)
	c.Assert(err, qt.ErrorIs, reconcile.ErrExceedsAvailable)
	c.Assert(err, qt.Not(qt.ErrorIs), reconcile.ErrNoStock)

	err = reconcile.ValidateRequirementSelection(po, 0)
	c.Assert(err, qt.ErrorIs, reconcile.ErrExceedsAvailable)

	po.BalanceQty = 0
	err = reconcile.ValidateRequirementSelection(po, 1)
	c.Assert(err, qt.ErrorIs, reconcile.ErrNoStock)
	c.Assert(err, qt.ErrorIs, reconcile.ErrExceedsAvailable)
	c.Assert(err, qt.ErrorMatches, `no stock left for "A"`)
}

func TestValidatePOItems(t *testing.T) {
	good := models.POItem{MaterialName: "Brick", Quantity: 10, BalanceQty: 10, Unit: models.UnitPcs}
	tests := []struct {
		about string
		items []models.POItem
		err   string
	}{{
		about: "valid",
		items: []models.POItem{good},
	}, {
		about: "empty",
		err:   "purchase order without items not valid",
	}, {
		about: "blank name",
		items: []models.POItem{{MaterialName: " ", Quantity: 1, BalanceQty: 1, Unit: models.UnitPcs}},
		err:   "item with empty material name not valid",
	}, {
		about: "duplicate",
		items: []models.POItem{good, good},
		err:   `duplicate material "Brick" not valid`,
	}, {
		about: "balance above quantity",
		items: []models.POItem{{MaterialName: "Brick", Quantity: 1, BalanceQty: 2, Unit: models.UnitPcs}},
		err:   `balance 2 for "Brick" \(quantity 1\) not valid`,
	}, {
		about: "bad unit",
		items: []models.POItem{{MaterialName: "Brick", Quantity: 1, BalanceQty: 1, Unit: "tons"}},
		err:   `unit "tons" for "Brick" not valid`,
	}}
	for _, test := range tests {
		c := qt.New(t)
		c.Run(test.about, func(c *qt.C) {
			err := reconcile.ValidatePOItems(test.items)
			if test.err == "" {
				c.Assert(err, qt.IsNil)
				return
			}
			c.Assert(err, qt.ErrorMatches, test.err)
			c.Assert(errors.Is(err, errors.NotValid), qt.IsTrue)
		})
	}
}

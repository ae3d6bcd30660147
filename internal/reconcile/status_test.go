package reconcile_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"refractory-tracker/internal/models"
	"refractory-tracker/internal/reconcile"
)

func item(name string, required, supplied int) models.RequirementItem {
	return models.RequirementItem{
		MaterialName:     name,
		QuantityRequired: required,
		QuantitySupplied: supplied,
		Unit:             models.UnitPcs,
	}
}

func TestDeriveRequirementStatus(t *testing.T) {
	tests := []struct {
		about string
		items []models.RequirementItem
		want  models.Status
	}{{
		about: "nothing supplied",
		items: []models.RequirementItem{item("A", 10, 0), item("B", 5, 0)},
		want:  models.StatusPending,
	}, {
		about: "partially supplied",
		items: []models.RequirementItem{item("A", 10, 3), item("B", 5, 0)},
		want:  models.StatusInProgress,
	}, {
		about: "one item complete, one untouched",
		items: []models.RequirementItem{item("A", 10, 10), item("B", 5, 0)},
		want:  models.StatusInProgress,
	}, {
		about: "all complete",
		items: []models.RequirementItem{item("A", 10, 10), item("B", 5, 5)},
		want:  models.StatusCompleted,
	}, {
		about: "oversupplied still complete",
		items: []models.RequirementItem{item("A", 10, 12)},
		want:  models.StatusCompleted,
	}, {
		about: "no items",
		want:  models.StatusPending,
	}}
	for _, test := range tests {
		c := qt.New(t)
		c.Run(test.about, func(c *qt.C) {
			c.Assert(reconcile.DeriveRequirementStatus(test.items), qt.Equals, test.want)
		})
	}
}

func TestRemainingAndProgress(t *testing.T) {
	c := qt.New(t)
	c.Assert(reconcile.RemainingQuantity(item("A", 10, 4)), qt.Equals, 6)
	c.Assert(reconcile.RemainingQuantity(item("A", 10, 12)), qt.Equals, 0)

	required, supplied := reconcile.Progress([]models.RequirementItem{item("A", 10, 4), item("B", 5, 5)})
	c.Assert(required, qt.Equals, 15)
	c.Assert(supplied, qt.Equals, 9)
}

package reconcile_test

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"refractory-tracker/internal/models"
	"refractory-tracker/internal/reconcile"
)

var now = time.Date(2024, time.March, 10, 9, 30, 0, 0, time.UTC)

func TestDaysUntilDelivery(t *testing.T) {
	c := qt.New(t)
	c.Assert(reconcile.DaysUntilDelivery(models.NewDate(2024, time.March, 10), now), qt.Equals, 0)
	c.Assert(reconcile.DaysUntilDelivery(models.NewDate(2024, time.March, 11), now), qt.Equals, 1)
	c.Assert(reconcile.DaysUntilDelivery(models.NewDate(2024, time.March, 15), now), qt.Equals, 5)
	c.Assert(reconcile.DaysUntilDelivery(models.NewDate(2024, time.March, 9), now), qt.Equals, -1)
}

func TestIsDeliveryDueSoon(t *testing.T) {
	tests := []struct {
		about    string
		delivery models.Date
		want     bool
	}{{
		about:    "today",
		delivery: models.NewDate(2024, time.March, 10),
		want:     true,
	}, {
		about:    "at threshold",
		delivery: models.NewDate(2024, time.March, 15),
		want:     true,
	}, {
		about:    "past threshold",
		delivery: models.NewDate(2024, time.March, 16),
		want:     false,
	}, {
		about:    "overdue",
		delivery: models.NewDate(2024, time.March, 8),
		want:     false,
	}, {
		about: "no date",
		want:  false,
	}}
	for _, test := range tests {
		c := qt.New(t)
		c.Run(test.about, func(c *qt.C) {
			got := reconcile.IsDeliveryDueSoon(test.delivery, reconcile.DefaultUrgentThresholdDays, now)
			c.Assert(got, qt.Equals, test.want)
		})
	}
}

func TestApplyUrgencyPromotion(t *testing.T) {
	base := models.Requirement{
		ID:           "r1",
		Priority:     models.PriorityLow,
		Status:       models.StatusPending,
		DeliveryDate: models.NewDate(2024, time.March, 13),
	}
	tests := []struct {
		about  string
		mutate func(*models.Requirement)
		want   models.Priority
	}{{
		about:  "due soon is promoted",
		mutate: func(*models.Requirement) {},
		want:   models.PriorityUrgent,
	}, {
		about:  "in progress is promoted",
		mutate: func(r *models.Requirement) { r.Status = models.StatusInProgress },
		want:   models.PriorityUrgent,
	}, {
		about:  "completed is left alone",
		mutate: func(r *models.Requirement) { r.Status = models.StatusCompleted },
		want:   models.PriorityLow,
	}, {
		about: "far delivery is left alone",
		mutate: func(r *models.Requirement) {
			r.DeliveryDate = models.NewDate(2024, time.April, 1)
		},
		want: models.PriorityLow,
	}, {
		about: "overdue is left alone",
		mutate: func(r *models.Requirement) {
			r.DeliveryDate = models.NewDate(2024, time.March, 1)
		},
		want: models.PriorityLow,
	}}
	for _, test := range tests {
		c := qt.New(t)
		c.Run(test.about, func(c *qt.C) {
			req := base.Clone()
			test.mutate(&req)
			got := reconcile.ApplyUrgencyPromotion(req, reconcile.DefaultUrgentThresholdDays, now)
			c.Assert(got.Priority, qt.Equals, test.want)
			c.Assert(req.Priority, qt.Equals, models.PriorityLow)
		})
	}
}

func TestApplyUrgencyPromotionNeverDemotes(t *testing.T) {
	c := qt.New(t)
	req := models.Requirement{
		Priority:     models.PriorityUrgent,
		Status:       models.StatusPending,
		DeliveryDate: models.NewDate(2025, time.January, 1),
	}
	got := reconcile.ApplyUrgencyPromotion(req, reconcile.DefaultUrgentThresholdDays, now)
	c.Assert(got.Priority, qt.Equals, models.PriorityUrgent)
}

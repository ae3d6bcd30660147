package reconcile

import (
	"math"
	"time"

	"refractory-tracker/internal/models"
)

// DefaultUrgentThresholdDays is how close a delivery date must be before an
// open requirement is promoted to Urgent.
const DefaultUrgentThresholdDays = 5

// DaysUntilDelivery rounds up partial days, so a delivery later today is 0
// and one that was due yesterday is -1.
func DaysUntilDelivery(delivery models.Date, now time.Time) int {
	diff := delivery.Time.Sub(now)
	return int(math.Ceil(diff.Hours() / 24))
}

func IsDeliveryDueSoon(delivery models.Date, thresholdDays int, now time.Time) bool {
	if delivery.IsZero() {
		return false
	}
	days := DaysUntilDelivery(delivery, now)
	return days >= 0 && days <= thresholdDays
}

// ApplyUrgencyPromotion raises an open requirement to Urgent when its
// delivery is due within thresholdDays. It never lowers a priority and
// never touches completed requirements.
func ApplyUrgencyPromotion(req models.Requirement, thresholdDays int, now time.Time) models.Requirement {
	if req.Status == models.StatusCompleted || req.Priority == models.PriorityUrgent {
		return req
	}
	if !IsDeliveryDueSoon(req.DeliveryDate, thresholdDays, now) {
		return req
	}
	out := req.Clone()
	out.Priority = models.PriorityUrgent
	return out
}

package reconcile

import (
	"sort"
	"strings"

	"refractory-tracker/internal/models"
)

// ActiveQueue lists open requirements, Urgent first, then by earliest
// delivery date.
func ActiveQueue(reqs []models.Requirement) []models.Requirement {
	var out []models.Requirement
	for _, r := range reqs {
		if r.Status != models.StatusCompleted {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Priority.Rank(), out[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		return out[i].DeliveryDate.Before(out[j].DeliveryDate.Time)
	})
	return out
}

// FilterByPONumber does a case-insensitive substring match. An empty query
// returns reqs unchanged.
func FilterByPONumber(reqs []models.Requirement, query string) []models.Requirement {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return reqs
	}
	var out []models.Requirement
	for _, r := range reqs {
		if strings.Contains(strings.ToLower(r.PONumber), q) {
			out = append(out, r)
		}
	}
	return out
}

// Package dashboard derives read-only views over a session's requirements:
// the summary cards, analytics and the spreadsheet report.
package dashboard

import (
	"sort"

	"github.com/shopspring/decimal"

	"refractory-tracker/internal/models"
	"refractory-tracker/internal/reconcile"
)

const recentLimit = 10

var hundred = decimal.NewFromInt(100)

// percent is part/whole as a percentage rounded to 2 places; 0 when whole is 0.
func percent(part, whole int) decimal.Decimal {
	if whole == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(part)).Mul(hundred).DivRound(decimal.NewFromInt(int64(whole)), 2)
}

type Summary struct {
	Active         int                  `json:"active"`
	Completed      int                  `json:"completed"`
	InProgress     int                  `json:"in_progress"`
	Pending        int                  `json:"pending"`
	Total          int                  `json:"total"`
	CompletionRate decimal.Decimal      `json:"completion_rate"`
	Urgent         []models.Requirement `json:"urgent"`
	Recent         []models.Requirement `json:"recent"`
}

// Summarize counts requirements by status. Urgent lists open Urgent
// requirements by delivery date; Recent the newest by creation time.
func Summarize(reqs []models.Requirement) Summary {
	s := Summary{
		Total:  len(reqs),
		Urgent: []models.Requirement{},
		Recent: []models.Requirement{},
	}
	for _, r := range reqs {
		switch r.Status {
		case models.StatusCompleted:
			s.Completed++
		case models.StatusInProgress:
			s.InProgress++
		default:
			s.Pending++
		}
	}
	s.Active = s.Total - s.Completed
	s.CompletionRate = percent(s.Completed, s.Total)

	for _, r := range reconcile.ActiveQueue(reqs) {
		if r.Priority != models.PriorityUrgent {
			break
		}
		s.Urgent = append(s.Urgent, r)
	}

	recent := append([]models.Requirement(nil), reqs...)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].CreatedAt.After(recent[j].CreatedAt)
	})
	if len(recent) > recentLimit {
		recent = recent[:recentLimit]
	}
	s.Recent = append(s.Recent, recent...)
	return s
}

package dashboard

import (
	"sort"

	"github.com/shopspring/decimal"

	"refractory-tracker/internal/models"
	"refractory-tracker/internal/reconcile"
)

const topMaterials = 10

type KeyMetrics struct {
	TotalRequired      int             `json:"total_required"`
	TotalSupplied      int             `json:"total_supplied"`
	TotalPending       int             `json:"total_pending"`
	OverallEfficiency  decimal.Decimal `json:"overall_efficiency"`
	UrgentCount        int             `json:"urgent_count"`
	CompletedCount     int             `json:"completed_count"`
	PurchaseOrderCount int             `json:"purchase_order_count"`
}

// Consumption totals quantities for one grouping key: an area of
// application, a material or a month.
type Consumption struct {
	Key        string          `json:"key"`
	Required   int             `json:"required"`
	Supplied   int             `json:"supplied"`
	Pending    int             `json:"pending"`
	Efficiency decimal.Decimal `json:"efficiency"`
}

type Share struct {
	Name       string          `json:"name"`
	Count      int             `json:"count"`
	Percentage decimal.Decimal `json:"percentage"`
}

type Analytics struct {
	Metrics              KeyMetrics    `json:"metrics"`
	AreaConsumption      []Consumption `json:"area_consumption"`
	MaterialConsumption  []Consumption `json:"material_consumption"`
	MonthlyTrends        []Consumption `json:"monthly_trends"`
	PriorityDistribution []Share       `json:"priority_distribution"`
	StatusDistribution   []Share       `json:"status_distribution"`
}

type tally struct {
	required, supplied int
}

func (t tally) consumption(key string) Consumption {
	return Consumption{
		Key:        key,
		Required:   t.required,
		Supplied:   t.supplied,
		Pending:    t.required - t.supplied,
		Efficiency: percent(t.supplied, t.required),
	}
}

type tallies map[string]*tally

func (ts tallies) add(key string, required, supplied int) {
	t := ts[key]
	if t == nil {
		t = &tally{}
		ts[key] = t
	}
	t.required += required
	t.supplied += supplied
}

func (ts tallies) list() []Consumption {
	out := make([]Consumption, 0, len(ts))
	for key, t := range ts {
		out = append(out, t.consumption(key))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Analyze computes the analytics view. Month keys are the requirement
// creation month as YYYY-MM in UTC.
func Analyze(pos []models.PurchaseOrder, reqs []models.Requirement) Analytics {
	areas := tallies{}
	materials := tallies{}
	months := tallies{}
	priorities := map[models.Priority]int{}
	statuses := map[models.Status]int{}

	var a Analytics
	for _, r := range reqs {
		required, supplied := reconcile.Progress(r.SelectedItems)
		a.Metrics.TotalRequired += required
		a.Metrics.TotalSupplied += supplied
		if r.Priority == models.PriorityUrgent {
			a.Metrics.UrgentCount++
		}
		if r.Status == models.StatusCompleted {
			a.Metrics.CompletedCount++
		}

		areas.add(r.AreaOfApplication, required, supplied)
		months.add(r.CreatedAt.UTC().Format("2006-01"), required, supplied)
		for _, item := range r.SelectedItems {
			materials.add(item.MaterialName, item.QuantityRequired, item.QuantitySupplied)
		}
		priorities[r.Priority]++
		statuses[r.Status]++
	}
	a.Metrics.TotalPending = a.Metrics.TotalRequired - a.Metrics.TotalSupplied
	a.Metrics.OverallEfficiency = percent(a.Metrics.TotalSupplied, a.Metrics.TotalRequired)
	a.Metrics.PurchaseOrderCount = len(pos)

	a.AreaConsumption = areas.list()
	a.MonthlyTrends = months.list()

	a.MaterialConsumption = materials.list()
	sort.SliceStable(a.MaterialConsumption, func(i, j int) bool {
		return a.MaterialConsumption[i].Required > a.MaterialConsumption[j].Required
	})
	if len(a.MaterialConsumption) > topMaterials {
		a.MaterialConsumption = a.MaterialConsumption[:topMaterials]
	}

	a.PriorityDistribution = []Share{}
	for _, p := range []models.Priority{models.PriorityUrgent, models.PriorityHigh, models.PriorityMedium, models.PriorityLow} {
		if n := priorities[p]; n > 0 {
			a.PriorityDistribution = append(a.PriorityDistribution, Share{Name: string(p), Count: n, Percentage: percent(n, len(reqs))})
		}
	}
	a.StatusDistribution = []Share{}
	for _, s := range []models.Status{models.StatusPending, models.StatusInProgress, models.StatusCompleted} {
		if n := statuses[s]; n > 0 {
			a.StatusDistribution = append(a.StatusDistribution, Share{Name: string(s), Count: n, Percentage: percent(n, len(reqs))})
		}
	}
	return a
}

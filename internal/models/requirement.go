package models

import (
	"time"

	"gorm.io/datatypes"
)

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
	PriorityUrgent Priority = "Urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Rank orders priorities for the supply queue, Urgent first.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 1
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 3
	case PriorityLow:
		return 4
	}
	return 5
}

type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

// RequirementItem: QuantitySupplied is a cache of the supply ledger.
type RequirementItem struct {
	MaterialName     string `json:"material_name"`
	QuantityRequired int    `json:"quantity_required"`
	QuantitySupplied int    `json:"quantity_supplied"`
	Unit             Unit   `json:"unit"`
}

type Requirement struct {
	ID                string            `json:"id"`
	OwnerID           string            `json:"user_id"`
	PONumber          string            `json:"po_number"`
	AreaOfApplication string            `json:"area_of_application"`
	DeliveryDate      Date              `json:"delivery_date"`
	Priority          Priority          `json:"priority"`
	Status            Status            `json:"status"`
	Notes             string            `json:"notes"`
	SelectedItems     []RequirementItem `json:"selected_items"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

func (r *Requirement) Item(materialName string) int {
	for i := range r.SelectedItems {
		if r.SelectedItems[i].MaterialName == materialName {
			return i
		}
	}
	return -1
}

func (r Requirement) Clone() Requirement {
	out := r
	out.SelectedItems = append([]RequirementItem(nil), r.SelectedItems...)
	return out
}

// RequirementRow is the requirements table schema.
type RequirementRow struct {
	ID                string         `gorm:"primaryKey;size:36"`
	UserID            string         `gorm:"size:36;index;not null"`
	PONumber          string         `gorm:"column:po_number;size:100;index;not null"`
	AreaOfApplication string         `gorm:"size:255"`
	DeliveryDate      string         `gorm:"size:10"`
	Priority          string         `gorm:"size:20;not null"`
	Status            string         `gorm:"size:20;not null"`
	Notes             *string        `gorm:"type:text"`
	SelectedItems     datatypes.JSON `gorm:"not null"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (RequirementRow) TableName() string { return "requirements" }

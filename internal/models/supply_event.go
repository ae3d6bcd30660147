package models

import "time"

// SupplyEvent: append-only ledger entry, the source of truth for supplied quantities.
type SupplyEvent struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"user_id"`
	RequirementID string    `json:"req_id"`
	PONumber      string    `json:"po_number"`
	MaterialName  string    `json:"material_name"`
	Quantity      int       `json:"quantity"`
	Date          Date      `json:"date"`
	Notes         string    `json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
}

// SupplyEventRow is the supply_history table schema.
type SupplyEventRow struct {
	ID           string  `gorm:"primaryKey;size:36"`
	UserID       string  `gorm:"size:36;index;not null"`
	ReqID        string  `gorm:"column:req_id;size:36;index;not null"`
	PONumber     string  `gorm:"column:po_number;size:100"`
	MaterialName string  `gorm:"size:255;not null"`
	Quantity     int     `gorm:"not null"`
	Date         string  `gorm:"size:10"`
	Notes        *string `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (SupplyEventRow) TableName() string { return "supply_history" }

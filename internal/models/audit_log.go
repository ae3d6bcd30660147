package models

import "time"

type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
)

type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UserID string `gorm:"size:36;index" json:"user_id"`

	// purchase_order, requirement, supply_event
	EntityType string `gorm:"size:50;index" json:"entity_type"`
	EntityID   string `gorm:"size:36;index" json:"entity_id"`

	Action      AuditAction `gorm:"size:20" json:"action"`
	Description string      `gorm:"size:255" json:"description"`

	// Before and after snapshots as JSON
	BeforeData string `gorm:"type:text" json:"before_data"`
	AfterData  string `gorm:"type:text" json:"after_data"`
}

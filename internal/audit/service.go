package audit

import (
	"context"
	"encoding/json"

	"github.com/juju/errors"
	"gorm.io/gorm"

	"refractory-tracker/internal/models"
)

const (
	EntityPurchaseOrder = "purchase_order"
	EntityRequirement   = "requirement"
	EntitySupplyEvent   = "supply_event"
)

type LogOptions struct {
	UserID      string
	EntityType  string
	EntityID    string
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// Writer appends audit rows. Rows are never updated.
type Writer struct {
	db *gorm.DB
}

func NewWriter(db *gorm.DB) *Writer {
	return &Writer{db: db}
}

func (w *Writer) WriteLog(ctx context.Context, opts LogOptions) error {
	log := models.AuditLog{
		UserID:      opts.UserID,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  snapshot(opts.Before),
		AfterData:   snapshot(opts.After),
	}
	if err := w.db.WithContext(ctx).Create(&log).Error; err != nil {
		return errors.Annotatef(err, "writing audit log for %s %s", opts.EntityType, opts.EntityID)
	}
	return nil
}

// snapshot encodes v as JSON; a missing side is stored as "null" so the
// column always holds valid JSON.
func snapshot(v any) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

type ListOptions struct {
	UserID     string
	EntityType string
	EntityID   string
	Limit      int
}

// List returns the newest rows first.
func (w *Writer) List(ctx context.Context, opts ListOptions) ([]models.AuditLog, error) {
	q := w.db.WithContext(ctx).Model(&models.AuditLog{}).Where("user_id = ?", opts.UserID)
	if opts.EntityType != "" {
		q = q.Where("entity_type = ?", opts.EntityType)
	}
	if opts.EntityID != "" {
		q = q.Where("entity_id = ?", opts.EntityID)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	var logs []models.AuditLog
	if err := q.Order("created_at DESC, id DESC").Find(&logs).Error; err != nil {
		return nil, errors.Annotate(err, "listing audit logs")
	}
	return logs, nil
}

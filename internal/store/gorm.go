package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/juju/loggo"
	"gorm.io/gorm"

	"refractory-tracker/internal/models"
)

var logger = loggo.GetLogger("store.gorm")

// GormStore keeps each table in the schema described by its models row
// type. Writes go through column maps so a patch only touches the columns
// it names.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func modelFor(table Table) (any, error) {
	switch table {
	case PurchaseOrders:
		return &models.PurchaseOrderRow{}, nil
	case Requirements:
		return &models.RequirementRow{}, nil
	case SupplyHistory:
		return &models.SupplyEventRow{}, nil
	}
	return nil, errors.NotValidf("table %q", table)
}

func (s *GormStore) Insert(ctx context.Context, table Table, rec Record) (Record, error) {
	model, err := modelFor(table)
	if err != nil {
		return nil, &StoreError{Op: "insert", Table: table, Err: err}
	}
	row := rec.Clone()
	if id, _ := row[ColID].(string); id == "" {
		row[ColID] = uuid.NewString()
	}
	id := row[ColID].(string)

	if err := s.db.WithContext(ctx).Model(model).Create(map[string]any(row)).Error; err != nil {
		logger.Errorf("insert into %s failed: %v", table, err)
		return nil, &StoreError{Op: "insert", Table: table, ID: id, Err: err}
	}
	return row, nil
}

func (s *GormStore) Update(ctx context.Context, table Table, id string, patch Record) error {
	model, err := modelFor(table)
	if err != nil {
		return &StoreError{Op: "update", Table: table, ID: id, Err: err}
	}
	values := patch.Clone()
	delete(values, ColID)
	if len(values) == 0 {
		return nil
	}

	result := s.db.WithContext(ctx).Model(model).Where("id = ?", id).Updates(map[string]any(values))
	if result.Error != nil {
		logger.Errorf("update %s %s failed: %v", table, id, result.Error)
		return &StoreError{Op: "update", Table: table, ID: id, Err: result.Error}
	}
	if result.RowsAffected == 0 {
		return &StoreError{Op: "update", Table: table, ID: id, Err: errors.NotFoundf("%s %q", table, id)}
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, table Table, id string) error {
	model, err := modelFor(table)
	if err != nil {
		return &StoreError{Op: "delete", Table: table, ID: id, Err: err}
	}
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(model)
	if result.Error != nil {
		logger.Errorf("delete %s %s failed: %v", table, id, result.Error)
		return &StoreError{Op: "delete", Table: table, ID: id, Err: result.Error}
	}
	if result.RowsAffected == 0 {
		return &StoreError{Op: "delete", Table: table, ID: id, Err: errors.NotFoundf("%s %q", table, id)}
	}
	return nil
}

func (s *GormStore) QueryByOwner(ctx context.Context, table Table, ownerID string) ([]Record, error) {
	model, err := modelFor(table)
	if err != nil {
		return nil, &StoreError{Op: "query", Table: table, Err: err}
	}
	var rows []map[string]any
	err = s.db.WithContext(ctx).
		Model(model).
		Where("user_id = ?", ownerID).
		Order("created_at, id").
		Find(&rows).Error
	if err != nil {
		logger.Errorf("query %s for %s failed: %v", table, ownerID, err)
		return nil, &StoreError{Op: "query", Table: table, Err: err}
	}
	out := make([]Record, len(rows))
	for i, row := range rows {
		out[i] = Record(row)
	}
	return out, nil
}

// Package store persists purchase orders, requirements and the supply
// ledger as snake_case column maps. Typed entities cross the boundary only
// through the mapping functions in this package.
package store

import (
	"context"
	"fmt"
)

type Table string

const (
	PurchaseOrders Table = "purchase_orders"
	Requirements   Table = "requirements"
	SupplyHistory  Table = "supply_history"
)

// Record is one row keyed by column name.
type Record map[string]any

func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Pick returns a copy of r restricted to keys. Missing keys are skipped.
func (r Record) Pick(keys ...string) Record {
	out := make(Record, len(keys))
	for _, k := range keys {
		if v, ok := r[k]; ok {
			out[k] = v
		}
	}
	return out
}

// EntityStore is the persistence contract used by the tracker. Every
// error it returns is a *StoreError.
type EntityStore interface {
	// Insert writes rec and returns it as stored, with an id assigned
	// when rec carries none.
	Insert(ctx context.Context, table Table, rec Record) (Record, error)
	Update(ctx context.Context, table Table, id string, patch Record) error
	Delete(ctx context.Context, table Table, id string) error
	QueryByOwner(ctx context.Context, table Table, ownerID string) ([]Record, error)
}

type StoreError struct {
	Op    string
	Table Table
	ID    string
	Err   error
}

func (e *StoreError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("store %s %s: %v", e.Op, e.Table, e.Err)
	}
	return fmt.Sprintf("store %s %s %s: %v", e.Op, e.Table, e.ID, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/juju/errors"
)

// FailFunc decides whether an operation on the memory store should fail.
// Returning a non-nil error aborts the operation before it is applied.
type FailFunc func(op string, table Table, id string) error

// MemoryStore is an EntityStore held in process memory. Rows are returned
// in insertion order.
type MemoryStore struct {
	mu     sync.Mutex
	rows   map[Table]map[string]Record
	order  map[Table][]string
	failOn FailFunc
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows:  make(map[Table]map[string]Record),
		order: make(map[Table][]string),
	}
}

// FailOn installs fn as the failure hook; nil clears it.
func (s *MemoryStore) FailOn(fn FailFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn = fn
}

func (s *MemoryStore) fail(op string, table Table, id string) error {
	if s.failOn == nil {
		return nil
	}
	if err := s.failOn(op, table, id); err != nil {
		return &StoreError{Op: op, Table: table, ID: id, Err: err}
	}
	return nil
}

func (s *MemoryStore) Insert(ctx context.Context, table Table, rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := rec.Clone()
	if id, _ := row[ColID].(string); id == "" {
		row[ColID] = uuid.NewString()
	}
	id := row[ColID].(string)
	if err := s.fail("insert", table, id); err != nil {
		return nil, err
	}
	if s.rows[table] == nil {
		s.rows[table] = make(map[string]Record)
	}
	if _, ok := s.rows[table][id]; ok {
		return nil, &StoreError{Op: "insert", Table: table, ID: id, Err: errors.AlreadyExistsf("%s %q", table, id)}
	}
	s.rows[table][id] = row
	s.order[table] = append(s.order[table], id)
	return row.Clone(), nil
}

func (s *MemoryStore) Update(ctx context.Context, table Table, id string, patch Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("update", table, id); err != nil {
		return err
	}
	row, ok := s.rows[table][id]
	if !ok {
		return &StoreError{Op: "update", Table: table, ID: id, Err: errors.NotFoundf("%s %q", table, id)}
	}
	for k, v := range patch {
		if k != ColID {
			row[k] = v
		}
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, table Table, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("delete", table, id); err != nil {
		return err
	}
	if _, ok := s.rows[table][id]; !ok {
		return &StoreError{Op: "delete", Table: table, ID: id, Err: errors.NotFoundf("%s %q", table, id)}
	}
	delete(s.rows[table], id)
	ids := s.order[table]
	for i, other := range ids {
		if other == id {
			s.order[table] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) QueryByOwner(ctx context.Context, table Table, ownerID string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("query", table, ""); err != nil {
		return nil, err
	}
	var out []Record
	for _, id := range s.order[table] {
		row := s.rows[table][id]
		if asString(row[ColUserID]) == ownerID {
			out = append(out, row.Clone())
		}
	}
	return out, nil
}

// Get returns a copy of one row, for assertions in tests.
func (s *MemoryStore) Get(table Table, id string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[table][id]
	if !ok {
		return nil, false
	}
	return row.Clone(), true
}

// Len counts the rows in table.
func (s *MemoryStore) Len(table Table) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows[table])
}

// Package memory provides an in-process table store used by tests and by the
// "memory" storage driver.
package memory

import (
	"context"
	"fmt"
	"sync"

	"inventario/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.TableStore = (*Store)(nil)

// Store keeps tables in a map guarded by a RWMutex. Tables are cloned on the
// way in and out so callers never share row slices with the store.
type Store struct {
	mu     sync.RWMutex
	tables map[string]domain.Table
	writes int
}

// NewStore returns a store optionally seeded with tables.
func NewStore(seed ...domain.Table) *Store {
	s := &Store{tables: make(map[string]domain.Table, len(seed))}
	for _, t := range seed {
		s.tables[t.Name] = t.Clone()
	}
	return s
}

// Driver implements domain.TableStore.
func (s *Store) Driver() string { return "memory" }

// ReadTable implements domain.TableStore.
func (s *Store) ReadTable(ctx context.Context, name string) (domain.Table, error) {
	if err := ctx.Err(); err != nil {
		return domain.Table{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[name]
	if !ok {
		return domain.Table{}, fmt.Errorf("%s: %w", name, domain.ErrTableNotFound)
	}
	return t.Clone(), nil
}

// WriteTables implements domain.TableStore. The whole set is swapped in under
// one lock.
func (s *Store) WriteTables(ctx context.Context, tables ...domain.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, t := range tables {
		if t.Name == "" {
			return domain.ValidationError{Field: "table", Reason: "table name required"}
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tables {
		s.tables[t.Name] = t.Clone()
	}
	s.writes++
	return nil
}

// Writes returns how many successful WriteTables calls the store has served.
func (s *Store) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// Names lists the stored tables in no particular order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.tables))
	for name := range s.tables {
		out = append(out, name)
	}
	return out
}

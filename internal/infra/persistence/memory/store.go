// Package memory provides an in-memory implementation of the fixture repository
// used for tests and ephemeral seed runs. The durable backends embed it and
// snapshot its state after every mutation.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"seedcore/pkg/fixture"
)

// Compile-time contract assertion ensuring the store satisfies the repository interface.
var _ fixture.Repository = (*Store)(nil)

// Store keeps one table per entity type plus join tables, guarded by a single
// mutex so a store instance can be shared across tests.
type Store struct {
	mu     sync.Mutex
	nextID int64
	tables map[string][]fixture.Values
	joins  map[string][]fixture.JoinRecord
}

// NewStore returns an empty in-memory repository.
func NewStore() *Store {
	return &Store{
		tables: make(map[string][]fixture.Values),
		joins:  make(map[string][]fixture.JoinRecord),
	}
}

// Save persists the entity, assigning a monotonically increasing identifier when
// the definition did not supply one. The stored row is a copy; later mutation of
// the entity does not leak into the table.
func (s *Store) Save(_ context.Context, e *fixture.Entity) error {
	if e == nil {
		return fmt.Errorf("memory store: nil entity")
	}
	if e.Type == "" {
		return fmt.Errorf("memory store: entity without type")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := e.Fields["id"]; ok && id != nil {
		e.ID = id
	} else {
		s.nextID++
		e.ID = s.nextID
		e.Set("id", s.nextID)
	}
	e.Persisted = true
	s.tables[e.Type] = append(s.tables[e.Type], e.Fields.Clone())
	return nil
}

// SaveMany persists entities in order, stopping at the first failure.
func (s *Store) SaveMany(ctx context.Context, entities []*fixture.Entity) error {
	for _, e := range entities {
		if err := s.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// Link records one join row.
func (s *Store) Link(_ context.Context, record fixture.JoinRecord) error {
	if record.JoinTable == "" {
		return fmt.Errorf("memory store: join record without table")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	record.Pivot = record.Pivot.Clone()
	s.joins[record.JoinTable] = append(s.joins[record.JoinTable], record)
	return nil
}

// Count reports the number of stored rows for an entity type.
func (s *Store) Count(_ context.Context, entityType string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tables[entityType]), nil
}

// Rows returns copies of the stored rows for an entity type in insertion order.
func (s *Store) Rows(entityType string) []fixture.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.tables[entityType]
	out := make([]fixture.Values, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}

// Joins returns copies of the join rows for a join table in insertion order.
func (s *Store) Joins(joinTable string) []fixture.JoinRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.joins[joinTable]
	out := make([]fixture.JoinRecord, len(rows))
	for i, r := range rows {
		r.Pivot = r.Pivot.Clone()
		out[i] = r
	}
	return out
}

// EntityTypes lists entity types with at least one stored row, sorted.
func (s *Store) EntityTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.tables))
	for t := range s.tables {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Reset drops all rows and restarts identifier assignment.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID = 0
	s.tables = make(map[string][]fixture.Values)
	s.joins = make(map[string][]fixture.JoinRecord)
}

// Snapshot captures a point-in-time clone of the store state for the durable
// backends.
type Snapshot struct {
	NextID int64                           `json:"next_id"`
	Tables map[string][]fixture.Values     `json:"tables,omitempty"`
	Joins  map[string][]fixture.JoinRecord `json:"joins,omitempty"`
}

// ExportState clones the current state.
func (s *Store) ExportState() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		NextID: s.nextID,
		Tables: make(map[string][]fixture.Values, len(s.tables)),
		Joins:  make(map[string][]fixture.JoinRecord, len(s.joins)),
	}
	for t, rows := range s.tables {
		cp := make([]fixture.Values, len(rows))
		for i, r := range rows {
			cp[i] = r.Clone()
		}
		snap.Tables[t] = cp
	}
	for t, rows := range s.joins {
		cp := make([]fixture.JoinRecord, len(rows))
		for i, r := range rows {
			r.Pivot = r.Pivot.Clone()
			cp[i] = r
		}
		snap.Joins[t] = cp
	}
	return snap
}

// ImportState replaces the store state with the snapshot.
func (s *Store) ImportState(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID = snap.NextID
	s.tables = make(map[string][]fixture.Values, len(snap.Tables))
	for t, rows := range snap.Tables {
		cp := make([]fixture.Values, len(rows))
		for i, r := range rows {
			cp[i] = r.Clone()
		}
		s.tables[t] = cp
	}
	s.joins = make(map[string][]fixture.JoinRecord, len(snap.Joins))
	for t, rows := range snap.Joins {
		cp := make([]fixture.JoinRecord, len(rows))
		for i, r := range rows {
			r.Pivot = r.Pivot.Clone()
			cp[i] = r
		}
		s.joins[t] = cp
	}
}

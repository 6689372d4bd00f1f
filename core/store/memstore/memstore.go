package memstore

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"sheet-reconciler/core/store"
	"sheet-reconciler/core/utils"
)

// Store is an in-memory store.Store. Identities are assigned sequentially per entity.
type Store struct {
	mu       sync.RWMutex
	entities map[string]*store.Entity
	rows     map[string][]store.Row
	nextID   map[string]int
	writes   int
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		entities: make(map[string]*store.Entity),
		rows:     make(map[string][]store.Row),
		nextID:   make(map[string]int),
	}
}

// Define registers entity metadata. The primary key defaults to "id".
func (s *Store) Define(e store.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.PrimaryKey == "" {
		e.PrimaryKey = "id"
	}
	if _, ok := e.Field(e.PrimaryKey); !ok {
		e.Fields = append([]store.Field{{Name: e.PrimaryKey}}, e.Fields...)
	}
	key := strings.ToLower(e.Name)
	s.entities[key] = &e
	if _, ok := s.nextID[key]; !ok {
		s.nextID[key] = 1
	}
}

// Insert adds a row, assigning an identity when the row has none, and returns the stored copy.
func (s *Store) Insert(entity string, row store.Row) store.Row {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(entity)
	e, ok := s.entities[key]
	if !ok {
		panic(fmt.Sprintf("memstore: entity %q is not defined", entity))
	}
	return s.insertLocked(key, e, row)
}

// Writes returns the number of upserts applied so far.
func (s *Store) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

func (s *Store) insertLocked(key string, e *store.Entity, row store.Row) store.Row {
	stored := copyRow(row)
	if stored[e.PrimaryKey] == nil {
		stored[e.PrimaryKey] = s.nextID[key]
	}
	if id := utils.ToInt(stored[e.PrimaryKey]); id >= s.nextID[key] {
		s.nextID[key] = id + 1
	}
	s.rows[key] = append(s.rows[key], stored)
	return copyRow(stored)
}

// Entity implements store.Store.
func (s *Store) Entity(_ context.Context, name string) (*store.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entities[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrEntityNotFound, name)
	}
	out := *e
	out.Fields = append([]store.Field(nil), e.Fields...)
	return &out, nil
}

// Query implements store.Store.
func (s *Store) Query(_ context.Context, entity string, fields []string, filter store.Filter) ([]store.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := strings.ToLower(entity)
	e, ok := s.entities[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrEntityNotFound, entity)
	}

	var out []store.Row
	for _, row := range s.rows[key] {
		if !matches(row, filter.Equals) {
			continue
		}
		out = append(out, project(row, e, fields))
	}

	if len(filter.Sort) > 0 {
		sort.SliceStable(out, func(i, j int) bool {
			for _, f := range filter.Sort {
				c := compareValues(out[i][f], out[j][f])
				if c == 0 {
					continue
				}
				if filter.Descending {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}
	return out, nil
}

// Get implements store.Store.
func (s *Store) Get(_ context.Context, entity string, id any) (store.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := strings.ToLower(entity)
	e, ok := s.entities[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrEntityNotFound, entity)
	}
	for _, row := range s.rows[key] {
		if sameValue(row[e.PrimaryKey], id) {
			return copyRow(row), nil
		}
	}
	return nil, fmt.Errorf("%w: %s(%v)", store.ErrRecordNotFound, entity, id)
}

// Upsert implements store.Store.
func (s *Store) Upsert(_ context.Context, entity string, filter map[string]any, payload map[string]any) (store.Row, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(entity)
	e, ok := s.entities[key]
	if !ok {
		return nil, false, fmt.Errorf("%w: %s", store.ErrEntityNotFound, entity)
	}
	for name := range payload {
		if _, ok := e.Field(name); !ok {
			return nil, false, fmt.Errorf("entity %s has no field %s", entity, name)
		}
	}
	s.writes++

	for _, row := range s.rows[key] {
		if !matches(row, filter) {
			continue
		}
		for k, v := range payload {
			row[k] = cloneValue(v)
		}
		return copyRow(row), false, nil
	}

	created := store.Row{}
	for k, v := range filter {
		created[k] = v
	}
	for k, v := range payload {
		created[k] = cloneValue(v)
	}
	return s.insertLocked(key, e, created), true, nil
}

func matches(row store.Row, conditions map[string]any) bool {
	for k, v := range conditions {
		if !sameValue(row[k], v) {
			return false
		}
	}
	return true
}

func project(row store.Row, e *store.Entity, fields []string) store.Row {
	if len(fields) == 0 {
		return copyRow(row)
	}
	out := store.Row{e.PrimaryKey: row[e.PrimaryKey]}
	for _, f := range fields {
		if v, ok := row[f]; ok {
			out[f] = cloneValue(v)
		} else if _, known := e.Field(f); known {
			out[f] = nil
		}
	}
	return out
}

func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return utils.ToString(a) == utils.ToString(b)
}

func compareValues(a, b any) int {
	sa, sb := utils.ToString(a), utils.ToString(b)
	fa, errA := strconv.ParseFloat(sa, 64)
	fb, errB := strconv.ParseFloat(sb, 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(sa, sb)
}

func copyRow(row store.Row) store.Row {
	out := make(store.Row, len(row))
	for k, v := range row {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	if ids, ok := v.([]any); ok {
		return append([]any(nil), ids...)
	}
	return v
}

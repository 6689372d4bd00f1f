package tabular

import (
	"fmt"
	"sync"
)

// Memory is an in-memory Reader and Writer.
type Memory struct {
	mu     sync.RWMutex
	order  []string
	tables map[string]*Table
	hints  map[string]Hints
}

// NewMemory creates a source holding tables, normalized the way a workbook would be.
func NewMemory(tables ...*Table) *Memory {
	m := &Memory{tables: make(map[string]*Table), hints: make(map[string]Hints)}
	for _, t := range tables {
		raw := append([][]string{t.Headers}, t.Rows...)
		m.put(NewTable(t.Name, raw), Hints{})
	}
	return m
}

func (m *Memory) put(t *Table, h Hints) {
	if _, ok := m.tables[t.Name]; !ok {
		m.order = append(m.order, t.Name)
	}
	m.tables[t.Name] = t
	m.hints[t.Name] = h
}

// Sheets returns the table names in insertion order.
func (m *Memory) Sheets() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

// ReadTable returns a copy of the named table. Names match ignoring case.
func (m *Memory) ReadTable(name string) (*Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	actual, ok := findSheet(m.order, name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, name)
	}
	t := m.tables[actual]
	out := &Table{Name: t.Name, Headers: append([]string(nil), t.Headers...)}
	for _, r := range t.Rows {
		out.Rows = append(out.Rows, append([]string(nil), r...))
	}
	return out, nil
}

// WriteTable stores a table. Writing a name twice is an error.
func (m *Memory) WriteTable(name string, headers []string, rows [][]string, hints Hints) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := findSheet(m.order, name); ok {
		return fmt.Errorf("%w: %s", ErrSheetExists, name)
	}
	t := &Table{Name: name, Headers: append([]string(nil), headers...)}
	for _, r := range rows {
		cells := make([]string, len(headers))
		copy(cells, r)
		t.Rows = append(t.Rows, cells)
	}
	m.put(t, hints)
	return nil
}

// Hints returns the hints a table was written with.
func (m *Memory) Hints(name string) (Hints, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	actual, ok := findSheet(m.order, name)
	if !ok {
		return Hints{}, false
	}
	return m.hints[actual], true
}

package schema

import (
	"strings"

	"sheet-reconciler/core/mapping"
	"sheet-reconciler/core/sequence"
	"sheet-reconciler/core/store"
)

// Reference is a resolved reference expression on a relation field.
type Reference struct {
	// Entity is the referenced entity, always the field's related entity.
	Entity string `json:"entity"`
	// Path is the field path on Entity. Multi-hop paths chase further relations.
	Path []string `json:"path"`
	// IsDefault marks the synthesized identity reference.
	IsDefault bool `json:"is_default"`
}

// PathString returns the dotted path.
func (r Reference) PathString() string {
	return strings.Join(r.Path, ".")
}

// Column is one resolved field of a dataset.
type Column struct {
	Name       string               `json:"name"`
	Field      store.Field          `json:"field"`
	Pattern    string               `json:"pattern"`
	References []Reference          `json:"references,omitempty"`
	Format     mapping.ColumnFormat `json:"format"`
}

// IsRelation reports whether the column holds references to another entity.
func (c *Column) IsRelation() bool {
	return c.Field.IsRelation
}

// Dataset is a dataset spec resolved against one entity.
type Dataset struct {
	Name     string        `json:"name"`
	Entity   *store.Entity `json:"entity"`
	IndexKey []string      `json:"index_key"`
	Columns  []*Column     `json:"columns"`
	// References lists the distinct entities referenced by any column.
	References []string `json:"references,omitempty"`
}

// Column looks up a resolved column by name, ignoring case.
func (d *Dataset) Column(name string) (*Column, bool) {
	for _, c := range d.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return nil, false
}

// FieldNames returns the resolved field names in order.
func (d *Dataset) FieldNames() []string {
	out := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		out[i] = c.Name
	}
	return out
}

// Sheet is a resolved sheet: a filtered and formatted view of one dataset.
type Sheet struct {
	Name    string              `json:"name"`
	Dataset *Dataset            `json:"dataset"`
	Filter  store.Filter        `json:"filter"`
	Format  mapping.TableFormat `json:"format"`
	// DependsOn lists the sheets whose entities this sheet references.
	DependsOn []string `json:"depends_on,omitempty"`
}

// Model is the fully resolved mapping document.
type Model struct {
	// Sheets are in declaration order, wildcard sheets expanded in place.
	Sheets []*Sheet
	// Order is the processing order: referenced sheets first.
	Order []string
	Graph *sequence.Graph
	// Errors holds every configuration problem found. A model with errors must not be run.
	Errors *mapping.ErrorCollector
}

// Sheet looks up a sheet by name, ignoring case.
func (m *Model) Sheet(name string) (*Sheet, bool) {
	for _, s := range m.Sheets {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return nil, false
}

// Ordered returns the sheets in processing order.
func (m *Model) Ordered() []*Sheet {
	out := make([]*Sheet, 0, len(m.Order))
	for _, name := range m.Order {
		if s, ok := m.Sheet(name); ok {
			out = append(out, s)
		}
	}
	return out
}

// Valid reports whether resolution found no configuration errors.
func (m *Model) Valid() bool {
	return m.Errors == nil || !m.Errors.HasErrors()
}

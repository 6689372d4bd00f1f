package reconcile

import (
	"context"
	"strings"
	"testing"

	"sheet-reconciler/core/mapping"
	"sheet-reconciler/core/schema"
	"sheet-reconciler/core/store"
	"sheet-reconciler/core/store/memstore"
	"sheet-reconciler/core/tabular"

	"github.com/stretchr/testify/require"
)

// newStore returns a store seeded with:
//
//	tag:       1 blue, 2 red
//	component: 1 A (weight 3, active, tags [blue]), 2 B (weight 5, inactive, no tags)
//	version:   1 (A, 1.0)
func newStore() *memstore.Store {
	s := memstore.New()
	s.Define(store.Entity{Name: "tag", Fields: []store.Field{{Name: "name"}}})
	s.Define(store.Entity{Name: "component", Fields: []store.Field{
		{Name: "name"},
		{Name: "weight"},
		{Name: "active"},
		{Name: "tags", IsRelation: true, RelatedEntity: "tag", IsCollection: true},
	}})
	s.Define(store.Entity{Name: "version", Fields: []store.Field{
		{Name: "component", IsRelation: true, RelatedEntity: "component"},
		{Name: "version"},
	}})
	s.Define(store.Entity{Name: "dependency", Fields: []store.Field{
		{Name: "label"},
		{Name: "component", IsRelation: true, RelatedEntity: "component"},
		{Name: "version", IsRelation: true, RelatedEntity: "version"},
	}})

	s.Insert("tag", store.Row{"name": "blue"})
	s.Insert("tag", store.Row{"name": "red"})
	s.Insert("component", store.Row{"name": "A", "weight": 3, "active": true, "tags": []any{1}})
	s.Insert("component", store.Row{"name": "B", "weight": 5, "active": false, "tags": []any{}})
	s.Insert("version", store.Row{"component": 1, "version": "1.0"})
	return s
}

func resolve(t *testing.T, st store.Store, doc string) *schema.Model {
	t.Helper()
	d, err := mapping.Parse(strings.NewReader(doc))
	require.NoError(t, err)
	model, err := schema.NewResolver(st, nil).Resolve(context.Background(), d)
	require.NoError(t, err)
	if !model.Valid() {
		require.FailNow(t, "invalid mapping", model.Errors.Err().Error())
	}
	return model
}

func sheet(name string, headers []string, rows ...[]string) *tabular.Table {
	return &tabular.Table{Name: name, Headers: headers, Rows: rows}
}

func run(t *testing.T, st store.Store, model *schema.Model, opts Options, tables ...*tabular.Table) *Context {
	t.Helper()
	engine, err := NewEngine(st, tabular.NewMemory(tables...), nil, opts)
	require.NoError(t, err)
	rc, err := engine.Run(context.Background(), model)
	require.NoError(t, err)
	return rc
}

func result(t *testing.T, rc *Context, sheet string) *DatasetResult {
	t.Helper()
	r, ok := rc.ForSheet(sheet)
	require.True(t, ok, "no result for sheet %s", sheet)
	return r
}

func record(t *testing.T, r *DatasetResult, key ...string) *Record {
	t.Helper()
	rec, ok := r.Lookup(key...)
	require.True(t, ok, "no record %v in %s", key, r.Sheet)
	return rec
}

func messages(rec *Record) []string {
	out := make([]string, len(rec.Mismatches))
	for i, m := range rec.Mismatches {
		out[i] = m.Message
	}
	return out
}

const componentsDoc = `
datasets:
  components:
    model_name: component
    index_key: [name]
    data:
      - columns: [name, weight, active]
sheets:
  - sheet_name: Components
    dataset: components
`

const dependenciesDoc = `
datasets:
  components:
    model_name: component
    index_key: [name]
    data:
      - columns: [name]
  dependencies:
    model_name: dependency
    index_key: [label]
    data:
      - columns: [label]
      - columns: [component]
        references: ["$model.name"]
sheets:
  - sheet_name: Dependencies
    dataset: dependencies
  - sheet_name: Components
    dataset: components
`

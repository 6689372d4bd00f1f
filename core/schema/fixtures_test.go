package schema

import (
	"strings"
	"testing"

	"sheet-reconciler/core/mapping"
	"sheet-reconciler/core/store"
	"sheet-reconciler/core/store/memstore"

	"github.com/stretchr/testify/require"
)

func newProvider() *memstore.Store {
	s := memstore.New()
	s.Define(store.Entity{Name: "component", Fields: []store.Field{
		{Name: "name"},
		{Name: "dev_lang"},
		{Name: "dev_orm"},
		{Name: "tags", IsRelation: true, RelatedEntity: "tag", IsCollection: true},
	}})
	s.Define(store.Entity{Name: "tag", Fields: []store.Field{{Name: "name"}}})
	s.Define(store.Entity{Name: "version", Fields: []store.Field{
		{Name: "component", IsRelation: true, RelatedEntity: "component"},
		{Name: "version"},
	}})
	s.Define(store.Entity{Name: "dependency", Fields: []store.Field{
		{Name: "label"},
		{Name: "version", IsRelation: true, RelatedEntity: "version"},
		{Name: "component", IsRelation: true, RelatedEntity: "component"},
	}})
	return s
}

func parse(t *testing.T, doc string) *mapping.Document {
	d, err := mapping.Parse(strings.NewReader(doc))
	require.NoError(t, err)
	return d
}

func errorMessages(errs *mapping.ErrorCollector) string {
	var out []string
	for _, e := range errs.Errors() {
		out = append(out, e.Error())
	}
	return strings.Join(out, "\n")
}

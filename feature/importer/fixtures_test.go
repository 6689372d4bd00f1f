package importer

import (
	"os"
	"path/filepath"
	"testing"

	"sheet-reconciler/core/reconcile"
	"sheet-reconciler/core/schema"
	"sheet-reconciler/core/store"
	"sheet-reconciler/core/store/memstore"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const componentsDoc = `
datasets:
  components:
    model_name: component
    index_key: [name]
    data:
      - columns: [name, weight]
sheets:
  - sheet_name: Components
    dataset: components
`

func newStore() *memstore.Store {
	s := memstore.New()
	s.Define(store.Entity{Name: "component", Fields: []store.Field{{Name: "name"}, {Name: "weight"}}})
	s.Insert("component", store.Row{"name": "A", "weight": 1})
	return s
}

func newService(t *testing.T, st store.Store, doc string, cfg reconcile.Config) *Service {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mapper.yml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	cache := schema.NewCache(schema.NewResolver(st, nil), 0)
	return NewService(st, cache, path, cfg, zap.NewNop())
}

package importer

import (
	"context"
	"os"
	"testing"

	"sheet-reconciler/core/mapping"
	"sheet-reconciler/core/reconcile"
	"sheet-reconciler/core/report"
	"sheet-reconciler/core/tabular"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func components(rows ...[]string) *tabular.Memory {
	return tabular.NewMemory(&tabular.Table{
		Name:    "Components",
		Headers: []string{"name", "weight"},
		Rows:    rows,
	})
}

func TestService_DryRun(t *testing.T) {
	st := newStore()
	svc := newService(t, st, componentsDoc, reconcile.Config{})

	r, err := svc.Import(context.Background(), Request{
		Source:   components([]string{"A", "2"}, []string{"B", "4"}),
		Workbook: "book.xlsx",
		Options:  reconcile.Options{DryRun: true},
		LOD:      report.LODMismatch,
	})
	require.NoError(t, err)

	assert.Equal(t, "dry_run", r.Run.Mode)
	assert.Equal(t, "book.xlsx", r.Run.Workbook)
	require.Len(t, r.Datasets, 1)
	d := r.Datasets[0]
	assert.Equal(t, 1, d.Counts[reconcile.StatusMatchedMismatch])
	assert.Equal(t, 1, d.Counts[reconcile.StatusExternalOnly])
	assert.Len(t, d.Entries, 2)
	assert.Zero(t, st.Writes())
}

func TestService_UpdateWritesReport(t *testing.T) {
	st := newStore()
	dir := t.TempDir()
	svc := newService(t, st, componentsDoc, reconcile.Config{ReportDir: dir})

	r, err := svc.Import(context.Background(), Request{
		Source:  components([]string{"A", "2"}, []string{"B", "4"}),
		Options: reconcile.Options{Update: true},
		LOD:     report.LODSummary,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, r.Totals.Created)
	assert.Equal(t, 1, r.Totals.Updated)
	assert.Equal(t, 2, st.Writes())

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, r.FileName(), files[0].Name())
}

func TestService_InvalidMapping(t *testing.T) {
	svc := newService(t, newStore(), `
datasets:
  components:
    model_name: component
    index_key: [missing]
    data:
      - columns: [name]
sheets:
  - sheet_name: Components
    dataset: components
`, reconcile.Config{})

	_, err := svc.Import(context.Background(), Request{Source: components(), LOD: report.LODSummary})
	assert.ErrorIs(t, err, mapping.ErrInvalidConfig)
}

func TestService_MissingSheet(t *testing.T) {
	svc := newService(t, newStore(), componentsDoc, reconcile.Config{})

	_, err := svc.Import(context.Background(), Request{Source: tabular.NewMemory(), LOD: report.LODSummary})
	assert.ErrorIs(t, err, tabular.ErrSheetNotFound)
}

func TestService_DefaultLOD(t *testing.T) {
	assert.Equal(t, report.LODMismatch, NewService(nil, nil, "", reconcile.Config{LOD: "mismatch"}, nil).DefaultLOD())
	assert.Equal(t, report.LODSummary, NewService(nil, nil, "", reconcile.Config{LOD: "bogus"}, nil).DefaultLOD())
}

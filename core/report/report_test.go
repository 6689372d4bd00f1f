package report

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sheet-reconciler/core/mapping"
	"sheet-reconciler/core/reconcile"
	"sheet-reconciler/core/schema"
	"sheet-reconciler/core/store"
	"sheet-reconciler/core/store/memstore"
	"sheet-reconciler/core/tabular"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLOD(t *testing.T) {
	tests := []struct {
		in      string
		want    LOD
		wantErr bool
	}{
		{in: "0", want: LODAllFull},
		{in: "all_mid", want: LODAllMid},
		{in: " MISMATCH ", want: LODMismatch},
		{in: "3", want: LODSummary},
		{in: "4", wantErr: true},
		{in: "verbose", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseLOD(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
	assert.Equal(t, "SUMMARY", LODSummary.String())
}

func TestLOD_JSON(t *testing.T) {
	data, err := json.Marshal(LODMismatch)
	require.NoError(t, err)
	assert.Equal(t, `"MISMATCH"`, string(data))

	var l LOD
	require.NoError(t, json.Unmarshal([]byte(`1`), &l))
	assert.Equal(t, LODAllMid, l)
	require.NoError(t, json.Unmarshal([]byte(`"ALL_FULL"`), &l))
	assert.Equal(t, LODAllFull, l)
}

// reconciled runs a Components sheet where A matches, B is store-only and C is sheet-only.
func reconciled(t *testing.T) []*reconcile.DatasetResult {
	st := memstore.New()
	st.Define(store.Entity{Name: "component", Fields: []store.Field{{Name: "name"}, {Name: "weight"}}})
	st.Insert("component", store.Row{"name": "A", "weight": 1})
	st.Insert("component", store.Row{"name": "B", "weight": 2})

	doc, err := mapping.Parse(strings.NewReader(`
datasets:
  components:
    model_name: component
    index_key: [name]
    data:
      - columns: [name, weight]
sheets:
  - sheet_name: Components
    dataset: components
`))
	require.NoError(t, err)
	ctx := context.Background()
	model, err := schema.NewResolver(st, nil).Resolve(ctx, doc)
	require.NoError(t, err)

	engine, err := reconcile.NewEngine(st, tabular.NewMemory(&tabular.Table{
		Name:    "Components",
		Headers: []string{"name", "weight"},
		Rows:    [][]string{{"A", "1"}, {"C", "3"}},
	}), nil, reconcile.Options{})
	require.NoError(t, err)
	rc, err := engine.Run(ctx, model)
	require.NoError(t, err)
	return rc.Results()
}

func indexes(d DatasetReport) []string {
	var out []string
	for _, e := range d.Entries {
		out = append(out, e.Index)
	}
	return out
}

func TestBuild_LevelsOfDetail(t *testing.T) {
	results := reconciled(t)

	full := Build(results, LODAllFull, RunInfo{Mode: "dry_run"})
	require.Len(t, full.Datasets, 1)
	d := full.Datasets[0]
	assert.Equal(t, "Components", d.Sheet)
	assert.Equal(t, 2, d.TotalExternal)
	assert.Equal(t, 2, d.TotalStore)
	assert.Equal(t, 2, d.Issues)
	assert.Equal(t, 1, d.Counts[reconcile.StatusMatchedEqual])
	assert.Equal(t, []string{"A", "C", "B"}, indexes(d))
	assert.Equal(t, "1", d.Entries[0].External["weight"])
	assert.NotNil(t, d.Entries[0].Store)
	assert.NotNil(t, d.Unresolved)

	mid := Build(results, LODAllMid, RunInfo{}).Datasets[0]
	assert.Equal(t, []string{"A", "C", "B"}, indexes(mid))
	assert.Nil(t, mid.Entries[0].External)
	assert.Nil(t, mid.Entries[0].Store)

	mismatch := Build(results, LODMismatch, RunInfo{}).Datasets[0]
	assert.Equal(t, []string{"C", "B"}, indexes(mismatch))
	assert.Equal(t, "3", mismatch.Entries[0].External["weight"])

	summary := Build(results, LODSummary, RunInfo{})
	assert.Empty(t, summary.Datasets[0].Entries)
	assert.Equal(t, Totals{Datasets: 1, Issues: 2}, summary.Totals)
}

func TestReport_JSON(t *testing.T) {
	r := Build(reconciled(t), LODSummary, RunInfo{Mode: "dry_run", Workbook: "book.xlsx"})

	var buf bytes.Buffer
	require.NoError(t, r.WriteJSON(&buf))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "SUMMARY", decoded["lod"])
	datasets := decoded["datasets"].([]any)
	first := datasets[0].(map[string]any)
	assert.Equal(t, []any{}, first["unresolved"])
	assert.Equal(t, float64(1), first["counts"].(map[string]any)["MATCHED_EQUAL"])

	dir := filepath.Join(t.TempDir(), "reports")
	path, err := r.Save(dir)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "DET-report_"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, buf.String(), string(data))
}

package reconcile

import (
	"context"
	"errors"
	"strings"
	"testing"

	"sheet-reconciler/core/mapping"
	"sheet-reconciler/core/schema"
	"sheet-reconciler/core/store"
	"sheet-reconciler/core/tabular"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_PairsRows(t *testing.T) {
	st := newStore()
	model := resolve(t, st, `
datasets:
  components:
    model_name: component
    index_key: [name]
    data:
      - columns: [name]
sheets:
  - sheet_name: Component
    dataset: components
`)

	for _, parallel := range []bool{true, false} {
		rc := run(t, st, model, Options{DryRun: true, ParallelLoad: parallel},
			sheet("Component", []string{"name"}, []string{"A"}, []string{"C"}))
		r := result(t, rc, "component")

		assert.Equal(t, StatusMatchedEqual, record(t, r, "A").Status)
		assert.Equal(t, StatusStoreOnly, record(t, r, "B").Status)
		assert.Equal(t, StatusExternalOnly, record(t, r, "C").Status)
		assert.Equal(t, 2, r.TotalExternal)
		assert.Equal(t, 2, r.TotalStore)
		assert.Equal(t, 2, r.Issues())

		var order []string
		for _, rec := range r.Records {
			order = append(order, rec.DisplayIndex())
		}
		assert.Equal(t, []string{"A", "C", "B"}, order)
	}
	assert.Zero(t, st.Writes())
}

func TestEngine_ComparesConcreteFields(t *testing.T) {
	st := newStore()
	model := resolve(t, st, componentsDoc)

	rc := run(t, st, model, Options{},
		sheet("Components", []string{"id", "name", "weight", "active", "tags"},
			[]string{"99", "A", "3", "TRUE", "* ignored"},
			[]string{"2", "B", "6", "false", ""},
		))
	r := result(t, rc, "Components")

	a := record(t, r, "A")
	assert.Equal(t, StatusMatchedEqual, a.Status, messages(a))
	assert.NotContains(t, a.External, "id")
	assert.NotContains(t, a.External, "tags")

	b := record(t, r, "B")
	assert.Equal(t, StatusMatchedMismatch, b.Status)
	require.Len(t, b.Mismatches, 1)
	assert.Equal(t, Mismatch{
		Field:   "weight",
		Kind:    KindConcrete,
		Status:  MismatchValue,
		Message: `values differ, store: "5", sheet: "6"`,
		Extra:   map[string]string{"store": "5", "sheet": "6"},
	}, b.Mismatches[0])
}

func TestEngine_UnknownHeaderIsMissingField(t *testing.T) {
	st := newStore()
	model := resolve(t, st, componentsDoc)

	rc := run(t, st, model, Options{},
		sheet("Components", []string{"name", "weight", "colour"}, []string{"A", "3", "red"}))
	a := record(t, result(t, rc, "Components"), "A")

	assert.Equal(t, StatusMatchedMismatch, a.Status)
	require.Len(t, a.Mismatches, 1)
	assert.Equal(t, "colour", a.Mismatches[0].Field)
	assert.Equal(t, MismatchFieldMissing, a.Mismatches[0].Status)
}

func TestEngine_UnresolvableRows(t *testing.T) {
	st := newStore()
	model := resolve(t, st, componentsDoc)

	rc := run(t, st, model, Options{},
		sheet("Components", []string{"weight", "name"},
			[]string{"3", "A"},
			[]string{"3", "A"},
			[]string{"1", " "},
		))
	r := result(t, rc, "Components")

	counts := r.Counts()
	assert.Equal(t, 1, counts[StatusMatchedEqual])
	assert.Equal(t, 2, counts[StatusUnresolvable])
	assert.Equal(t, 1, counts[StatusStoreOnly])

	var reasons []string
	for _, rec := range r.Records {
		if rec.Status == StatusUnresolvable {
			reasons = append(reasons, rec.Reason)
		}
	}
	assert.Equal(t, []string{
		"sheet Components, sheet row 3: duplicate index [A]",
		"sheet Components, sheet row 4, field name: empty index value",
	}, reasons)
}

func TestEngine_RelationResolves(t *testing.T) {
	st := newStore()
	st.Insert("dependency", store.Row{"label": "dep1", "component": 1})
	model := resolve(t, st, dependenciesDoc)
	assert.Equal(t, []string{"Components", "Dependencies"}, model.Order)

	rc := run(t, st, model, Options{DryRun: true},
		sheet("Components", []string{"name"}, []string{"A"}, []string{"B"}),
		sheet("Dependencies", []string{"label", "component"},
			[]string{"dep1", "A"},
			[]string{"dep2", "Z"},
		))
	r := result(t, rc, "Dependencies")

	dep1 := record(t, r, "dep1")
	assert.Equal(t, StatusMatchedEqual, dep1.Status, messages(dep1))

	dep2 := record(t, r, "dep2")
	assert.Equal(t, StatusExternalOnly, dep2.Status)
	require.Len(t, dep2.Mismatches, 1)
	assert.Equal(t, "unresolved reference", dep2.Mismatches[0].Message)
	assert.Equal(t, KindRelation, dep2.Mismatches[0].Kind)
	assert.Equal(t, "Z", dep2.Mismatches[0].Extra["value"])

	assert.Zero(t, st.Writes())
}

func TestEngine_RelationDiffers(t *testing.T) {
	st := newStore()
	st.Insert("dependency", store.Row{"label": "dep1", "component": 2})
	model := resolve(t, st, dependenciesDoc)

	rc := run(t, st, model, Options{},
		sheet("Components", []string{"name"}, []string{"A"}, []string{"B"}),
		sheet("Dependencies", []string{"label", "component"}, []string{"dep1", "A"}))
	dep1 := record(t, result(t, rc, "Dependencies"), "dep1")

	assert.Equal(t, StatusMatchedMismatch, dep1.Status)
	assert.Equal(t, []string{"reference differs"}, messages(dep1))
	assert.Equal(t, map[string]string{"store": "2", "sheet": "1"}, dep1.Mismatches[0].Extra)
}

func TestEngine_RelationKeyUsesNaturalKey(t *testing.T) {
	st := newStore()
	st.Insert("dependency", store.Row{"label": "dep1", "component": 1, "version": 1})
	model := resolve(t, st, `
datasets:
  components:
    model_name: component
    index_key: [name]
    data:
      - columns: [name]
  versions:
    model_name: version
    index_key: [component, version]
    data:
      - columns: [component]
        references: ["$model.name"]
      - columns: [version]
  dependencies:
    model_name: dependency
    index_key: [label]
    data:
      - columns: [label]
      - columns: [version]
        references: ["$model.component.name", "$model.version"]
sheets:
  - sheet_name: Dependencies
    dataset: dependencies
  - sheet_name: Versions
    dataset: versions
  - sheet_name: Components
    dataset: components
`)
	assert.Equal(t, []string{"Components", "Versions", "Dependencies"}, model.Order)

	rc := run(t, st, model, Options{},
		sheet("Components", []string{"name"}, []string{"A"}),
		sheet("Versions", []string{"component", "version"}, []string{"A", "1.0"}),
		sheet("Dependencies", []string{"label", "version"},
			[]string{"dep1", "A - 1.0"},
			[]string{"dep2", "A - 2.0"},
			[]string{"dep3", "A"},
		))

	versions := result(t, rc, "Versions")
	assert.Equal(t, StatusMatchedEqual, record(t, versions, "A", "1.0").Status)

	deps := result(t, rc, "Dependencies")
	dep1 := record(t, deps, "dep1")
	assert.Equal(t, StatusMatchedEqual, dep1.Status, messages(dep1))
	assert.Equal(t, []string{"unresolved reference"}, messages(record(t, deps, "dep2")))
	assert.Equal(t, []string{"expected 2 key parts in [A], found 1"}, messages(record(t, deps, "dep3")))
}

const versionsDoc = `
datasets:
  components:
    model_name: component
    index_key: [name]
    data:
      - columns: [name, weight]
  versions:
    model_name: version
    index_key: [component, version]
    data:
      - columns: [component]
        references: ["$model.name"]
      - columns: [version]
sheets:
  - sheet_name: Versions
    dataset: versions
  - sheet_name: Components
    dataset: components
`

func TestEngine_NullNaturalKeyIsUnresolvable(t *testing.T) {
	st := newStore()
	st.Insert("component", store.Row{"name": nil, "weight": 1, "active": false, "tags": []any{}})
	st.Insert("version", store.Row{"component": 3, "version": "2.0"})
	model := resolve(t, st, versionsDoc)

	rc := run(t, st, model, Options{},
		sheet("Components", []string{"name", "weight"}, []string{"A", "3"}, []string{"B", "5"}),
		sheet("Versions", []string{"component", "version"}, []string{"A", "1.0"}))
	versions := result(t, rc, "Versions")

	counts := versions.Counts()
	assert.Equal(t, 1, counts[StatusMatchedEqual])
	assert.Equal(t, 1, counts[StatusUnresolvable])
	assert.Zero(t, counts[StatusStoreOnly])
	for _, rec := range versions.Records {
		if rec.Status == StatusUnresolvable {
			assert.Contains(t, rec.Reason, "field component: empty index value")
		}
	}

	sh, ok := model.Sheet("Versions")
	require.True(t, ok)
	col, ok := sh.Dataset.Column("component")
	require.True(t, ok)
	keys := NewKeyRenderer(st)
	nk, err := keys.Render(context.Background(), col, 3)
	require.NoError(t, err)
	assert.Empty(t, nk)
	nk, err = keys.Render(context.Background(), col, 1)
	require.NoError(t, err)
	assert.Equal(t, "A", nk)
}

func TestEngine_ReadOnlyKeyRelationIsLinked(t *testing.T) {
	doc := strings.Replace(versionsDoc, `  - sheet_name: Versions
    dataset: versions
`, `  - sheet_name: Versions
    dataset: versions
    formatting:
      data:
        - columns: [component]
          read_only: true
`, 1) + `    formatting:
      read_only: true
`
	tables := []*tabular.Table{
		sheet("Components", []string{"name", "weight"}, []string{"A", "4"}, []string{"B", "5"}),
		sheet("Versions", []string{"component", "version"}, []string{"A", "1.0"}, []string{"A", "3.0"}),
	}

	t.Run("Update", func(t *testing.T) {
		st := newStore()
		rc := run(t, st, resolve(t, st, doc), Options{Update: true}, tables...)

		assert.Equal(t, StatusMatchedMismatch, record(t, result(t, rc, "Components"), "A").Status)
		versions := result(t, rc, "Versions")
		assert.Equal(t, StatusExternalOnly, record(t, versions, "A", "3.0").Status)
		require.Len(t, versions.Unresolved, 1)
		assert.Contains(t, versions.Unresolved[0].Reason, "force update required")
		assert.Zero(t, st.Writes())
	})

	t.Run("Force", func(t *testing.T) {
		st := newStore()
		rc := run(t, st, resolve(t, st, doc), Options{ForceUpdate: true}, tables...)

		versions := result(t, rc, "Versions")
		assert.Empty(t, versions.Unresolved)
		assert.Equal(t, 1, st.Writes())

		rows, err := st.Query(context.Background(), "version", nil, store.Filter{Equals: map[string]any{"version": "3.0"}})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, 1, rows[0]["component"])
	})
}

func TestEngine_ReferenceOutsideRun(t *testing.T) {
	st := newStore()
	st.Insert("dependency", store.Row{"label": "dep1", "component": 1})
	doc := `
datasets:
  dependencies:
    model_name: dependency
    index_key: [label]
    data:
      - columns: [label, component]
sheets:
  - sheet_name: Dependencies
    dataset: dependencies
`
	tables := []*tabular.Table{sheet("Dependencies", []string{"label", "component"}, []string{"dep1", "1"})}

	rc := run(t, st, resolve(t, st, doc), Options{}, tables...)
	dep1 := record(t, result(t, rc, "Dependencies"), "dep1")
	require.Len(t, dep1.Mismatches, 1)
	assert.Equal(t, MismatchCannotCompare, dep1.Mismatches[0].Status)

	readOnly := doc + `
    formatting:
      data:
        - columns: [component]
          read_only: true
`
	rc = run(t, st, resolve(t, st, readOnly), Options{}, tables...)
	assert.Equal(t, StatusMatchedEqual, record(t, result(t, rc, "Dependencies"), "dep1").Status)
}

func TestEngine_CommitsUpdates(t *testing.T) {
	st := newStore()
	model := resolve(t, st, `
datasets:
  tags:
    model_name: tag
    index_key: [name]
    data:
      - columns: [name]
  components:
    model_name: component
    index_key: [name]
    data:
      - columns: [name, weight, active]
      - columns: [tags]
        references: ["$model.name"]
sheets:
  - sheet_name: Components
    dataset: components
  - sheet_name: Tags
    dataset: tags
`)

	rc := run(t, st, model, Options{Update: true},
		sheet("Tags", []string{"name"}, []string{"blue"}, []string{"red"}),
		sheet("Components", []string{"name", "weight", "active", "tags"},
			[]string{"A", "4", "TRUE", "* blue\n* red"},
			[]string{"B", "5", "false", ""},
			[]string{"C", "1", "false", "* red"},
		))
	r := result(t, rc, "Components")

	a := record(t, r, "A")
	assert.Equal(t, StatusNoChange, a.Status)
	assert.ElementsMatch(t, []string{`values differ, store: "3", sheet: "4"`, "reference differs"}, messages(a))
	assert.Equal(t, StatusMatchedEqual, record(t, r, "B").Status)
	assert.Equal(t, StatusNoChange, record(t, r, "C").Status)
	assert.Equal(t, 1, r.Created)
	assert.Equal(t, 1, r.Updated)
	assert.Empty(t, r.Unresolved)
	assert.Equal(t, 2, st.Writes())

	ctx := context.Background()
	stored, err := st.Get(ctx, "component", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stored["weight"])
	assert.Equal(t, true, stored["active"])
	assert.Equal(t, []any{1, 2}, stored["tags"])

	created, err := st.Query(ctx, "component", nil, store.Filter{Equals: map[string]any{"name": "C"}})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, []any{2}, created[0]["tags"])
	assert.Equal(t, "1", created[0]["weight"])
}

func TestEngine_RefusesUnresolvedCommit(t *testing.T) {
	st := newStore()
	model := resolve(t, st, dependenciesDoc)

	rc := run(t, st, model, Options{Update: true},
		sheet("Components", []string{"name"}, []string{"A"}, []string{"B"}),
		sheet("Dependencies", []string{"label", "component"}, []string{"dep2", "Z"}))
	r := result(t, rc, "Dependencies")

	assert.Equal(t, StatusExternalOnly, record(t, r, "dep2").Status)
	require.Len(t, r.Unresolved, 1)
	assert.Equal(t, "dep2", r.Unresolved[0].Index)
	assert.Equal(t, "component", r.Unresolved[0].Field)
	assert.Equal(t, "unresolved reference", r.Unresolved[0].Reason)
	assert.Zero(t, st.Writes())
}

func TestEngine_ForceRequiredForChangingReference(t *testing.T) {
	doc := `
datasets:
  components:
    model_name: component
    index_key: [name]
    data:
      - columns: [name, weight]
  dependencies:
    model_name: dependency
    index_key: [label]
    data:
      - columns: [label]
      - columns: [component]
        references: ["$model.name"]
sheets:
  - sheet_name: Components
    dataset: components
    formatting:
      read_only: true
  - sheet_name: Dependencies
    dataset: dependencies
`
	tables := []*tabular.Table{
		sheet("Components", []string{"name", "weight"}, []string{"A", "4"}, []string{"B", "5"}),
		sheet("Dependencies", []string{"label", "component"}, []string{"dep1", "A"}),
	}

	t.Run("Update", func(t *testing.T) {
		st := newStore()
		st.Insert("dependency", store.Row{"label": "dep1", "component": 2})
		rc := run(t, st, resolve(t, st, doc), Options{Update: true}, tables...)

		assert.Equal(t, StatusMatchedMismatch, record(t, result(t, rc, "Components"), "A").Status)
		deps := result(t, rc, "Dependencies")
		assert.Equal(t, StatusMatchedMismatch, record(t, deps, "dep1").Status)
		require.Len(t, deps.Unresolved, 1)
		assert.Contains(t, deps.Unresolved[0].Reason, "force update required")
		assert.Zero(t, st.Writes())
	})

	t.Run("Force", func(t *testing.T) {
		st := newStore()
		st.Insert("dependency", store.Row{"label": "dep1", "component": 2})
		rc := run(t, st, resolve(t, st, doc), Options{ForceUpdate: true}, tables...)

		deps := result(t, rc, "Dependencies")
		assert.Equal(t, StatusNoChange, record(t, deps, "dep1").Status)
		assert.Empty(t, deps.Unresolved)
		assert.Equal(t, 1, st.Writes())

		rows, err := st.Query(context.Background(), "dependency", nil, store.Filter{})
		require.NoError(t, err)
		assert.Equal(t, 1, rows[0]["component"])
	})
}

func TestEngine_MissingSheet(t *testing.T) {
	st := newStore()
	engine, err := NewEngine(st, tabular.NewMemory(), nil, Options{})
	require.NoError(t, err)

	_, err = engine.Run(context.Background(), resolve(t, st, componentsDoc))
	assert.ErrorIs(t, err, tabular.ErrSheetNotFound)
}

func TestEngine_RefusesInvalidModel(t *testing.T) {
	errs := mapping.NewErrorCollector()
	errs.Add("Components", "mapper.sheets[components].view", "missing view. check mapper.filters")

	engine, err := NewEngine(newStore(), tabular.NewMemory(), nil, Options{})
	require.NoError(t, err)
	_, err = engine.Run(context.Background(), &schema.Model{Errors: errs})
	assert.True(t, errors.Is(err, ErrInvalidModel))
}

func TestContext_FirstSheetWins(t *testing.T) {
	rc := NewContext()
	e := &store.Entity{Name: "component", PrimaryKey: "id"}
	first := newDatasetResult("Components", "components", e, []string{"name"})
	second := newDatasetResult("Legacy", "legacy", e, []string{"name"})
	rc.Register(first)
	rc.Register(second)

	got, ok := rc.ForEntity("COMPONENT")
	require.True(t, ok)
	assert.Same(t, first, got)

	got, ok = rc.ForSheet("legacy")
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Len(t, rc.Results(), 2)
}

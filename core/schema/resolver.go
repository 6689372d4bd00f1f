package schema

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sheet-reconciler/core/mapping"
	"sheet-reconciler/core/sequence"
	"sheet-reconciler/core/store"

	"go.uber.org/zap"
)

// Resolver turns a mapping document into a Model using live entity metadata.
type Resolver struct {
	provider FieldProvider
	logger   *zap.Logger
}

// NewResolver creates a resolver backed by provider.
func NewResolver(provider FieldProvider, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{provider: provider, logger: logger}
}

// Resolve resolves every sheet of doc. Configuration problems are collected in Model.Errors;
// the returned error is reserved for fatal conditions such as a declared entity missing from the store.
func (r *Resolver) Resolve(ctx context.Context, doc *mapping.Document) (*Model, error) {
	errs := mapping.NewErrorCollector()
	doc.Validate(errs)

	tableDefaults := doc.Defaults.TableDefaults()
	columnDefaults := doc.Defaults.ColumnDefaults()

	model := &Model{Graph: sequence.NewGraph(), Errors: errs}
	seen := make(map[string]bool)

	for i, spec := range doc.Sheets {
		label := spec.SheetName
		if strings.TrimSpace(label) == "" {
			continue // reported by Validate
		}
		base := fmt.Sprintf("mapper.sheets[%s]", strings.ToLower(label))
		r.logger.Debug("Processing sheet", zap.String("sheet", label), zap.Int("position", i))

		var filter store.Filter
		var view *mapping.ViewSpec
		if spec.View != "" {
			v, ok := doc.View(spec.View)
			if !ok {
				errs.Add(label, base+".view", "missing view. check mapper.filters").With("view", spec.View)
			} else {
				view = &v
			}
		}

		dsName, ds, ok := doc.Dataset(spec.Dataset)
		if spec.Dataset == "" || !ok {
			errs.Add(label, base+".dataset", "missing dataset. check mapper.datasets").With("dataset", spec.Dataset)
			continue
		}
		models := ds.Models()
		if len(models) == 0 {
			continue // reported by Validate
		}
		if !spec.IsWildcard() && len(models) > 1 {
			errs.Add(label, base+".dataset", "model_names is only supported with sheet_name '*'").With("dataset", dsName)
			continue
		}

		format := mapping.ResolveTableFormat(tableDefaults, spec.Formatting)
		var columnSpecs []mapping.ColumnFormatSpec
		if spec.Formatting != nil {
			columnSpecs = spec.Formatting.Data
		}

		// Each model gets an independent sheet, nothing is shared between fan-out copies
		for _, modelName := range models {
			name := label
			if spec.IsWildcard() {
				name = modelName
			}
			if seen[strings.ToLower(name)] {
				errs.Addf(name, base, "sheet name %q is declared more than once", name)
				continue
			}
			seen[strings.ToLower(name)] = true

			entity, err := r.provider.Entity(ctx, modelName)
			if err != nil {
				if errors.Is(err, store.ErrEntityNotFound) {
					return nil, fmt.Errorf("sheet %s, dataset %s: %w", name, dsName, err)
				}
				return nil, fmt.Errorf("failed to load entity %s: %w", modelName, err)
			}

			dsField := fmt.Sprintf("%s.dataset.%s", base, dsName)
			resolved, err := r.ResolveDataset(ctx, dsName, ds, entity, columnDefaults, columnSpecs, name, dsField, errs)
			if err != nil {
				return nil, err
			}
			ValidateIndexKeys(resolved, name, dsField, errs)

			if view != nil {
				filter = viewFilter(*view, entity, name, base, errs)
			}

			model.Sheets = append(model.Sheets, &Sheet{
				Name:    name,
				Dataset: resolved,
				Filter:  filter,
				Format:  format,
			})
			model.Graph.AddNode(name)
		}
	}

	linkSheets(model)
	if err := model.Graph.Validate(); err != nil {
		errs.Add(mapping.DocumentLabel, "mapper.sheets", err.Error())
	}
	model.Order = model.Graph.Order()

	r.logger.Debug("Resolved mapping document",
		zap.Int("sheets", len(model.Sheets)),
		zap.Strings("order", model.Order),
		zap.Int("errors", errs.Len()),
	)
	return model, nil
}

// ResolveDataset expands the column patterns of spec against entity.
// A field selected again is moved to the new declaration's position and takes its
// references and formatting. Patterns that match nothing are configuration errors.
func (r *Resolver) ResolveDataset(
	ctx context.Context,
	name string,
	spec mapping.DatasetSpec,
	entity *store.Entity,
	columnDefaults mapping.ColumnFormat,
	columnSpecs []mapping.ColumnFormatSpec,
	label, fieldLabel string,
	errs *mapping.ErrorCollector,
) (*Dataset, error) {
	ds := &Dataset{Name: name, Entity: entity}
	var columns []*Column

	place := func(col *Column) {
		for i, existing := range columns {
			if strings.EqualFold(existing.Name, col.Name) {
				columns = append(columns[:i], columns[i+1:]...)
				break
			}
		}
		columns = append(columns, col)
	}

	for idx, block := range spec.Data {
		for _, pattern := range block.Columns {
			pattern = strings.TrimSpace(pattern)
			field := fmt.Sprintf("%s.data[%d].columns[%s]", fieldLabel, idx, pattern)

			matched := ExpandPattern(entity, pattern)
			if len(matched) == 0 {
				errs.Addf(label, field, "no fields defined for entity [%s]", entity.Name)
				continue
			}

			wildcard := strings.HasSuffix(pattern, "*")
			for _, f := range matched {
				refs, err := ResolveReferences(ctx, r.provider, entity, f, block.References)
				var rerr *ReferenceError
				switch {
				case errors.As(err, &rerr):
					if !wildcard {
						errs.Add(label, field, rerr.Error())
					} else {
						r.logger.Debug("Skipping reference under wildcard",
							zap.String("sheet", label), zap.String("field", f.Name), zap.String("reason", rerr.Reason))
					}
					refs = nil
					if f.IsRelation {
						refs = []Reference{DefaultReference(f)}
					}
				case err != nil:
					return nil, err
				}

				place(&Column{
					Name:       f.Name,
					Field:      f,
					Pattern:    pattern,
					References: refs,
				})
			}
		}
	}

	seenRefs := make(map[string]bool)
	for _, c := range columns {
		c.Format = mapping.ResolveColumnFormat(columnDefaults, c.Name, columnSpecs)
		for _, ref := range c.References {
			if k := strings.ToLower(ref.Entity); !seenRefs[k] {
				seenRefs[k] = true
				ds.References = append(ds.References, ref.Entity)
			}
		}
	}
	ds.Columns = columns
	ds.IndexKey = append([]string(nil), spec.IndexKey...)
	return ds, nil
}

// ExpandPattern returns the entity fields selected by a column pattern, in the entity's order.
// "*" selects every field, "prefix*" selects fields starting with prefix, anything else is an exact name.
func ExpandPattern(entity *store.Entity, pattern string) []store.Field {
	var out []store.Field
	switch {
	case pattern == "*":
		out = append(out, entity.Fields...)
	case strings.HasSuffix(pattern, "*"):
		prefix := strings.ToLower(strings.TrimSuffix(pattern, "*"))
		for _, f := range entity.Fields {
			if strings.HasPrefix(strings.ToLower(f.Name), prefix) {
				out = append(out, f)
			}
		}
	default:
		if f, ok := entity.Field(pattern); ok {
			out = append(out, f)
		}
	}
	return out
}

// ValidateIndexKeys checks that every index key is a resolved, single-valued field.
// Key names are rewritten to the resolved field names. Problems are collected, not returned.
func ValidateIndexKeys(ds *Dataset, label, fieldLabel string, errs *mapping.ErrorCollector) {
	for i, key := range ds.IndexKey {
		col, ok := ds.Column(key)
		if !ok {
			errs.Addf(label, fieldLabel+".index_key",
				"index column [%s] isn't defined in %s.data[].columns", key, fieldLabel)
			continue
		}
		if col.Field.IsCollection {
			errs.Addf(label, fieldLabel+".index_key", "index column [%s] is multi-valued", key)
			continue
		}
		ds.IndexKey[i] = col.Name
	}
}

func viewFilter(v mapping.ViewSpec, entity *store.Entity, label, base string, errs *mapping.ErrorCollector) store.Filter {
	f := store.Filter{Descending: v.Descending()}
	if v.Column != "" {
		if field, ok := entity.Field(v.Column); ok {
			f.Equals = map[string]any{field.Name: v.Filter}
		} else {
			errs.Addf(label, base+".view", "filter column [%s] doesn't exist on entity [%s]", v.Column, entity.Name)
		}
	}
	for _, s := range v.Sort {
		if field, ok := entity.Field(s); ok {
			f.Sort = append(f.Sort, field.Name)
		} else {
			errs.Addf(label, base+".view", "sort column [%s] doesn't exist on entity [%s]", s, entity.Name)
		}
	}
	return f
}

// linkSheets adds an edge from every sheet to each sheet backed by an entity it references.
func linkSheets(model *Model) {
	byEntity := make(map[string][]*Sheet)
	for _, s := range model.Sheets {
		k := strings.ToLower(s.Dataset.Entity.Name)
		byEntity[k] = append(byEntity[k], s)
	}
	for _, s := range model.Sheets {
		for _, ref := range s.Dataset.References {
			for _, target := range byEntity[strings.ToLower(ref)] {
				if target == s {
					continue
				}
				model.Graph.AddEdge(s.Name, target.Name)
				s.DependsOn = append(s.DependsOn, target.Name)
			}
		}
	}
}

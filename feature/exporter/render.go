package exporter

import (
	"context"
	"strings"

	"sheet-reconciler/core/reconcile"
	"sheet-reconciler/core/schema"
	"sheet-reconciler/core/store"
	"sheet-reconciler/core/tabular"
	"sheet-reconciler/core/utils"

	"go.uber.org/zap"
)

// renderer turns store rows into sheet cells.
type renderer struct {
	keys   *reconcile.KeyRenderer
	logger *zap.Logger
}

func (r *renderer) row(ctx context.Context, ds *schema.Dataset, row store.Row) []string {
	cells := make([]string, len(ds.Columns))
	for i, col := range ds.Columns {
		cells[i] = r.cell(ctx, col, row[col.Name])
	}
	return cells
}

func (r *renderer) cell(ctx context.Context, col *schema.Column, v any) string {
	if !col.IsRelation() {
		return reconcile.FormatValue(v)
	}
	if !col.Field.IsCollection {
		if utils.IsBlank(v) {
			return ""
		}
		return r.key(ctx, col, v)
	}

	ids, _ := v.([]any)
	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		if nk := r.key(ctx, col, id); nk != "" {
			lines = append(lines, reconcile.CollectionMarker+nk)
		}
	}
	return strings.Join(lines, "\n")
}

// key renders a natural key, falling back to the raw identity when the reference can't be chased.
func (r *renderer) key(ctx context.Context, col *schema.Column, id any) string {
	nk, err := r.keys.Render(ctx, col, id)
	if err != nil {
		r.logger.Warn("Failed to render natural key",
			zap.String("field", col.Name),
			zap.String("entity", col.Field.RelatedEntity),
			zap.Any("id", id),
			zap.Error(err))
		return utils.ToString(id)
	}
	return nk
}

// exported remembers a written sheet, for drop-down sources.
type exported struct {
	sheet   string
	dataset *schema.Dataset
	rows    int
}

// hints builds the presentation of sheet. lists maps entity names to exported sheets.
func hints(sheet *schema.Sheet, lists map[string]exported) tabular.Hints {
	f := sheet.Format
	h := tabular.Hints{
		TabColor: f.TabColor,
		Style: tabular.TableStyle{
			Name:              f.Style.Name,
			ShowFirstColumn:   f.Style.ShowFirstColumn,
			ShowLastColumn:    f.Style.ShowLastColumn,
			ShowRowStripes:    f.Style.ShowRowStripes,
			ShowColumnStripes: f.Style.ShowColumnStripes,
		},
		FreezeHeader: true,
		Columns:      make([]tabular.ColumnHint, len(sheet.Dataset.Columns)),
	}
	for i, col := range sheet.Dataset.Columns {
		cf := col.Format
		hint := tabular.ColumnHint{
			Width:    float64(cf.CharsWrap),
			Wrap:     cf.CharsWrap > 0,
			ReadOnly: f.ReadOnly || cf.ReadOnly,
			Comment:  tabular.Comment{Author: cf.Comment.Author, Text: cf.Comment.Text},
		}
		if src, ok := listSource(col, lists); ok {
			hint.ListSource = src
		}
		h.Columns[i] = hint
	}
	return h
}

// listSource offers the index column of an exported sheet of the referenced entity
// when a to-one column is keyed by exactly that column.
func listSource(col *schema.Column, lists map[string]exported) (string, bool) {
	if !col.IsRelation() || col.Field.IsCollection || len(col.References) != 1 {
		return "", false
	}
	ref := col.References[0]
	if len(ref.Path) != 1 || ref.Path[0] == store.IdentityMarker {
		return "", false
	}
	target, ok := lists[strings.ToLower(col.Field.RelatedEntity)]
	if !ok || target.rows == 0 {
		return "", false
	}
	column := indexColumn(target.dataset, ref.Path[0])
	if column == 0 {
		return "", false
	}
	return tabular.CellRange(target.sheet, column, target.rows), true
}

// indexColumn returns the 1-based position of a single-field index key, or 0.
func indexColumn(ds *schema.Dataset, field string) int {
	if len(ds.IndexKey) != 1 || !strings.EqualFold(ds.IndexKey[0], field) {
		return 0
	}
	for i, c := range ds.Columns {
		if strings.EqualFold(c.Name, field) {
			return i + 1
		}
	}
	return 0
}

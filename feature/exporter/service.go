package exporter

import (
	"context"
	"fmt"
	"os"
	"strings"

	"sheet-reconciler/core/reconcile"
	"sheet-reconciler/core/schema"
	"sheet-reconciler/core/storage"
	"sheet-reconciler/core/store"
	"sheet-reconciler/core/tabular"

	"go.uber.org/zap"
)

// SheetStats reports one written sheet.
type SheetStats struct {
	Sheet string `json:"sheet"`
	Rows  int    `json:"rows"`
}

// Service exports the store through the configured mapping document.
type Service struct {
	store  store.Store
	models schema.ModelSource
	path   string
	logger *zap.Logger
}

// NewService creates an export service for the mapping document at path.
func NewService(st store.Store, models schema.ModelSource, path string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, models: models, path: path, logger: logger}
}

// Export writes every sheet of the mapping, in processing order, to w.
func (s *Service) Export(ctx context.Context, w tabular.Writer) ([]SheetStats, error) {
	model, err := s.models.Get(ctx, s.path)
	if err != nil {
		return nil, err
	}
	if !model.Valid() {
		return nil, fmt.Errorf("export refused: %w", model.Errors.Err())
	}

	r := &renderer{keys: reconcile.NewKeyRenderer(s.store), logger: s.logger}
	lists := make(map[string]exported)
	stats := make([]SheetStats, 0, len(model.Order))

	for _, sheet := range model.Ordered() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		ds := sheet.Dataset
		rows, err := s.store.Query(ctx, ds.Entity.Name, ds.FieldNames(), sheet.Filter)
		if err != nil {
			return stats, fmt.Errorf("failed to query %s for sheet %s: %w", ds.Entity.Name, sheet.Name, err)
		}

		cells := make([][]string, len(rows))
		for i, row := range rows {
			cells[i] = r.row(ctx, ds, row)
		}
		if err := w.WriteTable(sheet.Name, ds.FieldNames(), cells, hints(sheet, lists)); err != nil {
			return stats, fmt.Errorf("failed to write sheet %s: %w", sheet.Name, err)
		}

		key := strings.ToLower(ds.Entity.Name)
		if _, ok := lists[key]; !ok {
			lists[key] = exported{sheet: sheet.Name, dataset: ds, rows: len(rows)}
		}
		stats = append(stats, SheetStats{Sheet: sheet.Name, Rows: len(rows)})
		s.logger.Info("Exported sheet",
			zap.String("sheet", sheet.Name),
			zap.String("entity", ds.Entity.Name),
			zap.Int("rows", len(rows)))
	}
	return stats, nil
}

// ExportTo exports into a new workbook saved at loc. An existing local file is
// only replaced when overwrite is set.
func (s *Service) ExportTo(ctx context.Context, client storage.Client, loc tabular.Location, overwrite bool) ([]SheetStats, error) {
	if !loc.IsRemote() && !overwrite {
		if _, err := os.Stat(loc.Path); err == nil {
			return nil, fmt.Errorf("%w: %s", tabular.ErrWorkbookExists, loc.Path)
		}
	}

	wb := tabular.NewWorkbook()
	defer wb.Close()

	stats, err := s.Export(ctx, wb)
	if err != nil {
		return nil, err
	}
	if err := tabular.Save(ctx, client, loc, wb, overwrite); err != nil {
		return nil, err
	}
	s.logger.Info("Workbook saved", zap.String("location", loc.String()), zap.Int("sheets", len(stats)))
	return stats, nil
}

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sheet-reconciler/core/schema"
	"sheet-reconciler/core/store"
	"sheet-reconciler/core/tabular"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Engine reconciles the sheets of a resolved model against a store.
type Engine struct {
	store  store.Store
	source tabular.Reader
	logger *zap.Logger
	opts   Options
}

// NewEngine creates an engine reading sheets from source. opts are validated here.
func NewEngine(st store.Store, source tabular.Reader, logger *zap.Logger, opts Options) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: st, source: source, logger: logger, opts: opts}, nil
}

// Options returns the run options.
func (e *Engine) Options() Options {
	return e.opts
}

// Run reconciles every sheet of model in processing order.
// The returned context holds the results of every sheet processed, even on error.
func (e *Engine) Run(ctx context.Context, model *schema.Model) (*Context, error) {
	if !model.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, model.Errors.Err())
	}

	rc := NewContext()
	for _, sheet := range model.Ordered() {
		if err := ctx.Err(); err != nil {
			return rc, err
		}
		if _, err := e.ReconcileSheet(ctx, rc, sheet); err != nil {
			return rc, err
		}
	}
	return rc, nil
}

// ReconcileSheet loads, matches, compares and optionally commits one sheet.
// Row-level failures are recorded on the records; the error is reserved for
// a missing sheet or a failing store.
func (e *Engine) ReconcileSheet(ctx context.Context, rc *Context, sheet *schema.Sheet) (*DatasetResult, error) {
	ds := sheet.Dataset
	log := e.logger.With(
		zap.String("sheet", sheet.Name),
		zap.String("dataset", ds.Name),
		zap.String("entity", ds.Entity.Name),
	)
	log.Info("Reconciling sheet", zap.Strings("index_key", ds.IndexKey))

	table, rows, err := e.load(ctx, sheet)
	if err != nil {
		return nil, err
	}

	result := newDatasetResult(sheet.Name, ds.Name, ds.Entity, ds.IndexKey)
	result.TotalExternal = len(table.Rows)
	result.TotalStore = len(rows)

	e.indexExternal(sheet, table, result, log)
	if err := e.indexStore(ctx, rc, sheet, rows, result, log); err != nil {
		return nil, err
	}

	// Registered before comparing so self-referencing relations resolve within the sheet
	rc.Register(result)

	for _, rec := range result.Records {
		switch rec.Status {
		case StatusPending:
			if err := e.compare(ctx, rc, ds, result, rec); err != nil {
				return nil, err
			}
			if len(rec.Mismatches) == 0 {
				rec.Status = StatusMatchedEqual
			} else {
				rec.Status = StatusMatchedMismatch
			}
		case StatusExternalOnly:
			if err := e.resolveRelations(ctx, rc, ds, result, rec); err != nil {
				return nil, err
			}
		}
	}

	switch {
	case !e.opts.Commits():
	case sheet.Format.ReadOnly:
		log.Info("Sheet is read-only, skipping commit")
	default:
		if err := e.commit(ctx, rc, sheet, result, log); err != nil {
			return nil, err
		}
	}

	counts := result.Counts()
	log.Info("Reconciled sheet",
		zap.Int("external", result.TotalExternal),
		zap.Int("store", result.TotalStore),
		zap.Int("matched_equal", counts[StatusMatchedEqual]),
		zap.Int("matched_mismatch", counts[StatusMatchedMismatch]),
		zap.Int("external_only", counts[StatusExternalOnly]),
		zap.Int("store_only", counts[StatusStoreOnly]),
		zap.Int("unresolvable", counts[StatusUnresolvable]),
		zap.Int("no_change", counts[StatusNoChange]),
		zap.Int("unresolved", len(result.Unresolved)),
	)
	return result, nil
}

// load reads the sheet and queries the store, concurrently unless ParallelLoad is off.
func (e *Engine) load(ctx context.Context, sheet *schema.Sheet) (*tabular.Table, []store.Row, error) {
	var (
		table *tabular.Table
		rows  []store.Row
	)

	g, gctx := errgroup.WithContext(ctx)
	if !e.opts.ParallelLoad {
		g.SetLimit(1)
	}
	g.Go(func() error {
		t, err := e.source.ReadTable(sheet.Name)
		if err != nil {
			return fmt.Errorf("failed to read sheet: %w", err)
		}
		table = t
		return nil
	})
	g.Go(func() error {
		r, err := e.store.Query(gctx, sheet.Dataset.Entity.Name, sheet.Dataset.FieldNames(), sheet.Filter)
		if err != nil {
			return fmt.Errorf("failed to query %s for sheet %s: %w", sheet.Dataset.Entity.Name, sheet.Name, err)
		}
		rows = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return table, rows, nil
}

// indexExternal keys every sheet row by its composite index.
func (e *Engine) indexExternal(sheet *schema.Sheet, table *tabular.Table, result *DatasetResult, log *zap.Logger) {
	ds := sheet.Dataset
	headers := externalHeaders(ds, table.Headers)

	for i, cells := range table.Rows {
		rowNum := i + 2
		ext := make(map[string]string, len(headers))
		for j, h := range headers {
			if h != "" {
				ext[h] = cells[j]
			}
		}
		rec := &Record{Row: rowNum, External: ext}

		parts, ierr := externalKey(ds, ext)
		if ierr != nil {
			ierr.Sheet, ierr.Row = sheet.Name, rowNum
			e.unresolvable(result, rec, ierr, log)
			continue
		}
		rec.Key = parts
		rec.index = strings.Join(parts, indexSeparator)
		if _, dup := result.byIndex[rec.index]; dup {
			e.unresolvable(result, rec, &RowIndexError{
				Sheet: sheet.Name, Side: SideExternal, Row: rowNum,
				Reason: fmt.Sprintf("duplicate index [%s]", rec.DisplayIndex()),
			}, log)
			continue
		}
		rec.Status = StatusExternalOnly
		result.byIndex[rec.index] = rec
		result.Records = append(result.Records, rec)
	}
}

// indexStore pairs store rows with sheet rows by composite index.
func (e *Engine) indexStore(ctx context.Context, rc *Context, sheet *schema.Sheet, rows []store.Row, result *DatasetResult, log *zap.Logger) error {
	ds := sheet.Dataset
	for i, row := range rows {
		parts, err := e.storeKey(ctx, rc, ds, row)
		if err != nil {
			var ierr *RowIndexError
			if !errors.As(err, &ierr) {
				return err
			}
			ierr.Sheet, ierr.Row = sheet.Name, i+1
			e.unresolvable(result, &Record{Store: row}, ierr, log)
			continue
		}

		index := strings.Join(parts, indexSeparator)
		rec, ok := result.byIndex[index]
		switch {
		case !ok:
			rec = &Record{Key: parts, Store: row, Status: StatusStoreOnly, index: index}
			result.byIndex[index] = rec
			result.Records = append(result.Records, rec)
		case rec.Store != nil:
			e.unresolvable(result, &Record{Key: parts, Store: row}, &RowIndexError{
				Sheet: sheet.Name, Side: SideStore, Row: i + 1,
				Reason: fmt.Sprintf("duplicate index [%s]", strings.Join(parts, KeySeparator)),
			}, log)
		default:
			rec.Store = row
			rec.Status = StatusPending
		}
	}
	return nil
}

func (e *Engine) unresolvable(result *DatasetResult, rec *Record, err *RowIndexError, log *zap.Logger) {
	rec.Status = StatusUnresolvable
	rec.Reason = err.Error()
	result.Records = append(result.Records, rec)
	log.Warn("Cannot index row",
		zap.String("side", string(err.Side)),
		zap.Int("row", err.Row),
		zap.String("field", err.Field),
		zap.String("reason", err.Reason),
	)
}

// externalHeaders maps sheet headers to dataset column names. Entries are empty for the
// id column and for entity fields the dataset does not select; unknown headers are kept as-is.
func externalHeaders(ds *schema.Dataset, headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		switch {
		case strings.EqualFold(h, "id"), strings.EqualFold(h, ds.Entity.PrimaryKey):
		case h == "":
		default:
			if col, ok := ds.Column(h); ok {
				out[i] = col.Name
			} else if _, known := ds.Entity.Field(h); !known {
				out[i] = h
			}
		}
	}
	return out
}

// externalKey builds the key parts of a sheet row. Relation cells already hold natural keys.
func externalKey(ds *schema.Dataset, ext map[string]string) ([]string, *RowIndexError) {
	parts := make([]string, 0, len(ds.IndexKey))
	for _, key := range ds.IndexKey {
		cell, ok := ext[key]
		if !ok {
			return nil, &RowIndexError{Side: SideExternal, Field: key, Reason: "index column missing from sheet"}
		}
		cell = strings.TrimSpace(cell)
		if cell == "" {
			return nil, &RowIndexError{Side: SideExternal, Field: key, Reason: "empty index value"}
		}
		parts = append(parts, cell)
	}
	return parts, nil
}

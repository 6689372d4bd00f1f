package importer

import (
	"context"
	"fmt"

	"sheet-reconciler/core/reconcile"
	"sheet-reconciler/core/report"
	"sheet-reconciler/core/schema"
	"sheet-reconciler/core/store"
	"sheet-reconciler/core/tabular"

	"go.uber.org/zap"
)

// Request is one import run.
type Request struct {
	// Source holds the sheets to reconcile.
	Source tabular.Reader
	// Workbook names the source in the report.
	Workbook string
	Options  reconcile.Options
	LOD      report.LOD
}

// Service runs imports against a store.
type Service struct {
	store  store.Store
	models schema.ModelSource
	path   string
	cfg    reconcile.Config
	logger *zap.Logger
}

// NewService creates an import service for the mapping document at path.
func NewService(st store.Store, models schema.ModelSource, path string, cfg reconcile.Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, models: models, path: path, cfg: cfg, logger: logger}
}

// DefaultLOD returns the configured level of detail, falling back to SUMMARY.
func (s *Service) DefaultLOD() report.LOD {
	lod, err := report.ParseLOD(s.cfg.LOD)
	if err != nil {
		return report.LODSummary
	}
	return lod
}

// Import reconciles the request's source and builds the report.
// When a report directory is configured the report is also written there.
func (s *Service) Import(ctx context.Context, req Request) (*report.Report, error) {
	model, err := s.models.Get(ctx, s.path)
	if err != nil {
		return nil, err
	}
	if !model.Valid() {
		return nil, model.Errors.Err()
	}

	opts := req.Options
	opts.ParallelLoad = s.cfg.ParallelLoad
	engine, err := reconcile.NewEngine(s.store, req.Source, s.logger, opts)
	if err != nil {
		return nil, err
	}

	log := s.logger.With(zap.String("mode", opts.Mode()), zap.String("workbook", req.Workbook))
	log.Info("Starting import", zap.Strings("order", model.Order))

	rc, err := engine.Run(ctx, model)
	if err != nil {
		return nil, fmt.Errorf("import failed: %w", err)
	}

	r := report.Build(rc.Results(), req.LOD, report.RunInfo{
		Mode:     opts.Mode(),
		Workbook: req.Workbook,
		Mapping:  s.path,
	})
	log.Info("Import completed",
		zap.Int("datasets", r.Totals.Datasets),
		zap.Int("issues", r.Totals.Issues),
		zap.Int("created", r.Totals.Created),
		zap.Int("updated", r.Totals.Updated),
		zap.Int("unresolved", r.Totals.Unresolved))

	if s.cfg.ReportDir != "" {
		path, err := r.Save(s.cfg.ReportDir)
		if err != nil {
			log.Warn("Failed to write report file", zap.Error(err))
		} else {
			log.Info("Report written", zap.String("path", path))
		}
	}
	return r, nil
}

package importer

import (
	"sheet-reconciler/core/reconcile"
	"sheet-reconciler/core/schema"
	"sheet-reconciler/core/store"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates a new importer feature.
func NewFeature(st store.Store, models schema.ModelSource, path string, cfg reconcile.Config, logger *zap.Logger) *Feature {
	svc := NewService(st, models, path, cfg, logger)
	return &Feature{service: svc, handler: NewHandler(svc)}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "importer"
}

// IsEnabled reports whether a store is available to import into.
func (f *Feature) IsEnabled() bool {
	return f.service.store != nil
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}

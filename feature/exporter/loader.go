package exporter

import (
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

// NewFeature creates a new exporter feature.
func NewFeature(st store.Store, models schema.ModelSource, path string, logger *zap.Logger) *Feature {
	svc := NewService(st, models, path, logger)
	return &Feature{service: svc, handler: NewHandler(svc)}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "exporter"
}

// IsEnabled reports whether a store is available to export from.
func (f *Feature) IsEnabled() bool {
	return f.service.store != nil
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}

package validator

import (
	"sheet-reconciler/core/schema"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates a new validator feature.
func NewFeature(models schema.ModelSource, path string, logger *zap.Logger) *Feature {
	svc := NewService(models, path, logger)
	return &Feature{service: svc, handler: NewHandler(svc)}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "validator"
}

// IsEnabled reports whether models can be resolved.
func (f *Feature) IsEnabled() bool {
	return f.service.models != nil
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}

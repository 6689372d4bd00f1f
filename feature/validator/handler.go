package validator

import (
	"errors"

	"sheet-reconciler/core/logger"
	"sheet-reconciler/core/mapping"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for mapping validation.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the validation routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	app.Get("/mapping", h.HandleValidate)
}

// HandleValidate validates the configured mapping document.
// An invalid document answers 422 with the grouped errors.
func (h *Handler) HandleValidate(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	result, err := h.service.Validate(c.Context())
	if err != nil {
		l.Error("Mapping validation failed", zap.Error(err))
		status := fiber.StatusInternalServerError
		if errors.Is(err, mapping.ErrConfigNotFound) {
			status = fiber.StatusNotFound
		}
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	if !result.Valid {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(result)
	}
	return c.JSON(result)
}

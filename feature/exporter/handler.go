package exporter

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"sheet-reconciler/core/logger"
	"sheet-reconciler/core/mapping"
	"sheet-reconciler/core/storage"
	"sheet-reconciler/core/tabular"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for exports.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the export routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	app.Get("/export", h.HandleExport)
}

// HandleExport streams a freshly exported workbook.
func (h *Handler) HandleExport(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	wb := tabular.NewWorkbook()
	defer wb.Close()

	stats, err := h.service.Export(c.Context(), wb)
	if err != nil {
		l.Error("Export failed", zap.Error(err))
		status := fiber.StatusInternalServerError
		switch {
		case errors.Is(err, mapping.ErrConfigNotFound):
			status = fiber.StatusNotFound
		case errors.Is(err, mapping.ErrInvalidConfig):
			status = fiber.StatusUnprocessableEntity
		}
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	var buf bytes.Buffer
	if err := wb.Write(&buf); err != nil {
		l.Error("Failed to encode workbook", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	l.Info("Export completed", zap.Int("sheets", len(stats)), zap.Int("bytes", buf.Len()))
	c.Attachment(fmt.Sprintf("export_%s.xlsx", time.Now().Format("20060102-150405")))
	c.Set(fiber.HeaderContentType, storage.ContentTypeXLSX)
	return c.Send(buf.Bytes())
}

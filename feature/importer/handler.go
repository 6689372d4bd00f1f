package importer

import (
	"errors"

	"sheet-reconciler/core/logger"
	"sheet-reconciler/core/mapping"
	"sheet-reconciler/core/reconcile"
	"sheet-reconciler/core/report"
	"sheet-reconciler/core/tabular"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for imports.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the import routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	app.Post("/import", h.HandleImport)
}

// HandleImport reconciles the uploaded workbook and returns the report.
func (h *Handler) HandleImport(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	opts, err := reconcile.ParseMode(c.Query("mode"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	lod := h.service.DefaultLOD()
	if raw := c.Query("lod"); raw != "" {
		if lod, err = report.ParseLOD(raw); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
	}

	fh, err := c.FormFile("workbook")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing workbook file"})
	}
	file, err := fh.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	defer file.Close()

	wb, err := tabular.ReadWorkbook(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	defer wb.Close()

	l.Info("Importing workbook", zap.String("file", fh.Filename), zap.String("mode", opts.Mode()))
	r, err := h.service.Import(c.Context(), Request{
		Source:   wb,
		Workbook: fh.Filename,
		Options:  opts,
		LOD:      lod,
	})
	if err != nil {
		l.Error("Import failed", zap.Error(err))
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(r)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, mapping.ErrConfigNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, mapping.ErrInvalidConfig),
		errors.Is(err, tabular.ErrSheetNotFound):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, reconcile.ErrConflictingOptions):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

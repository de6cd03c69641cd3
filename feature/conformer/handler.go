package conformer

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"conformer-pipeline/core/logger"
)

// Handler handles HTTP requests for conformer run results.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the conformer routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/conformers")
	group.Get("/stats", h.HandleListStats)
	group.Get("/:id", h.HandleGetOutcome)

	topologies := app.Group("/topologies")
	topologies.Get("/:id/summary", h.HandleGetSummary)
	topologies.Get("/:id/conformers", h.HandleListOutcomes)
}

// HandleGetOutcome returns the recorded outcome for one conformer id.
func (h *Handler) HandleGetOutcome(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, err)
	}
	l := logger.WithRayID(h.service.logger, c)

	row, err := h.service.GetOutcome(c.Context(), id)
	if errors.Is(err, ErrNotFound) {
		return notFound(c)
	}
	if err != nil {
		l.Error("Outcome lookup failed", zap.Int64("conformer_id", id), zap.Error(err))
		return internalError(c, err)
	}
	return c.JSON(row)
}

// HandleGetSummary returns the aggregated summary for one bond topology id.
func (h *Handler) HandleGetSummary(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, err)
	}
	l := logger.WithRayID(h.service.logger, c)

	row, err := h.service.GetSummary(c.Context(), id)
	if errors.Is(err, ErrNotFound) {
		return notFound(c)
	}
	if err != nil {
		l.Error("Summary lookup failed", zap.Int64("bond_topology_id", id), zap.Error(err))
		return internalError(c, err)
	}
	return c.JSON(row)
}

// HandleListOutcomes returns every conformer outcome under one bond topology.
func (h *Handler) HandleListOutcomes(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, err)
	}
	l := logger.WithRayID(h.service.logger, c)

	rows, err := h.service.ListOutcomesByTopology(c.Context(), id)
	if err != nil {
		l.Error("Outcome listing failed", zap.Int64("bond_topology_id", id), zap.Error(err))
		return internalError(c, err)
	}
	return c.JSON(rows)
}

// HandleListStats returns the full run stat table.
func (h *Handler) HandleListStats(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	rows, err := h.service.ListStats(c.Context())
	if err != nil {
		l.Error("Stats listing failed", zap.Error(err))
		return internalError(c, err)
	}
	return c.JSON(rows)
}

func parseID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return 0, errors.Errorf("invalid id %q", c.Params("id"))
	}
	return id, nil
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
}

func notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
}

func internalError(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

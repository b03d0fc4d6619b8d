package server

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"StructLedger/internal/observability"
	"StructLedger/internal/query"
)

// Handler serves the read-only status API over the query projection.
type Handler struct {
	Logger zerolog.Logger
	Query  *query.Service
	Health *observability.HealthChecker
}

func NewHandler(logger zerolog.Logger, q *query.Service, health *observability.HealthChecker) *Handler {
	return &Handler{Logger: logger, Query: q, Health: health}
}

// ListProducts returns the status projection of every registered product.
func (h *Handler) ListProducts(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(h.Query.ListProducts())
}

// GetProduct returns a single product's status projection.
func (h *Handler) GetProduct(c *fiber.Ctx) error {
	symbol := c.Params("symbol")
	if symbol == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "missing symbol"})
	}

	status, err := h.Query.ProductStatus(symbol)
	if err != nil {
		h.Logger.Warn().Str("symbol", symbol).Err(err).Msg("product status lookup failed")
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(http.StatusOK).JSON(status)
}

// Healthz reports liveness.
func (h *Handler) Healthz(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"status":         "ok",
		"uptime_seconds": int64(h.Health.Uptime() / time.Second),
	})
}

// Readyz reports readiness: the engine has loaded its term sheets and
// subscriptions are live.
func (h *Handler) Readyz(c *fiber.Ctx) error {
	if !h.Health.IsReady() {
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{"status": "not ready"})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "ready"})
}

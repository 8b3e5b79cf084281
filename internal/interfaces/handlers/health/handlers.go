package health

import (
	healthsvc "verdant-backend/internal/health"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *healthsvc.Service
}

// JSON GET /health/json
func (h *Handlers) JSON(c *fiber.Ctx) error {
	report := h.Service.Check(c.Context())
	status := fiber.StatusOK
	if report.Status != "ok" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(report)
}

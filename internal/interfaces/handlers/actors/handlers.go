package actors

import (
	"verdant-backend/internal/auth"
	"verdant-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *auth.Service
}

// Register POST /api/v1/actors/register
func (h *Handlers) Register(c *fiber.Ctx) error {
	var body auth.RegisterActorInput
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	actor, err := h.Service.RegisterActor(c.Context(), body)
	if err != nil {
		return response.FromDomainError(c, err)
	}
	return response.SuccessCreated(c, "Actor registered", actor, nil)
}

// View GET /api/v1/actors/:address
func (h *Handlers) View(c *fiber.Ctx) error {
	actor, err := h.Service.GetActor(c.Context(), c.Params("address"))
	if err != nil {
		return response.FromDomainError(c, err)
	}
	return response.Success(c, "Actor fetched", actor, nil)
}

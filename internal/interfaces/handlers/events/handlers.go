package events

import (
	"strconv"

	evsvc "verdant-backend/internal/events"
	"verdant-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Recorder *evsvc.Recorder
}

// List GET /api/v1/events?name=credit_issued&limit=50
func (h *Handlers) List(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit"))
	evs, err := h.Recorder.ListEvents(c.Context(), c.Query("name"), limit)
	if err != nil {
		return response.FromDomainError(c, err)
	}
	return response.Success(c, "Events fetched", evs, nil)
}

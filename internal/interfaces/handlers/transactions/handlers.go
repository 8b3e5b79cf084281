package transactions

import (
	txsvc "verdant-backend/internal/application/transactions"
	"verdant-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *txsvc.Service
}

// GetCreditTransfers GET /api/v1/transactions/credit-transfers?actor=...
func (h *Handlers) GetCreditTransfers(c *fiber.Ctx) error {
	txs, err := h.Service.ViewCreditTransfers(c.Context(), c.Query("actor"))
	if err != nil {
		return response.FromDomainError(c, err)
	}
	return response.Success(c, "Credit transfers fetched", txs, nil)
}

// GetTokenTransfers GET /api/v1/transactions/token-transfers?actor=...
func (h *Handlers) GetTokenTransfers(c *fiber.Ctx) error {
	txs, err := h.Service.ViewTokenTransfers(c.Context(), c.Query("actor"))
	if err != nil {
		return response.FromDomainError(c, err)
	}
	return response.Success(c, "Token transfers fetched", txs, nil)
}

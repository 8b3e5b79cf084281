package token

import (
	toksvc "verdant-backend/internal/application/token"
	"verdant-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const proofHeader = "X-Actor-Key"

type Handlers struct {
	Service *toksvc.Service
}

// Initialize POST /api/v1/token/initialize
func (h *Handlers) Initialize(c *fiber.Ctx) error {
	var body struct {
		Issuer string `json:"issuer"`
		Asset  string `json:"asset"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	if err := h.Service.Initialize(c.Context(), body.Issuer, body.Asset); err != nil {
		return response.FromDomainError(c, err)
	}
	return response.SuccessCreated(c, "Token ledger initialized", fiber.Map{
		"issuer": body.Issuer, "asset": body.Asset,
	}, nil)
}

// Mint POST /api/v1/token/mint
func (h *Handlers) Mint(c *fiber.Ctx) error {
	var body struct {
		Minter string `json:"minter"`
		To     string `json:"to"`
		Amount int64  `json:"amount"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	if err := h.Service.Mint(c.Context(), body.Minter, c.Get(proofHeader), body.To, body.Amount); err != nil {
		return response.FromDomainError(c, err)
	}
	return response.Success(c, "Tokens minted", fiber.Map{"to": body.To, "amount": body.Amount}, nil)
}

// Transfer POST /api/v1/token/transfer
func (h *Handlers) Transfer(c *fiber.Ctx) error {
	var body struct {
		From   string `json:"from"`
		To     string `json:"to"`
		Amount int64  `json:"amount"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	if err := h.Service.Transfer(c.Context(), body.From, c.Get(proofHeader), body.To, body.Amount); err != nil {
		return response.FromDomainError(c, err)
	}
	return response.Success(c, "Tokens transferred", fiber.Map{
		"from": body.From, "to": body.To, "amount": body.Amount,
	}, nil)
}

// Balance GET /api/v1/token/balance/:address
func (h *Handlers) Balance(c *fiber.Ctx) error {
	balance, err := h.Service.BalanceOf(c.Context(), c.Params("address"))
	if err != nil {
		return response.FromDomainError(c, err)
	}
	return response.Success(c, "Balance fetched", fiber.Map{
		"address": c.Params("address"), "balance": balance,
	}, nil)
}

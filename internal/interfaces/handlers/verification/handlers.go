package verification

import (
	"strconv"

	versvc "verdant-backend/internal/application/verification"
	"verdant-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const proofHeader = "X-Actor-Key"

type Handlers struct {
	Service *versvc.Service
}

// Initialize POST /api/v1/verification/initialize
func (h *Handlers) Initialize(c *fiber.Ctx) error {
	var body struct {
		Admin string `json:"admin"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	if err := h.Service.Initialize(c.Context(), body.Admin); err != nil {
		return response.FromDomainError(c, err)
	}
	return response.SuccessCreated(c, "Verification workflow initialized", fiber.Map{"admin": body.Admin}, nil)
}

// AddVerifier POST /api/v1/verification/verifiers
func (h *Handlers) AddVerifier(c *fiber.Ctx) error {
	var body struct {
		Admin    string `json:"admin"`
		Verifier string `json:"verifier"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	if err := h.Service.AddVerifier(c.Context(), body.Admin, c.Get(proofHeader), body.Verifier); err != nil {
		return response.FromDomainError(c, err)
	}
	return response.Success(c, "Verifier added", fiber.Map{"verifier": body.Verifier}, nil)
}

// RemoveVerifier DELETE /api/v1/verification/verifiers
func (h *Handlers) RemoveVerifier(c *fiber.Ctx) error {
	var body struct {
		Admin    string `json:"admin"`
		Verifier string `json:"verifier"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	if err := h.Service.RemoveVerifier(c.Context(), body.Admin, c.Get(proofHeader), body.Verifier); err != nil {
		return response.FromDomainError(c, err)
	}
	return response.Success(c, "Verifier removed", fiber.Map{"verifier": body.Verifier}, nil)
}

// Submit POST /api/v1/verification/submit
func (h *Handlers) Submit(c *fiber.Ctx) error {
	var body versvc.SubmitInput
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	if err := h.Service.SubmitVerification(c.Context(), c.Get(proofHeader), body); err != nil {
		return response.FromDomainError(c, err)
	}
	return response.SuccessCreated(c, "Verification submitted", fiber.Map{"credit_id": body.CreditID}, nil)
}

// Assign POST /api/v1/verification/assign
func (h *Handlers) Assign(c *fiber.Ctx) error {
	var body struct {
		Caller   string `json:"caller"`
		CreditID uint64 `json:"credit_id"`
		Verifier string `json:"verifier"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	if err := h.Service.AssignVerifier(c.Context(), body.Caller, c.Get(proofHeader), body.CreditID, body.Verifier); err != nil {
		return response.FromDomainError(c, err)
	}
	return response.Success(c, "Verifier assigned", fiber.Map{
		"credit_id": body.CreditID, "verifier": body.Verifier,
	}, nil)
}

// Approve POST /api/v1/verification/approve
func (h *Handlers) Approve(c *fiber.Ctx) error {
	var body struct {
		Verifier string `json:"verifier"`
		CreditID uint64 `json:"credit_id"`
		Notes    string `json:"notes"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	if err := h.Service.ApproveVerification(c.Context(), body.Verifier, c.Get(proofHeader), body.CreditID, body.Notes); err != nil {
		return response.FromDomainError(c, err)
	}
	return response.Success(c, "Verification approved", fiber.Map{"credit_id": body.CreditID}, nil)
}

// Reject POST /api/v1/verification/reject
func (h *Handlers) Reject(c *fiber.Ctx) error {
	var body struct {
		Verifier string `json:"verifier"`
		CreditID uint64 `json:"credit_id"`
		Reason   string `json:"reason"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	if err := h.Service.RejectVerification(c.Context(), body.Verifier, c.Get(proofHeader), body.CreditID, body.Reason); err != nil {
		return response.FromDomainError(c, err)
	}
	return response.Success(c, "Verification rejected", fiber.Map{"credit_id": body.CreditID}, nil)
}

// GetRequest GET /api/v1/verification/requests/:credit_id
func (h *Handlers) GetRequest(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("credit_id"), 10, 64)
	if err != nil {
		return response.Error(c, "Invalid credit id", 400, nil)
	}
	req, err := h.Service.GetRequest(c.Context(), id)
	if err != nil {
		return response.FromDomainError(c, err)
	}
	return response.Success(c, "Request fetched", req, nil)
}

// GetVerifiers GET /api/v1/verification/verifiers
func (h *Handlers) GetVerifiers(c *fiber.Ctx) error {
	members, err := h.Service.GetVerifiers(c.Context())
	if err != nil {
		return response.FromDomainError(c, err)
	}
	return response.Success(c, "Verifiers fetched", members, nil)
}

// IsVerifier GET /api/v1/verification/verifiers/:address
func (h *Handlers) IsVerifier(c *fiber.Ctx) error {
	ok, err := h.Service.IsVerifier(c.Context(), c.Params("address"))
	if err != nil {
		return response.FromDomainError(c, err)
	}
	return response.Success(c, "Membership fetched", fiber.Map{
		"address": c.Params("address"), "is_verifier": ok,
	}, nil)
}

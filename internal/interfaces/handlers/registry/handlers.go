package registry

import (
	"strconv"

	regsvc "verdant-backend/internal/application/registry"
	"verdant-backend/internal/domain"
	"verdant-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const proofHeader = "X-Actor-Key"

type Handlers struct {
	Service *regsvc.Service
}

// Initialize POST /api/v1/registry/initialize
func (h *Handlers) Initialize(c *fiber.Ctx) error {
	var body struct {
		Admin                 string `json:"admin"`
		VerificationAuthority string `json:"verification_authority"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	if err := h.Service.Initialize(c.Context(), body.Admin, body.VerificationAuthority); err != nil {
		return response.FromDomainError(c, err)
	}
	return response.SuccessCreated(c, "Registry initialized", fiber.Map{
		"admin":                  body.Admin,
		"verification_authority": body.VerificationAuthority,
	}, nil)
}

// IssueCredit POST /api/v1/registry/issue
func (h *Handlers) IssueCredit(c *fiber.Ctx) error {
	var body regsvc.IssueCreditInput
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	credit, err := h.Service.IssueCredit(c.Context(), c.Get(proofHeader), body)
	if err != nil {
		return response.FromDomainError(c, err)
	}
	return response.SuccessCreated(c, "Credit issued", credit, nil)
}

// UpdateVerification POST /api/v1/registry/update-verification
func (h *Handlers) UpdateVerification(c *fiber.Ctx) error {
	var body struct {
		Authority string `json:"authority"`
		CreditID  uint64 `json:"credit_id"`
		Status    string `json:"status"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	err := h.Service.UpdateVerification(c.Context(), body.Authority, c.Get(proofHeader),
		body.CreditID, domain.VerificationStatus(body.Status))
	if err != nil {
		return response.FromDomainError(c, err)
	}
	return response.Success(c, "Verification status updated", fiber.Map{
		"credit_id": body.CreditID, "status": body.Status,
	}, nil)
}

// Transfer POST /api/v1/registry/transfer
func (h *Handlers) Transfer(c *fiber.Ctx) error {
	var body struct {
		From     string `json:"from"`
		To       string `json:"to"`
		CreditID uint64 `json:"credit_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	if err := h.Service.Transfer(c.Context(), body.From, c.Get(proofHeader), body.To, body.CreditID); err != nil {
		return response.FromDomainError(c, err)
	}
	return response.Success(c, "Credit transferred", fiber.Map{
		"credit_id": body.CreditID, "from": body.From, "to": body.To,
	}, nil)
}

// RetireCredit POST /api/v1/registry/retire
func (h *Handlers) RetireCredit(c *fiber.Ctx) error {
	var body regsvc.RetireCreditInput
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	cert, err := h.Service.RetireCredit(c.Context(), c.Get(proofHeader), body)
	if err != nil {
		return response.FromDomainError(c, err)
	}
	return response.Success(c, "Credit retired", cert, nil)
}

// GetCredit GET /api/v1/registry/credits/:id
func (h *Handlers) GetCredit(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.Error(c, "Invalid credit id", 400, nil)
	}
	credit, err := h.Service.GetCredit(c.Context(), id)
	if err != nil {
		return response.FromDomainError(c, err)
	}
	return response.Success(c, "Credit fetched", credit, nil)
}

// GetOwner GET /api/v1/registry/credits/:id/owner
func (h *Handlers) GetOwner(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.Error(c, "Invalid credit id", 400, nil)
	}
	owner, err := h.Service.GetOwner(c.Context(), id)
	if err != nil {
		return response.FromDomainError(c, err)
	}
	return response.Success(c, "Owner fetched", fiber.Map{"credit_id": id, "owner": owner}, nil)
}

// IsVerified GET /api/v1/registry/credits/:id/verified
func (h *Handlers) IsVerified(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.Error(c, "Invalid credit id", 400, nil)
	}
	verified, err := h.Service.IsVerified(c.Context(), id)
	if err != nil {
		return response.FromDomainError(c, err)
	}
	return response.Success(c, "Verification state fetched", fiber.Map{
		"credit_id": id, "verified": verified,
	}, nil)
}

// ViewRetirements GET /api/v1/registry/retirements?actor=...
func (h *Handlers) ViewRetirements(c *fiber.Ctx) error {
	certs, err := h.Service.ViewActorRetirements(c.Context(), c.Query("actor"))
	if err != nil {
		return response.FromDomainError(c, err)
	}
	return response.Success(c, "Retirements fetched", certs, nil)
}

// ViewRetirement GET /api/v1/registry/retirements/:id
func (h *Handlers) ViewRetirement(c *fiber.Ctx) error {
	cert, err := h.Service.ViewOneRetirement(c.Context(), c.Params("id"))
	if err != nil {
		return response.FromDomainError(c, err)
	}
	return response.Success(c, "Retirement fetched", cert, nil)
}

func parseID(c *fiber.Ctx, name string) (uint64, error) {
	return strconv.ParseUint(c.Params(name), 10, 64)
}

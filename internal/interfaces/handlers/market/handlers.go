package market

import (
	"strconv"

	mktsvc "verdant-backend/internal/application/market"
	"verdant-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const proofHeader = "X-Actor-Key"

type Handlers struct {
	Service *mktsvc.Service
}

// Initialize POST /api/v1/market/initialize
func (h *Handlers) Initialize(c *fiber.Ctx) error {
	var body struct {
		Admin        string `json:"admin"`
		PaymentAsset string `json:"payment_asset"`
		FeeBps       int64  `json:"fee_bps"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	if err := h.Service.Initialize(c.Context(), body.Admin, body.PaymentAsset, body.FeeBps); err != nil {
		return response.FromDomainError(c, err)
	}
	return response.SuccessCreated(c, "Marketplace initialized", fiber.Map{
		"admin": body.Admin, "fee_bps": body.FeeBps,
	}, nil)
}

// CreateListing POST /api/v1/market/listings
func (h *Handlers) CreateListing(c *fiber.Ctx) error {
	var body mktsvc.CreateListingInput
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	listing, err := h.Service.CreateListing(c.Context(), c.Get(proofHeader), body)
	if err != nil {
		return response.FromDomainError(c, err)
	}
	return response.SuccessCreated(c, "Listing created", listing, nil)
}

// BuyCredit POST /api/v1/market/listings/:id/buy
func (h *Handlers) BuyCredit(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.Error(c, "Invalid listing id", 400, nil)
	}
	var body struct {
		Buyer string `json:"buyer"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	q, err := h.Service.BuyCredit(c.Context(), body.Buyer, c.Get(proofHeader), id)
	if err != nil {
		return response.FromDomainError(c, err)
	}
	return response.Success(c, "Credit purchased", q, nil)
}

// CancelListing POST /api/v1/market/listings/:id/cancel
func (h *Handlers) CancelListing(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.Error(c, "Invalid listing id", 400, nil)
	}
	var body struct {
		Seller string `json:"seller"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	if err := h.Service.CancelListing(c.Context(), body.Seller, c.Get(proofHeader), id); err != nil {
		return response.FromDomainError(c, err)
	}
	return response.Success(c, "Listing cancelled", fiber.Map{"listing_id": id}, nil)
}

// UpdatePrice POST /api/v1/market/listings/:id/price
func (h *Handlers) UpdatePrice(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.Error(c, "Invalid listing id", 400, nil)
	}
	var body struct {
		Seller   string `json:"seller"`
		NewPrice int64  `json:"new_price"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	if err := h.Service.UpdatePrice(c.Context(), body.Seller, c.Get(proofHeader), id, body.NewPrice); err != nil {
		return response.FromDomainError(c, err)
	}
	return response.Success(c, "Price updated", fiber.Map{
		"listing_id": id, "new_price": body.NewPrice,
	}, nil)
}

// UpdateFee POST /api/v1/market/fee
func (h *Handlers) UpdateFee(c *fiber.Ctx) error {
	var body struct {
		Admin  string `json:"admin"`
		FeeBps int64  `json:"fee_bps"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	if err := h.Service.UpdateMarketplaceFee(c.Context(), body.Admin, c.Get(proofHeader), body.FeeBps); err != nil {
		return response.FromDomainError(c, err)
	}
	return response.Success(c, "Fee updated", fiber.Map{"fee_bps": body.FeeBps}, nil)
}

// GetListing GET /api/v1/market/listings/:id
func (h *Handlers) GetListing(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.Error(c, "Invalid listing id", 400, nil)
	}
	listing, err := h.Service.GetListing(c.Context(), id)
	if err != nil {
		return response.FromDomainError(c, err)
	}
	return response.Success(c, "Listing fetched", listing, nil)
}

// GetActiveListings GET /api/v1/market/listings
func (h *Handlers) GetActiveListings(c *fiber.Ctx) error {
	listings, err := h.Service.GetActiveListings(c.Context())
	if err != nil {
		return response.FromDomainError(c, err)
	}
	return response.Success(c, "Active listings fetched", listings, nil)
}

// GetFee GET /api/v1/market/fee
func (h *Handlers) GetFee(c *fiber.Ctx) error {
	fee, err := h.Service.GetMarketplaceFee(c.Context())
	if err != nil {
		return response.FromDomainError(c, err)
	}
	return response.Success(c, "Fee fetched", fiber.Map{"fee_bps": fee}, nil)
}

func parseID(c *fiber.Ctx) (uint64, error) {
	return strconv.ParseUint(c.Params("id"), 10, 64)
}

package market

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	mktsvc "verdant-backend/internal/application/market"
	regsvc "verdant-backend/internal/application/registry"
	toksvc "verdant-backend/internal/application/token"
	"verdant-backend/internal/auth"
	"verdant-backend/internal/domain"
	"verdant-backend/internal/events"
	"verdant-backend/internal/infrastructure/database"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "s3cret-key!"

func setupMarketTest(t *testing.T) (*Handlers, *fiber.App) {
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	ctx := context.Background()
	authService := &auth.Service{DB: db}
	for _, addr := range []string{"market-admin", "treasury", "seller-co", "buyer-co"} {
		_, err := authService.RegisterActor(ctx, auth.RegisterActorInput{
			Address: addr, DisplayName: addr, ProofKey: testKey,
		})
		require.NoError(t, err)
	}

	recorder := &events.Recorder{DB: db}
	reg := &regsvc.Service{DB: db, Auth: authService, Recorder: recorder}
	require.NoError(t, reg.Initialize(ctx, "market-admin", "market-admin"))
	tok := &toksvc.Service{DB: db, Auth: authService, Recorder: recorder}
	require.NoError(t, tok.Initialize(ctx, "treasury", "VUSD"))
	svc := &mktsvc.Service{DB: db, Auth: authService, Recorder: recorder, Registry: reg, Tokens: tok}
	require.NoError(t, svc.Initialize(ctx, "market-admin", "VUSD", 250))

	// Seed a verified credit owned by seller-co and a funded buyer.
	credit, err := reg.IssueCredit(ctx, testKey, regsvc.IssueCreditInput{
		Issuer: "seller-co", ProjectID: "ICR-001", AmountTons: 100,
	})
	require.NoError(t, err)
	require.NoError(t, reg.UpdateVerification(ctx, "market-admin", testKey, credit.CreditID, domain.VerificationVerified))
	require.NoError(t, tok.Mint(ctx, "treasury", testKey, "buyer-co", 100000))

	h := &Handlers{Service: svc}
	app := fiber.New()
	app.Post("/listings", h.CreateListing)
	app.Get("/listings", h.GetActiveListings)
	app.Get("/listings/:id", h.GetListing)
	app.Post("/listings/:id/buy", h.BuyCredit)
	app.Post("/listings/:id/cancel", h.CancelListing)
	app.Get("/fee", h.GetFee)
	return h, app
}

func doJSON(t *testing.T, app *fiber.App, method, path, proof string, payload map[string]interface{}) (int, map[string]interface{}) {
	var reader *bytes.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		require.NoError(t, err)
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if proof != "" {
		req.Header.Set("X-Actor-Key", proof)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func TestCreateListing_Created(t *testing.T) {
	_, app := setupMarketTest(t)

	status, body := doJSON(t, app, "POST", "/listings", testKey, map[string]interface{}{
		"seller": "seller-co", "credit_id": 1, "price_per_ton": 500, "amount_tons": 100,
	})
	assert.Equal(t, 201, status)
	assert.Equal(t, "success", body["status"])
	data, _ := body["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["listing_id"])
	assert.Equal(t, "active", data["status"])
}

func TestCreateListing_NotOwner(t *testing.T) {
	_, app := setupMarketTest(t)

	status, _ := doJSON(t, app, "POST", "/listings", testKey, map[string]interface{}{
		"seller": "buyer-co", "credit_id": 1, "price_per_ton": 500, "amount_tons": 100,
	})
	assert.Equal(t, 403, status)
}

func TestBuyCredit_SettlesAndReturnsQuote(t *testing.T) {
	_, app := setupMarketTest(t)
	doJSON(t, app, "POST", "/listings", testKey, map[string]interface{}{
		"seller": "seller-co", "credit_id": 1, "price_per_ton": 500, "amount_tons": 100,
	})

	status, body := doJSON(t, app, "POST", "/listings/1/buy", testKey, map[string]interface{}{
		"buyer": "buyer-co",
	})
	assert.Equal(t, 200, status)
	data, _ := body["data"].(map[string]interface{})
	assert.Equal(t, float64(50000), data["total_price"])
	assert.Equal(t, float64(1250), data["fee"])
	assert.Equal(t, float64(48750), data["seller_amount"])

	// A second purchase of the same listing conflicts.
	status, _ = doJSON(t, app, "POST", "/listings/1/buy", testKey, map[string]interface{}{
		"buyer": "buyer-co",
	})
	assert.Equal(t, 409, status)
}

func TestCancelListing_SellerOnly(t *testing.T) {
	_, app := setupMarketTest(t)
	doJSON(t, app, "POST", "/listings", testKey, map[string]interface{}{
		"seller": "seller-co", "credit_id": 1, "price_per_ton": 500, "amount_tons": 100,
	})

	status, _ := doJSON(t, app, "POST", "/listings/1/cancel", testKey, map[string]interface{}{
		"seller": "buyer-co",
	})
	assert.Equal(t, 403, status)

	status, _ = doJSON(t, app, "POST", "/listings/1/cancel", testKey, map[string]interface{}{
		"seller": "seller-co",
	})
	assert.Equal(t, 200, status)
}

func TestGetActiveListings_Empty(t *testing.T) {
	_, app := setupMarketTest(t)

	status, body := doJSON(t, app, "GET", "/listings", "", nil)
	assert.Equal(t, 200, status)
	assert.Equal(t, "success", body["status"])
}

func TestGetListing_NotFound(t *testing.T) {
	_, app := setupMarketTest(t)

	status, _ := doJSON(t, app, "GET", "/listings/42", "", nil)
	assert.Equal(t, 404, status)
}

func TestGetFee(t *testing.T) {
	_, app := setupMarketTest(t)

	status, body := doJSON(t, app, "GET", "/fee", "", nil)
	assert.Equal(t, 200, status)
	data, _ := body["data"].(map[string]interface{})
	assert.Equal(t, float64(250), data["fee_bps"])
}

package market

import (
	"context"
	"testing"
	"time"

	"verdant-backend/internal/application/registry"
	"verdant-backend/internal/application/token"
	"verdant-backend/internal/application/verification"
	"verdant-backend/internal/auth"
	"verdant-backend/internal/domain"
	"verdant-backend/internal/events"
	"verdant-backend/internal/infrastructure/database"
	"verdant-backend/internal/pkg/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Full credit lifecycle: issue, verify through the workflow, list, buy with
// fee settlement, retire.
func TestCreditLifecycle(t *testing.T) {
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	ctx := context.Background()
	authService := &auth.Service{DB: db}
	for _, addr := range []string{"admin", "treasury", "forest-co", "vera", "offset-buyer"} {
		_, err := authService.RegisterActor(ctx, auth.RegisterActorInput{
			Address: addr, DisplayName: addr, ProofKey: testKey,
		})
		require.NoError(t, err)
	}

	recorder := &events.Recorder{DB: db}
	fixed := clock.Fixed{T: time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC)}

	reg := &registry.Service{DB: db, Auth: authService, Recorder: recorder, Clock: fixed}
	wf := &verification.Service{DB: db, Auth: authService, Recorder: recorder, Registry: reg, Clock: fixed}
	tok := &token.Service{DB: db, Auth: authService, Recorder: recorder}
	m := &Service{DB: db, Auth: authService, Recorder: recorder, Registry: reg, Tokens: tok, Clock: fixed}

	require.NoError(t, reg.Initialize(ctx, "admin", "admin"))
	require.NoError(t, wf.Initialize(ctx, "admin"))
	require.NoError(t, tok.Initialize(ctx, "treasury", "VUSD"))
	require.NoError(t, m.Initialize(ctx, "admin", "VUSD", 250))

	// Issue 5000 tons to forest-co.
	credit, err := reg.IssueCredit(ctx, testKey, registry.IssueCreditInput{
		Issuer: "forest-co", ProjectID: "VCS-2209", ProjectName: "Rainforest Conservation",
		VintageYear: 2025, AmountTons: 5000,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), credit.CreditID)

	// Verification: submit, assign vera, approve.
	require.NoError(t, wf.SubmitVerification(ctx, testKey, verification.SubmitInput{
		Requester: "forest-co", CreditID: credit.CreditID, ProjectID: "VCS-2209", EvidenceURI: "ipfs://audit-2025",
	}))
	require.NoError(t, wf.AddVerifier(ctx, "admin", testKey, "vera"))
	require.NoError(t, wf.AssignVerifier(ctx, "admin", testKey, credit.CreditID, "vera"))
	require.NoError(t, wf.ApproveVerification(ctx, "vera", testKey, credit.CreditID, "audit complete"))

	verified, err := reg.IsVerified(ctx, credit.CreditID)
	require.NoError(t, err)
	require.True(t, verified)

	// List at 50 per ton and settle a purchase at 250 bps fee.
	listing, err := m.CreateListing(ctx, testKey, CreateListingInput{
		Seller: "forest-co", CreditID: credit.CreditID, PricePerTon: 50, AmountTons: 5000,
	})
	require.NoError(t, err)

	require.NoError(t, tok.Mint(ctx, "treasury", testKey, "offset-buyer", 300000))
	q, err := m.BuyCredit(ctx, "offset-buyer", testKey, listing.ListingID)
	require.NoError(t, err)
	assert.Equal(t, int64(250000), q.TotalPrice)
	assert.Equal(t, int64(6250), q.Fee)
	assert.Equal(t, int64(243750), q.SellerAmount)

	sellerBal, err := tok.BalanceOf(ctx, "forest-co")
	require.NoError(t, err)
	adminBal, err := tok.BalanceOf(ctx, "admin")
	require.NoError(t, err)
	buyerBal, err := tok.BalanceOf(ctx, "offset-buyer")
	require.NoError(t, err)
	assert.Equal(t, int64(243750), sellerBal)
	assert.Equal(t, int64(6250), adminBal)
	assert.Equal(t, int64(50000), buyerBal)

	sold, err := m.GetListing(ctx, listing.ListingID)
	require.NoError(t, err)
	assert.Equal(t, domain.ListingSold, sold.Status)

	owner, err := reg.GetOwner(ctx, credit.CreditID)
	require.NoError(t, err)
	require.NotNil(t, owner)
	require.Equal(t, "offset-buyer", *owner)

	// The buyer retires the credit and gets a certificate for the full amount.
	purpose := "FY2026 carbon neutrality claim"
	cert, err := reg.RetireCredit(ctx, testKey, registry.RetireCreditInput{
		Owner: "offset-buyer", CreditID: credit.CreditID, Purpose: &purpose,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5000), cert.AmountTons)

	owner, err = reg.GetOwner(ctx, credit.CreditID)
	require.NoError(t, err)
	assert.Nil(t, owner)
}

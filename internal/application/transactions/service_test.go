package transactions

import (
	"context"
	"testing"

	"verdant-backend/internal/auth"
	"verdant-backend/internal/domain"
	"verdant-backend/internal/events"
	"verdant-backend/internal/infrastructure/database"

	"verdant-backend/internal/application/registry"
	"verdant-backend/internal/application/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "s3cret-key!"

func setupTransactionsTest(t *testing.T) (*Service, *registry.Service, *token.Service) {
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	ctx := context.Background()
	authService := &auth.Service{DB: db}
	for _, addr := range []string{"admin", "treasury", "alice", "bob"} {
		_, err := authService.RegisterActor(ctx, auth.RegisterActorInput{
			Address: addr, DisplayName: addr, ProofKey: testKey,
		})
		require.NoError(t, err)
	}

	recorder := &events.Recorder{DB: db}
	reg := &registry.Service{DB: db, Auth: authService, Recorder: recorder}
	require.NoError(t, reg.Initialize(ctx, "admin", "admin"))
	tok := &token.Service{DB: db, Auth: authService, Recorder: recorder}
	require.NoError(t, tok.Initialize(ctx, "treasury", "VUSD"))

	return &Service{DB: db}, reg, tok
}

func TestViewCreditTransfers(t *testing.T) {
	s, reg, _ := setupTransactionsTest(t)
	ctx := context.Background()

	credit, err := reg.IssueCredit(ctx, testKey, registry.IssueCreditInput{
		Issuer: "alice", ProjectID: "ICR-001", AmountTons: 100,
	})
	require.NoError(t, err)
	require.NoError(t, reg.Transfer(ctx, "alice", testKey, "bob", credit.CreditID))

	// Alice took part in both the issue and the transfer.
	aliceTxs, err := s.ViewCreditTransfers(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, aliceTxs, 2)

	bobTxs, err := s.ViewCreditTransfers(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, bobTxs, 1)
	assert.Equal(t, "transfer", bobTxs[0].Type)
	assert.Equal(t, credit.CreditID, bobTxs[0].CreditID)
}

func TestViewTokenTransfers(t *testing.T) {
	s, _, tok := setupTransactionsTest(t)
	ctx := context.Background()

	require.NoError(t, tok.Mint(ctx, "treasury", testKey, "alice", 1000))
	require.NoError(t, tok.Transfer(ctx, "alice", testKey, "bob", 250))

	aliceTxs, err := s.ViewTokenTransfers(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, aliceTxs, 2)

	bobTxs, err := s.ViewTokenTransfers(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, bobTxs, 1)
	assert.Equal(t, token.TxTransfer, bobTxs[0].Type)
	assert.Equal(t, int64(250), bobTxs[0].Amount)
}

func TestView_RequiresActor(t *testing.T) {
	s, _, _ := setupTransactionsTest(t)

	_, err := s.ViewCreditTransfers(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = s.ViewTokenTransfers(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

package token

import (
	"context"
	"testing"

	"verdant-backend/internal/auth"
	"verdant-backend/internal/domain"
	"verdant-backend/internal/events"
	"verdant-backend/internal/infrastructure/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "s3cret-key!"

func setupTokenTest(t *testing.T) *Service {
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	authService := &auth.Service{DB: db}
	for _, addr := range []string{"treasury", "alice", "bob"} {
		_, err := authService.RegisterActor(context.Background(), auth.RegisterActorInput{
			Address: addr, DisplayName: addr, ProofKey: testKey,
		})
		require.NoError(t, err)
	}

	s := &Service{DB: db, Auth: authService, Recorder: &events.Recorder{DB: db}}
	require.NoError(t, s.Initialize(context.Background(), "treasury", "VUSD"))
	return s
}

func TestInitialize_Once(t *testing.T) {
	s := setupTokenTest(t)
	err := s.Initialize(context.Background(), "treasury", "VUSD")
	assert.ErrorIs(t, err, domain.ErrAlreadyInitialized)
}

func TestMint_IssuerOnly(t *testing.T) {
	s := setupTokenTest(t)
	ctx := context.Background()

	err := s.Mint(ctx, "alice", testKey, "alice", 1000)
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)

	require.NoError(t, s.Mint(ctx, "treasury", testKey, "alice", 1000))
	bal, err := s.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), bal)
}

func TestMint_Accumulates(t *testing.T) {
	s := setupTokenTest(t)
	ctx := context.Background()
	require.NoError(t, s.Mint(ctx, "treasury", testKey, "alice", 400))
	require.NoError(t, s.Mint(ctx, "treasury", testKey, "alice", 600))

	bal, err := s.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), bal)
}

func TestTransfer_MovesBalance(t *testing.T) {
	s := setupTokenTest(t)
	ctx := context.Background()
	require.NoError(t, s.Mint(ctx, "treasury", testKey, "alice", 1000))

	require.NoError(t, s.Transfer(ctx, "alice", testKey, "bob", 300))

	aliceBal, err := s.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	bobBal, err := s.BalanceOf(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(700), aliceBal)
	assert.Equal(t, int64(300), bobBal)
}

func TestTransfer_InsufficientBalance(t *testing.T) {
	s := setupTokenTest(t)
	ctx := context.Background()
	require.NoError(t, s.Mint(ctx, "treasury", testKey, "alice", 100))

	err := s.Transfer(ctx, "alice", testKey, "bob", 101)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	// Failed transfer leaves both sides untouched.
	aliceBal, err := s.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	bobBal, err := s.BalanceOf(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(100), aliceBal)
	assert.Equal(t, int64(0), bobBal)
}

func TestTransfer_NoAccount(t *testing.T) {
	s := setupTokenTest(t)
	err := s.Transfer(context.Background(), "bob", testKey, "alice", 1)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestTransfer_InvalidArguments(t *testing.T) {
	s := setupTokenTest(t)
	ctx := context.Background()
	require.NoError(t, s.Mint(ctx, "treasury", testKey, "alice", 100))

	err := s.Transfer(ctx, "alice", testKey, "bob", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	err = s.Transfer(ctx, "alice", testKey, "bob", -5)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestTransfer_SelfIsNoop(t *testing.T) {
	s := setupTokenTest(t)
	ctx := context.Background()
	require.NoError(t, s.Mint(ctx, "treasury", testKey, "alice", 100))

	// The balance is untouched but the movement is journaled.
	require.NoError(t, s.Transfer(ctx, "alice", testKey, "alice", 10))

	bal, err := s.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(100), bal)

	var count int64
	require.NoError(t, s.DB.Model(&domain.TokenTransfer{}).
		Where("from_actor = ? AND to_actor = ?", "alice", "alice").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestBalanceOf_UnknownIsZero(t *testing.T) {
	s := setupTokenTest(t)
	bal, err := s.BalanceOf(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, int64(0), bal)
}

func TestSupplyConservation(t *testing.T) {
	s := setupTokenTest(t)
	ctx := context.Background()
	require.NoError(t, s.Mint(ctx, "treasury", testKey, "alice", 5000))
	require.NoError(t, s.Transfer(ctx, "alice", testKey, "bob", 1200))
	require.NoError(t, s.Transfer(ctx, "bob", testKey, "alice", 200))

	aliceBal, err := s.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	bobBal, err := s.BalanceOf(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), aliceBal+bobBal)
}

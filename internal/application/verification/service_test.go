package verification

import (
	"context"
	"testing"
	"time"

	"verdant-backend/internal/application/registry"
	"verdant-backend/internal/auth"
	"verdant-backend/internal/domain"
	"verdant-backend/internal/events"
	"verdant-backend/internal/infrastructure/database"
	"verdant-backend/internal/pkg/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "s3cret-key!"

type workflowFixture struct {
	workflow *Service
	registry *registry.Service
}

func setupWorkflowTest(t *testing.T) workflowFixture {
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	authService := &auth.Service{DB: db}
	for _, addr := range []string{"workflow-admin", "registry-admin", "verify-authority", "vera", "victor", "acme-corp", "outsider"} {
		_, err := authService.RegisterActor(context.Background(), auth.RegisterActorInput{
			Address: addr, DisplayName: addr, ProofKey: testKey,
		})
		require.NoError(t, err)
	}

	recorder := &events.Recorder{DB: db}
	fixed := clock.Fixed{T: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	reg := &registry.Service{DB: db, Auth: authService, Recorder: recorder, Clock: fixed}
	require.NoError(t, reg.Initialize(context.Background(), "registry-admin", "verify-authority"))

	wf := &Service{DB: db, Auth: authService, Recorder: recorder, Registry: reg, Clock: fixed}
	require.NoError(t, wf.Initialize(context.Background(), "workflow-admin"))
	return workflowFixture{workflow: wf, registry: reg}
}

func (f workflowFixture) submitFor(t *testing.T, issuer string) uint64 {
	credit, err := f.registry.IssueCredit(context.Background(), testKey, registry.IssueCreditInput{
		Issuer: issuer, ProjectID: "ICR-001", ProjectName: "Mangrove Restoration", VintageYear: 2024, AmountTons: 1000,
	})
	require.NoError(t, err)
	require.NoError(t, f.workflow.SubmitVerification(context.Background(), testKey, SubmitInput{
		Requester: issuer, CreditID: credit.CreditID, ProjectID: credit.ProjectID, EvidenceURI: "ipfs://evidence",
	}))
	return credit.CreditID
}

func TestInitialize_Once(t *testing.T) {
	f := setupWorkflowTest(t)
	err := f.workflow.Initialize(context.Background(), "workflow-admin")
	assert.ErrorIs(t, err, domain.ErrAlreadyInitialized)
}

func TestAddVerifier_AdminOnly(t *testing.T) {
	f := setupWorkflowTest(t)
	ctx := context.Background()

	err := f.workflow.AddVerifier(ctx, "outsider", testKey, "vera")
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)

	require.NoError(t, f.workflow.AddVerifier(ctx, "workflow-admin", testKey, "vera"))
	ok, err := f.workflow.IsVerifier(ctx, "vera")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAddVerifier_SetSemantics(t *testing.T) {
	f := setupWorkflowTest(t)
	ctx := context.Background()

	require.NoError(t, f.workflow.AddVerifier(ctx, "workflow-admin", testKey, "vera"))
	// Adding an existing member is a no-op, not an error.
	require.NoError(t, f.workflow.AddVerifier(ctx, "workflow-admin", testKey, "vera"))

	members, err := f.workflow.GetVerifiers(ctx)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestRemoveVerifier_Idempotent(t *testing.T) {
	f := setupWorkflowTest(t)
	ctx := context.Background()

	require.NoError(t, f.workflow.AddVerifier(ctx, "workflow-admin", testKey, "vera"))
	require.NoError(t, f.workflow.RemoveVerifier(ctx, "workflow-admin", testKey, "vera"))
	require.NoError(t, f.workflow.RemoveVerifier(ctx, "workflow-admin", testKey, "vera"))

	ok, err := f.workflow.IsVerifier(ctx, "vera")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSubmit_StartsPending(t *testing.T) {
	f := setupWorkflowTest(t)
	creditID := f.submitFor(t, "acme-corp")

	req, err := f.workflow.GetRequest(context.Background(), creditID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestPending, req.Status)
	assert.Nil(t, req.Verifier)
}

func TestSubmit_OverwritesPrior(t *testing.T) {
	f := setupWorkflowTest(t)
	ctx := context.Background()
	creditID := f.submitFor(t, "acme-corp")

	require.NoError(t, f.workflow.AddVerifier(ctx, "workflow-admin", testKey, "vera"))
	require.NoError(t, f.workflow.AssignVerifier(ctx, "vera", testKey, creditID, "vera"))

	// Resubmission resets the request to a fresh pending one.
	require.NoError(t, f.workflow.SubmitVerification(ctx, testKey, SubmitInput{
		Requester: "acme-corp", CreditID: creditID, ProjectID: "ICR-001", EvidenceURI: "ipfs://better-evidence",
	}))
	req, err := f.workflow.GetRequest(ctx, creditID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestPending, req.Status)
	assert.Nil(t, req.Verifier)
	assert.Equal(t, "ipfs://better-evidence", req.EvidenceURI)
}

func TestAssignVerifier_AdminOrMember(t *testing.T) {
	f := setupWorkflowTest(t)
	ctx := context.Background()
	creditID := f.submitFor(t, "acme-corp")
	require.NoError(t, f.workflow.AddVerifier(ctx, "workflow-admin", testKey, "vera"))

	err := f.workflow.AssignVerifier(ctx, "outsider", testKey, creditID, "vera")
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)

	require.NoError(t, f.workflow.AssignVerifier(ctx, "workflow-admin", testKey, creditID, "vera"))
	req, err := f.workflow.GetRequest(ctx, creditID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestUnderReview, req.Status)
	require.NotNil(t, req.Verifier)
	assert.Equal(t, "vera", *req.Verifier)
}

func TestAssignVerifier_UnknownRequest(t *testing.T) {
	f := setupWorkflowTest(t)
	err := f.workflow.AssignVerifier(context.Background(), "workflow-admin", testKey, 77, "vera")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApprove_FlipsCreditAtomically(t *testing.T) {
	f := setupWorkflowTest(t)
	ctx := context.Background()
	creditID := f.submitFor(t, "acme-corp")
	require.NoError(t, f.workflow.AddVerifier(ctx, "workflow-admin", testKey, "vera"))
	require.NoError(t, f.workflow.AssignVerifier(ctx, "vera", testKey, creditID, "vera"))

	require.NoError(t, f.workflow.ApproveVerification(ctx, "vera", testKey, creditID, "docs check out"))

	req, err := f.workflow.GetRequest(ctx, creditID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestApproved, req.Status)
	require.NotNil(t, req.VerifiedAt)
	assert.Equal(t, "docs check out", req.Notes)

	verified, err := f.registry.IsVerified(ctx, creditID)
	require.NoError(t, err)
	assert.True(t, verified)
}

func TestReject_FlipsCreditRejected(t *testing.T) {
	f := setupWorkflowTest(t)
	ctx := context.Background()
	creditID := f.submitFor(t, "acme-corp")
	require.NoError(t, f.workflow.AddVerifier(ctx, "workflow-admin", testKey, "vera"))
	require.NoError(t, f.workflow.AssignVerifier(ctx, "vera", testKey, creditID, "vera"))

	require.NoError(t, f.workflow.RejectVerification(ctx, "vera", testKey, creditID, "evidence stale"))

	credit, err := f.registry.GetCredit(ctx, creditID)
	require.NoError(t, err)
	assert.Equal(t, domain.VerificationRejected, credit.VerificationStatus)
}

func TestDecide_AssignedVerifierOnly(t *testing.T) {
	f := setupWorkflowTest(t)
	ctx := context.Background()
	creditID := f.submitFor(t, "acme-corp")
	require.NoError(t, f.workflow.AddVerifier(ctx, "workflow-admin", testKey, "vera"))
	require.NoError(t, f.workflow.AddVerifier(ctx, "workflow-admin", testKey, "victor"))
	require.NoError(t, f.workflow.AssignVerifier(ctx, "vera", testKey, creditID, "vera"))

	// Another verifier, and even the admin, cannot decide someone else's review.
	err := f.workflow.ApproveVerification(ctx, "victor", testKey, creditID, "")
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)
	err = f.workflow.ApproveVerification(ctx, "workflow-admin", testKey, creditID, "")
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)
}

func TestDecide_PendingNotDecidable(t *testing.T) {
	f := setupWorkflowTest(t)
	ctx := context.Background()
	creditID := f.submitFor(t, "acme-corp")

	err := f.workflow.ApproveVerification(ctx, "vera", testKey, creditID, "")
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)
}

func TestDecide_TerminalIsFinal(t *testing.T) {
	f := setupWorkflowTest(t)
	ctx := context.Background()
	creditID := f.submitFor(t, "acme-corp")
	require.NoError(t, f.workflow.AddVerifier(ctx, "workflow-admin", testKey, "vera"))
	require.NoError(t, f.workflow.AssignVerifier(ctx, "vera", testKey, creditID, "vera"))
	require.NoError(t, f.workflow.ApproveVerification(ctx, "vera", testKey, creditID, ""))

	err := f.workflow.RejectVerification(ctx, "vera", testKey, creditID, "second thoughts")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	verified, err := f.registry.IsVerified(ctx, creditID)
	require.NoError(t, err)
	assert.True(t, verified)
}

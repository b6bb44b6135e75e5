package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nbaparkdev/assettrack-ti/internal/dto"
	"github.com/nbaparkdev/assettrack-ti/internal/models"
	"github.com/nbaparkdev/assettrack-ti/internal/repository"
	appErrors "github.com/nbaparkdev/assettrack-ti/pkg/errors"
)

type stubLoanStore struct {
	loans map[string]*models.LoanRequest
	seq   int
}

func newStubLoanStore() *stubLoanStore {
	return &stubLoanStore{loans: make(map[string]*models.LoanRequest)}
}

func (s *stubLoanStore) Create(_ context.Context, loan *models.LoanRequest) error {
	s.seq++
	loan.ID = "loan-" + string(rune('a'+s.seq))
	loan.RequestedAt = time.Now().UTC()
	s.loans[loan.ID] = loan
	return nil
}

func (s *stubLoanStore) GetByID(_ context.Context, id string) (*models.LoanRequest, error) {
	loan, ok := s.loans[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *loan
	return &clone, nil
}

func (s *stubLoanStore) List(_ context.Context, filter models.LoanFilter) ([]models.LoanRequest, error) {
	var out []models.LoanRequest
	for _, loan := range s.loans {
		if filter.RequesterID != "" && loan.RequesterID != filter.RequesterID {
			continue
		}
		out = append(out, *loan)
	}
	return out, nil
}

func (s *stubLoanStore) UpdateDecision(_ context.Context, params repository.DecideLoanParams) error {
	loan, ok := s.loans[params.ID]
	if !ok || loan.Status != models.LoanPending {
		return sql.ErrNoRows
	}
	loan.Status = params.Status
	loan.ApproverID = &params.ApproverID
	loan.DecidedAt = &params.DecidedAt
	loan.DecisionNote = params.Note
	return nil
}

func (s *stubLoanStore) AssignAsset(_ context.Context, id, assetID string) error {
	loan, ok := s.loans[id]
	if !ok || (loan.Status != models.LoanPending && loan.Status != models.LoanApproved) {
		return sql.ErrNoRows
	}
	loan.AssetID = &assetID
	return nil
}

func (s *stubLoanStore) Cancel(_ context.Context, id, requesterID string) error {
	loan, ok := s.loans[id]
	if !ok || loan.RequesterID != requesterID || loan.Status != models.LoanPending {
		return sql.ErrNoRows
	}
	loan.Status = models.LoanCancelled
	return nil
}

type stubLoanWorkflow struct {
	loans  *stubLoanStore
	assets *stubAssetFinder
}

func (w *stubLoanWorkflow) DeliverLoan(_ context.Context, p repository.LoanDeliveryTx) error {
	loan, ok := w.loans.loans[p.Loan.ID]
	if !ok || loan.Status != models.LoanApproved {
		return sql.ErrNoRows
	}
	stored, ok := w.assets.assets[p.Asset.ID]
	if !ok || stored.Status != p.AssetFrom {
		return sql.ErrNoRows
	}
	loan.Status = models.LoanDelivered
	clone := *p.Asset
	w.assets.assets[p.Asset.ID] = &clone
	return nil
}

type loanFixture struct {
	svc      *LoanService
	store    *stubLoanStore
	assets   *stubAssetFinder
	users    *stubUserFinder
	qrLog    *stubQRUsageStore
	audit    *stubAuditStore
	notifier *stubNotifier
}

func newLoanFixture() *loanFixture {
	store := newStubLoanStore()
	assets := &stubAssetFinder{assets: make(map[string]*models.Asset)}
	users := &stubUserFinder{users: make(map[string]*models.User)}
	qrLog := &stubQRUsageStore{}
	audit := &stubAuditStore{}
	notifier := &stubNotifier{}
	workflow := &stubLoanWorkflow{loans: store, assets: assets}
	svc := NewLoanService(store, workflow, assets, users, qrLog, audit, notifier, nil, nil, 0)
	return &loanFixture{svc: svc, store: store, assets: assets, users: users, qrLog: qrLog, audit: audit, notifier: notifier}
}

func TestLoanCreateWithoutAssetIsPending(t *testing.T) {
	fx := newLoanFixture()
	loan, err := fx.svc.Create(context.Background(), dto.CreateLoanRequest{
		Reason: "need a laptop for field work",
	}, staffClaims("u1", models.RoleUser))
	require.NoError(t, err)
	require.Equal(t, models.LoanPending, loan.Status)
	require.Nil(t, loan.AssetID)
	require.Equal(t, "u1", loan.RequesterID)
}

func TestLoanApproveRequiresAssignedAsset(t *testing.T) {
	fx := newLoanFixture()
	loan, err := fx.svc.Create(context.Background(), dto.CreateLoanRequest{
		Reason: "need a laptop for field work",
	}, staffClaims("u1", models.RoleUser))
	require.NoError(t, err)

	_, err = fx.svc.Decide(context.Background(), loan.ID, dto.DecideLoanRequest{Approve: true},
		staffClaims("mgr", models.RoleManager))
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrInvalidState.Code, appErr.Code)
}

func TestLoanDecisionRaceLosesOnGuard(t *testing.T) {
	fx := newLoanFixture()
	assetID := "11111111-1111-4111-8111-111111111111"
	fx.assets.assets[assetID] = &models.Asset{ID: assetID, Status: models.AssetAvailable}
	loan, err := fx.svc.Create(context.Background(), dto.CreateLoanRequest{
		AssetID: &assetID, Reason: "need a laptop for field work",
	}, staffClaims("u1", models.RoleUser))
	require.NoError(t, err)

	approved, err := fx.svc.Decide(context.Background(), loan.ID, dto.DecideLoanRequest{Approve: true},
		staffClaims("mgr1", models.RoleManager))
	require.NoError(t, err)
	require.Equal(t, models.LoanApproved, approved.Status)

	_, err = fx.svc.Decide(context.Background(), loan.ID, dto.DecideLoanRequest{Approve: false},
		staffClaims("mgr2", models.RoleAdmin))
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrInvalidState.Code, appErr.Code)
}

func TestLoanDecideNeedsApproverRole(t *testing.T) {
	fx := newLoanFixture()
	_, err := fx.svc.Decide(context.Background(), "any", dto.DecideLoanRequest{Approve: false},
		staffClaims("tech", models.RoleTechnician))
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestLoanDeliveryWithRequesterBadge(t *testing.T) {
	fx := newLoanFixture()
	assetID := "22222222-2222-4222-8222-222222222222"
	fx.assets.assets[assetID] = &models.Asset{ID: assetID, Status: models.AssetAvailable}
	token := "badge-1"
	now := time.Now().UTC()
	fx.users.users["u1"] = &models.User{ID: "u1", QRToken: &token, QRTokenCreatedAt: &now}

	loan, err := fx.svc.Create(context.Background(), dto.CreateLoanRequest{
		AssetID: &assetID, Reason: "need a laptop for field work",
	}, staffClaims("u1", models.RoleUser))
	require.NoError(t, err)
	_, err = fx.svc.Decide(context.Background(), loan.ID, dto.DecideLoanRequest{Approve: true},
		staffClaims("mgr", models.RoleManager))
	require.NoError(t, err)

	delivered, err := fx.svc.ConfirmDelivery(context.Background(), loan.ID, dto.ConfirmLoanDeliveryRequest{
		QRToken: &token,
	}, staffClaims("tech", models.RoleTechnician), "10.0.0.1", "test-agent")
	require.NoError(t, err)
	require.Equal(t, models.LoanDelivered, delivered.Status)
	require.True(t, delivered.QRConfirmed)

	asset := fx.assets.assets[assetID]
	require.Equal(t, models.AssetInUse, asset.Status)
	require.Equal(t, "u1", *asset.HolderID)

	require.NotEmpty(t, fx.qrLog.entries)
	require.True(t, fx.qrLog.entries[len(fx.qrLog.entries)-1].Success)
}

func TestLoanDeliveryWrongBadgeFailsClosed(t *testing.T) {
	fx := newLoanFixture()
	assetID := "33333333-3333-4333-8333-333333333333"
	fx.assets.assets[assetID] = &models.Asset{ID: assetID, Status: models.AssetAvailable}
	token := "badge-2"
	now := time.Now().UTC()
	fx.users.users["u2"] = &models.User{ID: "u2", QRToken: &token, QRTokenCreatedAt: &now}

	loan, err := fx.svc.Create(context.Background(), dto.CreateLoanRequest{
		AssetID: &assetID, Reason: "need a laptop for field work",
	}, staffClaims("u1", models.RoleUser))
	require.NoError(t, err)
	_, err = fx.svc.Decide(context.Background(), loan.ID, dto.DecideLoanRequest{Approve: true},
		staffClaims("mgr", models.RoleManager))
	require.NoError(t, err)

	_, err = fx.svc.ConfirmDelivery(context.Background(), loan.ID, dto.ConfirmLoanDeliveryRequest{
		QRToken: &token,
	}, staffClaims("tech", models.RoleTechnician), "10.0.0.1", "test-agent")
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrIdentityMismatch.Code, appErr.Code)

	// Loan and asset are untouched after the failed verification.
	current, err := fx.svc.Get(context.Background(), loan.ID, staffClaims("mgr", models.RoleManager))
	require.NoError(t, err)
	require.Equal(t, models.LoanApproved, current.Status)
	require.Equal(t, models.AssetAvailable, fx.assets.assets[assetID].Status)
}

func TestLoanDeliveryManualOverrideNeedsManager(t *testing.T) {
	fx := newLoanFixture()
	assetID := "44444444-4444-4444-8444-444444444444"
	fx.assets.assets[assetID] = &models.Asset{ID: assetID, Status: models.AssetAvailable}

	loan, err := fx.svc.Create(context.Background(), dto.CreateLoanRequest{
		AssetID: &assetID, Reason: "need a laptop for field work",
	}, staffClaims("u1", models.RoleUser))
	require.NoError(t, err)
	_, err = fx.svc.Decide(context.Background(), loan.ID, dto.DecideLoanRequest{Approve: true},
		staffClaims("mgr", models.RoleManager))
	require.NoError(t, err)

	_, err = fx.svc.ConfirmDelivery(context.Background(), loan.ID, dto.ConfirmLoanDeliveryRequest{},
		staffClaims("tech", models.RoleTechnician), "", "")
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	delivered, err := fx.svc.ConfirmDelivery(context.Background(), loan.ID, dto.ConfirmLoanDeliveryRequest{},
		staffClaims("mgr", models.RoleManager), "", "")
	require.NoError(t, err)
	require.False(t, delivered.QRConfirmed)

	var override bool
	for _, entry := range fx.audit.entries {
		if entry.Action == models.AuditActionManualOverride {
			override = true
		}
	}
	require.True(t, override)
}

func TestLoanTransferMovementWhenAssetHadHolder(t *testing.T) {
	fx := newLoanFixture()
	assetID := "55555555-5555-4555-8555-555555555555"
	prev := "u0"
	fx.assets.assets[assetID] = &models.Asset{ID: assetID, Status: models.AssetInUse, HolderID: &prev}

	loan, err := fx.svc.Create(context.Background(), dto.CreateLoanRequest{
		AssetID: &assetID, Reason: "taking over the workstation",
	}, staffClaims("u1", models.RoleUser))
	require.NoError(t, err)
	_, err = fx.svc.Decide(context.Background(), loan.ID, dto.DecideLoanRequest{Approve: true},
		staffClaims("mgr", models.RoleManager))
	require.NoError(t, err)

	delivered, err := fx.svc.ConfirmDelivery(context.Background(), loan.ID, dto.ConfirmLoanDeliveryRequest{},
		staffClaims("mgr", models.RoleManager), "", "")
	require.NoError(t, err)
	require.Equal(t, models.LoanDelivered, delivered.Status)
	require.Equal(t, "u1", *fx.assets.assets[assetID].HolderID)
}

func TestLoanCancelOnlyWhilePending(t *testing.T) {
	fx := newLoanFixture()
	loan, err := fx.svc.Create(context.Background(), dto.CreateLoanRequest{
		Reason: "need a laptop for field work",
	}, staffClaims("u1", models.RoleUser))
	require.NoError(t, err)

	require.NoError(t, fx.svc.Cancel(context.Background(), loan.ID, staffClaims("u1", models.RoleUser)))

	err = fx.svc.Cancel(context.Background(), loan.ID, staffClaims("u1", models.RoleUser))
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrInvalidState.Code, appErr.Code)
}

func TestLoanListScopesPlainUsers(t *testing.T) {
	fx := newLoanFixture()
	_, err := fx.svc.Create(context.Background(), dto.CreateLoanRequest{Reason: "laptop please"},
		staffClaims("u1", models.RoleUser))
	require.NoError(t, err)
	_, err = fx.svc.Create(context.Background(), dto.CreateLoanRequest{Reason: "monitor please"},
		staffClaims("u2", models.RoleUser))
	require.NoError(t, err)

	mine, err := fx.svc.List(context.Background(), dto.LoanQuery{}, staffClaims("u1", models.RoleUser))
	require.NoError(t, err)
	require.Len(t, mine, 1)

	all, err := fx.svc.List(context.Background(), dto.LoanQuery{}, staffClaims("mgr", models.RoleManager))
	require.NoError(t, err)
	require.Len(t, all, 2)
}

package service

import (
	"context"
	"database/sql"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nbaparkdev/assettrack-ti/internal/dto"
	"github.com/nbaparkdev/assettrack-ti/internal/models"
	"github.com/nbaparkdev/assettrack-ti/pkg/config"
	appErrors "github.com/nbaparkdev/assettrack-ti/pkg/errors"
)

func (s *stubQRUsageStore) ListByUser(_ context.Context, userID string, limit int) ([]models.QRUsageLog, error) {
	var out []models.QRUsageLog
	for _, entry := range s.entries {
		if entry.UserID != nil && *entry.UserID == userID {
			out = append(out, *entry)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type stubQRUserStore struct {
	*stubUserFinder
}

func (s *stubQRUserStore) SetPIN(_ context.Context, id, pinHash string, _ time.Time) error {
	user, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	user.PINHash = &pinHash
	return nil
}

func (s *stubQRUserStore) RotateQRToken(_ context.Context, id, token string, createdAt time.Time) error {
	user, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	user.QRToken = &token
	user.QRTokenCreatedAt = &createdAt
	return nil
}

type stubDepartmentFinder struct {
	departments map[string]*models.Department
}

func (s *stubDepartmentFinder) GetDepartment(_ context.Context, id string) (*models.Department, error) {
	dep, ok := s.departments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return dep, nil
}

type stubLoanLister struct{ loans []models.LoanRequest }

func (s *stubLoanLister) List(_ context.Context, filter models.LoanFilter) ([]models.LoanRequest, error) {
	var out []models.LoanRequest
	for _, loan := range s.loans {
		if filter.RequesterID != "" && loan.RequesterID != filter.RequesterID {
			continue
		}
		match := len(filter.Status) == 0
		for _, status := range filter.Status {
			if loan.Status == status {
				match = true
				break
			}
		}
		if match {
			out = append(out, loan)
		}
	}
	return out, nil
}

type stubMaintenanceLister struct{ requests []models.MaintenanceRequest }

func (s *stubMaintenanceLister) ListRequests(_ context.Context, filter models.MaintenanceFilter) ([]models.MaintenanceRequest, error) {
	var out []models.MaintenanceRequest
	for _, req := range s.requests {
		if filter.RequesterID != "" && req.RequesterID != filter.RequesterID {
			continue
		}
		match := len(filter.Status) == 0
		for _, status := range filter.Status {
			if req.Status == status {
				match = true
				break
			}
		}
		if match {
			out = append(out, req)
		}
	}
	return out, nil
}

type qrFixture struct {
	svc         *QRService
	users       *stubQRUserStore
	usage       *stubQRUsageStore
	audit       *stubAuditStore
	loans       *stubLoanLister
	maintenance *stubMaintenanceLister
}

func newQRFixture(ttl time.Duration) *qrFixture {
	users := &stubQRUserStore{stubUserFinder: &stubUserFinder{users: make(map[string]*models.User)}}
	usage := &stubQRUsageStore{}
	audit := &stubAuditStore{}
	departments := &stubDepartmentFinder{departments: make(map[string]*models.Department)}
	loans := &stubLoanLister{}
	maintenance := &stubMaintenanceLister{}
	svc := NewQRService(users, usage, departments, loans, maintenance, audit, nil, nil, config.QRConfig{TokenTTL: ttl})
	return &qrFixture{svc: svc, users: users, usage: usage, audit: audit, loans: loans, maintenance: maintenance}
}

func TestQRRegenerateIssuesFreshBadge(t *testing.T) {
	fx := newQRFixture(0)
	fx.users.users["u1"] = &models.User{ID: "u1", FullName: "Ana Souza"}

	badge, err := fx.svc.Regenerate(context.Background(), "", staffClaims("u1", models.RoleUser))
	require.NoError(t, err)
	require.NotEmpty(t, badge.PNGBase64)

	png, err := base64.StdEncoding.DecodeString(badge.PNGBase64)
	require.NoError(t, err)
	require.NotEmpty(t, png)

	require.NotNil(t, fx.users.users["u1"].QRToken)
	require.Len(t, fx.audit.entries, 1)
	require.Equal(t, models.AuditActionQRRegenerate, fx.audit.entries[0].Action)
}

func TestQRRegenerateForOthersNeedsAdmin(t *testing.T) {
	fx := newQRFixture(0)
	fx.users.users["u1"] = &models.User{ID: "u1"}
	fx.users.users["u2"] = &models.User{ID: "u2"}

	_, err := fx.svc.Regenerate(context.Background(), "u2", staffClaims("u1", models.RoleManager))
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	_, err = fx.svc.Regenerate(context.Background(), "u2", staffClaims("u1", models.RoleAdmin))
	require.NoError(t, err)
}

func TestQRBadgeRefusesExpiredToken(t *testing.T) {
	fx := newQRFixture(time.Hour)
	token := "tok-1"
	stale := time.Now().UTC().Add(-2 * time.Hour)
	fx.users.users["u1"] = &models.User{ID: "u1", QRToken: &token, QRTokenCreatedAt: &stale}

	_, err := fx.svc.Badge(context.Background(), staffClaims("u1", models.RoleUser))
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrQRExpired.Code, appErr.Code)
}

func TestQRSetupPINOnlyOnce(t *testing.T) {
	fx := newQRFixture(0)
	fx.users.users["u1"] = &models.User{ID: "u1"}

	err := fx.svc.SetupPIN(context.Background(), dto.SetupPINRequest{PIN: "1234", PINConfirm: "1234"},
		staffClaims("u1", models.RoleUser), "10.0.0.1", "test-agent")
	require.NoError(t, err)
	require.True(t, fx.users.users["u1"].HasPIN())

	err = fx.svc.SetupPIN(context.Background(), dto.SetupPINRequest{PIN: "5678", PINConfirm: "5678"},
		staffClaims("u1", models.RoleUser), "10.0.0.1", "test-agent")
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestQRSetupPINValidatesShape(t *testing.T) {
	fx := newQRFixture(0)
	cases := []dto.SetupPINRequest{
		{PIN: "12", PINConfirm: "12"},
		{PIN: "1234567", PINConfirm: "1234567"},
		{PIN: "12ab", PINConfirm: "12ab"},
		{PIN: "1234", PINConfirm: "4321"},
	}
	for _, payload := range cases {
		err := fx.svc.SetupPIN(context.Background(), payload, staffClaims("u1", models.RoleUser), "", "")
		appErr := appErrors.FromError(err)
		require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	}
}

func TestQRChangePINVerifiesCurrent(t *testing.T) {
	fx := newQRFixture(0)
	hash, err := bcrypt.GenerateFromPassword([]byte("1234"), bcrypt.MinCost)
	require.NoError(t, err)
	pin := string(hash)
	fx.users.users["u1"] = &models.User{ID: "u1", PINHash: &pin}

	err = fx.svc.ChangePIN(context.Background(), dto.ChangePINRequest{
		CurrentPIN: "9999", NewPIN: "5678", PINConfirm: "5678",
	}, staffClaims("u1", models.RoleUser), "", "")
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)

	err = fx.svc.ChangePIN(context.Background(), dto.ChangePINRequest{
		CurrentPIN: "1234", NewPIN: "5678", PINConfirm: "5678",
	}, staffClaims("u1", models.RoleUser), "", "")
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(*fx.users.users["u1"].PINHash), []byte("5678")))
}

func TestQRProfileResolvesBadge(t *testing.T) {
	fx := newQRFixture(time.Hour)
	token := "tok-2"
	now := time.Now().UTC()
	dep := "dep-1"
	pin := "hash"
	fx.users.users["u1"] = &models.User{
		ID: "u1", FullName: "Bruno Lima", Role: models.RoleTechnician,
		QRToken: &token, QRTokenCreatedAt: &now, DepartmentID: &dep, PINHash: &pin,
	}
	fx.svc.departments.(*stubDepartmentFinder).departments[dep] = &models.Department{ID: dep, Name: "Infrastructure"}

	profile, err := fx.svc.Profile(context.Background(), token, "10.0.0.1", "test-agent")
	require.NoError(t, err)
	require.Equal(t, "Bruno Lima", profile.FullName)
	require.Equal(t, "TECHNICIAN", profile.Role)
	require.Equal(t, "Infrastructure", profile.Department)
	require.True(t, profile.HasPIN)

	_, err = fx.svc.Profile(context.Background(), "unknown", "10.0.0.1", "test-agent")
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)

	// Both the hit and the miss leave a trail.
	require.Len(t, fx.usage.entries, 2)
}

func TestQRPendingDeliveriesListsOpenHandovers(t *testing.T) {
	fx := newQRFixture(time.Hour)
	token := "tok-3"
	now := time.Now().UTC()
	fx.users.users["u1"] = &models.User{
		ID: "u1", FullName: "Carla Dias", Role: models.RoleUser,
		QRToken: &token, QRTokenCreatedAt: &now,
	}
	fx.loans.loans = []models.LoanRequest{
		{ID: "l1", RequesterID: "u1", Status: models.LoanApproved},
		{ID: "l2", RequesterID: "u1", Status: models.LoanDelivered},
		{ID: "l3", RequesterID: "u2", Status: models.LoanApproved},
	}
	fx.maintenance.requests = []models.MaintenanceRequest{
		{ID: "m1", RequesterID: "u1", Status: models.MaintenanceAwaitingDelivery},
		{ID: "m2", RequesterID: "u1", Status: models.MaintenancePending},
	}

	resp, err := fx.svc.PendingDeliveries(context.Background(), token, "10.0.0.1", "test-agent", staffClaims("tech1", models.RoleTechnician))
	require.NoError(t, err)
	require.Equal(t, "Carla Dias", resp.Owner.FullName)
	require.Len(t, resp.Loans, 1)
	require.Equal(t, "l1", resp.Loans[0].ID)
	require.Len(t, resp.Maintenance, 1)
	require.Equal(t, "m1", resp.Maintenance[0].ID)
	require.Len(t, fx.usage.entries, 1)
}

func TestQRPendingDeliveriesStaffOnly(t *testing.T) {
	fx := newQRFixture(time.Hour)
	_, err := fx.svc.PendingDeliveries(context.Background(), "tok", "", "", staffClaims("u1", models.RoleUser))
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestQRUsageLogScope(t *testing.T) {
	fx := newQRFixture(0)
	u1 := "u1"
	fx.usage.entries = append(fx.usage.entries, &models.QRUsageLog{UserID: &u1, Action: models.QRActionLogin, Success: true})

	_, err := fx.svc.UsageLog(context.Background(), "u1", 10, staffClaims("u2", models.RoleUser))
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	entries, err := fx.svc.UsageLog(context.Background(), "u1", 10, staffClaims("mgr", models.RoleManager))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

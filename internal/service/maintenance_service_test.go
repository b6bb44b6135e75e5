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

type stubMaintenanceStore struct {
	requests map[string]*models.MaintenanceRequest
	records  map[string]*models.MaintenanceRecord
}

func newStubMaintenanceStore() *stubMaintenanceStore {
	return &stubMaintenanceStore{
		requests: make(map[string]*models.MaintenanceRequest),
		records:  make(map[string]*models.MaintenanceRecord),
	}
}

func (s *stubMaintenanceStore) CreateRequest(_ context.Context, req *models.MaintenanceRequest) error {
	if req.ID == "" {
		req.ID = "req-" + req.AssetID
	}
	req.RequestedAt = time.Now().UTC()
	s.requests[req.ID] = req
	return nil
}

func (s *stubMaintenanceStore) GetRequestByID(_ context.Context, id string) (*models.MaintenanceRequest, error) {
	req, ok := s.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *req
	return &clone, nil
}

func (s *stubMaintenanceStore) ListRequests(_ context.Context, filter models.MaintenanceFilter) ([]models.MaintenanceRequest, error) {
	var out []models.MaintenanceRequest
	for _, req := range s.requests {
		if filter.RequesterID != "" && req.RequesterID != filter.RequesterID {
			continue
		}
		out = append(out, *req)
	}
	return out, nil
}

func (s *stubMaintenanceStore) TransitionRequest(_ context.Context, id string, from, to models.MaintenanceStatus, extra map[string]interface{}) error {
	req, ok := s.requests[id]
	if !ok || req.Status != from {
		return sql.ErrNoRows
	}
	req.Status = to
	return nil
}

func (s *stubMaintenanceStore) GetRecordByID(_ context.Context, id string) (*models.MaintenanceRecord, error) {
	rec, ok := s.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *rec
	return &clone, nil
}

func (s *stubMaintenanceStore) ListRecordsByAsset(_ context.Context, assetID string) ([]models.MaintenanceRecord, error) {
	var out []models.MaintenanceRecord
	for _, rec := range s.records {
		if rec.AssetID == assetID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

// stubMaintenanceWorkflow mirrors the guard semantics of the transactional
// repository against the in-memory stores.
type stubMaintenanceWorkflow struct {
	store  *stubMaintenanceStore
	assets *stubAssetFinder
}

func (w *stubMaintenanceWorkflow) StartMaintenance(ctx context.Context, p repository.MaintenanceStartTx) error {
	if p.Record.ID == "" {
		p.Record.ID = "rec-" + p.Record.AssetID
	}
	w.store.records[p.Record.ID] = p.Record
	if p.RequestID != "" {
		req, ok := w.store.requests[p.RequestID]
		if !ok || req.Status != models.MaintenancePending {
			return sql.ErrNoRows
		}
		req.Status = models.MaintenanceInProgress
		req.RecordID = &p.Record.ID
	}
	return w.applyCustody(p.Asset, p.AssetFrom)
}

func (w *stubMaintenanceWorkflow) CloseMaintenance(ctx context.Context, p repository.MaintenanceCloseTx) error {
	rec, ok := w.store.records[p.Record.ID]
	if !ok || rec.Status != models.RecordInProgress {
		return sql.ErrNoRows
	}
	rec.Status = models.RecordCompleted
	rec.CompletedAt = &p.Record.CompletedAt
	dest := p.Record.Destination
	rec.Destination = &dest
	if p.RequestID != "" {
		if err := w.store.TransitionRequest(ctx, p.RequestID, p.RequestFrom, p.RequestTo, p.Extra); err != nil {
			return err
		}
	}
	if p.Asset != nil {
		return w.applyCustody(p.Asset, p.AssetFrom)
	}
	return nil
}

func (w *stubMaintenanceWorkflow) HandoverMaintenance(ctx context.Context, p repository.MaintenanceHandoverTx) error {
	if err := w.store.TransitionRequest(ctx, p.RequestID, p.RequestFrom, p.RequestTo, p.Extra); err != nil {
		return err
	}
	if p.Asset != nil {
		return w.applyCustody(p.Asset, p.AssetFrom)
	}
	return nil
}

func (w *stubMaintenanceWorkflow) applyCustody(asset *models.Asset, from models.AssetStatus) error {
	stored, ok := w.assets.assets[asset.ID]
	if !ok || stored.Status != from {
		return sql.ErrNoRows
	}
	clone := *asset
	w.assets.assets[asset.ID] = &clone
	return nil
}

type stubAssetFinder struct {
	assets map[string]*models.Asset
}

func (s *stubAssetFinder) GetByID(_ context.Context, id string) (*models.Asset, error) {
	asset, ok := s.assets[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *asset
	return &clone, nil
}

type stubBinStore struct {
	bins map[string]*models.StorageBin
}

func (s *stubBinStore) GetStorageBin(_ context.Context, id string) (*models.StorageBin, error) {
	bin, ok := s.bins[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return bin, nil
}

type stubUserFinder struct {
	users map[string]*models.User
}

func (s *stubUserFinder) FindByID(_ context.Context, id string) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (s *stubUserFinder) FindByQRToken(_ context.Context, token string) (*models.User, error) {
	for _, user := range s.users {
		if user.QRToken != nil && *user.QRToken == token {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

type stubQRUsageStore struct {
	entries []*models.QRUsageLog
}

func (s *stubQRUsageStore) Insert(_ context.Context, entry *models.QRUsageLog) error {
	s.entries = append(s.entries, entry)
	return nil
}

type stubAuditStore struct {
	entries []*models.AuditLog
}

func (s *stubAuditStore) Insert(_ context.Context, entry *models.AuditLog) error {
	s.entries = append(s.entries, entry)
	return nil
}

type stubNotifier struct {
	sent []Notification
}

func (s *stubNotifier) Publish(_ context.Context, n Notification) {
	s.sent = append(s.sent, n)
}

type maintenanceFixture struct {
	svc      *MaintenanceService
	store    *stubMaintenanceStore
	assets   *stubAssetFinder
	users    *stubUserFinder
	audit    *stubAuditStore
	qrLog    *stubQRUsageStore
	notifier *stubNotifier
}

func newMaintenanceFixture() *maintenanceFixture {
	store := newStubMaintenanceStore()
	assets := &stubAssetFinder{assets: make(map[string]*models.Asset)}
	users := &stubUserFinder{users: make(map[string]*models.User)}
	bins := &stubBinStore{bins: make(map[string]*models.StorageBin)}
	audit := &stubAuditStore{}
	qrLog := &stubQRUsageStore{}
	notifier := &stubNotifier{}
	workflow := &stubMaintenanceWorkflow{store: store, assets: assets}
	svc := NewMaintenanceService(store, workflow, assets, bins, users, qrLog, audit, notifier, nil, nil, 0)
	return &maintenanceFixture{
		svc:      svc,
		store:    store,
		assets:   assets,
		users:    users,
		audit:    audit,
		qrLog:    qrLog,
		notifier: notifier,
	}
}

func staffClaims(id string, role models.UserRole) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: role}
}

func TestMaintenanceCreateRejectsWrittenOffAsset(t *testing.T) {
	fx := newMaintenanceFixture()
	fx.assets.assets["a1"] = &models.Asset{ID: "a1", Status: models.AssetWrittenOff}

	_, err := fx.svc.CreateRequest(context.Background(), dto.CreateMaintenanceRequest{
		AssetID:     "11111111-1111-1111-1111-111111111111",
		Description: "screen totally broken",
		Priority:    models.PriorityHigh,
	}, staffClaims("u1", models.RoleUser))
	require.Error(t, err)

	fx.assets.assets["11111111-1111-1111-1111-111111111111"] = &models.Asset{
		ID: "11111111-1111-1111-1111-111111111111", Status: models.AssetWrittenOff,
	}
	_, err = fx.svc.CreateRequest(context.Background(), dto.CreateMaintenanceRequest{
		AssetID:     "11111111-1111-1111-1111-111111111111",
		Description: "screen totally broken",
		Priority:    models.PriorityHigh,
	}, staffClaims("u1", models.RoleUser))
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrInvalidState.Code, appErr.Code)
}

func TestMaintenanceAcceptMovesAssetIntoMaintenance(t *testing.T) {
	fx := newMaintenanceFixture()
	holder := "u1"
	assetID := "22222222-2222-2222-2222-222222222222"
	fx.assets.assets[assetID] = &models.Asset{ID: assetID, Status: models.AssetInUse, HolderID: &holder}

	created, err := fx.svc.CreateRequest(context.Background(), dto.CreateMaintenanceRequest{
		AssetID:     assetID,
		Description: "keyboard stopped responding",
		Priority:    models.PriorityMedium,
	}, staffClaims(holder, models.RoleUser))
	require.NoError(t, err)

	accepted, err := fx.svc.Accept(context.Background(), created.ID, dto.AcceptMaintenanceRequest{
		Type: models.MaintenanceCorrective,
	}, staffClaims("tech1", models.RoleTechnician))
	require.NoError(t, err)
	require.Equal(t, models.MaintenanceInProgress, accepted.Status)
	require.NotNil(t, accepted.RecordID)

	require.Equal(t, models.AssetMaintenance, fx.assets.assets[assetID].Status)
	require.Nil(t, fx.assets.assets[assetID].HolderID)
	require.Len(t, fx.notifier.sent, 1)
	require.Len(t, fx.audit.entries, 1)
}

func TestMaintenanceAcceptRefusedForPlainUser(t *testing.T) {
	fx := newMaintenanceFixture()
	_, err := fx.svc.Accept(context.Background(), "missing", dto.AcceptMaintenanceRequest{
		Type: models.MaintenanceCorrective,
	}, staffClaims("u1", models.RoleUser))
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestMaintenanceRejectRequiresJustification(t *testing.T) {
	fx := newMaintenanceFixture()
	_, err := fx.svc.Reject(context.Background(), "any", dto.RejectMaintenanceRequest{
		Justification: "too short",
	}, staffClaims("tech1", models.RoleTechnician))
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestMaintenanceRejectOnlyWhilePending(t *testing.T) {
	fx := newMaintenanceFixture()
	fx.store.requests["r1"] = &models.MaintenanceRequest{
		ID: "r1", RequesterID: "u1", AssetID: "a1", Status: models.MaintenanceInProgress,
	}
	_, err := fx.svc.Reject(context.Background(), "r1", dto.RejectMaintenanceRequest{
		Justification: "not an equipment defect",
	}, staffClaims("mgr1", models.RoleManager))
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrInvalidState.Code, appErr.Code)
}

func TestMaintenanceCompleteToStorage(t *testing.T) {
	fx := newMaintenanceFixture()
	assetID := "33333333-3333-3333-3333-333333333333"
	recID := "rec-1"
	fx.assets.assets[assetID] = &models.Asset{ID: assetID, Status: models.AssetMaintenance}
	fx.store.records[recID] = &models.MaintenanceRecord{
		ID: recID, AssetID: assetID, TechnicianID: "tech1", Status: models.RecordInProgress,
	}
	fx.store.requests["r1"] = &models.MaintenanceRequest{
		ID: "r1", RequesterID: "u1", AssetID: assetID,
		Status: models.MaintenanceInProgress, RecordID: &recID,
	}
	binID := "44444444-4444-4444-4444-444444444444"
	fx.svc.bins.(*stubBinStore).bins[binID] = &models.StorageBin{ID: binID, LocationID: "loc-1", Code: "B-01"}

	done, err := fx.svc.Complete(context.Background(), "r1", dto.CompleteMaintenanceRequest{
		Destination:  models.DestinationStorage,
		StorageBinID: &binID,
	}, staffClaims("tech1", models.RoleTechnician))
	require.NoError(t, err)
	require.Equal(t, models.MaintenanceCompleted, done.Status)

	asset := fx.assets.assets[assetID]
	require.Equal(t, models.AssetStored, asset.Status)
	require.NotNil(t, asset.StorageBinID)
	require.Equal(t, binID, *asset.StorageBinID)
	require.Equal(t, models.RecordCompleted, fx.store.records[recID].Status)
}

func TestMaintenanceCompleteToUserAwaitsHandover(t *testing.T) {
	fx := newMaintenanceFixture()
	assetID := "55555555-5555-5555-5555-555555555555"
	recID := "rec-2"
	fx.assets.assets[assetID] = &models.Asset{ID: assetID, Status: models.AssetMaintenance}
	fx.store.records[recID] = &models.MaintenanceRecord{
		ID: recID, AssetID: assetID, TechnicianID: "tech1", Status: models.RecordInProgress,
	}
	fx.store.requests["r2"] = &models.MaintenanceRequest{
		ID: "r2", RequesterID: "u1", AssetID: assetID,
		Status: models.MaintenanceInProgress, RecordID: &recID,
	}

	done, err := fx.svc.Complete(context.Background(), "r2", dto.CompleteMaintenanceRequest{
		Destination: models.DestinationUser,
	}, staffClaims("tech1", models.RoleTechnician))
	require.NoError(t, err)
	require.Equal(t, models.MaintenanceAwaitingDelivery, done.Status)

	// Custody stays put until the verified handover.
	require.Equal(t, models.AssetMaintenance, fx.assets.assets[assetID].Status)
}

func TestMaintenanceHandoverVerifiesOwnerBadge(t *testing.T) {
	fx := newMaintenanceFixture()
	assetID := "66666666-6666-6666-6666-666666666666"
	fx.assets.assets[assetID] = &models.Asset{ID: assetID, Status: models.AssetMaintenance}
	fx.store.requests["r3"] = &models.MaintenanceRequest{
		ID: "r3", RequesterID: "u1", AssetID: assetID, Status: models.MaintenanceAwaitingDelivery,
	}

	ownerToken := "owner-token"
	otherToken := "other-token"
	now := time.Now().UTC()
	fx.users.users["u1"] = &models.User{ID: "u1", QRToken: &ownerToken, QRTokenCreatedAt: &now}
	fx.users.users["u2"] = &models.User{ID: "u2", QRToken: &otherToken, QRTokenCreatedAt: &now}

	_, err := fx.svc.ConfirmDelivery(context.Background(), "r3", dto.ConfirmMaintenanceDeliveryRequest{
		QRToken: &otherToken,
	}, staffClaims("tech1", models.RoleTechnician), "10.0.0.1", "test-agent")
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrIdentityMismatch.Code, appErr.Code)
	require.Len(t, fx.qrLog.entries, 1)
	require.False(t, fx.qrLog.entries[0].Success)

	delivered, err := fx.svc.ConfirmDelivery(context.Background(), "r3", dto.ConfirmMaintenanceDeliveryRequest{
		QRToken: &ownerToken,
	}, staffClaims("tech1", models.RoleTechnician), "10.0.0.1", "test-agent")
	require.NoError(t, err)
	require.Equal(t, models.MaintenanceDelivered, delivered.Status)

	asset := fx.assets.assets[assetID]
	require.Equal(t, models.AssetInUse, asset.Status)
	require.NotNil(t, asset.HolderID)
	require.Equal(t, "u1", *asset.HolderID)
}

func TestMaintenanceHandoverWithoutBadgeNeedsManager(t *testing.T) {
	fx := newMaintenanceFixture()
	assetID := "77777777-7777-7777-7777-777777777777"
	fx.assets.assets[assetID] = &models.Asset{ID: assetID, Status: models.AssetMaintenance}
	fx.store.requests["r4"] = &models.MaintenanceRequest{
		ID: "r4", RequesterID: "u1", AssetID: assetID, Status: models.MaintenanceAwaitingDelivery,
	}

	_, err := fx.svc.ConfirmDelivery(context.Background(), "r4", dto.ConfirmMaintenanceDeliveryRequest{},
		staffClaims("tech1", models.RoleTechnician), "", "")
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	delivered, err := fx.svc.ConfirmDelivery(context.Background(), "r4", dto.ConfirmMaintenanceDeliveryRequest{},
		staffClaims("mgr1", models.RoleManager), "", "")
	require.NoError(t, err)
	require.Equal(t, models.MaintenanceDelivered, delivered.Status)

	var override bool
	for _, entry := range fx.audit.entries {
		if entry.Action == models.AuditActionManualOverride {
			override = true
		}
	}
	require.True(t, override)
}

func TestMaintenanceReceiptClosesRequest(t *testing.T) {
	fx := newMaintenanceFixture()
	fx.store.requests["r5"] = &models.MaintenanceRequest{
		ID: "r5", RequesterID: "u1", AssetID: "a1", Status: models.MaintenanceDelivered,
	}

	_, err := fx.svc.ConfirmReceipt(context.Background(), "r5", staffClaims("u2", models.RoleUser))
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	done, err := fx.svc.ConfirmReceipt(context.Background(), "r5", staffClaims("u1", models.RoleUser))
	require.NoError(t, err)
	require.Equal(t, models.MaintenanceCompleted, done.Status)
}

func TestMaintenanceReceiptDirectPickupRebindsCustody(t *testing.T) {
	fx := newMaintenanceFixture()
	assetID := "88888888-8888-8888-8888-888888888888"
	fx.assets.assets[assetID] = &models.Asset{ID: assetID, Status: models.AssetMaintenance}
	fx.store.requests["r6"] = &models.MaintenanceRequest{
		ID: "r6", RequesterID: "u1", AssetID: assetID, Status: models.MaintenanceAwaitingDelivery,
	}

	done, err := fx.svc.ConfirmReceipt(context.Background(), "r6", staffClaims("u1", models.RoleUser))
	require.NoError(t, err)
	require.Equal(t, models.MaintenanceCompleted, done.Status)

	asset := fx.assets.assets[assetID]
	require.Equal(t, models.AssetInUse, asset.Status)
	require.NotNil(t, asset.HolderID)
	require.Equal(t, "u1", *asset.HolderID)
}

func TestMaintenanceListScopesPlainUsers(t *testing.T) {
	fx := newMaintenanceFixture()
	fx.store.requests["r7"] = &models.MaintenanceRequest{ID: "r7", RequesterID: "u1", AssetID: "a1", Status: models.MaintenancePending}
	fx.store.requests["r8"] = &models.MaintenanceRequest{ID: "r8", RequesterID: "u2", AssetID: "a2", Status: models.MaintenancePending}

	mine, err := fx.svc.List(context.Background(), dto.MaintenanceQuery{}, staffClaims("u1", models.RoleUser))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, "u1", mine[0].RequesterID)

	all, err := fx.svc.List(context.Background(), dto.MaintenanceQuery{}, staffClaims("mgr1", models.RoleManager))
	require.NoError(t, err)
	require.Len(t, all, 2)
}

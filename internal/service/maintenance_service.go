package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nbaparkdev/assettrack-ti/internal/dto"
	"github.com/nbaparkdev/assettrack-ti/internal/models"
	"github.com/nbaparkdev/assettrack-ti/internal/repository"
	appErrors "github.com/nbaparkdev/assettrack-ti/pkg/errors"
)

type maintenanceStore interface {
	CreateRequest(ctx context.Context, req *models.MaintenanceRequest) error
	GetRequestByID(ctx context.Context, id string) (*models.MaintenanceRequest, error)
	ListRequests(ctx context.Context, filter models.MaintenanceFilter) ([]models.MaintenanceRequest, error)
	TransitionRequest(ctx context.Context, id string, from, to models.MaintenanceStatus, extra map[string]interface{}) error
	GetRecordByID(ctx context.Context, id string) (*models.MaintenanceRecord, error)
	ListRecordsByAsset(ctx context.Context, assetID string) ([]models.MaintenanceRecord, error)
}

type maintenanceWorkflowStore interface {
	StartMaintenance(ctx context.Context, p repository.MaintenanceStartTx) error
	CloseMaintenance(ctx context.Context, p repository.MaintenanceCloseTx) error
	HandoverMaintenance(ctx context.Context, p repository.MaintenanceHandoverTx) error
}

// MaintenanceService orchestrates problem reports, the repair records opened
// against them, and the return of repaired equipment to its owner.
type MaintenanceService struct {
	repo      maintenanceStore
	workflow  maintenanceWorkflowStore
	assets    loanAssetStore
	bins      binStore
	users     userFinder
	qrLog     qrUsageStore
	audit     auditStore
	notifier  eventNotifier
	validator *validator.Validate
	logger    *zap.Logger
	qrTTL     time.Duration
}

// NewMaintenanceService constructs the service.
func NewMaintenanceService(repo maintenanceStore, workflow maintenanceWorkflowStore, assets loanAssetStore, bins binStore, users userFinder, qrLog qrUsageStore, audit auditStore, notifier eventNotifier, validate *validator.Validate, logger *zap.Logger, qrTTL time.Duration) *MaintenanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if qrTTL <= 0 {
		qrTTL = 90 * 24 * time.Hour
	}
	return &MaintenanceService{
		repo:      repo,
		workflow:  workflow,
		assets:    assets,
		bins:      bins,
		users:     users,
		qrLog:     qrLog,
		audit:     audit,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
		qrTTL:     qrTTL,
	}
}

// CreateRequest files a problem report against an asset.
func (s *MaintenanceService) CreateRequest(ctx context.Context, req dto.CreateMaintenanceRequest, actor *models.JWTClaims) (*models.MaintenanceRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid maintenance payload")
	}
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	asset, err := s.assets.GetByID(ctx, req.AssetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "asset not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load asset")
	}
	if asset.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "asset has been written off")
	}

	request := &models.MaintenanceRequest{
		RequesterID: actor.UserID,
		AssetID:     asset.ID,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      models.MaintenancePending,
	}
	if err := s.repo.CreateRequest(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create maintenance request")
	}
	return request, nil
}

// List returns maintenance requests respecting actor scope.
func (s *MaintenanceService) List(ctx context.Context, query dto.MaintenanceQuery, actor *models.JWTClaims) ([]models.MaintenanceRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := models.MaintenanceFilter{
		Status:      query.Status,
		RequesterID: query.RequesterID,
		AssigneeID:  query.AssigneeID,
		AssetID:     query.AssetID,
	}
	if query.PerPage > 0 {
		filter.Limit = query.PerPage
		filter.Offset = (max(query.Page, 1) - 1) * query.PerPage
	}
	if !actor.Role.IsStaff() {
		filter.RequesterID = actor.UserID
	}
	requests, err := s.repo.ListRequests(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list maintenance requests")
	}
	return requests, nil
}

// Get returns one maintenance request enforcing scope constraints.
func (s *MaintenanceService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.MaintenanceRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	request, err := s.repo.GetRequestByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load maintenance request")
	}
	if !actor.Role.IsStaff() && request.RequesterID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	return request, nil
}

// Accept starts repair work: a record opens, the request moves to
// IN_PROGRESS and the asset is pulled into MAINTENANCE, all atomically.
func (s *MaintenanceService) Accept(ctx context.Context, id string, req dto.AcceptMaintenanceRequest, actor *models.JWTClaims) (*models.MaintenanceRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid accept payload")
	}
	if actor == nil || !actor.Role.IsStaff() {
		return nil, appErrors.ErrForbidden
	}

	request, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if request.Status != models.MaintenancePending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "request is not pending")
	}

	asset, err := s.assets.GetByID(ctx, request.AssetID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load asset")
	}
	if err := guardTransition(asset.Status, models.AssetMaintenance); err != nil {
		return nil, err
	}

	fromStatus := asset.Status
	fromHolder := asset.HolderID
	asset.Status = models.AssetMaintenance
	asset.ClearCustody()

	now := time.Now().UTC()
	record := &models.MaintenanceRecord{
		AssetID:      asset.ID,
		TechnicianID: actor.UserID,
		Reason:       request.Description,
		Type:         req.Type,
		Status:       models.RecordInProgress,
		StartedAt:    now,
		ExpectedAt:   req.ExpectedAt,
	}

	tx := repository.MaintenanceStartTx{
		RequestID: request.ID,
		Extra: map[string]interface{}{
			"assignee_id":   actor.UserID,
			"response_note": req.Note,
			"responded_at":  now,
		},
		Record:    record,
		Asset:     asset,
		AssetFrom: fromStatus,
		Movement: &models.Movement{
			AssetID:    asset.ID,
			Kind:       models.MovementMaintenance,
			FromUserID: fromHolder,
			ActorID:    actor.UserID,
		},
	}
	if err := s.workflow.StartMaintenance(ctx, tx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "request or asset changed state, retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to accept maintenance request")
	}

	request.Status = models.MaintenanceInProgress
	request.AssigneeID = &actor.UserID
	request.ResponseNote = req.Note
	request.RespondedAt = &now
	request.RecordID = &record.ID

	s.emitAudit(ctx, actor.UserID, models.AuditActionMaintDecision, request.ID, request)
	s.notify(ctx, request.RequesterID, "Maintenance accepted",
		"A technician has started working on your reported problem.")
	return request, nil
}

// Reject declines a pending report. The justification is mandatory.
func (s *MaintenanceService) Reject(ctx context.Context, id string, req dto.RejectMaintenanceRequest, actor *models.JWTClaims) (*models.MaintenanceRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "a justification of at least 10 characters is required")
	}
	if actor == nil || !actor.Role.IsStaff() {
		return nil, appErrors.ErrForbidden
	}

	request, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err = s.repo.TransitionRequest(ctx, id, models.MaintenancePending, models.MaintenanceRejected, map[string]interface{}{
		"assignee_id":   actor.UserID,
		"response_note": req.Justification,
		"responded_at":  now,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "request is not pending")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject maintenance request")
	}

	request.Status = models.MaintenanceRejected
	request.AssigneeID = &actor.UserID
	request.ResponseNote = &req.Justification
	request.RespondedAt = &now

	s.emitAudit(ctx, actor.UserID, models.AuditActionMaintDecision, request.ID, request)
	s.notify(ctx, request.RequesterID, "Maintenance rejected",
		"Your maintenance request was declined: "+req.Justification)
	return request, nil
}

// OpenRecord opens a repair episode directly, without a user report. Used
// for scheduled preventive work on idle or stored equipment.
func (s *MaintenanceService) OpenRecord(ctx context.Context, req dto.OpenMaintenanceRecordRequest, actor *models.JWTClaims) (*models.MaintenanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid record payload")
	}
	if actor == nil || !actor.Role.IsStaff() {
		return nil, appErrors.ErrForbidden
	}

	asset, err := s.assets.GetByID(ctx, req.AssetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "asset not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load asset")
	}
	if err := guardTransition(asset.Status, models.AssetMaintenance); err != nil {
		return nil, err
	}

	fromStatus := asset.Status
	fromHolder := asset.HolderID
	asset.Status = models.AssetMaintenance
	asset.ClearCustody()

	record := &models.MaintenanceRecord{
		AssetID:      asset.ID,
		TechnicianID: actor.UserID,
		Reason:       req.Reason,
		Type:         req.Type,
		Status:       models.RecordInProgress,
		StartedAt:    time.Now().UTC(),
		ExpectedAt:   req.ExpectedAt,
	}

	// Direct preventive records reuse the accept transaction without a
	// request row.
	tx := repository.MaintenanceStartTx{
		Record:    record,
		Asset:     asset,
		AssetFrom: fromStatus,
		Movement: &models.Movement{
			AssetID:    asset.ID,
			Kind:       models.MovementMaintenance,
			FromUserID: fromHolder,
			ActorID:    actor.UserID,
			Note:       &req.Reason,
		},
	}
	if err := s.workflow.StartMaintenance(ctx, tx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "asset changed state, retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open maintenance record")
	}
	return record, nil
}

// Complete closes the technical work on a repair. A unit destined for
// storage is stowed immediately; a unit going back to a user waits for the
// verified handover.
func (s *MaintenanceService) Complete(ctx context.Context, requestID string, req dto.CompleteMaintenanceRequest, actor *models.JWTClaims) (*models.MaintenanceRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid completion payload")
	}
	if actor == nil || !actor.Role.IsStaff() {
		return nil, appErrors.ErrForbidden
	}

	request, err := s.Get(ctx, requestID, actor)
	if err != nil {
		return nil, err
	}
	if request.Status != models.MaintenanceInProgress {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "request is not in progress")
	}
	if request.RecordID == nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "request has no repair record")
	}

	asset, err := s.assets.GetByID(ctx, request.AssetID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load asset")
	}

	now := time.Now().UTC()
	recordParams := repository.CompleteRecordParams{
		ID:             *request.RecordID,
		CompletedAt:    now,
		Cost:           req.Cost,
		CompletionNote: req.CompletionNote,
		Destination:    req.Destination,
	}

	tx := repository.MaintenanceCloseTx{
		Record:      recordParams,
		RequestID:   request.ID,
		RequestFrom: models.MaintenanceInProgress,
		Extra:       map[string]interface{}{"tech_completed_at": now},
	}

	switch req.Destination {
	case models.DestinationStorage:
		if req.StorageBinID == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "storage destination requires a storage bin")
		}
		bin, err := s.bins.GetStorageBin(ctx, *req.StorageBinID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "storage bin not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load storage bin")
		}

		fromStatus := asset.Status
		asset.Status = models.AssetStored
		asset.ClearCustody()
		asset.StorageBinID = &bin.ID
		asset.LocationID = &bin.LocationID

		// No handover needed; the request closes with the record.
		tx.RequestTo = models.MaintenanceCompleted
		tx.Asset = asset
		tx.AssetFrom = fromStatus
		tx.Movement = &models.Movement{
			AssetID: asset.ID,
			Kind:    models.MovementReturn,
			ActorID: actor.UserID,
			Note:    req.CompletionNote,
		}
	case models.DestinationUser:
		recordParams.DestinationUID = &request.RequesterID
		tx.Record = recordParams
		tx.RequestTo = models.MaintenanceAwaitingDelivery
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown destination")
	}

	if err := s.workflow.CloseMaintenance(ctx, tx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "request or record changed state, retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete maintenance")
	}

	request.Status = tx.RequestTo
	request.TechCompletedAt = &now

	s.emitAudit(ctx, actor.UserID, models.AuditActionMaintCompletion, request.ID, request)
	s.notify(ctx, request.RequesterID, "Maintenance completed",
		"The repair on your equipment has been completed.")
	return request, nil
}

// ConfirmDelivery records the staff handover of a repaired asset back to
// its owner, verified by badge scan or manager override.
func (s *MaintenanceService) ConfirmDelivery(ctx context.Context, id string, req dto.ConfirmMaintenanceDeliveryRequest, actor *models.JWTClaims, ip, userAgent string) (*models.MaintenanceRequest, error) {
	if actor == nil || !actor.Role.IsStaff() {
		return nil, appErrors.ErrForbidden
	}

	request, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if request.Status != models.MaintenanceAwaitingDelivery {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "request is not awaiting delivery")
	}

	if req.QRToken != nil && *req.QRToken != "" {
		if err := s.verifyOwnerBadge(ctx, *req.QRToken, request.RequesterID, ip, userAgent); err != nil {
			return nil, err
		}
	} else if !actor.Role.CanApprove() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "handover without a badge scan requires a manager")
	} else {
		s.emitAudit(ctx, actor.UserID, models.AuditActionManualOverride, request.ID, request)
	}

	asset, err := s.assets.GetByID(ctx, request.AssetID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load asset")
	}
	if err := guardTransition(asset.Status, models.AssetInUse); err != nil {
		return nil, err
	}

	fromStatus := asset.Status
	asset.Status = models.AssetInUse
	asset.ClearCustody()
	asset.HolderID = &request.RequesterID

	now := time.Now().UTC()
	tx := repository.MaintenanceHandoverTx{
		RequestID:   request.ID,
		RequestFrom: models.MaintenanceAwaitingDelivery,
		RequestTo:   models.MaintenanceDelivered,
		Extra:       map[string]interface{}{"delivered_at": now},
		Asset:       asset,
		AssetFrom:   fromStatus,
		Movement: &models.Movement{
			AssetID:  asset.ID,
			Kind:     models.MovementReturn,
			ToUserID: &request.RequesterID,
			ActorID:  actor.UserID,
			Note:     req.Note,
		},
	}
	if err := s.workflow.HandoverMaintenance(ctx, tx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "request or asset changed state, retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete handover")
	}

	request.Status = models.MaintenanceDelivered
	request.DeliveredAt = &now

	s.notify(ctx, request.RequesterID, "Equipment returned",
		"Your repaired equipment has been handed back to you.")
	return request, nil
}

// ConfirmReceipt lets the requester acknowledge they got the asset back,
// closing the request. When no staff handover was recorded the custody
// rebind happens here instead.
func (s *MaintenanceService) ConfirmReceipt(ctx context.Context, id string, actor *models.JWTClaims) (*models.MaintenanceRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	request, err := s.repo.GetRequestByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load maintenance request")
	}
	if request.RequesterID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the requester can confirm receipt")
	}

	switch request.Status {
	case models.MaintenanceDelivered:
		err = s.repo.TransitionRequest(ctx, id, models.MaintenanceDelivered, models.MaintenanceCompleted, nil)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrInvalidState, "request changed state, retry")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to confirm receipt")
		}
	case models.MaintenanceAwaitingDelivery:
		// Self pickup: the requester collected the unit directly.
		asset, err := s.assets.GetByID(ctx, request.AssetID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load asset")
		}
		if err := guardTransition(asset.Status, models.AssetInUse); err != nil {
			return nil, err
		}
		fromStatus := asset.Status
		asset.Status = models.AssetInUse
		asset.ClearCustody()
		asset.HolderID = &request.RequesterID

		now := time.Now().UTC()
		tx := repository.MaintenanceHandoverTx{
			RequestID:   request.ID,
			RequestFrom: models.MaintenanceAwaitingDelivery,
			RequestTo:   models.MaintenanceCompleted,
			Extra:       map[string]interface{}{"delivered_at": now},
			Asset:       asset,
			AssetFrom:   fromStatus,
			Movement: &models.Movement{
				AssetID:  asset.ID,
				Kind:     models.MovementReturn,
				ToUserID: &request.RequesterID,
				ActorID:  actor.UserID,
			},
		}
		if err := s.workflow.HandoverMaintenance(ctx, tx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrInvalidState, "request or asset changed state, retry")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to confirm receipt")
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "request is not ready for receipt confirmation")
	}

	request.Status = models.MaintenanceCompleted
	return request, nil
}

// Record returns a single repair record.
func (s *MaintenanceService) Record(ctx context.Context, id string, actor *models.JWTClaims) (*models.MaintenanceRecord, error) {
	if actor == nil || !actor.Role.IsStaff() {
		return nil, appErrors.ErrForbidden
	}
	record, err := s.repo.GetRecordByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load repair record")
	}
	return record, nil
}

// AssetRecords returns the repair history of one asset.
func (s *MaintenanceService) AssetRecords(ctx context.Context, assetID string, actor *models.JWTClaims) ([]models.MaintenanceRecord, error) {
	if actor == nil || !actor.Role.IsStaff() {
		return nil, appErrors.ErrForbidden
	}
	records, err := s.repo.ListRecordsByAsset(ctx, assetID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list repair records")
	}
	return records, nil
}

func (s *MaintenanceService) verifyOwnerBadge(ctx context.Context, token, ownerID, ip, userAgent string) error {
	owner, err := s.users.FindByQRToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.recordQRUsage(ctx, nil, false, ip, userAgent, "unknown token at handover")
			return appErrors.ErrIdentityMismatch
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve badge")
	}
	if owner.QRTokenCreatedAt == nil || time.Now().UTC().After(owner.QRTokenCreatedAt.Add(s.qrTTL)) {
		s.recordQRUsage(ctx, &owner.ID, false, ip, userAgent, "expired token at handover")
		return appErrors.ErrQRExpired
	}
	if owner.ID != ownerID {
		s.recordQRUsage(ctx, &owner.ID, false, ip, userAgent, "badge does not match requester")
		return appErrors.ErrIdentityMismatch
	}
	s.recordQRUsage(ctx, &owner.ID, true, ip, userAgent, "")
	return nil
}

func (s *MaintenanceService) recordQRUsage(ctx context.Context, userID *string, success bool, ip, userAgent, detail string) {
	if s.qrLog == nil {
		return
	}
	entry := &models.QRUsageLog{
		UserID:  userID,
		Action:  models.QRActionDeliveryConfirm,
		Success: success,
	}
	if ip != "" {
		entry.IP = &ip
	}
	if userAgent != "" {
		entry.UserAgent = &userAgent
	}
	if detail != "" {
		entry.Detail = &detail
	}
	if err := s.qrLog.Insert(ctx, entry); err != nil {
		s.logger.Warn("failed to record qr usage", zap.Error(err))
	}
}

func (s *MaintenanceService) emitAudit(ctx context.Context, actorID, action, resourceID string, value interface{}) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "maintenance_request",
		ResourceID: &resourceID,
	}
	if value != nil {
		if raw, err := json.Marshal(value); err == nil {
			entry.NewValues = raw
		}
	}
	if err := s.audit.Insert(ctx, entry); err != nil {
		s.logger.Warn("failed to record maintenance audit log", zap.Error(err))
	}
}

func (s *MaintenanceService) notify(ctx context.Context, userID, subject, body string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(ctx, Notification{UserID: userID, Subject: subject, Body: body})
}

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

type loanStore interface {
	Create(ctx context.Context, loan *models.LoanRequest) error
	GetByID(ctx context.Context, id string) (*models.LoanRequest, error)
	List(ctx context.Context, filter models.LoanFilter) ([]models.LoanRequest, error)
	UpdateDecision(ctx context.Context, params repository.DecideLoanParams) error
	AssignAsset(ctx context.Context, id, assetID string) error
	Cancel(ctx context.Context, id, requesterID string) error
}

type loanDeliveryStore interface {
	DeliverLoan(ctx context.Context, p repository.LoanDeliveryTx) error
}

type loanAssetStore interface {
	GetByID(ctx context.Context, id string) (*models.Asset, error)
}

type userFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByQRToken(ctx context.Context, token string) (*models.User, error)
}

// LoanService orchestrates the equipment request workflow from submission
// through approval and the verified physical handover.
type LoanService struct {
	repo      loanStore
	workflow  loanDeliveryStore
	assets    loanAssetStore
	users     userFinder
	qrLog     qrUsageStore
	audit     auditStore
	notifier  eventNotifier
	validator *validator.Validate
	logger    *zap.Logger
	qrTTL     time.Duration
}

// NewLoanService constructs the service.
func NewLoanService(repo loanStore, workflow loanDeliveryStore, assets loanAssetStore, users userFinder, qrLog qrUsageStore, audit auditStore, notifier eventNotifier, validate *validator.Validate, logger *zap.Logger, qrTTL time.Duration) *LoanService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if qrTTL <= 0 {
		qrTTL = 90 * 24 * time.Hour
	}
	return &LoanService{
		repo:      repo,
		workflow:  workflow,
		assets:    assets,
		users:     users,
		qrLog:     qrLog,
		audit:     audit,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
		qrTTL:     qrTTL,
	}
}

// Create submits a new loan request. A concrete asset is optional; when
// given it must exist and not be retired.
func (s *LoanService) Create(ctx context.Context, req dto.CreateLoanRequest, actor *models.JWTClaims) (*models.LoanRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid loan payload")
	}
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	if req.AssetID != nil {
		asset, err := s.assets.GetByID(ctx, *req.AssetID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "asset not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load asset")
		}
		if asset.Status.Terminal() {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "asset has been written off")
		}
	}

	loan := &models.LoanRequest{
		RequesterID:    actor.UserID,
		AssetID:        req.AssetID,
		Reason:         req.Reason,
		ExpectedReturn: req.ExpectedReturn,
		Status:         models.LoanPending,
	}
	if err := s.repo.Create(ctx, loan); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create loan request")
	}
	return loan, nil
}

// List returns loan requests respecting actor scope: regular users see
// only their own submissions.
func (s *LoanService) List(ctx context.Context, query dto.LoanQuery, actor *models.JWTClaims) ([]models.LoanRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := models.LoanFilter{
		Status:      query.Status,
		RequesterID: query.RequesterID,
		AssetID:     query.AssetID,
	}
	if query.PerPage > 0 {
		filter.Limit = query.PerPage
		filter.Offset = (max(query.Page, 1) - 1) * query.PerPage
	}
	if !actor.Role.IsStaff() {
		filter.RequesterID = actor.UserID
	}
	loans, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list loan requests")
	}
	return loans, nil
}

// Get returns one loan request enforcing scope constraints.
func (s *LoanService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.LoanRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	loan, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load loan request")
	}
	if !actor.Role.IsStaff() && loan.RequesterID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	return loan, nil
}

// AssignAsset binds a concrete asset to an open request.
func (s *LoanService) AssignAsset(ctx context.Context, id string, req dto.AssignAssetRequest, actor *models.JWTClaims) (*models.LoanRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
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
	if asset.Status != models.AssetAvailable && asset.Status != models.AssetStored {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "asset is not available for assignment")
	}

	if err := s.repo.AssignAsset(ctx, id, req.AssetID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "request is not open for assignment")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign asset")
	}
	return s.repo.GetByID(ctx, id)
}

// Decide approves or rejects a pending request. The second of two racing
// decisions loses on the PENDING guard.
func (s *LoanService) Decide(ctx context.Context, id string, req dto.DecideLoanRequest, actor *models.JWTClaims) (*models.LoanRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decision payload")
	}
	if actor == nil || !actor.Role.CanApprove() {
		return nil, appErrors.ErrForbidden
	}

	loan, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load loan request")
	}
	if loan.Status != models.LoanPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "request has already been decided")
	}

	status := models.LoanRejected
	if req.Approve {
		if loan.AssetID == nil {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "assign an asset before approving")
		}
		asset, err := s.assets.GetByID(ctx, *loan.AssetID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load asset")
		}
		if err := guardTransition(asset.Status, models.AssetInUse); err != nil {
			return nil, err
		}
		status = models.LoanApproved
	}

	now := time.Now().UTC()
	params := repository.DecideLoanParams{
		ID:         id,
		Status:     status,
		ApproverID: actor.UserID,
		DecidedAt:  now,
		Note:       req.Note,
	}
	if err := s.repo.UpdateDecision(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "request was decided by someone else")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record decision")
	}

	loan.Status = status
	loan.ApproverID = &actor.UserID
	loan.DecidedAt = &now
	loan.DecisionNote = req.Note

	s.emitAudit(ctx, actor.UserID, models.AuditActionLoanDecision, loan.ID, loan)
	s.notify(ctx, loan.RequesterID, "Loan request "+string(status),
		"Your equipment request has been "+string(status)+".")
	return loan, nil
}

// Cancel lets the requester withdraw an undecided request.
func (s *LoanService) Cancel(ctx context.Context, id string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if err := s.repo.Cancel(ctx, id, actor.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrInvalidState, "request cannot be cancelled")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel loan request")
	}
	return nil
}

// ConfirmDelivery completes the physical handover of an approved request.
// Identity is proven by scanning the requester's badge; a manager or admin
// may instead attest the handover manually, which is audited as an override.
func (s *LoanService) ConfirmDelivery(ctx context.Context, id string, req dto.ConfirmLoanDeliveryRequest, actor *models.JWTClaims, ip, userAgent string) (*models.LoanRequest, error) {
	if actor == nil || !actor.Role.IsStaff() {
		return nil, appErrors.ErrForbidden
	}

	loan, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load loan request")
	}
	if loan.Status != models.LoanApproved {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "only approved requests can be delivered")
	}
	if loan.AssetID == nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "request has no asset assigned")
	}

	qrConfirmed := false
	if req.QRToken != nil && *req.QRToken != "" {
		if err := s.verifyRequesterBadge(ctx, *req.QRToken, loan.RequesterID, ip, userAgent); err != nil {
			return nil, err
		}
		qrConfirmed = true
	} else {
		if !actor.Role.CanApprove() {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "handover without a badge scan requires a manager")
		}
		s.emitAudit(ctx, actor.UserID, models.AuditActionManualOverride, loan.ID, loan)
	}

	asset, err := s.assets.GetByID(ctx, *loan.AssetID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load asset")
	}
	if err := guardTransition(asset.Status, models.AssetInUse); err != nil {
		return nil, err
	}

	kind := models.MovementLoan
	fromHolder := asset.HolderID
	if fromHolder != nil {
		kind = models.MovementTransfer
	}

	fromStatus := asset.Status
	asset.Status = models.AssetInUse
	asset.ClearCustody()
	asset.HolderID = &loan.RequesterID

	now := time.Now().UTC()
	tx := repository.LoanDeliveryTx{
		Loan: repository.ConfirmDeliveryParams{
			ID:          loan.ID,
			ConfirmerID: actor.UserID,
			DeliveredAt: now,
			QRConfirmed: qrConfirmed,
			Note:        req.Note,
		},
		Asset:     asset,
		AssetFrom: fromStatus,
		Movement: &models.Movement{
			AssetID:    asset.ID,
			Kind:       kind,
			FromUserID: fromHolder,
			ToUserID:   &loan.RequesterID,
			ActorID:    actor.UserID,
			Note:       req.Note,
		},
	}
	if err := s.workflow.DeliverLoan(ctx, tx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "request or asset changed state, retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete handover")
	}

	loan.Status = models.LoanDelivered
	loan.ConfirmerID = &actor.UserID
	loan.DeliveredAt = &now
	loan.QRConfirmed = qrConfirmed
	loan.DeliveryNote = req.Note

	s.emitAudit(ctx, actor.UserID, models.AuditActionLoanDelivery, loan.ID, loan)
	s.notify(ctx, loan.RequesterID, "Equipment delivered",
		"The equipment for your request has been handed over to you.")
	return loan, nil
}

// verifyRequesterBadge resolves the scanned token and fails closed when it
// does not belong to the requester or has expired.
func (s *LoanService) verifyRequesterBadge(ctx context.Context, token, requesterID, ip, userAgent string) error {
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
	if owner.ID != requesterID {
		s.recordQRUsage(ctx, &owner.ID, false, ip, userAgent, "badge does not match requester")
		return appErrors.ErrIdentityMismatch
	}
	s.recordQRUsage(ctx, &owner.ID, true, ip, userAgent, "")
	return nil
}

func (s *LoanService) recordQRUsage(ctx context.Context, userID *string, success bool, ip, userAgent, detail string) {
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

func (s *LoanService) emitAudit(ctx context.Context, actorID, action, resourceID string, value interface{}) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "loan_request",
		ResourceID: &resourceID,
	}
	if value != nil {
		if raw, err := json.Marshal(value); err == nil {
			entry.NewValues = raw
		}
	}
	if err := s.audit.Insert(ctx, entry); err != nil {
		s.logger.Warn("failed to record loan audit log", zap.Error(err))
	}
}

func (s *LoanService) notify(ctx context.Context, userID, subject, body string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(ctx, Notification{UserID: userID, Subject: subject, Body: body})
}

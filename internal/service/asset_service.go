package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nbaparkdev/assettrack-ti/internal/dto"
	"github.com/nbaparkdev/assettrack-ti/internal/models"
	"github.com/nbaparkdev/assettrack-ti/internal/repository"
	appErrors "github.com/nbaparkdev/assettrack-ti/pkg/errors"
)

type assetStore interface {
	Create(ctx context.Context, asset *models.Asset) error
	GetByID(ctx context.Context, id string) (*models.Asset, error)
	List(ctx context.Context, filter models.AssetFilter) ([]models.Asset, int, error)
	Update(ctx context.Context, asset *models.Asset) error
	Delete(ctx context.Context, id string) error
	CountByStatus(ctx context.Context) (map[models.AssetStatus]int, error)
}

type movementStore interface {
	List(ctx context.Context, filter models.MovementFilter) ([]models.Movement, error)
}

type custodyTx interface {
	MoveAsset(ctx context.Context, asset *models.Asset, from models.AssetStatus, movement *models.Movement) error
}

type loanOpener interface {
	Create(ctx context.Context, loan *models.LoanRequest) error
}

type binStore interface {
	GetStorageBin(ctx context.Context, id string) (*models.StorageBin, error)
}

// AssetService manages the asset registry and the custody operations that
// do not go through an approval workflow.
type AssetService struct {
	repo      assetStore
	movements movementStore
	workflow  custodyTx
	loans     loanOpener
	bins      binStore
	audit     auditStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssetService constructs the service.
func NewAssetService(repo assetStore, movements movementStore, workflow custodyTx, loans loanOpener, bins binStore, audit auditStore, validate *validator.Validate, logger *zap.Logger) *AssetService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AssetService{
		repo:      repo,
		movements: movements,
		workflow:  workflow,
		loans:     loans,
		bins:      bins,
		audit:     audit,
		validator: validate,
		logger:    logger,
	}
}

// Register creates an asset in the AVAILABLE state.
func (s *AssetService) Register(ctx context.Context, req dto.CreateAssetRequest, actorID string) (*models.Asset, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid asset payload")
	}

	asset := &models.Asset{
		Name:            req.Name,
		SerialNumber:    req.SerialNumber,
		Model:           req.Model,
		Description:     req.Description,
		Value:           req.Value,
		AcquisitionDate: req.AcquisitionDate,
		Status:          models.AssetAvailable,
		PhotoPath:       req.PhotoPath,
		DepartmentID:    req.DepartmentID,
		LocationID:      req.LocationID,
		StorageBinID:    req.StorageBinID,
	}
	if err := s.repo.Create(ctx, asset); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "serial number already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create asset")
	}

	// No ledger entry yet. An asset that never moved keeps an empty history
	// so it can still be deleted outright.
	s.emitAudit(ctx, actorID, models.AuditActionAssetCreate, asset.ID, nil, asset)
	return asset, nil
}

// Get returns one asset.
func (s *AssetService) Get(ctx context.Context, id string) (*models.Asset, error) {
	asset, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load asset")
	}
	return asset, nil
}

// List returns assets matching the query with pagination metadata.
func (s *AssetService) List(ctx context.Context, query dto.AssetQuery) ([]models.Asset, *models.Pagination, error) {
	filter := models.AssetFilter{
		Status:   query.Status,
		HolderID: query.HolderID,
		Search:   query.Search,
		Page:     query.Page,
		PageSize: query.PerPage,
	}
	assets, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assets")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return assets, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Update edits descriptive fields. Custody and status never change here.
func (s *AssetService) Update(ctx context.Context, id string, req dto.UpdateAssetRequest, actorID string) (*models.Asset, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid asset payload")
	}
	asset, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *asset

	if req.Name != nil {
		asset.Name = *req.Name
	}
	if req.Model != nil {
		asset.Model = req.Model
	}
	if req.Description != nil {
		asset.Description = req.Description
	}
	if req.Value != nil {
		asset.Value = req.Value
	}
	if req.AcquisitionDate != nil {
		asset.AcquisitionDate = req.AcquisitionDate
	}
	if req.PhotoPath != nil {
		asset.PhotoPath = req.PhotoPath
	}

	if err := s.repo.Update(ctx, asset); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update asset")
	}
	s.emitAudit(ctx, actorID, models.AuditActionAssetUpdate, asset.ID, &before, asset)
	return asset, nil
}

// Delete removes an asset that has never moved. Assets with ledger history
// are protected and must be written off instead.
func (s *AssetService) Delete(ctx context.Context, id, actorID string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		if repository.IsForeignKeyViolation(err) {
			return appErrors.ErrHasHistory
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete asset")
	}
	s.emitAudit(ctx, actorID, models.AuditActionAssetDelete, id, nil, nil)
	return nil
}

// WriteOff retires an asset permanently and clears its custody.
func (s *AssetService) WriteOff(ctx context.Context, id string, req dto.WriteOffAssetRequest, actor *models.JWTClaims) (*models.Asset, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid write off payload")
	}
	if actor == nil || !actor.Role.CanApprove() {
		return nil, appErrors.ErrForbidden
	}

	asset, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := guardTransition(asset.Status, models.AssetWrittenOff); err != nil {
		return nil, err
	}

	fromStatus := asset.Status
	fromHolder := asset.HolderID
	asset.Status = models.AssetWrittenOff
	asset.ClearCustody()
	movement := &models.Movement{
		AssetID:    asset.ID,
		Kind:       models.MovementWriteOff,
		FromUserID: fromHolder,
		ActorID:    actor.UserID,
		Note:       &req.Reason,
	}
	if err := s.workflow.MoveAsset(ctx, asset, fromStatus, movement); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "asset changed state, retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write off asset")
	}

	s.emitAudit(ctx, actor.UserID, models.AuditActionAssetWriteOff, asset.ID, nil, asset)
	return asset, nil
}

// Store moves an idle asset into a storage bin.
func (s *AssetService) Store(ctx context.Context, id string, req dto.StoreAssetRequest, actor *models.JWTClaims) (*models.Asset, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid store payload")
	}
	if actor == nil || !actor.Role.IsStaff() {
		return nil, appErrors.ErrForbidden
	}

	bin, err := s.bins.GetStorageBin(ctx, req.StorageBinID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "storage bin not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load storage bin")
	}

	asset, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := guardTransition(asset.Status, models.AssetStored); err != nil {
		return nil, err
	}

	fromStatus := asset.Status
	asset.Status = models.AssetStored
	asset.ClearCustody()
	asset.StorageBinID = &bin.ID
	asset.LocationID = &bin.LocationID
	movement := &models.Movement{
		AssetID: asset.ID,
		Kind:    models.MovementTransfer,
		ActorID: actor.UserID,
		Note:    req.Note,
	}
	if err := s.workflow.MoveAsset(ctx, asset, fromStatus, movement); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "asset changed state, retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store asset")
	}
	return asset, nil
}

// Return registers that a holder gave the asset back. Custody pointers are
// all cleared and the asset becomes available again.
func (s *AssetService) Return(ctx context.Context, id string, note *string, actor *models.JWTClaims) (*models.Asset, error) {
	if actor == nil || !actor.Role.IsStaff() {
		return nil, appErrors.ErrForbidden
	}

	asset, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if asset.Status != models.AssetInUse {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "asset is not on loan")
	}

	fromHolder := asset.HolderID
	asset.Status = models.AssetAvailable
	asset.ClearCustody()
	movement := &models.Movement{
		AssetID:    asset.ID,
		Kind:       models.MovementReturn,
		FromUserID: fromHolder,
		ActorID:    actor.UserID,
		Note:       note,
	}
	if err := s.workflow.MoveAsset(ctx, asset, models.AssetInUse, movement); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "asset changed state, retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register return")
	}
	return asset, nil
}

// Transfer opens a pending loan request that moves the asset to another
// user once approved and delivered. Nothing changes on the asset here.
func (s *AssetService) Transfer(ctx context.Context, id string, req dto.TransferAssetRequest, actor *models.JWTClaims) (*models.LoanRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transfer payload")
	}
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	asset, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if asset.Status != models.AssetInUse {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "only assets on loan can be transferred")
	}
	holderIsActor := asset.HolderID != nil && *asset.HolderID == actor.UserID
	if !holderIsActor && !actor.Role.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the current holder or staff can start a transfer")
	}
	if req.ToUserID == actor.UserID && holderIsActor {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot transfer an asset to its current holder")
	}

	loan := &models.LoanRequest{
		RequesterID: req.ToUserID,
		AssetID:     &asset.ID,
		Reason:      req.Reason,
		Status:      models.LoanPending,
	}
	if err := s.loans.Create(ctx, loan); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open transfer request")
	}
	return loan, nil
}

// History returns the ledger entries of one asset, newest first.
func (s *AssetService) History(ctx context.Context, id string, limit, offset int) ([]models.Movement, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	movements, err := s.movements.List(ctx, models.MovementFilter{AssetID: id, Limit: limit, Offset: offset})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load asset history")
	}
	return movements, nil
}

func (s *AssetService) emitAudit(ctx context.Context, actorID, action, resourceID string, oldValue, newValue interface{}) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "asset",
		ResourceID: &resourceID,
	}
	if oldValue != nil {
		if raw, err := json.Marshal(oldValue); err == nil {
			entry.OldValues = raw
		}
	}
	if newValue != nil {
		if raw, err := json.Marshal(newValue); err == nil {
			entry.NewValues = raw
		}
	}
	if err := s.audit.Insert(ctx, entry); err != nil {
		s.logger.Warn("failed to record asset audit log", zap.Error(err))
	}
}

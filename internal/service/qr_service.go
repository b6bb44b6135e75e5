package service

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/nbaparkdev/assettrack-ti/internal/dto"
	"github.com/nbaparkdev/assettrack-ti/internal/models"
	"github.com/nbaparkdev/assettrack-ti/pkg/config"
	appErrors "github.com/nbaparkdev/assettrack-ti/pkg/errors"
	"github.com/nbaparkdev/assettrack-ti/pkg/qrimg"
)

type qrUserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByQRToken(ctx context.Context, token string) (*models.User, error)
	SetPIN(ctx context.Context, id, pinHash string, updatedAt time.Time) error
	RotateQRToken(ctx context.Context, id, token string, createdAt time.Time) error
}

type qrUsageLogStore interface {
	Insert(ctx context.Context, entry *models.QRUsageLog) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.QRUsageLog, error)
}

type departmentFinder interface {
	GetDepartment(ctx context.Context, id string) (*models.Department, error)
}

type loanLister interface {
	List(ctx context.Context, filter models.LoanFilter) ([]models.LoanRequest, error)
}

type maintenanceLister interface {
	ListRequests(ctx context.Context, filter models.MaintenanceFilter) ([]models.MaintenanceRequest, error)
}

// QRService manages the QR badge credential: token rotation, the PIN that
// unlocks it, badge rendering and the public profile behind a scan.
type QRService struct {
	users       qrUserStore
	usage       qrUsageLogStore
	departments departmentFinder
	loans       loanLister
	maintenance maintenanceLister
	audit       auditStore
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         config.QRConfig
}

// NewQRService constructs the service.
func NewQRService(users qrUserStore, usage qrUsageLogStore, departments departmentFinder, loans loanLister, maintenance maintenanceLister, audit auditStore, validate *validator.Validate, logger *zap.Logger, cfg config.QRConfig) *QRService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 90 * 24 * time.Hour
	}
	return &QRService{
		users:       users,
		usage:       usage,
		departments: departments,
		loans:       loans,
		maintenance: maintenance,
		audit:       audit,
		validator:   validate,
		logger:      logger,
		cfg:         cfg,
	}
}

// Regenerate rotates the QR token, invalidating the printed badge. Users
// rotate their own badge; admins may rotate anyone's.
func (s *QRService) Regenerate(ctx context.Context, targetID string, actor *models.JWTClaims) (*dto.QRBadgeResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if targetID == "" {
		targetID = actor.UserID
	}
	if targetID != actor.UserID && actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}

	user, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	token := uuid.NewString()
	now := time.Now().UTC()
	if err := s.users.RotateQRToken(ctx, user.ID, token, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rotate qr token")
	}

	s.recordUsage(ctx, &user.ID, models.QRActionRegenerate, true, "", "", "")
	s.emitAudit(ctx, actor.UserID, models.AuditActionQRRegenerate, user.ID)

	return s.renderBadge(token, now)
}

// Badge renders the current badge of the authenticated user. An expired
// token is not rendered; the user must regenerate first.
func (s *QRService) Badge(ctx context.Context, actor *models.JWTClaims) (*dto.QRBadgeResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	user, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.QRToken == nil || user.QRTokenCreatedAt == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no badge issued yet, regenerate one")
	}
	if s.tokenExpired(user.QRTokenCreatedAt) {
		return nil, appErrors.ErrQRExpired
	}
	return s.renderBadge(*user.QRToken, *user.QRTokenCreatedAt)
}

// SetupPIN sets the initial PIN. Changing an existing PIN goes through
// ChangePIN so the current one is always verified.
func (s *QRService) SetupPIN(ctx context.Context, req dto.SetupPINRequest, actor *models.JWTClaims, ip, userAgent string) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "pin must be 4 to 6 digits and both entries must match")
	}
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	user, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.HasPIN() {
		return appErrors.Clone(appErrors.ErrConflict, "pin already configured")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash pin")
	}
	if err := s.users.SetPIN(ctx, user.ID, string(hash), time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store pin")
	}
	s.recordUsage(ctx, &user.ID, models.QRActionPINSet, true, ip, userAgent, "")
	return nil
}

// ChangePIN rotates the PIN after verifying the current one.
func (s *QRService) ChangePIN(ctx context.Context, req dto.ChangePINRequest, actor *models.JWTClaims, ip, userAgent string) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "pin must be 4 to 6 digits and both entries must match")
	}
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	user, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if !user.HasPIN() {
		return appErrors.ErrPINNotSet
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PINHash), []byte(req.CurrentPIN)); err != nil {
		s.recordUsage(ctx, &user.ID, models.QRActionPINChanged, false, ip, userAgent, "current pin mismatch")
		return appErrors.Clone(appErrors.ErrUnauthorized, "current pin does not match")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPIN), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash pin")
	}
	if err := s.users.SetPIN(ctx, user.ID, string(hash), time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store pin")
	}
	s.recordUsage(ctx, &user.ID, models.QRActionPINChanged, true, ip, userAgent, "")
	return nil
}

// Profile resolves a scanned badge into the public slice of its owner's
// profile. No authentication required; every view is logged.
func (s *QRService) Profile(ctx context.Context, token, ip, userAgent string) (*dto.QRProfileResponse, error) {
	if token == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "missing badge token")
	}
	user, err := s.users.FindByQRToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.recordUsage(ctx, nil, models.QRActionProfileView, false, ip, userAgent, "unknown token")
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve badge")
	}
	if s.tokenExpired(user.QRTokenCreatedAt) {
		s.recordUsage(ctx, &user.ID, models.QRActionProfileView, false, ip, userAgent, "expired token")
		return nil, appErrors.ErrQRExpired
	}

	resp := &dto.QRProfileResponse{
		FullName: user.FullName,
		Role:     string(user.Role),
		HasPIN:   user.HasPIN(),
	}
	if user.DepartmentID != nil && s.departments != nil {
		if dep, err := s.departments.GetDepartment(ctx, *user.DepartmentID); err == nil {
			resp.Department = dep.Name
		}
	}
	s.recordUsage(ctx, &user.ID, models.QRActionProfileView, true, ip, userAgent, "")
	return resp, nil
}

// PendingDeliveries resolves a scanned badge into the handovers waiting on
// its owner: approved loans without delivery and repaired assets awaiting
// handback. Staff only; the scan is logged like a profile view.
func (s *QRService) PendingDeliveries(ctx context.Context, token, ip, userAgent string, actor *models.JWTClaims) (*dto.PendingDeliveriesResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.Role.IsStaff() {
		return nil, appErrors.ErrForbidden
	}
	if token == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "missing badge token")
	}

	user, err := s.users.FindByQRToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.recordUsage(ctx, nil, models.QRActionProfileView, false, ip, userAgent, "unknown token")
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve badge")
	}
	if s.tokenExpired(user.QRTokenCreatedAt) {
		s.recordUsage(ctx, &user.ID, models.QRActionProfileView, false, ip, userAgent, "expired token")
		return nil, appErrors.ErrQRExpired
	}

	resp := &dto.PendingDeliveriesResponse{
		Owner: dto.QRProfileResponse{
			FullName: user.FullName,
			Role:     string(user.Role),
			HasPIN:   user.HasPIN(),
		},
		Loans:       []models.LoanRequest{},
		Maintenance: []models.MaintenanceRequest{},
	}
	if s.loans != nil {
		loans, err := s.loans.List(ctx, models.LoanFilter{
			Status:      []models.LoanStatus{models.LoanApproved},
			RequesterID: user.ID,
		})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending loans")
		}
		resp.Loans = loans
	}
	if s.maintenance != nil {
		requests, err := s.maintenance.ListRequests(ctx, models.MaintenanceFilter{
			Status:      []models.MaintenanceStatus{models.MaintenanceAwaitingDelivery},
			RequesterID: user.ID,
		})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending maintenance")
		}
		resp.Maintenance = requests
	}

	s.recordUsage(ctx, &user.ID, models.QRActionProfileView, true, ip, userAgent, "delivery lookup")
	return resp, nil
}

// UsageLog returns the recent QR activity of one user. Users see their own
// log; managers and admins see anyone's.
func (s *QRService) UsageLog(ctx context.Context, targetID string, limit int, actor *models.JWTClaims) ([]models.QRUsageLog, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if targetID == "" {
		targetID = actor.UserID
	}
	if targetID != actor.UserID && !actor.Role.CanApprove() {
		return nil, appErrors.ErrForbidden
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	entries, err := s.usage.ListByUser(ctx, targetID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list qr usage")
	}
	return entries, nil
}

func (s *QRService) renderBadge(token string, issuedAt time.Time) (*dto.QRBadgeResponse, error) {
	payload := token
	if s.cfg.BadgeBaseURL != "" {
		payload = strings.TrimRight(s.cfg.BadgeBaseURL, "/") + "/" + token
	}
	png, err := qrimg.RenderPNG(payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render badge")
	}
	return &dto.QRBadgeResponse{
		PNGBase64: base64.StdEncoding.EncodeToString(png),
		ExpiresAt: issuedAt.Add(s.cfg.TokenTTL).Format(time.RFC3339),
	}, nil
}

func (s *QRService) tokenExpired(createdAt *time.Time) bool {
	if createdAt == nil {
		return true
	}
	return time.Now().UTC().After(createdAt.Add(s.cfg.TokenTTL))
}

func (s *QRService) recordUsage(ctx context.Context, userID *string, action models.QRAction, success bool, ip, userAgent, detail string) {
	if s.usage == nil {
		return
	}
	entry := &models.QRUsageLog{
		UserID:  userID,
		Action:  action,
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
	if err := s.usage.Insert(ctx, entry); err != nil {
		s.logger.Warn("failed to record qr usage", zap.Error(err))
	}
}

func (s *QRService) emitAudit(ctx context.Context, actorID, action, resourceID string) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "user",
		ResourceID: &resourceID,
	}
	if err := s.audit.Insert(ctx, entry); err != nil {
		s.logger.Warn("failed to record qr audit log", zap.Error(err))
	}
}

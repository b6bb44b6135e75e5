package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nbaparkdev/assettrack-ti/internal/dto"
	"github.com/nbaparkdev/assettrack-ti/internal/models"
	"github.com/nbaparkdev/assettrack-ti/pkg/config"
	appErrors "github.com/nbaparkdev/assettrack-ti/pkg/errors"
	"github.com/nbaparkdev/assettrack-ti/pkg/export"
)

const dashboardCacheKey = "reports:dashboard"
const dashboardCacheTTL = time.Minute

type assetCounter interface {
	CountByStatus(ctx context.Context) (map[models.AssetStatus]int, error)
}

type loanCounter interface {
	CountByStatus(ctx context.Context) (map[models.LoanStatus]int, error)
}

type maintenanceCounter interface {
	CountRequestsByStatus(ctx context.Context) (map[models.MaintenanceStatus]int, error)
	ListRequests(ctx context.Context, filter models.MaintenanceFilter) ([]models.MaintenanceRequest, error)
}

type movementReader interface {
	List(ctx context.Context, filter models.MovementFilter) ([]models.Movement, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
}

// ReportService builds the inventory dashboard and ledger exports.
type ReportService struct {
	assets      assetCounter
	loans       loanCounter
	maintenance maintenanceCounter
	movements   movementReader
	cache       *redis.Client
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         config.ReportsConfig
}

// NewReportService constructs the service. The Redis client is optional;
// without it every dashboard call hits the database.
func NewReportService(assets assetCounter, loans loanCounter, maintenance maintenanceCounter, movements movementReader, cache *redis.Client, validate *validator.Validate, logger *zap.Logger, cfg config.ReportsConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 10000
	}
	return &ReportService{
		assets:      assets,
		loans:       loans,
		maintenance: maintenance,
		movements:   movements,
		cache:       cache,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		validator:   validate,
		logger:      logger,
		cfg:         cfg,
	}
}

// Dashboard aggregates fleet, queue and ledger counters.
func (s *ReportService) Dashboard(ctx context.Context, actor *models.JWTClaims) (*dto.DashboardResponse, error) {
	if actor == nil || !actor.Role.IsStaff() {
		return nil, appErrors.ErrForbidden
	}

	if cached := s.cachedDashboard(ctx); cached != nil {
		return cached, nil
	}

	assetCounts, err := s.assets.CountByStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count assets")
	}
	loanCounts, err := s.loans.CountByStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count loans")
	}
	maintCounts, err := s.maintenance.CountRequestsByStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count maintenance requests")
	}

	now := time.Now().UTC()
	last7, err := s.movements.CountSince(ctx, now.AddDate(0, 0, -7))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count movements")
	}
	last30, err := s.movements.CountSince(ctx, now.AddDate(0, 0, -30))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count movements")
	}

	resp := &dto.DashboardResponse{
		Assets: dto.AssetCountsSection{
			Available:   assetCounts[models.AssetAvailable],
			InUse:       assetCounts[models.AssetInUse],
			Maintenance: assetCounts[models.AssetMaintenance],
			Stored:      assetCounts[models.AssetStored],
			WrittenOff:  assetCounts[models.AssetWrittenOff],
		},
		Loans: dto.WorkflowSection{
			Pending:    loanCounts[models.LoanPending],
			InProgress: loanCounts[models.LoanApproved],
		},
		Maintenance: dto.WorkflowSection{
			Pending: maintCounts[models.MaintenancePending],
			InProgress: maintCounts[models.MaintenanceInProgress] +
				maintCounts[models.MaintenanceAwaitingDelivery] +
				maintCounts[models.MaintenanceDelivered],
		},
		Movements: dto.MovementLastSection{
			Last7Days:  last7,
			Last30Days: last30,
		},
	}
	for _, n := range assetCounts {
		resp.Assets.Total += n
	}
	for _, n := range loanCounts {
		resp.Loans.Total += n
	}
	for _, n := range maintCounts {
		resp.Maintenance.Total += n
	}

	s.cacheDashboard(ctx, resp)
	return resp, nil
}

// MovementReport renders the filtered ledger as CSV or PDF bytes together
// with a content type.
func (s *ReportService) MovementReport(ctx context.Context, req dto.MovementReportRequest, actor *models.JWTClaims) ([]byte, string, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report filters")
	}
	if actor == nil || !actor.Role.IsStaff() {
		return nil, "", appErrors.ErrForbidden
	}

	filter := models.MovementFilter{
		AssetID: req.AssetID,
		UserID:  req.UserID,
		From:    req.From,
		To:      req.To,
		Limit:   s.cfg.MaxRows,
	}
	for _, kind := range req.Kind {
		filter.Kind = append(filter.Kind, models.MovementKind(strings.ToUpper(strings.TrimSpace(kind))))
	}
	movements, err := s.movements.List(ctx, filter)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list movements")
	}

	dataset := export.Dataset{
		Headers: []string{"occurred_at", "asset_id", "kind", "from_user", "to_user", "actor", "note"},
	}
	for _, m := range movements {
		row := map[string]string{
			"occurred_at": m.OccurredAt.Format(time.RFC3339),
			"asset_id":    m.AssetID,
			"kind":        string(m.Kind),
			"actor":       m.ActorID,
		}
		if m.FromUserID != nil {
			row["from_user"] = *m.FromUserID
		}
		if m.ToUserID != nil {
			row["to_user"] = *m.ToUserID
		}
		if m.Note != nil {
			row["note"] = *m.Note
		}
		dataset.Rows = append(dataset.Rows, row)
	}

	if req.Format == "json" {
		out, err := json.Marshal(movements)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render json report")
		}
		return out, "application/json", nil
	}
	return s.render(dataset, "Movement ledger", req.Format)
}

// MaintenanceReport renders filtered maintenance requests in the requested
// format.
func (s *ReportService) MaintenanceReport(ctx context.Context, req dto.MaintenanceReportRequest, actor *models.JWTClaims) ([]byte, string, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report filters")
	}
	if actor == nil || !actor.Role.IsStaff() {
		return nil, "", appErrors.ErrForbidden
	}

	filter := models.MaintenanceFilter{
		AssetID: req.AssetID,
		From:    req.From,
		To:      req.To,
		Limit:   s.cfg.MaxRows,
	}
	for _, status := range req.Status {
		filter.Status = append(filter.Status, models.MaintenanceStatus(strings.ToUpper(strings.TrimSpace(status))))
	}
	requests, err := s.maintenance.ListRequests(ctx, filter)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list maintenance requests")
	}

	if req.Format == "json" {
		out, err := json.Marshal(requests)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render json report")
		}
		return out, "application/json", nil
	}

	dataset := export.Dataset{
		Headers: []string{"requested_at", "asset_id", "requester_id", "priority", "status", "assignee_id"},
	}
	for _, r := range requests {
		row := map[string]string{
			"requested_at": r.RequestedAt.Format(time.RFC3339),
			"asset_id":     r.AssetID,
			"requester_id": r.RequesterID,
			"priority":     string(r.Priority),
			"status":       string(r.Status),
		}
		if r.AssigneeID != nil {
			row["assignee_id"] = *r.AssigneeID
		}
		dataset.Rows = append(dataset.Rows, row)
	}
	return s.render(dataset, "Maintenance requests", req.Format)
}

func (s *ReportService) render(dataset export.Dataset, title, format string) ([]byte, string, error) {
	if format == "pdf" {
		out, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf report")
		}
		return out, "application/pdf", nil
	}
	out, err := s.csv.Render(dataset)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv report")
	}
	return out, "text/csv", nil
}

func (s *ReportService) cachedDashboard(ctx context.Context) *dto.DashboardResponse {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, dashboardCacheKey).Bytes()
	if err != nil {
		return nil
	}
	var resp dto.DashboardResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil
	}
	return &resp
}

func (s *ReportService) cacheDashboard(ctx context.Context, resp *dto.DashboardResponse) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, dashboardCacheKey, raw, dashboardCacheTTL).Err(); err != nil {
		s.logger.Warn("failed to cache dashboard", zap.Error(err))
	}
}

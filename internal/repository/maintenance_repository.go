package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nbaparkdev/assettrack-ti/internal/models"
)

const maintenanceColumns = `id, requester_id, asset_id, description, priority, status, requested_at,
       assignee_id, response_note, responded_at, tech_completed_at, delivered_at, record_id`

const recordColumns = `id, asset_id, technician_id, reason, type, status, started_at, expected_at,
       completed_at, cost, completion_note, destination, destination_user_id`

// MaintenanceRepository persists maintenance requests and repair records.
type MaintenanceRepository struct {
	db *sqlx.DB
}

// NewMaintenanceRepository constructs the repository.
func NewMaintenanceRepository(db *sqlx.DB) *MaintenanceRepository {
	return &MaintenanceRepository{db: db}
}

// CreateRequest inserts a new maintenance request row.
func (r *MaintenanceRepository) CreateRequest(ctx context.Context, req *models.MaintenanceRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = models.MaintenancePending
	}
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now().UTC()
	}
	const query = `INSERT INTO maintenance_requests
	(id, requester_id, asset_id, description, priority, status, requested_at)
	VALUES (:id, :requester_id, :asset_id, :description, :priority, :status, :requested_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create maintenance request: %w", err)
	}
	return nil
}

// GetRequestByID fetches a maintenance request by identifier.
func (r *MaintenanceRepository) GetRequestByID(ctx context.Context, id string) (*models.MaintenanceRequest, error) {
	query := `SELECT ` + maintenanceColumns + ` FROM maintenance_requests WHERE id = $1 LIMIT 1`
	var req models.MaintenanceRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get maintenance request: %w", err)
	}
	return &req, nil
}

// ListRequests returns maintenance requests matching the filter.
func (r *MaintenanceRepository) ListRequests(ctx context.Context, filter models.MaintenanceFilter) ([]models.MaintenanceRequest, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 6)
	builder.WriteString(`SELECT ` + maintenanceColumns + ` FROM maintenance_requests`)

	conditions := make([]string, 0, 5)
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.RequesterID != "" {
		args = append(args, filter.RequesterID)
		conditions = append(conditions, fmt.Sprintf("requester_id = $%d", len(args)))
	}
	if filter.AssigneeID != "" {
		args = append(args, filter.AssigneeID)
		conditions = append(conditions, fmt.Sprintf("assignee_id = $%d", len(args)))
	}
	if filter.AssetID != "" {
		args = append(args, filter.AssetID)
		conditions = append(conditions, fmt.Sprintf("asset_id = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("requested_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("requested_at < $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY requested_at DESC")

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	} else if limit > 10000 {
		limit = 10000
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var reqs []models.MaintenanceRequest
	if err := r.db.SelectContext(ctx, &reqs, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list maintenance requests: %w", err)
	}
	return reqs, nil
}

// TransitionRequest moves a request from one status to another, optionally
// writing extra columns. Zero affected rows means the request was not in
// fromStatus and surfaces as sql.ErrNoRows.
func (r *MaintenanceRepository) TransitionRequest(ctx context.Context, id string, from, to models.MaintenanceStatus, extra map[string]interface{}) error {
	setParts := []string{"status = :status"}
	params := map[string]interface{}{
		"id":     id,
		"status": to,
	}
	for col, val := range extra {
		setParts = append(setParts, fmt.Sprintf("%s = :%s", col, col))
		params[col] = val
	}
	query := fmt.Sprintf("UPDATE maintenance_requests SET %s WHERE id = :id AND status = '%s'",
		strings.Join(setParts, ", "), from)
	result, err := r.db.NamedExecContext(ctx, query, params)
	if err != nil {
		return fmt.Errorf("transition maintenance request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check maintenance transition rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreateRecord inserts a repair record.
func (r *MaintenanceRepository) CreateRecord(ctx context.Context, rec *models.MaintenanceRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = models.RecordInProgress
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now().UTC()
	}
	const query = `INSERT INTO maintenance_records
	(id, asset_id, technician_id, reason, type, status, started_at, expected_at)
	VALUES (:id, :asset_id, :technician_id, :reason, :type, :status, :started_at, :expected_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("create maintenance record: %w", err)
	}
	return nil
}

// GetRecordByID fetches a repair record by identifier.
func (r *MaintenanceRepository) GetRecordByID(ctx context.Context, id string) (*models.MaintenanceRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM maintenance_records WHERE id = $1 LIMIT 1`
	var rec models.MaintenanceRecord
	if err := r.db.GetContext(ctx, &rec, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get maintenance record: %w", err)
	}
	return &rec, nil
}

// ListRecordsByAsset returns the repair history of one asset, newest first.
func (r *MaintenanceRepository) ListRecordsByAsset(ctx context.Context, assetID string) ([]models.MaintenanceRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM maintenance_records WHERE asset_id = $1 ORDER BY started_at DESC`
	var recs []models.MaintenanceRecord
	if err := r.db.SelectContext(ctx, &recs, query, assetID); err != nil {
		return nil, fmt.Errorf("list maintenance records: %w", err)
	}
	return recs, nil
}

// CompleteRecordParams groups columns written when repair work finishes.
type CompleteRecordParams struct {
	ID             string
	CompletedAt    time.Time
	Cost           *float64
	CompletionNote *string
	Destination    models.MaintenanceDestination
	DestinationUID *string
}

// CompleteRecord closes an in-progress record.
func (r *MaintenanceRepository) CompleteRecord(ctx context.Context, params CompleteRecordParams) error {
	query := fmt.Sprintf(`UPDATE maintenance_records SET status = '%s', completed_at = :completed_at,
	cost = :cost, completion_note = :completion_note, destination = :destination, destination_user_id = :destination_user_id
	WHERE id = :id AND status = '%s'`, models.RecordCompleted, models.RecordInProgress)
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":                  params.ID,
		"completed_at":        params.CompletedAt,
		"cost":                params.Cost,
		"completion_note":     params.CompletionNote,
		"destination":         params.Destination,
		"destination_user_id": params.DestinationUID,
	})
	if err != nil {
		return fmt.Errorf("complete maintenance record: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check record completion rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountRequestsByStatus aggregates open queue totals for the dashboard.
func (r *MaintenanceRepository) CountRequestsByStatus(ctx context.Context) (map[models.MaintenanceStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS count FROM maintenance_requests GROUP BY status`
	rows := []struct {
		Status models.MaintenanceStatus `db:"status"`
		Count  int                      `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count maintenance requests by status: %w", err)
	}
	counts := make(map[models.MaintenanceStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

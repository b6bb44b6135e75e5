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

const loanColumns = `id, requester_id, asset_id, reason, status, requested_at, approver_id, decision_note,
       decided_at, expected_return, delivered_at, confirmer_id, qr_confirmed, delivery_note`

// LoanRepository persists loan request workflow data.
type LoanRepository struct {
	db *sqlx.DB
}

// NewLoanRepository constructs the repository.
func NewLoanRepository(db *sqlx.DB) *LoanRepository {
	return &LoanRepository{db: db}
}

// Create inserts a new loan request row.
func (r *LoanRepository) Create(ctx context.Context, loan *models.LoanRequest) error {
	if loan.ID == "" {
		loan.ID = uuid.NewString()
	}
	if loan.Status == "" {
		loan.Status = models.LoanPending
	}
	if loan.RequestedAt.IsZero() {
		loan.RequestedAt = time.Now().UTC()
	}
	const query = `INSERT INTO loan_requests
	(id, requester_id, asset_id, reason, status, requested_at, expected_return, qr_confirmed)
	VALUES (:id, :requester_id, :asset_id, :reason, :status, :requested_at, :expected_return, :qr_confirmed)`
	if _, err := r.db.NamedExecContext(ctx, query, loan); err != nil {
		return fmt.Errorf("create loan request: %w", err)
	}
	return nil
}

// GetByID fetches a loan request by identifier.
func (r *LoanRepository) GetByID(ctx context.Context, id string) (*models.LoanRequest, error) {
	query := `SELECT ` + loanColumns + ` FROM loan_requests WHERE id = $1 LIMIT 1`
	var loan models.LoanRequest
	if err := r.db.GetContext(ctx, &loan, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get loan request: %w", err)
	}
	return &loan, nil
}

// List returns loan requests matching the filter (latest first).
func (r *LoanRepository) List(ctx context.Context, filter models.LoanFilter) ([]models.LoanRequest, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(`SELECT ` + loanColumns + ` FROM loan_requests`)

	conditions := make([]string, 0, 3)
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
	if filter.AssetID != "" {
		args = append(args, filter.AssetID)
		conditions = append(conditions, fmt.Sprintf("asset_id = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY requested_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var loans []models.LoanRequest
	if err := r.db.SelectContext(ctx, &loans, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list loan requests: %w", err)
	}
	return loans, nil
}

// DecideLoanParams groups columns written by an approval or rejection.
type DecideLoanParams struct {
	ID         string
	Status     models.LoanStatus
	ApproverID string
	DecidedAt  time.Time
	Note       *string
	AssetID    *string
}

// UpdateDecision persists the approver's verdict. The PENDING guard makes
// the second of two racing decisions fail with sql.ErrNoRows.
func (r *LoanRepository) UpdateDecision(ctx context.Context, params DecideLoanParams) error {
	setParts := []string{
		"status = :status",
		"approver_id = :approver_id",
		"decided_at = :decided_at",
	}
	if params.Note != nil {
		setParts = append(setParts, "decision_note = :decision_note")
	}
	if params.AssetID != nil {
		setParts = append(setParts, "asset_id = :asset_id")
	}
	query := fmt.Sprintf("UPDATE loan_requests SET %s WHERE id = :id AND status = '%s'",
		strings.Join(setParts, ", "),
		models.LoanPending,
	)
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":            params.ID,
		"status":        params.Status,
		"approver_id":   params.ApproverID,
		"decided_at":    params.DecidedAt,
		"decision_note": params.Note,
		"asset_id":      params.AssetID,
	})
	if err != nil {
		return fmt.Errorf("update loan decision: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check loan decision rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AssignAsset binds an asset to a request that is still open for assignment.
func (r *LoanRepository) AssignAsset(ctx context.Context, id, assetID string) error {
	query := fmt.Sprintf(`UPDATE loan_requests SET asset_id = $2 WHERE id = $1 AND status IN ('%s', '%s')`,
		models.LoanPending, models.LoanApproved)
	result, err := r.db.ExecContext(ctx, query, id, assetID)
	if err != nil {
		return fmt.Errorf("assign loan asset: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check loan assign rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Cancel lets a requester withdraw a request that has not been decided.
func (r *LoanRepository) Cancel(ctx context.Context, id, requesterID string) error {
	query := fmt.Sprintf(`UPDATE loan_requests SET status = '%s' WHERE id = $1 AND requester_id = $2 AND status = '%s'`,
		models.LoanCancelled, models.LoanPending)
	result, err := r.db.ExecContext(ctx, query, id, requesterID)
	if err != nil {
		return fmt.Errorf("cancel loan request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check loan cancel rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ConfirmDeliveryParams groups columns written when the handover completes.
type ConfirmDeliveryParams struct {
	ID          string
	ConfirmerID string
	DeliveredAt time.Time
	QRConfirmed bool
	Note        *string
}

// ConfirmDelivery marks an approved request as delivered. Requests in any
// other state are left untouched and sql.ErrNoRows is returned.
func (r *LoanRepository) ConfirmDelivery(ctx context.Context, params ConfirmDeliveryParams) error {
	query := fmt.Sprintf(`UPDATE loan_requests SET status = '%s', confirmer_id = :confirmer_id,
	delivered_at = :delivered_at, qr_confirmed = :qr_confirmed, delivery_note = :delivery_note
	WHERE id = :id AND status = '%s'`, models.LoanDelivered, models.LoanApproved)
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":            params.ID,
		"confirmer_id":  params.ConfirmerID,
		"delivered_at":  params.DeliveredAt,
		"qr_confirmed":  params.QRConfirmed,
		"delivery_note": params.Note,
	})
	if err != nil {
		return fmt.Errorf("confirm loan delivery: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check loan delivery rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountByStatus aggregates open queue totals for the dashboard.
func (r *LoanRepository) CountByStatus(ctx context.Context) (map[models.LoanStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS count FROM loan_requests GROUP BY status`
	rows := []struct {
		Status models.LoanStatus `db:"status"`
		Count  int               `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count loan requests by status: %w", err)
	}
	counts := make(map[models.LoanStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

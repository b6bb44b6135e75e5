package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/nbaparkdev/assettrack-ti/internal/models"
)

const assetColumns = `id, name, serial_number, model, description, value, acquisition_date, status, photo_path,
       holder_id, department_id, location_id, storage_bin_id, created_at, updated_at`

// AssetRepository provides database access for the asset registry.
type AssetRepository struct {
	db *sqlx.DB
}

// NewAssetRepository constructs the repository.
func NewAssetRepository(db *sqlx.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

// Create inserts a new asset row.
func (r *AssetRepository) Create(ctx context.Context, asset *models.Asset) error {
	if asset.ID == "" {
		asset.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = now
	}
	asset.UpdatedAt = now
	if asset.Status == "" {
		asset.Status = models.AssetAvailable
	}
	const query = `INSERT INTO assets
	(id, name, serial_number, model, description, value, acquisition_date, status, photo_path, holder_id, department_id, location_id, storage_bin_id, created_at, updated_at)
	VALUES (:id, :name, :serial_number, :model, :description, :value, :acquisition_date, :status, :photo_path, :holder_id, :department_id, :location_id, :storage_bin_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, asset); err != nil {
		return fmt.Errorf("create asset: %w", err)
	}
	return nil
}

// GetByID fetches an asset by identifier.
func (r *AssetRepository) GetByID(ctx context.Context, id string) (*models.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE id = $1 LIMIT 1`
	var asset models.Asset
	if err := r.db.GetContext(ctx, &asset, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return &asset, nil
}

// GetBySerial fetches an asset by serial number.
func (r *AssetRepository) GetBySerial(ctx context.Context, serial string) (*models.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE serial_number = $1 LIMIT 1`
	var asset models.Asset
	if err := r.db.GetContext(ctx, &asset, query, serial); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get asset by serial: %w", err)
	}
	return &asset, nil
}

// List returns assets matching the filter with a total count.
func (r *AssetRepository) List(ctx context.Context, filter models.AssetFilter) ([]models.Asset, int, error) {
	baseQuery := `FROM assets WHERE 1=1`
	var conditions []string
	var args []interface{}

	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.HolderID != "" {
		args = append(args, filter.HolderID)
		conditions = append(conditions, fmt.Sprintf("holder_id = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(serial_number) LIKE $%d)", len(args), len(args)))
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", assetColumns, baseQuery, pageSize, offset)

	var assets []models.Asset
	if err := r.db.SelectContext(ctx, &assets, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list assets: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count assets: %w", err)
	}

	return assets, total, nil
}

// Update persists descriptive fields. Status and custody stay untouched.
func (r *AssetRepository) Update(ctx context.Context, asset *models.Asset) error {
	asset.UpdatedAt = time.Now().UTC()
	const query = `UPDATE assets SET name = :name, model = :model, description = :description, value = :value,
	acquisition_date = :acquisition_date, photo_path = :photo_path, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, asset); err != nil {
		return fmt.Errorf("update asset: %w", err)
	}
	return nil
}

// Delete removes an asset permanently. Assets referenced by the movement
// ledger are protected by a foreign key; that violation maps to ErrHasHistory
// in the service layer.
func (r *AssetRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM assets WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete asset: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check asset delete rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountByStatus aggregates fleet totals for the dashboard.
func (r *AssetRepository) CountByStatus(ctx context.Context) (map[models.AssetStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS count FROM assets GROUP BY status`
	rows := []struct {
		Status models.AssetStatus `db:"status"`
		Count  int                `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count assets by status: %w", err)
	}
	counts := make(map[models.AssetStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// IsForeignKeyViolation reports whether the error is a Postgres FK violation.
func IsForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}

// IsUniqueViolation reports whether the error is a Postgres unique violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nbaparkdev/assettrack-ti/internal/models"
)

// OrgRepository provides access to departments, locations and storage bins.
type OrgRepository struct {
	db *sqlx.DB
}

// NewOrgRepository constructs the repository.
func NewOrgRepository(db *sqlx.DB) *OrgRepository {
	return &OrgRepository{db: db}
}

// ListDepartments returns all departments ordered by name.
func (r *OrgRepository) ListDepartments(ctx context.Context) ([]models.Department, error) {
	const query = `SELECT id, name, created_at FROM departments ORDER BY name`
	var departments []models.Department
	if err := r.db.SelectContext(ctx, &departments, query); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return departments, nil
}

// GetDepartment returns one department by id.
func (r *OrgRepository) GetDepartment(ctx context.Context, id string) (*models.Department, error) {
	const query = `SELECT id, name, created_at FROM departments WHERE id = $1`
	var department models.Department
	if err := r.db.GetContext(ctx, &department, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get department: %w", err)
	}
	return &department, nil
}

// CreateDepartment inserts a department.
func (r *OrgRepository) CreateDepartment(ctx context.Context, d *models.Department) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO departments (id, name, created_at) VALUES (:id, :name, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, d); err != nil {
		return fmt.Errorf("create department: %w", err)
	}
	return nil
}

// ListLocations returns all locations ordered by name.
func (r *OrgRepository) ListLocations(ctx context.Context) ([]models.Location, error) {
	const query = `SELECT id, name, address, created_at FROM locations ORDER BY name`
	var locations []models.Location
	if err := r.db.SelectContext(ctx, &locations, query); err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	return locations, nil
}

// CreateLocation inserts a location.
func (r *OrgRepository) CreateLocation(ctx context.Context, l *models.Location) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO locations (id, name, address, created_at) VALUES (:id, :name, :address, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, l); err != nil {
		return fmt.Errorf("create location: %w", err)
	}
	return nil
}

// GetStorageBin fetches a storage bin by identifier.
func (r *OrgRepository) GetStorageBin(ctx context.Context, id string) (*models.StorageBin, error) {
	const query = `SELECT id, location_id, code, created_at FROM storage_bins WHERE id = $1 LIMIT 1`
	var bin models.StorageBin
	if err := r.db.GetContext(ctx, &bin, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get storage bin: %w", err)
	}
	return &bin, nil
}

// ListStorageBins returns bins for one location ordered by code.
func (r *OrgRepository) ListStorageBins(ctx context.Context, locationID string) ([]models.StorageBin, error) {
	const query = `SELECT id, location_id, code, created_at FROM storage_bins WHERE location_id = $1 ORDER BY code`
	var bins []models.StorageBin
	if err := r.db.SelectContext(ctx, &bins, query, locationID); err != nil {
		return nil, fmt.Errorf("list storage bins: %w", err)
	}
	return bins, nil
}

// CreateStorageBin inserts a storage bin.
func (r *OrgRepository) CreateStorageBin(ctx context.Context, b *models.StorageBin) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO storage_bins (id, location_id, code, created_at) VALUES (:id, :location_id, :code, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, b); err != nil {
		return fmt.Errorf("create storage bin: %w", err)
	}
	return nil
}

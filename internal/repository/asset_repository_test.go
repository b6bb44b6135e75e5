package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/nbaparkdev/assettrack-ti/internal/models"
)

func newAssetRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAssetRepositoryCreateDefaultsStatus(t *testing.T) {
	db, mock, cleanup := newAssetRepoMock(t)
	defer cleanup()

	repo := NewAssetRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO assets")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	asset := &models.Asset{Name: "ThinkPad T14", SerialNumber: "SN-001"}
	require.NoError(t, repo.Create(context.Background(), asset))
	require.NotEmpty(t, asset.ID)
	require.Equal(t, models.AssetAvailable, asset.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssetRepositoryCountByStatus(t *testing.T) {
	db, mock, cleanup := newAssetRepoMock(t)
	defer cleanup()

	repo := NewAssetRepository(db)
	rows := sqlmock.NewRows([]string{"status", "count"}).
		AddRow("AVAILABLE", 4).
		AddRow("IN_USE", 2)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*)")).WillReturnRows(rows)

	counts, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, counts[models.AssetAvailable])
	require.Equal(t, 2, counts[models.AssetInUse])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssetRepositoryListWithStatusFilter(t *testing.T) {
	db, mock, cleanup := newAssetRepoMock(t)
	defer cleanup()

	repo := NewAssetRepository(db)
	listRows := sqlmock.NewRows([]string{"id", "name", "serial_number", "model", "description", "value", "acquisition_date", "status", "photo_path", "holder_id", "department_id", "location_id", "storage_bin_id", "created_at", "updated_at"}).
		AddRow("asset-1", "ThinkPad T14", "SN-001", nil, nil, nil, nil, "AVAILABLE", nil, nil, nil, nil, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, serial_number")).
		WithArgs("AVAILABLE").
		WillReturnRows(listRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("AVAILABLE").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	assets, total, err := repo.List(context.Background(), models.AssetFilter{
		Status: []models.AssetStatus{models.AssetAvailable},
	})
	require.NoError(t, err)
	require.Len(t, assets, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIsForeignKeyViolation(t *testing.T) {
	require.True(t, IsForeignKeyViolation(&pq.Error{Code: "23503"}))
	require.False(t, IsForeignKeyViolation(&pq.Error{Code: "23505"}))
	require.False(t, IsForeignKeyViolation(sql.ErrNoRows))
}

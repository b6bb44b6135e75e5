package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/nbaparkdev/assettrack-ti/internal/models"
)

func newMaintenanceRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestMaintenanceRepositoryCreateRequestDefaults(t *testing.T) {
	db, mock, cleanup := newMaintenanceRepoMock(t)
	defer cleanup()

	repo := NewMaintenanceRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO maintenance_requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	req := &models.MaintenanceRequest{
		RequesterID: "user-1",
		AssetID:     "asset-1",
		Description: "screen flickers on boot",
		Priority:    models.PriorityHigh,
	}
	require.NoError(t, repo.CreateRequest(context.Background(), req))
	require.NotEmpty(t, req.ID)
	require.Equal(t, models.MaintenancePending, req.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMaintenanceRepositoryTransitionGuard(t *testing.T) {
	db, mock, cleanup := newMaintenanceRepoMock(t)
	defer cleanup()

	repo := NewMaintenanceRepository(db)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE maintenance_requests SET")).WillReturnResult(sqlmock.NewResult(0, 1))
	err := repo.TransitionRequest(context.Background(), "req-1",
		models.MaintenancePending, models.MaintenanceInProgress,
		map[string]interface{}{"assignee_id": "tech-1", "responded_at": now})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectExec(regexp.QuoteMeta("UPDATE maintenance_requests SET")).WillReturnResult(sqlmock.NewResult(0, 0))
	err = repo.TransitionRequest(context.Background(), "req-1",
		models.MaintenancePending, models.MaintenanceRejected, nil)
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestMaintenanceRepositoryCompleteRecord(t *testing.T) {
	db, mock, cleanup := newMaintenanceRepoMock(t)
	defer cleanup()

	repo := NewMaintenanceRepository(db)
	cost := 120.50
	mock.ExpectExec(regexp.QuoteMeta("UPDATE maintenance_records SET")).WillReturnResult(sqlmock.NewResult(0, 1))
	err := repo.CompleteRecord(context.Background(), CompleteRecordParams{
		ID:          "rec-1",
		CompletedAt: time.Now().UTC(),
		Cost:        &cost,
		Destination: models.DestinationUser,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMaintenanceRepositoryListRequestsByStatus(t *testing.T) {
	db, mock, cleanup := newMaintenanceRepoMock(t)
	defer cleanup()

	repo := NewMaintenanceRepository(db)
	rows := sqlmock.NewRows([]string{"id", "requester_id", "asset_id", "description", "priority", "status", "requested_at", "assignee_id", "response_note", "responded_at", "tech_completed_at", "delivered_at", "record_id"}).
		AddRow("req-1", "user-1", "asset-1", "no power", "CRITICAL", "PENDING", time.Now(), nil, nil, nil, nil, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, requester_id, asset_id")).
		WithArgs("PENDING").
		WillReturnRows(rows)

	list, err := repo.ListRequests(context.Background(), models.MaintenanceFilter{
		Status: []models.MaintenanceStatus{models.MaintenancePending},
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "req-1", list[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

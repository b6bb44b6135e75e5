package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/nbaparkdev/assettrack-ti/internal/models"
)

func newMovementRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestMovementRepositoryListByUser(t *testing.T) {
	db, mock, cleanup := newMovementRepoMock(t)
	defer cleanup()

	repo := NewMovementRepository(db)
	rows := sqlmock.NewRows([]string{"id", "asset_id", "kind", "from_user_id", "to_user_id", "actor_id", "note", "occurred_at"}).
		AddRow("mov-1", "asset-1", "LOAN", nil, "user-1", "tech-1", nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, asset_id, kind")).
		WithArgs("user-1").
		WillReturnRows(rows)

	list, err := repo.List(context.Background(), models.MovementFilter{UserID: "user-1"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, models.MovementLoan, list[0].Kind)
	require.NoError(t, mock.ExpectationsWereMet())
}

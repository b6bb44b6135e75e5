package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/nbaparkdev/assettrack-ti/internal/models"
)

func newWorkflowRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestWorkflowMoveAssetCommitsCustodyAndLedgerTogether(t *testing.T) {
	db, mock, cleanup := newWorkflowRepoMock(t)
	defer cleanup()

	repo := NewWorkflowRepository(db)
	holder := "user-1"
	asset := &models.Asset{ID: "asset-1", Status: models.AssetAvailable}
	movement := &models.Movement{AssetID: "asset-1", Kind: models.MovementReturn, FromUserID: &holder, ActorID: "tech-1"}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE assets SET status")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO movements")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.MoveAsset(context.Background(), asset, models.AssetInUse, movement))
	require.NotEmpty(t, movement.ID)
	require.False(t, movement.OccurredAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkflowMoveAssetStaleGuardWritesNothing(t *testing.T) {
	db, mock, cleanup := newWorkflowRepoMock(t)
	defer cleanup()

	repo := NewWorkflowRepository(db)
	asset := &models.Asset{ID: "asset-1", Status: models.AssetWrittenOff}

	// The asset moved out from under us; the guard leaves zero rows and the
	// ledger insert never runs.
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE assets SET status")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.MoveAsset(context.Background(), asset, models.AssetInUse, &models.Movement{AssetID: "asset-1", Kind: models.MovementWriteOff, ActorID: "mgr-1"})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkflowMoveAssetRollsBackWhenLedgerInsertFails(t *testing.T) {
	db, mock, cleanup := newWorkflowRepoMock(t)
	defer cleanup()

	repo := NewWorkflowRepository(db)
	asset := &models.Asset{ID: "asset-1", Status: models.AssetWrittenOff}
	boom := errors.New("ledger unavailable")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE assets SET status")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO movements")).WillReturnError(boom)
	mock.ExpectRollback()

	err := repo.MoveAsset(context.Background(), asset, models.AssetInUse, &models.Movement{AssetID: "asset-1", Kind: models.MovementWriteOff, ActorID: "mgr-1"})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

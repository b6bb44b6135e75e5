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

func newLoanRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestLoanRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newLoanRepoMock(t)
	defer cleanup()

	repo := NewLoanRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO loan_requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	assetID := "asset-1"
	loan := &models.LoanRequest{
		RequesterID: "user-1",
		AssetID:     &assetID,
		Reason:      "field visit laptop",
	}
	require.NoError(t, repo.Create(context.Background(), loan))
	require.NotEmpty(t, loan.ID)
	require.Equal(t, models.LoanPending, loan.Status)

	rows := sqlmock.NewRows([]string{"id", "requester_id", "asset_id", "reason", "status", "requested_at", "approver_id", "decision_note", "decided_at", "expected_return", "delivered_at", "confirmer_id", "qr_confirmed", "delivery_note"}).
		AddRow(loan.ID, "user-1", assetID, "field visit laptop", "PENDING", time.Now(), nil, nil, nil, nil, nil, nil, false, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, requester_id, asset_id")).
		WithArgs(loan.ID).
		WillReturnRows(rows)

	found, err := repo.GetByID(context.Background(), loan.ID)
	require.NoError(t, err)
	require.Equal(t, loan.ID, found.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newLoanRepoMock(t)
	defer cleanup()

	repo := NewLoanRepository(db)
	rows := sqlmock.NewRows([]string{"id", "requester_id", "asset_id", "reason", "status", "requested_at", "approver_id", "decision_note", "decided_at", "expected_return", "delivered_at", "confirmer_id", "qr_confirmed", "delivery_note"}).
		AddRow("loan-1", "user-1", nil, "monitor", "PENDING", time.Now(), nil, nil, nil, nil, nil, nil, false, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, requester_id, asset_id")).
		WithArgs("PENDING", "user-1").
		WillReturnRows(rows)

	list, err := repo.List(context.Background(), models.LoanFilter{
		Status:      []models.LoanStatus{models.LoanPending},
		RequesterID: "user-1",
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "loan-1", list[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepositoryUpdateDecision(t *testing.T) {
	db, mock, cleanup := newLoanRepoMock(t)
	defer cleanup()

	repo := NewLoanRepository(db)
	now := time.Now()
	note := "approved for the quarter"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE loan_requests SET")).WillReturnResult(sqlmock.NewResult(0, 1))
	err := repo.UpdateDecision(context.Background(), DecideLoanParams{
		ID:         "loan-1",
		Status:     models.LoanApproved,
		ApproverID: "manager-1",
		DecidedAt:  now,
		Note:       &note,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	// A second decision on the same request hits zero rows.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE loan_requests SET")).WillReturnResult(sqlmock.NewResult(0, 0))
	err = repo.UpdateDecision(context.Background(), DecideLoanParams{
		ID:         "loan-1",
		Status:     models.LoanRejected,
		ApproverID: "manager-2",
		DecidedAt:  now,
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestLoanRepositoryConfirmDeliveryRequiresApproved(t *testing.T) {
	db, mock, cleanup := newLoanRepoMock(t)
	defer cleanup()

	repo := NewLoanRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE loan_requests SET")).WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.ConfirmDelivery(context.Background(), ConfirmDeliveryParams{
		ID:          "loan-1",
		ConfirmerID: "tech-1",
		DeliveredAt: time.Now(),
		QRConfirmed: true,
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

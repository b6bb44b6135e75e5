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

// WorkflowRepository runs the multi-table writes of the delivery and
// maintenance workflows inside one transaction, so a status mutation and
// its ledger entry commit or roll back together.
type WorkflowRepository struct {
	db *sqlx.DB
}

// NewWorkflowRepository constructs the repository.
func NewWorkflowRepository(db *sqlx.DB) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

func (r *WorkflowRepository) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin workflow tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit workflow tx: %w", err)
	}
	return nil
}

func applyCustodyTx(ctx context.Context, tx *sqlx.Tx, asset *models.Asset, from models.AssetStatus) error {
	asset.UpdatedAt = time.Now().UTC()
	const query = `UPDATE assets SET status = :status, holder_id = :holder_id, department_id = :department_id,
	location_id = :location_id, storage_bin_id = :storage_bin_id, updated_at = :updated_at
	WHERE id = :id AND status = :from_status`
	result, err := tx.NamedExecContext(ctx, query, map[string]interface{}{
		"id":             asset.ID,
		"status":         asset.Status,
		"holder_id":      asset.HolderID,
		"department_id":  asset.DepartmentID,
		"location_id":    asset.LocationID,
		"storage_bin_id": asset.StorageBinID,
		"updated_at":     asset.UpdatedAt,
		"from_status":    from,
	})
	if err != nil {
		return fmt.Errorf("update asset custody: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check custody update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func appendMovementTx(ctx context.Context, tx *sqlx.Tx, m *models.Movement) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.OccurredAt.IsZero() {
		m.OccurredAt = time.Now().UTC()
	}
	const query = `INSERT INTO movements (id, asset_id, kind, from_user_id, to_user_id, actor_id, note, occurred_at)
	VALUES (:id, :asset_id, :kind, :from_user_id, :to_user_id, :actor_id, :note, :occurred_at)`
	if _, err := tx.NamedExecContext(ctx, query, m); err != nil {
		return fmt.Errorf("append movement: %w", err)
	}
	return nil
}

func transitionRequestTx(ctx context.Context, tx *sqlx.Tx, id string, from, to models.MaintenanceStatus, extra map[string]interface{}) error {
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
	result, err := tx.NamedExecContext(ctx, query, params)
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

// MoveAsset applies a direct custody transition together with its ledger
// entry. The guarded update and the movement insert commit or roll back as
// one; a stale fromStatus surfaces as sql.ErrNoRows and nothing is written.
func (r *WorkflowRepository) MoveAsset(ctx context.Context, asset *models.Asset, from models.AssetStatus, movement *models.Movement) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := applyCustodyTx(ctx, tx, asset, from); err != nil {
			return err
		}
		return appendMovementTx(ctx, tx, movement)
	})
}

// LoanDeliveryTx groups the writes of a completed loan handover.
type LoanDeliveryTx struct {
	Loan      ConfirmDeliveryParams
	Asset     *models.Asset
	AssetFrom models.AssetStatus
	Movement  *models.Movement
}

// DeliverLoan marks the loan DELIVERED, rebinds asset custody and appends
// the ledger entry atomically. sql.ErrNoRows from either guard aborts all.
func (r *WorkflowRepository) DeliverLoan(ctx context.Context, p LoanDeliveryTx) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		query := fmt.Sprintf(`UPDATE loan_requests SET status = '%s', confirmer_id = :confirmer_id,
		delivered_at = :delivered_at, qr_confirmed = :qr_confirmed, delivery_note = :delivery_note
		WHERE id = :id AND status = '%s'`, models.LoanDelivered, models.LoanApproved)
		result, err := tx.NamedExecContext(ctx, query, map[string]interface{}{
			"id":            p.Loan.ID,
			"confirmer_id":  p.Loan.ConfirmerID,
			"delivered_at":  p.Loan.DeliveredAt,
			"qr_confirmed":  p.Loan.QRConfirmed,
			"delivery_note": p.Loan.Note,
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
		if err := applyCustodyTx(ctx, tx, p.Asset, p.AssetFrom); err != nil {
			return err
		}
		return appendMovementTx(ctx, tx, p.Movement)
	})
}

// MaintenanceStartTx groups the writes of an accepted maintenance request.
type MaintenanceStartTx struct {
	RequestID string
	Extra     map[string]interface{}
	Record    *models.MaintenanceRecord
	Asset     *models.Asset
	AssetFrom models.AssetStatus
	Movement  *models.Movement
}

// StartMaintenance opens the repair record, moves the request to
// IN_PROGRESS, pulls the asset into MAINTENANCE and appends the ledger
// entry atomically. Preventive records opened without a user report leave
// RequestID empty and skip the request transition.
func (r *WorkflowRepository) StartMaintenance(ctx context.Context, p MaintenanceStartTx) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		rec := p.Record
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if rec.Status == "" {
			rec.Status = models.RecordInProgress
		}
		if rec.StartedAt.IsZero() {
			rec.StartedAt = time.Now().UTC()
		}
		const insertRecord = `INSERT INTO maintenance_records
		(id, asset_id, technician_id, reason, type, status, started_at, expected_at)
		VALUES (:id, :asset_id, :technician_id, :reason, :type, :status, :started_at, :expected_at)`
		if _, err := tx.NamedExecContext(ctx, insertRecord, rec); err != nil {
			return fmt.Errorf("create maintenance record: %w", err)
		}

		if p.RequestID != "" {
			extra := map[string]interface{}{"record_id": rec.ID}
			for col, val := range p.Extra {
				extra[col] = val
			}
			if err := transitionRequestTx(ctx, tx, p.RequestID, models.MaintenancePending, models.MaintenanceInProgress, extra); err != nil {
				return err
			}
		}
		if err := applyCustodyTx(ctx, tx, p.Asset, p.AssetFrom); err != nil {
			return err
		}
		return appendMovementTx(ctx, tx, p.Movement)
	})
}

// MaintenanceCloseTx groups the writes of finished repair work.
type MaintenanceCloseTx struct {
	Record      CompleteRecordParams
	RequestID   string
	RequestFrom models.MaintenanceStatus
	RequestTo   models.MaintenanceStatus
	Extra       map[string]interface{}
	Asset       *models.Asset
	AssetFrom   models.AssetStatus
	Movement    *models.Movement
}

// CloseMaintenance completes the record and advances the request. Asset and
// movement writes are optional; when the repaired unit goes back to storage
// they happen here, when it awaits a handover they happen at delivery.
func (r *WorkflowRepository) CloseMaintenance(ctx context.Context, p MaintenanceCloseTx) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		query := fmt.Sprintf(`UPDATE maintenance_records SET status = '%s', completed_at = :completed_at,
		cost = :cost, completion_note = :completion_note, destination = :destination, destination_user_id = :destination_user_id
		WHERE id = :id AND status = '%s'`, models.RecordCompleted, models.RecordInProgress)
		result, err := tx.NamedExecContext(ctx, query, map[string]interface{}{
			"id":                  p.Record.ID,
			"completed_at":        p.Record.CompletedAt,
			"cost":                p.Record.Cost,
			"completion_note":     p.Record.CompletionNote,
			"destination":         p.Record.Destination,
			"destination_user_id": p.Record.DestinationUID,
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
		if p.RequestID != "" {
			if err := transitionRequestTx(ctx, tx, p.RequestID, p.RequestFrom, p.RequestTo, p.Extra); err != nil {
				return err
			}
		}
		if p.Asset != nil {
			if err := applyCustodyTx(ctx, tx, p.Asset, p.AssetFrom); err != nil {
				return err
			}
		}
		if p.Movement != nil {
			return appendMovementTx(ctx, tx, p.Movement)
		}
		return nil
	})
}

// MaintenanceHandoverTx groups the writes of returning a repaired asset.
type MaintenanceHandoverTx struct {
	RequestID   string
	RequestFrom models.MaintenanceStatus
	RequestTo   models.MaintenanceStatus
	Extra       map[string]interface{}
	Asset       *models.Asset
	AssetFrom   models.AssetStatus
	Movement    *models.Movement
}

// HandoverMaintenance advances the request and rebinds asset custody in one
// transaction. Asset and movement writes are skipped when custody already
// moved at completion time.
func (r *WorkflowRepository) HandoverMaintenance(ctx context.Context, p MaintenanceHandoverTx) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := transitionRequestTx(ctx, tx, p.RequestID, p.RequestFrom, p.RequestTo, p.Extra); err != nil {
			return err
		}
		if p.Asset != nil {
			if err := applyCustodyTx(ctx, tx, p.Asset, p.AssetFrom); err != nil {
				return err
			}
		}
		if p.Movement != nil {
			return appendMovementTx(ctx, tx, p.Movement)
		}
		return nil
	})
}

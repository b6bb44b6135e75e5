package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nbaparkdev/assettrack-ti/internal/models"
)

// QRLogRepository records QR credential usage events.
type QRLogRepository struct {
	db *sqlx.DB
}

// NewQRLogRepository constructs the repository.
func NewQRLogRepository(db *sqlx.DB) *QRLogRepository {
	return &QRLogRepository{db: db}
}

// Insert appends one usage event.
func (r *QRLogRepository) Insert(ctx context.Context, entry *models.QRUsageLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO qr_usage_logs (id, user_id, action, success, ip, user_agent, detail, created_at)
	VALUES (:id, :user_id, :action, :success, :ip, :user_agent, :detail, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("insert qr usage log: %w", err)
	}
	return nil
}

// ListByUser returns a user's usage events, newest first.
func (r *QRLogRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.QRUsageLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT id, user_id, action, success, ip, user_agent, detail, created_at
	FROM qr_usage_logs WHERE user_id = $1 ORDER BY created_at DESC LIMIT %d`, limit)
	var entries []models.QRUsageLog
	if err := r.db.SelectContext(ctx, &entries, query, userID); err != nil {
		return nil, fmt.Errorf("list qr usage logs: %w", err)
	}
	return entries, nil
}

package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nbaparkdev/assettrack-ti/internal/models"
)

const movementColumns = `id, asset_id, kind, from_user_id, to_user_id, actor_id, note, occurred_at`

// MovementRepository reads the custody ledger. All writes go through
// WorkflowRepository so an entry always commits with the transition that
// caused it; no update or delete statement exists anywhere.
type MovementRepository struct {
	db *sqlx.DB
}

// NewMovementRepository constructs the repository.
func NewMovementRepository(db *sqlx.DB) *MovementRepository {
	return &MovementRepository{db: db}
}

// List returns ledger entries matching the filter, newest first.
func (r *MovementRepository) List(ctx context.Context, filter models.MovementFilter) ([]models.Movement, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 5)
	builder.WriteString(`SELECT ` + movementColumns + ` FROM movements`)

	conditions := make([]string, 0, 4)
	if filter.AssetID != "" {
		args = append(args, filter.AssetID)
		conditions = append(conditions, fmt.Sprintf("asset_id = $%d", len(args)))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		idx := len(args)
		conditions = append(conditions, fmt.Sprintf("(from_user_id = $%d OR to_user_id = $%d OR actor_id = $%d)", idx, idx, idx))
	}
	if len(filter.Kind) > 0 {
		placeholders := make([]string, len(filter.Kind))
		for i, kind := range filter.Kind {
			args = append(args, kind)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("kind IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("occurred_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("occurred_at < $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY occurred_at DESC")

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	} else if limit > 10000 {
		limit = 10000
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var movements []models.Movement
	if err := r.db.SelectContext(ctx, &movements, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	return movements, nil
}

// CountSince returns the number of entries recorded since the given moment.
func (r *MovementRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM movements WHERE occurred_at >= $1`
	var total int
	if err := r.db.GetContext(ctx, &total, query, since); err != nil {
		return 0, fmt.Errorf("count movements: %w", err)
	}
	return total, nil
}

package models

import "time"

// MovementKind classifies an entry in the custody ledger.
type MovementKind string

const (
	MovementRegistration MovementKind = "REGISTRATION"
	MovementLoan         MovementKind = "LOAN"
	MovementReturn       MovementKind = "RETURN"
	MovementTransfer     MovementKind = "TRANSFER"
	MovementMaintenance  MovementKind = "MAINTENANCE"
	MovementWriteOff     MovementKind = "WRITE_OFF"
)

// Movement is one append-only ledger row. Rows are never updated or deleted;
// corrections are made by appending a compensating entry.
type Movement struct {
	ID      string       `db:"id" json:"id"`
	AssetID string       `db:"asset_id" json:"asset_id"`
	Kind    MovementKind `db:"kind" json:"kind"`

	FromUserID *string `db:"from_user_id" json:"from_user_id,omitempty"`
	ToUserID   *string `db:"to_user_id" json:"to_user_id,omitempty"`
	ActorID    string  `db:"actor_id" json:"actor_id"`

	Note       *string   `db:"note" json:"note,omitempty"`
	OccurredAt time.Time `db:"occurred_at" json:"occurred_at"`
}

// MovementFilter constrains ledger listing and report queries.
type MovementFilter struct {
	AssetID string
	UserID  string
	Kind    []MovementKind
	From    *time.Time
	To      *time.Time
	Limit   int
	Offset  int
}

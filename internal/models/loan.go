package models

import "time"

// LoanStatus captures workflow states for loan requests.
type LoanStatus string

const (
	LoanPending   LoanStatus = "PENDING"
	LoanApproved  LoanStatus = "APPROVED"
	LoanRejected  LoanStatus = "REJECTED"
	LoanDelivered LoanStatus = "DELIVERED"
	LoanCancelled LoanStatus = "CANCELLED"
)

// Terminal reports whether the loan request accepts no further transition.
func (s LoanStatus) Terminal() bool {
	switch s {
	case LoanRejected, LoanDelivered, LoanCancelled:
		return true
	default:
		return false
	}
}

// LoanRequest tracks a user's request for equipment from submission through
// approval and physical delivery. The asset reference is optional at creation:
// a request may describe a need and have an asset assigned later by staff.
type LoanRequest struct {
	ID          string     `db:"id" json:"id"`
	RequesterID string     `db:"requester_id" json:"requester_id"`
	AssetID     *string    `db:"asset_id" json:"asset_id,omitempty"`
	Reason      string     `db:"reason" json:"reason"`
	Status      LoanStatus `db:"status" json:"status"`
	RequestedAt time.Time  `db:"requested_at" json:"requested_at"`

	ApproverID     *string    `db:"approver_id" json:"approver_id,omitempty"`
	DecisionNote   *string    `db:"decision_note" json:"decision_note,omitempty"`
	DecidedAt      *time.Time `db:"decided_at" json:"decided_at,omitempty"`
	ExpectedReturn *time.Time `db:"expected_return" json:"expected_return,omitempty"`

	// Delivery confirmation. QRConfirmed distinguishes a scan of the
	// requester's QR badge from a manual attestation by a manager/admin.
	DeliveredAt  *time.Time `db:"delivered_at" json:"delivered_at,omitempty"`
	ConfirmerID  *string    `db:"confirmer_id" json:"confirmer_id,omitempty"`
	QRConfirmed  bool       `db:"qr_confirmed" json:"qr_confirmed"`
	DeliveryNote *string    `db:"delivery_note" json:"delivery_note,omitempty"`
}

// LoanFilter constrains loan request listing queries.
type LoanFilter struct {
	Status      []LoanStatus
	RequesterID string
	AssetID     string
	Limit       int
	Offset      int
}

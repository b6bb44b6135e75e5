package dto

import (
	"time"

	"github.com/nbaparkdev/assettrack-ti/internal/models"
)

// CreateLoanRequest payload for requesting equipment. AssetID is optional;
// a request without one asks staff to pick a suitable unit.
type CreateLoanRequest struct {
	AssetID        *string    `json:"asset_id,omitempty" validate:"omitempty,uuid"`
	Reason         string     `json:"reason" validate:"required,min=5,max=500"`
	ExpectedReturn *time.Time `json:"expected_return,omitempty"`
}

// DecideLoanRequest captures an approver's decision. A rejection must say why.
type DecideLoanRequest struct {
	Approve bool    `json:"approve"`
	Note    *string `json:"note,omitempty" validate:"omitempty,max=500"`
}

// AssignAssetRequest binds a concrete asset to an open loan request.
type AssignAssetRequest struct {
	AssetID string `json:"asset_id" validate:"required,uuid"`
}

// ConfirmLoanDeliveryRequest completes the handover. Identity is proven
// either by the requester's QR token or by a staff override.
type ConfirmLoanDeliveryRequest struct {
	QRToken *string `json:"qr_token,omitempty"`
	Note    *string `json:"note,omitempty" validate:"omitempty,max=500"`
}

// LoanQuery mirrors supported listing filters.
type LoanQuery struct {
	Status      []models.LoanStatus
	RequesterID string
	AssetID     string
	Page        int
	PerPage     int
}

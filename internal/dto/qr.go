package dto

import "github.com/nbaparkdev/assettrack-ti/internal/models"

// SetupPINRequest sets the PIN for a user who does not have one yet.
type SetupPINRequest struct {
	PIN        string `json:"pin" validate:"required,numeric,min=4,max=6"`
	PINConfirm string `json:"pin_confirm" validate:"required,eqfield=PIN"`
}

// ChangePINRequest rotates an existing PIN.
type ChangePINRequest struct {
	CurrentPIN string `json:"current_pin" validate:"required,numeric,min=4,max=6"`
	NewPIN     string `json:"new_pin" validate:"required,numeric,min=4,max=6"`
	PINConfirm string `json:"pin_confirm" validate:"required,eqfield=NewPIN"`
}

// QRBadgeResponse carries the rendered badge image.
type QRBadgeResponse struct {
	PNGBase64 string `json:"png_base64"`
	ExpiresAt string `json:"expires_at"`
}

// QRProfileResponse is the public slice of a user profile shown to the
// person scanning a badge.
type QRProfileResponse struct {
	FullName   string `json:"full_name"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
	HasPIN     bool   `json:"has_pin"`
}

// PendingDeliveriesResponse lists the handovers waiting on the badge owner,
// shown to staff who scan a badge at the counter.
type PendingDeliveriesResponse struct {
	Owner       QRProfileResponse           `json:"owner"`
	Loans       []models.LoanRequest        `json:"loans"`
	Maintenance []models.MaintenanceRequest `json:"maintenance"`
}

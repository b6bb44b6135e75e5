package dto

import (
	"time"

	"github.com/nbaparkdev/assettrack-ti/internal/models"
)

// CreateMaintenanceRequest payload for reporting a problem with an asset.
type CreateMaintenanceRequest struct {
	AssetID     string                     `json:"asset_id" validate:"required,uuid"`
	Description string                     `json:"description" validate:"required,min=10,max=1000"`
	Priority    models.MaintenancePriority `json:"priority" validate:"required,oneof=LOW MEDIUM HIGH CRITICAL"`
}

// AcceptMaintenanceRequest starts repair work on a reported problem.
type AcceptMaintenanceRequest struct {
	Type       models.MaintenanceType `json:"type" validate:"required,oneof=PREVENTIVE CORRECTIVE UPGRADE OTHER"`
	ExpectedAt *time.Time             `json:"expected_at,omitempty"`
	Note       *string                `json:"note,omitempty" validate:"omitempty,max=500"`
}

// RejectMaintenanceRequest declines a reported problem. The justification
// is mandatory and must carry real content.
type RejectMaintenanceRequest struct {
	Justification string `json:"justification" validate:"required,min=10,max=500"`
}

// CompleteMaintenanceRequest closes the technical work on a repair.
type CompleteMaintenanceRequest struct {
	Destination    models.MaintenanceDestination `json:"destination" validate:"required,oneof=STORAGE USER"`
	StorageBinID   *string                       `json:"storage_bin_id,omitempty" validate:"omitempty,uuid"`
	Cost           *float64                      `json:"cost,omitempty" validate:"omitempty,gte=0"`
	CompletionNote *string                       `json:"completion_note,omitempty" validate:"omitempty,max=1000"`
}

// OpenMaintenanceRecordRequest opens a repair episode directly, without a
// user report. Used for scheduled preventive work.
type OpenMaintenanceRecordRequest struct {
	AssetID    string                 `json:"asset_id" validate:"required,uuid"`
	Reason     string                 `json:"reason" validate:"required,min=5,max=500"`
	Type       models.MaintenanceType `json:"type" validate:"required,oneof=PREVENTIVE CORRECTIVE UPGRADE OTHER"`
	ExpectedAt *time.Time             `json:"expected_at,omitempty"`
}

// ConfirmMaintenanceDeliveryRequest records the staff handover of a repaired
// asset back to its owner.
type ConfirmMaintenanceDeliveryRequest struct {
	QRToken *string `json:"qr_token,omitempty"`
	Note    *string `json:"note,omitempty" validate:"omitempty,max=500"`
}

// MaintenanceQuery mirrors supported listing filters.
type MaintenanceQuery struct {
	Status      []models.MaintenanceStatus
	RequesterID string
	AssigneeID  string
	AssetID     string
	Page        int
	PerPage     int
}

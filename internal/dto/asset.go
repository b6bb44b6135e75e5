package dto

import (
	"time"

	"github.com/nbaparkdev/assettrack-ti/internal/models"
)

// CreateAssetRequest payload for registering a new asset.
type CreateAssetRequest struct {
	Name            string     `json:"name" validate:"required,min=2,max=120"`
	SerialNumber    string     `json:"serial_number" validate:"required,min=2,max=64"`
	Model           *string    `json:"model,omitempty" validate:"omitempty,max=120"`
	Description     *string    `json:"description,omitempty" validate:"omitempty,max=1000"`
	Value           *float64   `json:"value,omitempty" validate:"omitempty,gte=0"`
	AcquisitionDate *time.Time `json:"acquisition_date,omitempty"`
	DepartmentID    *string    `json:"department_id,omitempty" validate:"omitempty,uuid"`
	LocationID      *string    `json:"location_id,omitempty" validate:"omitempty,uuid"`
	StorageBinID    *string    `json:"storage_bin_id,omitempty" validate:"omitempty,uuid"`
	PhotoPath       *string    `json:"photo_path,omitempty" validate:"omitempty,max=255"`
}

// UpdateAssetRequest payload for editing descriptive fields. Custody and
// status fields are never writable here; they move only through workflows.
type UpdateAssetRequest struct {
	Name            *string    `json:"name,omitempty" validate:"omitempty,min=2,max=120"`
	Model           *string    `json:"model,omitempty" validate:"omitempty,max=120"`
	Description     *string    `json:"description,omitempty" validate:"omitempty,max=1000"`
	Value           *float64   `json:"value,omitempty" validate:"omitempty,gte=0"`
	AcquisitionDate *time.Time `json:"acquisition_date,omitempty"`
	DepartmentID    *string    `json:"department_id,omitempty" validate:"omitempty,uuid"`
	LocationID      *string    `json:"location_id,omitempty" validate:"omitempty,uuid"`
	StorageBinID    *string    `json:"storage_bin_id,omitempty" validate:"omitempty,uuid"`
	PhotoPath       *string    `json:"photo_path,omitempty" validate:"omitempty,max=255"`
}

// TransferAssetRequest asks to move an asset to another user. The transfer
// opens a pending loan request that still needs staff approval.
type TransferAssetRequest struct {
	ToUserID string  `json:"to_user_id" validate:"required,uuid"`
	Reason   string  `json:"reason" validate:"required,min=5,max=500"`
	Note     *string `json:"note,omitempty" validate:"omitempty,max=500"`
}

// WriteOffAssetRequest retires an asset permanently.
type WriteOffAssetRequest struct {
	Reason string `json:"reason" validate:"required,min=10,max=500"`
}

// StoreAssetRequest moves an idle asset into a storage bin.
type StoreAssetRequest struct {
	StorageBinID string  `json:"storage_bin_id" validate:"required,uuid"`
	Note         *string `json:"note,omitempty" validate:"omitempty,max=500"`
}

// AssetQuery mirrors supported listing filters.
type AssetQuery struct {
	Status       []models.AssetStatus
	HolderID     string
	DepartmentID string
	LocationID   string
	Search       string
	Page         int
	PerPage      int
}

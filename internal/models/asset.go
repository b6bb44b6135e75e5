package models

import "time"

// AssetStatus captures where an asset sits in its custody lifecycle.
type AssetStatus string

const (
	AssetAvailable   AssetStatus = "AVAILABLE"
	AssetInUse       AssetStatus = "IN_USE"
	AssetMaintenance AssetStatus = "MAINTENANCE"
	AssetStored      AssetStatus = "STORED"
	AssetWrittenOff  AssetStatus = "WRITTEN_OFF"
)

// Terminal reports whether no further custody transition is allowed.
func (s AssetStatus) Terminal() bool {
	return s == AssetWrittenOff
}

// Asset represents a tracked piece of equipment. Exactly one of the custody
// pointers (holder, department, location, storage bin) is expected to be set
// at a time; all may be unset while the asset is in transit.
type Asset struct {
	ID              string      `db:"id" json:"id"`
	Name            string      `db:"name" json:"name"`
	SerialNumber    string      `db:"serial_number" json:"serial_number"`
	Model           *string     `db:"model" json:"model,omitempty"`
	Description     *string     `db:"description" json:"description,omitempty"`
	Value           *float64    `db:"value" json:"value,omitempty"`
	AcquisitionDate *time.Time  `db:"acquisition_date" json:"acquisition_date,omitempty"`
	Status          AssetStatus `db:"status" json:"status"`
	PhotoPath       *string     `db:"photo_path" json:"photo_path,omitempty"`

	HolderID     *string `db:"holder_id" json:"holder_id,omitempty"`
	DepartmentID *string `db:"department_id" json:"department_id,omitempty"`
	LocationID   *string `db:"location_id" json:"location_id,omitempty"`
	StorageBinID *string `db:"storage_bin_id" json:"storage_bin_id,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ClearCustody unsets every custody pointer on the asset.
func (a *Asset) ClearCustody() {
	a.HolderID = nil
	a.DepartmentID = nil
	a.LocationID = nil
	a.StorageBinID = nil
}

// AssetFilter constrains asset listing queries.
type AssetFilter struct {
	Status   []AssetStatus
	HolderID string
	Search   string
	Page     int
	PageSize int
}

package dto

import "time"

// DashboardResponse captures the aggregated inventory dashboard payload.
type DashboardResponse struct {
	Assets      AssetCountsSection  `json:"assets"`
	Loans       WorkflowSection     `json:"loans"`
	Maintenance WorkflowSection     `json:"maintenance"`
	Movements   MovementLastSection `json:"movements"`
}

// AssetCountsSection summarises the fleet by lifecycle status.
type AssetCountsSection struct {
	Total       int `json:"total"`
	Available   int `json:"available"`
	InUse       int `json:"in_use"`
	Maintenance int `json:"maintenance"`
	Stored      int `json:"stored"`
	WrittenOff  int `json:"written_off"`
}

// WorkflowSection summarises open workflow queues.
type WorkflowSection struct {
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Total      int `json:"total"`
}

// MovementLastSection shows recent ledger activity.
type MovementLastSection struct {
	Last7Days  int `json:"last_7_days"`
	Last30Days int `json:"last_30_days"`
}

// MovementReportRequest captures export filters for the ledger report.
type MovementReportRequest struct {
	AssetID string     `json:"asset_id,omitempty" validate:"omitempty,uuid"`
	UserID  string     `json:"user_id,omitempty" validate:"omitempty,uuid"`
	Kind    []string   `json:"kind,omitempty"`
	From    *time.Time `json:"from,omitempty"`
	To      *time.Time `json:"to,omitempty"`
	Format  string     `json:"format" validate:"required,oneof=csv pdf json"`
}

// MaintenanceReportRequest captures export filters for the maintenance report.
type MaintenanceReportRequest struct {
	Status  []string   `json:"status,omitempty"`
	AssetID string     `json:"asset_id,omitempty" validate:"omitempty,uuid"`
	From    *time.Time `json:"from,omitempty"`
	To      *time.Time `json:"to,omitempty"`
	Format  string     `json:"format" validate:"required,oneof=csv pdf json"`
}

package models

import "time"

// MaintenancePriority ranks how urgent a reported problem is.
type MaintenancePriority string

const (
	PriorityLow      MaintenancePriority = "LOW"
	PriorityMedium   MaintenancePriority = "MEDIUM"
	PriorityHigh     MaintenancePriority = "HIGH"
	PriorityCritical MaintenancePriority = "CRITICAL"
)

// MaintenanceStatus captures workflow states for maintenance requests.
// The tail of the flow has two legs: a technician hands the repaired asset
// over (AWAITING_DELIVERY -> DELIVERED) and the requester then acknowledges
// receipt (-> COMPLETED), or the requester confirms directly from
// AWAITING_DELIVERY when no staff handover is recorded.
type MaintenanceStatus string

const (
	MaintenancePending          MaintenanceStatus = "PENDING"
	MaintenanceInProgress       MaintenanceStatus = "IN_PROGRESS"
	MaintenanceAwaitingDelivery MaintenanceStatus = "AWAITING_DELIVERY"
	MaintenanceDelivered        MaintenanceStatus = "DELIVERED"
	MaintenanceCompleted        MaintenanceStatus = "COMPLETED"
	MaintenanceRejected         MaintenanceStatus = "REJECTED"
)

// MaintenanceRequest is a user's report that an asset needs repair, tracked
// through technician acceptance, completion, and return-to-owner confirmation.
type MaintenanceRequest struct {
	ID          string              `db:"id" json:"id"`
	RequesterID string              `db:"requester_id" json:"requester_id"`
	AssetID     string              `db:"asset_id" json:"asset_id"`
	Description string              `db:"description" json:"description"`
	Priority    MaintenancePriority `db:"priority" json:"priority"`
	Status      MaintenanceStatus   `db:"status" json:"status"`
	RequestedAt time.Time           `db:"requested_at" json:"requested_at"`

	AssigneeID   *string    `db:"assignee_id" json:"assignee_id,omitempty"`
	ResponseNote *string    `db:"response_note" json:"response_note,omitempty"`
	RespondedAt  *time.Time `db:"responded_at" json:"responded_at,omitempty"`

	TechCompletedAt *time.Time `db:"tech_completed_at" json:"tech_completed_at,omitempty"`
	DeliveredAt     *time.Time `db:"delivered_at" json:"delivered_at,omitempty"`

	RecordID *string `db:"record_id" json:"record_id,omitempty"`
}

// MaintenanceType classifies a repair episode.
type MaintenanceType string

const (
	MaintenancePreventive MaintenanceType = "PREVENTIVE"
	MaintenanceCorrective MaintenanceType = "CORRECTIVE"
	MaintenanceUpgrade    MaintenanceType = "UPGRADE"
	MaintenanceOther      MaintenanceType = "OTHER"
)

// RecordStatus captures the lifecycle of a maintenance record.
type RecordStatus string

const (
	RecordInProgress RecordStatus = "IN_PROGRESS"
	RecordCompleted  RecordStatus = "COMPLETED"
	RecordCancelled  RecordStatus = "CANCELLED"
)

// MaintenanceDestination says where the asset goes after repair.
type MaintenanceDestination string

const (
	DestinationStorage MaintenanceDestination = "STORAGE"
	DestinationUser    MaintenanceDestination = "USER"
)

// MaintenanceRecord is the technical record of one repair episode. A request
// maps to at most one active record; staff may also open records directly
// for preventive work without a request.
type MaintenanceRecord struct {
	ID           string          `db:"id" json:"id"`
	AssetID      string          `db:"asset_id" json:"asset_id"`
	TechnicianID string          `db:"technician_id" json:"technician_id"`
	Reason       string          `db:"reason" json:"reason"`
	Type         MaintenanceType `db:"type" json:"type"`
	Status       RecordStatus    `db:"status" json:"status"`

	StartedAt   time.Time  `db:"started_at" json:"started_at"`
	ExpectedAt  *time.Time `db:"expected_at" json:"expected_at,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`

	Cost           *float64                `db:"cost" json:"cost,omitempty"`
	CompletionNote *string                 `db:"completion_note" json:"completion_note,omitempty"`
	Destination    *MaintenanceDestination `db:"destination" json:"destination,omitempty"`
	DestinationUID *string                 `db:"destination_user_id" json:"destination_user_id,omitempty"`
}

// MaintenanceFilter constrains maintenance listing and report queries.
type MaintenanceFilter struct {
	Status      []MaintenanceStatus
	RequesterID string
	AssigneeID  string
	AssetID     string
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

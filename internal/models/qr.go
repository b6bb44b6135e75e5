package models

import "time"

// QRAction names an event recorded in the QR usage log.
type QRAction string

const (
	QRActionLogin           QRAction = "LOGIN"
	QRActionLoginFailed     QRAction = "LOGIN_FAILED"
	QRActionRegenerate      QRAction = "REGENERATE"
	QRActionPINSet          QRAction = "PIN_SET"
	QRActionPINChanged      QRAction = "PIN_CHANGED"
	QRActionProfileView     QRAction = "PROFILE_VIEW"
	QRActionDeliveryConfirm QRAction = "DELIVERY_CONFIRM"
)

// QRUsageLog records one use (or misuse) of a user's QR credential.
type QRUsageLog struct {
	ID        string    `db:"id" json:"id"`
	UserID    *string   `db:"user_id" json:"user_id,omitempty"`
	Action    QRAction  `db:"action" json:"action"`
	Success   bool      `db:"success" json:"success"`
	IP        *string   `db:"ip" json:"ip,omitempty"`
	UserAgent *string   `db:"user_agent" json:"user_agent,omitempty"`
	Detail    *string   `db:"detail" json:"detail,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

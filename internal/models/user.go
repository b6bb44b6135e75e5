package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin      UserRole = "ADMIN"
	RoleManager    UserRole = "MANAGER"
	RoleTechnician UserRole = "TECHNICIAN"
	RoleUser       UserRole = "USER"
)

// StaffRoles lists the roles allowed to operate on equipment on behalf of
// other users (accept maintenance, confirm deliveries, register returns).
var StaffRoles = []UserRole{RoleAdmin, RoleManager, RoleTechnician}

// IsStaff reports whether the role belongs to the technical staff.
func (r UserRole) IsStaff() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleTechnician:
		return true
	default:
		return false
	}
}

// CanApprove reports whether the role may approve or reject loan requests,
// confirm deliveries without a QR scan, and write assets off.
func (r UserRole) CanApprove() bool {
	return r == RoleAdmin || r == RoleManager
}

// User represents an application user stored in the users table. Accounts
// start inactive and require admin approval before login succeeds.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	BadgeNumber  *string    `db:"badge_number" json:"badge_number,omitempty"`
	JobTitle     *string    `db:"job_title" json:"job_title,omitempty"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	DepartmentID *string    `db:"department_id" json:"department_id,omitempty"`
	AvatarURL    *string    `db:"avatar_url" json:"avatar_url,omitempty"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`

	// QR identity. At most one live token per user; the creation timestamp
	// drives use-time expiry checks. The PIN hash is independent of the
	// account password.
	QRToken          *string    `db:"qr_token" json:"-"`
	QRTokenCreatedAt *time.Time `db:"qr_token_created_at" json:"-"`
	PINHash          *string    `db:"pin_hash" json:"-"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// HasPIN reports whether the user configured a PIN for QR login.
func (u *User) HasPIN() bool {
	return u != nil && u.PINHash != nil && *u.PINHash != ""
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

package dto

import "github.com/nbaparkdev/assettrack-ti/internal/models"

// CreateUserRequest payload for provisioning a new account.
type CreateUserRequest struct {
	Email        string          `json:"email" validate:"required,email"`
	FullName     string          `json:"full_name" validate:"required,min=2,max=120"`
	Password     string          `json:"password" validate:"required,min=6"`
	Role         models.UserRole `json:"role" validate:"required,oneof=ADMIN MANAGER TECHNICIAN USER"`
	DepartmentID *string         `json:"department_id,omitempty" validate:"omitempty,uuid"`
}

// RegisterRequest payload for self-service signup. The account starts
// inactive and always carries the USER role.
type RegisterRequest struct {
	Email        string  `json:"email" validate:"required,email"`
	FullName     string  `json:"full_name" validate:"required,min=2,max=120"`
	Password     string  `json:"password" validate:"required,min=6"`
	DepartmentID *string `json:"department_id,omitempty" validate:"omitempty,uuid"`
}

// UpdateUserRequest payload for editing an account.
type UpdateUserRequest struct {
	FullName     *string          `json:"full_name,omitempty" validate:"omitempty,min=2,max=120"`
	Role         *models.UserRole `json:"role,omitempty" validate:"omitempty,oneof=ADMIN MANAGER TECHNICIAN USER"`
	DepartmentID *string          `json:"department_id,omitempty" validate:"omitempty,uuid"`
	Active       *bool            `json:"active,omitempty"`
}

// UserQuery mirrors supported listing filters.
type UserQuery struct {
	Role      *models.UserRole
	Active    *bool
	Search    string
	Page      int
	PerPage   int
	SortBy    string
	SortOrder string
}

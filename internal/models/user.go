package models

import "time"

// UserRole represents the staff roles used for access control.
type UserRole string

const (
	RoleCoordinator UserRole = "coordinador"
	RoleAdmin       UserRole = "admin"
	RoleTeacher     UserRole = "profesor"
	RoleDoorkeeper  UserRole = "portero"
)

// Valid returns true for known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleCoordinator, RoleAdmin, RoleTeacher, RoleDoorkeeper:
		return true
	default:
		return false
	}
}

// User is a staff account.
type User struct {
	ID             string     `db:"id" json:"id"`
	DocumentNumber string     `db:"document_number" json:"documentNumber"`
	PasswordHash   string     `db:"password_hash" json:"-"`
	FullName       string     `db:"full_name" json:"fullName"`
	Role           UserRole   `db:"role" json:"role"`
	FacilityID     *string    `db:"facility_id" json:"facilityId,omitempty"`
	Active         bool       `db:"active" json:"active"`
	LastLogin      *time.Time `db:"last_login" json:"lastLogin,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

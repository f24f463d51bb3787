package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds staff credentials.
type LoginRequest struct {
	DocumentNumber string `json:"documentNumber" validate:"required,document_number"`
	Password       string `json:"password" validate:"required"`
}

// LoginResponse returns the issued access token and user info.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID         string   `json:"id"`
	FullName   string   `json:"full_name"`
	Role       UserRole `json:"role"`
	FacilityID *string  `json:"facility_id,omitempty"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID     string   `json:"user_id"`
	Role       UserRole `json:"role"`
	FacilityID string   `json:"facility_id,omitempty"`
	FullName   string   `json:"full_name"`
	jwt.RegisteredClaims
}

// LogIdentity exposes the caller fields attached to request logs.
func (c *JWTClaims) LogIdentity() (userID, role, facilityID string) {
	if c == nil {
		return "", "", ""
	}
	return c.UserID, string(c.Role), c.FacilityID
}

// IsCoordinator reports whether the caller may act across facilities.
func (c *JWTClaims) IsCoordinator() bool {
	return c != nil && c.Role == RoleCoordinator
}

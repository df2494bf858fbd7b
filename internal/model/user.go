package model

import "time"

// Staff roles stored in users.role.
const (
	RoleAdmin = "ADMIN"
	RoleStaff = "STAFF"
)

// User is a staff account allowed to use the dashboard API.
//
// Fields:
//  PasswordHash – bcrypt hash.
//  Role         – ADMIN or STAFF.
//  IsActive     – inactive accounts cannot log in.
type User struct {
	ID           uint64
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RefreshToken models a row of `refresh_tokens`. Only the SHA-256 of the
// token value is stored.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

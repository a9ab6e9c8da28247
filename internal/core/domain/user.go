package domain

import "time"

// UserType distinguishes the account tables a principal lives in.
type UserType string

const (
	UserTypeSuperadmin UserType = "superadmin"
	UserTypeAdmin      UserType = "admin"
	UserTypeUser       UserType = "user"
)

// AdminAccount is a row of the admins collection.
type AdminAccount struct {
	ID           int64     `json:"id"`
	TenantID     int64     `json:"tenant_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// SuperAdminAccount is a row of the super_admins collection.
type SuperAdminAccount struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserAccount is a tenant end user.
type UserAccount struct {
	ID        int64     `json:"id"`
	TenantID  int64     `json:"tenant_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// RememberToken is a long-lived login credential. Only the sha256 hash of the
// raw cookie value is stored.
type RememberToken struct {
	TokenHash string
	UserType  UserType
	OwnerID   int64
	TenantID  int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the token can no longer restore a session.
func (t RememberToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Claim names of API bearer tokens.
const (
	ClaimSubject  = "sub"
	ClaimUserType = "typ"
	ClaimTenant   = "tid"
	ClaimRole     = "role"
)

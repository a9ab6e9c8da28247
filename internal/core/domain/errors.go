package domain

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrTenantNotFound     = errors.New("tenant not found")
	ErrTenantInactive     = errors.New("tenant inactive")
	ErrSessionNotFound    = errors.New("session not found")
	ErrTokenNotFound      = errors.New("remember token not found")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrSuperadminRequired = errors.New("superadmin required")
	ErrInvalidIP          = errors.New("invalid ip address")
	ErrBlacklistNotFound  = errors.New("blacklist entry not found")
)

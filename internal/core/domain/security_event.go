package domain

import "time"

// SecurityEventType classifies audit log entries.
type SecurityEventType string

const (
	EventTenantMismatch   SecurityEventType = "tenant_mismatch"
	EventAccessDenied     SecurityEventType = "access_denied"
	EventRememberRestored SecurityEventType = "remember_restored"
	EventRememberFailed   SecurityEventType = "remember_failed"
	EventCSRFFailure      SecurityEventType = "csrf_failure"
	EventRateLimited      SecurityEventType = "rate_limited"
	EventBlacklisted      SecurityEventType = "blacklisted"
	EventWAFBlock         SecurityEventType = "waf_block"
	EventPermissionGate   SecurityEventType = "permission_gate_denied"
	EventPermissionDenied SecurityEventType = "permission_denied"
	EventLoginFailed      SecurityEventType = "login_failed"
	EventLoginSucceeded   SecurityEventType = "login_succeeded"
)

// Severity of a security event.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// SecurityEvent is one entry of the security audit log.
type SecurityEvent struct {
	Type       SecurityEventType `json:"type"`
	Severity   Severity          `json:"severity"`
	IP         string            `json:"ip,omitempty"`
	Path       string            `json:"path,omitempty"`
	UserID     int64             `json:"user_id,omitempty"`
	UserType   UserType          `json:"user_type,omitempty"`
	TenantID   int64             `json:"tenant_id,omitempty"`
	Detail     string            `json:"detail,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

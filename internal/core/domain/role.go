package domain

import "strings"

// Permissions checked by the back office.
const (
	PermReportsView            = "reports.view"
	PermReportsExport          = "reports.export"
	PermSecurityBlacklistView  = "security.blacklist.view"
	PermSecurityBlacklistWrite = "security.blacklist.manage"
)

// RoleAuditor is held by restricted superadmins allowed to read security
// reports across tenants.
const RoleAuditor = "auditor"

// PermissionWildcard grants every permission.
const PermissionWildcard = "*"

// Role is a named permission set, scoped to a tenant (TenantID 0 is global).
type Role struct {
	Name        string   `json:"name"`
	TenantID    int64    `json:"tenant_id"`
	UserType    UserType `json:"user_type"`
	Permissions []string `json:"permissions"`
}

// RoleAssignment binds a principal to a role within a tenant.
type RoleAssignment struct {
	UserID   int64    `json:"user_id"`
	UserType UserType `json:"user_type"`
	TenantID int64    `json:"tenant_id"`
	Role     string   `json:"role"`
}

// Grants reports whether the role carries permission. "*" matches
// everything and "reports.*" matches any "reports." permission.
func (r Role) Grants(permission string) bool {
	for _, p := range r.Permissions {
		switch {
		case p == PermissionWildcard, p == permission:
			return true
		case strings.HasSuffix(p, ".*") && strings.HasPrefix(permission, strings.TrimSuffix(p, "*")):
			return true
		}
	}
	return false
}

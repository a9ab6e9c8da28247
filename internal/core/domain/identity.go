package domain

// IdentityKind enumerates the identity classes a request can carry.
type IdentityKind int

const (
	KindAnonymous IdentityKind = iota
	KindUser
	KindAdmin
	KindSuperadmin
)

func (k IdentityKind) String() string {
	switch k {
	case KindSuperadmin:
		return "superadmin"
	case KindAdmin:
		return "admin"
	case KindUser:
		return "user"
	default:
		return "anonymous"
	}
}

// RoleSuperadmin is the only superadmin role granted unconditional access.
const RoleSuperadmin = "superadmin"

// Identity is the closed set of request identities. Only the four variants
// declared in this file implement it.
type Identity interface {
	Kind() IdentityKind
	isIdentity()
}

// Superadmin operates the platform panel across all tenants.
type Superadmin struct {
	ID   int64
	Role string
}

// Admin is a tenant-scoped administrator. TenantID 0 means no tenant
// (single-tenant installs).
type Admin struct {
	ID       int64
	TenantID int64
}

// User is a tenant-scoped end user. Users never reach admin-panel routes.
type User struct {
	ID       int64
	TenantID int64
}

// Anonymous carries no identity.
type Anonymous struct{}

func (Superadmin) Kind() IdentityKind { return KindSuperadmin }
func (Admin) Kind() IdentityKind      { return KindAdmin }
func (User) Kind() IdentityKind       { return KindUser }
func (Anonymous) Kind() IdentityKind  { return KindAnonymous }

func (Superadmin) isIdentity() {}
func (Admin) isIdentity()      {}
func (User) isIdentity()       {}
func (Anonymous) isIdentity()  {}

// FullAccess reports whether the superadmin bypasses every role and
// permission check.
func (s Superadmin) FullAccess() bool {
	return s.Role == RoleSuperadmin
}

// Subject returns the (id, tenant, user type) triple used by the permission
// manager. ok is false for identities that cannot hold permissions.
func Subject(id Identity) (userID, tenantID int64, userType UserType, ok bool) {
	switch v := id.(type) {
	case Admin:
		return v.ID, v.TenantID, UserTypeAdmin, v.ID > 0
	case User:
		return v.ID, v.TenantID, UserTypeUser, v.ID > 0
	case Superadmin:
		return v.ID, 0, UserTypeSuperadmin, v.ID > 0
	default:
		return 0, 0, "", false
	}
}

package ports

import (
	"context"

	"github.com/caimari/musedock-sub009/internal/core/domain"
)

// Outcome is the verdict of identity resolution.
type Outcome int

const (
	OutcomeAnonymous Outcome = iota
	OutcomeAuthenticated
	// OutcomeTenantMismatch means the admin session disagrees with the
	// backing record or the active tenant. The session must be destroyed.
	OutcomeTenantMismatch
	// OutcomeAccessDenied means a user identity reached the admin panel.
	OutcomeAccessDenied
	// OutcomeRestoreFailed means the remember cookie could not restore a
	// session and must be cleared.
	OutcomeRestoreFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAuthenticated:
		return "authenticated"
	case OutcomeTenantMismatch:
		return "tenant_mismatch"
	case OutcomeAccessDenied:
		return "access_denied"
	case OutcomeRestoreFailed:
		return "restore_failed"
	default:
		return "anonymous"
	}
}

// ResolveInput is the request state identity resolution works from.
type ResolveInput struct {
	Session       *domain.Session
	RememberToken string
	// Tenant is the tenant resolved from the host, nil in the master context.
	Tenant      *domain.Tenant
	MultiTenant bool
	// AdminPanel is true for back-office routes, where user identities are
	// refused.
	AdminPanel bool
	IP         string
	Path       string
}

// Resolution is the identity established for a request.
type Resolution struct {
	Identity domain.Identity
	Outcome  Outcome
	// Restored is true when the session was rebuilt from a remember token.
	Restored bool
}

// IdentityService establishes the request identity.
type IdentityService interface {
	Resolve(ctx context.Context, in ResolveInput) (Resolution, error)
}

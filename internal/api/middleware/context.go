package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/caimari/musedock-sub009/internal/core/domain"
)

// Context keys shared by the pipeline.
const (
	tenantKey       = "tenant"
	identityKey     = "identity"
	sessionKey      = "session"
	jsonBodyKey     = "json_body"
	jsonTooLargeKey = "json_body_too_large"
)

// SetTenant marks the request as belonging to t.
func SetTenant(c echo.Context, t *domain.Tenant) { c.Set(tenantKey, t) }

// TenantFrom returns the active tenant, nil in the master context.
func TenantFrom(c echo.Context) *domain.Tenant {
	t, _ := c.Get(tenantKey).(*domain.Tenant)
	return t
}

// SetIdentity stores the authenticated identity.
func SetIdentity(c echo.Context, id domain.Identity) { c.Set(identityKey, id) }

// IdentityFrom returns the identity established by Authenticate or APIAuth,
// Anonymous when none was.
func IdentityFrom(c echo.Context) domain.Identity {
	if id, ok := c.Get(identityKey).(domain.Identity); ok && id != nil {
		return id
	}
	return domain.Anonymous{}
}

// SetSession attaches the request session.
func SetSession(c echo.Context, s *domain.Session) { c.Set(sessionKey, s) }

// SessionFrom returns the request session, nil before the Session
// middleware ran.
func SessionFrom(c echo.Context) *domain.Session {
	s, _ := c.Get(sessionKey).(*domain.Session)
	return s
}

// currentIdentity prefers the identity set by an auth middleware and falls
// back to the session.
func currentIdentity(c echo.Context) domain.Identity {
	id := IdentityFrom(c)
	if id.Kind() != domain.KindAnonymous {
		return id
	}
	return SessionFrom(c).Identity()
}

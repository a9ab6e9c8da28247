package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/caimari/musedock-sub009/internal/api/metrics"
	"github.com/caimari/musedock-sub009/internal/core/domain"
	"github.com/caimari/musedock-sub009/internal/core/ports"
)

// RequirePermission enforces a tenant-scoped permission. A superadmin with
// the superadmin role always passes.
func RequirePermission(pm ports.PermissionManager, permission string, paths Paths, log zerolog.Logger) echo.MiddlewareFunc {
	check := func(ctx context.Context, userID, tenantID int64, userType domain.UserType) (bool, error) {
		return pm.UserHasPermissionWithType(ctx, userID, userType, permission, tenantID)
	}
	return rbac("permission", permission, check, paths, log)
}

// RequireRole enforces a tenant-scoped role, looked up in the assignments
// of the principal's own type. A superadmin with the superadmin role always
// passes.
func RequireRole(pm ports.PermissionManager, role string, paths Paths, log zerolog.Logger) echo.MiddlewareFunc {
	check := func(ctx context.Context, userID, tenantID int64, userType domain.UserType) (bool, error) {
		return pm.UserHasRoleWithType(ctx, userID, userType, role, tenantID)
	}
	return rbac("role", role, check, paths, log)
}

type rbacCheck func(ctx context.Context, userID, tenantID int64, userType domain.UserType) (bool, error)

func rbac(kind, name string, check rbacCheck, paths Paths, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := currentIdentity(c)
			if sa, ok := id.(domain.Superadmin); ok && sa.FullAccess() {
				return next(c)
			}

			userID, tenantID, userType, ok := domain.Subject(id)
			if !ok {
				metrics.AuthDenialsTotal.WithLabelValues("anonymous").Inc()
				return Deny(c, http.StatusUnauthorized, "unauthenticated", "Please log in", paths.ContextLoginURL(c))
			}
			if tenantID == 0 {
				if t := TenantFrom(c); t != nil {
					tenantID = t.ID
				}
			}

			allowed, err := check(c.Request().Context(), userID, tenantID, userType)
			if err != nil {
				log.Error().Err(err).Str(kind, name).Int64("user_id", userID).Msg("authorization lookup failed, denying")
				allowed = false
			}
			if allowed {
				return next(c)
			}

			metrics.AuthDenialsTotal.WithLabelValues(kind).Inc()
			log.Warn().
				Str(kind, name).
				Int64("user_id", userID).
				Int64("tenant_id", tenantID).
				Str("path", c.Request().URL.Path).
				Msg("authorization denied")
			return Deny(c, http.StatusForbidden, "forbidden",
				"You do not have permission to access this section", paths.DashboardURL(c))
		}
	}
}

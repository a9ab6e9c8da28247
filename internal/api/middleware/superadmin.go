package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/caimari/musedock-sub009/internal/api/metrics"
	"github.com/caimari/musedock-sub009/internal/core/domain"
)

// RequireSuperAdmin lets only full-access superadmins through. Anonymous
// requests are sent to the superadmin login, everyone else gets the 403
// page.
func RequireSuperAdmin(paths Paths) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := currentIdentity(c)
			if sa, ok := id.(domain.Superadmin); ok && sa.FullAccess() {
				return next(c)
			}
			metrics.AuthDenialsTotal.WithLabelValues("superadmin").Inc()
			if id.Kind() == domain.KindAnonymous {
				return reject(c, http.StatusUnauthorized, "unauthenticated", "Please log in", paths.Superadmin+"/login")
			}
			return Forbidden(c)
		}
	}
}

// Forbidden renders the 403 page, or JSON for AJAX requests.
func Forbidden(c echo.Context) error {
	if IsAJAX(c.Request()) {
		return c.JSON(http.StatusForbidden, failure{Error: "forbidden", Message: "Forbidden"})
	}
	if c.Echo().Renderer != nil {
		if err := c.Render(http.StatusForbidden, "errors/403", nil); err == nil {
			return nil
		}
	}
	return c.String(http.StatusForbidden, "403 Forbidden")
}

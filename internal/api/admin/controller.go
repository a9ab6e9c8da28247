// Package admin holds the back-office controllers. Every exported method
// of a *Controller type is an endpoint and must either be whitelisted or
// call one of the Check helpers below; the permission gate enforces this
// from the embedded sources.
package admin

import (
	"embed"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/caimari/musedock-sub009/internal/api/middleware"
	"github.com/caimari/musedock-sub009/internal/core/domain"
	"github.com/caimari/musedock-sub009/internal/core/ports"
	"github.com/caimari/musedock-sub009/internal/guard"
)

//go:embed *_controller.go
var sources embed.FS

// Manifest scans the controllers compiled into this package.
func Manifest() (*guard.Manifest, error) {
	return guard.Scan(sources, "*_controller.go")
}

// Controller is embedded by every admin controller.
type Controller struct {
	permissions ports.PermissionManager
	log         zerolog.Logger
}

func NewController(permissions ports.PermissionManager, log zerolog.Logger) Controller {
	return Controller{permissions: permissions, log: log}
}

// CheckPermission returns ErrPermissionDenied unless the request identity
// holds permission.
func (b Controller) CheckPermission(c echo.Context, permission string) error {
	if !b.can(c, permission) {
		return fmt.Errorf("%w: %s", domain.ErrPermissionDenied, permission)
	}
	return nil
}

// CheckAnyPermission passes when at least one permission is held.
func (b Controller) CheckAnyPermission(c echo.Context, permissions ...string) error {
	for _, p := range permissions {
		if b.can(c, p) {
			return nil
		}
	}
	return fmt.Errorf("%w: any of %v", domain.ErrPermissionDenied, permissions)
}

// CheckAllPermissions passes when every permission is held.
func (b Controller) CheckAllPermissions(c echo.Context, permissions ...string) error {
	for _, p := range permissions {
		if !b.can(c, p) {
			return fmt.Errorf("%w: %s", domain.ErrPermissionDenied, p)
		}
	}
	return nil
}

// RequireSuperAdmin returns ErrSuperadminRequired for anyone but a
// full-access superadmin.
func (b Controller) RequireSuperAdmin(c echo.Context) error {
	if sa, ok := middleware.IdentityFrom(c).(domain.Superadmin); ok && sa.FullAccess() {
		return nil
	}
	return domain.ErrSuperadminRequired
}

// can fails closed on lookup errors.
func (b Controller) can(c echo.Context, permission string) bool {
	id := middleware.IdentityFrom(c)
	if sa, ok := id.(domain.Superadmin); ok && sa.FullAccess() {
		return true
	}
	userID, tenantID, userType, ok := domain.Subject(id)
	if !ok || b.permissions == nil {
		return false
	}
	allowed, err := b.permissions.UserHasPermissionWithType(c.Request().Context(), userID, userType, permission, tenantID)
	if err != nil {
		b.log.Error().Err(err).
			Str("permission", permission).
			Int64("user_id", userID).
			Msg("permission lookup failed, denying")
		return false
	}
	return allowed
}

// tenantOf is the tenant the request identity is scoped to, 0 for
// superadmins.
func tenantOf(c echo.Context) int64 {
	_, tenantID, _, _ := domain.Subject(middleware.IdentityFrom(c))
	return tenantID
}

package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// Paths holds the admin panel prefixes, e.g. "/musedock" and "/admin".
type Paths struct {
	Superadmin string
	Tenant     string
}

func under(path, prefix string) bool {
	return prefix != "" && (path == prefix || strings.HasPrefix(path, prefix+"/"))
}

// AdminBase returns the panel prefix the request belongs to.
func (p Paths) AdminBase(c echo.Context) string {
	if under(c.Request().URL.Path, p.Superadmin) {
		return p.Superadmin
	}
	return p.Tenant
}

// LoginURL is the login page of the panel the request belongs to.
func (p Paths) LoginURL(c echo.Context) string { return p.AdminBase(c) + "/login" }

// DashboardURL is the dashboard of the panel the request belongs to.
func (p Paths) DashboardURL(c echo.Context) string { return p.AdminBase(c) + "/dashboard" }

// ContextLoginURL picks the tenant admin login when a tenant is active or the
// request is under the tenant panel, the superadmin login otherwise.
func (p Paths) ContextLoginURL(c echo.Context) string {
	if TenantFrom(c) != nil || under(c.Request().URL.Path, p.Tenant) {
		return p.Tenant + "/login"
	}
	return p.Superadmin + "/login"
}

// CSRFLoginURL guesses the login page from the request path.
func (p Paths) CSRFLoginURL(path string) string {
	switch {
	case under(path, p.Superadmin):
		return p.Superadmin + "/login"
	case under(path, "/customer"):
		return "/customer/login"
	case under(path, p.Tenant):
		return p.Tenant + "/login"
	default:
		return "/admin/login"
	}
}

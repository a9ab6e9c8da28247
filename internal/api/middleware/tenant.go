package middleware

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/caimari/musedock-sub009/internal/core/domain"
	"github.com/caimari/musedock-sub009/internal/core/ports"
)

// TenantConfig controls host based tenant resolution.
type TenantConfig struct {
	Enabled    bool
	MainDomain string
}

// Tenant resolves the tenant from the request host. The main domain is the
// master context and carries no tenant.
func Tenant(repo ports.TenantRepository, cfg TenantConfig, log zerolog.Logger) echo.MiddlewareFunc {
	main := normalizeHost(cfg.MainDomain)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if !cfg.Enabled {
			return next
		}
		return func(c echo.Context) error {
			host := normalizeHost(c.Request().Host)
			if host == "" || host == main {
				return next(c)
			}

			t, err := repo.FindByDomain(c.Request().Context(), host)
			switch {
			case errors.Is(err, domain.ErrTenantNotFound):
				return halt(c, http.StatusNotFound, "tenant_not_found", "Site not found")
			case err != nil:
				log.Error().Err(err).Str("host", host).Msg("tenant lookup failed")
				return halt(c, http.StatusServiceUnavailable, "service_unavailable", "Service temporarily unavailable")
			case !t.Active:
				return halt(c, http.StatusForbidden, "tenant_inactive", "This site is not active")
			}

			SetTenant(c, t)
			return next(c)
		}
	}
}

// normalizeHost lowercases the host and strips the port and a leading
// "www.".
func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.TrimPrefix(host, "www.")
}

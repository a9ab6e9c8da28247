package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/caimari/musedock-sub009/internal/api/metrics"
	"github.com/caimari/musedock-sub009/internal/core/domain"
	"github.com/caimari/musedock-sub009/internal/core/ports"
)

// WAF blocks requests matching a firewall rule with 403.
func WAF(waf ports.WAF, enabled bool, auditor ports.SecurityAuditor, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if !enabled || waf == nil {
			return next
		}
		return func(c echo.Context) error {
			rule := waf.Inspect(c.Request())
			if rule == "" {
				return next(c)
			}

			metrics.WAFBlocksTotal.WithLabelValues(rule).Inc()
			log.Warn().
				Str("rule", rule).
				Str("ip", c.RealIP()).
				Str("path", c.Request().URL.Path).
				Msg("request blocked by waf")
			audit(auditor, c, domain.SecurityEvent{
				Type:     domain.EventWAFBlock,
				Severity: domain.SeverityWarning,
				Detail:   rule,
			})
			return halt(c, http.StatusForbidden, "request_blocked", "Forbidden")
		}
	}
}

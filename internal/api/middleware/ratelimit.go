package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/caimari/musedock-sub009/internal/api/metrics"
	"github.com/caimari/musedock-sub009/internal/core/domain"
	"github.com/caimari/musedock-sub009/internal/core/ports"
)

type rateLimited struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retry_after"`
}

type blacklisted struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// RateLimit applies the fixed-window quotas. Denied requests get 429 with
// Retry-After; blacklisted addresses get 403.
func RateLimit(svc ports.RateLimitService, auditor ports.SecurityAuditor, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			d := svc.Check(req.Context(), ports.RateLimitRequest{
				IP:       c.RealIP(),
				RemoteIP: remoteIP(req),
				Path:     req.URL.Path,
				Method:   req.Method,
				AJAX:     isXHR(req),
			})

			switch {
			case d.Whitelisted:
				metrics.RateLimitDecisionsTotal.WithLabelValues("", "whitelisted").Inc()
				return next(c)

			case d.Blacklisted:
				metrics.RateLimitDecisionsTotal.WithLabelValues("", "blacklisted").Inc()
				log.Warn().Str("ip", c.RealIP()).Str("path", req.URL.Path).Msg("blacklisted address rejected")
				audit(auditor, c, domain.SecurityEvent{Type: domain.EventBlacklisted, Severity: domain.SeverityWarning})
				return c.JSON(http.StatusForbidden, blacklisted{Error: "ip_blacklisted", Message: "Access denied"})

			case !d.Allowed:
				metrics.RateLimitDecisionsTotal.WithLabelValues(string(d.Class), "limited").Inc()
				h := c.Response().Header()
				h.Set("Retry-After", strconv.Itoa(d.RetryAfter))
				setQuotaHeaders(h, d)
				log.Warn().
					Str("ip", c.RealIP()).
					Str("class", string(d.Class)).
					Str("identifier", d.Identifier).
					Int("retry_after", d.RetryAfter).
					Msg("rate limit exceeded")
				audit(auditor, c, domain.SecurityEvent{
					Type:     domain.EventRateLimited,
					Severity: domain.SeverityWarning,
					Detail:   d.Identifier,
				})
				return c.JSON(http.StatusTooManyRequests, rateLimited{Error: "rate_limit_exceeded", RetryAfter: d.RetryAfter})
			}

			metrics.RateLimitDecisionsTotal.WithLabelValues(string(d.Class), "allowed").Inc()
			if d.Limit > 0 {
				setQuotaHeaders(c.Response().Header(), d)
			}
			return next(c)
		}
	}
}

func setQuotaHeaders(h http.Header, d domain.RateLimitDecision) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))
}

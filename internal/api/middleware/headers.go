package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// HeadersConfig configures SecurityHeaders.
type HeadersConfig struct {
	CSP string
	// TrustProxy honours X-Forwarded-Proto and X-Forwarded-Ssl when
	// deciding whether the request arrived over HTTPS.
	TrustProxy bool
}

// SecurityHeaders sets the hardening headers on every response. HSTS is
// only sent over HTTPS.
func SecurityHeaders(cfg HeadersConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Response().Committed {
				return next(c)
			}
			h := c.Response().Header()
			h.Set(echo.HeaderXFrameOptions, "SAMEORIGIN")
			h.Set(echo.HeaderXContentTypeOptions, "nosniff")
			h.Set(echo.HeaderXXSSProtection, "1; mode=block")
			h.Set(echo.HeaderReferrerPolicy, "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=(), payment=()")
			h.Set(echo.HeaderCacheControl, "no-store, no-cache, must-revalidate, max-age=0")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
			if cfg.CSP != "" {
				h.Set(echo.HeaderContentSecurityPolicy, cfg.CSP)
			}
			if isHTTPS(c, cfg.TrustProxy) {
				h.Set(echo.HeaderStrictTransportSecurity, "max-age=31536000; includeSubDomains")
			}
			return next(c)
		}
	}
}

func isHTTPS(c echo.Context, trustProxy bool) bool {
	req := c.Request()
	if req.TLS != nil {
		return true
	}
	if !trustProxy {
		return false
	}
	return strings.EqualFold(req.Header.Get(echo.HeaderXForwardedProto), "https") ||
		strings.EqualFold(req.Header.Get(echo.HeaderXForwardedSsl), "on")
}

package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/caimari/musedock-sub009/internal/api/metrics"
	"github.com/caimari/musedock-sub009/internal/core/domain"
	"github.com/caimari/musedock-sub009/internal/core/ports"
)

// StatusCSRFFailed is the non-standard "page expired" status.
const StatusCSRFFailed = 419

const maxJSONBody = 1 << 20

var (
	csrfFormFields = []string{"_token", "_csrf", "csrf_token", "_csrf_token"}
	csrfJSONFields = []string{"_csrf", "_token", "csrf_token"}
)

// CSRFConfig configures the CSRF middleware.
type CSRFConfig struct {
	// ExemptPrefixes lists path prefixes that are not checked, such as the
	// bearer token API.
	ExemptPrefixes []string
	Paths          Paths
}

type csrfFailure struct {
	Success      bool   `json:"success"`
	Error        string `json:"error"`
	Message      string `json:"message"`
	Redirect     string `json:"redirect"`
	NewCSRFToken string `json:"new_csrf_token,omitempty"`
}

// CSRF verifies the session token on state-changing requests. On failure the
// token is rotated and the request answered with 419 (JSON) or a redirect to
// the login page.
func CSRF(svc ports.CSRFService, auditor ports.SecurityAuditor, cfg CSRFConfig, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			switch req.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			default:
				return next(c)
			}
			for _, p := range cfg.ExemptPrefixes {
				if strings.HasPrefix(req.URL.Path, p) {
					return next(c)
				}
			}

			sess := SessionFrom(c)
			if sess != nil && svc.Verify(sess, csrfToken(c)) {
				return next(c)
			}
			if oversized(c) {
				metrics.CSRFFailuresTotal.WithLabelValues("too_large").Inc()
				return halt(c, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body too large")
			}

			var rotated string
			if sess != nil && !sess.Destroyed() {
				rotated = svc.Rotate(sess)
			}
			log.Warn().
				Str("ip", c.RealIP()).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Msg("csrf token mismatch")
			audit(auditor, c, domain.SecurityEvent{Type: domain.EventCSRFFailure, Severity: domain.SeverityWarning})

			const message = "Your session has expired. Please reload the page and try again."
			if IsAJAX(req) {
				metrics.CSRFFailuresTotal.WithLabelValues("json").Inc()
				redirect := req.Referer()
				if redirect == "" {
					redirect = req.URL.Path
				}
				return c.JSON(StatusCSRFFailed, csrfFailure{
					Error:        "csrf_token_mismatch",
					Message:      message,
					Redirect:     redirect,
					NewCSRFToken: rotated,
				})
			}
			metrics.CSRFFailuresTotal.WithLabelValues("redirect").Inc()
			addFlash(c, domain.FlashError, message)
			return c.Redirect(http.StatusFound, cfg.Paths.CSRFLoginURL(req.URL.Path))
		}
	}
}

// csrfToken finds the submitted token: form fields first, then the
// X-CSRF-TOKEN and X-XSRF-TOKEN headers, then a JSON body.
func csrfToken(c echo.Context) string {
	req := c.Request()
	ct := req.Header.Get(echo.HeaderContentType)

	if strings.HasPrefix(ct, echo.MIMEApplicationForm) || strings.HasPrefix(ct, echo.MIMEMultipartForm) {
		for _, f := range csrfFormFields {
			if v := req.PostFormValue(f); v != "" {
				return v
			}
		}
	}
	if v := req.Header.Get("X-CSRF-TOKEN"); v != "" {
		return v
	}
	if v := req.Header.Get("X-XSRF-TOKEN"); v != "" {
		return v
	}
	if strings.Contains(ct, echo.MIMEApplicationJSON) {
		body := JSONBody(c)
		for _, f := range csrfJSONFields {
			if v, ok := body[f].(string); ok && v != "" {
				return v
			}
		}
	}
	return ""
}

// JSONBody decodes a JSON object body once per request and restores the
// body for the handler. Non-object or invalid bodies yield an empty map, as
// do bodies over maxJSONBody, which are handed on unread past the limit.
func JSONBody(c echo.Context) map[string]any {
	if m, ok := c.Get(jsonBodyKey).(map[string]any); ok {
		return m
	}
	m := map[string]any{}
	req := c.Request()
	if req.Body != nil {
		raw, err := io.ReadAll(io.LimitReader(req.Body, maxJSONBody+1))
		switch {
		case len(raw) > maxJSONBody:
			req.Body = struct {
				io.Reader
				io.Closer
			}{io.MultiReader(bytes.NewReader(raw), req.Body), req.Body}
			c.Set(jsonTooLargeKey, true)
		default:
			_ = req.Body.Close()
			req.Body = io.NopCloser(bytes.NewReader(raw))
			if err == nil && len(raw) > 0 {
				if err := json.Unmarshal(raw, &m); err != nil {
					m = map[string]any{}
				}
			}
		}
	}
	c.Set(jsonBodyKey, m)
	return m
}

func oversized(c echo.Context) bool {
	v, _ := c.Get(jsonTooLargeKey).(bool)
	return v
}

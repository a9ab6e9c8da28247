package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/caimari/musedock-sub009/internal/core/domain"
	"github.com/caimari/musedock-sub009/internal/core/ports"
)

// failure is the JSON body of every pipeline denial.
type failure struct {
	Success  bool   `json:"success"`
	Error    string `json:"error"`
	Message  string `json:"message,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

// isXHR reports an XMLHttpRequest/fetch request marked by the client.
func isXHR(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest")
}

// IsAJAX reports whether the client expects JSON rather than a page.
func IsAJAX(r *http.Request) bool {
	return isXHR(r) ||
		strings.Contains(r.Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON) ||
		strings.Contains(r.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
}

// addFlash queues a message on the request session, if there is one.
func addFlash(c echo.Context, level, message string) {
	if s := SessionFrom(c); s != nil && !s.Destroyed() {
		s.AddFlash(level, message)
	}
}

// Deny answers AJAX requests with a JSON failure and everything else with a
// flash message and a redirect.
func Deny(c echo.Context, status int, code, message, redirect string) error {
	if IsAJAX(c.Request()) {
		return c.JSON(status, failure{Error: code, Message: message, Redirect: redirect})
	}
	addFlash(c, domain.FlashError, message)
	return c.Redirect(http.StatusFound, redirect)
}

// reject is Deny without a flash message, for redirects that carry their
// reason in the URL.
func reject(c echo.Context, status int, code, message, redirect string) error {
	if IsAJAX(c.Request()) {
		return c.JSON(status, failure{Error: code, Message: message, Redirect: redirect})
	}
	return c.Redirect(http.StatusFound, redirect)
}

// halt ends the request with a status and no redirect.
func halt(c echo.Context, status int, code, message string) error {
	if IsAJAX(c.Request()) {
		return c.JSON(status, failure{Error: code, Message: message})
	}
	return c.String(status, message)
}

// audit fills the request fields of ev and hands it to the auditor.
func audit(a ports.SecurityAuditor, c echo.Context, ev domain.SecurityEvent) {
	if a == nil {
		return
	}
	ev.IP = c.RealIP()
	ev.Path = c.Request().URL.Path
	if ev.UserID == 0 {
		if id, tid, typ, ok := domain.Subject(currentIdentity(c)); ok {
			ev.UserID, ev.TenantID, ev.UserType = id, tid, typ
		}
	}
	if ev.TenantID == 0 {
		if t := TenantFrom(c); t != nil {
			ev.TenantID = t.ID
		}
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	a.Record(ev)
}

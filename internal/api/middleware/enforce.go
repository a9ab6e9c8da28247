package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/caimari/musedock-sub009/internal/api/metrics"
	"github.com/caimari/musedock-sub009/internal/core/domain"
	"github.com/caimari/musedock-sub009/internal/core/ports"
	"github.com/caimari/musedock-sub009/internal/guard"
)

// Enforcer wraps admin controller methods with the permission gate.
type Enforcer struct {
	gate    *guard.Gate
	paths   Paths
	auditor ports.SecurityAuditor
	log     zerolog.Logger
}

// NewEnforcer returns an Enforcer backed by gate.
func NewEnforcer(gate *guard.Gate, paths Paths, auditor ports.SecurityAuditor, log zerolog.Logger) *Enforcer {
	return &Enforcer{gate: gate, paths: paths, auditor: auditor, log: log}
}

// Guard wraps a controller method value such as ctrl.Index. Handlers whose
// method cannot be identified are always denied.
func (e *Enforcer) Guard(h echo.HandlerFunc) echo.HandlerFunc {
	return e.Middleware(guard.MethodID(h))(h)
}

// Middleware enforces the gate for the given "Controller@method" id.
func (e *Enforcer) Middleware(methodID string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if e.gate.Allowed(methodID) {
				metrics.PermissionGateTotal.WithLabelValues("allowed").Inc()
				return next(c)
			}

			metrics.PermissionGateTotal.WithLabelValues("denied").Inc()
			userID, _, _, _ := domain.Subject(currentIdentity(c))
			e.log.Warn().
				Str("method", methodID).
				Int64("user_id", userID).
				Str("email", SessionFrom(c).Email()).
				Str("path", c.Request().URL.Path).
				Msg("controller method has no permission check, denied")
			audit(e.auditor, c, domain.SecurityEvent{
				Type:     domain.EventPermissionGate,
				Severity: domain.SeverityCritical,
				Detail:   methodID,
			})
			return Deny(c, http.StatusForbidden, "forbidden",
				"You do not have permission to perform this action", e.paths.DashboardURL(c))
		}
	}
}

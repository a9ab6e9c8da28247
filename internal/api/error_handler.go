package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/caimari/musedock-sub009/internal/api/metrics"
	"github.com/caimari/musedock-sub009/internal/api/middleware"
	"github.com/caimari/musedock-sub009/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Turns controller permission denials into a flash and a dashboard
//     redirect (JSON 403 for AJAX).
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
func NewHTTPErrorHandler(log zerolog.Logger, paths middleware.Paths) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		switch {
		case errors.Is(err, domain.ErrPermissionDenied):
			metrics.AuthDenialsTotal.WithLabelValues("permission").Inc()
			log.Warn().Err(err).Str("path", c.Request().URL.Path).Msg("controller permission check failed")
			_ = middleware.Deny(c, http.StatusForbidden, "forbidden",
				"You do not have permission to perform this action", paths.DashboardURL(c))
			return
		case errors.Is(err, domain.ErrSuperadminRequired):
			metrics.AuthDenialsTotal.WithLabelValues("superadmin").Inc()
			_ = middleware.Forbidden(c)
			return
		}

		code, msg := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, domain.ErrAccountDisabled):
		return http.StatusForbidden, "account disabled"
	case errors.Is(err, domain.ErrTenantNotFound):
		return http.StatusNotFound, "site not found"
	case errors.Is(err, domain.ErrTenantInactive):
		return http.StatusForbidden, "site not active"
	case errors.Is(err, domain.ErrBlacklistNotFound):
		return http.StatusNotFound, "blacklist entry not found"
	case errors.Is(err, domain.ErrInvalidIP):
		return http.StatusBadRequest, "invalid ip address"
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}

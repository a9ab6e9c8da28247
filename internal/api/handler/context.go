package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/caimari/musedock-sub009/internal/api/middleware"
	"github.com/caimari/musedock-sub009/internal/core/domain"
)

// ctxIdentity returns the identity injected by APIAuth and fails fast when
// the middleware did not run or the identity cannot own API data.
func ctxIdentity(c echo.Context) (domain.Identity, error) {
	id := middleware.IdentityFrom(c)
	if _, _, _, ok := domain.Subject(id); !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return id, nil
}

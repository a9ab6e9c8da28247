package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/caimari/musedock-sub009/internal/api/middleware"
	"github.com/caimari/musedock-sub009/internal/core/domain"
	"github.com/caimari/musedock-sub009/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type tokenRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	Kind      string `json:"kind"`
	TenantID  int64  `json:"tenant_id,omitempty"`
}

type meResponse struct {
	ID       int64  `json:"id"`
	Kind     string `json:"kind"`
	TenantID int64  `json:"tenant_id,omitempty"`
	Role     string `json:"role,omitempty"`
}

// Token exchanges admin or superadmin credentials for a bearer token.
// On a tenant host only that tenant's admins can authenticate.
//
// @Summary      Issue an API token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      tokenRequest  true  "Credentials"
// @Success      200   {object}  tokenResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Router       /api/v1/auth/token [post]
func (h *AuthHandler) Token(c echo.Context) error {
	var req tokenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	var tenantID int64
	if t := middleware.TenantFrom(c); t != nil {
		tenantID = t.ID
	}

	token, id, err := h.authService.IssueAPIToken(c.Request().Context(), tenantID, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		case errors.Is(err, domain.ErrAccountDisabled):
			return c.JSON(http.StatusForbidden, map[string]string{"error": "account disabled"})
		}
		return err
	}

	_, tid, _, _ := domain.Subject(id)
	return c.JSON(http.StatusOK, tokenResponse{
		Token:     token,
		TokenType: "Bearer",
		Kind:      id.Kind().String(),
		TenantID:  tid,
	})
}

// Me describes the identity carried by the bearer token.
//
// @Summary      Current identity
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  meResponse
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	userID, tenantID, _, _ := domain.Subject(id)
	resp := meResponse{ID: userID, Kind: id.Kind().String(), TenantID: tenantID}
	if sa, ok := id.(domain.Superadmin); ok {
		resp.Role = sa.Role
	}
	return c.JSON(http.StatusOK, resp)
}

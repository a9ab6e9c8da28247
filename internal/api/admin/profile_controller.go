package admin

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/caimari/musedock-sub009/internal/api/middleware"
	"github.com/caimari/musedock-sub009/internal/core/domain"
)

// ProfileController serves the signed-in principal's own settings.
type ProfileController struct {
	Controller
	paths middleware.Paths
}

func NewProfileController(base Controller, paths middleware.Paths) *ProfileController {
	return &ProfileController{Controller: base, paths: paths}
}

type profileResponse struct {
	ID       int64  `json:"id"`
	Kind     string `json:"kind"`
	Email    string `json:"email,omitempty"`
	TenantID int64  `json:"tenant_id,omitempty"`
	Locale   string `json:"locale,omitempty"`
}

type languageForm struct {
	Locale string `form:"locale" json:"locale" validate:"required,oneof=es en"`
}

func (p *ProfileController) Show(c echo.Context) error {
	id := middleware.IdentityFrom(c)
	userID, tenantID, _, _ := domain.Subject(id)
	sess := middleware.SessionFrom(c)

	resp := profileResponse{ID: userID, Kind: id.Kind().String(), Email: sess.Email(), TenantID: tenantID}
	if sess != nil {
		resp.Locale = sess.Locale
	}
	return c.JSON(http.StatusOK, resp)
}

// SwitchLanguage stores the interface locale in the session and sends the
// browser back where it came from.
func (p *ProfileController) SwitchLanguage(c echo.Context) error {
	var form languageForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if sess := middleware.SessionFrom(c); sess != nil {
		sess.Locale = form.Locale
	}
	back, ok := localReferer(c.Request())
	if !ok {
		back = p.paths.DashboardURL(c)
	}
	return c.Redirect(http.StatusFound, back)
}

// localReferer returns the path and query of a Referer on this host.
func localReferer(r *http.Request) (string, bool) {
	raw := r.Referer()
	if raw == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Host != "" && !strings.EqualFold(u.Host, r.Host)) {
		return "", false
	}
	if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") {
		return "", false
	}
	back := u.EscapedPath()
	if u.RawQuery != "" {
		back += "?" + u.RawQuery
	}
	return back, true
}

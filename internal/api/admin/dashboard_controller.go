package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/caimari/musedock-sub009/internal/api/middleware"
	"github.com/caimari/musedock-sub009/internal/core/domain"
	"github.com/caimari/musedock-sub009/internal/core/ports"
)

type DashboardController struct {
	Controller
	csrf  ports.CSRFService
	paths middleware.Paths
}

func NewDashboardController(base Controller, csrf ports.CSRFService, paths middleware.Paths) *DashboardController {
	return &DashboardController{Controller: base, csrf: csrf, paths: paths}
}

type dashboardPage struct {
	Kind      string
	Email     string
	Tenant    string
	Base      string
	CSRFToken string
	Flashes   []domain.Flash
}

func (d *DashboardController) Index(c echo.Context) error {
	sess := middleware.SessionFrom(c)
	page := dashboardPage{
		Kind:  middleware.IdentityFrom(c).Kind().String(),
		Email: sess.Email(),
		Base:  d.paths.AdminBase(c),
	}
	if t := middleware.TenantFrom(c); t != nil {
		page.Tenant = t.Name
	}
	if sess != nil {
		page.CSRFToken = d.csrf.Token(sess)
		page.Flashes = sess.TakeFlashes()
	}
	return c.Render(http.StatusOK, "admin/dashboard", page)
}

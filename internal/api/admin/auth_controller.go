package admin

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/caimari/musedock-sub009/internal/api/middleware"
	"github.com/caimari/musedock-sub009/internal/core/domain"
	"github.com/caimari/musedock-sub009/internal/core/ports"
)

// AuthConfig configures AuthController.
type AuthConfig struct {
	Paths         middleware.Paths
	RememberTTL   time.Duration
	SecureCookies bool
}

// AuthController serves the login and logout endpoints of both panels.
type AuthController struct {
	Controller
	auth    ports.AuthService
	csrf    ports.CSRFService
	auditor ports.SecurityAuditor
	cfg     AuthConfig
}

func NewAuthController(base Controller, auth ports.AuthService, csrf ports.CSRFService, auditor ports.SecurityAuditor, cfg AuthConfig) *AuthController {
	return &AuthController{Controller: base, auth: auth, csrf: csrf, auditor: auditor, cfg: cfg}
}

type loginForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
	Remember string `form:"remember"`
}

type loginPage struct {
	Action    string
	CSRFToken string
	Error     string
	Flashes   []domain.Flash
}

// ShowLogin renders the login form of the current panel.
func (a *AuthController) ShowLogin(c echo.Context) error {
	sess := middleware.SessionFrom(c)
	if sess == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "session unavailable")
	}
	return c.Render(http.StatusOK, "auth/login", loginPage{
		Action:    a.cfg.Paths.LoginURL(c),
		CSRFToken: a.csrf.Token(sess),
		Error:     c.QueryParam("error"),
		Flashes:   sess.TakeFlashes(),
	})
}

// Login authenticates against the panel the form was posted to. The session
// id and CSRF token are replaced on success.
func (a *AuthController) Login(c echo.Context) error {
	sess := middleware.SessionFrom(c)
	if sess == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "session unavailable")
	}
	login := a.cfg.Paths.LoginURL(c)

	var form loginForm
	if err := c.Bind(&form); err != nil {
		sess.AddFlash(domain.FlashError, "Invalid request")
		return c.Redirect(http.StatusFound, login)
	}
	if err := c.Validate(&form); err != nil {
		sess.AddFlash(domain.FlashError, "Email and password are required")
		return c.Redirect(http.StatusFound, login)
	}

	ctx := c.Request().Context()
	var (
		userType domain.UserType
		ownerID  int64
		tenantID int64
	)
	if a.cfg.Paths.AdminBase(c) == a.cfg.Paths.Superadmin {
		acct, err := a.auth.LoginSuperadmin(ctx, form.Email, form.Password)
		if err != nil {
			return a.loginFailed(c, err, form.Email, login)
		}
		sess.Regenerate()
		sess.Admin, sess.User = nil, nil
		sess.Superadmin = &domain.SessionSuperadmin{ID: acct.ID, Email: acct.Email, Name: acct.Name, Role: acct.Role}
		userType, ownerID = domain.UserTypeSuperadmin, acct.ID
	} else {
		if t := middleware.TenantFrom(c); t != nil {
			tenantID = t.ID
		}
		acct, err := a.auth.LoginAdmin(ctx, tenantID, form.Email, form.Password)
		if err != nil {
			return a.loginFailed(c, err, form.Email, login)
		}
		sess.Regenerate()
		sess.Superadmin, sess.User = nil, nil
		sess.Admin = &domain.SessionAdmin{ID: acct.ID, TenantID: acct.TenantID, Email: acct.Email, Name: acct.Name}
		userType, ownerID, tenantID = domain.UserTypeAdmin, acct.ID, acct.TenantID
	}
	a.csrf.Rotate(sess)

	if form.Remember != "" {
		token, err := a.auth.IssueRememberToken(ctx, userType, ownerID, tenantID)
		if err != nil {
			a.log.Warn().Err(err).Int64("user_id", ownerID).Msg("remember token not issued")
		} else {
			middleware.SetRemember(c, token, a.cfg.RememberTTL, a.cfg.SecureCookies)
		}
	}

	a.record(c, domain.SecurityEvent{
		Type:     domain.EventLoginSucceeded,
		Severity: domain.SeverityInfo,
		UserID:   ownerID,
		UserType: userType,
		TenantID: tenantID,
	})
	return c.Redirect(http.StatusFound, a.cfg.Paths.DashboardURL(c))
}

func (a *AuthController) loginFailed(c echo.Context, err error, email, login string) error {
	msg := "Invalid email or password"
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
	case errors.Is(err, domain.ErrAccountDisabled):
		msg = "This account is disabled"
	default:
		return err
	}
	a.log.Warn().Str("email", email).Str("ip", c.RealIP()).Msg("login failed")
	a.record(c, domain.SecurityEvent{Type: domain.EventLoginFailed, Severity: domain.SeverityWarning, Detail: email})
	middleware.SessionFrom(c).AddFlash(domain.FlashError, msg)
	return c.Redirect(http.StatusFound, login)
}

// Logout revokes the remember token and destroys the session.
func (a *AuthController) Logout(c echo.Context) error {
	if ck, err := c.Cookie(middleware.RememberCookie); err == nil {
		if err := a.auth.RevokeRememberToken(c.Request().Context(), ck.Value); err != nil {
			a.log.Warn().Err(err).Msg("remember token not revoked")
		}
		middleware.ClearRemember(c, a.cfg.SecureCookies)
	}
	if sess := middleware.SessionFrom(c); sess != nil {
		sess.Destroy()
	}
	return c.Redirect(http.StatusFound, a.cfg.Paths.LoginURL(c))
}

func (a *AuthController) record(c echo.Context, ev domain.SecurityEvent) {
	if a.auditor == nil {
		return
	}
	ev.IP = c.RealIP()
	ev.Path = c.Request().URL.Path
	ev.OccurredAt = time.Now().UTC()
	a.auditor.Record(ev)
}

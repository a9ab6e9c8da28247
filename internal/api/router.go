package api

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/caimari/musedock-sub009/internal/api/admin"
	"github.com/caimari/musedock-sub009/internal/api/handler"
	"github.com/caimari/musedock-sub009/internal/api/middleware"
	"github.com/caimari/musedock-sub009/internal/core/domain"
	"github.com/caimari/musedock-sub009/internal/core/ports"
	"github.com/caimari/musedock-sub009/internal/core/service"
	"github.com/caimari/musedock-sub009/internal/guard"
	"github.com/caimari/musedock-sub009/internal/infrastructure/config"
	mongorepo "github.com/caimari/musedock-sub009/internal/infrastructure/db/mongo"
	redisstore "github.com/caimari/musedock-sub009/internal/infrastructure/db/redis"
	httpinfra "github.com/caimari/musedock-sub009/internal/infrastructure/http"
)

// Dependencies are the long-lived resources the router wires together.
type Dependencies struct {
	Config  *config.Config
	Mongo   *mongo.Database
	Redis   *redis.Client
	Auditor ports.SecurityAuditor
	Logger  zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Dependencies) (*echo.Echo, error) {
	cfg, log := d.Config, d.Logger
	paths := middleware.Paths{Superadmin: cfg.SuperadminBase(), Tenant: cfg.TenantBase()}

	renderer, err := NewTemplateRenderer()
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.IPExtractor = middleware.NewIPExtractor(cfg.Security.TrustProxy)
	e.Validator = handler.NewValidator()
	e.Renderer = renderer
	e.HTTPErrorHandler = NewHTTPErrorHandler(log, paths)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(requestLogger(log))
	e.Use(middleware.Instrument())

	// --- Health checks, metrics and docs (no pipeline) ---
	httpinfra.RegisterOperational(e, d.Mongo, d.Redis)

	// --- Dependencies ---
	accounts := mongorepo.NewAccountRepository(d.Mongo)
	tokens := mongorepo.NewTokenRepository(d.Mongo)
	blacklist := mongorepo.NewBlacklistRepository(d.Mongo)
	logs := mongorepo.NewSecurityLogRepository(d.Mongo)

	var counters ports.RateLimitStore = mongorepo.NewRateLimitStore(d.Mongo)
	if cfg.RateLimit.Backend == "redis" {
		counters = redisstore.NewRateLimitStore(d.Redis)
	}

	permissions := service.NewPermissionService(mongorepo.NewRoleRepository(d.Mongo))
	sessions := service.NewSessionService(redisstore.NewSessionStore(d.Redis), cfg.Session.TTL, log)
	csrf := service.NewCSRFService()
	identities := service.NewIdentityService(accounts, tokens, d.Auditor, log)
	authService := service.NewAuthService(accounts, tokens, cfg.JWTSecret, cfg.Session.APITokenTTL, cfg.Session.RememberTTL)
	limiter := service.NewRateLimitService(counters, blacklist, service.RateLimitConfig{
		LoginRoutes: cfg.RateLimit.LoginRoutes,
		APIPrefixes: cfg.RateLimit.APIPrefixes,
		HeavyPaths:  cfg.RateLimit.HeavyPaths,
		Whitelist:   cfg.RateLimit.Whitelist,
		Blacklist:   cfg.RateLimit.Blacklist,
	}, log)

	gate, manifest := newGate(cfg, log)
	enforcer := middleware.NewEnforcer(gate, paths, d.Auditor, log)

	// --- Security pipeline ---
	front := []echo.MiddlewareFunc{
		middleware.Tenant(mongorepo.NewTenantRepository(d.Mongo), middleware.TenantConfig{
			Enabled:    cfg.MultiTenantEnabled,
			MainDomain: cfg.MainDomain,
		}, log),
		middleware.WAF(service.NewRuleWAF(service.DefaultWAFRules()...), cfg.Security.WAFEnabled, d.Auditor, log),
	}
	if cfg.RateLimit.Enabled {
		front = append(front, middleware.RateLimit(limiter, d.Auditor, log))
	}
	front = append(front, middleware.SecurityHeaders(middleware.HeadersConfig{
		CSP:        cfg.Security.CSP,
		TrustProxy: cfg.Security.TrustProxy,
	}))

	panel := append(append([]echo.MiddlewareFunc{}, front...),
		middleware.Session(sessions, middleware.SessionConfig{
			CookieName: cfg.Session.CookieName,
			Secure:     cfg.Session.Secure,
		}, log),
		middleware.CSRF(csrf, d.Auditor, middleware.CSRFConfig{
			ExemptPrefixes: cfg.Security.CSRFExempt,
			Paths:          paths,
		}, log),
	)

	authenticate := middleware.Authenticate(identities, middleware.AuthConfig{
		Paths:         paths,
		MultiTenant:   cfg.MultiTenantEnabled,
		SecureCookies: cfg.Session.Secure,
	}, log)
	superadmin := middleware.RequireSuperAdmin(paths)
	can := func(permission string) echo.MiddlewareFunc {
		return middleware.RequirePermission(permissions, permission, paths, log)
	}

	// --- Controllers ---
	base := admin.NewController(permissions, log)
	authCtrl := admin.NewAuthController(base, authService, csrf, d.Auditor, admin.AuthConfig{
		Paths:         paths,
		RememberTTL:   cfg.Session.RememberTTL,
		SecureCookies: cfg.Session.Secure,
	})
	dashboard := admin.NewDashboardController(base, csrf, paths)
	profile := admin.NewProfileController(base, paths)
	reports := admin.NewReportsController(base, logs)
	security := admin.NewSecurityController(base, blacklist, manifest, guard.DefaultWhitelist())

	route := func(g *echo.Group, method, path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
		g.Add(method, path, enforcer.Guard(h), m...)
	}

	// --- Superadmin panel ---
	su := e.Group(paths.Superadmin, panel...)
	route(su, http.MethodGet, "/login", authCtrl.ShowLogin)
	route(su, http.MethodPost, "/login", authCtrl.Login)
	route(su, http.MethodPost, "/logout", authCtrl.Logout)
	route(su, http.MethodGet, "/dashboard", dashboard.Index, authenticate, superadmin)
	route(su, http.MethodGet, "/profile", profile.Show, authenticate, superadmin)
	route(su, http.MethodPost, "/language", profile.SwitchLanguage, authenticate, superadmin)
	route(su, http.MethodGet, "/reports", reports.Index, authenticate, middleware.RequireRole(permissions, domain.RoleAuditor, paths, log))
	route(su, http.MethodGet, "/reports/export-all", reports.ExportAll, authenticate, superadmin)
	route(su, http.MethodGet, "/security/unprotected", security.Unprotected, authenticate, superadmin)
	route(su, http.MethodGet, "/security/blacklist", security.Blacklist, authenticate, can(domain.PermSecurityBlacklistView))
	route(su, http.MethodPost, "/security/blacklist", security.AddBlacklist, authenticate, can(domain.PermSecurityBlacklistWrite))
	route(su, http.MethodDelete, "/security/blacklist/:ip", security.RemoveBlacklist, authenticate, can(domain.PermSecurityBlacklistWrite))

	// --- Tenant admin panel ---
	ta := e.Group(paths.Tenant, panel...)
	route(ta, http.MethodGet, "/login", authCtrl.ShowLogin)
	route(ta, http.MethodPost, "/login", authCtrl.Login)
	route(ta, http.MethodPost, "/logout", authCtrl.Logout)
	route(ta, http.MethodGet, "/dashboard", dashboard.Index, authenticate)
	route(ta, http.MethodGet, "/profile", profile.Show, authenticate)
	route(ta, http.MethodPost, "/language", profile.SwitchLanguage, authenticate)
	route(ta, http.MethodGet, "/reports", reports.Index, authenticate, can(domain.PermReportsView))
	route(ta, http.MethodGet, "/reports/export", reports.Export, authenticate, can(domain.PermReportsExport))
	route(ta, http.MethodGet, "/reports/export-all", reports.ExportAll, authenticate)

	// --- Bearer token API ---
	authHandler := handler.NewAuthHandler(authService)
	v1 := e.Group(cfg.APIBase(), front...)
	v1.POST("/auth/token", authHandler.Token)
	v1.GET("/me", authHandler.Me, middleware.APIAuth(cfg.JWTSecret))

	return e, nil
}

// newGate builds the permission gate from the embedded controller sources.
// A scan failure installs an inspector that denies every non-whitelisted
// method.
func newGate(cfg *config.Config, log zerolog.Logger) (*guard.Gate, *guard.Manifest) {
	whitelist := guard.DefaultWhitelist()

	var (
		manifest *guard.Manifest
		err      error
	)
	if cfg.Security.ControllersDir != "" {
		manifest, err = guard.ScanDir(cfg.Security.ControllersDir)
	} else {
		manifest, err = admin.Manifest()
	}
	if err != nil {
		log.Error().Err(err).Msg("controller scan failed, permission gate denies all non-whitelisted methods")
		return guard.NewGate(whitelist, guard.FailedInspector{Err: fmt.Errorf("controller scan: %w", err)}, log), nil
	}

	if open := guard.Audit(manifest, whitelist); len(open) > 0 {
		for _, m := range open {
			log.Warn().Str("method", m.ID()).Str("position", m.Position).Msg("controller method has no permission check")
		}
	}
	return guard.NewGate(whitelist, manifest, log), manifest
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}

package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/caimari/musedock-sub009/internal/api/metrics"
	"github.com/caimari/musedock-sub009/internal/core/domain"
	"github.com/caimari/musedock-sub009/internal/core/ports"
)

// RememberCookie is the persistent login cookie.
const RememberCookie = "remember_token"

// AuthConfig configures Authenticate.
type AuthConfig struct {
	Paths         Paths
	MultiTenant   bool
	SecureCookies bool
}

// Authenticate requires an admin panel identity. Sessions that fail the
// tenant lockout are destroyed on the spot. Only superadmins get past it on
// the superadmin panel; a tenant admin session there is refused but kept.
func Authenticate(identities ports.IdentityService, cfg AuthConfig, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess := SessionFrom(c)
			if sess == nil {
				metrics.AuthDenialsTotal.WithLabelValues("anonymous").Inc()
				return reject(c, http.StatusUnauthorized, "unauthenticated", "Please log in", cfg.Paths.LoginURL(c))
			}

			var remember string
			if ck, err := c.Cookie(RememberCookie); err == nil {
				remember = ck.Value
			}

			res, err := identities.Resolve(c.Request().Context(), ports.ResolveInput{
				Session:       sess,
				RememberToken: remember,
				Tenant:        TenantFrom(c),
				MultiTenant:   cfg.MultiTenant,
				AdminPanel:    true,
				IP:            c.RealIP(),
				Path:          c.Request().URL.Path,
			})
			if err != nil {
				log.Error().Err(err).Msg("identity resolution failed")
				return halt(c, http.StatusServiceUnavailable, "service_unavailable", "Service temporarily unavailable")
			}

			login := cfg.Paths.LoginURL(c)
			switch res.Outcome {
			case ports.OutcomeAuthenticated:
				if _, isSuper := res.Identity.(domain.Superadmin); !isSuper && under(c.Request().URL.Path, cfg.Paths.Superadmin) {
					metrics.AuthDenialsTotal.WithLabelValues("panel_mismatch").Inc()
					log.Warn().
						Stringer("kind", res.Identity.Kind()).
						Str("path", c.Request().URL.Path).
						Msg("non-superadmin identity on superadmin panel")
					return Forbidden(c)
				}
				if res.Restored {
					sess.Regenerate()
				}
				SetIdentity(c, res.Identity)
				return next(c)

			case ports.OutcomeTenantMismatch:
				metrics.AuthDenialsTotal.WithLabelValues("tenant_mismatch").Inc()
				sess.Destroy()
				ClearRemember(c, cfg.SecureCookies)
				return reject(c, http.StatusUnauthorized, "session_invalid",
					"Your session is no longer valid", login+"?error=session_invalid")

			case ports.OutcomeAccessDenied:
				metrics.AuthDenialsTotal.WithLabelValues("access_denied").Inc()
				sess.Destroy()
				ClearRemember(c, cfg.SecureCookies)
				return reject(c, http.StatusForbidden, "access_denied",
					"Access denied", login+"?error=access_denied")

			case ports.OutcomeRestoreFailed:
				metrics.AuthDenialsTotal.WithLabelValues("restore_failed").Inc()
				ClearRemember(c, cfg.SecureCookies)
				return reject(c, http.StatusUnauthorized, "unauthenticated", "Please log in", login)

			default:
				metrics.AuthDenialsTotal.WithLabelValues("anonymous").Inc()
				return reject(c, http.StatusUnauthorized, "unauthenticated", "Please log in", login)
			}
		}
	}
}

// SetRemember issues the persistent login cookie.
func SetRemember(c echo.Context, token string, ttl time.Duration, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     RememberCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
	})
}

// ClearRemember expires the persistent login cookie.
func ClearRemember(c echo.Context, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     RememberCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}

// APIAuth validates the bearer JWT and injects the identity it names into
// context. Admin tokens are refused on another tenant's host.
func APIAuth(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims := jwt.MapClaims{}
			tkn, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
					return nil, jwt.ErrTokenSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !tkn.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			id := identityFromClaims(claims)
			if id.Kind() == domain.KindAnonymous {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			if admin, ok := id.(domain.Admin); ok {
				if t := TenantFrom(c); t != nil && t.ID != admin.TenantID {
					return echo.NewHTTPError(http.StatusUnauthorized, "token not valid for this site")
				}
			}

			SetIdentity(c, id)
			return next(c)
		}
	}
}

func identityFromClaims(claims jwt.MapClaims) domain.Identity {
	sub := claimInt(claims, domain.ClaimSubject)
	if sub <= 0 {
		return domain.Anonymous{}
	}
	typ, _ := claims[domain.ClaimUserType].(string)
	switch domain.UserType(typ) {
	case domain.UserTypeSuperadmin:
		role, _ := claims[domain.ClaimRole].(string)
		return domain.Superadmin{ID: sub, Role: role}
	case domain.UserTypeAdmin:
		return domain.Admin{ID: sub, TenantID: claimInt(claims, domain.ClaimTenant)}
	default:
		return domain.Anonymous{}
	}
}

// claimInt reads a numeric claim; JSON numbers decode as float64.
func claimInt(claims jwt.MapClaims, key string) int64 {
	switch v := claims[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}

package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/caimari/musedock-sub009/internal/core/ports"
)

// SessionConfig configures the session cookie.
type SessionConfig struct {
	CookieName string
	Secure     bool
}

// Session loads the session named by the cookie and persists it right
// before the response is written. A session destroyed during the request
// is deleted and its cookie expired.
func Session(svc ports.SessionService, cfg SessionConfig, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var cookieID string
			if ck, err := c.Cookie(cfg.CookieName); err == nil {
				cookieID = ck.Value
			}

			ctx := c.Request().Context()
			sess, err := svc.Load(ctx, cookieID)
			if err != nil {
				log.Error().Err(err).Msg("session store unavailable")
				return halt(c, http.StatusServiceUnavailable, "service_unavailable", "Service temporarily unavailable")
			}
			SetSession(c, sess)

			persisted := false
			persist := func() {
				if persisted {
					return
				}
				persisted = true

				if sess.Destroyed() {
					if err := svc.Destroy(ctx, sess); err != nil {
						log.Error().Err(err).Msg("session destroy failed")
					}
					c.SetCookie(sessionCookie(cfg, "", -1))
					return
				}
				if err := svc.Save(ctx, sess); err != nil {
					log.Error().Err(err).Msg("session save failed")
					return
				}
				if sess.ID != cookieID {
					c.SetCookie(sessionCookie(cfg, sess.ID, 0))
				}
			}
			c.Response().Before(persist)

			// Errors are rendered here so that anything the error handler
			// puts in the session is persisted with it.
			if err := next(c); err != nil {
				c.Error(err)
			}
			if !c.Response().Committed {
				persist()
			}
			return nil
		}
	}
}

func sessionCookie(cfg SessionConfig, value string, maxAge int) *http.Cookie {
	ck := &http.Cookie{
		Name:     cfg.CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
	if maxAge < 0 {
		ck.Expires = time.Unix(0, 0)
	}
	return ck
}

package admin

import (
	"net/http"
	"net/netip"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/caimari/musedock-sub009/internal/core/domain"
	"github.com/caimari/musedock-sub009/internal/core/ports"
	"github.com/caimari/musedock-sub009/internal/guard"
)

// SecurityController administers the IP blacklist and reports controller
// methods the permission gate would deny.
type SecurityController struct {
	Controller
	blacklist ports.BlacklistRepository
	manifest  *guard.Manifest
	whitelist guard.Whitelist
	now       func() time.Time
}

func NewSecurityController(base Controller, blacklist ports.BlacklistRepository, manifest *guard.Manifest, whitelist guard.Whitelist) *SecurityController {
	return &SecurityController{
		Controller: base,
		blacklist:  blacklist,
		manifest:   manifest,
		whitelist:  whitelist,
		now:        time.Now,
	}
}

type unprotectedMethod struct {
	ID       string `json:"id"`
	Position string `json:"position"`
}

type unprotectedResponse struct {
	Count   int                 `json:"count"`
	Methods []unprotectedMethod `json:"methods"`
}

type blacklistRequest struct {
	IP       string `json:"ip" form:"ip" validate:"required"`
	Reason   string `json:"reason" form:"reason" validate:"max=255"`
	TTLHours int    `json:"ttl_hours" form:"ttl_hours" validate:"gte=0"`
}

type blacklistResponse struct {
	Entries []domain.BlacklistEntry `json:"entries"`
}

// Unprotected lists exported controller methods that are neither
// whitelisted nor call a permission check.
func (s *SecurityController) Unprotected(c echo.Context) error {
	if err := s.RequireSuperAdmin(c); err != nil {
		return err
	}
	resp := unprotectedResponse{Methods: []unprotectedMethod{}}
	if s.manifest != nil {
		for _, m := range guard.Audit(s.manifest, s.whitelist) {
			resp.Methods = append(resp.Methods, unprotectedMethod{ID: m.ID(), Position: m.Position})
		}
	}
	resp.Count = len(resp.Methods)
	return c.JSON(http.StatusOK, resp)
}

func (s *SecurityController) Blacklist(c echo.Context) error {
	if err := s.CheckPermission(c, domain.PermSecurityBlacklistView); err != nil {
		return err
	}
	entries, err := s.blacklist.List(c.Request().Context(), s.now())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, blacklistResponse{Entries: entries})
}

// AddBlacklist bans an address, permanently when ttl_hours is 0.
func (s *SecurityController) AddBlacklist(c echo.Context) error {
	if err := s.CheckPermission(c, domain.PermSecurityBlacklistWrite); err != nil {
		return err
	}

	var req blacklistRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	addr, err := netip.ParseAddr(req.IP)
	if err != nil {
		return domain.ErrInvalidIP
	}

	now := s.now().UTC()
	entry := domain.BlacklistEntry{IP: addr.Unmap().String(), Reason: req.Reason, CreatedAt: now}
	if req.TTLHours > 0 {
		exp := now.Add(time.Duration(req.TTLHours) * time.Hour)
		entry.ExpiresAt = &exp
	}
	if err := s.blacklist.Add(c.Request().Context(), entry); err != nil {
		return err
	}
	s.log.Info().Str("ip", entry.IP).Str("reason", entry.Reason).Msg("address blacklisted")
	return c.JSON(http.StatusCreated, entry)
}

func (s *SecurityController) RemoveBlacklist(c echo.Context) error {
	if err := s.CheckPermission(c, domain.PermSecurityBlacklistWrite); err != nil {
		return err
	}
	addr, err := netip.ParseAddr(c.Param("ip"))
	if err != nil {
		return domain.ErrInvalidIP
	}
	if err := s.blacklist.Remove(c.Request().Context(), addr.Unmap().String()); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

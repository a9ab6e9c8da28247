package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/caimari/musedock-sub009/internal/core/domain"
	"github.com/caimari/musedock-sub009/internal/core/ports"
)

// restoreOrder is the lookup order for remember tokens.
var restoreOrder = []domain.UserType{
	domain.UserTypeSuperadmin,
	domain.UserTypeAdmin,
	domain.UserTypeUser,
}

type identityService struct {
	accounts ports.AccountRepository
	tokens   ports.RememberTokenRepository
	auditor  ports.SecurityAuditor
	log      zerolog.Logger
	now      func() time.Time
}

// NewIdentityService returns an IdentityService implementation.
func NewIdentityService(
	accounts ports.AccountRepository,
	tokens ports.RememberTokenRepository,
	auditor ports.SecurityAuditor,
	log zerolog.Logger,
) ports.IdentityService {
	return &identityService{
		accounts: accounts,
		tokens:   tokens,
		auditor:  auditor,
		log:      log,
		now:      time.Now,
	}
}

// HashToken returns the at-rest form of a remember token.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Resolve establishes the identity carried by the session, falling back to the
// remember cookie when the session is empty.
func (s *identityService) Resolve(ctx context.Context, in ports.ResolveInput) (ports.Resolution, error) {
	switch id := in.Session.Identity().(type) {
	case domain.Superadmin:
		return ports.Resolution{Identity: id, Outcome: ports.OutcomeAuthenticated}, nil
	case domain.Admin:
		return s.validateAdmin(ctx, in, id)
	case domain.User:
		if in.AdminPanel {
			s.alert(in, domain.EventAccessDenied, domain.SeverityWarning, id.ID, domain.UserTypeUser, id.TenantID, "user session in admin panel")
			return ports.Resolution{Identity: id, Outcome: ports.OutcomeAccessDenied}, nil
		}
		return ports.Resolution{Identity: id, Outcome: ports.OutcomeAuthenticated}, nil
	}

	if in.RememberToken != "" && in.Session != nil {
		return s.restore(ctx, in)
	}
	return ports.Resolution{Identity: domain.Anonymous{}, Outcome: ports.OutcomeAnonymous}, nil
}

// validateAdmin re-reads the admin record on every request so a reassigned
// or deleted admin loses access immediately.
func (s *identityService) validateAdmin(ctx context.Context, in ports.ResolveInput, id domain.Admin) (ports.Resolution, error) {
	acct, err := s.accounts.AdminByID(ctx, id.ID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		s.alert(in, domain.EventTenantMismatch, domain.SeverityCritical, id.ID, domain.UserTypeAdmin, id.TenantID, "admin record missing")
		return ports.Resolution{Identity: id, Outcome: ports.OutcomeTenantMismatch}, nil
	}
	if err != nil {
		return ports.Resolution{}, fmt.Errorf("resolve identity: %w", err)
	}

	if acct.TenantID != id.TenantID {
		s.alert(in, domain.EventTenantMismatch, domain.SeverityCritical, id.ID, domain.UserTypeAdmin, id.TenantID,
			fmt.Sprintf("session tenant %d, record tenant %d", id.TenantID, acct.TenantID))
		return ports.Resolution{Identity: id, Outcome: ports.OutcomeTenantMismatch}, nil
	}
	if in.MultiTenant && acct.TenantID == 0 {
		s.alert(in, domain.EventTenantMismatch, domain.SeverityCritical, id.ID, domain.UserTypeAdmin, 0, "admin without tenant")
		return ports.Resolution{Identity: id, Outcome: ports.OutcomeTenantMismatch}, nil
	}
	if in.MultiTenant && in.Tenant != nil && acct.TenantID != in.Tenant.ID {
		s.alert(in, domain.EventTenantMismatch, domain.SeverityCritical, id.ID, domain.UserTypeAdmin, id.TenantID,
			fmt.Sprintf("admin of tenant %d on tenant %d", acct.TenantID, in.Tenant.ID))
		return ports.Resolution{Identity: id, Outcome: ports.OutcomeTenantMismatch}, nil
	}
	if !acct.Active {
		s.alert(in, domain.EventAccessDenied, domain.SeverityWarning, id.ID, domain.UserTypeAdmin, id.TenantID, "admin disabled")
		return ports.Resolution{Identity: id, Outcome: ports.OutcomeAccessDenied}, nil
	}

	return ports.Resolution{Identity: id, Outcome: ports.OutcomeAuthenticated}, nil
}

func (s *identityService) restore(ctx context.Context, in ports.ResolveInput) (ports.Resolution, error) {
	hash := HashToken(in.RememberToken)

	for _, userType := range restoreOrder {
		tok, err := s.tokens.Find(ctx, userType, hash)
		if errors.Is(err, domain.ErrTokenNotFound) {
			continue
		}
		if err != nil {
			s.log.Warn().Err(err).Str("user_type", string(userType)).Msg("remember token lookup failed")
			return s.restoreFailed(in, "token lookup failed"), nil
		}
		if tok.Expired(s.now()) {
			if delErr := s.tokens.Delete(ctx, userType, hash); delErr != nil {
				s.log.Warn().Err(delErr).Msg("failed to delete expired remember token")
			}
			return s.restoreFailed(in, "token expired"), nil
		}
		return s.restoreFrom(ctx, in, tok)
	}

	return s.restoreFailed(in, "token unknown"), nil
}

func (s *identityService) restoreFrom(ctx context.Context, in ports.ResolveInput, tok *domain.RememberToken) (ports.Resolution, error) {
	sess := in.Session

	switch tok.UserType {
	case domain.UserTypeSuperadmin:
		acct, err := s.accounts.SuperAdminByID(ctx, tok.OwnerID)
		if err != nil || !acct.Active {
			return s.restoreFailed(in, "superadmin unavailable"), nil
		}
		sess.Superadmin = &domain.SessionSuperadmin{ID: acct.ID, Email: acct.Email, Name: acct.Name, Role: acct.Role}

	case domain.UserTypeAdmin:
		acct, err := s.accounts.AdminByID(ctx, tok.OwnerID)
		if err != nil || !acct.Active {
			return s.restoreFailed(in, "admin unavailable"), nil
		}
		sess.Admin = &domain.SessionAdmin{ID: acct.ID, TenantID: acct.TenantID, Email: acct.Email, Name: acct.Name}

	case domain.UserTypeUser:
		acct, err := s.accounts.UserByID(ctx, tok.OwnerID)
		if err != nil || !acct.Active {
			return s.restoreFailed(in, "user unavailable"), nil
		}
		sess.User = &domain.SessionUser{ID: acct.ID, TenantID: acct.TenantID, Email: acct.Email, Name: acct.Name}

	default:
		return s.restoreFailed(in, "unknown token owner"), nil
	}

	// Re-derive from the session so a restored user is held to the same
	// rules as a logged-in one.
	switch id := sess.Identity().(type) {
	case domain.User:
		if in.AdminPanel {
			s.alert(in, domain.EventAccessDenied, domain.SeverityWarning, id.ID, domain.UserTypeUser, id.TenantID, "user remember token in admin panel")
			return ports.Resolution{Identity: id, Outcome: ports.OutcomeAccessDenied, Restored: true}, nil
		}
		return ports.Resolution{Identity: id, Outcome: ports.OutcomeAuthenticated, Restored: true}, nil
	case domain.Admin:
		if in.MultiTenant && (id.TenantID == 0 || (in.Tenant != nil && id.TenantID != in.Tenant.ID)) {
			s.alert(in, domain.EventTenantMismatch, domain.SeverityCritical, id.ID, domain.UserTypeAdmin, id.TenantID, "remember token for another tenant")
			return ports.Resolution{Identity: id, Outcome: ports.OutcomeTenantMismatch, Restored: true}, nil
		}
		s.alert(in, domain.EventRememberRestored, domain.SeverityInfo, id.ID, domain.UserTypeAdmin, id.TenantID, "")
		return ports.Resolution{Identity: id, Outcome: ports.OutcomeAuthenticated, Restored: true}, nil
	case domain.Superadmin:
		s.alert(in, domain.EventRememberRestored, domain.SeverityInfo, id.ID, domain.UserTypeSuperadmin, 0, "")
		return ports.Resolution{Identity: id, Outcome: ports.OutcomeAuthenticated, Restored: true}, nil
	}

	return s.restoreFailed(in, "restored session empty"), nil
}

func (s *identityService) restoreFailed(in ports.ResolveInput, detail string) ports.Resolution {
	s.alert(in, domain.EventRememberFailed, domain.SeverityInfo, 0, "", 0, detail)
	return ports.Resolution{Identity: domain.Anonymous{}, Outcome: ports.OutcomeRestoreFailed}
}

func (s *identityService) alert(in ports.ResolveInput, typ domain.SecurityEventType, sev domain.Severity, userID int64, userType domain.UserType, tenantID int64, detail string) {
	ev := s.log.Warn()
	if sev == domain.SeverityInfo {
		ev = s.log.Info()
	}
	ev.Str("event", string(typ)).
		Int64("user_id", userID).
		Int64("tenant_id", tenantID).
		Str("ip", in.IP).
		Str("path", in.Path).
		Str("detail", detail).
		Msg("identity resolution")

	if s.auditor == nil {
		return
	}
	s.auditor.Record(domain.SecurityEvent{
		Type:       typ,
		Severity:   sev,
		IP:         in.IP,
		Path:       in.Path,
		UserID:     userID,
		UserType:   userType,
		TenantID:   tenantID,
		Detail:     detail,
		OccurredAt: s.now().UTC(),
	})
}

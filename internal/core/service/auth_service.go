package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/caimari/musedock-sub009/internal/core/domain"
	"github.com/caimari/musedock-sub009/internal/core/ports"
)

const rememberTokenBytes = 32

// AuthService implements back-office login, remember tokens and API tokens.
type AuthService struct {
	accounts    ports.AccountRepository
	tokens      ports.RememberTokenRepository
	jwtSecret   string
	tokenTTL    time.Duration
	rememberTTL time.Duration
	now         func() time.Time
}

func NewAuthService(
	accounts ports.AccountRepository,
	tokens ports.RememberTokenRepository,
	jwtSecret string,
	tokenTTL, rememberTTL time.Duration,
) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	if rememberTTL <= 0 {
		rememberTTL = 30 * 24 * time.Hour
	}
	return &AuthService{
		accounts:    accounts,
		tokens:      tokens,
		jwtSecret:   jwtSecret,
		tokenTTL:    tokenTTL,
		rememberTTL: rememberTTL,
		now:         time.Now,
	}
}

// RememberTTL is the lifetime of issued remember tokens.
func (s *AuthService) RememberTTL() time.Duration { return s.rememberTTL }

func (s *AuthService) LoginAdmin(ctx context.Context, tenantID int64, email, password string) (*domain.AdminAccount, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	acct, err := s.accounts.AdminByEmail(ctx, tenantID, email)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("login admin: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !acct.Active {
		return nil, domain.ErrAccountDisabled
	}
	return acct, nil
}

func (s *AuthService) LoginSuperadmin(ctx context.Context, email, password string) (*domain.SuperAdminAccount, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	acct, err := s.accounts.SuperAdminByEmail(ctx, email)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("login superadmin: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !acct.Active {
		return nil, domain.ErrAccountDisabled
	}
	return acct, nil
}

// IssueRememberToken stores the hash of a new token and returns the raw value
// for the cookie.
func (s *AuthService) IssueRememberToken(ctx context.Context, userType domain.UserType, ownerID, tenantID int64) (string, error) {
	raw := randomHex(rememberTokenBytes)
	now := s.now().UTC()
	err := s.tokens.Create(ctx, domain.RememberToken{
		TokenHash: HashToken(raw),
		UserType:  userType,
		OwnerID:   ownerID,
		TenantID:  tenantID,
		ExpiresAt: now.Add(s.rememberTTL),
		CreatedAt: now,
	})
	if err != nil {
		return "", fmt.Errorf("issue remember token: %w", err)
	}
	return raw, nil
}

// RevokeRememberToken deletes the token from every store. Unknown tokens are
// not an error.
func (s *AuthService) RevokeRememberToken(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	hash := HashToken(raw)
	for _, userType := range restoreOrder {
		if err := s.tokens.Delete(ctx, userType, hash); err != nil && !errors.Is(err, domain.ErrTokenNotFound) {
			return fmt.Errorf("revoke remember token: %w", err)
		}
	}
	return nil
}

// IssueAPIToken authenticates a superadmin (tenantID 0) or a tenant admin
// and signs a bearer token for the API.
func (s *AuthService) IssueAPIToken(ctx context.Context, tenantID int64, email, password string) (string, domain.Identity, error) {
	if tenantID == 0 {
		sa, err := s.LoginSuperadmin(ctx, email, password)
		switch {
		case err == nil:
			id := domain.Superadmin{ID: sa.ID, Role: sa.Role}
			token, err := s.generateToken(id)
			return token, id, err
		case !errors.Is(err, domain.ErrInvalidCredentials):
			return "", nil, err
		}
	}

	admin, err := s.LoginAdmin(ctx, tenantID, email, password)
	if err != nil {
		return "", nil, err
	}
	id := domain.Admin{ID: admin.ID, TenantID: admin.TenantID}
	token, err := s.generateToken(id)
	return token, id, err
}

func (s *AuthService) generateToken(id domain.Identity) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		domain.ClaimUserType: id.Kind().String(),
		"iat":                now.Unix(),
		"exp":                now.Add(s.tokenTTL).Unix(),
	}
	switch v := id.(type) {
	case domain.Superadmin:
		claims[domain.ClaimSubject] = v.ID
		claims[domain.ClaimRole] = v.Role
	case domain.Admin:
		claims[domain.ClaimSubject] = v.ID
		claims[domain.ClaimTenant] = v.TenantID
	default:
		return "", domain.ErrInvalidCredentials
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

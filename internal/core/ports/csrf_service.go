package ports

import "github.com/caimari/musedock-sub009/internal/core/domain"

// CSRFService issues and verifies per-session CSRF tokens.
type CSRFService interface {
	// Token returns the session token, generating one if missing.
	Token(s *domain.Session) string
	// Verify reports whether supplied matches the session token.
	Verify(s *domain.Session, supplied string) bool
	// Rotate replaces the session token and returns the new value.
	Rotate(s *domain.Session) string
}

package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"

	"github.com/caimari/musedock-sub009/internal/core/domain"
	"github.com/caimari/musedock-sub009/internal/core/ports"
)

const csrfTokenBytes = 32

type csrfService struct{}

// NewCSRFService returns the session-bound CSRF token service.
func NewCSRFService() ports.CSRFService {
	return csrfService{}
}

// NewCSRFToken returns 32 random bytes, hex encoded.
func NewCSRFToken() string {
	return randomHex(csrfTokenBytes)
}

func (csrfService) Token(s *domain.Session) string {
	if s.CSRFToken == "" {
		s.CSRFToken = NewCSRFToken()
	}
	return s.CSRFToken
}

func (csrfService) Verify(s *domain.Session, supplied string) bool {
	if s == nil || s.CSRFToken == "" || supplied == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.CSRFToken), []byte(supplied)) == 1
}

func (csrfService) Rotate(s *domain.Session) string {
	s.CSRFToken = NewCSRFToken()
	return s.CSRFToken
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand only fails when the OS entropy source is broken.
		panic("service: crypto/rand unavailable: " + err.Error())
	}
	return hex.EncodeToString(b)
}

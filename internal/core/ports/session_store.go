package ports

import (
	"context"
	"time"

	"github.com/caimari/musedock-sub009/internal/core/domain"
)

// SessionStore persists sessions by id.
type SessionStore interface {
	Get(ctx context.Context, id string) (*domain.Session, error)
	Set(ctx context.Context, s *domain.Session, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// SessionService manages the session lifecycle around a request.
type SessionService interface {
	// Load returns the stored session, or a fresh one when id is empty,
	// unknown or expired.
	Load(ctx context.Context, id string) (*domain.Session, error)
	// Save persists s, assigning a new id when it has none and removing the
	// id abandoned by Regenerate.
	Save(ctx context.Context, s *domain.Session) error
	// Destroy removes s from the store.
	Destroy(ctx context.Context, s *domain.Session) error
}

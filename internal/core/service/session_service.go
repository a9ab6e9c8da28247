package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/caimari/musedock-sub009/internal/core/domain"
	"github.com/caimari/musedock-sub009/internal/core/ports"
)

const (
	sessionIDBytes    = 32
	defaultSessionTTL = 2 * time.Hour
)

type sessionService struct {
	store ports.SessionStore
	ttl   time.Duration
	log   zerolog.Logger
	now   func() time.Time
}

// NewSessionService returns a SessionService with a sliding ttl.
func NewSessionService(store ports.SessionStore, ttl time.Duration, log zerolog.Logger) ports.SessionService {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &sessionService{store: store, ttl: ttl, log: log, now: time.Now}
}

func (s *sessionService) Load(ctx context.Context, id string) (*domain.Session, error) {
	if id != "" {
		sess, err := s.store.Get(ctx, id)
		switch {
		case err == nil:
			sess.ID = id
			return sess, nil
		case !errors.Is(err, domain.ErrSessionNotFound):
			return nil, fmt.Errorf("load session: %w", err)
		}
	}
	return s.fresh(), nil
}

func (s *sessionService) fresh() *domain.Session {
	now := s.now().UTC()
	return &domain.Session{
		ID:           randomHex(sessionIDBytes),
		CSRFToken:    NewCSRFToken(),
		CreatedAt:    now,
		LastActivity: now,
	}
}

func (s *sessionService) Save(ctx context.Context, sess *domain.Session) error {
	if prev := sess.PreviousID(); prev != "" {
		if err := s.store.Delete(ctx, prev); err != nil {
			s.log.Warn().Err(err).Msg("failed to delete regenerated session")
		}
		sess.ClearPreviousID()
	}
	if sess.ID == "" {
		sess.ID = randomHex(sessionIDBytes)
	}
	sess.LastActivity = s.now().UTC()
	if err := s.store.Set(ctx, sess, s.ttl); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *sessionService) Destroy(ctx context.Context, sess *domain.Session) error {
	ids := []string{sess.ID, sess.PreviousID()}
	for _, id := range ids {
		if id == "" {
			continue
		}
		if err := s.store.Delete(ctx, id); err != nil {
			return fmt.Errorf("destroy session: %w", err)
		}
	}
	sess.ClearPreviousID()
	return nil
}

package ports

import (
	"context"

	"github.com/caimari/musedock-sub009/internal/core/domain"
)

// RememberTokenRepository stores hashed remember-me tokens, one collection
// per user type.
type RememberTokenRepository interface {
	Create(ctx context.Context, token domain.RememberToken) error
	Find(ctx context.Context, userType domain.UserType, tokenHash string) (*domain.RememberToken, error)
	Delete(ctx context.Context, userType domain.UserType, tokenHash string) error
}

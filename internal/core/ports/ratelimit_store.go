package ports

import (
	"context"
	"time"

	"github.com/caimari/musedock-sub009/internal/core/domain"
)

// RateLimitStore persists fixed-window counters.
type RateLimitStore interface {
	// Purge removes every record whose window ended at or before now.
	Purge(ctx context.Context, now time.Time) error
	// Hit atomically increments the counter for identifier, creating it with
	// attempts=1 and expires_at=now+window when no live record exists.
	Hit(ctx context.Context, identifier string, window time.Duration, now time.Time) (domain.RateLimitRecord, error)
}

// BlacklistRepository persists banned IPs.
type BlacklistRepository interface {
	IsBlacklisted(ctx context.Context, ip string, now time.Time) (bool, error)
	List(ctx context.Context, now time.Time) ([]domain.BlacklistEntry, error)
	Add(ctx context.Context, entry domain.BlacklistEntry) error
	Remove(ctx context.Context, ip string) error
}

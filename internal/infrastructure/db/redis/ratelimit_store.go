package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/caimari/musedock-sub009/internal/core/domain"
)

// RateLimitStore keeps fixed-window counters as Redis integers whose TTL is
// the window. Key format: ratelimit:<identifier>
type RateLimitStore struct {
	client *redis.Client
}

// NewRateLimitStore creates a RateLimitStore wrapping the given Redis client.
func NewRateLimitStore(client *redis.Client) *RateLimitStore {
	return &RateLimitStore{client: client}
}

// Purge is a no-op: Redis expires counters on its own.
func (s *RateLimitStore) Purge(context.Context, time.Time) error {
	return nil
}

// Hit creates the counter with the window TTL if absent, then increments it,
// in one MULTI/EXEC transaction.
func (s *RateLimitStore) Hit(ctx context.Context, identifier string, window time.Duration, now time.Time) (domain.RateLimitRecord, error) {
	key := s.key(identifier)

	var (
		incr *redis.IntCmd
		pttl *redis.DurationCmd
	)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, key, 0, window)
		incr = pipe.Incr(ctx, key)
		pttl = pipe.PTTL(ctx, key)
		return nil
	})
	if err != nil {
		return domain.RateLimitRecord{}, fmt.Errorf("rate limit hit: %w", err)
	}

	ttl := pttl.Val()
	if ttl <= 0 {
		ttl = window
	}
	return domain.RateLimitRecord{
		Identifier: identifier,
		Attempts:   int(incr.Val()),
		ExpiresAt:  now.Add(ttl),
	}, nil
}

func (s *RateLimitStore) key(identifier string) string {
	return "ratelimit:" + identifier
}

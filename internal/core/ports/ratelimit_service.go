package ports

import (
	"context"

	"github.com/caimari/musedock-sub009/internal/core/domain"
)

// RateLimitRequest is what the limiter needs to know about a request.
type RateLimitRequest struct {
	IP string
	// RemoteIP is the connection peer, before any forwarded header.
	RemoteIP string
	Path     string
	Method   string
	AJAX     bool
}

// RateLimitService decides whether a request fits its quota.
type RateLimitService interface {
	Check(ctx context.Context, req RateLimitRequest) domain.RateLimitDecision
}

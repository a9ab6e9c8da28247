package ports

import (
	"context"

	"github.com/caimari/musedock-sub009/internal/core/domain"
)

// SecurityLogRepository persists security audit entries.
type SecurityLogRepository interface {
	Insert(ctx context.Context, event domain.SecurityEvent) error
	// Recent lists the newest events of a tenant, or of every tenant when
	// tenantID is 0.
	Recent(ctx context.Context, tenantID int64, limit int) ([]domain.SecurityEvent, error)
}

// SecurityAuditor accepts security events without blocking the caller.
type SecurityAuditor interface {
	Record(event domain.SecurityEvent)
}

package ports

import (
	"context"

	"github.com/caimari/musedock-sub009/internal/core/domain"
)

// TenantRepository resolves tenants by their public host name.
type TenantRepository interface {
	FindByDomain(ctx context.Context, host string) (*domain.Tenant, error)
	FindByID(ctx context.Context, id int64) (*domain.Tenant, error)
}

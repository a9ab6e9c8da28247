package ports

import (
	"context"

	"github.com/caimari/musedock-sub009/internal/core/domain"
)

// AccountRepository reads the admins, super_admins and users collections.
type AccountRepository interface {
	AdminByID(ctx context.Context, id int64) (*domain.AdminAccount, error)
	AdminByEmail(ctx context.Context, tenantID int64, email string) (*domain.AdminAccount, error)
	SuperAdminByID(ctx context.Context, id int64) (*domain.SuperAdminAccount, error)
	SuperAdminByEmail(ctx context.Context, email string) (*domain.SuperAdminAccount, error)
	UserByID(ctx context.Context, id int64) (*domain.UserAccount, error)
}

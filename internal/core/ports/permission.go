package ports

import (
	"context"

	"github.com/caimari/musedock-sub009/internal/core/domain"
)

// RoleRepository reads role assignments.
type RoleRepository interface {
	AssignedRoles(ctx context.Context, userID int64, userType domain.UserType, tenantID int64) ([]domain.Role, error)
}

// PermissionManager answers tenant-scoped authorization questions.
type PermissionManager interface {
	UserHasPermissionWithType(ctx context.Context, userID int64, userType domain.UserType, permission string, tenantID int64) (bool, error)
	UserHasRole(ctx context.Context, userID int64, role string, tenantID int64) (bool, error)
	UserHasRoleWithType(ctx context.Context, userID int64, userType domain.UserType, role string, tenantID int64) (bool, error)
}

package service

import (
	"context"
	"fmt"

	"github.com/caimari/musedock-sub009/internal/core/domain"
	"github.com/caimari/musedock-sub009/internal/core/ports"
)

type permissionService struct {
	roles ports.RoleRepository
}

// NewPermissionService returns a PermissionManager backed by role
// assignments. Global roles (tenant 0) apply in every tenant.
func NewPermissionService(roles ports.RoleRepository) ports.PermissionManager {
	return &permissionService{roles: roles}
}

func (s *permissionService) UserHasPermissionWithType(ctx context.Context, userID int64, userType domain.UserType, permission string, tenantID int64) (bool, error) {
	if userID <= 0 || permission == "" {
		return false, nil
	}
	roles, err := s.roles.AssignedRoles(ctx, userID, userType, tenantID)
	if err != nil {
		return false, fmt.Errorf("permission lookup: %w", err)
	}
	for _, r := range roles {
		if !inScope(r, tenantID) {
			continue
		}
		if r.UserType != "" && r.UserType != userType {
			continue
		}
		if r.Grants(permission) {
			return true, nil
		}
	}
	return false, nil
}

// UserHasRole checks the tenant admin role assignments.
func (s *permissionService) UserHasRole(ctx context.Context, userID int64, role string, tenantID int64) (bool, error) {
	return s.UserHasRoleWithType(ctx, userID, domain.UserTypeAdmin, role, tenantID)
}

// UserHasRoleWithType checks the role assignments of one principal table.
// Admin and superadmin ids overlap, so the type is part of the lookup key.
func (s *permissionService) UserHasRoleWithType(ctx context.Context, userID int64, userType domain.UserType, role string, tenantID int64) (bool, error) {
	if userID <= 0 || role == "" || userType == "" {
		return false, nil
	}
	roles, err := s.roles.AssignedRoles(ctx, userID, userType, tenantID)
	if err != nil {
		return false, fmt.Errorf("role lookup: %w", err)
	}
	for _, r := range roles {
		if r.Name != role || !inScope(r, tenantID) {
			continue
		}
		if r.UserType != "" && r.UserType != userType {
			continue
		}
		return true, nil
	}
	return false, nil
}

func inScope(r domain.Role, tenantID int64) bool {
	return r.TenantID == 0 || r.TenantID == tenantID
}

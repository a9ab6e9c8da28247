package ports

import (
	"context"

	"github.com/caimari/musedock-sub009/internal/core/domain"
)

// AuthService authenticates back-office principals.
type AuthService interface {
	LoginAdmin(ctx context.Context, tenantID int64, email, password string) (*domain.AdminAccount, error)
	LoginSuperadmin(ctx context.Context, email, password string) (*domain.SuperAdminAccount, error)
	IssueRememberToken(ctx context.Context, userType domain.UserType, ownerID, tenantID int64) (string, error)
	RevokeRememberToken(ctx context.Context, raw string) error
	// IssueAPIToken exchanges credentials for a signed bearer token.
	IssueAPIToken(ctx context.Context, tenantID int64, email, password string) (string, domain.Identity, error)
}

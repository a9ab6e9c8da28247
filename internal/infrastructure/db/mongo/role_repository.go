package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/caimari/musedock-sub009/internal/core/domain"
)

const (
	rolesCollection    = "roles"
	roleUserCollection = "role_user"
)

type MongoRoleRepository struct {
	roles      *mongo.Collection
	assignment *mongo.Collection
}

func NewRoleRepository(db *mongo.Database) *MongoRoleRepository {
	return &MongoRoleRepository{
		roles:      db.Collection(rolesCollection),
		assignment: db.Collection(roleUserCollection),
	}
}

type mongoRole struct {
	Name        string   `bson:"name"`
	TenantID    int64    `bson:"tenant_id"`
	UserType    string   `bson:"user_type,omitempty"`
	Permissions []string `bson:"permissions"`
}

type mongoRoleAssignment struct {
	UserID   int64  `bson:"user_id"`
	UserType string `bson:"user_type"`
	TenantID int64  `bson:"tenant_id"`
	Role     string `bson:"role"`
}

// AssignedRoles returns the roles bound to the principal in tenantID or
// globally (tenant 0).
func (r *MongoRoleRepository) AssignedRoles(ctx context.Context, userID int64, userType domain.UserType, tenantID int64) ([]domain.Role, error) {
	scope := bson.A{int64(0), tenantID}

	cur, err := r.assignment.Find(ctx, bson.M{
		"user_id":   userID,
		"user_type": string(userType),
		"tenant_id": bson.M{"$in": scope},
	})
	if err != nil {
		return nil, fmt.Errorf("find role assignments: %w", err)
	}
	var assignments []mongoRoleAssignment
	if err := cur.All(ctx, &assignments); err != nil {
		return nil, fmt.Errorf("decode role assignments: %w", err)
	}
	if len(assignments) == 0 {
		return nil, nil
	}

	names := make(bson.A, 0, len(assignments))
	for _, a := range assignments {
		names = append(names, a.Role)
	}
	cur, err = r.roles.Find(ctx, bson.M{
		"name":      bson.M{"$in": names},
		"tenant_id": bson.M{"$in": scope},
	})
	if err != nil {
		return nil, fmt.Errorf("find roles: %w", err)
	}
	var docs []mongoRole
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode roles: %w", err)
	}

	out := make([]domain.Role, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.Role{
			Name:        d.Name,
			TenantID:    d.TenantID,
			UserType:    domain.UserType(d.UserType),
			Permissions: d.Permissions,
		})
	}
	return out, nil
}

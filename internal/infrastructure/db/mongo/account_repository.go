package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/caimari/musedock-sub009/internal/core/domain"
)

const (
	adminsCollection      = "admins"
	superAdminsCollection = "super_admins"
	usersCollection       = "users"
)

type MongoAccountRepository struct {
	admins      *mongo.Collection
	superAdmins *mongo.Collection
	users       *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *MongoAccountRepository {
	return &MongoAccountRepository{
		admins:      db.Collection(adminsCollection),
		superAdmins: db.Collection(superAdminsCollection),
		users:       db.Collection(usersCollection),
	}
}

type mongoAdmin struct {
	ID           int64  `bson:"_id"`
	TenantID     int64  `bson:"tenant_id"`
	Email        string `bson:"email"`
	Name         string `bson:"name"`
	PasswordHash string `bson:"password"`
	Active       bool   `bson:"is_active"`
	CreatedAt    int64  `bson:"created_at"`
}

type mongoSuperAdmin struct {
	ID           int64  `bson:"_id"`
	Email        string `bson:"email"`
	Name         string `bson:"name"`
	Role         string `bson:"role"`
	PasswordHash string `bson:"password"`
	Active       bool   `bson:"is_active"`
	CreatedAt    int64  `bson:"created_at"`
}

type mongoUser struct {
	ID        int64  `bson:"_id"`
	TenantID  int64  `bson:"tenant_id"`
	Email     string `bson:"email"`
	Name      string `bson:"name"`
	Active    bool   `bson:"is_active"`
	CreatedAt int64  `bson:"created_at"`
}

func (r *MongoAccountRepository) AdminByID(ctx context.Context, id int64) (*domain.AdminAccount, error) {
	return r.findAdmin(ctx, bson.M{"_id": id})
}

func (r *MongoAccountRepository) AdminByEmail(ctx context.Context, tenantID int64, email string) (*domain.AdminAccount, error) {
	return r.findAdmin(ctx, bson.M{"tenant_id": tenantID, "email": strings.ToLower(email)})
}

func (r *MongoAccountRepository) findAdmin(ctx context.Context, filter bson.M) (*domain.AdminAccount, error) {
	var ma mongoAdmin
	if err := r.admins.FindOne(ctx, filter).Decode(&ma); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find admin: %w", err)
	}
	return &domain.AdminAccount{
		ID:           ma.ID,
		TenantID:     ma.TenantID,
		Email:        ma.Email,
		Name:         ma.Name,
		PasswordHash: ma.PasswordHash,
		Active:       ma.Active,
		CreatedAt:    unixToTime(ma.CreatedAt),
	}, nil
}

func (r *MongoAccountRepository) SuperAdminByID(ctx context.Context, id int64) (*domain.SuperAdminAccount, error) {
	return r.findSuperAdmin(ctx, bson.M{"_id": id})
}

func (r *MongoAccountRepository) SuperAdminByEmail(ctx context.Context, email string) (*domain.SuperAdminAccount, error) {
	return r.findSuperAdmin(ctx, bson.M{"email": strings.ToLower(email)})
}

func (r *MongoAccountRepository) findSuperAdmin(ctx context.Context, filter bson.M) (*domain.SuperAdminAccount, error) {
	var ms mongoSuperAdmin
	if err := r.superAdmins.FindOne(ctx, filter).Decode(&ms); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find super admin: %w", err)
	}
	return &domain.SuperAdminAccount{
		ID:           ms.ID,
		Email:        ms.Email,
		Name:         ms.Name,
		Role:         ms.Role,
		PasswordHash: ms.PasswordHash,
		Active:       ms.Active,
		CreatedAt:    unixToTime(ms.CreatedAt),
	}, nil
}

func (r *MongoAccountRepository) UserByID(ctx context.Context, id int64) (*domain.UserAccount, error) {
	var mu mongoUser
	if err := r.users.FindOne(ctx, bson.M{"_id": id}).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &domain.UserAccount{
		ID:        mu.ID,
		TenantID:  mu.TenantID,
		Email:     mu.Email,
		Name:      mu.Name,
		Active:    mu.Active,
		CreatedAt: unixToTime(mu.CreatedAt),
	}, nil
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}

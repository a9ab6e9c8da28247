package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/caimari/musedock-sub009/internal/core/domain"
)

// tokenCollections maps each user type to its remember token collection.
var tokenCollections = map[domain.UserType]string{
	domain.UserTypeSuperadmin: "super_admin_session_tokens",
	domain.UserTypeAdmin:      "admin_session_tokens",
	domain.UserTypeUser:       "user_session_tokens",
}

type MongoTokenRepository struct {
	colls map[domain.UserType]*mongo.Collection
}

func NewTokenRepository(db *mongo.Database) *MongoTokenRepository {
	colls := make(map[domain.UserType]*mongo.Collection, len(tokenCollections))
	for userType, name := range tokenCollections {
		colls[userType] = db.Collection(name)
	}
	return &MongoTokenRepository{colls: colls}
}

type mongoToken struct {
	TokenHash string    `bson:"token"`
	OwnerID   int64     `bson:"owner_id"`
	TenantID  int64     `bson:"tenant_id,omitempty"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

func (r *MongoTokenRepository) coll(userType domain.UserType) (*mongo.Collection, error) {
	c, ok := r.colls[userType]
	if !ok {
		return nil, fmt.Errorf("remember tokens: unknown user type %q", userType)
	}
	return c, nil
}

func (r *MongoTokenRepository) Create(ctx context.Context, t domain.RememberToken) error {
	c, err := r.coll(t.UserType)
	if err != nil {
		return err
	}
	_, err = c.InsertOne(ctx, mongoToken{
		TokenHash: t.TokenHash,
		OwnerID:   t.OwnerID,
		TenantID:  t.TenantID,
		ExpiresAt: t.ExpiresAt,
		CreatedAt: t.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("insert remember token: %w", err)
	}
	return nil
}

func (r *MongoTokenRepository) Find(ctx context.Context, userType domain.UserType, tokenHash string) (*domain.RememberToken, error) {
	c, err := r.coll(userType)
	if err != nil {
		return nil, err
	}
	var mt mongoToken
	if err := c.FindOne(ctx, bson.M{"token": tokenHash}).Decode(&mt); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, fmt.Errorf("find remember token: %w", err)
	}
	return &domain.RememberToken{
		TokenHash: mt.TokenHash,
		UserType:  userType,
		OwnerID:   mt.OwnerID,
		TenantID:  mt.TenantID,
		ExpiresAt: mt.ExpiresAt,
		CreatedAt: mt.CreatedAt,
	}, nil
}

func (r *MongoTokenRepository) Delete(ctx context.Context, userType domain.UserType, tokenHash string) error {
	c, err := r.coll(userType)
	if err != nil {
		return err
	}
	res, err := c.DeleteOne(ctx, bson.M{"token": tokenHash})
	if err != nil {
		return fmt.Errorf("delete remember token: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrTokenNotFound
	}
	return nil
}

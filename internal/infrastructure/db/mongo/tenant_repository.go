package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/caimari/musedock-sub009/internal/core/domain"
)

const tenantsCollection = "tenants"

type MongoTenantRepository struct {
	coll *mongo.Collection
}

func NewTenantRepository(db *mongo.Database) *MongoTenantRepository {
	return &MongoTenantRepository{coll: db.Collection(tenantsCollection)}
}

type mongoTenant struct {
	ID     int64  `bson:"_id"`
	Name   string `bson:"name"`
	Domain string `bson:"domain"`
	Status string `bson:"status"`
}

func (r *MongoTenantRepository) FindByDomain(ctx context.Context, host string) (*domain.Tenant, error) {
	return r.find(ctx, bson.M{"domain": strings.ToLower(host)})
}

func (r *MongoTenantRepository) FindByID(ctx context.Context, id int64) (*domain.Tenant, error) {
	return r.find(ctx, bson.M{"_id": id})
}

func (r *MongoTenantRepository) find(ctx context.Context, filter bson.M) (*domain.Tenant, error) {
	var mt mongoTenant
	if err := r.coll.FindOne(ctx, filter).Decode(&mt); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTenantNotFound
		}
		return nil, fmt.Errorf("find tenant: %w", err)
	}
	return &domain.Tenant{
		ID:     mt.ID,
		Name:   mt.Name,
		Domain: mt.Domain,
		Active: mt.Status == "active",
	}, nil
}

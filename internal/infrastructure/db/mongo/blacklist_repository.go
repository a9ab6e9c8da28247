package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/caimari/musedock-sub009/internal/core/domain"
)

const blacklistCollection = "ip_blacklist"

type MongoBlacklistRepository struct {
	coll *mongo.Collection
}

func NewBlacklistRepository(db *mongo.Database) *MongoBlacklistRepository {
	return &MongoBlacklistRepository{coll: db.Collection(blacklistCollection)}
}

type mongoBlacklistEntry struct {
	IP        string     `bson:"ip"`
	Reason    string     `bson:"reason,omitempty"`
	ExpiresAt *time.Time `bson:"expires_at"`
	CreatedAt time.Time  `bson:"created_at"`
}

// activeFilter matches entries without expiry or expiring after now.
func activeFilter(now time.Time) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"expires_at": nil},
		bson.M{"expires_at": bson.M{"$gt": now}},
	}}
}

func (r *MongoBlacklistRepository) IsBlacklisted(ctx context.Context, ip string, now time.Time) (bool, error) {
	filter := activeFilter(now)
	filter["ip"] = ip
	n, err := r.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("blacklist lookup: %w", err)
	}
	return n > 0, nil
}

func (r *MongoBlacklistRepository) List(ctx context.Context, now time.Time) ([]domain.BlacklistEntry, error) {
	cur, err := r.coll.Find(ctx, activeFilter(now), options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list blacklist: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoBlacklistEntry
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode blacklist: %w", err)
	}
	out := make([]domain.BlacklistEntry, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.BlacklistEntry{IP: d.IP, Reason: d.Reason, ExpiresAt: d.ExpiresAt, CreatedAt: d.CreatedAt})
	}
	return out, nil
}

// Add inserts or replaces the entry for the IP.
func (r *MongoBlacklistRepository) Add(ctx context.Context, e domain.BlacklistEntry) error {
	doc := mongoBlacklistEntry{IP: e.IP, Reason: e.Reason, ExpiresAt: e.ExpiresAt, CreatedAt: e.CreatedAt}
	_, err := r.coll.ReplaceOne(ctx, bson.M{"ip": e.IP}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("add blacklist entry: %w", err)
	}
	return nil
}

func (r *MongoBlacklistRepository) Remove(ctx context.Context, ip string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"ip": ip})
	if err != nil {
		return fmt.Errorf("remove blacklist entry: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrBlacklistNotFound
	}
	return nil
}

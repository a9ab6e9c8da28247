package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/caimari/musedock-sub009/internal/core/domain"
)

const rateLimitsCollection = "rate_limits"

// MongoRateLimitStore keeps fixed-window counters in the rate_limits
// collection. Increments are atomic per identifier.
type MongoRateLimitStore struct {
	coll *mongo.Collection
}

func NewRateLimitStore(db *mongo.Database) *MongoRateLimitStore {
	return &MongoRateLimitStore{coll: db.Collection(rateLimitsCollection)}
}

type mongoRateLimit struct {
	Identifier string    `bson:"identifier"`
	Attempts   int       `bson:"attempts"`
	ExpiresAt  time.Time `bson:"expires_at"`
}

func (s *MongoRateLimitStore) Purge(ctx context.Context, now time.Time) error {
	if _, err := s.coll.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": now}}); err != nil {
		return fmt.Errorf("purge rate limits: %w", err)
	}
	return nil
}

func (s *MongoRateLimitStore) Hit(ctx context.Context, identifier string, window time.Duration, now time.Time) (domain.RateLimitRecord, error) {
	rec, err := s.hit(ctx, identifier, window, now)
	if mongo.IsDuplicateKeyError(err) {
		// An expired record for this identifier survived the purge; drop it
		// and start the window again.
		if _, delErr := s.coll.DeleteOne(ctx, bson.M{"identifier": identifier, "expires_at": bson.M{"$lte": now}}); delErr != nil {
			return domain.RateLimitRecord{}, fmt.Errorf("rate limit hit: %w", delErr)
		}
		rec, err = s.hit(ctx, identifier, window, now)
	}
	if err != nil {
		return domain.RateLimitRecord{}, fmt.Errorf("rate limit hit: %w", err)
	}
	return rec, nil
}

func (s *MongoRateLimitStore) hit(ctx context.Context, identifier string, window time.Duration, now time.Time) (domain.RateLimitRecord, error) {
	filter := bson.M{"identifier": identifier, "expires_at": bson.M{"$gt": now}}
	update := bson.M{
		"$inc":         bson.M{"attempts": 1},
		"$setOnInsert": bson.M{"expires_at": now.Add(window)},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc mongoRateLimit
	if err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.RateLimitRecord{}, fmt.Errorf("upsert returned no document")
		}
		return domain.RateLimitRecord{}, err
	}
	return domain.RateLimitRecord{
		Identifier: doc.Identifier,
		Attempts:   doc.Attempts,
		ExpiresAt:  doc.ExpiresAt,
	}, nil
}

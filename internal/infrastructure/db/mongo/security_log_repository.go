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

const securityLogsCollection = "security_logs"

type MongoSecurityLogRepository struct {
	coll *mongo.Collection
}

func NewSecurityLogRepository(db *mongo.Database) *MongoSecurityLogRepository {
	return &MongoSecurityLogRepository{coll: db.Collection(securityLogsCollection)}
}

type mongoSecurityEvent struct {
	Type       string    `bson:"event_type"`
	Severity   string    `bson:"severity"`
	IP         string    `bson:"ip_address,omitempty"`
	Path       string    `bson:"path,omitempty"`
	UserID     int64     `bson:"user_id,omitempty"`
	UserType   string    `bson:"user_type,omitempty"`
	TenantID   int64     `bson:"tenant_id,omitempty"`
	Detail     string    `bson:"details,omitempty"`
	OccurredAt time.Time `bson:"created_at"`
}

func (r *MongoSecurityLogRepository) Insert(ctx context.Context, e domain.SecurityEvent) error {
	_, err := r.coll.InsertOne(ctx, mongoSecurityEvent{
		Type:       string(e.Type),
		Severity:   string(e.Severity),
		IP:         e.IP,
		Path:       e.Path,
		UserID:     e.UserID,
		UserType:   string(e.UserType),
		TenantID:   e.TenantID,
		Detail:     e.Detail,
		OccurredAt: e.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("insert security log: %w", err)
	}
	return nil
}

// Recent returns the newest events, newest first. tenantID 0 returns events
// of every tenant.
func (r *MongoSecurityLogRepository) Recent(ctx context.Context, tenantID int64, limit int) ([]domain.SecurityEvent, error) {
	filter := bson.M{}
	if tenantID != 0 {
		filter["tenant_id"] = tenantID
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list security logs: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoSecurityEvent
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode security logs: %w", err)
	}
	out := make([]domain.SecurityEvent, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.SecurityEvent{
			Type:       domain.SecurityEventType(d.Type),
			Severity:   domain.Severity(d.Severity),
			IP:         d.IP,
			Path:       d.Path,
			UserID:     d.UserID,
			UserType:   domain.UserType(d.UserType),
			TenantID:   d.TenantID,
			Detail:     d.Detail,
			OccurredAt: d.OccurredAt,
		})
	}
	return out, nil
}

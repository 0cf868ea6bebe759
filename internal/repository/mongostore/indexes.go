package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	GPSFixCollection       = "gps_fixes"
	MessageCollection      = "chat_messages"
	DisputeCollection      = "disputes"
	NotificationCollection = "notifications"
)

// EnsureIndexes creates the indexes the repositories query on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	fixes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "trip_id", Value: 1}, {Key: "timestamp", Value: 1}}},
		{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
	}
	if _, err := db.Collection(GPSFixCollection).Indexes().CreateMany(ctx, fixes); err != nil {
		return fmt.Errorf("failed to create gps fix indexes: %w", err)
	}

	messages := []mongo.IndexModel{
		{Keys: bson.D{{Key: "trip_id", Value: 1}, {Key: "timestamp", Value: 1}}},
		{Keys: bson.D{{Key: "sender_id", Value: 1}}, Options: options.Index().SetSparse(true)},
	}
	if _, err := db.Collection(MessageCollection).Indexes().CreateMany(ctx, messages); err != nil {
		return fmt.Errorf("failed to create chat message indexes: %w", err)
	}

	// At most one open dispute per trip.
	disputes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "trip_id", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": "open"}).
				SetName("trip_open_dispute"),
		},
		{Keys: bson.D{{Key: "reporter_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}
	if _, err := db.Collection(DisputeCollection).Indexes().CreateMany(ctx, disputes); err != nil {
		return fmt.Errorf("failed to create dispute indexes: %w", err)
	}

	notifications := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}
	if _, err := db.Collection(NotificationCollection).Indexes().CreateMany(ctx, notifications); err != nil {
		return fmt.Errorf("failed to create notification indexes: %w", err)
	}

	return nil
}

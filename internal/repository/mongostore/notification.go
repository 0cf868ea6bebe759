package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"parcelroute/internal/domain"
	"parcelroute/internal/repository"
)

type notificationDocument struct {
	ID        string            `bson:"_id"`
	UserID    string            `bson:"user_id"`
	Type      string            `bson:"type"`
	Title     string            `bson:"title"`
	Body      string            `bson:"body"`
	Data      map[string]string `bson:"data,omitempty"`
	Read      bool              `bson:"read"`
	ReadAt    *time.Time        `bson:"read_at,omitempty"`
	CreatedAt time.Time         `bson:"created_at"`
}

func (d notificationDocument) toDomain() *domain.Notification {
	return &domain.Notification{
		ID:        d.ID,
		UserID:    d.UserID,
		Type:      d.Type,
		Title:     d.Title,
		Body:      d.Body,
		Data:      d.Data,
		Read:      d.Read,
		ReadAt:    d.ReadAt,
		CreatedAt: d.CreatedAt,
	}
}

// NotificationRepository stores the in-app inbox in MongoDB.
type NotificationRepository struct {
	coll *mongo.Collection
}

// NewNotificationRepository creates a notification repository on db.
func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{coll: db.Collection(NotificationCollection)}
}

// Create stores a notification.
func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	doc := notificationDocument{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      n.Type,
		Title:     n.Title,
		Body:      n.Body,
		Data:      n.Data,
		Read:      n.Read,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// GetByID retrieves a notification by ID.
func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	var doc notificationDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

// ListByUser returns a user's notifications, newest first.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.coll.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []notificationDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	inbox := make([]*domain.Notification, 0, len(docs))
	for _, d := range docs {
		inbox = append(inbox, d.toDomain())
	}
	return inbox, nil
}

// MarkRead flags a notification as read. The filter on read keeps the first
// read time when the call is repeated.
func (r *NotificationRepository) MarkRead(ctx context.Context, id string, at time.Time) error {
	result, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "read": false},
		bson.M{"$set": bson.M{"read": true, "read_at": at}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		_, err := r.GetByID(ctx, id)
		return err
	}
	return nil
}

var _ repository.NotificationRepository = (*NotificationRepository)(nil)

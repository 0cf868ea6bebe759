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

type messageDocument struct {
	ID         string     `bson:"_id"`
	TripID     string     `bson:"trip_id"`
	SenderID   string     `bson:"sender_id"`
	ReceiverID string     `bson:"receiver_id,omitempty"`
	Body       string     `bson:"body"`
	Timestamp  time.Time  `bson:"timestamp"`
	ReadBy     []string   `bson:"read_by"`
	DeletedAt  *time.Time `bson:"deleted_at,omitempty"`
}

func (d messageDocument) toDomain() *domain.ChatMessage {
	return &domain.ChatMessage{
		ID:         d.ID,
		TripID:     d.TripID,
		SenderID:   d.SenderID,
		ReceiverID: d.ReceiverID,
		Body:       d.Body,
		Timestamp:  d.Timestamp,
		ReadBy:     d.ReadBy,
		DeletedAt:  d.DeletedAt,
	}
}

// ChatRepository stores trip chat messages in MongoDB.
type ChatRepository struct {
	coll *mongo.Collection
}

// NewChatRepository creates a chat repository on db.
func NewChatRepository(db *mongo.Database) *ChatRepository {
	return &ChatRepository{coll: db.Collection(MessageCollection)}
}

// Append stores a message.
func (r *ChatRepository) Append(ctx context.Context, msg *domain.ChatMessage) error {
	readBy := msg.ReadBy
	if readBy == nil {
		readBy = []string{}
	}
	doc := messageDocument{
		ID:         msg.ID,
		TripID:     msg.TripID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Body:       msg.Body,
		Timestamp:  msg.Timestamp,
		ReadBy:     readBy,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert chat message: %w", err)
	}
	return nil
}

// GetByID retrieves a message by ID.
func (r *ChatRepository) GetByID(ctx context.Context, id string) (*domain.ChatMessage, error) {
	var doc messageDocument
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

// ListByTrip returns a trip's live messages ordered by timestamp ascending.
func (r *ChatRepository) ListByTrip(ctx context.Context, tripID string, page repository.MessagePage) ([]*domain.ChatMessage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})
	if page.Limit > 0 {
		p := page.Page
		if p < 1 {
			p = 1
		}
		opts.SetSkip(int64((p - 1) * page.Limit)).SetLimit(int64(page.Limit))
	}

	cursor, err := r.coll.Find(ctx, bson.M{
		"trip_id":    tripID,
		"deleted_at": bson.M{"$exists": false},
	}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []messageDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	messages := make([]*domain.ChatMessage, 0, len(docs))
	for _, d := range docs {
		messages = append(messages, d.toDomain())
	}
	return messages, nil
}

// MarkRead adds userID to the message's readBy set.
func (r *ChatRepository) MarkRead(ctx context.Context, messageID, userID string) error {
	result, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": messageID},
		bson.M{"$addToSet": bson.M{"read_by": userID}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Retract marks a message withdrawn. The document stays in the log.
func (r *ChatRepository) Retract(ctx context.Context, messageID string, at time.Time) error {
	result, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": messageID, "deleted_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"deleted_at": at}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		_, err := r.GetByID(ctx, messageID)
		return err
	}
	return nil
}

var _ repository.ChatRepository = (*ChatRepository)(nil)

package repository

import (
	"context"
	"time"

	"parcelroute/internal/domain"
)

// MessagePage selects a window of a trip's chat history. A zero Limit means
// the whole history.
type MessagePage struct {
	Limit int
	Page  int // 1-based
}

// ChatRepository is the message log of trip rooms. Messages are never
// removed; a retraction only marks them.
type ChatRepository interface {
	// Append stores a message.
	Append(ctx context.Context, msg *domain.ChatMessage) error

	// GetByID retrieves a message by ID.
	GetByID(ctx context.Context, id string) (*domain.ChatMessage, error)

	// ListByTrip returns a trip's messages ordered by timestamp ascending,
	// leaving out retracted ones.
	ListByTrip(ctx context.Context, tripID string, page MessagePage) ([]*domain.ChatMessage, error)

	// MarkRead adds userID to the message's readBy set. Repeating it is a no-op.
	MarkRead(ctx context.Context, messageID, userID string) error

	// Retract marks a message withdrawn at the given time. Retracting twice
	// keeps the first time.
	Retract(ctx context.Context, messageID string, at time.Time) error
}

package repository

import (
	"context"
	"time"

	"parcelroute/internal/domain"
)

// NotificationRepository is the per-user in-app inbox.
type NotificationRepository interface {
	// Create stores a notification.
	Create(ctx context.Context, n *domain.Notification) error

	// GetByID retrieves a notification by ID.
	GetByID(ctx context.Context, id string) (*domain.Notification, error)

	// ListByUser returns a user's notifications, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Notification, error)

	// MarkRead flags a notification as read at the given time. Marking an
	// already read notification keeps the first read time.
	MarkRead(ctx context.Context, id string, at time.Time) error
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"parcelroute/internal/domain"
	"parcelroute/internal/notify"
	"parcelroute/internal/repository"
)

const defaultInboxLimit = 50

// Notification types.
const (
	NotificationMatchAccepted   = "MATCH_ACCEPTED"
	NotificationTrackingStarted = "TRACKING_STARTED"
	NotificationDelivered       = "DELIVERED"
	NotificationTripCancelled   = "TRIP_CANCELLED"
	NotificationTripDisputed    = "TRIP_DISPUTED"
	NotificationNewMessage      = "NEW_MESSAGE"
)

// PushSender delivers a notification to one user's devices.
type PushSender interface {
	Send(ctx context.Context, n notify.Notification) error
}

// NotificationService turns trip and chat activity into inbox entries and
// push notifications. Delivery is best effort: failures are logged, never
// returned to the operation that triggered them.
type NotificationService struct {
	sender PushSender
	inbox  repository.NotificationRepository
	logger logrus.FieldLogger
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(sender PushSender, inbox repository.NotificationRepository, logger logrus.FieldLogger) *NotificationService {
	return &NotificationService{sender: sender, inbox: inbox, logger: logger}
}

// ListInbox returns a user's notifications, newest first. Users read their
// own inbox; admins may read anyone's.
func (s *NotificationService) ListInbox(ctx context.Context, p domain.Principal, userID string, limit int) ([]*domain.Notification, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	if !p.IsAdmin() && p.UserID != userID {
		return nil, ErrNotInboxOwner
	}
	if limit <= 0 || limit > defaultInboxLimit {
		limit = defaultInboxLimit
	}
	return s.inbox.ListByUser(ctx, userID, limit)
}

// MarkRead flags one of the caller's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, p domain.Principal, notificationID string) (*domain.Notification, error) {
	if notificationID == "" {
		return nil, ErrInvalidNotificationID
	}

	n, err := s.inbox.GetByID(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.UserID != p.UserID {
		return nil, ErrNotInboxOwner
	}
	if n.Read {
		return n, nil
	}

	if err := s.inbox.MarkRead(ctx, notificationID, time.Now()); err != nil {
		return nil, err
	}
	return s.inbox.GetByID(ctx, notificationID)
}

// NotifyMatchAccepted tells the traveler a shipper picked them.
func (s *NotificationService) NotifyMatchAccepted(ctx context.Context, trip *domain.Trip) {
	s.send(ctx, notify.Notification{
		Type:        NotificationMatchAccepted,
		RecipientID: trip.TravelerID,
		Title:       "New delivery",
		Body:        fmt.Sprintf("You have been matched with a package. Fare: %.2f", trip.Fare),
		Data:        tripData(trip),
	})
}

// NotifyTrackingStarted tells the shipper the package is on its way.
func (s *NotificationService) NotifyTrackingStarted(ctx context.Context, trip *domain.Trip) {
	s.send(ctx, notify.Notification{
		Type:        NotificationTrackingStarted,
		RecipientID: trip.ShipperID,
		Title:       "Package in transit",
		Body:        "Your package has been picked up.",
		Data:        tripData(trip),
	})
}

// NotifyDelivered tells the shipper the package arrived.
func (s *NotificationService) NotifyDelivered(ctx context.Context, trip *domain.Trip) {
	s.send(ctx, notify.Notification{
		Type:        NotificationDelivered,
		RecipientID: trip.ShipperID,
		Title:       "Package delivered",
		Body:        "Your package has been delivered.",
		Data:        tripData(trip),
	})
}

// NotifyTripCancelled tells the other participant that the trip was cancelled.
func (s *NotificationService) NotifyTripCancelled(ctx context.Context, trip *domain.Trip, travelerID, cancelledBy string) {
	recipientID := trip.ShipperID
	if cancelledBy == trip.ShipperID {
		recipientID = travelerID
	}
	if recipientID == "" || recipientID == cancelledBy {
		return
	}

	data := tripData(trip)
	data["cancelled_by"] = cancelledBy
	s.send(ctx, notify.Notification{
		Type:        NotificationTripCancelled,
		RecipientID: recipientID,
		Title:       "Trip cancelled",
		Body:        "A trip you are part of has been cancelled.",
		Data:        data,
	})
}

// NotifyTripDisputed tells both participants that a dispute was opened.
func (s *NotificationService) NotifyTripDisputed(ctx context.Context, trip *domain.Trip, dispute *domain.Dispute) {
	for _, id := range []string{trip.ShipperID, trip.TravelerID} {
		if id == "" {
			continue
		}
		data := tripData(trip)
		data["dispute_id"] = dispute.ID
		data["dispute_type"] = string(dispute.Type)
		s.send(ctx, notify.Notification{
			Type:        NotificationTripDisputed,
			RecipientID: id,
			Title:       "Dispute opened",
			Body:        "A dispute was opened on your trip. Funds are on hold until it is resolved.",
			Data:        data,
		})
	}
}

// NotifyNewMessage tells a participant who is not in the room about a chat message.
func (s *NotificationService) NotifyNewMessage(ctx context.Context, msg *domain.ChatMessage, recipientID string) {
	body := msg.Body
	if r := []rune(body); len(r) > 120 {
		body = string(r[:117]) + "..."
	}
	s.send(ctx, notify.Notification{
		Type:        NotificationNewMessage,
		RecipientID: recipientID,
		Title:       "New message",
		Body:        body,
		Data: map[string]string{
			"trip_id":    msg.TripID,
			"message_id": msg.ID,
			"sender_id":  msg.SenderID,
		},
	})
}

func tripData(trip *domain.Trip) map[string]string {
	return map[string]string{
		"trip_id": trip.ID,
		"status":  string(trip.Status),
	}
}

func (s *NotificationService) send(ctx context.Context, n notify.Notification) {
	if n.RecipientID == "" {
		return
	}

	entry := &domain.Notification{
		ID:        uuid.New().String(),
		UserID:    n.RecipientID,
		Type:      n.Type,
		Title:     n.Title,
		Body:      n.Body,
		Data:      n.Data,
		CreatedAt: time.Now(),
	}
	if err := s.inbox.Create(ctx, entry); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"type":      n.Type,
			"recipient": n.RecipientID,
		}).Warn("failed to store notification")
	}

	if err := s.sender.Send(ctx, n); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"type":      n.Type,
			"recipient": n.RecipientID,
		}).Warn("failed to send notification")
	}
}

package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"parcelroute/internal/domain"
	"parcelroute/internal/observability"
	"parcelroute/internal/realtime"
	"parcelroute/internal/repository"
)

const (
	defaultHistoryPageSize = 50
	maxHistoryPageSize     = 200
	maxMessageLength       = 4000
)

// ChatRooms is the room membership the chat coordinator works against.
type ChatRooms interface {
	Broadcaster
	Join(ctx context.Context, tripID string, h realtime.Handle) error
	Leave(tripID string, h realtime.Handle)
	LeaveAll(h realtime.Handle) []string
	IsMember(tripID, handleID string) bool
}

// monotonicClock hands out strictly increasing millisecond timestamps, the
// precision the message store keeps.
type monotonicClock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func (c *monotonicClock) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Truncate(time.Millisecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Millisecond)
	}
	c.last = t
	return t
}

// ChatService coordinates per-trip chat rooms.
type ChatService struct {
	chatRepo repository.ChatRepository
	tripRepo repository.TripRepository
	rooms    ChatRooms
	notifier *NotificationService
	clock    *monotonicClock
	logger   logrus.FieldLogger
}

// NewChatService creates a new ChatService.
func NewChatService(
	chatRepo repository.ChatRepository,
	tripRepo repository.TripRepository,
	rooms ChatRooms,
	notifier *NotificationService,
	logger logrus.FieldLogger,
) *ChatService {
	return &ChatService{
		chatRepo: chatRepo,
		tripRepo: tripRepo,
		rooms:    rooms,
		notifier: notifier,
		clock:    &monotonicClock{now: time.Now},
		logger:   logger,
	}
}

// JoinRoom adds the handle to the trip's room and returns the full history,
// oldest first.
func (s *ChatService) JoinRoom(ctx context.Context, h realtime.Handle, tripID string) ([]*domain.ChatMessage, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}
	if err := s.rooms.Join(ctx, tripID, h); err != nil {
		return nil, err
	}

	history, err := s.chatRepo.ListByTrip(ctx, tripID, repository.MessagePage{})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"trip_id": tripID,
		"user_id": h.Principal().UserID,
		"history": len(history),
	}).Debug("joined trip room")

	return history, nil
}

// LeaveRoom removes the handle from the trip's room. Leaving twice is fine.
func (s *ChatService) LeaveRoom(tripID string, h realtime.Handle) {
	s.rooms.Leave(tripID, h)
}

// Disconnect removes the handle from every room it joined.
func (s *ChatService) Disconnect(h realtime.Handle) {
	trips := s.rooms.LeaveAll(h)
	if len(trips) > 0 {
		s.logger.WithFields(logrus.Fields{
			"handle_id": h.ID(),
			"rooms":     len(trips),
		}).Debug("connection left rooms")
	}
}

// SendMessageRequest contains the parameters for sending a chat message.
type SendMessageRequest struct {
	TripID     string
	Body       string
	ReceiverID string
}

// SendMessage stores a message and delivers it to everyone in the room,
// sender included. Participants who are not in the room get a push
// notification instead.
func (s *ChatService) SendMessage(ctx context.Context, h realtime.Handle, req SendMessageRequest) (*domain.ChatMessage, error) {
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, ErrEmptyMessage
	}
	if len([]rune(body)) > maxMessageLength {
		return nil, ErrMessageTooLong
	}
	if req.TripID == "" {
		return nil, ErrInvalidTripID
	}
	if !s.rooms.IsMember(req.TripID, h.ID()) {
		return nil, ErrNotInRoom
	}

	trip, err := s.tripRepo.GetByID(ctx, req.TripID)
	if err != nil {
		return nil, err
	}

	sender := h.Principal().UserID
	receiver := otherParticipant(trip, sender)
	if req.ReceiverID != "" && req.ReceiverID != receiver {
		// Only an admin sender can address either participant.
		if req.ReceiverID == sender || !trip.IsParticipant(req.ReceiverID) {
			return nil, ErrInvalidReceiver
		}
		receiver = req.ReceiverID
	}

	msg := &domain.ChatMessage{
		ID:         uuid.New().String(),
		TripID:     req.TripID,
		SenderID:   sender,
		ReceiverID: receiver,
		Body:       body,
		Timestamp:  s.clock.Next(),
		ReadBy:     []string{},
	}

	if err := s.chatRepo.Append(ctx, msg); err != nil {
		return nil, err
	}
	observability.ChatMessagesTotal.Inc()

	s.rooms.Broadcast(msg.TripID, realtime.Event{
		Name: realtime.EventReceiveMessage,
		Data: realtime.NewMessagePayload(msg),
	}, "")

	for _, id := range []string{trip.ShipperID, trip.TravelerID} {
		if id == "" || id == sender || s.rooms.HasUser(trip.ID, id) {
			continue
		}
		s.notifier.NotifyNewMessage(ctx, msg, id)
	}

	return msg, nil
}

// Typing tells the rest of the room that the handle's user is typing.
func (s *ChatService) Typing(h realtime.Handle, tripID string) error {
	return s.typing(h, tripID, realtime.EventUserTyping)
}

// StopTyping tells the rest of the room that the handle's user stopped typing.
func (s *ChatService) StopTyping(h realtime.Handle, tripID string) error {
	return s.typing(h, tripID, realtime.EventUserStoppedTyping)
}

func (s *ChatService) typing(h realtime.Handle, tripID, event string) error {
	if tripID == "" {
		return ErrInvalidTripID
	}
	if !s.rooms.IsMember(tripID, h.ID()) {
		return ErrNotInRoom
	}
	s.rooms.Broadcast(tripID, realtime.Event{
		Name: event,
		Data: realtime.TypingPayload{TripID: tripID, UserID: h.Principal().UserID},
	}, h.ID())
	return nil
}

// MarkRead records that the handle's user read a message and confirms it to
// the room. Marking a message twice is a no-op apart from the confirmation.
func (s *ChatService) MarkRead(ctx context.Context, h realtime.Handle, tripID, messageID string) error {
	if tripID == "" {
		return ErrInvalidTripID
	}
	if messageID == "" {
		return ErrInvalidMessageID
	}
	if !s.rooms.IsMember(tripID, h.ID()) {
		return ErrNotInRoom
	}

	msg, err := s.chatRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.TripID != tripID || msg.Retracted() {
		return repository.ErrNotFound
	}

	userID := h.Principal().UserID
	if err := s.chatRepo.MarkRead(ctx, messageID, userID); err != nil {
		return err
	}

	s.rooms.Broadcast(tripID, realtime.Event{
		Name: realtime.EventMessageReadConfirmation,
		Data: realtime.ReadConfirmationPayload{TripID: tripID, MessageID: messageID, UserID: userID},
	}, "")
	return nil
}

// History returns one page of a trip's messages, oldest first.
func (s *ChatService) History(ctx context.Context, p domain.Principal, tripID string, page repository.MessagePage) ([]*domain.ChatMessage, error) {
	if err := s.authorize(ctx, p, tripID); err != nil {
		return nil, err
	}

	if page.Limit <= 0 {
		page.Limit = defaultHistoryPageSize
	}
	if page.Limit > maxHistoryPageSize {
		page.Limit = maxHistoryPageSize
	}
	if page.Page < 1 {
		page.Page = 1
	}
	return s.chatRepo.ListByTrip(ctx, tripID, page)
}

// DeleteMessage retracts a message so it no longer shows in history. The
// log keeps it. Only its sender may delete it.
func (s *ChatService) DeleteMessage(ctx context.Context, p domain.Principal, tripID, messageID string) error {
	if messageID == "" {
		return ErrInvalidMessageID
	}
	if err := s.authorize(ctx, p, tripID); err != nil {
		return err
	}

	msg, err := s.chatRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.TripID != tripID || msg.Retracted() {
		return repository.ErrNotFound
	}
	if msg.SenderID != p.UserID {
		return ErrNotMessageSender
	}

	if err := s.chatRepo.Retract(ctx, messageID, time.Now()); err != nil {
		return err
	}

	s.rooms.Broadcast(tripID, realtime.Event{
		Name: realtime.EventMessageDeleted,
		Data: realtime.MessageDeletedPayload{TripID: tripID, MessageID: messageID},
	}, "")
	return nil
}

func (s *ChatService) authorize(ctx context.Context, p domain.Principal, tripID string) error {
	if tripID == "" {
		return ErrInvalidTripID
	}
	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return err
	}
	if !p.IsAdmin() && !trip.IsParticipant(p.UserID) {
		return ErrNotTripParticipant
	}
	return nil
}

func otherParticipant(trip *domain.Trip, userID string) string {
	if userID == trip.ShipperID {
		return trip.TravelerID
	}
	return trip.ShipperID
}

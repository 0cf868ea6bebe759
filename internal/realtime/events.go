package realtime

import (
	"encoding/json"
	"time"

	"parcelroute/internal/domain"
)

// Inbound event names.
const (
	EventJoinRoom    = "joinRoom"
	EventLeaveRoom   = "leaveRoom"
	EventSendMessage = "sendMessage"
	EventTyping      = "typing"
	EventStopTyping  = "stopTyping"
	EventMessageRead = "messageRead"
	EventGPSUpdate   = "gpsUpdate"
)

// Outbound event names.
const (
	EventJoinedRoom              = "joinedRoom"
	EventLeftRoom                = "leftRoom"
	EventLoadMessages            = "loadMessages"
	EventReceiveMessage          = "receiveMessage"
	EventUserTyping              = "userTyping"
	EventUserStoppedTyping       = "userStoppedTyping"
	EventMessageReadConfirmation = "messageReadConfirmation"
	EventLocationUpdate          = "locationUpdate"
	EventTripStatusUpdate        = "tripStatusUpdate"
	EventMessageDeleted          = "messageDeleted"
	EventError                   = "error"
)

// ErrorEventName returns the name of the error reply for an inbound event.
func ErrorEventName(inbound string) string {
	return inbound + "Error"
}

// Event is an outbound message. It is encoded as {"event": ..., "data": ...}.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data,omitempty"`
}

// InboundEvent is a message received from a client.
type InboundEvent struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

// Inbound payloads.

type RoomRequest struct {
	TripID string `json:"tripId"`
}

type SendMessageRequest struct {
	TripID     string `json:"tripId"`
	Body       string `json:"message"`
	ReceiverID string `json:"receiverId,omitempty"`
}

type MessageReadRequest struct {
	TripID    string `json:"tripId"`
	MessageID string `json:"messageId"`
}

type GPSUpdateRequest struct {
	TripID   string   `json:"tripId"`
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
	Accuracy *float64 `json:"accuracy,omitempty"`
	Speed    *float64 `json:"speed,omitempty"`
	Altitude *float64 `json:"altitude,omitempty"`
}

// Outbound payloads.

type RoomPayload struct {
	TripID string `json:"tripId"`
}

type MessagePayload struct {
	ID         string    `json:"id"`
	TripID     string    `json:"tripId"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId,omitempty"`
	Body       string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
	ReadBy     []string  `json:"readBy"`
}

// NewMessagePayload converts a stored message to its wire form.
func NewMessagePayload(m *domain.ChatMessage) MessagePayload {
	readBy := m.ReadBy
	if readBy == nil {
		readBy = []string{}
	}
	return MessagePayload{
		ID:         m.ID,
		TripID:     m.TripID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Body:       m.Body,
		Timestamp:  m.Timestamp,
		ReadBy:     readBy,
	}
}

type LoadMessagesPayload struct {
	TripID   string           `json:"tripId"`
	Messages []MessagePayload `json:"messages"`
}

type TypingPayload struct {
	TripID string `json:"tripId"`
	UserID string `json:"userId"`
}

type ReadConfirmationPayload struct {
	TripID    string `json:"tripId"`
	MessageID string `json:"messageId"`
	UserID    string `json:"userId"`
}

type MessageDeletedPayload struct {
	TripID    string `json:"tripId"`
	MessageID string `json:"messageId"`
}

type LocationPayload struct {
	TripID    string    `json:"tripId"`
	UserID    string    `json:"userId"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
	Speed     *float64  `json:"speed,omitempty"`
	Altitude  *float64  `json:"altitude,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type TripStatusPayload struct {
	TripID        string `json:"tripId"`
	Status        string `json:"status"`
	TravelerID    string `json:"travelerId,omitempty"`
	StatusVersion int64  `json:"statusVersion"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

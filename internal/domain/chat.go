package domain

import "time"

// ChatMessage is a message exchanged inside a trip's room. A retracted
// message stays in the log with DeletedAt set and is left out of history.
type ChatMessage struct {
	ID         string
	TripID     string
	SenderID   string
	ReceiverID string
	Body       string
	Timestamp  time.Time
	ReadBy     []string
	DeletedAt  *time.Time
}

// Retracted reports whether the sender withdrew the message.
func (m *ChatMessage) Retracted() bool {
	return m.DeletedAt != nil
}

// ReadByUser reports whether userID has marked the message as read.
func (m *ChatMessage) ReadByUser(userID string) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}

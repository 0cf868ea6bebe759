package domain

import "time"

// Notification is an entry in a user's in-app inbox. Every push the platform
// sends is also kept here so a user without a registered device still sees it.
type Notification struct {
	ID        string
	UserID    string
	Type      string
	Title     string
	Body      string
	Data      map[string]string
	Read      bool
	ReadAt    *time.Time
	CreatedAt time.Time
}

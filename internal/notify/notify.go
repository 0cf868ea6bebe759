// Package notify delivers push notifications to users' devices.
package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Notification is a push message addressed to one user.
type Notification struct {
	Type        string
	RecipientID string
	Title       string
	Body        string
	Data        map[string]string
}

// LogSender writes notifications to the log instead of delivering them.
type LogSender struct {
	Logger logrus.FieldLogger
}

// Send logs the notification.
func (s LogSender) Send(_ context.Context, n Notification) error {
	s.Logger.WithFields(logrus.Fields{
		"type":      n.Type,
		"recipient": n.RecipientID,
		"title":     n.Title,
	}).Info("notification")
	return nil
}

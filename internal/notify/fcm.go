package notify

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// UserTopic is the FCM topic a user's devices subscribe to.
func UserTopic(userID string) string {
	return "user_" + userID
}

// FCMSender delivers notifications through Firebase Cloud Messaging.
type FCMSender struct {
	client *messaging.Client
}

// NewFCMSender initialises a Firebase app from a service account file.
func NewFCMSender(ctx context.Context, projectID, credentialsFile string) (*FCMSender, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialising firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialising firebase messaging client: %w", err)
	}

	return &FCMSender{client: client}, nil
}

// Send publishes the notification to the recipient's user topic.
func (s *FCMSender) Send(ctx context.Context, n Notification) error {
	data := make(map[string]string, len(n.Data)+1)
	for k, v := range n.Data {
		data[k] = v
	}
	data["type"] = n.Type

	msg := &messaging.Message{
		Topic: UserTopic(n.RecipientID),
		Data:  data,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Body,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}

	if _, err := s.client.Send(ctx, msg); err != nil {
		return fmt.Errorf("sending FCM to %s: %w", n.RecipientID, err)
	}
	return nil
}

// Package ingest accepts GPS fixes from tracking devices that speak MQTT
// rather than WebSocket.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"parcelroute/internal/domain"
	"parcelroute/internal/service"
)

const (
	connectTimeout = 10 * time.Second
	handleTimeout  = 5 * time.Second
	quiesceMillis  = 250
)

// ErrBadTopic is returned for topics that do not name a trip.
var ErrBadTopic = fmt.Errorf("%w: topic must be <prefix>/trips/<tripId>/gps", domain.ErrValidation)

// TokenValidator resolves a device's bearer credential to a principal.
type TokenValidator interface {
	Validate(token string) (domain.Principal, error)
}

// FixRecorder stores a GPS fix.
type FixRecorder interface {
	RecordFix(ctx context.Context, req service.RecordFixRequest) (*domain.GPSFix, error)
}

// Options configures the broker connection.
type Options struct {
	BrokerURL   string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// fixMessage is the JSON body a device publishes. The token carries the
// traveler's identity; devices hold the same credential the app does.
type fixMessage struct {
	Token     string     `json:"token"`
	Lat       float64    `json:"lat"`
	Lng       float64    `json:"lng"`
	Accuracy  *float64   `json:"accuracy,omitempty"`
	Speed     *float64   `json:"speed,omitempty"`
	Altitude  *float64   `json:"altitude,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// MQTTBridge subscribes to device fixes and feeds them to the tracking
// service.
type MQTTBridge struct {
	opts     Options
	tokens   TokenValidator
	recorder FixRecorder
	logger   logrus.FieldLogger
	client   mqtt.Client
}

// NewMQTTBridge creates a bridge. Call Start to connect.
func NewMQTTBridge(opts Options, tokens TokenValidator, recorder FixRecorder, logger logrus.FieldLogger) *MQTTBridge {
	return &MQTTBridge{
		opts:     opts,
		tokens:   tokens,
		recorder: recorder,
		logger:   logger.WithField("component", "mqtt"),
	}
}

// Topic returns the subscription filter.
func (b *MQTTBridge) Topic() string {
	return strings.TrimSuffix(b.opts.TopicPrefix, "/") + "/trips/+/gps"
}

// Start connects to the broker. The subscription is renewed on every
// reconnect.
func (b *MQTTBridge) Start() error {
	opts := mqtt.NewClientOptions().
		AddBroker(b.opts.BrokerURL).
		SetClientID(b.opts.ClientID).
		SetAutoReconnect(true).
		SetOrderMatters(false).
		SetOnConnectHandler(func(c mqtt.Client) {
			token := c.Subscribe(b.Topic(), 1, b.onMessage)
			if token.WaitTimeout(connectTimeout) && token.Error() != nil {
				b.logger.WithError(token.Error()).Error("subscribe failed")
				return
			}
			b.logger.WithField("topic", b.Topic()).Info("subscribed")
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			b.logger.WithError(err).Warn("connection lost")
		})
	if b.opts.Username != "" {
		opts.SetUsername(b.opts.Username).SetPassword(b.opts.Password)
	}

	b.client = mqtt.NewClient(opts)
	token := b.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return errors.New("mqtt connect timed out")
	}
	return token.Error()
}

// Stop disconnects from the broker.
func (b *MQTTBridge) Stop() {
	if b.client != nil && b.client.IsConnected() {
		b.client.Disconnect(quiesceMillis)
	}
}

func (b *MQTTBridge) onMessage(_ mqtt.Client, msg mqtt.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	if err := b.Handle(ctx, msg.Topic(), msg.Payload()); err != nil {
		b.logger.WithError(err).WithField("topic", msg.Topic()).Warn("fix rejected")
	}
}

// Handle processes one published fix.
func (b *MQTTBridge) Handle(ctx context.Context, topic string, payload []byte) error {
	tripID, err := tripFromTopic(topic)
	if err != nil {
		return err
	}

	var m fixMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return fmt.Errorf("%w: malformed payload: %v", domain.ErrValidation, err)
	}

	principal, err := b.tokens.Validate(m.Token)
	if err != nil {
		return err
	}

	req := service.RecordFixRequest{
		TripID:   tripID,
		UserID:   principal.UserID,
		Lat:      m.Lat,
		Lng:      m.Lng,
		Accuracy: m.Accuracy,
		Speed:    m.Speed,
		Altitude: m.Altitude,
		Source:   service.FixSourceMQTT,
	}
	if m.Timestamp != nil {
		req.Timestamp = *m.Timestamp
	}

	_, err = b.recorder.RecordFix(ctx, req)
	return err
}

// tripFromTopic extracts the trip id from <prefix>/trips/<tripId>/gps.
func tripFromTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	n := len(parts)
	if n < 3 || parts[n-1] != "gps" || parts[n-3] != "trips" || parts[n-2] == "" {
		return "", ErrBadTopic
	}
	return parts[n-2], nil
}

// Package events publishes trip lifecycle and tracking events to downstream
// consumers.
package events

import (
	"context"
	"time"
)

// Event types.
const (
	TypeTripCreated       = "trip.created"
	TypeTripStatusChanged = "trip.status_changed"
	TypeGPSFixRecorded    = "trip.gps_fix"
)

// TripEvent describes a trip state change.
type TripEvent struct {
	Type           string    `json:"type"`
	TripID         string    `json:"trip_id"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	ShipperID      string    `json:"shipper_id"`
	TravelerID     string    `json:"traveler_id,omitempty"`
	StatusVersion  int64     `json:"status_version"`
	ActorID        string    `json:"actor_id,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// FixEvent describes an accepted GPS fix.
type FixEvent struct {
	Type      string    `json:"type"`
	FixID     string    `json:"fix_id"`
	TripID    string    `json:"trip_id"`
	UserID    string    `json:"user_id"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Speed     *float64  `json:"speed,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher sends events. Implementations must be safe for concurrent use.
type Publisher interface {
	PublishTrip(ctx context.Context, evt TripEvent) error
	PublishFix(ctx context.Context, evt FixEvent) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) PublishTrip(context.Context, TripEvent) error { return nil }
func (NopPublisher) PublishFix(context.Context, FixEvent) error   { return nil }
func (NopPublisher) Close() error                                 { return nil }

var _ Publisher = NopPublisher{}

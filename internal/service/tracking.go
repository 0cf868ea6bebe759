package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"parcelroute/internal/domain"
	"parcelroute/internal/events"
	"parcelroute/internal/observability"
	"parcelroute/internal/realtime"
	"parcelroute/internal/repository"
)

// Fix sources, used as a metric label.
const (
	FixSourceWebSocket = "ws"
	FixSourceREST      = "rest"
	FixSourceMQTT      = "mqtt"
)

// LocationIndex keeps the last known position of each traveler.
type LocationIndex interface {
	UpdateLocation(ctx context.Context, travelerID string, lat, lng float64) error
}

// TrackingService records GPS fixes for trips in transit and fans them out
// to the trip's room.
type TrackingService struct {
	tripRepo  repository.TripRepository
	fixRepo   repository.GPSFixRepository
	lifecycle *TripService
	rooms     Broadcaster
	locations LocationIndex
	publisher events.Publisher
	logger    logrus.FieldLogger
}

// NewTrackingService creates a new TrackingService.
func NewTrackingService(
	tripRepo repository.TripRepository,
	fixRepo repository.GPSFixRepository,
	lifecycle *TripService,
	rooms Broadcaster,
	locations LocationIndex,
	publisher events.Publisher,
	logger logrus.FieldLogger,
) *TrackingService {
	return &TrackingService{
		tripRepo:  tripRepo,
		fixRepo:   fixRepo,
		lifecycle: lifecycle,
		rooms:     rooms,
		locations: locations,
		publisher: publisher,
		logger:    logger,
	}
}

// RecordFixRequest contains one position report.
type RecordFixRequest struct {
	TripID    string
	UserID    string
	Lat       float64
	Lng       float64
	Accuracy  *float64
	Speed     *float64
	Altitude  *float64
	Timestamp time.Time // zero means now
	Source    string
}

func validateFix(req RecordFixRequest) error {
	if !domain.ValidLatitude(req.Lat) || !domain.ValidLongitude(req.Lng) {
		return ErrInvalidLocation
	}
	if (req.Accuracy != nil && *req.Accuracy < 0) || (req.Speed != nil && *req.Speed < 0) {
		return ErrInvalidLocation
	}
	return nil
}

// RecordFix validates, authorizes, stores and broadcasts a fix. Checks run
// in a fixed order so a caller always learns the first problem: coordinates,
// trip existence, trip status, then the caller's role. Nothing is stored
// unless every check passes.
func (s *TrackingService) RecordFix(ctx context.Context, req RecordFixRequest) (*domain.GPSFix, error) {
	fix, err := s.recordFix(ctx, req)
	outcome := "accepted"
	if err != nil {
		outcome = "rejected"
	}
	observability.GPSFixesTotal.WithLabelValues(req.Source, outcome).Inc()
	return fix, err
}

func (s *TrackingService) recordFix(ctx context.Context, req RecordFixRequest) (*domain.GPSFix, error) {
	if err := validateFix(req); err != nil {
		return nil, err
	}
	if req.TripID == "" {
		return nil, ErrInvalidTripID
	}

	trip, err := s.tripRepo.GetCurrent(ctx, req.TripID)
	if err != nil {
		return nil, err
	}
	if trip.Status != domain.TripStatusInTransit {
		return nil, ErrTripNotInTransit
	}
	if trip.TravelerID == "" || trip.TravelerID != req.UserID {
		return nil, ErrNotTripTraveler
	}

	ts := req.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	fix := &domain.GPSFix{
		ID:        uuid.New().String(),
		TripID:    req.TripID,
		UserID:    req.UserID,
		Lat:       req.Lat,
		Lng:       req.Lng,
		Accuracy:  req.Accuracy,
		Speed:     req.Speed,
		Altitude:  req.Altitude,
		Timestamp: ts.UTC(),
	}

	if err := s.fixRepo.Append(ctx, fix); err != nil {
		return nil, err
	}
	if err := s.tripRepo.UpdateCurrentLocation(ctx, trip.ID, fix.Location()); err != nil {
		return nil, err
	}

	s.rooms.Broadcast(trip.ID, realtime.Event{
		Name: realtime.EventLocationUpdate,
		Data: realtime.LocationPayload{
			TripID:    fix.TripID,
			UserID:    fix.UserID,
			Lat:       fix.Lat,
			Lng:       fix.Lng,
			Accuracy:  fix.Accuracy,
			Speed:     fix.Speed,
			Altitude:  fix.Altitude,
			Timestamp: fix.Timestamp,
		},
	}, "")

	if err := s.locations.UpdateLocation(ctx, fix.UserID, fix.Lat, fix.Lng); err != nil {
		s.logger.WithError(err).WithField("traveler_id", fix.UserID).Warn("failed to update traveler location index")
	}
	if err := s.publisher.PublishFix(ctx, events.FixEvent{
		Type:      events.TypeGPSFixRecorded,
		FixID:     fix.ID,
		TripID:    fix.TripID,
		UserID:    fix.UserID,
		Lat:       fix.Lat,
		Lng:       fix.Lng,
		Speed:     fix.Speed,
		Timestamp: fix.Timestamp,
	}); err != nil {
		s.logger.WithError(err).WithField("trip_id", fix.TripID).Warn("failed to publish fix event")
	}

	return fix, nil
}

// StartTracking moves a matched trip to in-transit.
func (s *TrackingService) StartTracking(ctx context.Context, p domain.Principal, tripID string) (*domain.Trip, error) {
	return s.lifecycle.StartTransit(ctx, p, tripID)
}

// StopTracking marks an in-transit trip delivered.
func (s *TrackingService) StopTracking(ctx context.Context, p domain.Principal, tripID string) (*domain.Trip, error) {
	return s.lifecycle.CompleteDelivery(ctx, p, tripID)
}

// History returns a trip's fixes in the order they were taken.
func (s *TrackingService) History(ctx context.Context, p domain.Principal, tripID string) ([]*domain.GPSFix, error) {
	if _, err := s.lifecycle.GetTrip(ctx, p, tripID); err != nil {
		return nil, err
	}
	return s.fixRepo.ListByTrip(ctx, tripID)
}

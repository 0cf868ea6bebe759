package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"parcelroute/internal/domain"
	"parcelroute/internal/events"
	"parcelroute/internal/realtime"
	"parcelroute/internal/repository"
)

const (
	defaultTravelerLockTTL = 10 * time.Second
	defaultTripListLimit   = 50
)

// Broadcaster fans an event out to the members of a trip's room.
type Broadcaster interface {
	Broadcast(tripID string, evt realtime.Event, exclude string) int
	HasUser(tripID, userID string) bool
}

// TravelerLocker serializes assignments to the same traveler.
type TravelerLocker interface {
	AcquireTravelerLock(ctx context.Context, travelerID string, ttl time.Duration) (token string, ok bool, err error)
	ReleaseTravelerLock(ctx context.Context, travelerID, token string) error
}

// TripServiceConfig holds the knobs of the trip lifecycle.
type TripServiceConfig struct {
	Policy  EligibilityPolicy
	LockTTL time.Duration
}

// TripService handles the trip lifecycle from creation to settlement.
type TripService struct {
	tripRepo     repository.TripRepository
	travelerRepo repository.TravelerRepository
	disputeRepo  repository.DisputeRepository
	locks        TravelerLocker
	escrow       *EscrowService
	notifier     *NotificationService
	publisher    events.Publisher
	rooms        Broadcaster
	cfg          TripServiceConfig
	logger       logrus.FieldLogger
}

// NewTripService creates a new TripService.
func NewTripService(
	tripRepo repository.TripRepository,
	travelerRepo repository.TravelerRepository,
	disputeRepo repository.DisputeRepository,
	locks TravelerLocker,
	escrow *EscrowService,
	notifier *NotificationService,
	publisher events.Publisher,
	rooms Broadcaster,
	cfg TripServiceConfig,
	logger logrus.FieldLogger,
) *TripService {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultTravelerLockTTL
	}
	return &TripService{
		tripRepo:     tripRepo,
		travelerRepo: travelerRepo,
		disputeRepo:  disputeRepo,
		locks:        locks,
		escrow:       escrow,
		notifier:     notifier,
		publisher:    publisher,
		rooms:        rooms,
		cfg:          cfg,
		logger:       logger,
	}
}

// CreateTripRequest contains the parameters for creating a trip.
type CreateTripRequest struct {
	Origin              domain.Location
	Destination         domain.Location
	Package             domain.PackageDetails
	Fare                float64
	EstimatedDeliveryAt *time.Time
}

// CreateTrip records a shipper's package as a pending trip.
func (s *TripService) CreateTrip(ctx context.Context, p domain.Principal, req CreateTripRequest) (*domain.Trip, error) {
	if p.Role != domain.RoleShipper && !p.IsAdmin() {
		return nil, ErrNotTripShipper
	}
	if err := ValidateMatchRequest(&domain.MatchRequest{
		Origin:      req.Origin,
		Destination: req.Destination,
		Package:     req.Package,
	}); err != nil {
		return nil, err
	}
	if req.Fare <= 0 {
		return nil, ErrInvalidFare
	}

	now := time.Now()
	trip := &domain.Trip{
		ID:          uuid.New().String(),
		ShipperID:   p.UserID,
		Status:      domain.TripStatusPending,
		Origin:      req.Origin,
		Destination: req.Destination,
		Package:     req.Package,
		Fare:        req.Fare,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.EstimatedDeliveryAt != nil {
		trip.EstimatedDeliveryAt = *req.EstimatedDeliveryAt
	}

	if err := s.tripRepo.Create(ctx, trip); err != nil {
		return nil, err
	}

	s.publish(ctx, events.TripEvent{
		Type:          events.TypeTripCreated,
		TripID:        trip.ID,
		Status:        string(trip.Status),
		ShipperID:     trip.ShipperID,
		StatusVersion: trip.StatusVersion,
		ActorID:       p.UserID,
		OccurredAt:    now,
	})

	return trip, nil
}

// GetTrip retrieves a trip visible to the caller.
func (s *TripService) GetTrip(ctx context.Context, p domain.Principal, tripID string) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() && !trip.IsParticipant(p.UserID) {
		return nil, ErrNotTripParticipant
	}
	return trip, nil
}

// ListTrips returns the caller's trips, newest first.
func (s *TripService) ListTrips(ctx context.Context, p domain.Principal, limit int) ([]*domain.Trip, error) {
	if limit <= 0 || limit > defaultTripListLimit {
		limit = defaultTripListLimit
	}
	return s.tripRepo.ListByParticipant(ctx, p.UserID, limit)
}

// AcceptMatch assigns a traveler to a pending trip and places the fare in
// escrow. The traveler lock keeps two shippers from filling the same route
// slot at once; capacity is checked again under it.
func (s *TripService) AcceptMatch(ctx context.Context, p domain.Principal, tripID, travelerID string) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}
	if travelerID == "" {
		return nil, ErrInvalidTravelerID
	}

	trip, err := s.tripRepo.GetCurrent(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() && trip.ShipperID != p.UserID {
		return nil, ErrNotTripShipper
	}
	if trip.Status != domain.TripStatusPending {
		return nil, fmt.Errorf("%w: trip is %s", ErrInvalidTransition, trip.Status)
	}

	lease, acquired, err := s.locks.AcquireTravelerLock(ctx, travelerID, s.cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrTravelerBusy
	}
	defer func() {
		if err := s.locks.ReleaseTravelerLock(context.WithoutCancel(ctx), travelerID, lease); err != nil {
			s.logger.WithError(err).WithField("traveler_id", travelerID).Warn("failed to release traveler lock")
		}
	}()

	traveler, err := s.travelerRepo.GetByID(ctx, travelerID)
	if err != nil {
		return nil, err
	}

	var desired *time.Time
	if !trip.EstimatedDeliveryAt.IsZero() {
		desired = &trip.EstimatedDeliveryAt
	}
	if e := CheckEligibility(traveler, trip.Package, desired, s.cfg.Policy); !e.Eligible {
		return nil, fmt.Errorf("%w: %s", ErrTravelerNotEligible, e.Reason)
	}

	held := *trip
	held.TravelerID = travelerID
	if _, err := s.escrow.Hold(ctx, &held); err != nil {
		return nil, err
	}

	err = s.transition(ctx, trip, domain.TripStatusMatched, p.UserID, func(t *domain.Trip) {
		t.TravelerID = travelerID
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// The trip left pending under us and can never be accepted again.
			s.escrow.settleQuietly(ctx, tripID, s.escrow.Release)
		}
		return nil, err
	}

	s.adjustInFlight(ctx, travelerID, 1)
	s.notifier.NotifyMatchAccepted(ctx, trip)

	return trip, nil
}

// CancelTrip cancels a trip that has not started moving and returns any
// held fare to the shipper.
func (s *TripService) CancelTrip(ctx context.Context, p domain.Principal, tripID string) (*domain.Trip, error) {
	trip, err := s.loadTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() && trip.ShipperID != p.UserID {
		return nil, ErrNotTripShipper
	}
	if trip.Status != domain.TripStatusPending && trip.Status != domain.TripStatusMatched {
		return nil, fmt.Errorf("%w: trip is %s", ErrInvalidTransition, trip.Status)
	}

	travelerID := trip.TravelerID
	if err := s.transition(ctx, trip, domain.TripStatusCancelled, p.UserID, clearTraveler); err != nil {
		return nil, err
	}

	if travelerID != "" {
		s.adjustInFlight(ctx, travelerID, -1)
		s.escrow.settleQuietly(ctx, tripID, s.escrow.Release)
	}
	s.notifier.NotifyTripCancelled(ctx, trip, travelerID, p.UserID)

	return trip, nil
}

// StartTransit moves a matched trip to in-transit. Only the assigned
// traveler may start it.
func (s *TripService) StartTransit(ctx context.Context, p domain.Principal, tripID string) (*domain.Trip, error) {
	trip, err := s.loadTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.TravelerID == "" || trip.TravelerID != p.UserID {
		return nil, ErrNotTripTraveler
	}

	if err := s.transition(ctx, trip, domain.TripStatusInTransit, p.UserID, nil); err != nil {
		return nil, err
	}

	s.notifier.NotifyTrackingStarted(ctx, trip)
	return trip, nil
}

// CompleteDelivery moves an in-transit trip to delivered and pays the
// traveler. Only the assigned traveler may complete it.
func (s *TripService) CompleteDelivery(ctx context.Context, p domain.Principal, tripID string) (*domain.Trip, error) {
	trip, err := s.loadTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.TravelerID == "" || trip.TravelerID != p.UserID {
		return nil, ErrNotTripTraveler
	}

	if err := s.transition(ctx, trip, domain.TripStatusDelivered, p.UserID, nil); err != nil {
		return nil, err
	}

	s.adjustInFlight(ctx, trip.TravelerID, -1)
	s.escrow.settleQuietly(ctx, tripID, s.escrow.Capture)
	s.notifier.NotifyDelivered(ctx, trip)

	return trip, nil
}

func (s *TripService) loadTrip(ctx context.Context, tripID string) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}
	return s.tripRepo.GetCurrent(ctx, tripID)
}

func clearTraveler(t *domain.Trip) {
	t.TravelerID = ""
}

// transition moves trip to status `to` under compare-and-set on its status
// version. On success trip holds the stored state and the change is
// published and broadcast to the room.
func (s *TripService) transition(ctx context.Context, trip *domain.Trip, to domain.TripStatus, actorID string, mutate func(*domain.Trip)) error {
	from := trip.Status
	if !domain.CanTransition(from, to) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
	}

	next := *trip
	next.Status = to
	next.UpdatedAt = time.Now()
	if mutate != nil {
		mutate(&next)
	}

	if err := s.tripRepo.UpdateStatus(ctx, &next, trip.StatusVersion); err != nil {
		return err
	}
	*trip = next

	s.logger.WithFields(logrus.Fields{
		"trip_id":        trip.ID,
		"from":           from,
		"to":             to,
		"status_version": trip.StatusVersion,
		"actor_id":       actorID,
	}).Info("trip status changed")

	s.publish(ctx, events.TripEvent{
		Type:           events.TypeTripStatusChanged,
		TripID:         trip.ID,
		Status:         string(to),
		PreviousStatus: string(from),
		ShipperID:      trip.ShipperID,
		TravelerID:     trip.TravelerID,
		StatusVersion:  trip.StatusVersion,
		ActorID:        actorID,
		OccurredAt:     trip.UpdatedAt,
	})

	s.rooms.Broadcast(trip.ID, realtime.Event{
		Name: realtime.EventTripStatusUpdate,
		Data: realtime.TripStatusPayload{
			TripID:        trip.ID,
			Status:        string(to),
			TravelerID:    trip.TravelerID,
			StatusVersion: trip.StatusVersion,
		},
	}, "")

	return nil
}

func (s *TripService) adjustInFlight(ctx context.Context, travelerID string, delta int) {
	if travelerID == "" {
		return
	}
	if err := s.travelerRepo.AdjustInFlight(ctx, travelerID, delta); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"traveler_id": travelerID,
			"delta":       delta,
		}).Error("failed to adjust in-flight packages")
	}
}

func (s *TripService) publish(ctx context.Context, evt events.TripEvent) {
	if err := s.publisher.PublishTrip(ctx, evt); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"trip_id": evt.TripID,
			"type":    evt.Type,
		}).Warn("failed to publish trip event")
	}
}

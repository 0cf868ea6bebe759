package tests

import (
	"testing"
	"time"

	"parcelroute/internal/domain"
	"parcelroute/internal/events"
	"parcelroute/internal/georoute"
	"parcelroute/internal/logging"
	"parcelroute/internal/realtime"
	"parcelroute/internal/service"
)

var (
	shipper  = domain.Principal{UserID: "shipper-1", Role: domain.RoleShipper}
	traveler = domain.Principal{UserID: "traveler-1", Role: domain.RoleTraveler}
	admin    = domain.Principal{UserID: "admin-1", Role: domain.RoleAdmin}
	stranger = domain.Principal{UserID: "someone-else", Role: domain.RoleTraveler}
)

var testRates = service.PricingRates{PerKm: 0.5, PerMinute: 0.1, CommissionRate: 0.15}

// env is a fully wired service graph over in-memory stores.
type env struct {
	trips     *MockTripRepository
	travelers *MockTravelerRepository
	payments  *MockPaymentRepository
	fixes     *MockGPSFixRepository
	chats     *MockChatRepository
	disputes  *MockDisputeRepository
	inbox     *MockNotificationRepository
	locks     *MockLockStore
	locations *MockLocationStore
	gateway   *MockGateway
	push      *MockPushSender
	events    *events.Recorder
	rooms     *realtime.Registry

	matching *service.MatchingService
	escrow   *service.EscrowService
	trip     *service.TripService
	notifier *service.NotificationService
	tracking *service.TrackingService
	chat     *service.ChatService
	traveler *service.TravelerService
}

func newEnv(t *testing.T, router georoute.Router) *env {
	t.Helper()

	logger := logging.Discard()
	e := &env{
		trips:     NewMockTripRepository(),
		travelers: NewMockTravelerRepository(),
		payments:  NewMockPaymentRepository(),
		fixes:     NewMockGPSFixRepository(),
		chats:     NewMockChatRepository(),
		disputes:  NewMockDisputeRepository(),
		inbox:     NewMockNotificationRepository(),
		locks:     NewMockLockStore(),
		locations: NewMockLocationStore(),
		gateway:   NewMockGateway(),
		push:      &MockPushSender{},
		events:    &events.Recorder{},
	}
	e.rooms = realtime.NewRegistry(e.trips)

	policy := service.EligibilityPolicy{MaxStopsPerRoute: 1}
	e.notifier = service.NewNotificationService(e.push, e.inbox, logger)

	e.matching = service.NewMatchingService(e.travelers, service.NewDetourScorer(router, testRates), service.MatchingConfig{
		TopK:             20,
		Concurrency:      4,
		CandidateTimeout: time.Second,
		BBoxMarginKm:     25,
		Policy:           policy,
	}, logger)
	e.escrow = service.NewEscrowService(e.payments, e.gateway, "usd", logger)
	e.trip = service.NewTripService(e.trips, e.travelers, e.disputes, e.locks, e.escrow, e.notifier, e.events, e.rooms,
		service.TripServiceConfig{Policy: policy, LockTTL: time.Second}, logger)
	e.tracking = service.NewTrackingService(e.trips, e.fixes, e.trip, e.rooms, e.locations, e.events, logger)
	e.chat = service.NewChatService(e.chats, e.trips, e.rooms, e.notifier, logger)
	e.traveler = service.NewTravelerService(e.locations, e.travelers)
	return e
}

// idleTraveler returns a traveler with 5 kg of spare capacity along route.
func idleTraveler(id string, reliability float64, route ...domain.Location) *domain.TravelerCandidate {
	return &domain.TravelerCandidate{
		TravelerID:   id,
		Name:         id,
		JourneyID:    "journey-" + id,
		Route:        route,
		Capacity:     domain.Capacity{MaxWeightKg: 5, MaxVolumeCm3: 50000},
		Reliability:  reliability,
		Status:       domain.TravelerStatusIdle,
		Availability: domain.AvailabilityWindow{},
	}
}

func matchRequest(weightKg float64) *domain.MatchRequest {
	return &domain.MatchRequest{
		Origin:      domain.Location{Lat: 0, Lng: 0},
		Destination: domain.Location{Lat: 1, Lng: 1},
		Package:     domain.PackageDetails{WeightKg: weightKg},
	}
}

// pendingTrip stores a pending trip owned by shipper.
func (e *env) pendingTrip(id string) *domain.Trip {
	trip := &domain.Trip{
		ID:          id,
		ShipperID:   shipper.UserID,
		Status:      domain.TripStatusPending,
		Origin:      domain.Location{Lat: 0, Lng: 0},
		Destination: domain.Location{Lat: 1, Lng: 1},
		Package:     domain.PackageDetails{WeightKg: 2},
		Fare:        12.34,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	e.trips.AddTrip(trip)
	return trip
}

// inTransitTrip stores a trip carried by traveler that is already moving.
func (e *env) inTransitTrip(id string) *domain.Trip {
	trip := e.pendingTrip(id)
	trip.Status = domain.TripStatusInTransit
	trip.TravelerID = traveler.UserID
	trip.StatusVersion = 2
	e.trips.AddTrip(trip)
	return trip
}

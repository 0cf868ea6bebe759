package tests

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parcelroute/internal/domain"
	"parcelroute/internal/events"
	"parcelroute/internal/repository"
	"parcelroute/internal/service"
)

func (e *env) withTraveler() {
	e.travelers.AddTraveler(idleTraveler(traveler.UserID, 4, domain.Location{Lat: 0.5, Lng: 0.5}))
}

// ──────────────────────────────────────────────
// 1. CREATE AND ACCEPT
// ──────────────────────────────────────────────

func TestTrip_CreateStartsPending(t *testing.T) {
	t.Parallel()

	e := newEnv(t, NewMockRouter(1000))
	eta := time.Now().Add(48 * time.Hour)

	trip, err := e.trip.CreateTrip(context.Background(), shipper, service.CreateTripRequest{
		Origin:              domain.Location{Lat: 0, Lng: 0},
		Destination:         domain.Location{Lat: 1, Lng: 1},
		Package:             domain.PackageDetails{WeightKg: 2, Description: "books"},
		Fare:                20,
		EstimatedDeliveryAt: &eta,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TripStatusPending, trip.Status)
	assert.Equal(t, shipper.UserID, trip.ShipperID)
	assert.Empty(t, trip.TravelerID)
	assert.True(t, trip.TravelerAssignmentConsistent())
	assert.NotNil(t, e.trips.GetTrip(trip.ID))

	evts := e.events.TripEvents()
	require.Len(t, evts, 1)
	assert.Equal(t, events.TypeTripCreated, evts[0].Type)
}

func TestTrip_CreateRejectsBadInput(t *testing.T) {
	t.Parallel()

	e := newEnv(t, NewMockRouter(1000))
	valid := service.CreateTripRequest{
		Origin:      domain.Location{Lat: 0, Lng: 0},
		Destination: domain.Location{Lat: 1, Lng: 1},
		Package:     domain.PackageDetails{WeightKg: 2},
		Fare:        20,
	}

	_, err := e.trip.CreateTrip(context.Background(), traveler, valid)
	assert.ErrorIs(t, err, domain.ErrForbidden, "travelers do not ship")

	noFare := valid
	noFare.Fare = 0
	_, err = e.trip.CreateTrip(context.Background(), shipper, noFare)
	assert.ErrorIs(t, err, service.ErrInvalidFare)

	badDest := valid
	badDest.Destination = domain.Location{Lat: 0, Lng: 200}
	_, err = e.trip.CreateTrip(context.Background(), shipper, badDest)
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Equal(t, int32(0), e.trips.CreateCallCount)
}

func TestTrip_AcceptMatchAssignsAndHoldsEscrow(t *testing.T) {
	t.Parallel()

	e := newEnv(t, NewMockRouter(1000))
	e.withTraveler()
	e.pendingTrip("trip-1")

	trip, err := e.trip.AcceptMatch(context.Background(), shipper, "trip-1", traveler.UserID)
	require.NoError(t, err)

	assert.Equal(t, domain.TripStatusMatched, trip.Status)
	assert.Equal(t, traveler.UserID, trip.TravelerID)
	assert.Equal(t, int64(1), trip.StatusVersion)
	assert.True(t, trip.TravelerAssignmentConsistent())

	payment := e.payments.TripPayment("trip-1")
	require.NotNil(t, payment)
	assert.Equal(t, domain.PaymentStatusHeld, payment.Status)
	assert.Equal(t, traveler.UserID, payment.TravelerID)
	assert.Equal(t, int64(1234), e.gateway.HeldAmount(payment.GatewayRef))

	tr := e.travelers.GetTraveler(traveler.UserID)
	assert.Equal(t, 1, tr.InFlightPackages)
	assert.Equal(t, domain.TravelerStatusActive, tr.Status)

	assert.False(t, e.locks.IsLocked(traveler.UserID), "lock released after accept")
	assert.Len(t, e.push.Sent(service.NotificationMatchAccepted), 1)
}

func TestTrip_AcceptMatchOnlyByShipper(t *testing.T) {
	t.Parallel()

	e := newEnv(t, NewMockRouter(1000))
	e.withTraveler()
	e.pendingTrip("trip-1")

	_, err := e.trip.AcceptMatch(context.Background(), stranger, "trip-1", traveler.UserID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, 0, e.gateway.HoldCount())
}

func TestTrip_AcceptMatchTravelerBusy(t *testing.T) {
	t.Parallel()

	e := newEnv(t, NewMockRouter(1000))
	e.withTraveler()
	e.pendingTrip("trip-1")
	e.locks.Hold(traveler.UserID)

	_, err := e.trip.AcceptMatch(context.Background(), shipper, "trip-1", traveler.UserID)
	assert.ErrorIs(t, err, service.ErrTravelerBusy)
	assert.ErrorIs(t, err, domain.ErrState)
	assert.Equal(t, domain.TripStatusPending, e.trips.GetTrip("trip-1").Status)
	assert.Equal(t, 0, e.gateway.HoldCount())
}

func TestTrip_AcceptMatchRechecksCapacity(t *testing.T) {
	t.Parallel()

	e := newEnv(t, NewMockRouter(1000))
	e.withTraveler()
	trip := e.pendingTrip("trip-1")
	trip.Package.WeightKg = 9
	e.trips.AddTrip(trip)

	_, err := e.trip.AcceptMatch(context.Background(), shipper, "trip-1", traveler.UserID)
	assert.ErrorIs(t, err, service.ErrTravelerNotEligible)
	assert.False(t, e.locks.IsLocked(traveler.UserID))
}

func TestTrip_AcceptMatchGatewayDeclineLeavesTripPending(t *testing.T) {
	t.Parallel()

	e := newEnv(t, NewMockRouter(1000))
	e.withTraveler()
	e.pendingTrip("trip-1")
	e.gateway.FailHold = true

	_, err := e.trip.AcceptMatch(context.Background(), shipper, "trip-1", traveler.UserID)
	require.Error(t, err)

	assert.Equal(t, domain.TripStatusPending, e.trips.GetTrip("trip-1").Status)
	assert.Equal(t, 0, e.payments.CountPayments())
	assert.Equal(t, 0, e.travelers.GetTraveler(traveler.UserID).InFlightPackages)
}

func TestTrip_AcceptMatchLostRaceReleasesHold(t *testing.T) {
	t.Parallel()

	e := newEnv(t, NewMockRouter(1000))
	e.withTraveler()
	e.pendingTrip("trip-1")

	// Another request wins the transition after the hold is placed.
	e.trips.UpdateStatusError = repository.ErrConflict

	_, err := e.trip.AcceptMatch(context.Background(), shipper, "trip-1", traveler.UserID)
	require.ErrorIs(t, err, repository.ErrConflict)

	payment := e.payments.TripPayment("trip-1")
	require.NotNil(t, payment)
	assert.Equal(t, domain.PaymentStatusReleased, payment.Status)
	assert.True(t, e.gateway.WasCanceled(payment.GatewayRef))
	assert.Equal(t, 0, e.travelers.GetTraveler(traveler.UserID).InFlightPackages)
}

func TestTrip_ConcurrentAcceptsAssignOnce(t *testing.T) {
	t.Parallel()

	e := newEnv(t, NewMockRouter(1000))
	e.withTraveler()
	e.pendingTrip("trip-1")

	const attempts = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.trip.AcceptMatch(context.Background(), shipper, "trip-1", traveler.UserID); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, e.travelers.GetTraveler(traveler.UserID).InFlightPackages)
	assert.Equal(t, 1, e.payments.CountPayments())
}

// ──────────────────────────────────────────────
// 2. TRANSIT AND SETTLEMENT
// ──────────────────────────────────────────────

func TestTrip_FullDeliveryCapturesEscrow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEnv(t, NewMockRouter(1000))
	e.withTraveler()
	e.pendingTrip("trip-1")

	_, err := e.trip.AcceptMatch(ctx, shipper, "trip-1", traveler.UserID)
	require.NoError(t, err)

	_, err = e.tracking.StartTracking(ctx, shipper, "trip-1")
	assert.ErrorIs(t, err, service.ErrNotTripTraveler)

	trip, err := e.tracking.StartTracking(ctx, traveler, "trip-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusInTransit, trip.Status)
	assert.Len(t, e.push.Sent(service.NotificationTrackingStarted), 1)

	trip, err = e.tracking.StopTracking(ctx, traveler, "trip-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusDelivered, trip.Status)
	assert.Equal(t, int64(3), trip.StatusVersion)
	assert.True(t, trip.TravelerAssignmentConsistent())

	payment := e.payments.TripPayment("trip-1")
	assert.Equal(t, domain.PaymentStatusCaptured, payment.Status)
	assert.True(t, e.gateway.WasCaptured(payment.GatewayRef))

	tr := e.travelers.GetTraveler(traveler.UserID)
	assert.Equal(t, 0, tr.InFlightPackages)
	assert.Equal(t, domain.TravelerStatusIdle, tr.Status)

	var statuses []string
	for _, evt := range e.events.TripEvents() {
		statuses = append(statuses, evt.Status)
	}
	assert.Equal(t, []string{"matched", "in-transit", "delivered"}, statuses)

	// Delivered is terminal.
	_, err = e.trip.CancelTrip(ctx, shipper, "trip-1")
	assert.ErrorIs(t, err, domain.ErrState)
}

func TestTrip_CancelMatchedReleasesEscrow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEnv(t, NewMockRouter(1000))
	e.withTraveler()
	e.pendingTrip("trip-1")

	_, err := e.trip.AcceptMatch(ctx, shipper, "trip-1", traveler.UserID)
	require.NoError(t, err)

	trip, err := e.trip.CancelTrip(ctx, shipper, "trip-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusCancelled, trip.Status)
	assert.Empty(t, trip.TravelerID)
	assert.True(t, trip.TravelerAssignmentConsistent())

	payment := e.payments.TripPayment("trip-1")
	assert.Equal(t, domain.PaymentStatusReleased, payment.Status)
	assert.True(t, e.gateway.WasCanceled(payment.GatewayRef))
	assert.Equal(t, 0, e.travelers.GetTraveler(traveler.UserID).InFlightPackages)

	cancelled := e.push.Sent(service.NotificationTripCancelled)
	require.Len(t, cancelled, 1)
	assert.Equal(t, traveler.UserID, cancelled[0].RecipientID)
}

func TestTrip_CancelPendingNeedsNoEscrow(t *testing.T) {
	t.Parallel()

	e := newEnv(t, NewMockRouter(1000))
	e.pendingTrip("trip-1")

	trip, err := e.trip.CancelTrip(context.Background(), shipper, "trip-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusCancelled, trip.Status)
	assert.Equal(t, 0, e.payments.CountPayments())
}

func TestTrip_CannotCancelInTransit(t *testing.T) {
	t.Parallel()

	e := newEnv(t, NewMockRouter(1000))
	e.inTransitTrip("trip-1")

	_, err := e.trip.CancelTrip(context.Background(), shipper, "trip-1")
	assert.ErrorIs(t, err, service.ErrInvalidTransition)
	assert.Equal(t, domain.TripStatusInTransit, e.trips.GetTrip("trip-1").Status)
}

func TestTrip_DisputeAndResolve(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		outcome       domain.TripStatus
		paymentStatus domain.PaymentStatus
		travelerKept  bool
	}{
		{domain.TripStatusDelivered, domain.PaymentStatusCaptured, true},
		{domain.TripStatusCancelled, domain.PaymentStatusReleased, false},
	} {
		t.Run(string(tc.outcome), func(t *testing.T) {
			ctx := context.Background()
			e := newEnv(t, NewMockRouter(1000))
			e.withTraveler()
			e.pendingTrip("trip-1")

			_, err := e.trip.AcceptMatch(ctx, shipper, "trip-1", traveler.UserID)
			require.NoError(t, err)
			_, err = e.tracking.StartTracking(ctx, traveler, "trip-1")
			require.NoError(t, err)

			_, _, err = e.trip.DisputeTrip(ctx, stranger, "trip-1", damageReport)
			assert.ErrorIs(t, err, domain.ErrForbidden)

			trip, dispute, err := e.trip.DisputeTrip(ctx, shipper, "trip-1", damageReport)
			require.NoError(t, err)
			assert.Equal(t, domain.DisputeStatusOpen, dispute.Status)
			assert.Equal(t, domain.TripStatusDisputed, trip.Status)
			assert.Equal(t, traveler.UserID, trip.TravelerID, "disputed trips keep their traveler")
			assert.Equal(t, domain.PaymentStatusDisputed, e.payments.TripPayment("trip-1").Status)
			assert.Len(t, e.push.Sent(service.NotificationTripDisputed), 2)

			ruling := service.ResolveDisputeRequest{Outcome: tc.outcome, Details: "checked the photos"}
			_, _, err = e.trip.ResolveDispute(ctx, shipper, "trip-1", ruling)
			assert.ErrorIs(t, err, service.ErrAdminOnly)

			_, _, err = e.trip.ResolveDispute(ctx, admin, "trip-1", service.ResolveDisputeRequest{Outcome: domain.TripStatusInTransit, Details: "x"})
			assert.ErrorIs(t, err, service.ErrInvalidOutcome)

			trip, dispute, err = e.trip.ResolveDispute(ctx, admin, "trip-1", ruling)
			require.NoError(t, err)
			assert.Equal(t, domain.DisputeStatusResolved, dispute.Status)
			assert.Equal(t, admin.UserID, dispute.ResolvedBy)
			assert.Equal(t, tc.outcome, trip.Status)
			assert.Equal(t, tc.travelerKept, trip.TravelerID != "")
			assert.True(t, trip.TravelerAssignmentConsistent())
			assert.Equal(t, tc.paymentStatus, e.payments.TripPayment("trip-1").Status)
			assert.Equal(t, 0, e.travelers.GetTraveler(traveler.UserID).InFlightPackages)
		})
	}
}

func TestTrip_StaleVersionLosesCompareAndSet(t *testing.T) {
	t.Parallel()

	e := newEnv(t, NewMockRouter(1000))
	e.inTransitTrip("trip-1")

	loaded := e.trips.GetTrip("trip-1")
	e.trips.BumpVersion("trip-1", domain.TripStatusInTransit)

	loaded.Status = domain.TripStatusDelivered
	err := e.trips.UpdateStatus(context.Background(), loaded, 2)
	assert.True(t, errors.Is(err, repository.ErrConflict))
}

// ──────────────────────────────────────────────
// 3. VISIBILITY
// ──────────────────────────────────────────────

func TestTrip_OnlyParticipantsSeeTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEnv(t, NewMockRouter(1000))
	e.inTransitTrip("trip-1")

	for _, p := range []domain.Principal{shipper, traveler, admin} {
		_, err := e.trip.GetTrip(ctx, p, "trip-1")
		assert.NoError(t, err, p.UserID)
	}

	_, err := e.trip.GetTrip(ctx, stranger, "trip-1")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = e.trip.GetTrip(ctx, shipper, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	trips, err := e.trip.ListTrips(ctx, traveler, 0)
	require.NoError(t, err)
	assert.Len(t, trips, 1)
}

func TestEscrow_PaymentVisibility(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEnv(t, NewMockRouter(1000))
	e.withTraveler()
	e.pendingTrip("trip-1")
	_, err := e.trip.AcceptMatch(ctx, shipper, "trip-1", traveler.UserID)
	require.NoError(t, err)

	payment, err := e.escrow.GetTripPayment(ctx, traveler, "trip-1")
	require.NoError(t, err)

	_, err = e.escrow.GetPayment(ctx, shipper, payment.ID)
	assert.NoError(t, err)
	_, err = e.escrow.GetPayment(ctx, stranger, payment.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestEscrow_SettlementIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEnv(t, NewMockRouter(1000))
	trip := e.inTransitTrip("trip-1")

	_, err := e.escrow.Hold(ctx, trip)
	require.NoError(t, err)
	again, err := e.escrow.Hold(ctx, trip)
	require.NoError(t, err)
	assert.Equal(t, 1, e.gateway.HoldCount(), "second hold reuses the first")
	assert.Equal(t, domain.PaymentStatusHeld, again.Status)

	_, err = e.escrow.Capture(ctx, "trip-1")
	require.NoError(t, err)
	captured, err := e.escrow.Capture(ctx, "trip-1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCaptured, captured.Status)

	_, err = e.escrow.Release(ctx, "trip-1")
	assert.ErrorIs(t, err, service.ErrEscrowNotHeld)
}

package tests

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parcelroute/internal/domain"
	"parcelroute/internal/service"
)

func registration() service.RegisterTravelerRequest {
	return service.RegisterTravelerRequest{
		Name:     "Ada",
		Route:    []domain.Location{{Lat: 52.52, Lng: 13.40}, {Lat: 52.40, Lng: 13.06}},
		Capacity: domain.Capacity{MaxWeightKg: 10, MaxVolumeCm3: 60000},
		Availability: domain.AvailabilityWindow{
			From: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
			To:   time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC),
		},
	}
}

func TestTraveler_RegisterCreatesIdleProfile(t *testing.T) {
	t.Parallel()

	e := newEnv(t, NewMockRouter(1000))

	tr, err := e.traveler.RegisterTraveler(context.Background(), traveler, registration())
	require.NoError(t, err)
	assert.Equal(t, traveler.UserID, tr.TravelerID)
	assert.Equal(t, domain.TravelerStatusIdle, tr.Status)
	assert.NotEmpty(t, tr.JourneyID)

	stored := e.travelers.GetTraveler(traveler.UserID)
	require.NotNil(t, stored)
	assert.Len(t, stored.Route, 2)
}

func TestTraveler_RegisterValidates(t *testing.T) {
	t.Parallel()

	e := newEnv(t, NewMockRouter(1000))

	noRoute := registration()
	noRoute.Route = nil
	_, err := e.traveler.RegisterTraveler(context.Background(), traveler, noRoute)
	assert.ErrorIs(t, err, service.ErrInvalidRoute)

	noCapacity := registration()
	noCapacity.Capacity.MaxWeightKg = 0
	_, err = e.traveler.RegisterTraveler(context.Background(), traveler, noCapacity)
	assert.ErrorIs(t, err, service.ErrInvalidCapacity)

	backwards := registration()
	backwards.Availability.From, backwards.Availability.To = backwards.Availability.To, backwards.Availability.From
	_, err = e.traveler.RegisterTraveler(context.Background(), traveler, backwards)
	assert.ErrorIs(t, err, domain.ErrValidation)

	other := registration()
	other.TravelerID = "traveler-2"
	_, err = e.traveler.RegisterTraveler(context.Background(), traveler, other)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestTraveler_ReRegisterKeepsReliabilityAndLoad(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEnv(t, NewMockRouter(1000))

	rating := 4.2
	req := registration()
	req.TravelerID = traveler.UserID
	req.Reliability = &rating
	_, err := e.traveler.RegisterTraveler(ctx, admin, req)
	require.NoError(t, err)
	require.NoError(t, e.travelers.AdjustInFlight(ctx, traveler.UserID, 1))

	// Travelers cannot rate themselves.
	selfRated := registration()
	five := 5.0
	selfRated.Reliability = &five
	tr, err := e.traveler.RegisterTraveler(ctx, traveler, selfRated)
	require.NoError(t, err)

	assert.Equal(t, 4.2, tr.Reliability)
	assert.Equal(t, 1, tr.InFlightPackages)
	assert.Equal(t, domain.TravelerStatusActive, tr.Status)
}

func TestTraveler_EndJourney(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEnv(t, NewMockRouter(1000))
	_, err := e.traveler.RegisterTraveler(ctx, traveler, registration())
	require.NoError(t, err)
	require.NoError(t, e.traveler.UpdateLocation(ctx, traveler, service.UpdateLocationRequest{TravelerID: traveler.UserID, Lat: 52.5, Lng: 13.4}))
	require.NoError(t, e.travelers.AdjustInFlight(ctx, traveler.UserID, 1))

	assert.ErrorIs(t, e.traveler.EndJourney(ctx, traveler, traveler.UserID), service.ErrTravelerCarrying)
	assert.ErrorIs(t, e.traveler.EndJourney(ctx, stranger, traveler.UserID), domain.ErrForbidden)

	require.NoError(t, e.travelers.AdjustInFlight(ctx, traveler.UserID, -1))
	require.NoError(t, e.traveler.EndJourney(ctx, traveler, traveler.UserID))

	assert.Equal(t, domain.TravelerStatusCompleted, e.travelers.GetTraveler(traveler.UserID).Status)
	assert.False(t, e.locations.HasLocation(traveler.UserID))

	matchable, err := e.travelers.ListMatchable(ctx)
	require.NoError(t, err)
	assert.Empty(t, matchable)
}

func TestTraveler_NearbyClampsRadius(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEnv(t, NewMockRouter(1000))
	require.NoError(t, e.traveler.UpdateLocation(ctx, admin, service.UpdateLocationRequest{TravelerID: "close", Lat: 52.52, Lng: 13.40}))
	require.NoError(t, e.traveler.UpdateLocation(ctx, admin, service.UpdateLocationRequest{TravelerID: "far", Lat: 48.14, Lng: 11.58}))

	near, err := e.traveler.Nearby(ctx, 52.50, 13.40, 0)
	require.NoError(t, err)
	require.Len(t, near, 1)
	assert.Equal(t, "close", near[0].TravelerID)

	// Munich is ~500 km from Berlin, well past the 50 km cap.
	capped, err := e.traveler.Nearby(ctx, 52.50, 13.40, 10000)
	require.NoError(t, err)
	assert.Len(t, capped, 1)

	_, err = e.traveler.Nearby(ctx, 100, 0, 5)
	assert.ErrorIs(t, err, service.ErrInvalidLocation)

	err = e.traveler.UpdateLocation(ctx, traveler, service.UpdateLocationRequest{TravelerID: "close", Lat: 1, Lng: 1})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

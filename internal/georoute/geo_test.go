package georoute

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parcelroute/internal/domain"
)

func TestHaversineMeters(t *testing.T) {
	berlin := domain.Location{Lat: 52.5200, Lng: 13.4050}
	hamburg := domain.Location{Lat: 53.5511, Lng: 9.9937}

	d := HaversineMeters(berlin, hamburg)
	assert.InDelta(t, 255_000, d, 5_000)
	assert.Zero(t, HaversineMeters(berlin, berlin))
}

func TestBoundingBox_ExpandAndIntersect(t *testing.T) {
	a, ok := BoundsOf(domain.Location{Lat: 10, Lng: 10}, domain.Location{Lat: 10.1, Lng: 10.1})
	require.True(t, ok)
	b, ok := BoundsOf(domain.Location{Lat: 10.2, Lng: 10.2}, domain.Location{Lat: 10.3, Lng: 10.3})
	require.True(t, ok)

	assert.False(t, a.Intersects(b), "disjoint boxes")
	assert.True(t, a.Expand(15).Intersects(b), "15 km margin bridges a ~11 km gap")
	assert.True(t, a.Expand(15).Contains(domain.Location{Lat: 10.2, Lng: 10.2}))
}

func TestBoundsOf_Empty(t *testing.T) {
	_, ok := BoundsOf()
	assert.False(t, ok)
}

func TestStraightLineRouter_WaypointsNeverShorten(t *testing.T) {
	r := StraightLineRouter{SpeedKmh: 60}
	ctx := context.Background()
	origin := domain.Location{Lat: 40.0, Lng: -74.0}
	dest := domain.Location{Lat: 40.5, Lng: -74.0}

	base, err := r.Route(ctx, RouteRequest{Origin: origin, Destination: dest})
	require.NoError(t, err)
	aug, err := r.Route(ctx, RouteRequest{
		Origin:      origin,
		Destination: dest,
		Waypoints:   []domain.Location{{Lat: 40.25, Lng: -73.9}},
	})
	require.NoError(t, err)

	assert.Greater(t, aug.DistanceMeters, base.DistanceMeters)
	assert.InDelta(t, base.DistanceMeters/(60*1000.0/3600), base.DurationSeconds, 0.001)
}

func TestStraightLineRouter_Errors(t *testing.T) {
	r := StraightLineRouter{}

	_, err := r.Route(context.Background(), RouteRequest{
		Origin:      domain.Location{Lat: 91, Lng: 0},
		Destination: domain.Location{Lat: 0, Lng: 0},
	})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Route(ctx, RouteRequest{})
	assert.True(t, IsProviderError(err))
}

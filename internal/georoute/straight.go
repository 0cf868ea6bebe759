package georoute

import (
	"context"
	"fmt"

	"parcelroute/internal/domain"
)

// StraightLineRouter estimates routes from great-circle distances at a fixed
// average speed. It is used when no directions API key is configured.
type StraightLineRouter struct {
	// SpeedKmh is the assumed average speed. Defaults to 50.
	SpeedKmh float64
}

// Route sums the haversine length of origin, waypoints, destination in order.
func (r StraightLineRouter) Route(ctx context.Context, req RouteRequest) (*Route, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrProvider, err)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	speed := r.SpeedKmh
	if speed <= 0 {
		speed = 50
	}

	points := make([]domain.Location, 0, len(req.Waypoints)+2)
	points = append(points, req.Origin)
	points = append(points, req.Waypoints...)
	points = append(points, req.Destination)

	var meters float64
	for i := 1; i < len(points); i++ {
		meters += HaversineMeters(points[i-1], points[i])
	}

	return &Route{
		DistanceMeters:  meters,
		DurationSeconds: meters / (speed * 1000 / 3600),
	}, nil
}

var _ Router = StraightLineRouter{}

// Package georoute computes driving routes between points through an external
// directions provider.
package georoute

import (
	"context"
	"errors"
	"fmt"

	"parcelroute/internal/domain"
)

// ErrNoRoute is returned when the provider answers without any route.
var ErrNoRoute = fmt.Errorf("%w: no route found", domain.ErrProvider)

// RouteRequest asks for a route from Origin to Destination through Waypoints
// in the given order.
type RouteRequest struct {
	Origin            domain.Location
	Destination       domain.Location
	Waypoints         []domain.Location
	OptimizeWaypoints bool
}

// Route is the provider's answer summed over all legs.
type Route struct {
	DistanceMeters  float64
	DurationSeconds float64
	Polyline        string
}

// Router computes routes. Implementations wrap every failure in
// domain.ErrProvider.
type Router interface {
	Route(ctx context.Context, req RouteRequest) (*Route, error)
}

// Validate checks that every point of the request has valid coordinates.
func (r RouteRequest) Validate() error {
	if !r.Origin.Valid() {
		return fmt.Errorf("%w: origin coordinates out of range", domain.ErrValidation)
	}
	if !r.Destination.Valid() {
		return fmt.Errorf("%w: destination coordinates out of range", domain.ErrValidation)
	}
	for i, wp := range r.Waypoints {
		if !wp.Valid() {
			return fmt.Errorf("%w: waypoint %d coordinates out of range", domain.ErrValidation, i)
		}
	}
	return nil
}

// IsProviderError reports whether err came from the directions provider.
func IsProviderError(err error) bool {
	return errors.Is(err, domain.ErrProvider)
}

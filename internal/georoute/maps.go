package georoute

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"googlemaps.github.io/maps"

	"parcelroute/internal/domain"
	"parcelroute/internal/observability"
)

// MapsClient is a Router backed by the Google Directions API.
type MapsClient struct {
	client *maps.Client
}

// NewMapsClient creates a Directions client limited to rateLimit requests per
// second. A non-positive rateLimit keeps the library default.
func NewMapsClient(apiKey string, rateLimit int) (*MapsClient, error) {
	opts := []maps.ClientOption{maps.WithAPIKey(apiKey)}
	if rateLimit > 0 {
		opts = append(opts, maps.WithRateLimit(rateLimit))
	}

	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &MapsClient{client: client}, nil
}

// Route requests a driving route and sums its legs.
func (c *MapsClient) Route(ctx context.Context, req RouteRequest) (*Route, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	r := &maps.DirectionsRequest{
		Origin:      latLng(req.Origin),
		Destination: latLng(req.Destination),
		Mode:        maps.TravelModeDriving,
		Optimize:    req.OptimizeWaypoints,
	}
	for _, wp := range req.Waypoints {
		r.Waypoints = append(r.Waypoints, latLng(wp))
	}

	start := time.Now()
	routes, _, err := c.client.Directions(ctx, r)
	observability.ProviderLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		observability.ProviderCallsTotal.WithLabelValues("error").Inc()
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: directions request aborted: %w", domain.ErrProvider, err)
		}
		return nil, fmt.Errorf("%w: maps api error: %w", domain.ErrProvider, err)
	}

	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		observability.ProviderCallsTotal.WithLabelValues("empty").Inc()
		return nil, ErrNoRoute
	}
	observability.ProviderCallsTotal.WithLabelValues("ok").Inc()

	out := &Route{Polyline: routes[0].OverviewPolyline.Points}
	for _, leg := range routes[0].Legs {
		out.DistanceMeters += float64(leg.Distance.Meters)
		out.DurationSeconds += leg.Duration.Seconds()
	}
	return out, nil
}

func latLng(l domain.Location) string {
	return strconv.FormatFloat(l.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(l.Lng, 'f', 6, 64)
}

var _ Router = (*MapsClient)(nil)

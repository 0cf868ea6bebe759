package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const travelerLocationKey = "travelers:locations"

// TravelerLocation is a traveler's last reported position.
type TravelerLocation struct {
	TravelerID string
	Lat        float64
	Lng        float64
	DistanceKm float64
}

// LocationStore handles traveler location operations in Redis.
type LocationStore struct {
	client *redis.Client
}

// NewLocationStore creates a new LocationStore.
func NewLocationStore(client *redis.Client) *LocationStore {
	return &LocationStore{client: client}
}

// UpdateLocation stores a traveler's location using GEOADD.
func (s *LocationStore) UpdateLocation(ctx context.Context, travelerID string, lat, lng float64) error {
	return s.client.GeoAdd(ctx, travelerLocationKey, &redis.GeoLocation{
		Name:      travelerID,
		Longitude: lng,
		Latitude:  lat,
	}).Err()
}

// FindNearby returns travelers within radiusKm, nearest first.
func (s *LocationStore) FindNearby(ctx context.Context, lat, lng, radiusKm float64) ([]TravelerLocation, error) {
	results, err := s.client.GeoSearchLocation(ctx, travelerLocationKey, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  lng,
			Latitude:   lat,
			Radius:     radiusKm,
			RadiusUnit: "km",
			Sort:       "ASC",
		},
		WithCoord: true,
		WithDist:  true,
	}).Result()
	if err != nil {
		return nil, err
	}

	locations := make([]TravelerLocation, 0, len(results))
	for _, r := range results {
		locations = append(locations, TravelerLocation{
			TravelerID: r.Name,
			Lat:        r.Latitude,
			Lng:        r.Longitude,
			DistanceKm: r.Dist,
		})
	}

	return locations, nil
}

// RemoveLocation removes a traveler from the geo index.
func (s *LocationStore) RemoveLocation(ctx context.Context, travelerID string) error {
	return s.client.ZRem(ctx, travelerLocationKey, travelerID).Err()
}

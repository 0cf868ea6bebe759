package redis

import (
	"context"
	"time"
)

// LocationStoreInterface defines the interface for traveler location operations.
type LocationStoreInterface interface {
	UpdateLocation(ctx context.Context, travelerID string, lat, lng float64) error
	FindNearby(ctx context.Context, lat, lng, radiusKm float64) ([]TravelerLocation, error)
	RemoveLocation(ctx context.Context, travelerID string) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireTravelerLock(ctx context.Context, travelerID string, ttl time.Duration) (token string, ok bool, err error)
	ReleaseTravelerLock(ctx context.Context, travelerID, token string) error
}

// TripCacheInterface defines the interface for trip caching.
type TripCacheInterface interface {
	GetTrip(ctx context.Context, tripID string) (*CachedTrip, error)
	SetTrip(ctx context.Context, trip *CachedTrip) error
	AdvanceTrip(ctx context.Context, tripID string, statusVersion int64) error
	InvalidateTrip(ctx context.Context, tripID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ LocationStoreInterface = (*LocationStore)(nil)
	_ LockStoreInterface     = (*LockStore)(nil)
	_ TripCacheInterface     = (*CacheStore)(nil)
)

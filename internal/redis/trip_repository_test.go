package redis

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parcelroute/internal/domain"
	"parcelroute/internal/logging"
	"parcelroute/internal/repository"
)

// memoryTripCache mirrors CacheStore's version floor without Redis.
type memoryTripCache struct {
	mu     sync.Mutex
	trips  map[string]*CachedTrip
	floors map[string]int64
}

func newMemoryTripCache() *memoryTripCache {
	return &memoryTripCache{trips: map[string]*CachedTrip{}, floors: map[string]int64{}}
}

func (c *memoryTripCache) GetTrip(_ context.Context, id string) (*CachedTrip, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.trips[id]
	if !ok {
		return nil, nil
	}
	copy := *t
	return &copy, nil
}

func (c *memoryTripCache) SetTrip(_ context.Context, t *CachedTrip) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if floor, ok := c.floors[t.ID]; ok && t.StatusVersion < floor {
		return nil
	}
	copy := *t
	c.trips[t.ID] = &copy
	c.floors[t.ID] = t.StatusVersion
	return nil
}

func (c *memoryTripCache) AdvanceTrip(_ context.Context, id string, version int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if version > c.floors[id] {
		c.floors[id] = version
	}
	delete(c.trips, id)
	return nil
}

func (c *memoryTripCache) InvalidateTrip(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.trips, id)
	return nil
}

// gatedTripStore is the source of truth. When gate is set, GetByID takes
// its snapshot, signals loaded and waits for gate before returning.
type gatedTripStore struct {
	repository.TripRepository

	mu     sync.Mutex
	trip   domain.Trip
	loaded chan struct{}
	gate   chan struct{}
}

func (s *gatedTripStore) snapshot() *domain.Trip {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.trip
	return &t
}

func (s *gatedTripStore) GetByID(_ context.Context, id string) (*domain.Trip, error) {
	if id != s.snapshot().ID {
		return nil, repository.ErrNotFound
	}
	t := s.snapshot()
	if s.gate != nil {
		close(s.loaded)
		<-s.gate
	}
	return t, nil
}

func (s *gatedTripStore) GetCurrent(_ context.Context, id string) (*domain.Trip, error) {
	if id != s.snapshot().ID {
		return nil, repository.ErrNotFound
	}
	return s.snapshot(), nil
}

func (s *gatedTripStore) UpdateStatus(_ context.Context, t *domain.Trip, expected int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.trip.StatusVersion != expected {
		return repository.ErrConflict
	}
	t.StatusVersion = expected + 1
	s.trip = *t
	return nil
}

func inTransit() domain.Trip {
	return domain.Trip{
		ID:            "trip-1",
		ShipperID:     "shipper-1",
		TravelerID:    "traveler-1",
		Status:        domain.TripStatusInTransit,
		StatusVersion: 3,
	}
}

func TestCachedTripRepository_StaleFillAfterTransitionIsDropped(t *testing.T) {
	ctx := context.Background()
	store := &gatedTripStore{trip: inTransit(), loaded: make(chan struct{}), gate: make(chan struct{})}
	cache := newMemoryTripCache()
	repo := NewCachedTripRepository(store, cache, logging.Discard())

	// A reader misses the cache and loads the in-transit row.
	done := make(chan *domain.Trip)
	go func() {
		trip, err := repo.GetByID(ctx, "trip-1")
		assert.NoError(t, err)
		done <- trip
	}()
	<-store.loaded

	// Delivery commits before the reader fills the cache.
	delivered := inTransit()
	delivered.Status = domain.TripStatusDelivered
	require.NoError(t, repo.UpdateStatus(ctx, &delivered, 3))
	assert.Equal(t, int64(4), delivered.StatusVersion)

	store.gate <- struct{}{}
	stale := <-done
	assert.Equal(t, domain.TripStatusInTransit, stale.Status, "the racing reader still sees its own snapshot")

	store.gate = nil
	cached, err := cache.GetTrip(ctx, "trip-1")
	require.NoError(t, err)
	assert.Nil(t, cached, "stale in-transit copy must not be cached")

	got, err := repo.GetByID(ctx, "trip-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusDelivered, got.Status)
	assert.Equal(t, int64(4), got.StatusVersion)
}

func TestCachedTripRepository_GetCurrentBypassesCache(t *testing.T) {
	ctx := context.Background()
	store := &gatedTripStore{trip: inTransit()}
	cache := newMemoryTripCache()
	repo := NewCachedTripRepository(store, cache, logging.Discard())

	// Seed a copy that is older than the committed row.
	old := inTransit()
	old.StatusVersion = 2
	old.Status = domain.TripStatusMatched
	require.NoError(t, cache.SetTrip(ctx, NewCachedTrip(&old)))

	got, err := repo.GetCurrent(ctx, "trip-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusInTransit, got.Status)
	assert.Equal(t, int64(3), got.StatusVersion)
}

func TestCachedTripRepository_ConflictLeavesFloorAlone(t *testing.T) {
	ctx := context.Background()
	store := &gatedTripStore{trip: inTransit()}
	cache := newMemoryTripCache()
	repo := NewCachedTripRepository(store, cache, logging.Discard())

	_, err := repo.GetByID(ctx, "trip-1")
	require.NoError(t, err)

	lost := inTransit()
	lost.Status = domain.TripStatusDelivered
	assert.ErrorIs(t, repo.UpdateStatus(ctx, &lost, 1), repository.ErrConflict)

	cached, err := cache.GetTrip(ctx, "trip-1")
	require.NoError(t, err)
	assert.Nil(t, cached)

	got, err := repo.GetByID(ctx, "trip-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.StatusVersion)
}

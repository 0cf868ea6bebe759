package redis

import (
	"context"

	"github.com/sirupsen/logrus"

	"parcelroute/internal/domain"
	"parcelroute/internal/repository"
)

// CachedTripRepository serves trip reads from Redis and invalidates on every
// write. Cache failures fall through to the underlying repository. Status
// transitions raise a version floor in the cache so a fill that loaded the
// row before the transition is rejected.
type CachedTripRepository struct {
	repository.TripRepository
	cache  TripCacheInterface
	logger logrus.FieldLogger
}

// NewCachedTripRepository wraps repo with a read-through trip cache.
func NewCachedTripRepository(repo repository.TripRepository, cache TripCacheInterface, logger logrus.FieldLogger) *CachedTripRepository {
	return &CachedTripRepository{TripRepository: repo, cache: cache, logger: logger}
}

// GetByID retrieves a trip, preferring the cached copy.
func (r *CachedTripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	cached, err := r.cache.GetTrip(ctx, id)
	if err != nil {
		r.logger.WithError(err).WithField("trip_id", id).Warn("trip cache read failed")
	}
	if cached != nil {
		return cached.Trip(), nil
	}

	trip, err := r.TripRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := r.cache.SetTrip(ctx, NewCachedTrip(trip)); err != nil {
		r.logger.WithError(err).WithField("trip_id", id).Warn("trip cache write failed")
	}
	return trip, nil
}

// GetCurrent reads the committed trip from the underlying repository.
func (r *CachedTripRepository) GetCurrent(ctx context.Context, id string) (*domain.Trip, error) {
	return r.TripRepository.GetCurrent(ctx, id)
}

// UpdateStatus writes through and drops the cached copy.
func (r *CachedTripRepository) UpdateStatus(ctx context.Context, trip *domain.Trip, expectedVersion int64) error {
	if err := r.TripRepository.UpdateStatus(ctx, trip, expectedVersion); err != nil {
		r.invalidate(ctx, trip.ID)
		return err
	}

	if err := r.cache.AdvanceTrip(ctx, trip.ID, trip.StatusVersion); err != nil {
		r.logger.WithError(err).WithField("trip_id", trip.ID).Warn("trip cache version bump failed")
		r.invalidate(ctx, trip.ID)
	}
	return nil
}

// UpdateCurrentLocation writes through and drops the cached copy.
func (r *CachedTripRepository) UpdateCurrentLocation(ctx context.Context, tripID string, loc domain.Location) error {
	err := r.TripRepository.UpdateCurrentLocation(ctx, tripID, loc)
	r.invalidate(ctx, tripID)
	return err
}

func (r *CachedTripRepository) invalidate(ctx context.Context, tripID string) {
	if err := r.cache.InvalidateTrip(ctx, tripID); err != nil {
		r.logger.WithError(err).WithField("trip_id", tripID).Warn("trip cache invalidation failed")
	}
}

var _ repository.TripRepository = (*CachedTripRepository)(nil)

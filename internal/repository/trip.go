package repository

import (
	"context"

	"parcelroute/internal/domain"
)

// TripRepository defines the persistence operations for trips.
type TripRepository interface {
	// Create persists a new trip.
	Create(ctx context.Context, trip *domain.Trip) error

	// GetByID retrieves a trip by ID. The result may come from a cache.
	GetByID(ctx context.Context, id string) (*domain.Trip, error)

	// GetCurrent retrieves the committed trip, bypassing any cache. Use it
	// when the status decides what happens next.
	GetCurrent(ctx context.Context, id string) (*domain.Trip, error)

	// ListByParticipant returns the trips a user ships or carries, newest first.
	ListByParticipant(ctx context.Context, userID string, limit int) ([]*domain.Trip, error)

	// UpdateStatus writes trip.Status, trip.TravelerID and trip.Fare only if
	// the stored statusVersion still equals expectedVersion. On success
	// trip.StatusVersion is bumped. Returns ErrConflict when the version moved.
	UpdateStatus(ctx context.Context, trip *domain.Trip, expectedVersion int64) error

	// UpdateCurrentLocation records the latest known position of a trip.
	UpdateCurrentLocation(ctx context.Context, tripID string, loc domain.Location) error
}

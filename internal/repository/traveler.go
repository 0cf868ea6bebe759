package repository

import (
	"context"

	"parcelroute/internal/domain"
)

// TravelerRepository defines the persistence operations for traveler profiles.
type TravelerRepository interface {
	// Upsert creates or replaces a traveler's declared journey and capacity.
	Upsert(ctx context.Context, traveler *domain.TravelerCandidate) error

	// GetByID retrieves a traveler by ID.
	GetByID(ctx context.Context, id string) (*domain.TravelerCandidate, error)

	// ListMatchable returns idle and active travelers, the only ones the
	// matching engine considers.
	ListMatchable(ctx context.Context) ([]*domain.TravelerCandidate, error)

	// AdjustInFlight adds delta to the traveler's in-flight package count and
	// derives the status from the result.
	AdjustInFlight(ctx context.Context, id string, delta int) error
}

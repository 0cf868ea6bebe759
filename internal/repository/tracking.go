package repository

import (
	"context"

	"parcelroute/internal/domain"
)

// GPSFixRepository is the append-only log of trip position reports.
type GPSFixRepository interface {
	// Append stores a fix.
	Append(ctx context.Context, fix *domain.GPSFix) error

	// ListByTrip returns a trip's fixes ordered by timestamp ascending.
	ListByTrip(ctx context.Context, tripID string) ([]*domain.GPSFix, error)

	// CountByTrip returns how many fixes a trip has.
	CountByTrip(ctx context.Context, tripID string) (int64, error)
}

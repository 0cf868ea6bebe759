package repository

import (
	"context"
	"time"

	"parcelroute/internal/domain"
)

// DisputeFilter narrows a dispute listing. Empty fields match everything.
type DisputeFilter struct {
	TripID     string
	ReporterID string
	Limit      int
}

// DisputeResolution is what an admin records when closing a dispute.
type DisputeResolution struct {
	Outcome    domain.TripStatus
	ResolvedBy string
	Details    string
	ResolvedAt time.Time
}

// DisputeRepository stores dispute records.
type DisputeRepository interface {
	// Create stores a new dispute.
	Create(ctx context.Context, d *domain.Dispute) error

	// GetByID retrieves a dispute by ID.
	GetByID(ctx context.Context, id string) (*domain.Dispute, error)

	// GetOpenByTrip returns the open dispute of a trip, or ErrNotFound.
	GetOpenByTrip(ctx context.Context, tripID string) (*domain.Dispute, error)

	// List returns disputes matching filter, newest first.
	List(ctx context.Context, filter DisputeFilter) ([]*domain.Dispute, error)

	// Resolve closes an open dispute. Returns ErrConflict if it is not open.
	Resolve(ctx context.Context, id string, res DisputeResolution) error

	// Delete removes a dispute.
	Delete(ctx context.Context, id string) error
}

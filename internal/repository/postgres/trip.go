package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"parcelroute/internal/domain"
	"parcelroute/internal/repository"
)

// TripRepository is a PostgreSQL implementation of repository.TripRepository.
type TripRepository struct {
	q Querier
}

// NewTripRepository creates a new PostgreSQL trip repository.
func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{q: db}
}

const tripColumns = `
	id, shipper_id, traveler_id, status,
	origin_lat, origin_lng, origin_address,
	dest_lat, dest_lng, dest_address,
	package_weight_kg, package_length_cm, package_width_cm, package_height_cm,
	package_type, package_description,
	fare, current_lat, current_lng, status_version, estimated_delivery_at,
	created_at, updated_at`

// Create persists a new trip.
func (r *TripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	query := `
		INSERT INTO trips (` + tripColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
	`

	var length, width, height sql.NullFloat64
	if d := trip.Package.Dimensions; d != nil {
		length = sql.NullFloat64{Float64: d.LengthCm, Valid: true}
		width = sql.NullFloat64{Float64: d.WidthCm, Valid: true}
		height = sql.NullFloat64{Float64: d.HeightCm, Valid: true}
	}

	var curLat, curLng sql.NullFloat64
	if c := trip.CurrentLocation; c != nil {
		curLat = sql.NullFloat64{Float64: c.Lat, Valid: true}
		curLng = sql.NullFloat64{Float64: c.Lng, Valid: true}
	}

	_, err := r.q.ExecContext(ctx, query,
		trip.ID,
		trip.ShipperID,
		nullString(trip.TravelerID),
		trip.Status,
		trip.Origin.Lat,
		trip.Origin.Lng,
		trip.Origin.Address,
		trip.Destination.Lat,
		trip.Destination.Lng,
		trip.Destination.Address,
		trip.Package.WeightKg,
		length,
		width,
		height,
		trip.Package.Type,
		trip.Package.Description,
		trip.Fare,
		curLat,
		curLng,
		trip.StatusVersion,
		nullTime(trip.EstimatedDeliveryAt),
		trip.CreatedAt,
		trip.UpdatedAt,
	)

	return err
}

// GetByID retrieves a trip by ID.
func (r *TripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`

	trip, err := scanTrip(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return trip, nil
}

// GetCurrent reads the committed row. Postgres is the source of truth, so
// this is GetByID.
func (r *TripRepository) GetCurrent(ctx context.Context, id string) (*domain.Trip, error) {
	return r.GetByID(ctx, id)
}

// ListByParticipant returns the trips a user ships or carries, newest first.
func (r *TripRepository) ListByParticipant(ctx context.Context, userID string, limit int) ([]*domain.Trip, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE shipper_id = $1 OR traveler_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.q.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []*domain.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}

	return trips, rows.Err()
}

// UpdateStatus applies a status change guarded by the trip's status version.
func (r *TripRepository) UpdateStatus(ctx context.Context, trip *domain.Trip, expectedVersion int64) error {
	query := `
		UPDATE trips
		SET status = $1, traveler_id = $2, fare = $3, estimated_delivery_at = $4,
		    status_version = status_version + 1, updated_at = $5
		WHERE id = $6 AND status_version = $7
	`

	now := time.Now().UTC()
	result, err := r.q.ExecContext(ctx, query,
		trip.Status,
		nullString(trip.TravelerID),
		trip.Fare,
		nullTime(trip.EstimatedDeliveryAt),
		now,
		trip.ID,
		expectedVersion,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		var exists bool
		if err := r.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM trips WHERE id = $1)`, trip.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return repository.ErrNotFound
		}
		return repository.ErrConflict
	}

	trip.StatusVersion = expectedVersion + 1
	trip.UpdatedAt = now
	return nil
}

// UpdateCurrentLocation records the latest known position of a trip.
func (r *TripRepository) UpdateCurrentLocation(ctx context.Context, tripID string, loc domain.Location) error {
	query := `UPDATE trips SET current_lat = $1, current_lng = $2, updated_at = NOW() WHERE id = $3`

	result, err := r.q.ExecContext(ctx, query, loc.Lat, loc.Lng, tripID)
	if err != nil {
		return err
	}

	return expectOneRow(result, repository.ErrNotFound)
}

func scanTrip(row rowScanner) (*domain.Trip, error) {
	var trip domain.Trip
	var travelerID sql.NullString
	var length, width, height sql.NullFloat64
	var curLat, curLng sql.NullFloat64
	var estimatedDeliveryAt sql.NullTime

	err := row.Scan(
		&trip.ID,
		&trip.ShipperID,
		&travelerID,
		&trip.Status,
		&trip.Origin.Lat,
		&trip.Origin.Lng,
		&trip.Origin.Address,
		&trip.Destination.Lat,
		&trip.Destination.Lng,
		&trip.Destination.Address,
		&trip.Package.WeightKg,
		&length,
		&width,
		&height,
		&trip.Package.Type,
		&trip.Package.Description,
		&trip.Fare,
		&curLat,
		&curLng,
		&trip.StatusVersion,
		&estimatedDeliveryAt,
		&trip.CreatedAt,
		&trip.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	trip.TravelerID = travelerID.String
	if length.Valid && width.Valid && height.Valid {
		trip.Package.Dimensions = &domain.Dimensions{
			LengthCm: length.Float64,
			WidthCm:  width.Float64,
			HeightCm: height.Float64,
		}
	}
	if curLat.Valid && curLng.Valid {
		trip.CurrentLocation = &domain.Location{Lat: curLat.Float64, Lng: curLng.Float64}
	}
	if estimatedDeliveryAt.Valid {
		trip.EstimatedDeliveryAt = estimatedDeliveryAt.Time
	}

	return &trip, nil
}

// Ensure TripRepository implements repository.TripRepository.
var _ repository.TripRepository = (*TripRepository)(nil)

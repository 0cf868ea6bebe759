package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"parcelroute/internal/domain"
	"parcelroute/internal/repository"
)

// TravelerRepository is a PostgreSQL implementation of repository.TravelerRepository.
type TravelerRepository struct {
	q Querier
}

// NewTravelerRepository creates a new PostgreSQL traveler repository.
func NewTravelerRepository(db *sql.DB) *TravelerRepository {
	return &TravelerRepository{q: db}
}

// routePoint is the JSONB shape of one route waypoint.
type routePoint struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

const travelerColumns = `
	id, name, journey_id, route, max_weight_kg, max_volume_cm3,
	available_from, available_to, reliability, status, in_flight_packages, updated_at`

// Upsert creates or replaces a traveler's profile. The in-flight count is
// owned by AdjustInFlight and is not overwritten on conflict.
func (r *TravelerRepository) Upsert(ctx context.Context, t *domain.TravelerCandidate) error {
	points := make([]routePoint, 0, len(t.Route))
	for _, wp := range t.Route {
		points = append(points, routePoint{Lat: wp.Lat, Lng: wp.Lng, Address: wp.Address})
	}
	route, err := json.Marshal(points)
	if err != nil {
		return fmt.Errorf("failed to encode route: %w", err)
	}

	query := `
		INSERT INTO travelers (` + travelerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			journey_id = EXCLUDED.journey_id,
			route = EXCLUDED.route,
			max_weight_kg = EXCLUDED.max_weight_kg,
			max_volume_cm3 = EXCLUDED.max_volume_cm3,
			available_from = EXCLUDED.available_from,
			available_to = EXCLUDED.available_to,
			reliability = EXCLUDED.reliability,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.q.ExecContext(ctx, query,
		t.TravelerID,
		t.Name,
		t.JourneyID,
		route,
		t.Capacity.MaxWeightKg,
		t.Capacity.MaxVolumeCm3,
		nullTime(t.Availability.From),
		nullTime(t.Availability.To),
		t.Reliability,
		t.Status,
		t.InFlightPackages,
		t.UpdatedAt,
	)
	return err
}

// GetByID retrieves a traveler by ID.
func (r *TravelerRepository) GetByID(ctx context.Context, id string) (*domain.TravelerCandidate, error) {
	query := `SELECT ` + travelerColumns + ` FROM travelers WHERE id = $1`

	t, err := scanTraveler(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return t, nil
}

// ListMatchable returns idle and active travelers.
func (r *TravelerRepository) ListMatchable(ctx context.Context) ([]*domain.TravelerCandidate, error) {
	query := `
		SELECT ` + travelerColumns + `
		FROM travelers
		WHERE status IN ($1, $2)
		ORDER BY id
	`

	rows, err := r.q.QueryContext(ctx, query, domain.TravelerStatusIdle, domain.TravelerStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var travelers []*domain.TravelerCandidate
	for rows.Next() {
		t, err := scanTraveler(rows)
		if err != nil {
			return nil, err
		}
		travelers = append(travelers, t)
	}
	return travelers, rows.Err()
}

// AdjustInFlight adds delta to the in-flight count. A traveler carrying
// anything is active; one carrying nothing goes back to idle.
func (r *TravelerRepository) AdjustInFlight(ctx context.Context, id string, delta int) error {
	query := `
		UPDATE travelers
		SET in_flight_packages = GREATEST(in_flight_packages + $1, 0),
		    status = CASE WHEN GREATEST(in_flight_packages + $1, 0) > 0 THEN $2 ELSE $3 END,
		    updated_at = NOW()
		WHERE id = $4 AND status <> $5
	`

	result, err := r.q.ExecContext(ctx, query,
		delta,
		domain.TravelerStatusActive,
		domain.TravelerStatusIdle,
		id,
		domain.TravelerStatusCompleted,
	)
	if err != nil {
		return err
	}

	return expectOneRow(result, repository.ErrNotFound)
}

func scanTraveler(row rowScanner) (*domain.TravelerCandidate, error) {
	var t domain.TravelerCandidate
	var route []byte
	var from, to sql.NullTime

	err := row.Scan(
		&t.TravelerID,
		&t.Name,
		&t.JourneyID,
		&route,
		&t.Capacity.MaxWeightKg,
		&t.Capacity.MaxVolumeCm3,
		&from,
		&to,
		&t.Reliability,
		&t.Status,
		&t.InFlightPackages,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	var points []routePoint
	if err := json.Unmarshal(route, &points); err != nil {
		return nil, fmt.Errorf("failed to decode route for traveler %s: %w", t.TravelerID, err)
	}
	t.Route = make([]domain.Location, 0, len(points))
	for _, p := range points {
		t.Route = append(t.Route, domain.Location{Lat: p.Lat, Lng: p.Lng, Address: p.Address})
	}

	if from.Valid {
		t.Availability.From = from.Time
	}
	if to.Valid {
		t.Availability.To = to.Time
	}

	return &t, nil
}

// Ensure TravelerRepository implements repository.TravelerRepository.
var _ repository.TravelerRepository = (*TravelerRepository)(nil)

package postgres

import (
	"context"
	"database/sql"
	"errors"

	"parcelroute/internal/domain"
	"parcelroute/internal/repository"
)

// PaymentRepository is a PostgreSQL implementation of repository.PaymentRepository.
type PaymentRepository struct {
	q Querier
}

// NewPaymentRepository creates a new PostgreSQL payment repository.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{q: db}
}

const paymentColumns = `
	id, trip_id, shipper_id, traveler_id, amount, currency, status,
	gateway_ref, idempotency_key, created_at, updated_at`

// Create persists a new payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.q.ExecContext(ctx, query,
		payment.ID,
		payment.TripID,
		payment.ShipperID,
		payment.TravelerID,
		payment.Amount,
		payment.Currency,
		payment.Status,
		payment.GatewayRef,
		payment.IdempotencyKey,
		payment.CreatedAt,
		payment.UpdatedAt,
	)

	return err
}

// GetByID retrieves a payment by ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
}

// GetByTripID retrieves the most recent escrow record for a trip.
func (r *PaymentRepository) GetByTripID(ctx context.Context, tripID string) (*domain.Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE trip_id = $1 ORDER BY created_at DESC LIMIT 1`, tripID)
}

// GetByIdempotencyKey retrieves a payment by its idempotency key.
// Returns nil if no payment exists with the given key.
func (r *PaymentRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error) {
	payment, err := r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE idempotency_key = $1`, key)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return payment, err
}

// UpdateStatus updates the status of a payment.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) error {
	query := `UPDATE payments SET status = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.q.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}

	return expectOneRow(result, repository.ErrNotFound)
}

func (r *PaymentRepository) getOne(ctx context.Context, query string, arg string) (*domain.Payment, error) {
	var payment domain.Payment
	err := r.q.QueryRowContext(ctx, query, arg).Scan(
		&payment.ID,
		&payment.TripID,
		&payment.ShipperID,
		&payment.TravelerID,
		&payment.Amount,
		&payment.Currency,
		&payment.Status,
		&payment.GatewayRef,
		&payment.IdempotencyKey,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &payment, nil
}

// Ensure PaymentRepository implements repository.PaymentRepository.
var _ repository.PaymentRepository = (*PaymentRepository)(nil)

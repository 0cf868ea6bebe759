package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"parcelroute/internal/domain"
	"parcelroute/internal/repository"
)

// EscrowGateway is the interface for a payment provider that can hold funds
// and settle them later.
type EscrowGateway interface {
	Hold(ctx context.Context, amountMinor int64, currency, idempotencyKey string) (string, error)
	Capture(ctx context.Context, ref string) error
	Cancel(ctx context.Context, ref string) error
}

// EscrowService holds a trip's fare while the package travels and settles it
// once the trip ends.
type EscrowService struct {
	paymentRepo repository.PaymentRepository
	gateway     EscrowGateway
	currency    string
	logger      logrus.FieldLogger
}

// NewEscrowService creates a new EscrowService.
func NewEscrowService(paymentRepo repository.PaymentRepository, gateway EscrowGateway, currency string, logger logrus.FieldLogger) *EscrowService {
	if currency == "" {
		currency = "usd"
	}
	return &EscrowService{
		paymentRepo: paymentRepo,
		gateway:     gateway,
		currency:    currency,
		logger:      logger,
	}
}

func escrowKey(tripID string) string {
	return fmt.Sprintf("escrow:%s", tripID)
}

// Hold places the trip's fare in escrow. Holding a trip twice returns the
// existing record.
func (s *EscrowService) Hold(ctx context.Context, trip *domain.Trip) (*domain.Payment, error) {
	if trip.ID == "" {
		return nil, ErrInvalidTripID
	}
	if trip.Fare <= 0 {
		return nil, ErrInvalidFare
	}

	key := escrowKey(trip.ID)

	existing, err := s.paymentRepo.GetByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	ref, err := s.gateway.Hold(ctx, int64(math.Round(trip.Fare*100)), s.currency, key)
	if err != nil {
		s.logger.WithError(err).WithField("trip_id", trip.ID).Error("escrow hold failed")
		return nil, err
	}

	now := time.Now()
	payment := &domain.Payment{
		ID:             uuid.New().String(),
		TripID:         trip.ID,
		ShipperID:      trip.ShipperID,
		TravelerID:     trip.TravelerID,
		Amount:         trip.Fare,
		Currency:       s.currency,
		Status:         domain.PaymentStatusHeld,
		GatewayRef:     ref,
		IdempotencyKey: key,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		// The hold exists at the gateway but we could not record it.
		if cerr := s.gateway.Cancel(ctx, ref); cerr != nil {
			s.logger.WithError(cerr).WithField("gateway_ref", ref).Error("failed to cancel orphaned hold")
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"trip_id":    trip.ID,
		"payment_id": payment.ID,
		"amount":     payment.Amount,
	}).Info("escrow held")

	return payment, nil
}

// Capture pays the held fare out. Capturing twice is a no-op.
func (s *EscrowService) Capture(ctx context.Context, tripID string) (*domain.Payment, error) {
	return s.settle(ctx, tripID, domain.PaymentStatusCaptured, s.gateway.Capture)
}

// Release returns the held fare to the shipper. Releasing twice is a no-op.
func (s *EscrowService) Release(ctx context.Context, tripID string) (*domain.Payment, error) {
	return s.settle(ctx, tripID, domain.PaymentStatusReleased, s.gateway.Cancel)
}

// MarkDisputed freezes a held payment until an admin resolves the dispute.
func (s *EscrowService) MarkDisputed(ctx context.Context, tripID string) (*domain.Payment, error) {
	payment, err := s.paymentRepo.GetByTripID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	switch payment.Status {
	case domain.PaymentStatusDisputed:
		return payment, nil
	case domain.PaymentStatusHeld:
	default:
		return nil, ErrEscrowNotHeld
	}

	if err := s.paymentRepo.UpdateStatus(ctx, payment.ID, domain.PaymentStatusDisputed); err != nil {
		return nil, err
	}
	payment.Status = domain.PaymentStatusDisputed
	return payment, nil
}

func (s *EscrowService) settle(ctx context.Context, tripID string, target domain.PaymentStatus, call func(context.Context, string) error) (*domain.Payment, error) {
	payment, err := s.paymentRepo.GetByTripID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	switch payment.Status {
	case target:
		return payment, nil
	case domain.PaymentStatusHeld, domain.PaymentStatusDisputed:
	default:
		return nil, ErrEscrowNotHeld
	}

	if err := call(ctx, payment.GatewayRef); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"trip_id":    tripID,
			"payment_id": payment.ID,
			"target":     target,
		}).Error("escrow settlement failed")
		return nil, err
	}

	if err := s.paymentRepo.UpdateStatus(ctx, payment.ID, target); err != nil {
		return nil, err
	}
	payment.Status = target

	s.logger.WithFields(logrus.Fields{
		"trip_id":    tripID,
		"payment_id": payment.ID,
		"status":     target,
	}).Info("escrow settled")

	return payment, nil
}

// GetPayment retrieves a payment visible to the caller.
func (s *EscrowService) GetPayment(ctx context.Context, p domain.Principal, paymentID string) (*domain.Payment, error) {
	if paymentID == "" {
		return nil, ErrInvalidPaymentID
	}

	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() && p.UserID != payment.ShipperID && p.UserID != payment.TravelerID {
		return nil, ErrNotTripParticipant
	}
	return payment, nil
}

// GetTripPayment retrieves a trip's escrow record visible to the caller.
func (s *EscrowService) GetTripPayment(ctx context.Context, p domain.Principal, tripID string) (*domain.Payment, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	payment, err := s.paymentRepo.GetByTripID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() && p.UserID != payment.ShipperID && p.UserID != payment.TravelerID {
		return nil, ErrNotTripParticipant
	}
	return payment, nil
}

// settleQuietly runs a settlement whose failure must not undo a trip
// transition that already committed.
func (s *EscrowService) settleQuietly(ctx context.Context, tripID string, op func(context.Context, string) (*domain.Payment, error)) {
	if _, err := op(ctx, tripID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.WithError(err).WithField("trip_id", tripID).Warn("escrow follow-up failed")
	}
}

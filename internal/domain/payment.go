package domain

import "time"

// PaymentStatus represents the escrow state of a trip payment.
type PaymentStatus string

const (
	PaymentStatusHeld     PaymentStatus = "held"
	PaymentStatusCaptured PaymentStatus = "captured"
	PaymentStatusReleased PaymentStatus = "released"
	PaymentStatusDisputed PaymentStatus = "disputed"
	PaymentStatusFailed   PaymentStatus = "failed"
)

// Payment is the escrow record for a trip's fare.
type Payment struct {
	ID             string
	TripID         string
	ShipperID      string
	TravelerID     string
	Amount         float64
	Currency       string
	Status         PaymentStatus
	GatewayRef     string // gateway-side hold identifier
	IdempotencyKey string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

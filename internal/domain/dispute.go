package domain

import "time"

// DisputeType classifies what went wrong on a trip.
type DisputeType string

const (
	DisputeTypePayment    DisputeType = "payment_issue"
	DisputeTypeDelivery   DisputeType = "delivery_issue"
	DisputeTypeItemDamage DisputeType = "item_damage"
	DisputeTypeBehavioral DisputeType = "behavioral"
	DisputeTypeOther      DisputeType = "other"
)

// Valid reports whether t is a known dispute type.
func (t DisputeType) Valid() bool {
	switch t {
	case DisputeTypePayment, DisputeTypeDelivery, DisputeTypeItemDamage,
		DisputeTypeBehavioral, DisputeTypeOther:
		return true
	}
	return false
}

// DisputeStatus is the review state of a dispute.
type DisputeStatus string

const (
	DisputeStatusOpen     DisputeStatus = "open"
	DisputeStatusResolved DisputeStatus = "resolved"
)

// Dispute is the record a participant files when a trip goes wrong. The trip
// itself carries the disputed status; the record keeps who reported what and
// how an admin settled it.
type Dispute struct {
	ID                string
	TripID            string
	ReporterID        string
	Type              DisputeType
	Description       string
	Evidence          []string
	Status            DisputeStatus
	Outcome           TripStatus
	ResolvedBy        string
	ResolutionDetails string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ResolvedAt        *time.Time
}

package domain

import "time"

// TripStatus represents the lifecycle state of a delivery trip.
type TripStatus string

const (
	TripStatusPending   TripStatus = "pending"
	TripStatusMatched   TripStatus = "matched"
	TripStatusInTransit TripStatus = "in-transit"
	TripStatusDelivered TripStatus = "delivered"
	TripStatusCancelled TripStatus = "cancelled"
	TripStatusDisputed  TripStatus = "disputed"
)

// allowedTripTransitions is the forward-only trip state machine.
var allowedTripTransitions = map[TripStatus][]TripStatus{
	TripStatusPending:   {TripStatusMatched, TripStatusCancelled},
	TripStatusMatched:   {TripStatusInTransit, TripStatusCancelled},
	TripStatusInTransit: {TripStatusDelivered, TripStatusDisputed},
	TripStatusDisputed:  {TripStatusDelivered, TripStatusCancelled},
}

// CanTransition reports whether a trip may move from one status to another.
func CanTransition(from, to TripStatus) bool {
	for _, next := range allowedTripTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known trip status.
func (s TripStatus) Valid() bool {
	switch s {
	case TripStatusPending, TripStatusMatched, TripStatusInTransit,
		TripStatusDelivered, TripStatusCancelled, TripStatusDisputed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s TripStatus) IsTerminal() bool {
	return s == TripStatusDelivered || s == TripStatusCancelled
}

// RequiresTraveler reports whether a trip in this status carries a traveler.
// Disputed trips keep the traveler that was assigned when the dispute opened.
func (s TripStatus) RequiresTraveler() bool {
	switch s {
	case TripStatusMatched, TripStatusInTransit, TripStatusDelivered, TripStatusDisputed:
		return true
	}
	return false
}

// Location is a geographic point with an optional human readable address.
type Location struct {
	Lat     float64
	Lng     float64
	Address string
}

// Valid reports whether the coordinates are within WGS-84 ranges.
func (l Location) Valid() bool {
	return ValidLatitude(l.Lat) && ValidLongitude(l.Lng)
}

// ValidLatitude reports whether lat is within [-90, 90].
func ValidLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

// ValidLongitude reports whether lng is within [-180, 180].
func ValidLongitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}

// Dimensions are package measurements in centimeters.
type Dimensions struct {
	LengthCm float64
	WidthCm  float64
	HeightCm float64
}

// VolumeCm3 returns the box volume in cubic centimeters.
func (d Dimensions) VolumeCm3() float64 {
	return d.LengthCm * d.WidthCm * d.HeightCm
}

// PackageDetails describes the parcel a shipper wants delivered.
type PackageDetails struct {
	Description string
	WeightKg    float64
	Dimensions  *Dimensions // nil when the shipper did not declare them
	Type        string
}

// Trip represents a delivery from a shipper's origin to destination, carried
// by a traveler once matched.
type Trip struct {
	ID                  string
	ShipperID           string
	TravelerID          string // empty until matched
	Status              TripStatus
	Origin              Location
	Destination         Location
	Package             PackageDetails
	Fare                float64
	CurrentLocation     *Location // last known fix
	StatusVersion       int64     // bumped on every status change
	EstimatedDeliveryAt time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsParticipant reports whether userID is the trip's shipper or traveler.
func (t *Trip) IsParticipant(userID string) bool {
	if userID == "" {
		return false
	}
	return t.ShipperID == userID || t.TravelerID == userID
}

// TravelerAssignmentConsistent reports whether the traveler field agrees with
// the trip status.
func (t *Trip) TravelerAssignmentConsistent() bool {
	return (t.TravelerID != "") == t.Status.RequiresTraveler()
}

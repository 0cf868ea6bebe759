package domain

import "time"

// TravelerStatus represents where a traveler is in their declared journey.
type TravelerStatus string

const (
	TravelerStatusIdle      TravelerStatus = "idle"
	TravelerStatusActive    TravelerStatus = "active"
	TravelerStatusCompleted TravelerStatus = "completed"
)

// Capacity is the spare room a traveler declared for packages.
type Capacity struct {
	MaxWeightKg  float64
	MaxVolumeCm3 float64
}

// AvailabilityWindow bounds when a traveler can deliver. A zero bound is open.
type AvailabilityWindow struct {
	From time.Time
	To   time.Time
}

// Covers reports whether t falls within the window.
func (w AvailabilityWindow) Covers(t time.Time) bool {
	if !w.From.IsZero() && t.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && t.After(w.To) {
		return false
	}
	return true
}

// TravelerCandidate is a traveler profile as seen by the matching engine.
type TravelerCandidate struct {
	TravelerID       string
	Name             string
	JourneyID        string     // identifies the declared route
	Route            []Location // ordered waypoints
	Capacity         Capacity
	Availability     AvailabilityWindow
	Reliability      float64 // 0-5, derived from ratings
	Status           TravelerStatus
	InFlightPackages int
	UpdatedAt        time.Time
}

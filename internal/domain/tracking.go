package domain

import "time"

// GPSFix is a single position report for a trip. Fixes are append-only.
type GPSFix struct {
	ID        string
	TripID    string
	UserID    string
	Lat       float64
	Lng       float64
	Accuracy  *float64 // meters
	Speed     *float64 // meters per second
	Altitude  *float64 // meters
	Timestamp time.Time
}

// Location returns the fix as a Location.
func (f *GPSFix) Location() Location {
	return Location{Lat: f.Lat, Lng: f.Lng}
}

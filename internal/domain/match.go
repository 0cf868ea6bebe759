package domain

import "time"

// MatchState is the lifecycle state of a single match request.
type MatchState string

const (
	MatchStateReceived MatchState = "RECEIVED"
	MatchStateFiltered MatchState = "FILTERED"
	MatchStateScored   MatchState = "SCORED"
	MatchStateRanked   MatchState = "RANKED"
	MatchStateReturned MatchState = "RETURNED"
	MatchStateFailed   MatchState = "FAILED"
)

// MatchRequest is a shipper's search for travelers. It is never persisted.
type MatchRequest struct {
	Origin              Location
	Destination         Location
	Package             PackageDetails
	DesiredDeliveryTime *time.Time
	MaxBudget           *float64
}

// MatchResult is one ranked traveler for a match request.
type MatchResult struct {
	TravelerID              string
	MatchingTripID          string
	EstimatedDetourDistance float64 // meters
	EstimatedDetourDuration float64 // seconds
	EstimatedCost           float64
	EstimatedEarnings       float64
	Reliability             float64
	Rank                    int
}

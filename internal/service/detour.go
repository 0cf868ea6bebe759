package service

import (
	"context"
	"math"

	"parcelroute/internal/domain"
	"parcelroute/internal/georoute"
)

// PricingRates turn a detour into a price.
type PricingRates struct {
	PerKm          float64
	PerMinute      float64
	CommissionRate float64 // platform share, within [0,1]
}

// Price returns the shipper cost and the traveler earnings for a detour.
func (r PricingRates) Price(distanceMeters, durationSeconds float64) (cost, earnings float64) {
	cost = r.PerKm*(distanceMeters/1000) + r.PerMinute*(durationSeconds/60)
	earnings = cost * (1 - r.CommissionRate)
	return roundCents(cost), roundCents(earnings)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// DetourScore is the marginal cost of adding a package to a traveler's route.
// When Scored is false the remaining fields are meaningless and Err holds the
// provider failure.
type DetourScore struct {
	Scored            bool
	DistanceMeters    float64
	DurationSeconds   float64
	EstimatedCost     float64
	EstimatedEarnings float64
	Err               error
}

// DetourScorer measures how much a traveler's route grows when it is made to
// pass through a shipper's origin and destination.
type DetourScorer struct {
	router georoute.Router
	rates  PricingRates
}

// NewDetourScorer creates a DetourScorer.
func NewDetourScorer(router georoute.Router, rates PricingRates) *DetourScorer {
	return &DetourScorer{router: router, rates: rates}
}

// Baseline returns the direct route between origin and destination.
func (s *DetourScorer) Baseline(ctx context.Context, origin, destination domain.Location) (*georoute.Route, error) {
	return s.router.Route(ctx, georoute.RouteRequest{Origin: origin, Destination: destination})
}

// Score computes the baseline and scores one candidate against it.
func (s *DetourScorer) Score(ctx context.Context, req *domain.MatchRequest, c *domain.TravelerCandidate) DetourScore {
	baseline, err := s.Baseline(ctx, req.Origin, req.Destination)
	if err != nil {
		return DetourScore{Err: err}
	}
	return s.ScoreAgainst(ctx, baseline, req, c)
}

// ScoreAgainst scores a candidate against a precomputed baseline. Waypoints
// keep the traveler's declared order.
func (s *DetourScorer) ScoreAgainst(ctx context.Context, baseline *georoute.Route, req *domain.MatchRequest, c *domain.TravelerCandidate) DetourScore {
	augmented, err := s.router.Route(ctx, georoute.RouteRequest{
		Origin:            req.Origin,
		Destination:       req.Destination,
		Waypoints:         c.Route,
		OptimizeWaypoints: false,
	})
	if err != nil {
		return DetourScore{Err: err}
	}

	distance := math.Max(0, augmented.DistanceMeters-baseline.DistanceMeters)
	duration := math.Max(0, augmented.DurationSeconds-baseline.DurationSeconds)
	cost, earnings := s.rates.Price(distance, duration)

	return DetourScore{
		Scored:            true,
		DistanceMeters:    distance,
		DurationSeconds:   duration,
		EstimatedCost:     cost,
		EstimatedEarnings: earnings,
	}
}

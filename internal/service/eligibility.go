package service

import (
	"time"

	"parcelroute/internal/domain"
)

// Reasons a traveler is excluded before scoring.
const (
	ReasonOverweight    = "overweight"
	ReasonOversize      = "oversize"
	ReasonStatus        = "status_unavailable"
	ReasonRouteFull     = "route_full"
	ReasonOutsideWindow = "outside_availability_window"
	ReasonOutsideRegion = "outside_region"
	ReasonOverBudget    = "over_budget"
	ReasonUnscored      = "unscored"
)

// DefaultMaxStopsPerRoute is used when the policy leaves the limit unset.
const DefaultMaxStopsPerRoute = 1

// EligibilityPolicy holds the knobs of the eligibility check.
type EligibilityPolicy struct {
	// MaxStopsPerRoute is how many packages an active traveler may carry at
	// once. Values below 1 mean DefaultMaxStopsPerRoute.
	MaxStopsPerRoute int
}

// Eligibility is the outcome of CheckEligibility. Reason is empty when
// Eligible is true.
type Eligibility struct {
	Eligible bool
	Reason   string
}

// CheckEligibility decides whether a traveler can physically and temporally
// take a package. It has no side effects and depends only on its arguments.
func CheckEligibility(c *domain.TravelerCandidate, pkg domain.PackageDetails, desired *time.Time, policy EligibilityPolicy) Eligibility {
	if pkg.WeightKg > c.Capacity.MaxWeightKg {
		return Eligibility{Reason: ReasonOverweight}
	}

	if pkg.Dimensions != nil && pkg.Dimensions.VolumeCm3() > c.Capacity.MaxVolumeCm3 {
		return Eligibility{Reason: ReasonOversize}
	}

	maxStops := policy.MaxStopsPerRoute
	if maxStops < 1 {
		maxStops = DefaultMaxStopsPerRoute
	}
	switch c.Status {
	case domain.TravelerStatusIdle:
	case domain.TravelerStatusActive:
		if c.InFlightPackages >= maxStops {
			return Eligibility{Reason: ReasonRouteFull}
		}
	default:
		return Eligibility{Reason: ReasonStatus}
	}

	if desired != nil && !c.Availability.Covers(*desired) {
		return Eligibility{Reason: ReasonOutsideWindow}
	}

	return Eligibility{Eligible: true}
}
